package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, "U1_U2", PairKey("U1", "U2"))
	assert.Equal(t, "U1_U2", PairKey("U2", "U1"))
}

func TestScopeKey(t *testing.T) {
	assert.Equal(t, "group:S1", GroupScope("S1").Key())
	assert.Equal(t, "", GroupScope("S1").PairKey())

	mine := DirectScope("S1", "U2", "U1")
	theirs := DirectScope("S1", "U1", "U2")
	assert.True(t, mine.IsDirect())
	assert.Equal(t, "direct:S1:U1_U2", mine.Key())
	assert.Equal(t, mine.Key(), theirs.Key())
}

func TestUserBelongsTo(t *testing.T) {
	u := &User{ID: "U1", Role: RoleWorker, SiteIDs: []string{"S1", "S2"}}

	assert.True(t, u.BelongsTo("S2"))
	assert.False(t, u.BelongsTo("S3"))
	assert.False(t, u.IsAdmin())
	assert.Equal(t, UserSnapshot{ID: "U1"}, u.Snapshot())
}
