package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.PresenceInterval)
	assert.Equal(t, 30*time.Second, cfg.PendingTimeout)
	assert.Equal(t, "firestore", cfg.StoreDriver)
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("SITECHAT_TEST_DURATION", "45s")
	assert.Equal(t, 45*time.Second, getEnvAsDuration("SITECHAT_TEST_DURATION", time.Second))

	t.Setenv("SITECHAT_TEST_DURATION", "12")
	assert.Equal(t, 12*time.Second, getEnvAsDuration("SITECHAT_TEST_DURATION", time.Second))

	t.Setenv("SITECHAT_TEST_DURATION", "soon")
	assert.Equal(t, time.Second, getEnvAsDuration("SITECHAT_TEST_DURATION", time.Second))
}

func TestGetEnvAsSlice(t *testing.T) {
	t.Setenv("SITECHAT_TEST_ORIGINS", "https://a.example, ,https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, getEnvAsSlice("SITECHAT_TEST_ORIGINS", nil))

	assert.Equal(t, []string{"*"}, getEnvAsSlice("SITECHAT_TEST_UNSET", []string{"*"}))
}
