package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitechat/internal/domain/entity"
	"sitechat/pkg/errors"
)

func directMessage(id, from, fromName, to, toName string, at time.Time, readBy ...string) *entity.Message {
	return &entity.Message{
		ID:            id,
		SiteID:        "S1",
		SenderID:      from,
		SenderName:    fromName,
		RecipientID:   to,
		RecipientName: toName,
		Participants:  entity.SortedPair(from, to),
		PairKey:       entity.PairKey(from, to),
		CreatedAt:     at,
		ReadBy:        append([]string{from}, readBy...),
		State:         entity.MessageStateConfirmed,
	}
}

func TestBuildDirectThreads(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	messages := []*entity.Message{
		directMessage("m1", "U1", "Ana", "U2", "Bruno", base),
		directMessage("m2", "U2", "Bruno", "U1", "Ana", base.Add(time.Minute)),
		directMessage("m3", "U1", "Ana", "U3", "Carla", base.Add(2*time.Minute)),
		directMessage("m4", "U2", "Bruno", "U3", "Carla", base.Add(3*time.Minute)),
		{ID: "other-site", SiteID: "S2", SenderID: "U2", RecipientID: "U1"},
	}

	threads := BuildDirectThreads("S1", "U1", messages)
	require.Len(t, threads, 2)

	assert.Equal(t, "U3", threads[0].Other.ID, "newest thread first")
	assert.Equal(t, "Carla", threads[0].Other.Name)
	assert.Equal(t, "m3", threads[0].LastMessage.ID)
	assert.Zero(t, threads[0].UnreadCount)

	assert.Equal(t, "U2", threads[1].Other.ID)
	assert.Equal(t, "Bruno", threads[1].Other.Name)
	assert.Equal(t, "m2", threads[1].LastMessage.ID)
	assert.Equal(t, 1, threads[1].UnreadCount)
}

func TestListGroupThread_UnreadCount(t *testing.T) {
	f := newFixture(t, MessageOptions{})
	ctx := context.Background()
	scope := entity.GroupScope("S1")

	for i := 0; i < 3; i++ {
		_, err := f.messages.Send(ctx, worker, scope, SendInput{Content: "aviso"})
		require.NoError(t, err)
	}

	thread, err := f.threads.ListGroupThread(ctx, admin, "S1")
	require.NoError(t, err)
	assert.Equal(t, 3, thread.UnreadCount)
	require.NotNil(t, thread.LastMessage)

	mine, err := f.threads.ListGroupThread(ctx, worker, "S1")
	require.NoError(t, err)
	assert.Zero(t, mine.UnreadCount)

	_, err = f.threads.ListGroupThread(ctx, outside, "S1")
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestListDirectThreads(t *testing.T) {
	f := newFixture(t, MessageOptions{})
	ctx := context.Background()

	_, err := f.messages.Send(ctx, worker, entity.DirectScope("S1", "U1", "U2"), SendInput{Content: "oi"})
	require.NoError(t, err)
	_, err = f.messages.Send(ctx, admin2, entity.DirectScope("S1", "U3", "U1"), SendInput{Content: "tudo bem?"})
	require.NoError(t, err)

	threads, err := f.threads.ListDirectThreads(ctx, worker, "S1")
	require.NoError(t, err)
	require.Len(t, threads, 2)

	byOther := map[string]*entity.DirectThread{}
	for _, th := range threads {
		byOther[th.Other.ID] = th
	}
	assert.Zero(t, byOther["U2"].UnreadCount)
	assert.Equal(t, 1, byOther["U3"].UnreadCount)
	assert.Equal(t, "Carla", byOther["U3"].Other.Name)
}

func TestResolveOrOpenThread(t *testing.T) {
	f := newFixture(t, MessageOptions{})
	ctx := context.Background()

	handle, err := f.threads.ResolveOrOpenThread(ctx, worker, "S1", "U2")
	require.NoError(t, err)
	assert.False(t, handle.Exists)
	assert.Equal(t, "direct:S1:U1_U2", handle.Key)
	assert.Equal(t, "Bruno", handle.Other.Name)

	_, err = f.messages.Send(ctx, admin, entity.DirectScope("S1", "U2", "U1"), SendInput{Content: "oi Ana"})
	require.NoError(t, err)

	handle, err = f.threads.ResolveOrOpenThread(ctx, worker, "S1", "U2")
	require.NoError(t, err)
	assert.True(t, handle.Exists)

	_, err = f.threads.ResolveOrOpenThread(ctx, worker, "S1", "U9")
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	_, err = f.threads.ResolveOrOpenThread(ctx, worker, "S1", "U1")
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestListAdminRoster(t *testing.T) {
	f := newFixture(t, MessageOptions{})
	ctx := context.Background()

	roster, err := f.threads.ListAdminRoster(ctx, worker, "S1")
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "Bruno", roster[0].Other.Name, "no history sorts by name")
	assert.Equal(t, "Carla", roster[1].Other.Name)

	_, err = f.messages.Send(ctx, admin2, entity.DirectScope("S1", "U3", "U1"), SendInput{Content: "me chama"})
	require.NoError(t, err)

	roster, err = f.threads.ListAdminRoster(ctx, worker, "S1")
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "U3", roster[0].Other.ID)
	assert.Equal(t, 1, roster[0].UnreadCount)
	assert.Nil(t, roster[1].LastMessage)

	self, err := f.threads.ListAdminRoster(ctx, admin, "S1")
	require.NoError(t, err)
	require.Len(t, self, 1, "an admin is not listed to themselves")
	assert.Equal(t, "U3", self[0].Other.ID)
}
