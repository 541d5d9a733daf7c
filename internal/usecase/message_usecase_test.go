package usecase

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitechat/internal/domain/entity"
	"sitechat/pkg/errors"
)

func TestSend_GroupRoundTrip(t *testing.T) {
	f := newFixture(t, MessageOptions{SendTimeout: time.Second})
	ctx := context.Background()
	scope := entity.GroupScope("S1")

	sent, err := f.messages.Send(ctx, worker, scope, SendInput{ClientID: "c1", Content: "  Oi time  "})
	require.NoError(t, err)
	assert.NotEmpty(t, sent.ID)
	assert.Equal(t, "Oi time", sent.Content)
	assert.Equal(t, entity.MessageTypeGeneral, sent.Type)
	assert.Equal(t, entity.PriorityMedium, sent.Priority)
	assert.Equal(t, []string{"U1"}, sent.ReadBy)
	assert.Equal(t, "Ana", sent.SenderName)

	listed, err := f.messages.LoadInitial(ctx, admin, scope)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, sent.ID, listed[0].ID)
	assert.Equal(t, "c1", listed[0].ClientID)
}

func TestSend_SameClientIDIsWrittenOnce(t *testing.T) {
	f := newFixture(t, MessageOptions{})
	ctx := context.Background()
	scope := entity.GroupScope("S1")

	first, err := f.messages.Send(ctx, worker, scope, SendInput{ClientID: "c1", Content: "hello"})
	require.NoError(t, err)
	second, err := f.messages.Send(ctx, worker, scope, SendInput{ClientID: "c1", Content: "hello"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	listed, err := f.messages.LoadInitial(ctx, worker, scope)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestSend_Authorization(t *testing.T) {
	f := newFixture(t, MessageOptions{})
	ctx := context.Background()

	_, err := f.messages.Send(ctx, outside, entity.GroupScope("S1"), SendInput{Content: "hi"})
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	_, err = f.messages.Send(ctx, worker, entity.DirectScope("S1", "U1", "U9"), SendInput{Content: "hi"})
	assert.True(t, errors.Is(err, "FORBIDDEN"), "recipient outside the site")

	_, err = f.messages.Send(ctx, worker, entity.DirectScope("S1", "U2", "U3"), SendInput{Content: "hi"})
	assert.True(t, errors.Is(err, "FORBIDDEN"), "not a participant")

	_, err = f.messages.Send(ctx, worker, entity.DirectScope("S1", "U1", "U1"), SendInput{Content: "hi"})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	_, err = f.messages.Send(ctx, worker, entity.DirectScope("S1", "U1", "U404"), SendInput{Content: "hi"})
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestSend_Validation(t *testing.T) {
	f := newFixture(t, MessageOptions{})
	ctx := context.Background()
	scope := entity.GroupScope("S1")

	_, err := f.messages.Send(ctx, worker, scope, SendInput{Content: "   "})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	_, err = f.messages.Send(ctx, worker, scope, SendInput{Content: "hi", Priority: "someday"})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	_, err = f.messages.Send(ctx, worker, scope, SendInput{Content: string(make([]byte, maxContentLength+1))})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
	assert.Zero(t, f.repo.createCount())
}

func TestSend_AttachmentOnlyGetsLabel(t *testing.T) {
	f := newFixture(t, MessageOptions{})
	ctx := context.Background()

	sent, err := f.messages.Send(ctx, worker, entity.DirectScope("S1", "U1", "U2"), SendInput{
		Media: []entity.LocalMedia{{Kind: entity.MessageTypeImage, Filename: "a.png", Reader: bytes.NewReader([]byte("png"))}},
	})
	require.NoError(t, err)

	assert.Equal(t, "📷 Foto", sent.Content)
	assert.Equal(t, entity.MessageTypeImage, sent.Type)
	assert.Empty(t, sent.Priority)
	assert.Equal(t, f.blobs.uploaded, sent.Attachments)
	assert.Contains(t, sent.Attachments[0], "/direct/S1/U1_U2/")
	assert.Equal(t, "Bruno", sent.RecipientName)

	sent, err = f.messages.Send(ctx, worker, entity.DirectScope("S1", "U1", "U2"), SendInput{
		Type:           entity.MessageTypeFile,
		AttachmentURLs: []string{"https://storage.googleapis.com/test/public/direct/S1/U1_U2/report.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, "📎 Arquivo", sent.Content)
	assert.Equal(t, entity.MessageTypeFile, sent.Type)

	sent, err = f.messages.Send(ctx, worker, entity.DirectScope("S1", "U1", "U2"), SendInput{
		Type:           entity.MessageTypeVideo,
		AttachmentURLs: []string{"https://storage.googleapis.com/test/public/direct/S1/U1_U2/clip.mp4"},
	})
	require.NoError(t, err)
	assert.Equal(t, "🎥 Vídeo", sent.Content)
}

func TestSend_RateLimited(t *testing.T) {
	f := newFixture(t, MessageOptions{SendRatePerMinute: 1, SendBurst: 2})
	ctx := context.Background()
	scope := entity.GroupScope("S1")

	for i := 0; i < 2; i++ {
		_, err := f.messages.Send(ctx, worker, scope, SendInput{Content: "hi"})
		require.NoError(t, err)
	}
	_, err := f.messages.Send(ctx, worker, scope, SendInput{Content: "hi"})
	assert.True(t, errors.Is(err, "TOO_MANY_REQUESTS"))

	_, err = f.messages.Send(ctx, admin, scope, SendInput{Content: "hi"})
	assert.NoError(t, err, "buckets are per user")
}

func TestSend_TimeoutIsUnavailable(t *testing.T) {
	f := newFixture(t, MessageOptions{SendTimeout: 20 * time.Millisecond})
	f.repo.hold = make(chan struct{})

	_, err := f.messages.Send(context.Background(), worker, entity.GroupScope("S1"), SendInput{Content: "hi"})
	assert.True(t, errors.Is(err, "UNAVAILABLE"))
}

func TestUploadMedia_RollsBackPartialBatch(t *testing.T) {
	f := newFixture(t, MessageOptions{})
	f.blobs.failAt = 3

	media := []entity.LocalMedia{
		{Kind: entity.MessageTypeImage, Reader: bytes.NewReader(nil)},
		{Kind: entity.MessageTypeVideo, Reader: bytes.NewReader(nil)},
		{Kind: entity.MessageTypeFile, Filename: "x.pdf", Reader: bytes.NewReader(nil)},
	}
	urls, err := f.messages.UploadMedia(context.Background(), entity.GroupScope("S1"), media)

	assert.Nil(t, urls)
	assert.True(t, errors.Is(err, "UNAVAILABLE"))
	assert.Len(t, f.blobs.uploaded, 2)
	assert.Equal(t, f.blobs.uploaded, f.blobs.deleted)
}

func TestUploadAttachments(t *testing.T) {
	f := newFixture(t, MessageOptions{})
	ctx := context.Background()

	_, err := f.messages.UploadAttachments(ctx, worker, entity.GroupScope("S1"), nil)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	_, err = f.messages.UploadAttachments(ctx, outside, entity.GroupScope("S1"), []entity.LocalMedia{{Reader: bytes.NewReader(nil)}})
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	urls, err := f.messages.UploadAttachments(ctx, worker, entity.GroupScope("S1"), []entity.LocalMedia{{Reader: bytes.NewReader(nil)}})
	require.NoError(t, err)
	require.Len(t, urls, 1)
	assert.Contains(t, urls[0], "/chat/S1/")
}

func TestDelete_OnlySenderAndFinal(t *testing.T) {
	f := newFixture(t, MessageOptions{})
	ctx := context.Background()
	scope := entity.GroupScope("S1")

	sent, err := f.messages.Send(ctx, worker, scope, SendInput{Content: "oops"})
	require.NoError(t, err)

	err = f.messages.Delete(ctx, admin, scope, sent.ID)
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	require.NoError(t, f.messages.Delete(ctx, worker, scope, sent.ID))

	err = f.messages.Delete(ctx, worker, scope, sent.ID)
	assert.True(t, errors.Is(err, "NOT_FOUND"))

	listed, err := f.messages.LoadInitial(ctx, worker, scope)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestMarkRead_IsIdempotent(t *testing.T) {
	f := newFixture(t, MessageOptions{})
	ctx := context.Background()
	scope := entity.DirectScope("S1", "U1", "U2")
	adminScope := entity.DirectScope("S1", "U2", "U1")

	sent, err := f.messages.Send(ctx, worker, scope, SendInput{Content: "oi"})
	require.NoError(t, err)

	require.NoError(t, f.messages.MarkRead(ctx, admin, adminScope, sent.ID))
	first, err := f.repo.GetByID(ctx, adminScope, sent.ID)
	require.NoError(t, err)
	require.NotNil(t, first.ReadAt)

	require.NoError(t, f.messages.MarkRead(ctx, admin, adminScope, sent.ID))
	second, err := f.repo.GetByID(ctx, adminScope, sent.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"U1", "U2"}, second.ReadBy)
	assert.Equal(t, *first.ReadAt, *second.ReadAt)

	err = f.messages.MarkRead(ctx, admin, adminScope, "")
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestMarkThreadRead(t *testing.T) {
	f := newFixture(t, MessageOptions{})
	ctx := context.Background()
	scope := entity.DirectScope("S1", "U1", "U2")

	for i := 0; i < 3; i++ {
		_, err := f.messages.Send(ctx, worker, scope, SendInput{Content: "ping"})
		require.NoError(t, err)
	}

	marked, err := f.messages.MarkThreadRead(ctx, admin, entity.DirectScope("S1", "U2", "U1"))
	require.NoError(t, err)
	assert.Equal(t, 3, marked)

	marked, err = f.messages.MarkThreadRead(ctx, admin, entity.DirectScope("S1", "U2", "U1"))
	require.NoError(t, err)
	assert.Zero(t, marked)
}

func TestSubscribe_DeliversOrderedLists(t *testing.T) {
	f := newFixture(t, MessageOptions{})
	ctx := context.Background()
	scope := entity.GroupScope("S1")
	rec := &recorder{}

	cancel, err := f.messages.Subscribe(ctx, admin, scope, rec.onChange)
	require.NoError(t, err)
	defer cancel()

	_, err = f.messages.Send(ctx, worker, scope, SendInput{Content: "one"})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = f.messages.Send(ctx, worker, scope, SendInput{Content: "two"})
	require.NoError(t, err)

	last := rec.last()
	require.Len(t, last, 2)
	assert.Equal(t, "one", last[0].Content)
	assert.Equal(t, "two", last[1].Content)

	cancel()
	cancel()
	_, err = f.messages.Send(ctx, worker, scope, SendInput{Content: "three"})
	require.NoError(t, err)
	assert.Len(t, rec.last(), 2, "no deliveries after cancel")

	_, err = f.messages.Subscribe(ctx, outside, scope, rec.onChange)
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}
