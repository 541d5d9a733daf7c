package usecase

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"sitechat/internal/domain/entity"
	"sitechat/internal/domain/repository"
	"sitechat/internal/domain/service"
	"sitechat/internal/infrastructure/ratelimit"
	"sitechat/pkg/errors"
	"sitechat/pkg/logger"
	"sitechat/pkg/metrics"
)

const maxContentLength = 4000

type MessageOptions struct {
	SendTimeout       time.Duration
	PendingTimeout    time.Duration
	SendRatePerMinute int
	SendBurst         int
}

// MessageUseCase is the message store of the chat core: ordered loads,
// live subscriptions, durable sends, deletes and read receipts.
type MessageUseCase struct {
	messageRepo      repository.MessageRepository
	userRepo         repository.UserRepository
	notificationRepo repository.NotificationRepository
	blobService      service.BlobService
	rateLimiter      *ratelimit.RateLimiter
	sendTimeout      time.Duration
	pendingTimeout   time.Duration
	clock            func() time.Time
}

func NewMessageUseCase(
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	notificationRepo repository.NotificationRepository,
	blobService service.BlobService,
	opts MessageOptions,
) *MessageUseCase {
	return &MessageUseCase{
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		blobService:      blobService,
		rateLimiter:      ratelimit.NewRateLimiter(opts.SendRatePerMinute, opts.SendBurst),
		sendTimeout:      opts.SendTimeout,
		pendingTimeout:   opts.PendingTimeout,
		clock:            time.Now,
	}
}

// StartCleanupRoutine drops idle rate-limit buckets until ctx ends.
func (uc *MessageUseCase) StartCleanupRoutine(ctx context.Context) {
	uc.rateLimiter.StartCleanupRoutine(ctx, 30*time.Minute)
}

type SendInput struct {
	ClientID       string
	Content        string
	Type           entity.MessageType
	Priority       entity.Priority
	AttachmentURLs []string
	Media          []entity.LocalMedia
}

func validateScope(scope entity.Scope) error {
	if scope.SiteID == "" {
		return errors.BadRequest("Site ID is required", nil)
	}
	if scope.IsDirect() {
		if scope.SelfID == "" || scope.OtherUserID == "" {
			return errors.BadRequest("Both participants are required for a direct chat", nil)
		}
		if scope.SelfID == scope.OtherUserID {
			return errors.BadRequest("You cannot chat with yourself", nil)
		}
	}
	return nil
}

// authorize checks that user may act inside scope.
func authorize(user *entity.User, scope entity.Scope) error {
	if err := validateScope(scope); err != nil {
		return err
	}
	if user == nil {
		return errors.Unauthorized("Authentication required", nil)
	}
	if !user.BelongsTo(scope.SiteID) {
		return errors.Forbidden("User is not a member of this site", nil)
	}
	if scope.IsDirect() && scope.SelfID != user.ID {
		return errors.Forbidden("User is not a participant in this chat", nil)
	}
	return nil
}

// prepare normalizes an input without touching the network. The returned
// copy has a final type, priority and content.
func (uc *MessageUseCase) prepare(scope entity.Scope, input SendInput) (SendInput, error) {
	out := input
	out.Content = strings.TrimSpace(input.Content)
	out.AttachmentURLs = append([]string(nil), input.AttachmentURLs...)
	out.Media = append([]entity.LocalMedia(nil), input.Media...)

	var err error
	if scope.IsDirect() {
		out.Type, err = NormalizeDirectType(input.Type, input.Media)
		out.Priority = ""
	} else {
		out.Type, err = NormalizeGroupType(input.Type)
		if err == nil {
			out.Priority, err = NormalizePriority(input.Priority)
		}
	}
	if err != nil {
		return SendInput{}, err
	}

	hasAttachments := len(out.AttachmentURLs) > 0 || len(out.Media) > 0
	if out.Content == "" && !hasAttachments {
		return SendInput{}, errors.BadRequest("Message content is required", nil)
	}
	if len(out.Content) > maxContentLength {
		return SendInput{}, errors.BadRequest("Message content is too long", nil)
	}
	if out.Content == "" {
		out.Content = AttachmentLabel(attachmentKind(out))
	}

	return out, nil
}

func attachmentKind(input SendInput) entity.MessageType {
	if len(input.Media) > 0 && input.Media[0].Kind != "" {
		return input.Media[0].Kind
	}
	switch input.Type {
	case entity.MessageTypeImage, entity.MessageTypeVideo, entity.MessageTypeFile:
		return input.Type
	}
	return entity.MessageTypeImage
}

func uploadNamespace(scope entity.Scope) string {
	if scope.IsDirect() {
		return "direct/" + scope.SiteID + "/" + scope.PairKey()
	}
	return "chat/" + scope.SiteID
}

// UploadMedia resolves every local attachment to a URL, in order. Any failure
// fails the whole batch.
func (uc *MessageUseCase) UploadMedia(ctx context.Context, scope entity.Scope, media []entity.LocalMedia) ([]string, error) {
	if len(media) == 0 {
		return nil, nil
	}
	if uc.blobService == nil {
		return nil, errors.Internal("Media uploads are not configured", nil)
	}

	namespace := uploadNamespace(scope)
	urls := make([]string, 0, len(media))
	for _, m := range media {
		var (
			url string
			err error
		)
		switch m.Kind {
		case entity.MessageTypeImage:
			url, err = uc.blobService.UploadImage(ctx, m.Reader, namespace)
		case entity.MessageTypeVideo:
			url, err = uc.blobService.UploadVideo(ctx, m.Reader, namespace)
		default:
			url, err = uc.blobService.UploadFile(ctx, m.Reader, m.Filename, namespace)
		}
		if err != nil {
			logger.Error("UploadMedia Error: Failed to upload %s to %s: %v", m.Filename, namespace, err)
			uc.discardUploads(ctx, urls)
			return nil, errors.Unavailable("Failed to upload attachment", err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// UploadAttachments uploads media on behalf of user ahead of a send.
func (uc *MessageUseCase) UploadAttachments(ctx context.Context, user *entity.User, scope entity.Scope, media []entity.LocalMedia) ([]string, error) {
	if err := authorize(user, scope); err != nil {
		return nil, err
	}
	if len(media) == 0 {
		return nil, errors.BadRequest("At least one file is required", nil)
	}
	return uc.UploadMedia(ctx, scope, media)
}

// discardUploads removes the objects of a batch that failed part way.
func (uc *MessageUseCase) discardUploads(ctx context.Context, urls []string) {
	for _, url := range urls {
		if err := uc.blobService.Delete(ctx, url); err != nil {
			logger.Warn("UploadMedia Warning: Failed to remove orphaned upload %s: %v", url, err)
		}
	}
}

// LoadInitial fetches the current ordered history of scope.
func (uc *MessageUseCase) LoadInitial(ctx context.Context, user *entity.User, scope entity.Scope) ([]*entity.Message, error) {
	if err := authorize(user, scope); err != nil {
		return nil, err
	}

	messages, err := uc.messageRepo.List(ctx, scope)
	if err != nil {
		logger.Error("LoadInitial Error: Failed to list messages for %s: %v", scope.Key(), err)
		return nil, err
	}
	return SortMessages(messages), nil
}

// Subscribe delivers a full, ordered replacement list on every change until
// the returned cancel is called or ctx ends.
func (uc *MessageUseCase) Subscribe(ctx context.Context, user *entity.User, scope entity.Scope, onUpdate func([]*entity.Message)) (repository.CancelFunc, error) {
	if err := authorize(user, scope); err != nil {
		return nil, err
	}

	cancel, err := uc.messageRepo.Subscribe(ctx, scope,
		func(messages []*entity.Message) {
			onUpdate(SortMessages(messages))
		},
		func(err error) {
			logger.Warn("Subscribe Warning: subscription for %s stopped: %v", scope.Key(), err)
		},
	)
	if err != nil {
		logger.Error("Subscribe Error: Failed to subscribe to %s: %v", scope.Key(), err)
		return nil, err
	}
	metrics.ActiveSubscriptions.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			metrics.ActiveSubscriptions.Dec()
		})
	}, nil
}

// Send writes a message durably. It never retries; the caller decides.
func (uc *MessageUseCase) Send(ctx context.Context, sender *entity.User, scope entity.Scope, input SendInput) (*entity.Message, error) {
	if err := authorize(sender, scope); err != nil {
		return nil, err
	}

	if allowed, wait := uc.rateLimiter.Allow(sender.ID, "send_message"); !allowed {
		logger.Warn("Send Rate Limited: User %s must wait %v", sender.ID, wait)
		return nil, errors.TooManyRequests("You are sending messages too quickly. Please slow down.")
	}

	prepared, err := uc.prepare(scope, input)
	if err != nil {
		return nil, err
	}

	var recipient *entity.UserSnapshot
	if scope.IsDirect() {
		other, err := uc.userRepo.GetByID(ctx, scope.OtherUserID)
		if err != nil {
			logger.Error("Send Error: Recipient %s not found: %v", scope.OtherUserID, err)
			return nil, err
		}
		if !other.BelongsTo(scope.SiteID) {
			return nil, errors.Forbidden("Recipient is not a member of this site", nil)
		}
		snapshot := other.Snapshot()
		recipient = &snapshot
	}

	uploaded, err := uc.UploadMedia(ctx, scope, prepared.Media)
	if err != nil {
		metrics.MessagesSent.WithLabelValues(string(scope.Kind), "upload_failed").Inc()
		return nil, err
	}
	attachments := append(prepared.AttachmentURLs, uploaded...)

	clientID := prepared.ClientID
	if clientID == "" {
		clientID = NewClientID(uc.clock())
	}

	message := entity.NewPendingMessage(scope, sender.Snapshot(), recipient, clientID, prepared.Content, prepared.Type, prepared.Priority, attachments, uc.clock())
	message.ID = ""
	message.LocalTime = time.Time{}
	message.State = entity.MessageStateConfirmed
	if message.Attachments == nil {
		message.Attachments = []string{}
	}

	writeCtx := ctx
	if uc.sendTimeout > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(ctx, uc.sendTimeout)
		defer cancel()
	}

	if err := uc.messageRepo.Create(writeCtx, scope, message); err != nil {
		metrics.MessagesSent.WithLabelValues(string(scope.Kind), "failed").Inc()
		logger.Error("Send Error: Failed to write message %s to %s: %v", clientID, scope.Key(), err)
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(writeCtx.Err(), context.DeadlineExceeded) {
			return nil, errors.Unavailable("Timed out sending message", err)
		}
		return nil, err
	}

	metrics.MessagesSent.WithLabelValues(string(scope.Kind), "ok").Inc()
	logger.Debug("Send: message %s (client %s) written to %s", message.ID, clientID, scope.Key())
	return message, nil
}

// Delete hard-removes a message. The store rejects non-senders.
func (uc *MessageUseCase) Delete(ctx context.Context, user *entity.User, scope entity.Scope, messageID string) error {
	if err := authorize(user, scope); err != nil {
		return err
	}
	if messageID == "" {
		return errors.BadRequest("Message ID is required", nil)
	}

	if err := uc.messageRepo.Delete(ctx, scope, messageID, user.ID); err != nil {
		logger.Error("Delete Error: User %s failed to delete message %s: %v", user.ID, messageID, err)
		return err
	}
	return nil
}

// MarkRead records that user has seen a message. Repeating it changes nothing.
func (uc *MessageUseCase) MarkRead(ctx context.Context, user *entity.User, scope entity.Scope, messageID string) error {
	if err := authorize(user, scope); err != nil {
		return err
	}
	if messageID == "" {
		return errors.BadRequest("Message ID is required", nil)
	}

	if err := uc.messageRepo.MarkRead(ctx, scope, messageID, user.ID); err != nil {
		logger.Error("MarkRead Error: Failed to mark message %s read for %s: %v", messageID, user.ID, err)
		return err
	}
	return nil
}

// MarkThreadRead marks every message of scope that user has not read yet and
// returns how many were marked.
func (uc *MessageUseCase) MarkThreadRead(ctx context.Context, user *entity.User, scope entity.Scope) (int, error) {
	if err := authorize(user, scope); err != nil {
		return 0, err
	}

	messages, err := uc.messageRepo.List(ctx, scope)
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, msg := range messages {
		if msg.IsReadBy(user.ID) {
			continue
		}
		if err := uc.messageRepo.MarkRead(ctx, scope, msg.ID, user.ID); err != nil {
			if errors.Is(err, "NOT_FOUND") {
				continue
			}
			logger.Error("MarkThreadRead Error: Failed to mark message %s read for %s: %v", msg.ID, user.ID, err)
			return marked, err
		}
		marked++
	}
	return marked, nil
}

func (uc *MessageUseCase) MarkNotificationAsRead(ctx context.Context, userID, notificationID string) error {
	if notificationID == "" {
		return errors.BadRequest("Notification ID is required", nil)
	}
	if err := uc.notificationRepo.MarkAsRead(ctx, notificationID, userID); err != nil {
		logger.Error("MarkNotificationAsRead Error: Failed for notification %s: %v", notificationID, err)
		return err
	}
	return nil
}
