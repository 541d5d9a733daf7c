package usecase

import (
	"context"
	"sync"
	"time"

	"sitechat/internal/domain/entity"
	"sitechat/internal/domain/repository"
	"sitechat/pkg/errors"
	"sitechat/pkg/logger"
	"sitechat/pkg/metrics"
)

// outgoing remembers what a local entry needs for a retry.
type outgoing struct {
	input   SendInput
	sentAt  time.Time
	written bool
}

// ChatSession is the state of one open thread view: the confirmed messages
// from the live subscription plus the local entries still waiting for their
// server echo. It is created by OpenSession and must be closed by its owner.
type ChatSession struct {
	uc       *MessageUseCase
	self     *entity.User
	scope    entity.Scope
	onChange func([]*entity.Message)

	// emitMu orders deliveries to onChange; each one reads the state current at delivery.
	emitMu sync.Mutex

	mu        sync.Mutex
	confirmed []*entity.Message
	pending   []*entity.Message
	outgoing  map[string]*outgoing
	cancel    repository.CancelFunc
	closed    bool
}

// OpenSession loads the thread history, starts the live subscription and
// returns the session. ctx bounds the subscription lifetime; onChange receives
// the merged list after every change and may be nil.
func (uc *MessageUseCase) OpenSession(ctx context.Context, self *entity.User, scope entity.Scope, onChange func([]*entity.Message)) (*ChatSession, error) {
	initial, err := uc.LoadInitial(ctx, self, scope)
	if err != nil {
		return nil, err
	}

	s := &ChatSession{
		uc:        uc,
		self:      self,
		scope:     scope,
		onChange:  onChange,
		confirmed: initial,
		outgoing:  make(map[string]*outgoing),
	}

	cancel, err := uc.Subscribe(ctx, self, scope, s.applySnapshot)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	logger.Debug("OpenSession: user %s opened %s", self.ID, scope.Key())
	s.emit()
	return s, nil
}

func (s *ChatSession) Scope() entity.Scope {
	return s.scope
}

// Messages returns a copy of the displayed list.
func (s *ChatSession) Messages() []*entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(Merge(s.confirmed, s.pending))
}

// Local returns copies of the entries not yet confirmed, pending or failed.
func (s *ChatSession) Local() []*entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.pending)
}

// Send shows the message immediately as pending, then writes it. On failure
// the entry stays visible as failed until Retry or Discard.
func (s *ChatSession) Send(ctx context.Context, input SendInput) (*entity.Message, error) {
	prepared, err := s.uc.prepare(s.scope, input)
	if err != nil {
		return nil, err
	}

	now := s.uc.clock()
	if prepared.ClientID == "" {
		prepared.ClientID = NewClientID(now)
	}

	pending := entity.NewPendingMessage(s.scope, s.self.Snapshot(), nil, prepared.ClientID, prepared.Content, prepared.Type, prepared.Priority, prepared.AttachmentURLs, now)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.BadRequest("Chat session is closed", nil)
	}
	if s.findLocked(prepared.ClientID) != nil {
		s.mu.Unlock()
		return nil, errors.Conflict("A message with this client ID is already pending")
	}
	s.pending = append(s.pending, pending)
	s.outgoing[prepared.ClientID] = &outgoing{input: prepared, sentAt: now}
	s.mu.Unlock()

	s.emit()
	return s.dispatch(ctx, prepared.ClientID)
}

// Retry re-sends a failed entry with its original client ID.
func (s *ChatSession) Retry(ctx context.Context, clientID string) (*entity.Message, error) {
	s.mu.Lock()
	msg := s.findLocked(clientID)
	out := s.outgoing[clientID]
	if msg == nil || out == nil {
		s.mu.Unlock()
		return nil, errors.NotFound("Pending message", nil)
	}
	if !msg.IsFailed() {
		s.mu.Unlock()
		return nil, errors.Conflict("Message is still being sent")
	}
	msg.State = entity.MessageStatePending
	msg.Error = ""
	out.sentAt = s.uc.clock()
	out.written = false
	s.mu.Unlock()

	s.emit()
	return s.dispatch(ctx, clientID)
}

// Discard removes a local entry. It reports whether one was removed.
func (s *ChatSession) Discard(clientID string) bool {
	s.mu.Lock()
	removed := false
	for i, msg := range s.pending {
		if msg.ClientID == clientID {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			delete(s.outgoing, clientID)
			removed = true
			break
		}
	}
	s.mu.Unlock()

	if removed {
		s.emit()
	}
	return removed
}

// Sweep fails pending entries that waited longer than the pending timeout.
func (s *ChatSession) Sweep() {
	s.mu.Lock()
	expired := ExpirePending(s.pending, s.sentAtLocked(), s.uc.clock(), s.uc.pendingTimeout)
	s.mu.Unlock()

	if expired > 0 {
		metrics.PendingFailures.WithLabelValues("timeout").Add(float64(expired))
		s.emit()
	}
}

// Close releases the subscription. It is safe to call more than once.
func (s *ChatSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	logger.Debug("CloseSession: user %s closed %s", s.self.ID, s.scope.Key())
}

func (s *ChatSession) dispatch(ctx context.Context, clientID string) (*entity.Message, error) {
	s.mu.Lock()
	out := s.outgoing[clientID]
	if out == nil {
		s.mu.Unlock()
		return nil, errors.NotFound("Pending message", nil)
	}
	input := out.input
	s.mu.Unlock()

	// Upload once so that a retry only repeats the store write.
	if len(input.Media) > 0 {
		urls, err := s.uc.UploadMedia(ctx, s.scope, input.Media)
		if err != nil {
			s.fail(clientID, err)
			return nil, err
		}
		input.AttachmentURLs = append(input.AttachmentURLs, urls...)
		input.Media = nil

		s.mu.Lock()
		if o := s.outgoing[clientID]; o != nil {
			o.input = input
		}
		s.mu.Unlock()
	}

	stored, err := s.uc.Send(ctx, s.self, s.scope, input)
	if err != nil {
		s.fail(clientID, err)
		return nil, err
	}

	// The store has it; only the echo is missing, so stop the timeout clock.
	s.mu.Lock()
	if o := s.outgoing[clientID]; o != nil {
		o.written = true
	}
	s.mu.Unlock()
	return stored, nil
}

func (s *ChatSession) fail(clientID string, cause error) {
	s.mu.Lock()
	msg := s.findLocked(clientID)
	if msg != nil {
		msg.State = entity.MessageStateFailed
		msg.Error = cause.Error()
	}
	s.mu.Unlock()

	if msg != nil {
		metrics.PendingFailures.WithLabelValues(errors.CodeOf(cause)).Inc()
		s.emit()
	}
}

func (s *ChatSession) applySnapshot(messages []*entity.Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.confirmed = messages
	still, reconciled := Reconcile(messages, s.pending)
	if reconciled > 0 {
		kept := make(map[string]struct{}, len(still))
		for _, msg := range still {
			kept[msg.ClientID] = struct{}{}
		}
		for clientID := range s.outgoing {
			if _, ok := kept[clientID]; !ok {
				delete(s.outgoing, clientID)
			}
		}
		metrics.Reconciliations.Add(float64(reconciled))
	}
	s.pending = still
	expired := ExpirePending(s.pending, s.sentAtLocked(), s.uc.clock(), s.uc.pendingTimeout)
	s.mu.Unlock()

	if expired > 0 {
		metrics.PendingFailures.WithLabelValues("timeout").Add(float64(expired))
	}
	s.emit()
}

func (s *ChatSession) emit() {
	if s.onChange == nil {
		return
	}
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.onChange(s.Messages())
}

func (s *ChatSession) findLocked(clientID string) *entity.Message {
	for _, msg := range s.pending {
		if msg.ClientID == clientID {
			return msg
		}
	}
	return nil
}

func (s *ChatSession) sentAtLocked() map[string]time.Time {
	sentAt := make(map[string]time.Time, len(s.outgoing))
	for clientID, out := range s.outgoing {
		if !out.written {
			sentAt[clientID] = out.sentAt
		}
	}
	return sentAt
}

func cloneAll(messages []*entity.Message) []*entity.Message {
	out := make([]*entity.Message, len(messages))
	for i, msg := range messages {
		out[i] = msg.Clone()
	}
	return out
}
