package usecase

import (
	"context"
	"sync"
	"time"

	"sitechat/internal/domain/entity"
	"sitechat/internal/domain/repository"
	"sitechat/pkg/logger"
	"sitechat/pkg/metrics"
)

type PresenceOptions struct {
	Interval      time.Duration
	LookupTimeout time.Duration
}

// PresenceTracker polls the presence provider. Presence is pulled on an
// interval, never pushed, so a stale status of up to one interval is expected.
type PresenceTracker struct {
	presenceRepo  repository.PresenceRepository
	interval      time.Duration
	lookupTimeout time.Duration
	clock         func() time.Time
}

func NewPresenceTracker(presenceRepo repository.PresenceRepository, opts PresenceOptions) *PresenceTracker {
	interval := opts.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &PresenceTracker{
		presenceRepo:  presenceRepo,
		interval:      interval,
		lookupTimeout: opts.LookupTimeout,
		clock:         time.Now,
	}
}

// GetStatus looks up a user's presence. Lookup errors read as offline.
func (t *PresenceTracker) GetStatus(ctx context.Context, userID string) entity.Presence {
	if t.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.lookupTimeout)
		defer cancel()
	}

	presence, err := t.presenceRepo.GetStatus(ctx, userID)
	if err != nil || presence == nil {
		metrics.PresenceLookupFailures.Inc()
		logger.Warn("GetStatus Warning: presence lookup for %s failed, showing offline: %v", userID, err)
		return entity.Presence{}
	}
	return *presence
}

// Label formats a presence record against the tracker clock.
func (t *PresenceTracker) Label(p entity.Presence) string {
	return FormatStatus(p, t.clock())
}

// Track polls userID now and then on every interval, calling onStatus with the
// record and its label. The returned stop must be called when the caller goes
// away; it is idempotent, waits for the poller to exit and must not be called
// from inside onStatus. Tracking also ends with ctx.
func (t *PresenceTracker) Track(ctx context.Context, userID string, onStatus func(entity.Presence, string)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			p := t.GetStatus(ctx, userID)
			if ctx.Err() != nil {
				return
			}
			onStatus(p, t.Label(p))

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

func (t *PresenceTracker) Heartbeat(ctx context.Context, userID string) {
	if err := t.presenceRepo.Heartbeat(ctx, userID); err != nil {
		logger.Warn("Heartbeat Warning: failed to record presence for %s: %v", userID, err)
	}
}

func (t *PresenceTracker) MarkOffline(ctx context.Context, userID string) {
	if err := t.presenceRepo.MarkOffline(ctx, userID); err != nil {
		logger.Warn("MarkOffline Warning: failed to record offline for %s: %v", userID, err)
	}
}
