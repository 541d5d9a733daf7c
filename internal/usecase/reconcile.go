package usecase

import (
	"time"

	"sitechat/internal/domain/entity"
)

// Reconcile drops every local entry whose ClientID already appears among the
// confirmed messages and returns the ones still waiting, plus how many were dropped.
func Reconcile(confirmed, pending []*entity.Message) ([]*entity.Message, int) {
	confirmedClientIDs := make(map[string]struct{}, len(confirmed))
	for _, msg := range confirmed {
		if msg != nil && msg.ClientID != "" {
			confirmedClientIDs[msg.ClientID] = struct{}{}
		}
	}

	still := make([]*entity.Message, 0, len(pending))
	dropped := 0
	for _, msg := range pending {
		if _, ok := confirmedClientIDs[msg.ClientID]; ok {
			dropped++
			continue
		}
		still = append(still, msg)
	}

	return still, dropped
}

// Merge builds the displayed list: confirmed messages plus the local entries
// that are not confirmed yet, in display order.
func Merge(confirmed, pending []*entity.Message) []*entity.Message {
	still, _ := Reconcile(confirmed, pending)

	all := make([]*entity.Message, 0, len(confirmed)+len(still))
	all = append(all, confirmed...)
	all = append(all, still...)
	return SortMessages(all)
}

// ExpirePending marks pending entries whose send started before now-timeout
// as failed and returns how many changed. Only entries listed in sentAt are
// considered. A non-positive timeout disables expiry.
func ExpirePending(pending []*entity.Message, sentAt map[string]time.Time, now time.Time, timeout time.Duration) int {
	if timeout <= 0 {
		return 0
	}

	expired := 0
	for _, msg := range pending {
		if !msg.IsPending() {
			continue
		}
		started, ok := sentAt[msg.ClientID]
		if !ok {
			continue
		}
		if now.Sub(started) >= timeout {
			msg.State = entity.MessageStateFailed
			msg.Error = "timed out waiting for confirmation"
			expired++
		}
	}
	return expired
}
