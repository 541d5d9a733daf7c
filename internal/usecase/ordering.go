package usecase

import (
	"sort"

	"sitechat/internal/domain/entity"
)

// SortMessages returns a new slice in display order: ascending SortTime, then
// ID, then ClientID. Entries sharing an ID collapse into one, preferring the
// confirmed copy. The result does not depend on the input order.
func SortMessages(messages []*entity.Message) []*entity.Message {
	out := dedupeByID(messages)
	sort.SliceStable(out, func(i, j int) bool {
		return messageLess(out[i], out[j])
	})
	return out
}

func messageLess(a, b *entity.Message) bool {
	ta, tb := a.SortTime(), b.SortTime()
	if !ta.Equal(tb) {
		return ta.Before(tb)
	}
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	return a.ClientID < b.ClientID
}

func dedupeByID(messages []*entity.Message) []*entity.Message {
	index := make(map[string]int, len(messages))
	out := make([]*entity.Message, 0, len(messages))

	for _, msg := range messages {
		if msg == nil {
			continue
		}
		i, seen := index[msg.ID]
		if !seen {
			index[msg.ID] = len(out)
			out = append(out, msg)
			continue
		}
		if preferMessage(msg, out[i]) {
			out[i] = msg
		}
	}

	return out
}

func preferMessage(candidate, current *entity.Message) bool {
	if candidate.IsLocal() != current.IsLocal() {
		return !candidate.IsLocal()
	}
	return len(candidate.ReadBy) > len(current.ReadBy)
}

// LastMessage returns the newest message in display order, or nil.
func LastMessage(messages []*entity.Message) *entity.Message {
	if len(messages) == 0 {
		return nil
	}
	var last *entity.Message
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		if last == nil || messageLess(last, msg) {
			last = msg
		}
	}
	return last
}
