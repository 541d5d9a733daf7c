package usecase

import (
	"fmt"
	"time"

	"sitechat/internal/domain/entity"
)

const (
	StatusOnline    = "Online"
	StatusOffline   = "Offline"
	StatusJustNow   = "Agora mesmo"
	StatusSending   = "Enviando..."
	dateLayout      = "02/01/2006"
	timeLayout      = "15:04"
	shortDateLayout = "02/01 15:04"
)

// FormatStatus renders a presence record relative to now. It reads no clock.
func FormatStatus(p entity.Presence, now time.Time) string {
	if p.IsOnline {
		return StatusOnline
	}

	ref := p.LastSeen
	if ref == nil || ref.IsZero() {
		ref = p.LastActivity
	}
	if ref == nil || ref.IsZero() {
		return StatusOffline
	}

	diff := now.Sub(*ref)
	switch {
	case diff < time.Minute:
		return StatusJustNow
	case diff < time.Hour:
		return fmt.Sprintf("%dmin atrás", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh atrás", int(diff/time.Hour))
	default:
		return ref.In(now.Location()).Format(dateLayout)
	}
}

// FormatMessageTime renders a message timestamp; local or unstamped messages read "Enviando...".
func FormatMessageTime(m *entity.Message, now time.Time) string {
	if m == nil || m.IsLocal() || m.CreatedAt.IsZero() {
		return StatusSending
	}

	t := m.CreatedAt.In(now.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return t.Format(timeLayout)
	}
	return t.Format(shortDateLayout)
}

// AttachmentLabel is the conventional content of an attachment-only message.
func AttachmentLabel(kind entity.MessageType) string {
	switch kind {
	case entity.MessageTypeImage:
		return "📷 Foto"
	case entity.MessageTypeVideo:
		return "🎥 Vídeo"
	default:
		return "📎 Arquivo"
	}
}
