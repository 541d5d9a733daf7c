package usecase

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewClientID returns a correlation token: base36 millis plus 12 random hex digits.
func NewClientID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strconv.FormatInt(now.UnixMilli(), 36) + "-" + random[:12]
}
