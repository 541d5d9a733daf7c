package firebase

import (
	"context"
	"fmt"
	"strings"
)

const devTokenPrefix = "dev:"

// DevTokenVerifier accepts tokens of the form "dev:<uid>". It backs the
// memory store driver in development, where no Firebase project is wired.
type DevTokenVerifier struct{}

func (DevTokenVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	uid, ok := strings.CutPrefix(token, devTokenPrefix)
	if !ok || uid == "" {
		return "", fmt.Errorf("not a development token")
	}
	return uid, nil
}

// DevToken returns the development token for uid.
func DevToken(uid string) string {
	return devTokenPrefix + uid
}
