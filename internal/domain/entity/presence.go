package entity

import "time"

const (
	OnlineStatusOnline  = "online"
	OnlineStatusOffline = "offline"
)

type Presence struct {
	IsOnline     bool       `json:"is_online"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}
