package entity

import "time"

const (
	RoleWorker = "worker"
	RoleAdmin  = "admin"
)

type User struct {
	ID           string     `json:"id" firestore:"id"`
	Email        string     `json:"email" firestore:"email"`
	Name         string     `json:"name" firestore:"name"`
	Role         string     `json:"role" firestore:"role"`
	SiteIDs      []string   `json:"site_ids" firestore:"siteIds"`
	OnlineStatus string     `json:"online_status,omitempty" firestore:"onlineStatus,omitempty"`
	LastSeen     *time.Time `json:"last_seen,omitempty" firestore:"lastSeen,omitempty"`
	LastActivity *time.Time `json:"last_activity,omitempty" firestore:"lastActivity,omitempty"`
	CreatedAt    time.Time  `json:"created_at" firestore:"createdAt"`
	UpdatedAt    time.Time  `json:"updated_at" firestore:"updatedAt"`
}

// UserSnapshot is the identity copied onto messages at send time.
type UserSnapshot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{ID: u.ID, Name: u.Name, Email: u.Email}
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) BelongsTo(siteID string) bool {
	for _, id := range u.SiteIDs {
		if id == siteID {
			return true
		}
	}
	return false
}
