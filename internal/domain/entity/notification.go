package entity

import "time"

type Notification struct {
	ID        string     `json:"id" firestore:"id"`
	UserID    string     `json:"user_id" firestore:"userId"`
	SiteID    string     `json:"site_id,omitempty" firestore:"siteId,omitempty"`
	Title     string     `json:"title" firestore:"title"`
	Body      string     `json:"body" firestore:"body"`
	Read      bool       `json:"read" firestore:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty" firestore:"readAt,omitempty"`
	CreatedAt time.Time  `json:"created_at" firestore:"createdAt"`
}
