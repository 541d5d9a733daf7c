package entity

import "time"

type GroupThread struct {
	SiteID          string    `json:"site_id"`
	LastMessage     *Message  `json:"last_message,omitempty"`
	LastMessageTime time.Time `json:"last_message_time,omitempty"`
	UnreadCount     int       `json:"unread_count"`
}

type DirectThread struct {
	SiteID          string       `json:"site_id"`
	Other           UserSnapshot `json:"other"`
	LastMessage     *Message     `json:"last_message,omitempty"`
	LastMessageTime time.Time    `json:"last_message_time,omitempty"`
	UnreadCount     int          `json:"unread_count"`
}

// ThreadHandle identifies a direct thread. Exists is false until a message is exchanged.
type ThreadHandle struct {
	Scope  Scope        `json:"scope"`
	Key    string       `json:"key"`
	Other  UserSnapshot `json:"other"`
	Exists bool         `json:"exists"`
}
