package chat

import "time"

// Chat is one conversation thread owned by a user.
type Chat struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Info carries chat metadata for sidebar listings.
type Info struct {
	Chat
	MessageCount int64 `json:"messageCount"`
}
