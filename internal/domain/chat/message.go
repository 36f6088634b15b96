package chat

import "time"

// Message is one answered question in a caller's chat history.
type Message struct {
	ID        string
	CallerID  string
	Message   string
	Response  string
	CreatedAt time.Time
}
