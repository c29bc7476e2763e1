package models

import "time"

// Message is one append-only entry in a conversation. Timestamp is the
// backend-assigned creation time in nanoseconds since the Unix epoch.
type Message struct {
	ID             ID     `json:"id"`
	ConversationID ID     `json:"conversation_id"`
	SenderID       ID     `json:"sender_id"`
	Content        string `json:"content"`
	Timestamp      int64  `json:"timestamp"`
}

// CreatedAt converts the nanosecond timestamp at millisecond precision.
func (m Message) CreatedAt() time.Time {
	return time.UnixMilli(m.Timestamp / int64(time.Millisecond))
}

// Less orders messages by timestamp, then id.
func (m Message) Less(o Message) bool {
	if m.Timestamp != o.Timestamp {
		return m.Timestamp < o.Timestamp
	}
	return m.ID < o.ID
}

type SendMessageRequest struct {
	SenderID ID     `json:"sender_id"`
	Content  string `json:"content"`
}

// SendMessageResponse carries the new message id; 0 means the append failed.
type SendMessageResponse struct {
	ID    ID     `json:"id"`
	Error string `json:"error,omitempty"`
}

// NewMessageEvent is pushed over the websocket to participants when a
// message is appended.
type NewMessageEvent struct {
	Event          string `json:"event"`
	ConversationID ID     `json:"conversation_id"`
	MessageID      ID     `json:"message_id"`
	SenderID       ID     `json:"sender_id"`
	Text           string `json:"text"`
	Timestamp      int64  `json:"timestamp"`
}
