package models

import "time"

// Conversation is the unique channel between exactly two users.
type Conversation struct {
	ID           ID        `json:"id"`
	Participants []ID      `json:"users"`
	CreatedAt    time.Time `json:"created_at"`
}

// Counterpart returns the participant that is not self. The comparison
// is numeric; ok is false if no such participant exists.
func (c Conversation) Counterpart(self ID) (ID, bool) {
	for _, p := range c.Participants {
		if p != self {
			return p, true
		}
	}
	return 0, false
}

// HasParticipant reports whether id is one of the two participants.
func (c Conversation) HasParticipant(id ID) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}

type StartConversationRequest struct {
	UserA ID `json:"user_a"`
	UserB ID `json:"user_b"`
}

// StartResult is the Result<conversationId, error> variant returned by
// startConversation. Exactly one of Ok and Err is set.
type StartResult struct {
	Ok  *ID     `json:"ok,omitempty"`
	Err *string `json:"err,omitempty"`
}

func StartOk(id ID) StartResult {
	return StartResult{Ok: &id}
}

func StartErr(reason string) StartResult {
	return StartResult{Err: &reason}
}

// OrderedPair returns the pair with the smaller id first, the canonical key
// under which a conversation is stored.
func OrderedPair(a, b ID) (ID, ID) {
	if a > b {
		return b, a
	}
	return a, b
}
