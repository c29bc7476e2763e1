package messaging

import (
	"context"
	"fmt"

	"petreunite-chat/internal/models"
)

// GreetingText is the automatic first message about a pet post.
func GreetingText(postID models.ID) string {
	return fmt.Sprintf("Hello, I'm contacting you about your pet post (ID: %d). I may have information that could help.", postID)
}

// Greeter sends the introductory message of a first contact.
//
// The emptiness check and the append are not atomic. If both participants
// initiate contact at the same moment each may see an empty conversation
// and greet; that duplicate is accepted.
type Greeter struct {
	backend Backend
}

func NewGreeter(backend Backend) *Greeter {
	return &Greeter{backend: backend}
}

// EnsureGreeting appends one greeting from the session user if and only if
// the conversation has no messages. It reports whether it sent one.
func (g *Greeter) EnsureGreeting(ctx context.Context, session models.Session, conversationID, postID models.ID) (bool, error) {
	msgs, err := g.backend.GetMessagesForConversation(ctx, conversationID)
	if err != nil {
		return false, fmt.Errorf("load messages for conversation %d: %w", conversationID, err)
	}
	if len(msgs) > 0 {
		return false, nil
	}

	id, err := g.backend.SendMessage(ctx, conversationID, session.UserID, GreetingText(postID))
	if err != nil {
		return false, &SendError{ConversationID: conversationID, Err: err}
	}
	if id == 0 {
		return false, &SendError{ConversationID: conversationID}
	}
	return true, nil
}
