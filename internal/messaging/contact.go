package messaging

import (
	"context"
	"errors"
	"log/slog"

	"petreunite-chat/internal/models"
)

const (
	selfContactText    = "This is your own pet post."
	contactFailureText = "Failed to start conversation. Please try again."
)

// Contact is the "contact this owner" action on a pet post: resolve the
// conversation, greet on first contact, and hand back the conversation to
// open.
type Contact struct {
	resolver *Resolver
	greeter  *Greeter
	notifier Notifier
	log      *slog.Logger
}

func NewContact(backend Backend, notifier Notifier, logger *slog.Logger) *Contact {
	if logger == nil {
		logger = slog.Default()
	}
	return &Contact{
		resolver: NewResolver(backend),
		greeter:  NewGreeter(backend),
		notifier: notifierOrDiscard(notifier),
		log:      logger,
	}
}

// Start runs the contact flow for post. Every failure has already been
// turned into a notice when Start returns; the error is for the caller's
// control flow only.
func (c *Contact) Start(ctx context.Context, session models.Session, post models.PetPost) (models.ID, error) {
	if !session.Authenticated() {
		return 0, ErrNotAuthenticated
	}
	if session.UserID == post.UserID {
		c.notifier.Notify(Notice{Kind: NoticeSelfContact, Text: selfContactText})
		return 0, ErrSelfContact
	}

	log := c.log.With("user_id", session.UserID, "owner_id", post.UserID, "post_id", post.ID)

	conversationID, err := c.resolver.Resolve(ctx, session, post.UserID)
	if err != nil {
		var resErr *ResolutionError
		if errors.As(err, &resErr) {
			log.Warn("backend refused conversation", "reason", resErr.Reason)
			c.notifier.Notify(Notice{Kind: NoticeResolutionFailed, Text: "Failed to start conversation: " + resErr.Reason})
		} else {
			log.Error("start conversation failed", "error", err)
			c.notifier.Notify(Notice{Kind: NoticeResolutionFailed, Text: contactFailureText})
		}
		return 0, err
	}

	sent, err := c.greeter.EnsureGreeting(ctx, session, conversationID, post.ID)
	if err != nil {
		log.Error("greeting failed", "conversation_id", conversationID, "error", err)
		c.notifier.Notify(Notice{Kind: NoticeResolutionFailed, Text: contactFailureText})
		return 0, err
	}
	if sent {
		log.Info("new conversation greeted", "conversation_id", conversationID)
	} else {
		log.Debug("existing conversation, greeting skipped", "conversation_id", conversationID)
	}
	return conversationID, nil
}
