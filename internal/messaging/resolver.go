package messaging

import (
	"context"
	"fmt"

	"petreunite-chat/internal/models"
)

// Resolver finds or creates the single conversation between the current
// user and another user. Whether the conversation existed is not exposed;
// the greeter decides that from content.
type Resolver struct {
	backend Backend
}

func NewResolver(backend Backend) *Resolver {
	return &Resolver{backend: backend}
}

// Resolve returns the conversation id for (session user, other). Contacting
// yourself fails with ErrSelfContact before any backend call; a refusal
// reported by the backend is a *ResolutionError.
func (r *Resolver) Resolve(ctx context.Context, session models.Session, other models.ID) (models.ID, error) {
	if !session.Authenticated() {
		return 0, ErrNotAuthenticated
	}
	if session.UserID == other {
		return 0, ErrSelfContact
	}

	res, err := r.backend.StartConversation(ctx, session.UserID, other)
	if err != nil {
		return 0, fmt.Errorf("start conversation with user %d: %w", other, err)
	}
	if res.Err != nil {
		return 0, &ResolutionError{Reason: *res.Err}
	}
	if res.Ok == nil {
		return 0, &ResolutionError{Reason: "backend returned no conversation"}
	}
	return *res.Ok, nil
}
