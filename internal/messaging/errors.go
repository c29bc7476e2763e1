package messaging

import (
	"errors"
	"fmt"

	"petreunite-chat/internal/models"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSelfContact      = errors.New("cannot contact yourself")
	ErrNoSelection      = errors.New("no conversation selected")
	ErrEmptyMessage     = errors.New("message is empty")
)

// ResolutionError is the backend explicitly refusing to start or find a
// conversation.
type ResolutionError struct {
	Reason string
}

func (e *ResolutionError) Error() string {
	return "start conversation: " + e.Reason
}

// SendError is a failed append: either a transport error or the backend's
// zero id.
type SendError struct {
	ConversationID models.ID
	Err            error
}

func (e *SendError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("send to conversation %d: backend returned id 0", e.ConversationID)
	}
	return fmt.Sprintf("send to conversation %d: %v", e.ConversationID, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
