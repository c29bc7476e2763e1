package services

import (
	"context"
	"errors"

	"petreunite-chat/internal/models"
)

var (
	ErrUserExists           = errors.New("username already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("sender is not a participant of the conversation")
	ErrEmptyContent         = errors.New("message content is empty")
)

// ConversationBackend owns conversations and messages. StartConversation
// must be idempotent per unordered pair; messages are append-only and
// returned oldest first.
type ConversationBackend interface {
	StartConversation(ctx context.Context, userA, userB models.ID) (models.StartResult, error)
	GetConversation(ctx context.Context, conversationID models.ID) (models.Option[models.Conversation], error)
	GetConversationsForUser(ctx context.Context, userID models.ID) ([]models.ID, error)
	GetMessagesForConversation(ctx context.Context, conversationID models.ID) ([]models.Message, error)
	SendMessage(ctx context.Context, conversationID, senderID models.ID, content string) (models.ID, error)
	GetUser(ctx context.Context, userID models.ID) (models.Option[models.User], error)
}

// UserStore persists accounts for UserService.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Store is a complete storage backend for the server.
type Store interface {
	ConversationBackend
	UserStore
}

// startRejection reports the reason a pair cannot hold a conversation,
// or "" when it can.
func startRejection(userA, userB models.ID) string {
	switch {
	case userA <= 0 || userB <= 0:
		return "invalid user id"
	case userA == userB:
		return "cannot start a conversation with yourself"
	}
	return ""
}
