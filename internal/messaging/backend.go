package messaging

import (
	"context"

	"petreunite-chat/internal/models"
)

// Backend is the conversation service as the messaging core consumes it.
type Backend interface {
	StartConversation(ctx context.Context, userA, userB models.ID) (models.StartResult, error)
	GetConversation(ctx context.Context, conversationID models.ID) (models.Option[models.Conversation], error)
	GetConversationsForUser(ctx context.Context, userID models.ID) ([]models.ID, error)
	GetMessagesForConversation(ctx context.Context, conversationID models.ID) ([]models.Message, error)
	SendMessage(ctx context.Context, conversationID, senderID models.ID, content string) (models.ID, error)
	GetUser(ctx context.Context, userID models.ID) (models.Option[models.User], error)
}
