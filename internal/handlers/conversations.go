package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"petreunite-chat/internal/models"
	"petreunite-chat/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ConversationHandler exposes the conversation backend over HTTP.
type ConversationHandler struct {
	backend services.ConversationBackend
	hub     *Hub
}

func NewConversationHandler(backend services.ConversationBackend, hub *Hub) *ConversationHandler {
	return &ConversationHandler{backend: backend, hub: hub}
}

// Register mounts the routes on a group that already runs the auth middleware.
func (h *ConversationHandler) Register(r fiber.Router) {
	r.Post("/conversations/start", h.StartConversation)
	r.Get("/conversations/:id", h.GetConversation)
	r.Get("/conversations/:id/messages", h.GetMessages)
	r.Post("/conversations/:id/messages", h.SendMessage)
	r.Get("/users/:id/conversations", h.GetConversationsForUser)
	r.Get("/users/:id", h.GetUser)
}

func (h *ConversationHandler) StartConversation(c *fiber.Ctx) error {
	var req models.StartConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}
	if req.UserA != currentUser(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "user_a must be the authenticated user"})
	}

	res, err := h.backend.StartConversation(c.Context(), req.UserA, req.UserB)
	if err != nil {
		slog.Error("start conversation failed", "user_a", req.UserA, "user_b", req.UserB, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(res)
}

func (h *ConversationHandler) GetConversation(c *fiber.Ctx) error {
	id, err := models.ParseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
	}

	convo, err := h.backend.GetConversation(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if cv, ok := convo.Get(); ok && !cv.HasParticipant(currentUser(c)) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not a participant"})
	}
	return c.JSON(convo)
}

func (h *ConversationHandler) GetMessages(c *fiber.Ctx) error {
	id, err := models.ParseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
	}
	if status, err := h.authorize(c.Context(), id, currentUser(c)); err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	messages, err := h.backend.GetMessagesForConversation(c.Context(), id)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(messages)
}

// SendMessage answers {"id": n}; id 0 accompanies every failure.
func (h *ConversationHandler) SendMessage(c *fiber.Ctx) error {
	id, err := models.ParseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.SendMessageResponse{Error: "invalid conversation id"})
	}

	var req models.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.SendMessageResponse{Error: "Invalid request"})
	}
	if req.SenderID != currentUser(c) {
		return c.Status(fiber.StatusForbidden).JSON(models.SendMessageResponse{Error: "sender_id must be the authenticated user"})
	}

	msgID, err := h.backend.SendMessage(c.Context(), id, req.SenderID, req.Content)
	if err != nil {
		slog.Warn("send message failed", "conversation_id", id, "sender_id", req.SenderID, "error", err)
		return c.Status(statusFor(err)).JSON(models.SendMessageResponse{Error: err.Error()})
	}

	if h.hub != nil {
		go h.notifyNewMessage(id, models.NewMessageEvent{
			Event:          "new_message",
			ConversationID: id,
			MessageID:      msgID,
			SenderID:       req.SenderID,
			Text:           req.Content,
			Timestamp:      time.Now().UnixNano(),
		})
	}

	return c.JSON(models.SendMessageResponse{ID: msgID})
}

func (h *ConversationHandler) GetConversationsForUser(c *fiber.Ctx) error {
	id, err := models.ParseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}
	if id != currentUser(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "can only list your own conversations"})
	}

	ids, err := h.backend.GetConversationsForUser(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(ids)
}

func (h *ConversationHandler) GetUser(c *fiber.Ctx) error {
	id, err := models.ParseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	user, err := h.backend.GetUser(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(user)
}

func (h *ConversationHandler) authorize(ctx context.Context, conversationID, userID models.ID) (int, error) {
	convo, err := h.backend.GetConversation(ctx, conversationID)
	if err != nil {
		return fiber.StatusInternalServerError, err
	}
	cv, ok := convo.Get()
	if !ok {
		return fiber.StatusNotFound, services.ErrConversationNotFound
	}
	if !cv.HasParticipant(userID) {
		return fiber.StatusForbidden, errors.New("not a participant")
	}
	return fiber.StatusOK, nil
}

// notifyNewMessage nudges both participants' open connections.
func (h *ConversationHandler) notifyNewMessage(conversationID models.ID, event models.NewMessageEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	convo, err := h.backend.GetConversation(ctx, conversationID)
	if err != nil {
		slog.Warn("notify: load conversation failed", "conversation_id", conversationID, "error", err)
		return
	}
	if cv, ok := convo.Get(); ok {
		h.hub.SendToUsers(cv.Participants, event)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrConversationNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrNotParticipant):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrEmptyContent):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
