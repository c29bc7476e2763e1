package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"petreunite-chat/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatService is the PostgreSQL implementation of Store.
type ChatService struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewChatService(pool *pgxpool.Pool) *ChatService {
	return &ChatService{pool: pool, now: time.Now}
}

// StartConversation returns the conversation for the unordered pair,
// creating it on first contact. The UNIQUE (user_low, user_high)
// constraint makes concurrent first contacts converge on one row.
func (s *ChatService) StartConversation(ctx context.Context, userA, userB models.ID) (models.StartResult, error) {
	if reason := startRejection(userA, userB); reason != "" {
		return models.StartErr(reason), nil
	}

	var found int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE id = ANY($1)`, []int64{int64(userA), int64(userB)}).Scan(&found)
	if err != nil {
		return models.StartResult{}, err
	}
	if found != 2 {
		return models.StartErr(ErrUserNotFound.Error()), nil
	}

	low, high := models.OrderedPair(userA, userB)
	query := `
		INSERT INTO conversations (user_low, user_high)
		VALUES ($1, $2)
		ON CONFLICT (user_low, user_high) DO UPDATE SET user_low = EXCLUDED.user_low
		RETURNING id
	`
	var id int64
	if err := s.pool.QueryRow(ctx, query, int64(low), int64(high)).Scan(&id); err != nil {
		return models.StartResult{}, err
	}
	return models.StartOk(models.ID(id)), nil
}

func (s *ChatService) GetConversation(ctx context.Context, conversationID models.ID) (models.Option[models.Conversation], error) {
	var low, high int64
	var c models.Conversation
	query := `SELECT id, user_low, user_high, created_at FROM conversations WHERE id = $1`
	var id int64
	err := s.pool.QueryRow(ctx, query, int64(conversationID)).Scan(&id, &low, &high, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.None[models.Conversation](), nil
	}
	if err != nil {
		return models.Option[models.Conversation]{}, err
	}
	c.ID = models.ID(id)
	c.Participants = []models.ID{models.ID(low), models.ID(high)}
	return models.Some(c), nil
}

func (s *ChatService) GetConversationsForUser(ctx context.Context, userID models.ID) ([]models.ID, error) {
	query := `SELECT id FROM conversations WHERE user_low = $1 OR user_high = $1 ORDER BY id`
	rows, err := s.pool.Query(ctx, query, int64(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []models.ID{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, models.ID(id))
	}
	return ids, rows.Err()
}

func (s *ChatService) GetMessagesForConversation(ctx context.Context, conversationID models.ID) ([]models.Message, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM conversations WHERE id = $1)`, int64(conversationID)).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrConversationNotFound
	}

	query := `
		SELECT id, conversation_id, sender_id, content, created_ns
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_ns, id
	`
	rows, err := s.pool.Query(ctx, query, int64(conversationID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var id, convID, sender int64
		var msg models.Message
		if err := rows.Scan(&id, &convID, &sender, &msg.Content, &msg.Timestamp); err != nil {
			return nil, err
		}
		msg.ID, msg.ConversationID, msg.SenderID = models.ID(id), models.ID(convID), models.ID(sender)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// SendMessage appends a message. The conversation row is locked for the
// duration so timestamps within a conversation never go backwards.
func (s *ChatService) SendMessage(ctx context.Context, conversationID, senderID models.ID, content string) (models.ID, error) {
	if strings.TrimSpace(content) == "" {
		return 0, ErrEmptyContent
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var low, high int64
	err = tx.QueryRow(ctx, `SELECT user_low, user_high FROM conversations WHERE id = $1 FOR UPDATE`, int64(conversationID)).Scan(&low, &high)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrConversationNotFound
	}
	if err != nil {
		return 0, err
	}
	if int64(senderID) != low && int64(senderID) != high {
		return 0, ErrNotParticipant
	}

	var last int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(created_ns), 0) FROM messages WHERE conversation_id = $1`, int64(conversationID)).Scan(&last); err != nil {
		return 0, err
	}
	ts := nextTimestamp(s.now(), last)

	var id int64
	query := `INSERT INTO messages (conversation_id, sender_id, content, created_ns) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := tx.QueryRow(ctx, query, int64(conversationID), int64(senderID), content, ts).Scan(&id); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return models.ID(id), nil
}

func (s *ChatService) GetUser(ctx context.Context, userID models.ID) (models.Option[models.User], error) {
	var u models.User
	var id int64
	err := s.pool.QueryRow(ctx, `SELECT id, username, created_at FROM users WHERE id = $1`, int64(userID)).Scan(&id, &u.Username, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.None[models.User](), nil
	}
	if err != nil {
		return models.Option[models.User]{}, err
	}
	u.ID = models.ID(id)
	return models.Some(u), nil
}

func (s *ChatService) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	var user models.User
	var id int64
	query := `INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id, username, created_at`
	err := s.pool.QueryRow(ctx, query, username, passwordHash).Scan(&id, &user.Username, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	user.ID = models.ID(id)
	return &user, nil
}

func (s *ChatService) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	var id int64
	query := `SELECT id, username, password_hash, created_at FROM users WHERE username = $1`
	err := s.pool.QueryRow(ctx, query, username).Scan(&id, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	user.ID = models.ID(id)
	return &user, nil
}

// nextTimestamp keeps per-conversation timestamps strictly increasing
// even when the wall clock steps back or two appends share a nanosecond.
func nextTimestamp(now time.Time, last int64) int64 {
	ts := now.UnixNano()
	if ts <= last {
		ts = last + 1
	}
	return ts
}
