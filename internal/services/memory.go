package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"petreunite-chat/internal/models"
)

type pairKey struct {
	low, high models.ID
}

// MemoryChatService is an in-process Store. It backs CHAT_STORE=memory
// and the test suites.
type MemoryChatService struct {
	mu sync.Mutex

	users       map[models.ID]*models.User
	byUsername  map[string]models.ID
	convos      map[models.ID]*models.Conversation
	byPair      map[pairKey]models.ID
	messages    map[models.ID][]models.Message
	nextUser    models.ID
	nextConvo   models.ID
	nextMessage models.ID

	now func() time.Time
}

func NewMemoryChatService() *MemoryChatService {
	return &MemoryChatService{
		users:      make(map[models.ID]*models.User),
		byUsername: make(map[string]models.ID),
		convos:     make(map[models.ID]*models.Conversation),
		byPair:     make(map[pairKey]models.ID),
		messages:   make(map[models.ID][]models.Message),
		now:        time.Now,
	}
}

// SetClock replaces the time source used for message timestamps.
func (s *MemoryChatService) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// AddUser seeds a user with a fixed id, for fixtures.
func (s *MemoryChatService) AddUser(id models.ID, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = &models.User{ID: id, Username: username, CreatedAt: s.now()}
	s.byUsername[username] = id
	if id > s.nextUser {
		s.nextUser = id
	}
}

func (s *MemoryChatService) StartConversation(_ context.Context, userA, userB models.ID) (models.StartResult, error) {
	if reason := startRejection(userA, userB); reason != "" {
		return models.StartErr(reason), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.users[userA] == nil || s.users[userB] == nil {
		return models.StartErr(ErrUserNotFound.Error()), nil
	}

	low, high := models.OrderedPair(userA, userB)
	key := pairKey{low, high}
	if id, ok := s.byPair[key]; ok {
		return models.StartOk(id), nil
	}

	s.nextConvo++
	id := s.nextConvo
	s.convos[id] = &models.Conversation{
		ID:           id,
		Participants: []models.ID{low, high},
		CreatedAt:    s.now(),
	}
	s.byPair[key] = id
	return models.StartOk(id), nil
}

func (s *MemoryChatService) GetConversation(_ context.Context, conversationID models.ID) (models.Option[models.Conversation], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convos[conversationID]
	if !ok {
		return models.None[models.Conversation](), nil
	}
	cp := *c
	cp.Participants = append([]models.ID(nil), c.Participants...)
	return models.Some(cp), nil
}

func (s *MemoryChatService) GetConversationsForUser(_ context.Context, userID models.ID) ([]models.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := []models.ID{}
	for id, c := range s.convos {
		if c.HasParticipant(userID) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *MemoryChatService) GetMessagesForConversation(_ context.Context, conversationID models.ID) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convos[conversationID]; !ok {
		return nil, ErrConversationNotFound
	}
	return append([]models.Message{}, s.messages[conversationID]...), nil
}

func (s *MemoryChatService) SendMessage(_ context.Context, conversationID, senderID models.ID, content string) (models.ID, error) {
	if strings.TrimSpace(content) == "" {
		return 0, ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convos[conversationID]
	if !ok {
		return 0, ErrConversationNotFound
	}
	if !c.HasParticipant(senderID) {
		return 0, ErrNotParticipant
	}

	var last int64
	if msgs := s.messages[conversationID]; len(msgs) > 0 {
		last = msgs[len(msgs)-1].Timestamp
	}

	s.nextMessage++
	msg := models.Message{
		ID:             s.nextMessage,
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Timestamp:      nextTimestamp(s.now(), last),
	}
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	return msg.ID, nil
}

func (s *MemoryChatService) GetUser(_ context.Context, userID models.ID) (models.Option[models.User], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return models.None[models.User](), nil
	}
	cp := *u
	cp.PasswordHash = ""
	return models.Some(cp), nil
}

func (s *MemoryChatService) CreateUser(_ context.Context, username, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[username]; ok {
		return nil, ErrUserExists
	}
	s.nextUser++
	u := &models.User{ID: s.nextUser, Username: username, PasswordHash: passwordHash, CreatedAt: s.now()}
	s.users[u.ID] = u
	s.byUsername[username] = u.ID
	cp := *u
	return &cp, nil
}

func (s *MemoryChatService) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}
