package messaging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"petreunite-chat/internal/models"
)

// Hooks are called outside the synchronizer's lock, after state changed.
// A hook may call Close.
type Hooks struct {
	// Messages receives every new snapshot of the displayed list.
	Messages func(conversationID models.ID, msgs []DisplayMessage)
	// Sent fires when an optimistic entry is appended, before the backend answers.
	Sent func(conversationID models.ID, text string)
	// Polled fires when a poll tick applies a fetched list; last is its newest message.
	Polled func(conversationID models.ID, last models.Message)
}

// Synchronizer keeps the selected conversation's messages current. It
// polls on a fixed interval while a conversation is selected and merges
// the user's optimistic sends into what it fetches.
//
// Every selection starts a new generation. A fetch or send that completes
// for an older generation is discarded, so a slow answer for a previously
// selected conversation never lands in the current one.
type Synchronizer struct {
	backend  Backend
	session  models.Session
	interval time.Duration
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
	hooks    Hooks

	mu           sync.Mutex
	conversation models.ID
	selected     bool
	generation   uint64
	messages     []DisplayMessage
	nextLocal    uint64
	stopPoll     context.CancelFunc
	pollDone     chan struct{}

	// set while the poll loop runs hooks
	inPollHook atomic.Bool
}

func NewSynchronizer(backend Backend, session models.Session, cfg Config, hooks Hooks) *Synchronizer {
	cfg = cfg.withDefaults()
	return &Synchronizer{
		backend:  backend,
		session:  session,
		interval: cfg.PollInterval,
		notifier: cfg.Notifier,
		log:      cfg.Logger.With("component", "synchronizer", "user_id", session.UserID),
		now:      cfg.Now,
		hooks:    hooks,
	}
}

// Select makes conversationID current: the previous poll loop is stopped,
// the list is loaded from scratch and a new poll loop starts. Polling
// starts even when the initial load fails; the first successful tick
// fills the list.
func (s *Synchronizer) Select(ctx context.Context, conversationID models.ID) error {
	s.mu.Lock()
	s.stopLocked()
	s.generation++
	gen := s.generation
	s.conversation = conversationID
	s.selected = true
	s.messages = nil
	s.mu.Unlock()

	err := s.refresh(ctx, gen, conversationID)

	s.mu.Lock()
	if s.generation == gen {
		pollCtx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		s.stopPoll, s.pollDone = cancel, done
		go s.poll(pollCtx, gen, conversationID, done)
	}
	s.mu.Unlock()
	return err
}

// Refresh reloads the selected conversation and replaces the displayed list.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	gen, id, selected := s.generation, s.conversation, s.selected
	s.mu.Unlock()
	if !selected {
		return ErrNoSelection
	}
	return s.refresh(ctx, gen, id)
}

func (s *Synchronizer) refresh(ctx context.Context, gen uint64, conversationID models.ID) error {
	msgs, err := s.backend.GetMessagesForConversation(ctx, conversationID)
	if err != nil {
		s.log.Warn("load messages failed", "conversation_id", conversationID, "error", err)
		return err
	}
	sortMessages(msgs)

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return nil
	}
	s.applyLocked(msgs)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.emitMessages(conversationID, snapshot)
	return nil
}

func (s *Synchronizer) poll(ctx context.Context, gen uint64, conversationID models.ID, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(gen, conversationID)
		}
	}
}

// tick fetches once and applies the result only if it holds a message the
// display does not have yet. In-flight requests are never aborted; a
// result for a stale generation is dropped instead.
func (s *Synchronizer) tick(gen uint64, conversationID models.ID) {
	msgs, err := s.backend.GetMessagesForConversation(context.Background(), conversationID)
	if err != nil {
		s.log.Debug("poll failed", "conversation_id", conversationID, "error", err)
		return
	}
	if len(msgs) == 0 {
		return
	}
	sortMessages(msgs)

	s.mu.Lock()
	if s.generation != gen || !s.hasNewLocked(msgs) {
		s.mu.Unlock()
		return
	}
	s.applyLocked(msgs)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.inPollHook.Store(true)
	defer s.inPollHook.Store(false)
	s.emitMessages(conversationID, snapshot)
	if s.hooks.Polled != nil {
		s.hooks.Polled(conversationID, msgs[len(msgs)-1])
	}
}

// hasNewLocked reports whether fetched contains a backend id that is not
// displayed. Messages are append-only, so this is true exactly when the
// conversation grew.
func (s *Synchronizer) hasNewLocked(fetched []models.Message) bool {
	shown := make(map[models.ID]struct{}, len(s.messages))
	for _, m := range s.messages {
		if !m.Local() {
			shown[m.ID] = struct{}{}
		}
	}
	for _, m := range fetched {
		if _, ok := shown[m.ID]; !ok {
			return true
		}
	}
	return false
}

func (s *Synchronizer) showsLocked(id models.ID) bool {
	for _, m := range s.messages {
		if !m.Local() && m.ID == id {
			return true
		}
	}
	return false
}

// applyLocked replaces the backend rows with fetched. Optimistic rows
// survive unless the message they stand for is now in fetched.
func (s *Synchronizer) applyLocked(fetched []models.Message) {
	confirmed := make(map[models.ID]struct{}, len(fetched))
	for _, m := range fetched {
		confirmed[m.ID] = struct{}{}
	}

	next := toDisplay(fetched, s.session.UserID)
	for _, m := range s.messages {
		if !m.Local() {
			continue
		}
		if _, ok := confirmed[m.ConfirmedID]; ok && m.ConfirmedID != 0 {
			continue
		}
		next = append(next, m)
	}
	s.messages = next
}

// Send shows text immediately as the user's own message and then appends
// it on the backend. A failed append raises a notice and marks the row
// Failed; the row itself stays.
func (s *Synchronizer) Send(ctx context.Context, text string) (DisplayMessage, error) {
	if strings.TrimSpace(text) == "" {
		return DisplayMessage{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if !s.selected {
		s.mu.Unlock()
		return DisplayMessage{}, ErrNoSelection
	}
	gen, conversationID := s.generation, s.conversation
	s.nextLocal++
	local := DisplayMessage{
		LocalID: s.nextLocal,
		Author:  Mine,
		Text:    text,
		Time:    s.now(),
		Pending: true,
	}
	s.messages = append(s.messages, local)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.emitMessages(conversationID, snapshot)
	if s.hooks.Sent != nil {
		s.hooks.Sent(conversationID, text)
	}

	id, err := s.backend.SendMessage(ctx, conversationID, s.session.UserID, text)
	var sendErr error
	if err != nil || id == 0 {
		sendErr = &SendError{ConversationID: conversationID, Err: err}
		s.log.Warn("send failed", "conversation_id", conversationID, "error", sendErr)
		s.notifier.Notify(Notice{Kind: NoticeSendFailed, Text: "Failed to send message. Please try again."})
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return local, sendErr
	}
	for i := range s.messages {
		if s.messages[i].LocalID != local.LocalID {
			continue
		}
		s.messages[i].Pending = false
		if sendErr != nil {
			s.messages[i].Failed = true
		} else {
			s.messages[i].ConfirmedID = id
		}
		local = s.messages[i]
		if sendErr == nil && s.showsLocked(id) {
			// a poll already delivered the backend copy
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
		}
		break
	}
	snapshot = s.snapshotLocked()
	s.mu.Unlock()

	s.emitMessages(conversationID, snapshot)
	return local, sendErr
}

// Messages returns a copy of the displayed list.
func (s *Synchronizer) Messages() []DisplayMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Selected returns the current conversation, if any.
func (s *Synchronizer) Selected() (models.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversation, s.selected
}

// Close stops polling and waits for the poll loop to exit. A tick that is
// mid-request finishes its request first; the result is discarded. Called
// from a hook running on the poll loop, Close returns without waiting and
// the loop exits once the hook returns.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	s.generation++
	s.selected = false
	done := s.pollDone
	s.stopLocked()
	s.mu.Unlock()

	if done != nil && !s.inPollHook.Load() {
		<-done
	}
}

func (s *Synchronizer) stopLocked() {
	if s.stopPoll != nil {
		s.stopPoll()
		s.stopPoll = nil
		s.pollDone = nil
	}
}

func (s *Synchronizer) snapshotLocked() []DisplayMessage {
	return append([]DisplayMessage(nil), s.messages...)
}

func (s *Synchronizer) emitMessages(conversationID models.ID, msgs []DisplayMessage) {
	if s.hooks.Messages != nil {
		s.hooks.Messages(conversationID, msgs)
	}
}
