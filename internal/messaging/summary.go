package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"petreunite-chat/internal/models"

	"golang.org/x/sync/errgroup"
)

const (
	UnknownUserName = "Unknown User"
	NoMessagesText  = "No messages yet"
	NoDateText      = "No date"
	JustNowText     = "Just now"
	avatarModulus   = 100
)

var (
	errConversationMissing = errors.New("conversation not found")
	errNoCounterpart       = errors.New("conversation has no other participant")
)

// Summary is the display projection of one conversation. Unread is always
// zero; there is no read-state protocol.
type Summary struct {
	ConversationID models.ID
	CounterpartID  models.ID
	Name           string
	Avatar         string
	LastMessage    string
	Timestamp      string
	Unread         int
}

// ListBuilder turns the user's conversation ids into summaries.
type ListBuilder struct {
	backend     Backend
	concurrency int
	avatarBase  string
	now         func() time.Time
	log         *slog.Logger
}

func NewListBuilder(backend Backend, cfg Config) *ListBuilder {
	cfg = cfg.withDefaults()
	return &ListBuilder{
		backend:     backend,
		concurrency: cfg.ListConcurrency,
		avatarBase:  cfg.AvatarBaseURL,
		now:         cfg.Now,
		log:         cfg.Logger.With("component", "list_builder"),
	}
}

// Build lists userID's conversations. Only failing to fetch the id set
// fails the call; a conversation whose detail or messages cannot be
// loaded is left out and the rest are returned in id-set order.
func (b *ListBuilder) Build(ctx context.Context, userID models.ID) ([]Summary, error) {
	ids, err := b.backend.GetConversationsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations for user %d: %w", userID, err)
	}

	results := make([]*Summary, len(ids))
	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			s, err := b.summarize(ctx, userID, id)
			if err != nil {
				b.log.Warn("skipping conversation", "conversation_id", id, "error", err)
				return nil
			}
			results[i] = s
			return nil
		})
	}
	_ = g.Wait()

	summaries := make([]Summary, 0, len(results))
	for _, s := range results {
		if s != nil {
			summaries = append(summaries, *s)
		}
	}
	return summaries, nil
}

func (b *ListBuilder) summarize(ctx context.Context, userID, conversationID models.ID) (*Summary, error) {
	opt, err := b.backend.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	convo, ok := opt.Get()
	if !ok {
		return nil, errConversationMissing
	}
	other, ok := convo.Counterpart(userID)
	if !ok {
		return nil, errNoCounterpart
	}

	// the profile and the messages only depend on the detail
	var (
		name = UnknownUserName
		msgs []models.Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := b.backend.GetUser(gctx, other)
		if err != nil {
			b.log.Debug("counterpart lookup failed", "user_id", other, "error", err)
			return nil
		}
		if user, ok := u.Get(); ok && user.Username != "" {
			name = user.Username
		}
		return nil
	})
	g.Go(func() error {
		var err error
		msgs, err = b.backend.GetMessagesForConversation(gctx, conversationID)
		if err != nil {
			return fmt.Errorf("load messages: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := &Summary{
		ConversationID: conversationID,
		CounterpartID:  other,
		Name:           name,
		Avatar:         b.Avatar(other),
		LastMessage:    NoMessagesText,
		Timestamp:      NoDateText,
	}
	if len(msgs) > 0 {
		sortMessages(msgs)
		last := msgs[len(msgs)-1]
		s.LastMessage = last.Content
		s.Timestamp = RelativeTime(FromNanos(last.Timestamp), b.now())
	}
	return s, nil
}

// Avatar is the placeholder portrait for a user.
func (b *ListBuilder) Avatar(userID models.ID) string {
	n := int64(userID) % avatarModulus
	if n < 0 {
		n = -n
	}
	return fmt.Sprintf("%s%d.jpg", b.avatarBase, n)
}

// FilterSummaries keeps the summaries whose name contains term, ignoring
// case. An empty term keeps everything.
func FilterSummaries(summaries []Summary, term string) []Summary {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]Summary, 0, len(summaries))
	for _, s := range summaries {
		if strings.Contains(strings.ToLower(s.Name), term) {
			out = append(out, s)
		}
	}
	return out
}

// SelectTarget picks the conversation to open after a list was built: an
// externally supplied target always wins, otherwise the first summary.
func SelectTarget(summaries []Summary, target *models.ID) (models.ID, bool) {
	if target != nil {
		return *target, true
	}
	if len(summaries) > 0 {
		return summaries[0].ConversationID, true
	}
	return 0, false
}
