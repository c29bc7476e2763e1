package messaging

import (
	"context"
	"sync"
	"time"

	"petreunite-chat/internal/models"
)

// Inbox is the messages view: the summary list, the selection and the
// synchronizer for the selected conversation.
type Inbox struct {
	session models.Session
	builder *ListBuilder
	syncer  *Synchronizer
	now     func() time.Time

	onChange func()

	mu        sync.Mutex
	summaries []Summary
}

// NewInbox requires an authenticated session. onChange, if set, is called
// whenever summaries or messages change.
func NewInbox(backend Backend, session models.Session, cfg Config, onChange func()) (*Inbox, error) {
	if !session.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	cfg = cfg.withDefaults()
	in := &Inbox{
		session:  session,
		builder:  NewListBuilder(backend, cfg),
		now:      cfg.Now,
		onChange: onChange,
	}
	in.syncer = NewSynchronizer(backend, session, cfg, Hooks{
		Messages: func(models.ID, []DisplayMessage) { in.changed() },
		Sent: func(id models.ID, text string) {
			in.patch(id, text, JustNowText)
		},
		Polled: func(id models.ID, last models.Message) {
			in.patch(id, last.Content, RelativeTime(FromNanos(last.Timestamp), in.now()))
		},
	})
	return in, nil
}

// Load builds the summary list and opens a conversation: target when
// given, else the first listed one.
func (in *Inbox) Load(ctx context.Context, target *models.ID) error {
	summaries, err := in.builder.Build(ctx, in.session.UserID)
	if err != nil {
		in.mu.Lock()
		in.summaries = nil
		in.mu.Unlock()
		in.changed()
		return err
	}

	in.mu.Lock()
	in.summaries = summaries
	in.mu.Unlock()
	in.changed()

	id, ok := SelectTarget(summaries, target)
	if !ok {
		return nil
	}
	return in.syncer.Select(ctx, id)
}

// Select opens conversationID, stopping the previous conversation's polling.
func (in *Inbox) Select(ctx context.Context, conversationID models.ID) error {
	return in.syncer.Select(ctx, conversationID)
}

// Send posts text to the selected conversation.
func (in *Inbox) Send(ctx context.Context, text string) (DisplayMessage, error) {
	return in.syncer.Send(ctx, text)
}

func (in *Inbox) Selected() (models.ID, bool) {
	return in.syncer.Selected()
}

func (in *Inbox) Messages() []DisplayMessage {
	return in.syncer.Messages()
}

func (in *Inbox) Summaries() []Summary {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]Summary(nil), in.summaries...)
}

// Summary returns the summary for conversationID.
func (in *Inbox) Summary(conversationID models.ID) (Summary, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for _, s := range in.summaries {
		if s.ConversationID == conversationID {
			return s, true
		}
	}
	return Summary{}, false
}

// Filter returns the summaries whose counterpart name contains term,
// ignoring case.
func (in *Inbox) Filter(term string) []Summary {
	in.mu.Lock()
	defer in.mu.Unlock()
	return FilterSummaries(in.summaries, term)
}

// Close stops polling.
func (in *Inbox) Close() {
	in.syncer.Close()
}

// patch updates one summary in place instead of rebuilding the list.
func (in *Inbox) patch(conversationID models.ID, text, timestamp string) {
	in.mu.Lock()
	found := false
	for i := range in.summaries {
		if in.summaries[i].ConversationID == conversationID {
			in.summaries[i].LastMessage = text
			in.summaries[i].Timestamp = timestamp
			found = true
			break
		}
	}
	in.mu.Unlock()
	if found {
		in.changed()
	}
}

func (in *Inbox) changed() {
	if in.onChange != nil {
		in.onChange()
	}
}
