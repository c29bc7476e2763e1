package messaging

import (
	"fmt"
	"sort"
	"time"

	"petreunite-chat/internal/models"
)

type Author string

const (
	Mine   Author = "mine"
	Theirs Author = "theirs"
)

// Classify tags a message by comparing sender and current user
// numerically. Either side may be a native number or a numeric string.
func Classify(senderID, currentUserID any) Author {
	if models.SameID(senderID, currentUserID) {
		return Mine
	}
	return Theirs
}

// DisplayMessage is one rendered row. Backend messages carry ID; a local
// optimistic entry has LocalID set instead and, once the append succeeds,
// ConfirmedID.
type DisplayMessage struct {
	ID          models.ID
	LocalID     uint64
	ConfirmedID models.ID
	Author      Author
	Text        string
	Time        time.Time
	Pending     bool
	Failed      bool
}

// Local reports whether the row is an optimistic placeholder.
func (m DisplayMessage) Local() bool { return m.LocalID != 0 }

// Key is unique across backend and local rows.
func (m DisplayMessage) Key() string {
	if m.Local() {
		return fmt.Sprintf("local-%d", m.LocalID)
	}
	return "msg-" + m.ID.String()
}

func toDisplay(msgs []models.Message, currentUserID models.ID) []DisplayMessage {
	out := make([]DisplayMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, DisplayMessage{
			ID:     m.ID,
			Author: Classify(m.SenderID, currentUserID),
			Text:   m.Content,
			Time:   FromNanos(m.Timestamp),
		})
	}
	return out
}

// sortMessages orders by timestamp then id, keeping backend order on ties.
func sortMessages(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Less(msgs[j]) })
}
