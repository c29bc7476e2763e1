package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"petreunite-chat/internal/client"
	"petreunite-chat/internal/messaging"
	"petreunite-chat/internal/models"
)

// screen prints each message once, in arrival order.
type screen struct {
	mu      sync.Mutex
	printed map[string]bool
	inbox   *messaging.Inbox
}

func (s *screen) reset() {
	s.mu.Lock()
	s.printed = make(map[string]bool)
	s.mu.Unlock()
}

func (s *screen) render() {
	if s.inbox == nil {
		return
	}
	msgs := s.inbox.Messages()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		key := m.Key()
		if m.Local() && m.ConfirmedID != 0 {
			key = "msg-" + m.ConfirmedID.String()
		}
		if s.printed[key] {
			continue
		}
		s.printed[key] = true
		prefix := "   "
		if m.Author == messaging.Mine {
			prefix = "me "
		}
		fmt.Printf("%s[%s] %s\n", prefix, messaging.ClockTime(m.Time), m.Text)
	}
}

func runChat(ctx context.Context, rpc *client.Client, session models.Session, cfg messaging.Config, opts options) error {
	scr := &screen{printed: make(map[string]bool)}
	inbox, err := messaging.NewInbox(rpc, session, cfg, scr.render)
	if err != nil {
		return err
	}
	scr.inbox = inbox
	defer inbox.Close()

	var target *models.ID
	if opts.convoID != 0 {
		id := models.ID(opts.convoID)
		target = &id
	}
	if err := inbox.Load(ctx, target); err != nil {
		return err
	}

	for _, s := range inbox.Summaries() {
		printSummary(s)
	}
	id, ok := inbox.Selected()
	if !ok {
		fmt.Println("No conversations yet. Start a conversation by contacting a pet owner.")
		return nil
	}
	printHeader(inbox, id)
	scr.render()

	lines := make(chan string)
	go func() {
		defer close(lines)
		in := bufio.NewScanner(os.Stdin)
		for in.Scan() {
			lines <- in.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			done, err := handleLine(ctx, inbox, scr, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "! %v\n", err)
			}
			if done {
				return nil
			}
		}
	}
}

func handleLine(ctx context.Context, inbox *messaging.Inbox, scr *screen, line string) (bool, error) {
	switch {
	case line == "/quit":
		return true, nil
	case line == "/list":
		for _, s := range inbox.Summaries() {
			printSummary(s)
		}
		return false, nil
	case strings.HasPrefix(line, "/find "):
		for _, s := range inbox.Filter(strings.TrimPrefix(line, "/find ")) {
			printSummary(s)
		}
		return false, nil
	case strings.HasPrefix(line, "/open "):
		id, err := models.ParseID(strings.TrimSpace(strings.TrimPrefix(line, "/open ")))
		if err != nil {
			return false, err
		}
		scr.reset()
		printHeader(inbox, id)
		return false, inbox.Select(ctx, id)
	case strings.TrimSpace(line) == "":
		return false, nil
	default:
		// failures surface through the notifier
		_, _ = inbox.Send(ctx, line)
		return false, nil
	}
}

func printHeader(inbox *messaging.Inbox, id models.ID) {
	name := "Unknown Contact"
	if s, ok := inbox.Summary(id); ok {
		name = s.Name
	}
	fmt.Printf("--- %s (conversation %d) ---\n", name, id)
}

func printSummary(s messaging.Summary) {
	fmt.Printf("%5d  %-20s %-10s %s\n", s.ConversationID, s.Name, s.Timestamp, s.LastMessage)
}
