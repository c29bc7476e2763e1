package handlers_test

import (
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"petreunite-chat/internal/handlers"
	"petreunite-chat/internal/models"
)

type fakeConn struct {
	mu      sync.Mutex
	written []interface{}
	fail    bool
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	f.written = append(f.written, v)
	return nil
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

var _ = Describe("Hub", func() {
	var hub *handlers.Hub

	BeforeEach(func() {
		hub = handlers.NewHub()
	})

	It("tracks a user across connections", func() {
		Expect(hub.Register("a", 1, &fakeConn{})).To(BeTrue())
		Expect(hub.Register("b", 1, &fakeConn{})).To(BeFalse())
		Expect(hub.CountUserConnections(1)).To(Equal(2))
		Expect(hub.IsUserOnline(1)).To(BeTrue())

		Expect(hub.Unregister("a")).To(BeFalse())
		Expect(hub.Unregister("b")).To(BeTrue())
		Expect(hub.IsUserOnline(1)).To(BeFalse())
		Expect(hub.Unregister("b")).To(BeFalse())
	})

	It("delivers to every connection of the named users only", func() {
		a1, a2, b, c := &fakeConn{}, &fakeConn{}, &fakeConn{}, &fakeConn{}
		hub.Register("a1", 1, a1)
		hub.Register("a2", 1, a2)
		hub.Register("b", 2, b)
		hub.Register("c", 3, c)

		event := models.NewMessageEvent{Event: "new_message", ConversationID: 5}
		hub.SendToUsers([]models.ID{1, 2}, event)

		Expect(a1.count()).To(Equal(1))
		Expect(a2.count()).To(Equal(1))
		Expect(b.count()).To(Equal(1))
		Expect(c.count()).To(Equal(0))
	})

	It("counts only successful writes", func() {
		hub.Register("ok", 1, &fakeConn{})
		hub.Register("broken", 1, &fakeConn{fail: true})
		Expect(hub.SendToUser(1, "ping")).To(Equal(1))
	})

	It("writes to a single connection", func() {
		conn := &fakeConn{}
		hub.Register("x", 4, conn)
		Expect(hub.SendToConn("x", "welcome")).To(Succeed())
		Expect(hub.SendToConn("missing", "welcome")).To(Succeed())
		Expect(conn.count()).To(Equal(1))
	})

	It("reports a failed write to a single connection", func() {
		hub.Register("broken", 4, &fakeConn{fail: true})
		Expect(hub.SendToConn("broken", "welcome")).To(MatchError("broken pipe"))
	})
})
