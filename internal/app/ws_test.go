package app_test

import (
	"context"
	"errors"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"

	"petreunite-chat/internal/app"
	"petreunite-chat/internal/client"
	"petreunite-chat/internal/handlers"
	"petreunite-chat/internal/models"
	"petreunite-chat/internal/services"
)

var _ = Describe("websocket nudges", func() {
	var (
		ctx    context.Context
		server *fiber.App
		addr   string
		rpc    *client.Client
		conns  []*websocket.Conn
	)

	BeforeEach(func() {
		ctx = context.Background()
		store := services.NewMemoryChatService()
		server = app.New(store, services.NewUserService(store, "test-secret"), handlers.NewHub())

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		go func() { _ = server.Listener(ln) }()
		addr = ln.Addr().String()
		rpc = client.New("http://"+addr, client.WithTimeout(2*time.Second))
		conns = nil
	})

	AfterEach(func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
		Expect(server.Shutdown()).To(Succeed())
	})

	signUp := func(name string) models.Session {
		_, err := rpc.Register(ctx, name, "pw")
		Expect(err).NotTo(HaveOccurred())
		s, err := rpc.Login(ctx, name, "pw")
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	// dial connects and consumes the welcome, after which the hub knows the connection.
	dial := func(s models.Session) *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws?access_token="+s.Token, nil)
		Expect(err).NotTo(HaveOccurred())
		conns = append(conns, conn)

		var welcome map[string]string
		Expect(conn.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
		Expect(conn.ReadJSON(&welcome)).To(Succeed())
		Expect(welcome).To(HaveKeyWithValue("event", "connected"))
		return conn
	}

	It("refuses a connection without a token", func() {
		_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
		Expect(err).To(HaveOccurred())
		Expect(resp).NotTo(BeNil())
		Expect(resp.StatusCode).To(Equal(fiber.StatusUnauthorized))
	})

	It("answers a ping", func() {
		conn := dial(signUp("alice"))
		Expect(conn.WriteJSON(map[string]string{"event": "ping"})).To(Succeed())

		var pong map[string]string
		Expect(conn.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
		Expect(conn.ReadJSON(&pong)).To(Succeed())
		Expect(pong).To(HaveKeyWithValue("event", "pong"))
	})

	It("tells both participants about a new message and nobody else", func() {
		alice, bob, carol := signUp("alice"), signUp("bob"), signUp("carol")
		aliceWS, bobWS, carolWS := dial(alice), dial(bob), dial(carol)

		res, err := rpc.WithSession(alice).StartConversation(ctx, alice.UserID, bob.UserID)
		Expect(err).NotTo(HaveOccurred())
		convo := *res.Ok
		msgID, err := rpc.WithSession(alice).SendMessage(ctx, convo, alice.UserID, "saw your cat on Elm St")
		Expect(err).NotTo(HaveOccurred())

		for _, conn := range []*websocket.Conn{aliceWS, bobWS} {
			var event models.NewMessageEvent
			Expect(conn.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
			Expect(conn.ReadJSON(&event)).To(Succeed())
			Expect(event.Event).To(Equal("new_message"))
			Expect(event.ConversationID).To(Equal(convo))
			Expect(event.MessageID).To(Equal(msgID))
			Expect(event.SenderID).To(Equal(alice.UserID))
			Expect(event.Text).To(Equal("saw your cat on Elm St"))
		}

		Expect(carolWS.SetReadDeadline(time.Now().Add(300 * time.Millisecond))).To(Succeed())
		_, _, err = carolWS.ReadMessage()
		var netErr net.Error
		Expect(errors.As(err, &netErr)).To(BeTrue())
		Expect(netErr.Timeout()).To(BeTrue())
	})
})
