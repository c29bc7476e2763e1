package messaging_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"petreunite-chat/internal/messaging"
	"petreunite-chat/internal/models"
)

var _ = Describe("Resolver", func() {
	var (
		ctx      context.Context
		backend  *mockBackend
		resolver *messaging.Resolver
		alice    models.Session
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend = newMockBackend()
		backend.AddUser(1, "alice")
		backend.AddUser(2, "bob")
		backend.AddUser(3, "carol")
		resolver = messaging.NewResolver(backend)
		alice = models.Session{UserID: 1, Username: "alice"}
	})

	It("returns the same conversation for repeated and reversed lookups", func() {
		first, err := resolver.Resolve(ctx, alice, 2)
		Expect(err).NotTo(HaveOccurred())
		second, err := resolver.Resolve(ctx, alice, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))

		reversed, err := resolver.Resolve(ctx, models.Session{UserID: 2}, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(reversed).To(Equal(first))

		other, err := resolver.Resolve(ctx, alice, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(other).NotTo(Equal(first))
	})

	It("rejects contacting yourself without calling the backend", func() {
		_, err := resolver.Resolve(ctx, alice, 1)
		Expect(err).To(MatchError(messaging.ErrSelfContact))
		Expect(backend.starts()).To(Equal(0))
	})

	It("requires a session", func() {
		_, err := resolver.Resolve(ctx, models.Session{}, 2)
		Expect(err).To(MatchError(messaging.ErrNotAuthenticated))
	})

	It("surfaces a backend refusal as a ResolutionError", func() {
		_, err := resolver.Resolve(ctx, alice, 99)
		var resErr *messaging.ResolutionError
		Expect(errors.As(err, &resErr)).To(BeTrue())
		Expect(resErr.Reason).To(Equal("user not found"))
	})

	It("wraps transport failures", func() {
		boom := errors.New("connection refused")
		backend.startFn = func(context.Context, models.ID, models.ID) (models.StartResult, error) {
			return models.StartResult{}, boom
		}
		_, err := resolver.Resolve(ctx, alice, 2)
		Expect(err).To(MatchError(boom))
		var resErr *messaging.ResolutionError
		Expect(errors.As(err, &resErr)).To(BeFalse())
	})
})

var _ = Describe("Greeter", func() {
	var (
		ctx     context.Context
		backend *mockBackend
		greeter *messaging.Greeter
		alice   models.Session
		convo   models.ID
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend = newMockBackend()
		backend.AddUser(1, "alice")
		backend.AddUser(2, "bob")
		greeter = messaging.NewGreeter(backend)
		alice = models.Session{UserID: 1}
		convo = backend.mustStart(1, 2)
	})

	It("greets an empty conversation exactly once", func() {
		sent, err := greeter.EnsureGreeting(ctx, alice, convo, 7)
		Expect(err).NotTo(HaveOccurred())
		Expect(sent).To(BeTrue())

		sent, err = greeter.EnsureGreeting(ctx, alice, convo, 7)
		Expect(err).NotTo(HaveOccurred())
		Expect(sent).To(BeFalse())

		msgs, _ := backend.MemoryChatService.GetMessagesForConversation(ctx, convo)
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].SenderID).To(Equal(models.ID(1)))
		Expect(msgs[0].Content).To(Equal(messaging.GreetingText(7)))
		Expect(msgs[0].Content).To(ContainSubstring("(ID: 7)"))
	})

	It("sends nothing when the other side already wrote", func() {
		backend.mustSend(convo, 2, "hi there")
		sent, err := greeter.EnsureGreeting(ctx, alice, convo, 7)
		Expect(err).NotTo(HaveOccurred())
		Expect(sent).To(BeFalse())
		Expect(backend.sends()).To(Equal(0))
	})

	It("reports the zero id as a send error", func() {
		backend.setSendFn(func(context.Context, models.ID, models.ID, string) (models.ID, error) {
			return 0, nil
		})
		_, err := greeter.EnsureGreeting(ctx, alice, convo, 7)
		var sendErr *messaging.SendError
		Expect(errors.As(err, &sendErr)).To(BeTrue())
		Expect(sendErr.ConversationID).To(Equal(convo))
	})
})

var _ = Describe("Contact", func() {
	var (
		ctx      context.Context
		backend  *mockBackend
		notices  *noticeRecorder
		contact  *messaging.Contact
		alice    models.Session
		bobsPost models.PetPost
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend = newMockBackend()
		backend.AddUser(1, "alice")
		backend.AddUser(2, "bob")
		notices = &noticeRecorder{}
		contact = messaging.NewContact(backend, notices, nil)
		alice = models.Session{UserID: 1, Username: "alice"}
		bobsPost = models.PetPost{ID: 7, UserID: 2}
	})

	It("greets on first contact and not on the second", func() {
		first, err := contact.Start(ctx, alice, bobsPost)
		Expect(err).NotTo(HaveOccurred())

		second, err := contact.Start(ctx, alice, bobsPost)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))

		msgs, _ := backend.MemoryChatService.GetMessagesForConversation(ctx, first)
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].SenderID).To(Equal(models.ID(1)))
		Expect(backend.sends()).To(Equal(1))
		Expect(notices.all()).To(BeEmpty())
	})

	It("refuses your own post with a notice and no backend call", func() {
		_, err := contact.Start(ctx, models.Session{UserID: 2}, bobsPost)
		Expect(err).To(MatchError(messaging.ErrSelfContact))
		Expect(backend.starts()).To(Equal(0))
		Expect(notices.kinds()).To(Equal([]messaging.NoticeKind{messaging.NoticeSelfContact}))
	})

	It("stops after a backend refusal without sending", func() {
		backend.startFn = func(context.Context, models.ID, models.ID) (models.StartResult, error) {
			return models.StartErr("owner blocked contact"), nil
		}
		_, err := contact.Start(ctx, alice, bobsPost)
		Expect(err).To(HaveOccurred())
		Expect(backend.sends()).To(Equal(0))
		Expect(backend.messageFetches(1)).To(Equal(0))
		Expect(notices.all()).To(ConsistOf(messaging.Notice{
			Kind: messaging.NoticeResolutionFailed,
			Text: "Failed to start conversation: owner blocked contact",
		}))
	})

	It("notifies when the greeting cannot be checked", func() {
		backend.setMessagesFn(func(context.Context, models.ID) ([]models.Message, error) {
			return nil, errors.New("timeout")
		})
		_, err := contact.Start(ctx, alice, bobsPost)
		Expect(err).To(HaveOccurred())
		Expect(backend.sends()).To(Equal(0))
		Expect(notices.kinds()).To(Equal([]messaging.NoticeKind{messaging.NoticeResolutionFailed}))
	})
})
