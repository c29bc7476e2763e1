package services_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"petreunite-chat/internal/models"
	"petreunite-chat/internal/services"
)

var _ = Describe("MemoryChatService", func() {
	var (
		ctx   context.Context
		store *services.MemoryChatService
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = services.NewMemoryChatService()
		store.AddUser(1, "alice")
		store.AddUser(2, "bob")
		store.AddUser(3, "carol")
	})

	start := func(a, b models.ID) models.ID {
		res, err := store.StartConversation(ctx, a, b)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Err).To(BeNil())
		Expect(res.Ok).NotTo(BeNil())
		return *res.Ok
	}

	Describe("StartConversation", func() {
		It("is idempotent over the unordered pair", func() {
			first := start(1, 2)
			Expect(start(1, 2)).To(Equal(first))
			Expect(start(2, 1)).To(Equal(first))
			Expect(start(1, 3)).NotTo(Equal(first))

			opt, err := store.GetConversation(ctx, first)
			Expect(err).NotTo(HaveOccurred())
			c, ok := opt.Get()
			Expect(ok).To(BeTrue())
			Expect(c.Participants).To(ConsistOf(models.ID(1), models.ID(2)))
		})

		DescribeTable("refuses pairs that cannot talk",
			func(a, b models.ID, reason string) {
				res, err := store.StartConversation(ctx, a, b)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Ok).To(BeNil())
				Expect(res.Err).To(HaveValue(Equal(reason)))
			},
			Entry("self", models.ID(1), models.ID(1), "cannot start a conversation with yourself"),
			Entry("zero id", models.ID(0), models.ID(1), "invalid user id"),
			Entry("unknown user", models.ID(1), models.ID(99), "user not found"),
		)
	})

	Describe("conversation listing", func() {
		It("lists only the user's conversations", func() {
			ab := start(1, 2)
			ac := start(3, 1)
			bc := start(2, 3)

			ids, err := store.GetConversationsForUser(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(Equal([]models.ID{ab, ac}))

			ids, _ = store.GetConversationsForUser(ctx, 2)
			Expect(ids).To(Equal([]models.ID{ab, bc}))
		})

		It("returns an empty list, not nil, for a user without conversations", func() {
			ids, err := store.GetConversationsForUser(ctx, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).NotTo(BeNil())
			Expect(ids).To(BeEmpty())
		})

		It("reports an unknown conversation as absent", func() {
			opt, err := store.GetConversation(ctx, 42)
			Expect(err).NotTo(HaveOccurred())
			Expect(opt.Present()).To(BeFalse())
		})
	})

	Describe("messages", func() {
		var convo models.ID

		BeforeEach(func() {
			fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
			store.SetClock(func() time.Time { return fixed })
			convo = start(1, 2)
		})

		It("appends in order with strictly increasing timestamps", func() {
			first, err := store.SendMessage(ctx, convo, 1, "lost a tabby")
			Expect(err).NotTo(HaveOccurred())
			second, err := store.SendMessage(ctx, convo, 2, "I think I saw her")
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(BeNumerically(">", first))

			msgs, err := store.GetMessagesForConversation(ctx, convo)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Content).To(Equal("lost a tabby"))
			Expect(msgs[1].SenderID).To(Equal(models.ID(2)))
			Expect(msgs[1].Timestamp).To(BeNumerically(">", msgs[0].Timestamp))
			Expect(msgs[0].ConversationID).To(Equal(convo))
		})

		It("returns a copy", func() {
			_, _ = store.SendMessage(ctx, convo, 1, "one")
			msgs, _ := store.GetMessagesForConversation(ctx, convo)
			msgs[0].Content = "changed"

			again, _ := store.GetMessagesForConversation(ctx, convo)
			Expect(again[0].Content).To(Equal("one"))
		})

		It("rejects outsiders and empty text", func() {
			_, err := store.SendMessage(ctx, convo, 3, "hi")
			Expect(err).To(MatchError(services.ErrNotParticipant))

			_, err = store.SendMessage(ctx, convo, 1, "  ")
			Expect(err).To(MatchError(services.ErrEmptyContent))

			_, err = store.SendMessage(ctx, 42, 1, "hi")
			Expect(err).To(MatchError(services.ErrConversationNotFound))

			_, err = store.GetMessagesForConversation(ctx, 42)
			Expect(err).To(MatchError(services.ErrConversationNotFound))
		})
	})

	Describe("users", func() {
		It("never exposes the password hash", func() {
			u, err := store.CreateUser(ctx, "dave", "hash")
			Expect(err).NotTo(HaveOccurred())

			opt, err := store.GetUser(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			got, ok := opt.Get()
			Expect(ok).To(BeTrue())
			Expect(got.Username).To(Equal("dave"))
			Expect(got.PasswordHash).To(BeEmpty())

			found, err := store.FindUserByUsername(ctx, "dave")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.PasswordHash).To(Equal("hash"))
		})

		It("allocates ids after seeded users and refuses duplicates", func() {
			u, err := store.CreateUser(ctx, "dave", "hash")
			Expect(err).NotTo(HaveOccurred())
			Expect(u.ID).To(Equal(models.ID(4)))

			_, err = store.CreateUser(ctx, "alice", "hash")
			Expect(err).To(MatchError(services.ErrUserExists))

			_, err = store.FindUserByUsername(ctx, "nobody")
			Expect(err).To(MatchError(services.ErrUserNotFound))
		})
	})
})
