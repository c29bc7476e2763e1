package services_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/golang-jwt/jwt/v5"

	"petreunite-chat/internal/models"
	"petreunite-chat/internal/services"
)

var _ = Describe("UserService", func() {
	var (
		ctx   context.Context
		users *services.UserService
	)

	BeforeEach(func() {
		ctx = context.Background()
		users = services.NewUserService(services.NewMemoryChatService(), "test-secret")
	})

	It("registers and logs in with a token naming the user", func() {
		u, err := users.Register(ctx, models.RegisterRequest{Username: " alice ", Password: "pw"})
		Expect(err).NotTo(HaveOccurred())
		Expect(u.Username).To(Equal("alice"))
		Expect(u.PasswordHash).NotTo(Equal("pw"))

		auth, err := users.Login(ctx, models.LoginRequest{Username: "alice", Password: "pw"})
		Expect(err).NotTo(HaveOccurred())
		Expect(auth.UserID).To(Equal(u.ID))
		Expect(auth.Username).To(Equal("alice"))

		id, name, err := users.ValidateToken(auth.Token)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal(u.ID))
		Expect(name).To(Equal("alice"))
	})

	It("refuses missing fields and duplicate names", func() {
		_, err := users.Register(ctx, models.RegisterRequest{Username: "alice"})
		Expect(err).To(HaveOccurred())

		_, err = users.Register(ctx, models.RegisterRequest{Username: "alice", Password: "pw"})
		Expect(err).NotTo(HaveOccurred())
		_, err = users.Register(ctx, models.RegisterRequest{Username: "alice", Password: "pw2"})
		Expect(err).To(MatchError(services.ErrUserExists))
	})

	It("hides whether the user or the password was wrong", func() {
		_, err := users.Register(ctx, models.RegisterRequest{Username: "alice", Password: "pw"})
		Expect(err).NotTo(HaveOccurred())

		_, err = users.Login(ctx, models.LoginRequest{Username: "alice", Password: "nope"})
		Expect(err).To(MatchError(services.ErrInvalidCredentials))
		_, err = users.Login(ctx, models.LoginRequest{Username: "bob", Password: "pw"})
		Expect(err).To(MatchError(services.ErrInvalidCredentials))
	})

	It("rejects tokens signed with another secret or expired", func() {
		other := services.NewUserService(services.NewMemoryChatService(), "other-secret")
		token, err := other.GenerateJWT(1, "alice")
		Expect(err).NotTo(HaveOccurred())
		_, _, err = users.ValidateToken(token)
		Expect(err).To(HaveOccurred())

		expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": 1,
			"exp":     time.Now().Add(-time.Hour).Unix(),
		})
		signed, err := expired.SignedString([]byte("test-secret"))
		Expect(err).NotTo(HaveOccurred())
		_, _, err = users.ValidateToken(signed)
		Expect(err).To(HaveOccurred())
	})
})
