// Package client holds the RPC stubs for the conversation backend. Every
// call is one JSON round trip; optional results are normalized to
// models.Option here so nothing above this package inspects wire shapes.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"petreunite-chat/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const defaultTimeout = 10 * time.Second

// ErrTimeout is returned when the backend does not answer in time.
var ErrTimeout = errors.New("backend request timed out")

// HTTPError is a non-2xx backend answer.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	token   string
	timeout time.Duration
}

type Option func(*Client)

// WithTimeout bounds every request. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithSession returns a copy of the client authenticated as the session.
func (c *Client) WithSession(s models.Session) *Client {
	cp := *c
	cp.token = s.Token
	return &cp
}

func (c *Client) Register(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, fiber.MethodPost, "/api/register", models.RegisterRequest{Username: username, Password: password}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates and returns the session the messaging core runs under.
func (c *Client) Login(ctx context.Context, username, password string) (models.Session, error) {
	var res models.AuthResponse
	if err := c.do(ctx, fiber.MethodPost, "/api/login", models.LoginRequest{Username: username, Password: password}, &res); err != nil {
		return models.Session{}, err
	}
	return models.Session{UserID: res.UserID, Username: res.Username, Token: res.Token}, nil
}

func (c *Client) StartConversation(ctx context.Context, userA, userB models.ID) (models.StartResult, error) {
	var res models.StartResult
	err := c.do(ctx, fiber.MethodPost, "/api/conversations/start", models.StartConversationRequest{UserA: userA, UserB: userB}, &res)
	if err != nil {
		return models.StartResult{}, err
	}
	if res.Ok == nil && res.Err == nil {
		return models.StartResult{}, errors.New("start conversation: empty result")
	}
	return res, nil
}

func (c *Client) GetConversation(ctx context.Context, conversationID models.ID) (models.Option[models.Conversation], error) {
	var convo models.Option[models.Conversation]
	err := c.do(ctx, fiber.MethodGet, "/api/conversations/"+url.PathEscape(conversationID.String()), nil, &convo)
	return convo, err
}

func (c *Client) GetConversationsForUser(ctx context.Context, userID models.ID) ([]models.ID, error) {
	var ids []models.ID
	err := c.do(ctx, fiber.MethodGet, "/api/users/"+url.PathEscape(userID.String())+"/conversations", nil, &ids)
	return ids, err
}

func (c *Client) GetMessagesForConversation(ctx context.Context, conversationID models.ID) ([]models.Message, error) {
	var messages []models.Message
	err := c.do(ctx, fiber.MethodGet, "/api/conversations/"+url.PathEscape(conversationID.String())+"/messages", nil, &messages)
	return messages, err
}

// SendMessage returns the new message id. A zero id with a nil error is
// the backend reporting failure in-band.
func (c *Client) SendMessage(ctx context.Context, conversationID, senderID models.ID, content string) (models.ID, error) {
	var res models.SendMessageResponse
	path := "/api/conversations/" + url.PathEscape(conversationID.String()) + "/messages"
	if err := c.do(ctx, fiber.MethodPost, path, models.SendMessageRequest{SenderID: senderID, Content: content}, &res); err != nil {
		return 0, err
	}
	return res.ID, nil
}

func (c *Client) GetUser(ctx context.Context, userID models.ID) (models.Option[models.User], error) {
	var user models.Option[models.User]
	err := c.do(ctx, fiber.MethodGet, "/api/users/"+url.PathEscape(userID.String()), nil, &user)
	return user, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a := fiber.AcquireAgent()
	req := a.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if c.token != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	if body != nil {
		a.JSON(body)
	}
	a.Timeout(c.timeoutFor(ctx))

	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	// Bytes releases the agent
	status, resp, errs := a.Bytes()
	if len(errs) > 0 {
		err := errors.Join(errs...)
		if errors.Is(err, fasthttp.ErrTimeout) {
			return fmt.Errorf("%s %s: %w", method, path, ErrTimeout)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if status < 200 || status > 299 {
		return &HTTPError{Status: status, Message: errorMessage(resp)}
	}
	if out == nil || len(resp) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func (c *Client) timeoutFor(ctx context.Context) time.Duration {
	d := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			d = left
		}
	}
	if d <= 0 {
		d = time.Millisecond
	}
	return d
}

// errorMessage pulls "error" out of a JSON body, or returns the body as
// text (fiber.NewError answers in plain text).
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}
