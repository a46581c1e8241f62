package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cinematch/cinematch/pkg/queue"
)

type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`
	ReplyTo string `json:"reply_to,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ResendClient delivers mail through the Resend HTTP API.
type ResendClient struct {
	apiKey string
	apiURL string
	http   *http.Client
}

func NewResendClient(apiKey, apiURL string) *ResendClient {
	return &ResendClient{
		apiKey: apiKey,
		apiURL: apiURL,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *ResendClient) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mail provider returned status %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}

type Publisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// Outbox hands mail to the queue; the worker process does the delivery.
type Outbox struct {
	producer Publisher
}

func NewOutbox(producer Publisher) *Outbox {
	return &Outbox{producer: producer}
}

func (o *Outbox) Send(ctx context.Context, msg Message) error {
	event, err := queue.NewEvent(queue.EventMailRequested, msg)
	if err != nil {
		return err
	}
	if err := o.producer.Publish(ctx, uuid.NewString(), event); err != nil {
		return fmt.Errorf("failed to enqueue mail: %w", err)
	}
	return nil
}

// Composer builds the application's outgoing messages.
type Composer struct {
	from        string
	adminEmail  string
	frontendURL string
}

func NewComposer(domain, adminEmail, frontendURL string) *Composer {
	return &Composer{
		from:        fmt.Sprintf("Admin <noreply@%s>", domain),
		adminEmail:  adminEmail,
		frontendURL: frontendURL,
	}
}

func (c *Composer) Activation(to, token string) Message {
	link := fmt.Sprintf("%s/activate/%s", c.frontendURL, token)
	return Message{
		From:    c.from,
		To:      to,
		Subject: "Please activate your account",
		HTML: fmt.Sprintf(`<p>Thank you for signing up! Please click the link below to activate your account:</p>
<a href="%s">Activate account</a>`, link),
	}
}

func (c *Composer) PasswordReset(to, token string) Message {
	link := fmt.Sprintf("%s/reset-password/%s", c.frontendURL, token)
	return Message{
		From:    c.from,
		To:      to,
		Subject: "Reset your password",
		HTML: fmt.Sprintf(`<p>You've requested to reset your password, please click the link below to reset:</p>
<a href="%s">Reset password</a>`, link),
	}
}

func (c *Composer) Contact(name, email, message string) Message {
	return Message{
		From:    c.from,
		To:      c.adminEmail,
		Subject: "New message from contact form",
		Text:    fmt.Sprintf("Name: %s\nEmail: %s\nMessage: %s", name, email, message),
		ReplyTo: email,
	}
}
