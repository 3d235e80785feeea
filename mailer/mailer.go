package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

var ErrNoRecipient = errors.New("email recipient is required")

type Config struct {
	APIKey    string
	FromEmail string
	FromName  string
	AppURL    string
	Timeout   time.Duration
}

// Message is one transactional email. Body renders the HTML part.
type Message struct {
	ToEmail  string
	ToName   string
	Subject  string
	Text     string
	Body     templ.Component
	Category string
}

// Mailer sends transactional email through SendGrid. Without an API key it
// logs and drops messages, which keeps local development quiet.
type Mailer struct {
	client  *sendgrid.Client
	from    *mail.Email
	appURL  string
	timeout time.Duration
	wg      sync.WaitGroup
}

func New(cfg Config) *Mailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	m := &Mailer{
		from:    mail.NewEmail(cfg.FromName, cfg.FromEmail),
		appURL:  strings.TrimRight(cfg.AppURL, "/"),
		timeout: cfg.Timeout,
	}
	if cfg.APIKey != "" {
		m.client = sendgrid.NewSendClient(cfg.APIKey)
	}
	return m
}

// Enabled reports whether messages actually leave the process.
func (m *Mailer) Enabled() bool {
	return m.client != nil
}

// Send renders and delivers msg, blocking until SendGrid answers.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if msg.ToEmail == "" {
		return ErrNoRecipient
	}

	html := ""
	if msg.Body != nil {
		var buf bytes.Buffer
		if err := msg.Body.Render(ctx, &buf); err != nil {
			return fmt.Errorf("failed to render email body: %w", err)
		}
		html = buf.String()
	}

	if !m.Enabled() {
		slog.Debug("Email delivery disabled, dropping message", "to", msg.ToEmail, "subject", msg.Subject)
		return nil
	}

	email := mail.NewSingleEmail(m.from, msg.Subject, mail.NewEmail(msg.ToName, msg.ToEmail), msg.Text, html)
	if msg.Category != "" {
		email.AddCategories(msg.Category)
	}

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, resp.Body)
	}

	slog.Info("Email sent", "to", msg.ToEmail, "category", msg.Category, "status", resp.StatusCode)
	return nil
}

// SendAsync delivers msg in the background. Failures are logged only.
func (m *Mailer) SendAsync(msg Message) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		if err := m.Send(ctx, msg); err != nil {
			slog.Warn("Failed to send email", "to", msg.ToEmail, "subject", msg.Subject, "error", err)
		}
	}()
}

// Close waits for in-flight background sends.
func (m *Mailer) Close() {
	m.wg.Wait()
}
