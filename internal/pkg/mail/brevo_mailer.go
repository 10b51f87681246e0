package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fxpiphub/signalhub/internal/pkg/env"
)

const defaultBrevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// BrevoMailer sends transactional email through the Brevo API. Send failures
// are returned to the caller: the welcome/cancellation email is the only
// notification channel to the subscriber, so the webhook pipeline treats a
// failed send as a retryable event failure.
type BrevoMailer struct {
	APIKey    string
	FromEmail string
	FromName  string
	Endpoint  string

	HTTPClient *http.Client
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendRequest struct {
	Sender      emailAddress   `json:"sender"`
	To          []emailAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
	TextContent string         `json:"textContent"`
}

func NewBrevoMailer(apiKey, fromEmail, fromName string) *BrevoMailer {
	return &BrevoMailer{
		APIKey:    strings.TrimSpace(apiKey),
		FromEmail: strings.TrimSpace(fromEmail),
		FromName:  strings.TrimSpace(fromName),
		Endpoint:  defaultBrevoEndpoint,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func NewBrevoMailerFromEnv() *BrevoMailer {
	return NewBrevoMailer(
		env.GetEnv("BREVO_API_KEY", ""),
		env.GetEnv("MAIL_FROM_EMAIL", "signals@fxpiphub.com"),
		env.GetEnv("MAIL_FROM_NAME", "FX Pip Hub Signals"),
	)
}

// SendWelcome delivers the onboarding email with the Telegram invite link.
func (m *BrevoMailer) SendWelcome(ctx context.Context, to, inviteLink string) error {
	subject := "Welcome to FX Pip Hub Signals"
	html := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<h1 style="color: #1a1a2e;">Welcome aboard!</h1>
			<p>Your signals subscription is active. Join the private Telegram channel here:</p>
			<p style="margin: 24px 0;">
				<a href="%s" style="background-color: #0f3460; color: #ffffff; padding: 12px 24px; border-radius: 6px; text-decoration: none;">Join the Telegram channel</a>
			</p>
			<p style="color: #666;">The invite link is personal, please do not share it.</p>
		</div>
	`, inviteLink)
	text := fmt.Sprintf("Welcome aboard!\n\nYour signals subscription is active. Join the private Telegram channel here: %s\n\nThe invite link is personal, please do not share it.\n", inviteLink)

	return m.send(ctx, to, subject, html, text)
}

// SendCancellation delivers the subscription-ended email.
func (m *BrevoMailer) SendCancellation(ctx context.Context, to string) error {
	subject := "Your FX Pip Hub Signals subscription has ended"
	html := `
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<h1 style="color: #1a1a2e;">Sorry to see you go</h1>
			<p>Your signals subscription has ended and your Telegram channel access has been removed.</p>
			<p>You can resubscribe any time from your dashboard to get back in.</p>
		</div>
	`
	text := "Sorry to see you go.\n\nYour signals subscription has ended and your Telegram channel access has been removed.\nYou can resubscribe any time from your dashboard to get back in.\n"

	return m.send(ctx, to, subject, html, text)
}

func (m *BrevoMailer) send(ctx context.Context, to, subject, html, text string) error {
	payload := sendRequest{
		Sender:      emailAddress{Email: m.FromEmail, Name: m.FromName},
		To:          []emailAddress{{Email: to}},
		Subject:     subject,
		HTMLContent: html,
		TextContent: text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", m.APIKey)

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("brevo send to %s failed: status=%d body=%s", to, resp.StatusCode, string(raw))
	}
	return nil
}
