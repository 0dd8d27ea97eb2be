package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"diasporan-backend/internal/domain"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender   `json:"sender"`
	To          []BrevoTo     `json:"to"`
	Subject     string        `json:"subject"`
	HTMLContent string        `json:"htmlContent"`
	ReplyTo     *BrevoReplyTo `json:"replyTo,omitempty"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type BrevoReplyTo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Sender sends booking lifecycle emails. Nil = no-op.
type Sender interface {
	SendBookingConfirmation(ctx context.Context, b *domain.Booking, l *domain.Listing) error
	SendBookingCancelled(ctx context.Context, b *domain.Booking, l *domain.Listing) error
}

// BrevoClient sends emails via the Brevo (Sendinblue) transactional API.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	BaseURL  string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@diasporan.app"
}

func (c *BrevoClient) endpoint() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return brevoAPI
}

// send sends one email via Brevo API.
func (c *BrevoClient) send(ctx context.Context, toEmail, subject, html string) error {
	if c.APIKey == "" || toEmail == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "Diasporan"},
		To:          []BrevoTo{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: html,
		ReplyTo:     &BrevoReplyTo{Email: "support@diasporan.app", Name: "Diasporan Support"},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

func (c *BrevoClient) SendBookingConfirmation(ctx context.Context, b *domain.Booking, l *domain.Listing) error {
	subject := fmt.Sprintf("Booking received: %s", l.Title)
	if b.Status == domain.BookingConfirmed {
		subject = fmt.Sprintf("Booking confirmed: %s", l.Title)
	}
	return c.send(ctx, b.ContactEmail, subject, EmailLayout(confirmationContent(b, l)))
}

func (c *BrevoClient) SendBookingCancelled(ctx context.Context, b *domain.Booking, l *domain.Listing) error {
	return c.send(ctx, b.ContactEmail, fmt.Sprintf("Booking cancelled: %s", l.Title), EmailLayout(cancellationContent(b, l)))
}

func confirmationContent(b *domain.Booking, l *domain.Listing) string {
	return fmt.Sprintf(`
    <h1>Your booking for %s</h1>
    <p>Status: <strong>%s</strong></p>
    <p>Date: %s<br>Guests: %d<br>Total: %.2f %s</p>
    <p>Booking reference: <code>%s</code></p>
    <p>— The Diasporan Team</p>
`, EscapeHTML(l.Title), b.Status, b.StartDate.Format("Mon 2 Jan 2006"), b.Guests, b.TotalPrice, EscapeHTML(b.Currency), b.ID)
}

func cancellationContent(b *domain.Booking, l *domain.Listing) string {
	reason := "at your request"
	if b.CancellationReason != nil && *b.CancellationReason == domain.ReasonListingRemoved {
		reason = "because the listing is no longer offered"
	}
	return fmt.Sprintf(`
    <h1>Booking cancelled</h1>
    <p>Your booking for <strong>%s</strong> on %s was cancelled %s.</p>
    <p>Booking reference: <code>%s</code></p>
    <p>— The Diasporan Team</p>
`, EscapeHTML(l.Title), b.StartDate.Format("Mon 2 Jan 2006"), reason, b.ID)
}
