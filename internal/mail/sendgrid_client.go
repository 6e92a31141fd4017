// Package mail wraps the transactional email transport behind the
// services.Mailer contract.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/feldhof/orders/internal/platform/config"
)

// ErrNotConfigured indicates the transport credential is missing. The client
// fails closed rather than silently dropping mail; this error is fatal and
// never retried.
var ErrNotConfigured = errors.New("mail: transport credential missing")

// TransportError wraps a failed delivery attempt. It is transient from the
// pipeline's point of view: the caller decides whether the surrounding
// handler invocation is retried.
type TransportError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("mail: transport rejected with status %d", e.StatusCode)
}

type sendFunc func(ctx context.Context, message *sgmail.SGMailV3) (*rest.Response, error)

// Client sends notifications through SendGrid. One transport call per
// logical notification; no internal retry.
type Client struct {
	fromAddress string
	fromName    string
	send        sendFunc
}

// ClientOption customises the Client, mainly for tests.
type ClientOption func(*Client)

// WithSendFunc replaces the underlying transport call.
func WithSendFunc(send func(ctx context.Context, message *sgmail.SGMailV3) (*rest.Response, error)) ClientOption {
	return func(c *Client) {
		if send != nil {
			c.send = send
		}
	}
}

// NewClient constructs a SendGrid-backed delivery client. A missing API key
// is not an immediate constructor error: the failure surfaces as
// ErrNotConfigured on the first send so that read-only deployments can still
// start.
func NewClient(cfg config.MailConfig, opts ...ClientOption) *Client {
	client := &Client{
		fromAddress: strings.TrimSpace(cfg.FromAddress),
		fromName:    strings.TrimSpace(cfg.FromName),
	}
	if apiKey := strings.TrimSpace(cfg.APIKey); apiKey != "" {
		sg := sendgrid.NewSendClient(apiKey)
		client.send = func(ctx context.Context, message *sgmail.SGMailV3) (*rest.Response, error) {
			return sg.SendWithContext(ctx, message)
		}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// Send delivers one notification to the given recipients. Misconfiguration is
// checked first and always surfaces as ErrNotConfigured, even when there is
// nothing to deliver. With a configured client, an empty recipient list
// (after trimming empty entries) is an explicit no-op returning an empty
// delivery id, not an error.
func (c *Client) Send(ctx context.Context, recipients []string, subject, htmlBody string) (string, error) {
	if c == nil || c.send == nil {
		return "", ErrNotConfigured
	}
	if c.fromAddress == "" {
		return "", fmt.Errorf("%w: from address is not set", ErrNotConfigured)
	}

	cleaned := make([]string, 0, len(recipients))
	for _, addr := range recipients {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return "", nil
	}

	message := sgmail.NewV3Mail()
	message.SetFrom(sgmail.NewEmail(c.fromName, c.fromAddress))
	message.Subject = subject

	personalization := sgmail.NewPersonalization()
	for _, addr := range cleaned {
		personalization.AddTos(sgmail.NewEmail("", addr))
	}
	message.AddPersonalizations(personalization)
	message.AddContent(sgmail.NewContent("text/html", htmlBody))

	response, err := c.send(ctx, message)
	if err != nil {
		return "", fmt.Errorf("mail: send: %w", err)
	}
	if response.StatusCode >= 400 {
		return "", &TransportError{StatusCode: response.StatusCode, Body: response.Body}
	}

	return messageID(response), nil
}

func messageID(response *rest.Response) string {
	if response == nil {
		return ""
	}
	if ids, ok := response.Headers["X-Message-Id"]; ok && len(ids) > 0 {
		return ids[0]
	}
	return ""
}
