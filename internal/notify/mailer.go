// Package notify turns decision-engine events into per-project email
// digests and hands them to the outbound mailer. All qualifying events
// for a project in one pass go out in a single call; zero events means
// zero calls.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RaghavRD/library-tracker/internal/common/config"
	"github.com/RaghavRD/library-tracker/internal/common/logger"
)

// DefaultMailerEndpoint is the Mailtrap bulk send API.
const DefaultMailerEndpoint = "https://bulk.api.mailtrap.io/api/send"

// Error variables for mailer errors
var (
	// ErrNoRecipients is returned when a digest has no valid recipients
	ErrNoRecipients = errors.New("no valid recipients provided")
	// ErrSendFailed is returned when the mailer backend rejects a send
	ErrSendFailed = errors.New("mail send failed")
)

// Digest is one outbound email: everything a project needs to hear
// about from a single pass.
type Digest struct {
	Project    string
	Recipients []string
	Subject    string
	HTML       string
	// Category labels the send for mailer-side analytics
	Category string
}

// Mailer delivers a digest. Implementations must not be retried by the
// caller; one digest is one delivery attempt.
type Mailer interface {
	SendDigest(ctx context.Context, d *Digest) (status string, err error)
}

// MailtrapMailer sends digests through the Mailtrap bulk API.
type MailtrapMailer struct {
	apiKey    string
	endpoint  string
	fromEmail string
	fromName  string
	client    *http.Client
}

// NewMailtrapMailer builds a mailer from configuration.
func NewMailtrapMailer(cfg config.MailerConfig) *MailtrapMailer {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultMailerEndpoint
	}
	fromName := cfg.FromName
	if fromName == "" {
		fromName = "Library Tracker"
	}
	return &MailtrapMailer{
		apiKey:    cfg.APIToken,
		endpoint:  endpoint,
		fromEmail: cfg.FromEmail,
		fromName:  fromName,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SendDigest delivers one digest. No retries: a failed send surfaces to
// the caller, which isolates the failure to this project.
func (m *MailtrapMailer) SendDigest(ctx context.Context, d *Digest) (string, error) {
	recipients := normalizeRecipients(d.Recipients)
	if len(recipients) == 0 {
		return "", ErrNoRecipients
	}

	to := make([]map[string]string, 0, len(recipients))
	for _, r := range recipients {
		to = append(to, map[string]string{"email": r})
	}

	payload := map[string]any{
		"from":     map[string]string{"email": m.fromEmail, "name": m.fromName},
		"to":       to,
		"subject":  d.Subject,
		"html":     d.HTML,
		"category": d.Category,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, strings.NewReader(string(body)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	status := fmt.Sprintf("mailtrap: %d - %s", resp.StatusCode, strings.TrimSpace(string(respBody)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return status, fmt.Errorf("%w: %s", ErrSendFailed, status)
	}
	return status, nil
}

// DryRunMailer renders digests to the log without sending anything.
type DryRunMailer struct{}

// SendDigest logs the digest instead of delivering it.
func (DryRunMailer) SendDigest(_ context.Context, d *Digest) (string, error) {
	if len(normalizeRecipients(d.Recipients)) == 0 {
		return "", ErrNoRecipients
	}
	logger.Info("dry run: would send %q to %s", d.Subject, strings.Join(d.Recipients, ", "))
	return "dry run: email not sent", nil
}

// normalizeRecipients trims entries and drops empties.
func normalizeRecipients(raw []string) []string {
	var out []string
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
