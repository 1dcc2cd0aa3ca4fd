// Package slack sends triage notifications to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/linnemanlabs/sift/internal/classify"
	"github.com/linnemanlabs/sift/internal/triage"
)

const httpTimeout = 10 * time.Second

// Notifier sends triage results to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Send posts a triage result to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, result *triage.Result) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(result)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(r *triage.Result) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(r),
			{"type": "divider"},
			fieldsBlock(r),
			{"type": "divider"},
			extractedBlock(r),
			{"type": "divider"},
			contextBlock(r),
		},
	}
}

func headerBlock(r *triage.Result) map[string]any {
	title := "Request Triaged"
	if r.BackendUnavailable {
		title = "Request Triaged (backend unavailable)"
	}
	text := fmt.Sprintf("%s %s: %s", categoryEmoji(r), title, displayLabel(r))

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(r *triage.Result) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Category:* %s", r.Category),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Confidence:* %.2f", r.Confidence),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Duration:* %.1fs", r.Duration),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Model:* %s", shortModel(r.Model)),
		},
	}
	if r.SubType != "" {
		fields = append(fields, map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Sub-type:* %s", r.SubType),
		})
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func extractedBlock(r *triage.Result) map[string]any {
	text := formatFields(r)
	if text == "" {
		text = "_No fields extracted._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Extracted*\n\n%s", text),
		},
	}
}

func formatFields(r *triage.Result) string {
	var b bytes.Buffer
	if r.Extracted.DealName != "" {
		fmt.Fprintf(&b, "Deal: %s\n", r.Extracted.DealName)
	}
	if r.Extracted.Amount != nil {
		fmt.Fprintf(&b, "Amount: %.2f\n", *r.Extracted.Amount)
	}
	if r.Extracted.ExpirationDate != "" {
		fmt.Fprintf(&b, "Expires: %s\n", r.Extracted.ExpirationDate)
	}
	for _, att := range r.Attachments {
		fmt.Fprintf(&b, "Attachment %s:", att.Name)
		if att.Fields.DealName != "" {
			fmt.Fprintf(&b, " deal %s", att.Fields.DealName)
		}
		if att.Fields.Amount != nil {
			fmt.Fprintf(&b, " amount %.2f", *att.Fields.Amount)
		}
		if att.Fields.ExpirationDate != "" {
			fmt.Fprintf(&b, " expires %s", att.Fields.ExpirationDate)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func contextBlock(r *triage.Result) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("sift • %s • %s", r.Fingerprint, r.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func categoryEmoji(r *triage.Result) string {
	if r.BackendUnavailable {
		return "\U0001f534" // red circle
	}
	switch r.Category {
	case classify.CategoryMoneyMovement:
		return "\U0001f7e1" // yellow circle
	case classify.CategoryOther:
		return "⚪" // white circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func displayLabel(r *triage.Result) string {
	if r.RawLabel != "" {
		return r.RawLabel
	}
	return string(r.Category)
}

// dateModelRe matches model names ending with a YYYYMMDD date suffix.
var dateModelRe = regexp.MustCompile(`-\d{8}$`)

func shortModel(model string) string {
	return dateModelRe.ReplaceAllString(model, "")
}
