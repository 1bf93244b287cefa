// Package slack implements the Notifier port against a Slack incoming
// webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"stocknotifier/internal/domain/entity"
	"stocknotifier/internal/port/outbound"
)

const (
	defaultTimeout = 15 * time.Second
	maxListedRows  = 10
)

// Config configures the webhook notifier.
type Config struct {
	WebhookURL string
	Username   string
	IconEmoji  string
	Timeout    time.Duration
}

// Notifier posts run notifications to a Slack incoming webhook. Messages
// carry both blocks and a plain-text fallback so clients that cannot render
// blocks still show something useful.
type Notifier struct {
	config Config
	http   *http.Client
}

// NewNotifier creates a webhook notifier.
func NewNotifier(config Config) (*Notifier, error) {
	if config.WebhookURL == "" {
		return nil, errors.New("slack: webhook URL cannot be empty")
	}
	if config.Username == "" {
		config.Username = "stocknotifier"
	}
	if config.IconEmoji == "" {
		config.IconEmoji = ":chart_with_upwards_trend:"
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	return &Notifier{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}, nil
}

var _ outbound.Notifier = (*Notifier)(nil)

type message struct {
	Username  string  `json:"username,omitempty"`
	IconEmoji string  `json:"icon_emoji,omitempty"`
	Text      string  `json:"text"`
	Blocks    []block `json:"blocks,omitempty"`
}

type block struct {
	Type string     `json:"type"`
	Text *blockText `json:"text,omitempty"`
}

type blockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func headerBlock(text string) block {
	return block{Type: "header", Text: &blockText{Type: "plain_text", Text: text}}
}

func sectionBlock(markdown string) block {
	return block{Type: "section", Text: &blockText{Type: "mrkdwn", Text: markdown}}
}

// NotifyResults reports the screening candidates for a run.
func (n *Notifier) NotifyResults(ctx context.Context, stocks []entity.ValueStock, runDate time.Time) error {
	title := fmt.Sprintf("Value screening results — %s", runDate.Format("2006-01-02"))

	var rows strings.Builder
	for i, stock := range stocks {
		if i >= maxListedRows {
			fmt.Fprintf(&rows, "… and %d more\n", len(stocks)-maxListedRows)
			break
		}
		fmt.Fprintf(&rows, "*%s* %s — price %.1f, PER %.1f, PBR %.2f, yield %.2f%%, score %.1f\n",
			stock.Symbol, stock.Name, stock.Price, stock.PER, stock.PBR, stock.DividendYield, stock.Score)
	}

	msg := message{
		Text: fmt.Sprintf("%s: %d candidates", title, len(stocks)),
		Blocks: []block{
			headerBlock(title),
			sectionBlock(fmt.Sprintf("*%d* candidates passed screening", len(stocks))),
			sectionBlock(rows.String()),
		},
	}
	return n.post(ctx, msg)
}

// NotifyNoCandidates reports a run that screened symbols but found nothing.
func (n *Notifier) NotifyNoCandidates(ctx context.Context, screenedCount int, runDate time.Time) error {
	title := fmt.Sprintf("Value screening results — %s", runDate.Format("2006-01-02"))
	msg := message{
		Text: fmt.Sprintf("%s: no candidates (%d screened)", title, screenedCount),
		Blocks: []block{
			headerBlock(title),
			sectionBlock(fmt.Sprintf("No candidates passed screening out of *%d* symbols.", screenedCount)),
		},
	}
	return n.post(ctx, msg)
}

// NotifyError reports a run-level failure.
func (n *Notifier) NotifyError(ctx context.Context, title, messageText string) error {
	msg := message{
		Text: fmt.Sprintf(":rotating_light: %s: %s", title, messageText),
		Blocks: []block{
			headerBlock(":rotating_light: " + title),
			sectionBlock(messageText),
		},
	}
	return n.post(ctx, msg)
}

// NotifyAlert delivers a threshold-breach alert.
func (n *Notifier) NotifyAlert(ctx context.Context, alert *entity.Alert) error {
	if alert == nil {
		return errors.New("slack: alert cannot be nil")
	}
	detail := fmt.Sprintf("%s\nseverity: %s | mode: %s | error rate: %.1f%% | consecutive errors: %d",
		alert.Message(), alert.Severity().String(), alert.Mode().String(),
		alert.ErrorRate()*100, alert.ConsecutiveErrors())
	msg := message{
		Text: fmt.Sprintf(":warning: %s — %s", alert.Title(), alert.Message()),
		Blocks: []block{
			headerBlock(":warning: " + alert.Title()),
			sectionBlock(detail),
		},
	}
	return n.post(ctx, msg)
}

// post sends one webhook message, retrying once with the plain-text
// fallback when Slack rejects the block payload.
func (n *Notifier) post(ctx context.Context, msg message) error {
	msg.Username = n.config.Username
	msg.IconEmoji = n.config.IconEmoji

	err := n.send(ctx, msg)
	if err == nil || len(msg.Blocks) == 0 {
		return err
	}

	var statusErr *statusError
	if errors.As(err, &statusErr) && statusErr.code == http.StatusBadRequest {
		msg.Blocks = nil
		return n.send(ctx, msg)
	}
	return err
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("slack: webhook returned %d: %s", e.code, e.body)
}

func (n *Notifier) send(ctx context.Context, msg message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("slack: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := make([]byte, 512)
		read, _ := resp.Body.Read(body)
		return &statusError{code: resp.StatusCode, body: string(body[:read])}
	}
	return nil
}
