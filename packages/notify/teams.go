package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TeamsNotifier sends notifications to Microsoft Teams via webhook
type TeamsNotifier struct {
	webhookURL string
	client     *http.Client
}

// TeamsOption is a functional option for TeamsNotifier
type TeamsOption func(*TeamsNotifier)

// WithTeamsTimeout sets the webhook request timeout
func WithTeamsTimeout(d time.Duration) TeamsOption {
	return func(t *TeamsNotifier) {
		t.client.Timeout = d
	}
}

// NewTeamsNotifier creates a new Teams notifier
func NewTeamsNotifier(webhookURL string, opts ...TeamsOption) *TeamsNotifier {
	t := &TeamsNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *TeamsNotifier) Name() string {
	return "teams"
}

// teamsMessage is a Microsoft Teams Adaptive Card message
type teamsMessage struct {
	Type        string      `json:"type"`
	Attachments []teamsCard `json:"attachments"`
}

type teamsCard struct {
	ContentType string           `json:"contentType"`
	ContentURL  *string          `json:"contentUrl"`
	Content     teamsCardContent `json:"content"`
}

type teamsCardContent struct {
	Schema  string       `json:"$schema"`
	Type    string       `json:"type"`
	Version string       `json:"version"`
	Body    []teamsBlock `json:"body"`
}

type teamsBlock struct {
	Type      string        `json:"type"`
	Size      string        `json:"size,omitempty"`
	Weight    string        `json:"weight,omitempty"`
	Text      string        `json:"text,omitempty"`
	Color     string        `json:"color,omitempty"`
	Wrap      bool          `json:"wrap,omitempty"`
	Columns   []teamsColumn `json:"columns,omitempty"`
	Spacing   string        `json:"spacing,omitempty"`
	Separator bool          `json:"separator,omitempty"`
}

type teamsColumn struct {
	Type  string       `json:"type"`
	Width string       `json:"width"`
	Items []teamsBlock `json:"items"`
}

func statColumn(label, value, color string) teamsColumn {
	return teamsColumn{
		Type:  "Column",
		Width: "stretch",
		Items: []teamsBlock{
			{Type: "TextBlock", Text: fmt.Sprintf("**%s**", label), Wrap: true},
			{Type: "TextBlock", Text: value, Color: color, Wrap: true},
		},
	}
}

// Notify sends a notification to Microsoft Teams
func (t *TeamsNotifier) Notify(ctx context.Context, summary *RunSummary) error {
	color := "good"
	symbol := "✓"
	if summary.Failed > 0 {
		color = "attention"
		symbol = "✗"
	}

	body := []teamsBlock{
		{
			Type:   "TextBlock",
			Size:   "Large",
			Weight: "Bolder",
			Text:   fmt.Sprintf("%s %s", symbol, summary.title()),
			Color:  color,
		},
		{
			Type:      "ColumnSet",
			Separator: true,
			Spacing:   "Medium",
			Columns: []teamsColumn{
				statColumn("Testplans", fmt.Sprintf("%d", summary.TotalPlans), ""),
				statColumn("Succeeded", fmt.Sprintf("%d", summary.Succeeded), "good"),
				statColumn("Failed", fmt.Sprintf("%d", summary.Failed), "attention"),
				statColumn("Duration", summary.Duration.Round(time.Millisecond).String(), ""),
			},
		},
	}

	if summary.BaseURL != "" {
		body = append(body, teamsBlock{
			Type: "TextBlock",
			Text: fmt.Sprintf("**Base URL:** %s", summary.BaseURL),
			Wrap: true,
		})
	}

	if len(summary.FailedResults) > 0 {
		body = append(body, teamsBlock{
			Type:      "TextBlock",
			Text:      "**Failed Testplans:**",
			Separator: true,
			Spacing:   "Medium",
		})
		for _, fp := range summary.FailedResults {
			text := fmt.Sprintf("- `%s`", fp.Name)
			if fp.Error != "" {
				text += ": " + fp.Error
			}
			body = append(body, teamsBlock{Type: "TextBlock", Text: text, Wrap: true})
		}
	}

	body = append(body, teamsBlock{
		Type:      "TextBlock",
		Text:      fmt.Sprintf("_tstit run %s - %s_", summary.RunID, time.Now().Format(time.RFC3339)),
		Separator: true,
		Spacing:   "Medium",
	})

	msg := teamsMessage{
		Type: "message",
		Attachments: []teamsCard{{
			ContentType: "application/vnd.microsoft.card.adaptive",
			Content: teamsCardContent{
				Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
				Type:    "AdaptiveCard",
				Version: "1.2",
				Body:    body,
			},
		}},
	}

	return t.send(ctx, msg)
}

func (t *TeamsNotifier) send(ctx context.Context, msg teamsMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Teams message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Teams notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("teams API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
