package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/oszuidwest/zwfm-audioscan/internal/catalog"
	"github.com/oszuidwest/zwfm-audioscan/internal/util"
)

// timestampUTC returns the current UTC time in RFC3339 format.
func timestampUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// WebhookPayload represents the data sent to webhook endpoints.
type WebhookPayload struct {
	Event     string           `json:"event"`
	Changes   []catalog.Change `json:"changes,omitempty"`
	Summary   *catalog.Summary `json:"summary,omitempty"`
	Message   string           `json:"message,omitempty"`
	Timestamp string           `json:"timestamp"`
}

// SendChangeWebhook notifies the configured webhook of device tree changes.
func SendChangeWebhook(webhookURL, event string, changes []catalog.Change, summary catalog.Summary) error {
	return sendWebhook(webhookURL, &WebhookPayload{
		Event:     event,
		Changes:   changes,
		Summary:   &summary,
		Timestamp: timestampUTC(),
	})
}

// SendTestWebhook sends a test webhook notification.
func SendTestWebhook(webhookURL, stationName string) error {
	if webhookURL == "" {
		return fmt.Errorf("webhook URL not configured")
	}

	return sendWebhook(webhookURL, &WebhookPayload{
		Event:     "test",
		Message:   "This is a test notification from " + stationName,
		Timestamp: timestampUTC(),
	})
}

// sendWebhook delivers a notification to the configured webhook endpoint.
func sendWebhook(webhookURL string, payload *WebhookPayload) error {
	if !util.IsConfigured(webhookURL) {
		return nil // Silently skip if not configured
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return util.WrapError("marshal payload", err)
	}

	client := &http.Client{Timeout: 10000 * time.Millisecond}
	resp, err := client.Post(webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return util.WrapError("send webhook request", err)
	}
	defer util.SafeCloseFunc(resp.Body, "webhook response body")()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
