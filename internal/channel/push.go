package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sayaka/teamboard/internal/domain"
)

// PushSender posts notifications to a push-gateway webhook. The gateway owns
// device tokens and platform specifics; this side only speaks JSON.
type PushSender struct {
	endpoint string
	client   *http.Client
}

// NewPushSender creates a PushSender for the given webhook endpoint.
func NewPushSender(endpoint string) *PushSender {
	return &PushSender{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Name implements Sender.
func (*PushSender) Name() string { return "push" }

type pushPayload struct {
	UserID   int64          `json:"user_id"`
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Category string         `json:"category"`
	Priority string         `json:"priority"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// Send implements Sender.
func (s *PushSender) Send(ctx context.Context, target Target, n *domain.Notification) error {
	if s.endpoint == "" {
		return fmt.Errorf("push gateway is not configured")
	}

	body, err := json.Marshal(pushPayload{
		UserID:   target.UserID,
		Title:    n.Title,
		Message:  n.Message,
		Category: string(n.Category),
		Priority: string(n.Priority),
		Payload:  n.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post push notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}
	return nil
}
