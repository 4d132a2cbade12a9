package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/notifyhub/notification-bridge/internal/domain"
)

// WebhookRenderer delivers built notifications by POSTing them to a device
// gateway. The gateway cannot be asked what is visible, so this renderer does
// not implement ActiveLister.
type WebhookRenderer struct {
	url        string
	httpClient *http.Client
}

func NewWebhookRenderer(url string, timeout time.Duration) *WebhookRenderer {
	return &WebhookRenderer{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Notify expects any 2xx status from the gateway.
func (w *WebhookRenderer) Notify(ctx context.Context, n domain.Rendered) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected gateway status: %d", resp.StatusCode)
	}
	return nil
}

var _ Renderer = (*WebhookRenderer)(nil)
