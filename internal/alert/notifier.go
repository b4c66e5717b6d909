package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// Notifier is the outbound interface for the stock alert subsystem. The
// receiving side recomputes low-stock notifications for the store; this side
// only tells it something changed.
type Notifier interface {
	NotifyStockChanged(ctx context.Context, storeID uuid.UUID) error
}

// WebhookNotifier is a resty-backed Notifier that POSTs stock-changed events
// to a configured endpoint.
type WebhookNotifier struct {
	httpClient *resty.Client
	url        string
}

// NewWebhookNotifier builds a webhook notifier for the given endpoint URL.
func NewWebhookNotifier(url string) *WebhookNotifier {
	restyClient := resty.New()
	restyClient.
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)

	return &WebhookNotifier{httpClient: restyClient, url: url}
}

func (n *WebhookNotifier) NotifyStockChanged(ctx context.Context, storeID uuid.UUID) error {
	payload := map[string]any{
		"event":       "stock_changed",
		"store_id":    storeID.String(),
		"occurred_at": time.Now().UTC().Format(time.RFC3339),
	}

	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("posting stock alert: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("stock alert endpoint returned %s", resp.Status())
	}
	return nil
}

// NopNotifier is used when no webhook endpoint is configured.
type NopNotifier struct{}

func (NopNotifier) NotifyStockChanged(context.Context, uuid.UUID) error { return nil }
