package notify

import (
	"context"
	"net/http"
)

// Headers set on every webhook delivery.
const (
	HeaderEvent = "X-Seedrepo-Event"
	HeaderRun   = "X-Seedrepo-Run"
)

// WebhookNotifier POSTs each event as JSON to a URL. Completed runs carry
// the rendered instructions in the html field.
type WebhookNotifier struct {
	URL     string
	Headers map[string]string
	Client  *http.Client
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(url string, headers map[string]string) *WebhookNotifier {
	return &WebhookNotifier{
		URL:     url,
		Headers: headers,
		Client:  &http.Client{Timeout: postTimeout},
	}
}

type webhookPayload struct {
	Event
	Text string `json:"text"`
}

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	header := make(http.Header, len(n.Headers)+2)
	for k, v := range n.Headers {
		header.Set(k, v)
	}
	header.Set(HeaderEvent, string(event.Type))
	header.Set(HeaderRun, event.Run.ID)
	return postJSON(ctx, n.Client, n.URL, header, webhookPayload{Event: event, Text: event.Summary()})
}
