// Package dhook provides the ability to build and send messages to Discord webhooks.
package dhook

import (
	"net/http"
)

// Client represents a shared client used by webhooks to access the Discord API.
type Client struct {
	httpClient *http.Client
	clock      Clock
}

// NewClient returns a new client. All webhooks created from it share the provided HTTP client.
// When httpClient is nil [http.DefaultClient] is used.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		httpClient: httpClient,
		clock:      realtime{},
	}
	return c
}

// NewWebhook returns a new webhook for url.
func (c *Client) NewWebhook(url string) *Webhook {
	wh := &Webhook{
		client: c,
		url:    url,
	}
	return wh
}

// Build returns the JSON document for a message using the client's clock.
func (c *Client) Build(m Message) ([]byte, error) {
	return Build(m, c.clock)
}
