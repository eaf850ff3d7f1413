package dhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// DeliveryError is returned when a message could not be delivered to a webhook.
type DeliveryError struct {
	// StatusCode is the HTTP status code of the response or 0 if no response was received.
	StatusCode int
	Status     string
	Err        error
}

func (e DeliveryError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("delivery failed: %s", e.Err)
	}
	return fmt.Sprintf("delivery failed: %s", e.Status)
}

func (e DeliveryError) Unwrap() error {
	return e.Err
}

// Webhook represents a Discord webhook.
type Webhook struct {
	client *Client
	url    string
}

// Execute posts a message to the webhook and waits for the response.
//
// Messages which can not be built are never sent and their error is returned as is.
// Failed deliveries are returned as [DeliveryError]. Execute makes exactly one attempt.
func (wh *Webhook) Execute(ctx context.Context, m Message) error {
	dat, err := wh.client.Build(m)
	if err != nil {
		return err
	}
	return wh.Post(ctx, dat)
}

// Dispatch posts a message to the webhook in the background.
//
// Errors from building the message are returned immediately and nothing is sent.
// Otherwise the result of the delivery is reported once on the returned channel,
// which is closed afterwards.
func (wh *Webhook) Dispatch(ctx context.Context, m Message) (<-chan error, error) {
	dat, err := wh.client.Build(m)
	if err != nil {
		return nil, err
	}
	errC := make(chan error, 1)
	go func() {
		defer close(errC)
		errC <- wh.Post(ctx, dat)
	}()
	return errC, nil
}

// Post posts a payload created by [Build] to the webhook and waits for the response.
// The same payload can be posted to several webhooks.
// Failed deliveries are returned as [DeliveryError].
func (wh *Webhook) Post(ctx context.Context, dat []byte) error {
	slog.Debug("request", "url", wh.url, "body", string(dat))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.url, bytes.NewReader(dat))
	if err != nil {
		return DeliveryError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := wh.client.httpClient.Do(req)
	if err != nil {
		return DeliveryError{Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn("Failed to read response body", "url", wh.url, "error", err)
	}
	slog.Debug("response", "url", wh.url, "status", resp.Status, "headers", resp.Header, "body", string(body))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("response", "url", wh.url, "status", resp.Status)
		return DeliveryError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	slog.Info("response", "url", wh.url, "status", resp.Status)
	return nil
}
