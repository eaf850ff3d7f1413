package storage

import (
	"errors"
	"time"

	"github.com/ErikKalkoken/hookpost/internal/dhook"
)

// RecordDelivery records the outcome of posting a message to a webhook.
// err is the result returned from the webhook and nil for successful deliveries.
func (st *Storage) RecordDelivery(name string, err error, now time.Time) error {
	return st.UpdateWebhookStats(name, func(ws *WebhookStats) error {
		if err == nil {
			ws.SentCount++
			ws.SentLast = now.UTC()
			return nil
		}
		ws.ErrorCount++
		ws.ErrorLast = err.Error()
		var errDelivery dhook.DeliveryError
		if errors.As(err, &errDelivery) {
			ws.StatusLast = errDelivery.StatusCode
		} else {
			ws.StatusLast = 0
		}
		return nil
	})
}
