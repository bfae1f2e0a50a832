package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"

	"adspace/internal/app/policies"
)

// templates maps event types to the notification templates the engine sends.
// Events absent from the map are consumed and dropped.
var templates = map[string]string{
	"booking.created":   "booking_created",
	"booking.confirmed": "booking_confirmed",
	"booking.rejected":  "booking_rejected",
	"payment.success":   "payment_success",
}

type cloudEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EventHandler consumes CloudEvents off the booking and payment topics and
// forwards the notifiable ones. Send failures are logged and the message is
// acked anyway; notifications are best-effort.
type EventHandler struct {
	Notifier policies.Notifier
	Logger   *slog.Logger
}

func (h EventHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt cloudEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		h.Logger.Warn("notify: dropping undecodable event", "topic", msg.Topic, "error", err)
		return nil
	}
	template, ok := templates[strings.TrimSuffix(evt.Type, ".v1")]
	if !ok {
		return nil
	}
	var data map[string]any
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		h.Logger.Warn("notify: dropping event with undecodable data", "type", evt.Type, "error", err)
		return nil
	}
	if err := h.Notifier.Send(ctx, recipient(data), template, data); err != nil {
		h.Logger.Warn("notify: send failed", "template", template, "error", err)
	}
	return nil
}

func recipient(data map[string]any) string {
	for _, key := range []string{"AdvertiserID", "BookingID", "PaymentID"} {
		if v, ok := data[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
