package notify

import (
	"context"
	"log/slog"

	"adspace/internal/app/policies"
)

// LogNotifier records notifications in the structured log instead of sending
// them anywhere. It stands in for the email/SMS gateway in dev and test.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, to string, template string, data any) error {
	n.Logger.Info("notification", "to", to, "template", template, "data", data)
	return nil
}

var _ policies.Notifier = LogNotifier{}
