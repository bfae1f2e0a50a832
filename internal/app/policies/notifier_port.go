package policies

import "context"

// Notifier dispatches a rendered notification (email/SMS). Fire-and-forget:
// failures are logged by callers, never propagated into state transitions.
type Notifier interface {
	Send(ctx context.Context, to string, template string, data any) error
}
