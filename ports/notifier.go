package ports

import "context"

// Notifier posts a run summary to an operator channel. Callers log and
// swallow its errors.
type Notifier interface {
	Notify(ctx context.Context, message string, isError bool) error
}
