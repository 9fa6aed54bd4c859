// Package notify delivers operator notices such as compile failures.
package notify

import (
	"context"
	"errors"

	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
)

// Notifier sends a human-readable notice.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// LogNotifier writes notices to the structured log.
type LogNotifier struct {
	log logger.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger falls back to the global one.
func NewLogNotifier(log logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.Get().Named("notify")
	}
	return &LogNotifier{log: log}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, subject, body string) error {
	n.log.Warn(ctx, subject, logger.String("detail", body))
	return nil
}

// Multi fans a notice out to every notifier and joins their errors.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, subject, body string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, subject, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
