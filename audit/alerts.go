// api/audit/alerts.go
package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/hoteltrack/api/util"
)

// ViolationNotifier is satisfied by *util.NotificationService.
type ViolationNotifier interface {
	NotifyIntegrityViolation(ctx context.Context, mode, kind, entryID, expected, actual string) error
}

// NewViolationHandler escalates every finding of an EventIntegrityViolation.
func NewViolationHandler(notifier ViolationNotifier) util.EventHandler {
	return func(ctx context.Context, event util.Event) error {
		violation, ok := event.Payload.(IntegrityViolation)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
		}
		var errs []error
		for _, f := range violation.Findings {
			if err := notifier.NotifyIntegrityViolation(ctx, violation.Mode, f.Kind, f.ID, f.Expected, f.Actual); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
