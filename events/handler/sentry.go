package handler

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/starshine-sys/greeter/common/log"
)

// SentryErrorHandler returns a HandleError function that logs errors and reports them to Sentry.
// If hub is nil, errors are only logged, with a random error ID so log lines can be correlated.
func SentryErrorHandler(hub *sentry.Hub) func(name string, ev any, err error) {
	return func(name string, ev any, err error) {
		event := EventName(ev)

		if hub == nil {
			log.Errorw("Event handler failed",
				"handler", name, "event", event, "error", err, "error_id", uuid.New().String())
			return
		}

		hub := hub.Clone()
		hub.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTag("handler", name)
			scope.SetTag("event", event)
		})

		hub.AddBreadcrumb(&sentry.Breadcrumb{
			Category:  "event",
			Message:   event,
			Level:     sentry.LevelError,
			Timestamp: time.Now().UTC(),
		}, nil)

		var errorID string
		if id := hub.CaptureException(err); id != nil {
			errorID = string(*id)
		} else {
			errorID = uuid.New().String()
		}

		log.Errorw("Event handler failed",
			"handler", name, "event", event, "error", err, "error_id", errorID)
	}
}
