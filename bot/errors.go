package bot

import (
	"emperror.dev/errors"
	"github.com/getsentry/sentry-go"
	"github.com/starshine-sys/greeter/common"
	"github.com/starshine-sys/greeter/common/log"
)

// setupSentry initialises Sentry and returns its hub, or nil if dsn is empty.
func setupSentry(dsn string) (*sentry.Hub, error) {
	if dsn == "" {
		log.Debugf("sentry DSN was not provided, not setting it up")
		return nil, nil
	}

	log.Debug("setting up sentry")
	err := sentry.Init(sentry.ClientOptions{
		Dsn:     dsn,
		Release: common.Version(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "initialising sentry")
	}

	return sentry.CurrentHub(), nil
}
