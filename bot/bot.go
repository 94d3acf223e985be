package bot

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/session"
	"github.com/diamondburned/arikawa/v3/utils/ws"
	"github.com/getsentry/sentry-go"
	"github.com/starshine-sys/greeter/common/log"
	"github.com/starshine-sys/greeter/events/handler"
	"github.com/starshine-sys/greeter/stats"
	"github.com/starshine-sys/greeter/store"
)

// Intents are the gateway intents the bot needs. Member events require the privileged members intent.
const Intents = gateway.IntentGuilds | gateway.IntentGuildMembers

// Bot is the gateway session together with the event handlers and the shared guild config.
type Bot struct {
	Config Config

	Session *session.Session
	Handler *handler.Handler
	Guilds  *store.Guilds
	Stats   *stats.Client

	sentry *sentry.Hub
}

// New creates a new Bot. Handlers must be added before calling Run.
func New(c Config, token string) (*Bot, error) {
	// set up debug logging
	ws.WSDebug = log.Debug
	ws.WSError = func(err error) {
		log.SugaredLogger.Error("ws error: ", err)
	}

	hub, err := setupSentry(c.Auth.Sentry)
	if err != nil {
		return nil, err
	}

	s := session.New("Bot " + token)
	s.AddIntents(Intents)

	guilds := c.Guilds
	if guilds == nil {
		guilds, err = store.NewGuilds(c.Greet)
		if err != nil {
			return nil, errors.Wrap(err, "creating guild store")
		}
	}

	bot := &Bot{
		Config:  c,
		Session: s,
		Handler: handler.New(),
		Guilds:  guilds,
		Stats:   stats.New(c.Auth.Influx),
		sentry:  hub,
	}
	bot.Handler.HandleError = handler.SentryErrorHandler(hub)

	return bot, nil
}

// AddHandler adds a named event handler. Handlers are called in the order they're added.
func (bot *Bot) AddHandler(name string, fn handler.Func) {
	log.Debugf("adding handler %q", name)
	bot.Handler.AddHandler(name, fn)
}

// Run connects to Discord and dispatches events until ctx is cancelled.
func (bot *Bot) Run(ctx context.Context) error {
	bot.Handler.Freeze()
	log.Infof("Dispatching events to %v", bot.Handler.Names())

	events := make(chan any, bot.Config.Bot.EventBuffer)

	// the gateway calls this synchronously, so events reach the channel in the order they arrive
	rm := bot.Session.AddSyncHandler(func(ev gateway.Event) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})
	defer rm()

	log.Debug("opening gateway connection")
	if err := bot.Session.Open(ctx); err != nil {
		return errors.Wrap(err, "opening gateway connection")
	}

	defer func() {
		if err := bot.Session.Close(); err != nil {
			log.Errorf("closing gateway connection: %v", err)
		}

		if bot.sentry != nil {
			bot.sentry.Flush(2 * time.Second)
		}
	}()

	go bot.Stats.Run(ctx)

	log.Infof("Connected to Discord, greeting members in %d guild(s)", bot.Guilds.Len())
	bot.Handler.Run(ctx, events)
	return nil
}
