package bot

import (
	"os"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/BurntSushi/toml"
	"github.com/starshine-sys/greeter/common/log"
	"github.com/starshine-sys/greeter/stats"
	"github.com/starshine-sys/greeter/store"
)

// TokenEnv is the environment variable the bot token is read from.
const TokenEnv = "DISCORD_TOKEN"

const (
	ErrNoToken       = errors.Sentinel("no bot token set in $" + TokenEnv)
	ErrInvalidConfig = errors.Sentinel("invalid configuration")
)

const (
	defaultGreetDelay  = 5 * time.Second
	defaultDedupWindow = time.Minute
	defaultEventBuffer = 64
)

// Config is the bot configuration, read from config.toml.
type Config struct {
	Auth AuthConfig `toml:"auth"`
	Bot  BotConfig  `toml:"bot"`

	// Greet is keyed by guild ID.
	Greet map[string]store.GuildConfig `toml:"greet"`

	// Guilds is built from Greet by ReadConfig.
	Guilds *store.Guilds `toml:"-"`
}

// AuthConfig holds credentials for optional services. The bot token is read from the environment instead.
type AuthConfig struct {
	Sentry string       `toml:"sentry"`
	Influx stats.Config `toml:"influx"`
}

// BotConfig holds greeting timing and dispatch settings.
type BotConfig struct {
	GreetDelayString  string `toml:"greet_delay"`
	DedupWindowString string `toml:"dedup_window"`
	// EventBuffer is how many gateway events can be waiting for the dispatcher.
	EventBuffer int `toml:"event_buffer"`

	GreetDelay  time.Duration `toml:"-"`
	DedupWindow time.Duration `toml:"-"`
}

// ReadConfig reads and validates the configuration file at path.
func ReadConfig(path string) (c Config, err error) {
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return c, errors.Wrap(err, "decoding config file")
	}

	for _, key := range md.Undecoded() {
		log.Warnf("Unknown configuration key %q", key.String())
	}

	c.Bot.GreetDelay = defaultGreetDelay
	if md.IsDefined("bot", "greet_delay") {
		c.Bot.GreetDelay, err = parseDuration(c.Bot.GreetDelayString)
		if err != nil {
			return c, errors.Wrap(err, "parsing bot.greet_delay")
		}
	}

	c.Bot.DedupWindow = defaultDedupWindow
	if md.IsDefined("bot", "dedup_window") {
		c.Bot.DedupWindow, err = parseDuration(c.Bot.DedupWindowString)
		if err != nil {
			return c, errors.Wrap(err, "parsing bot.dedup_window")
		}
	}

	if c.Bot.EventBuffer <= 0 {
		c.Bot.EventBuffer = defaultEventBuffer
	}

	for id, g := range c.Greet {
		if !g.LogChannel.IsValid() || !g.WelcomeChannel.IsValid() {
			return c, errors.WithDetails(
				errors.WithMessage(ErrInvalidConfig, "guild needs both welcome_channel and log_channel"),
				"guild", id)
		}
	}

	c.Guilds, err = store.NewGuilds(c.Greet)
	if err != nil {
		return c, errors.Wrap(err, "reading guild configuration")
	}
	return c, nil
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.WithMessage(ErrInvalidConfig, err.Error())
	}
	if d < 0 {
		return 0, errors.WithMessage(ErrInvalidConfig, "duration can't be negative")
	}
	return d, nil
}

// Token returns the bot token from the environment.
func Token() (string, error) {
	token := strings.TrimSpace(os.Getenv(TokenEnv))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}
