// Package greet welcomes new members and logs joins and leaves.
//
// When a member joins a configured guild, an embed is posted to the guild's log channel right away.
// A few seconds later the member is fetched again: members holding the patron role are given the member role
// and welcomed with the patron message, everyone else gets the welcome message.
// Members that already have the member role are left alone.
package greet

import (
	"time"

	"github.com/ReneKroon/ttlcache/v2"
	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/starshine-sys/greeter/bot"
	"github.com/starshine-sys/greeter/common/log"
	"github.com/starshine-sys/greeter/stats"
	"github.com/starshine-sys/greeter/store"
)

const (
	// DefaultDelay is how long after a join the member is greeted.
	DefaultDelay = 5 * time.Second
	// DefaultDedupWindow is how long a join is remembered to drop duplicate join events.
	DefaultDedupWindow = time.Minute
)

// Client is the subset of the Discord API used for greeting. *api.Client implements it.
type Client interface {
	Member(guildID discord.GuildID, userID discord.UserID) (*discord.Member, error)
	AddRole(guildID discord.GuildID, userID discord.UserID, roleID discord.RoleID, data api.AddRoleData) error
	SendMessage(channelID discord.ChannelID, content string, embeds ...discord.Embed) (*discord.Message, error)
	SendEmbeds(channelID discord.ChannelID, embeds ...discord.Embed) (*discord.Message, error)
}

var _ Client = (*api.Client)(nil)

// Greeter handles member join and leave events.
type Greeter struct {
	Client Client
	Guilds *store.Guilds
	Stats  *stats.Client

	delay  time.Duration
	recent *ttlcache.Cache
}

// Option configures a Greeter.
type Option func(*Greeter)

// WithDelay sets the delay between a join and the greeting.
func WithDelay(d time.Duration) Option {
	return func(g *Greeter) {
		g.delay = d
	}
}

// WithDedupWindow sets how long joins are remembered. Zero disables deduplication.
func WithDedupWindow(d time.Duration) Option {
	return func(g *Greeter) {
		if d <= 0 {
			if g.recent != nil {
				_ = g.recent.Close()
				g.recent = nil
			}
			return
		}

		if g.recent == nil {
			g.recent = ttlcache.NewCache()
			g.recent.SkipTTLExtensionOnHit(true)
		}
		_ = g.recent.SetTTL(d)
	}
}

// New creates a new Greeter.
func New(client Client, guilds *store.Guilds, st *stats.Client, opts ...Option) *Greeter {
	g := &Greeter{
		Client: client,
		Guilds: guilds,
		Stats:  st,
		delay:  DefaultDelay,
	}

	WithDedupWindow(DefaultDedupWindow)(g)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Close stops the deduplication cache's cleanup goroutine.
func (g *Greeter) Close() error {
	if g.recent == nil {
		return nil
	}
	return g.recent.Close()
}

// Setup adds the greeting handler to the bot.
func Setup(root *bot.Bot) *Greeter {
	log.Debug("Adding greet handlers")

	g := New(root.Session.Client, root.Guilds, root.Stats,
		WithDelay(root.Config.Bot.GreetDelay),
		WithDedupWindow(root.Config.Bot.DedupWindow),
	)

	root.AddHandler("greet", g.Handle)
	return g
}
