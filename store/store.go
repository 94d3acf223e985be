// Package store holds the per-guild greeting configuration.
// It is built once at startup from the config file and never changes afterwards,
// so it can be shared between goroutines without locking.
package store

import (
	"emperror.dev/errors"
	"github.com/diamondburned/arikawa/v3/discord"
)

// ErrInvalidGuild is returned for a configuration key that isn't a guild ID.
const ErrInvalidGuild = errors.Sentinel("invalid guild ID")

// GuildConfig is the greeting configuration for a single guild.
type GuildConfig struct {
	WelcomeChannel discord.ChannelID `toml:"welcome_channel"`
	LogChannel     discord.ChannelID `toml:"log_channel"`
	PatronRole     discord.RoleID    `toml:"patron_role"`
	MemberRole     discord.RoleID    `toml:"member_role"`

	PatronMessage  string `toml:"patron_msg"`
	WelcomeMessage string `toml:"welcome_msg"`
}

// Guilds is a read-only set of guild configurations.
type Guilds struct {
	guilds map[discord.GuildID]GuildConfig
}

// NewGuilds builds a Guilds from configurations keyed by guild ID strings.
func NewGuilds(m map[string]GuildConfig) (*Guilds, error) {
	g := &Guilds{guilds: make(map[discord.GuildID]GuildConfig, len(m))}

	for k, v := range m {
		sf, err := discord.ParseSnowflake(k)
		if err != nil || !sf.IsValid() {
			return nil, errors.WithDetails(ErrInvalidGuild, "key", k)
		}

		g.guilds[discord.GuildID(sf)] = v
	}
	return g, nil
}

// Lookup returns the configuration for the given guild.
// The returned value is a copy, changing it does not affect the store.
func (g *Guilds) Lookup(id discord.GuildID) (GuildConfig, bool) {
	if g == nil {
		return GuildConfig{}, false
	}

	c, ok := g.guilds[id]
	return c, ok
}

// Len returns the number of configured guilds.
func (g *Guilds) Len() int {
	if g == nil {
		return 0
	}
	return len(g.guilds)
}
