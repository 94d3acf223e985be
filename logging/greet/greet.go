package greet

import (
	"context"
	"fmt"
	"time"

	"emperror.dev/errors"
	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/dustin/go-humanize"
	"github.com/starshine-sys/greeter/common"
	"github.com/starshine-sys/greeter/common/log"
	"github.com/starshine-sys/greeter/common/render"
	"github.com/starshine-sys/greeter/stats"
	"github.com/starshine-sys/greeter/store"
)

// Handle is the dispatcher entry point. It ignores bots and events other than member add/remove.
func (g *Greeter) Handle(ctx context.Context, ev any) error {
	switch ev := ev.(type) {
	case *gateway.GuildMemberAddEvent:
		if ev.User.Bot {
			return nil
		}
		return g.HandleJoin(ctx, ev.GuildID, ev.User)
	case *gateway.GuildMemberRemoveEvent:
		if ev.User.Bot {
			return nil
		}
		return g.HandleLeave(ctx, ev.GuildID, ev.User)
	}
	return nil
}

// HandleJoin schedules the greeting for u and logs the join.
// Only a failure to send the log embed is returned; greeting errors are logged.
func (g *Greeter) HandleJoin(_ context.Context, guildID discord.GuildID, u discord.User) error {
	conf, ok := g.Guilds.Lookup(guildID)
	if !ok {
		return nil
	}

	created := u.ID.Time()
	log.Debugw("greet::join", "user", u.Tag(), "guild", guildID, "account_age", humanize.Time(created))

	if g.firstJoin(guildID, u.ID) {
		g.schedule(guildID, u.ID, conf)
	} else {
		log.Warnw("Duplicate join event, not greeting again", "user", u.Tag(), "guild", guildID)
		g.Stats.RegisterEvent(stats.GreetDuplicate)
	}

	e := memberEmbed(u)
	e.Title = "Member joined"
	e.Color = common.ColourGreen
	e.Fields = append(e.Fields, discord.EmbedField{
		Name:   "Account created",
		Value:  fmt.Sprintf("<t:%d:R>", created.Unix()),
		Inline: true,
	})

	_, err := g.Client.SendEmbeds(conf.LogChannel, e)
	if err != nil {
		return errors.Wrap(err, "sending join log")
	}
	return nil
}

// HandleLeave logs a member leaving.
func (g *Greeter) HandleLeave(_ context.Context, guildID discord.GuildID, u discord.User) error {
	conf, ok := g.Guilds.Lookup(guildID)
	if !ok {
		return nil
	}
	log.Debugw("greet::leave", "user", u.Tag(), "guild", guildID)

	// a member who rejoins is greeted again
	g.forgetJoin(guildID, u.ID)

	e := memberEmbed(u)
	e.Title = "Member left"
	e.Color = common.ColourRed

	_, err := g.Client.SendEmbeds(conf.LogChannel, e)
	if err != nil {
		return errors.Wrap(err, "sending leave log")
	}
	return nil
}

// firstJoin records the join and reports whether it wasn't already seen in the dedup window.
func (g *Greeter) firstJoin(guildID discord.GuildID, userID discord.UserID) bool {
	if g.recent == nil {
		return true
	}

	key := joinKey(guildID, userID)
	if _, err := g.recent.Get(key); err == nil {
		return false
	}

	_ = g.recent.Set(key, struct{}{})
	return true
}

// forgetJoin removes a join from the dedup window.
func (g *Greeter) forgetJoin(guildID discord.GuildID, userID discord.UserID) {
	if g.recent == nil {
		return
	}
	_ = g.recent.Remove(joinKey(guildID, userID))
}

func joinKey(guildID discord.GuildID, userID discord.UserID) string {
	return guildID.String() + ":" + userID.String()
}

// schedule runs greet after the configured delay, in its own goroutine.
// Nothing waits for it: errors end up in the log and in stats.
func (g *Greeter) schedule(guildID discord.GuildID, userID discord.UserID, conf store.GuildConfig) {
	time.AfterFunc(g.delay, func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("Panic while greeting member", "user", userID, "guild", guildID, "panic", r)
				g.Stats.RegisterEvent(stats.GreetFailed)
			}
		}()

		if err := g.greet(guildID, userID, conf); err != nil {
			log.Errorw("Greeting member failed", "user", userID, "guild", guildID, "error", err)
			g.Stats.RegisterEvent(stats.GreetFailed)
		}
	})
}

func (g *Greeter) greet(guildID discord.GuildID, userID discord.UserID, conf store.GuildConfig) error {
	m, err := g.Client.Member(guildID, userID)
	if err != nil {
		return errors.Wrap(err, "fetching member")
	}

	if common.Contains(m.RoleIDs, conf.MemberRole) {
		log.Warnw("User already has the member role, skipping", "user", m.User.Tag(), "guild", guildID)
		g.Stats.RegisterEvent(stats.GreetSkipped)
		return nil
	}

	data := render.Data{User: userID.Mention()}

	tmpl := conf.WelcomeMessage
	if common.Contains(m.RoleIDs, conf.PatronRole) {
		err = g.Client.AddRole(guildID, userID, conf.MemberRole, api.AddRoleData{
			AuditLogReason: "Greeting patron",
		})
		if err != nil {
			return errors.Wrap(err, "adding member role")
		}
		g.Stats.RegisterEvent(stats.RoleGranted)

		tmpl = conf.PatronMessage
	}

	msg, err := render.Render(tmpl, data)
	if err != nil {
		return errors.Wrap(err, "rendering greeting")
	}

	_, err = g.Client.SendMessage(conf.WelcomeChannel, msg)
	if err != nil {
		return errors.Wrap(err, "sending greeting")
	}

	g.Stats.RegisterEvent(stats.MemberGreeted)
	return nil
}

// memberEmbed returns the fields shared by the join and leave logs.
func memberEmbed(u discord.User) discord.Embed {
	e := discord.Embed{
		Description: fmt.Sprintf("%v (%v)", u.Tag(), u.Mention()),
		Fields: []discord.EmbedField{{
			Name:   "ID",
			Value:  u.ID.String(),
			Inline: true,
		}},
		Timestamp: discord.NowTimestamp(),
	}

	if u.Avatar != "" {
		e.Thumbnail = &discord.EmbedThumbnail{
			URL: u.AvatarURLWithType(discord.PNGImage) + "?size=128",
		}
	}
	return e
}
