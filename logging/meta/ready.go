package meta

import (
	"context"

	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/starshine-sys/greeter/common/log"
)

func (bot *Bot) ready(_ context.Context, ev any) error {
	r, ok := ev.(*gateway.ReadyEvent)
	if !ok {
		return nil
	}

	log.Infow("Ready",
		"user", r.User.Tag(),
		"guilds", len(r.Guilds),
		"configured_guilds", bot.Guilds.Len(),
	)
	return nil
}
