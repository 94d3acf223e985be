package meta

import (
	"github.com/starshine-sys/greeter/bot"
	"github.com/starshine-sys/greeter/common/log"
)

type Bot struct {
	*bot.Bot
}

func Setup(root *bot.Bot) {
	log.Debug("Adding meta handlers")

	bot := &Bot{Bot: root}

	// connection ready logging
	bot.AddHandler("ready", bot.ready)
}
