package cmd

import (
	"os"

	"github.com/starshine-sys/greeter/cmd/bot"
	"github.com/starshine-sys/greeter/common"
	"github.com/urfave/cli/v2"
)

var app = &cli.App{
	Name:    "Greeter",
	Usage:   "Discord bot that welcomes new members",
	Version: common.Version(),

	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "Enable debug logging",
			EnvVars: []string{"DEBUG_LOGGING"},
		},
	},

	Commands: []*cli.Command{
		bot.Command,
	},
}

func Run() error {
	return app.Run(os.Args)
}
