package bot

import (
	"os"
	"os/signal"
	"syscall"

	"emperror.dev/errors"
	"github.com/starshine-sys/greeter/bot"
	"github.com/starshine-sys/greeter/common/log"
	"github.com/starshine-sys/greeter/logging/greet"
	"github.com/starshine-sys/greeter/logging/meta"
	"github.com/urfave/cli/v2"
)

var Command = &cli.Command{
	Name:   "bot",
	Usage:  "Run the bot",
	Action: run,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the configuration file",
			Value:   "config.toml",
		},
	},
}

func run(c *cli.Context) error {
	log.SetDebug(c.Bool("debug"))

	conf, err := bot.ReadConfig(c.String("config"))
	if err != nil {
		return errors.Wrap(err, "reading config")
	}

	token, err := bot.Token()
	if err != nil {
		return err
	}

	b, err := bot.New(conf, token)
	if err != nil {
		return errors.Wrap(err, "creating bot")
	}

	// handlers are called in this order for every event
	meta.Setup(b)                         // ready logging
	b.AddHandler("stats", b.Stats.Handle) // event counts
	g := greet.Setup(b)                   // join/leave logging and greeting
	defer g.Close()

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = b.Run(ctx)
	if err != nil {
		return errors.Wrap(err, "running bot")
	}

	log.Info("Interrupt signal received, shut down")
	return nil
}
