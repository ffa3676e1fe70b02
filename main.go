package main

import (
	"context"
	"os"

	"CollabNotes/global/config"
	"CollabNotes/logger"
	"CollabNotes/service/app"
	"CollabNotes/tools/errs"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func run(ctx context.Context, cmd *cli.Command) error {
	conf := config.NewDefaultConfig()
	if err := config.LoadOrDefault(cmd.String("config"), conf); err != nil {
		return errs.WrapMsg(err, "failed to load config")
	}
	logger.Init(conf.App.LogLevel)
	defer logger.Sync()

	a, err := app.New(ctx, conf)
	if err != nil {
		return errs.WrapMsg(err, "app init failed")
	}
	return a.Run(ctx)
}

func main() {
	cmd := &cli.Command{
		Name:   "collab-notes",
		Usage:  "Realtime gateway for collaborative candidate notes",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Error("application error", zap.Error(err))
		os.Exit(1)
	}
}
