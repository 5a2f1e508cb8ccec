package main

import (
	"io/fs"
	stdLog "log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zerodice0/readzone/readzone/app"
	"github.com/zerodice0/readzone/readzone/config"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		stdLog.Fatal("load envs from .env ", zap.Error(err))
	}

	cliApp := &cli.App{
		Name:  "readzone",
		Usage: "book search and review feed API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "debug",
				Usage:   "zap log level",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start http server, event consumer and scheduler",
				Action: func(ctx *cli.Context) error {
					cfg, err := loadConfig(ctx)
					if err != nil {
						return err
					}
					app.Run(cfg)
					return nil
				},
			},
			{
				Name:  "migrate",
				Usage: "apply database migrations and exit",
				Action: func(ctx *cli.Context) error {
					cfg, err := loadConfig(ctx)
					if err != nil {
						return err
					}
					return app.Migrate(cfg)
				},
			},
		},
		DefaultCommand: "serve",
	}
	if err := cliApp.Run(os.Args); err != nil {
		stdLog.Fatal("readzone ", err)
	}
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	level, err := zapcore.ParseLevel(ctx.String("log-level"))
	if err != nil {
		return nil, errors.Wrap(err, "log-level")
	}
	return config.NewConfig(
		config.WithLogLevel(level),
		config.WithWriteTimeout(time.Minute),
	), nil
}
