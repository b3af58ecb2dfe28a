package main

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	for _, path := range []string{".env", "config/local.env"} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Fatal().Err(err).Str("path", path).Msg("Failed to load env file")
		}
	}

	app := &cli.App{
		Name:    "tunedeck",
		Usage:   "Music catalogue service and headless client",
		Suggest: true,
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			shellCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Fatal().Err(err).Msg("Application exited with error")
	}
}
