package main

import (
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"tunedeck/internal/config"
	"tunedeck/migrations"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply or roll back the Postgres schema",
		Subcommands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply all pending migrations",
				Action: func(c *cli.Context) error { return runMigrations(c, migrations.Up) },
			},
			{
				Name:   "down",
				Usage:  "Roll back every migration",
				Action: func(c *cli.Context) error { return runMigrations(c, migrations.Down) },
			},
		},
	}
}

func runMigrations(c *cli.Context, dir migrations.Direction) error {
	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}

	db, err := openDatabase(c.Context, dbCfg.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Run(db, dir); err != nil {
		return err
	}
	log.Info().Str("direction", string(dir)).Msg("Migrations applied")
	return nil
}
