package main

import (
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"

	"github.com/americano-tennis/internal/auth"
	"github.com/americano-tennis/internal/config"
	"github.com/americano-tennis/internal/matchmaker"
	"github.com/americano-tennis/internal/postgres"
	"github.com/americano-tennis/internal/redis"
	"github.com/americano-tennis/internal/service"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "americanoctl",
		Usage: "maintenance tasks for the americano tournament server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "configs/config.yaml",
				Usage: "path to the configuration file",
			},
			&cli.StringFlag{
				Name:  "env",
				Value: ".env",
				Usage: "path to an optional .env file",
			},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			hashPasswordCommand(),
			reconcileCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if _, err := config.LoadEnv(c.String("env")); err != nil {
		return nil, err
	}
	return config.Load(c.String("config"))
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create or update the PostgreSQL schema",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			repo, err := postgres.NewRepository(&cfg.Postgres, newLogger())
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.RunMigrations(c.Context); err != nil {
				return err
			}
			fmt.Println("Schema is up to date")
			return nil
		},
	}
}

func hashPasswordCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash-password",
		Usage:     "print the bcrypt hash to use as auth.admin_password_hash",
		ArgsUsage: "<password>",
		Action: func(c *cli.Context) error {
			password := c.Args().First()
			if password == "" {
				return fmt.Errorf("password argument is required")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
}

func reconcileCommand() *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "recompute stored totals from match history and refresh the standings cache",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:     "tournament",
				Usage:    "tournament ID",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger := newLogger()

			repo, err := postgres.NewRepository(&cfg.Postgres, logger)
			if err != nil {
				return err
			}
			defer repo.Close()

			var cache service.StandingsCache
			if cfg.Redis.Enabled {
				standings, err := redis.NewStandingsCache(&cfg.Redis, logger)
				if err != nil {
					logger.Warn("redis unavailable, skipping cache refresh", "error", err)
				} else {
					defer standings.Close()
					cache = standings
				}
			}

			engine := matchmaker.NewEngine(rand.New(rand.NewSource(cfg.Scheduler.Seed)), cfg.Scheduler.TrialBudget)
			svc := service.NewTournamentService(repo, engine, cache, nil, nil, &cfg.Scheduler, &cfg.Standings, logger)

			tournamentID := c.Int64("tournament")
			corrected, err := svc.ReconcileTournament(c.Context, tournamentID)
			if err != nil {
				return err
			}
			if err := svc.SyncToCache(c.Context, tournamentID); err != nil {
				return err
			}
			fmt.Printf("Tournament %d reconciled, %d totals corrected\n", tournamentID, corrected)
			return nil
		},
	}
}
