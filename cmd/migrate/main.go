package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/howjmay/publicator/internal/config"
	gdb "github.com/howjmay/publicator/internal/db"
	"github.com/howjmay/publicator/internal/log"
)

var (
	flags   = flag.NewFlagSet("migrate", flag.ExitOnError)
	timeout = flags.Duration("timeout", 5*time.Minute, "maximum time for the command")
)

const usage = `Usage: migrate [-timeout d] COMMAND

Commands:
  up       apply all pending migrations
  down     roll back the latest migration
  redo     roll back and re-apply the latest migration
  status   print the state of every migration
  version  print the current schema version`

func main() {
	flags.Parse(os.Args[1:])
	args := flags.Args()

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewSugar(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := gdb.NewSQLDatabase(&gdb.Config{
		Type:     cfg.Database.Type,
		DSN:      cfg.Database.DSN,
		MaxConns: cfg.Database.MaxConns,
	}, logger)
	if err != nil {
		logger.Fatalw("Migrations need a SQL database", "type", cfg.Database.Type, "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		logger.Fatalw("Failed to connect to database", "error", err)
	}
	defer db.Disconnect(context.Background())

	command := args[0]
	if err := db.RunMigrations(ctx, command); err != nil {
		logger.Fatalw("Migration failed", "command", command, "error", err)
	}
	logger.Infow("Migration command finished", "command", command)
}
