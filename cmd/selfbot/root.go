package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/Par123456/selfcursor/internal/autoreply"
	"github.com/Par123456/selfcursor/internal/config"
	"github.com/Par123456/selfcursor/internal/database"
	"github.com/Par123456/selfcursor/internal/logger"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "selfbot",
		Short:        "Telegram self-bot with AFK notices and keyword auto-replies",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", config.DefaultConfigPath, "Path to configuration file")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newRulesCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	out    io.WriteCloser
	db     *sqlx.DB
	store  database.Store
	engine *autoreply.Engine
}

// openApp loads the configuration, sets up logging and loads the engine
// from the database.
func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return nil, err
	}

	out := logger.OpenOutput(logger.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.FileMaxSizeMB,
		MaxBackups: cfg.Log.FileMaxBackups,
		MaxAgeDays: cfg.Log.FileMaxAgeDays,
	})
	log := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, out)
	slog.SetDefault(log)
	log.Debug("Logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		_ = out.Close()
		return nil, err
	}
	store := database.NewStore(db, log)

	engine := autoreply.New(store, autoreply.Config{
		Cooldown:       cfg.Afk.Cooldown,
		DefaultReason:  cfg.Afk.DefaultReason,
		NoticeTemplate: cfg.Afk.NoticeTemplate,
	}, log)
	if err := engine.Load(ctx); err != nil {
		log.Error("Failed to load auto-reply state", "error", err)
		database.CloseDB(db)
		_ = out.Close()
		return nil, err
	}

	return &app{cfg: cfg, log: log, out: out, db: db, store: store, engine: engine}, nil
}

func (a *app) Close() {
	database.CloseDB(a.db)
	if err := a.out.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log output: %v\n", err)
	}
}
