package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Par123456/selfcursor/internal/bot"
	"github.com/Par123456/selfcursor/internal/bot/handlers"
	"github.com/Par123456/selfcursor/internal/bot/tasks"
	"github.com/Par123456/selfcursor/internal/config"
	"github.com/Par123456/selfcursor/internal/logger"
	"github.com/Par123456/selfcursor/internal/telegram"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Telegram and answer messages until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runBot,
	}
}

// runBot starts the gateway, pipeline and scheduler and blocks until the
// command context is cancelled or a component fails.
func runBot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.log

	gateway := newGateway(a)

	hDeps := handlers.HandlerDeps{
		Logger:  log,
		Config:  a.cfg,
		Engine:  a.engine,
		Gateway: gateway,
		Started: time.Now(),
	}
	router := handlers.NewRouter(hDeps, handlers.RegisterAllCommands(hDeps))
	pipeline := bot.NewPipeline(log, a.cfg, a.engine, gateway, router)

	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  a.store,
		Engine: a.engine,
		Config: a.cfg,
	}
	sched, err := bot.NewScheduler(log, &a.cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return err
	}

	log.Info("Starting self-bot...", "backend", a.cfg.Telegram.Backend)
	runErr := bot.NewBot(log, gateway, pipeline, sched).Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, ctx.Err()) {
		log.Error("Bot stopped due to error", "error", runErr)
		return fmt.Errorf("bot stopped: %w", runErr)
	}

	log.Info("Bot stopped gracefully.")
	return nil
}

func newGateway(a *app) telegram.Gateway {
	if a.cfg.Telegram.Backend == config.BackendBotAPI {
		return telegram.NewBotAPI(a.cfg.Telegram.BotToken, a.cfg.Telegram.OwnerID, a.log)
	}
	return telegram.NewMTProto(a.cfg.Telegram, a.log, logger.NewZap(a.cfg.Log.Level, a.out))
}
