// Package bot wires the messaging gateway, the message pipeline and the
// scheduler together and manages their lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Par123456/selfcursor/internal/telegram"
)

// Bot represents the running self-bot and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	gateway   telegram.Gateway
	pipeline  *Pipeline
	scheduler *Scheduler
}

// NewBot creates the orchestrator. scheduler may be nil.
func NewBot(
	logger *slog.Logger,
	gateway telegram.Gateway,
	pipeline *Pipeline,
	scheduler *Scheduler,
) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		gateway:   gateway,
		pipeline:  pipeline,
		scheduler: scheduler,
	}
}

// Run starts the gateway and the scheduler and blocks until ctx is
// cancelled or one of them fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram listener...")

		err := b.gateway.Run(gCtx, b.pipeline.Handle)
		b.logger.Info("Telegram listener stopped.")

		if gCtx.Err() == nil {
			if err == nil {
				err = errors.New("listener returned without error")
			}
			b.logger.Warn("Telegram listener stopped unexpectedly without context cancellation.", "error", err)
			return fmt.Errorf("telegram listener stopped unexpectedly: %w", err)
		}
		return nil
	})

	if b.scheduler != nil {
		g.Go(func() error {
			b.logger.Info("Starting scheduler...")
			if err := b.scheduler.Start(); err != nil {
				b.logger.Error("Failed to start scheduler", "error", err)
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			b.logger.Info("Shutdown signal received, stopping scheduler...")

			if err := b.scheduler.Stop(); err != nil {
				b.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
