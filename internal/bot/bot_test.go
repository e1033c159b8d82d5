package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Par123456/selfcursor/internal/bot/tasks"
	"github.com/Par123456/selfcursor/internal/config"
	"github.com/Par123456/selfcursor/internal/telegram"
	"github.com/Par123456/selfcursor/internal/telegram/telegramtest"
)

func TestScheduler_StartRegistersEnabledTasks(t *testing.T) {
	t.Parallel()

	noop := func(context.Context) error { return nil }
	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"sql_maintenance": {Enabled: true, Schedule: "0 0 3 * * *"},
		"throttle_prune":  {Enabled: false, Schedule: "0 */5 * * * *"},
		"missing":         {Enabled: true, Schedule: "0 0 * * * *"},
		"broken":          {Enabled: true, Schedule: "not a cron"},
	}}
	taskMap := map[string]tasks.ScheduledTaskFunc{
		"sql_maintenance": noop,
		"throttle_prune":  noop,
		"broken":          noop,
	}

	s, err := NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg, taskMap)
	if err != nil {
		t.Fatalf("NewScheduler() unexpected error: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop() })

	if err := s.Start(); err == nil {
		t.Error("second Start() succeeded, want error")
	}
	if got := s.Jobs(); !slices.Equal(got, []string{"sql_maintenance"}) {
		t.Errorf("Jobs() = %v, want [sql_maintenance]", got)
	}
}

func TestScheduler_StopWhenNotRunning(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(nil, nil, nil)
	if err != nil {
		t.Fatalf("NewScheduler() unexpected error: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() unexpected error: %v", err)
	}
}

// failingGateway stops on its own with an error.
type failingGateway struct {
	*telegramtest.Gateway
}

func (failingGateway) Run(context.Context, telegram.Handler) error {
	return errors.New("auth key revoked")
}

func TestBot_Run(t *testing.T) {
	t.Parallel()

	t.Run("Delivers messages until cancelled", func(t *testing.T) {
		t.Parallel()

		p, gw, engine := newTestPipeline(t, false)
		gw.Queue(outgoing(testFriend, 1, ".afk"))

		ctx, cancel := context.WithCancel(context.Background())
		var done atomic.Bool
		go func() {
			for !engine.Afk().Active {
				time.Sleep(time.Millisecond)
			}
			done.Store(true)
			cancel()
		}()

		b := NewBot(slog.New(slog.NewTextHandler(io.Discard, nil)), gw, p, nil)
		if err := b.Run(ctx); err != nil {
			t.Fatalf("Run() unexpected error: %v", err)
		}
		if !done.Load() {
			t.Error("Run() returned before the queued command was handled")
		}
	})

	t.Run("Gateway failure stops the bot", func(t *testing.T) {
		t.Parallel()

		p, gw, _ := newTestPipeline(t, false)
		b := NewBot(slog.New(slog.NewTextHandler(io.Discard, nil)), failingGateway{gw}, p, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.Run(ctx); err == nil {
			t.Fatal("Run() error = nil, want listener failure")
		}
	})
}
