package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Par123456/selfcursor/internal/autoreply"
	"github.com/Par123456/selfcursor/internal/autoreply/autoreplytest"
)

// fakeStore adds the housekeeping calls to an in-memory store.
type fakeStore struct {
	*autoreplytest.MemStore
	pingErr        error
	maintenanceErr error
	maintenance    int
}

func (s *fakeStore) Ping(context.Context) error { return s.pingErr }

func (s *fakeStore) RunSQLMaintenance(context.Context) error {
	s.maintenance++
	return s.maintenanceErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()

	got := RegisterAllTasks(TaskDeps{Logger: discardLogger()})
	for _, name := range []string{"sql_maintenance", "throttle_prune"} {
		if got[name] == nil {
			t.Errorf("task %q not registered", name)
		}
	}
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()

	down := errors.New("disk I/O error")

	tests := []struct {
		name            string
		store           *fakeStore
		wantErr         bool
		wantMaintenance int
	}{
		{name: "Success", store: &fakeStore{}, wantMaintenance: 1},
		{name: "Ping fails", store: &fakeStore{pingErr: down}, wantErr: true, wantMaintenance: 0},
		{name: "Vacuum fails", store: &fakeStore{maintenanceErr: down}, wantErr: true, wantMaintenance: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.store.MemStore = autoreplytest.NewMemStore()

			task := newSQLMaintenanceTask(TaskDeps{Logger: discardLogger(), Store: tt.store})
			err := task(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("task() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, down) {
				t.Errorf("task() error = %v, want it to wrap %v", err, down)
			}
			if tt.store.maintenance != tt.wantMaintenance {
				t.Errorf("maintenance ran %d times, want %d", tt.store.maintenance, tt.wantMaintenance)
			}
		})
	}
}

func TestThrottlePruneTask(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 3, 6, 22, 30, 0, 0, time.UTC)
	engine := autoreply.New(autoreplytest.NewMemStore(), autoreply.Config{
		Cooldown: time.Minute,
		Now:      func() time.Time { return now },
	}, discardLogger())
	if err := engine.Load(ctx); err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if _, err := engine.SetAfk(ctx, "out"); err != nil {
		t.Fatalf("SetAfk() unexpected error: %v", err)
	}

	msg := autoreply.Message{ChatID: 7, MessageID: 1, SenderID: 7, Text: "hi", IsPrivate: true}
	if got := engine.Decide(msg); got.Kind != autoreply.SendAfkNotice {
		t.Fatalf("Decide() = %v, want afk notice", got.Kind)
	}
	if got := engine.Status().Throttled; got != 1 {
		t.Fatalf("Throttled = %d, want 1", got)
	}

	task := newThrottlePruneTask(TaskDeps{Logger: discardLogger(), Engine: engine})

	if err := task(ctx); err != nil {
		t.Fatalf("task() unexpected error: %v", err)
	}
	if got := engine.Status().Throttled; got != 1 {
		t.Errorf("Throttled after early prune = %d, want 1", got)
	}

	now = now.Add(2 * time.Minute)
	if err := task(ctx); err != nil {
		t.Fatalf("task() unexpected error: %v", err)
	}
	if got := engine.Status().Throttled; got != 0 {
		t.Errorf("Throttled after cool-down = %d, want 0", got)
	}
}
