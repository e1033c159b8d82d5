// Package tasks implements the self-bot's scheduled housekeeping jobs.
package tasks

import (
	"log/slog"

	"github.com/Par123456/selfcursor/internal/autoreply"
	"github.com/Par123456/selfcursor/internal/config"
	"github.com/Par123456/selfcursor/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Engine *autoreply.Engine
	Config *config.Config
}
