package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/Par123456/selfcursor/internal/logger"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "bogus", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := logger.ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_Formats(t *testing.T) {
	t.Parallel()

	var jsonBuf bytes.Buffer
	logger.NewLogger("info", "json", &jsonBuf).Info("hello", "component", "test")

	var entry map[string]any
	if err := json.Unmarshal(jsonBuf.Bytes(), &entry); err != nil {
		t.Fatalf("JSON handler output is not JSON: %v (%q)", err, jsonBuf.String())
	}
	if entry["msg"] != "hello" || entry["component"] != "test" {
		t.Errorf("entry = %v", entry)
	}

	var textBuf bytes.Buffer
	log := logger.NewLogger("warn", "text", &textBuf)
	log.Info("dropped")
	log.Warn("kept")
	out := textBuf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "msg=kept") {
		t.Errorf("text output = %q", out)
	}
}

func TestNewZap_Level(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	z := logger.NewZap("info", &buf)
	z.Info("chatty")
	z.Warn("important")
	_ = z.Sync()

	out := buf.String()
	if strings.Contains(out, "chatty") || !strings.Contains(out, "important") {
		t.Errorf("zap output = %q", out)
	}
}

func TestOpenOutput_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "selfbot.log")
	out := logger.OpenOutput(logger.FileOptions{Path: path, MaxSizeMB: 1})
	if _, err := out.Write([]byte("line\n")); err != nil {
		t.Fatalf("Write() unexpected error: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Errorf("Close() unexpected error: %v", err)
	}
}

func TestMiddleware_CallsNext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewLogger("debug", "json", &buf)

	called := false
	next := func(_ context.Context, _ *tgbot.Bot, _ *models.Update) { called = true }
	handler := logger.Middleware(log)(next)

	handler(context.Background(), nil, &models.Update{
		ID: 9,
		BusinessMessage: &models.Message{
			ID:                   3,
			Chat:                 models.Chat{ID: 42},
			Text:                 strings.Repeat("x", 80),
			BusinessConnectionID: "conn",
		},
	})

	if !called {
		t.Fatal("next handler not called")
	}
	out := buf.String()
	if !strings.Contains(out, `"update_type":"business_message"`) || !strings.Contains(out, `"business_connection_id":"conn"`) {
		t.Errorf("log output = %q", out)
	}
}

func TestGocronLogger_DemotesInfo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	gl := logger.NewGocronLogger(logger.NewLogger("info", "text", &buf))

	gl.Info("job ran", "name", "throttle_prune")
	if buf.Len() != 0 {
		t.Errorf("info message logged at info level: %q", buf.String())
	}

	gl.Warn("job missed", "name", "sql_maintenance")
	if got := buf.String(); !strings.Contains(got, "job missed") || !strings.Contains(got, "component=gocron") {
		t.Errorf("warn output = %q", got)
	}
}
