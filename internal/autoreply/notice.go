package autoreply

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// noticeLocked renders the AFK notice. Caller holds e.mu.
func (e *Engine) noticeLocked(now time.Time) string {
	reason := e.afk.Reason
	if reason == "" {
		reason = e.defaultReason
	}

	return strings.NewReplacer(
		"{reason}", reason,
		"{duration}", Elapsed(e.afk.Since, now),
	).Replace(e.noticeTemplate)
}

// Elapsed renders the time between since and now as "3 hours",
// "2 minutes" or "now".
func Elapsed(since, now time.Time) string {
	if since.IsZero() {
		return "unknown"
	}
	if !now.After(since) {
		return "now"
	}
	return strings.TrimSpace(humanize.RelTime(since, now, "", ""))
}

// FormatDuration renders d the way Elapsed does. It does not read the clock.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "now"
	}
	var epoch time.Time
	return strings.TrimSpace(humanize.RelTime(epoch, epoch.Add(d), "", ""))
}
