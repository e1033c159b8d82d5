package autoreply

import "time"

type throttleEntry struct {
	lastMessageID int
	sentAt        time.Time
}

// throttle remembers, per chat, the last message that already triggered an
// AFK notice. It lives only as long as the process.
type throttle map[int64]throttleEntry

// suppressed reports whether a notice for messageID in chatID would repeat
// one already sent: either the message is not newer than the one already
// answered, or the cool-down since the last notice has not elapsed. A
// non-positive cooldown holds until the entry is reset.
func (t throttle) suppressed(chatID int64, messageID int, now time.Time, cooldown time.Duration) bool {
	entry, ok := t[chatID]
	if !ok {
		return false
	}
	if messageID != 0 && messageID <= entry.lastMessageID {
		return true
	}
	if cooldown <= 0 {
		return true
	}
	return now.Sub(entry.sentAt) < cooldown
}

func (t throttle) record(chatID int64, messageID int, now time.Time) {
	t[chatID] = throttleEntry{lastMessageID: messageID, sentAt: now}
}

func (t throttle) prune(now time.Time, cooldown time.Duration) int {
	if cooldown <= 0 {
		return 0
	}
	removed := 0
	for chatID, entry := range t {
		if now.Sub(entry.sentAt) >= cooldown {
			delete(t, chatID)
			removed++
		}
	}
	return removed
}
