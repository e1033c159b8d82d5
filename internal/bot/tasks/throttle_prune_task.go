package tasks

import (
	"context"
)

// newThrottlePruneTask drops AFK notice throttle entries whose cool-down
// has passed, so the throttle does not grow with every chat that ever
// wrote during an AFK period.
func newThrottlePruneTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "throttle_prune")

	return func(ctx context.Context) error {
		removed := deps.Engine.PruneThrottle()
		if removed > 0 {
			log.DebugContext(ctx, "Pruned throttle entries", "removed", removed)
		}
		return nil
	}
}
