// Package rollover advances incomplete tasks to the current canonical day on
// each dashboard load, so overdue work stays visible instead of rotting in a
// backlog the user never revisits.
package rollover

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/harrisonrobin/daypilot/pkg/model"
	"github.com/harrisonrobin/daypilot/pkg/store"
	"github.com/harrisonrobin/daypilot/pkg/timezone"
)

// Sweeper rolls overdue tasks forward.
type Sweeper struct {
	store store.Store
	clock *timezone.Clock
}

func NewSweeper(st store.Store, clock *timezone.Clock) *Sweeper {
	return &Sweeper{store: st, clock: clock}
}

// RolloverIncomplete rewrites the date of every incomplete task dated before
// today to today, regardless of category or calendar origin, and returns how
// many were rolled. Partial failure is tolerated: successful updates stand,
// and the failures are reported in the returned error. A second call in the
// same day finds nothing overdue, which is the intended steady state.
func (s *Sweeper) RolloverIncomplete(ctx context.Context, userID string) (int, error) {
	tasks, err := s.store.ListTasks(ctx, userID)
	if err != nil {
		return 0, err
	}

	today := model.Date(s.clock.Today())
	rolled := 0
	failed := 0
	for _, task := range tasks {
		if task.Completed || !task.Date.Before(today) {
			continue
		}
		date := today
		if err := s.store.UpdateTask(ctx, userID, task.ID, model.TaskPatch{Date: &date}); err != nil {
			log.Error("failed to roll task forward", "task", task.ID, "err", err)
			failed++
			continue
		}
		rolled++
	}

	if failed > 0 {
		return rolled, fmt.Errorf("%d of %d overdue tasks could not be rolled forward", failed, rolled+failed)
	}
	return rolled, nil
}
