package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/harga-api/internal/events"
)

// ReconcileEnqueuer schedules a background reconcile whenever a cart reports
// stale prices. The task id is derived from the cart id, so repeated events
// for the same cart collapse into a single pending task.
type ReconcileEnqueuer struct {
	Client *asynq.Client
	Queue  string
}

// Notify implements events.Notifier.
func (e ReconcileEnqueuer) Notify(ctx context.Context, ev events.Event) error {
	if e.Client == nil || ev.Topic != events.TopicPriceSyncRequired {
		return nil
	}
	task, err := NewCartReconcileTask(ev.AggregateID)
	if err != nil {
		return err
	}
	opts := []asynq.Option{}
	if e.Queue != "" {
		opts = append(opts, asynq.Queue(e.Queue))
	}
	if _, err := e.Client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return err
	}
	return nil
}
