package orchestrator

import (
	"context"
	"time"

	"github.com/scribelabs/scribe/pkg/chat"
	"github.com/scribelabs/scribe/pkg/logger"
	"github.com/scribelabs/scribe/pkg/plan"
)

// remoteCancelTimeout bounds the best-effort cancel call issued after the
// local abort already fired.
const remoteCancelTimeout = 5 * time.Second

// Cancel aborts the in-flight turn, if any. Safe to call from any goroutine;
// the abort is observed cooperatively at the next stream read or awaited
// step.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		logger.Info("orchestrator: cancellation requested")
		cancel()
	}
}

// cleanupAfterAbort runs once the aborted turn has unwound. It issues an
// advisory remote cancel, then either rolls the placeholder pair back (so
// the user can resubmit verbatim) or keeps the partial answer and marks its
// unfinished steps cancelled.
func (o *Orchestrator) cleanupAfterAbort(runID string) {
	if runID != "" {
		// The turn context is already dead; use a fresh one for the
		// advisory call.
		ctx, cancel := context.WithTimeout(context.Background(), remoteCancelTimeout)
		defer cancel()
		if err := o.client.CancelRun(ctx, o.ThreadID(), runID); err != nil {
			logger.Debug("orchestrator: remote cancel failed: %v", err)
		}
	}

	o.store.Update(func(d *chat.Draft) {
		last := d.Last()
		if last == nil || !last.IsAssistant() {
			return
		}
		if last.Empty() {
			trim := 1
			if d.Len() >= 2 && d.At(d.Len()-2).IsUser() {
				trim = 2
			}
			d.TrimLast(trim)
			return
		}
		last.Pending = false
		last.Plan = plan.CancelInProgress(last.Plan)
	})
}
