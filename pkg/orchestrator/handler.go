package orchestrator

import (
	"context"

	"github.com/scribelabs/scribe/pkg/chat"
	"github.com/scribelabs/scribe/pkg/events"
	"github.com/scribelabs/scribe/pkg/logger"
	"github.com/scribelabs/scribe/pkg/plan"
	"github.com/scribelabs/scribe/pkg/transport"
)

// streamCall opens one event stream. Calls are executed strictly one at a
// time by the drain loop.
type streamCall func(ctx context.Context) error

// runHandler receives every frame of a logical run, across the initial
// stream and any tool-output continuation streams. The same handler instance
// serves all of them, so the combined event history stays a single linear
// sequence.
type runHandler struct {
	o   *Orchestrator
	ctx context.Context
	// queue is the single-consumer FIFO of pending stream calls. Its
	// drain loop is what makes "at most one open stream" structural: a
	// continuation enqueued while a stream is open only runs after that
	// stream has fully ended.
	queue chan streamCall
	// runID is captured from thread.run.created and reused for the
	// tool-output continuation and for best-effort remote cancel.
	runID string
}

func newRunHandler(o *Orchestrator, ctx context.Context) *runHandler {
	return &runHandler{
		o:     o,
		ctx:   ctx,
		queue: make(chan streamCall, 4),
	}
}

func (h *runHandler) enqueue(call streamCall) {
	select {
	case h.queue <- call:
	default:
		// Cannot happen with one continuation per requires_action, but a
		// dropped continuation must not hang the turn silently.
		logger.Error("orchestrator: stream call queue full, dropping continuation")
	}
}

// drain executes queued stream calls until the queue is empty or a call
// fails. Continuations enqueued during a call are picked up on the next
// iteration.
func (h *runHandler) drain(ctx context.Context) error {
	for {
		select {
		case call := <-h.queue:
			if err := call(ctx); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// HandleRetry implements transport.Handler. The server restarted generation;
// accumulated content for the pending message is discarded.
func (h *runHandler) HandleRetry() {
	h.o.store.Update(func(d *chat.Draft) {
		if last := d.Last(); last != nil && last.IsAssistant() {
			last.Content = ""
		}
	})
}

// HandleEvent implements transport.Handler and routes one classified event.
func (h *runHandler) HandleEvent(ev events.Event) error {
	switch {
	case events.IsRunEvent(ev.Name):
		run, err := events.DecodeRun(ev)
		if err != nil {
			return &transport.ProtocolError{Reason: "malformed run payload: " + err.Error()}
		}
		return h.handleRun(ev.Name, run)
	case events.IsStepEvent(ev.Name):
		step, err := events.DecodeStep(ev)
		if err != nil {
			return &transport.ProtocolError{Reason: "malformed step payload: " + err.Error()}
		}
		h.applyToPlan(func(p *plan.Plan) *plan.Plan { return plan.ApplyStep(step, p) })
		return nil
	case events.IsStepDelta(ev.Name):
		delta, err := events.DecodeStepDelta(ev)
		if err != nil {
			return &transport.ProtocolError{Reason: "malformed step delta payload: " + err.Error()}
		}
		h.applyToPlan(func(p *plan.Plan) *plan.Plan { return plan.ApplyStepDelta(delta, p) })
		return nil
	case events.IsMessageCreated(ev.Name):
		msg, err := events.DecodeMessage(ev)
		if err != nil {
			return &transport.ProtocolError{Reason: "malformed message payload: " + err.Error()}
		}
		h.handleMessageCreated(msg)
		return nil
	case events.IsMessageDelta(ev.Name):
		delta, err := events.DecodeMessageDelta(ev)
		if err != nil {
			return &transport.ProtocolError{Reason: "malformed message delta payload: " + err.Error()}
		}
		h.handleMessageDelta(delta)
		return nil
	case events.IsMessageCompleted(ev.Name):
		msg, err := events.DecodeMessage(ev)
		if err != nil {
			return &transport.ProtocolError{Reason: "malformed message payload: " + err.Error()}
		}
		h.handleMessageCompleted(msg)
		return nil
	default:
		logger.Debug("orchestrator: ignoring event %s", ev.Name)
		return nil
	}
}

func (h *runHandler) handleRun(name string, run events.Run) error {
	h.o.cacheRun(run)

	if name == events.RunCreated {
		h.runID = run.ID
		var invErr error
		h.o.store.Update(func(d *chat.Draft) {
			last := d.Last()
			if last == nil || !last.IsAssistant() || !last.Pending {
				invErr = &InvariantError{Reason: "run created but the last message is not the pending assistant placeholder"}
				return
			}
			last.RunID = run.ID
		})
		return invErr
	}

	if name == events.RunRequiresAction {
		return h.handleRequiresAction(run)
	}

	logger.Debug("orchestrator: run %s status %s", run.ID, run.Status)
	return nil
}

// applyToPlan rewrites the pending message's plan through fn.
func (h *runHandler) applyToPlan(fn func(*plan.Plan) *plan.Plan) {
	h.o.store.Update(func(d *chat.Draft) {
		last := d.Last()
		if last == nil || !last.IsAssistant() {
			return
		}
		last.Plan = fn(last.Plan)
	})
}

func (h *runHandler) handleMessageCreated(msg events.Message) {
	h.o.store.Update(func(d *chat.Draft) {
		if last := d.Last(); last != nil && last.IsAssistant() {
			last.ID = msg.ID
		}
	})
}

func (h *runHandler) handleMessageDelta(delta events.MessageDeltaEvent) {
	text := delta.Text()
	if text == "" {
		return
	}
	h.o.store.Update(func(d *chat.Draft) {
		last := d.Last()
		if last == nil || !last.IsAssistant() {
			return
		}
		last.Content += text
		// Content started streaming: the plan is no longer the pending
		// part of the answer.
		last.Plan = plan.WithPending(last.Plan, false)
	})
}

func (h *runHandler) handleMessageCompleted(msg events.Message) {
	final := msg.Text()
	h.o.store.Update(func(d *chat.Draft) {
		last := d.Last()
		if last == nil || !last.IsAssistant() {
			return
		}
		if msg.ID != "" {
			last.ID = msg.ID
		}
		// The completed payload is authoritative over accumulated deltas.
		last.Content = final
		last.Plan = plan.WithPending(last.Plan, false)
	})
	if h.o.onTurnComplete != nil {
		h.o.onTurnComplete(h.o.ThreadID())
	}
}
