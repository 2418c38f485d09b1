// Package orchestrator drives one conversational turn against the assistants
// backend: it posts the user message, opens the run event stream, folds
// events into the conversation store and the message's plan, resolves
// client-side tool calls when the server requires action, and handles
// mid-flight cancellation.
//
// Only one turn is ever in flight. All event handling happens on the single
// goroutine draining the stream-call queue, so the conversation store needs
// no coordination beyond its snapshot discipline.
package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/scribelabs/scribe/pkg/api"
	"github.com/scribelabs/scribe/pkg/chat"
	"github.com/scribelabs/scribe/pkg/events"
	"github.com/scribelabs/scribe/pkg/logger"
	"github.com/scribelabs/scribe/pkg/tools"
	"github.com/scribelabs/scribe/pkg/transport"
)

// Status is the orchestrator's turn lifecycle state.
type Status string

const (
	// StatusReady means no turn is in flight.
	StatusReady Status = "ready"
	// StatusFetching means a stream is open or about to open.
	StatusFetching Status = "fetching"
	// StatusWaiting means the server required action and client tools are
	// being resolved.
	StatusWaiting Status = "waiting"
)

// InvariantError signals a state machine bug: the conversation is not in the
// shape an event requires. Unlike runtime failures it propagates to the
// caller instead of being attached to the message.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return "invariant violation: " + e.Reason
}

// Options configures an Orchestrator.
type Options struct {
	Client         *api.Client
	Store          *chat.Store
	Tools          *tools.Registry
	AssistantID    string
	AssistantTools []string
	// ThreadID resumes an existing thread; empty means create one lazily.
	ThreadID string
	// OnTurnComplete fires when the server reports the final message text,
	// letting callers refresh cached message lists.
	OnTurnComplete func(threadID string)
}

// Orchestrator sequences the components of one turn.
type Orchestrator struct {
	client   *api.Client
	store    *chat.Store
	registry *tools.Registry

	assistantID    string
	assistantTools []string
	onTurnComplete func(string)

	mu       sync.Mutex
	status   Status
	cancel   context.CancelFunc
	threadID string

	runMu sync.RWMutex
	runs  map[string]events.Run
}

// New creates an orchestrator in the ready state.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		client:         opts.Client,
		store:          opts.Store,
		registry:       opts.Tools,
		assistantID:    opts.AssistantID,
		assistantTools: opts.AssistantTools,
		onTurnComplete: opts.OnTurnComplete,
		status:         StatusReady,
		threadID:       opts.ThreadID,
		runs:           make(map[string]events.Run),
	}
}

// SendOptions tunes one SendMessage call.
type SendOptions struct {
	// Regenerate reruns the last user message instead of posting a new one.
	Regenerate bool
	// Attachments lists file ids to attach to the user message.
	Attachments []string
	// SessionTools adds server tool ids for this session only.
	SessionTools []string
	// DisabledTools removes server tool ids the user turned off.
	DisabledTools []string
}

// Result reports how a turn ended.
type Result struct {
	Aborted  bool
	ThreadID string
}

// Status returns the current turn lifecycle state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

func (o *Orchestrator) setStatus(s Status) {
	o.mu.Lock()
	o.status = s
	o.mu.Unlock()
}

// ThreadID returns the active thread id, empty before the first turn.
func (o *Orchestrator) ThreadID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.threadID
}

// Run returns the last known server-reported snapshot for a run id.
func (o *Orchestrator) Run(id string) (events.Run, bool) {
	o.runMu.RLock()
	defer o.runMu.RUnlock()
	r, ok := o.runs[id]
	return r, ok
}

func (o *Orchestrator) cacheRun(run events.Run) {
	if run.ID == "" {
		return
	}
	o.runMu.Lock()
	o.runs[run.ID] = run
	o.runMu.Unlock()
}

// SendMessage executes one full turn. Runtime failures are attached to the
// trailing assistant message rather than returned; the error return is
// reserved for invariant violations.
func (o *Orchestrator) SendMessage(ctx context.Context, content string, opts SendOptions) (Result, error) {
	o.mu.Lock()
	if o.status != StatusReady {
		o.mu.Unlock()
		logger.Warn("orchestrator: send rejected, turn already in flight")
		return Result{Aborted: true}, nil
	}
	o.status = StatusFetching
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.mu.Unlock()

	defer func() {
		cancel()
		o.mu.Lock()
		o.status = StatusReady
		o.cancel = nil
		o.mu.Unlock()
	}()

	o.pushPlaceholders(content, opts)

	if err := o.ensureThread(runCtx); err != nil {
		o.failTurn(err)
		return Result{ThreadID: o.ThreadID()}, nil
	}
	if !opts.Regenerate {
		req := api.MessageRequest{Role: chat.RoleUser, Content: content, Attachments: opts.Attachments}
		if _, err := o.client.CreateMessage(runCtx, o.ThreadID(), req); err != nil {
			o.failTurn(err)
			return Result{ThreadID: o.ThreadID()}, nil
		}
	}

	h := newRunHandler(o, runCtx)
	runReq := api.RunRequest{
		AssistantID: o.assistantID,
		Tools:       activeTools(o.assistantTools, opts.SessionTools, opts.DisabledTools),
	}
	threadID := o.ThreadID()
	h.enqueue(func(ctx context.Context) error {
		return o.client.StreamRun(ctx, threadID, runReq, h)
	})
	err := h.drain(runCtx)

	var invErr *InvariantError
	if errors.As(err, &invErr) {
		return Result{ThreadID: threadID}, err
	}

	if runCtx.Err() != nil || transport.IsAbort(err) {
		o.cleanupAfterAbort(h.runID)
		return Result{Aborted: true, ThreadID: threadID}, nil
	}

	if err != nil {
		o.failTurn(err)
		return Result{ThreadID: threadID}, nil
	}

	o.store.Update(func(d *chat.Draft) {
		if last := d.Last(); last != nil && last.IsAssistant() {
			last.Pending = false
		}
	})
	return Result{ThreadID: threadID}, nil
}

// pushPlaceholders appends the user message and the pending assistant
// placeholder the run streams into. On regenerate the previous assistant
// message is replaced and the user message reused as-is.
func (o *Orchestrator) pushPlaceholders(content string, opts SendOptions) {
	o.store.Update(func(d *chat.Draft) {
		if opts.Regenerate {
			if last := d.Last(); last != nil && last.IsAssistant() {
				d.TrimLast(1)
			}
		} else {
			d.Append(chat.NewUserMessage(content, opts.Attachments...))
		}
		d.Append(chat.NewPendingAssistantMessage())
	})
}

func (o *Orchestrator) ensureThread(ctx context.Context) error {
	if o.ThreadID() != "" {
		return nil
	}
	thread, err := o.client.CreateThread(ctx)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.threadID = thread.ID
	o.mu.Unlock()
	logger.Debug("orchestrator: created thread %s", thread.ID)
	return nil
}

// failTurn attaches err to the trailing assistant message, preserving any
// partial content or plan already streamed.
func (o *Orchestrator) failTurn(err error) {
	logger.Error("orchestrator: turn failed: %v", err)
	o.store.Update(func(d *chat.Draft) {
		if last := d.Last(); last != nil && last.IsAssistant() {
			last.Err = err
			last.Pending = false
		}
	})
}

// activeTools computes the server tool set for the run: the assistant's
// configured tools plus session additions, minus user-disabled ids.
func activeTools(base, extra, disabled []string) []string {
	seen := make(map[string]struct{})
	off := make(map[string]struct{}, len(disabled))
	for _, id := range disabled {
		off[id] = struct{}{}
	}
	active := make([]string, 0, len(base)+len(extra))
	for _, id := range append(append([]string{}, base...), extra...) {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, skip := off[id]; skip {
			continue
		}
		active = append(active, id)
	}
	return active
}
