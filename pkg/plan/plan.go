// Package plan reconstructs a structured execution plan (thoughts, tool
// calls, sources) for one assistant message from the partial step events of a
// run. Assembly is copy-on-write: callers hand in the previous plan and
// receive an updated copy, so renderers holding an earlier snapshot never see
// it change underneath them.
package plan

import "github.com/scribelabs/scribe/pkg/events"

// Plan is the client-side reconstruction of a run's steps. It is owned
// exclusively by its assistant message and lives exactly as long as that
// message.
type Plan struct {
	Key string
	// Pending is true until message content starts streaming.
	Pending bool
	// Steps are ordered by first observation and never reordered on update.
	Steps []Step
}

// Step is one unit of run progress: a thought or a batch of tool calls.
type Step struct {
	ID        string
	Status    string
	ToolCalls []ToolCall
	// Thought is nil until a thought step applies to this step, either
	// directly or by inheritance from the nearest preceding thought.
	Thought   *string
	LastError *events.RunError
}

// ToolCall is one tool invocation within a step. ID is minted client-side
// and stable per (step, position) across successive revisions of the step.
type ToolCall struct {
	ID     string
	Type   string
	ToolID string
	Input  string
	Result string
	// Sources lists attribution URLs; only system calls produce them.
	Sources []string
}

// step returns the step with the given id and its position, or -1.
func (p *Plan) step(id string) (int, *Step) {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return i, &p.Steps[i]
		}
	}
	return -1, nil
}

// clone returns a shallow plan copy with its own steps slice, deep enough
// for the assembler to replace entries without touching the original.
func (p *Plan) clone() *Plan {
	cp := &Plan{Key: p.Key, Pending: p.Pending}
	cp.Steps = make([]Step, len(p.Steps))
	copy(cp.Steps, p.Steps)
	return cp
}

// WithPending returns a copy of p with the pending flag set to v, or p
// itself when the flag already matches.
func WithPending(p *Plan, v bool) *Plan {
	if p == nil || p.Pending == v {
		return p
	}
	cp := p.clone()
	cp.Pending = v
	return cp
}

// CancelInProgress returns a copy of p with every in_progress step rewritten
// to cancelled, so a partially streamed answer is visibly marked incomplete.
func CancelInProgress(p *Plan) *Plan {
	if p == nil {
		return nil
	}
	cp := p.clone()
	for i := range cp.Steps {
		if cp.Steps[i].Status == events.StatusInProgress {
			cp.Steps[i].Status = events.StatusCancelled
		}
	}
	return cp
}
