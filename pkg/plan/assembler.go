package plan

import (
	"github.com/google/uuid"
	"github.com/scribelabs/scribe/pkg/events"
)

// ApplyStep folds a non-delta step event into the plan and returns the
// updated copy. Passing a nil plan creates one; the first step event for an
// assistant message is what brings its plan into existence.
//
// A step already present keeps its position; a new step is appended, so step
// order is the order of first observation regardless of later updates.
func ApplyStep(step events.Step, p *Plan) *Plan {
	if p == nil {
		p = &Plan{Key: uuid.NewString(), Pending: true}
	} else {
		p = p.clone()
	}

	idx, existing := p.step(step.ID)

	// Thought events arrive as their own step but semantically apply to
	// every subsequent tool-call step until superseded, so a new step
	// inherits the nearest preceding thought.
	var thought *string
	if existing != nil {
		thought = existing.Thought
	} else {
		for i := len(p.Steps) - 1; i >= 0; i-- {
			if p.Steps[i].Thought != nil {
				thought = p.Steps[i].Thought
				break
			}
		}
	}

	next := Step{
		ID:        step.ID,
		Status:    step.Status,
		Thought:   thought,
		LastError: step.LastError,
	}
	if existing != nil {
		next.ToolCalls = existing.ToolCalls
	}

	switch step.StepDetails.Type {
	case events.DetailToolCalls:
		next.ToolCalls = assembleToolCalls(step.StepDetails.ToolCalls, next.ToolCalls)
	case events.DetailThought:
		t := step.StepDetails.Thought
		next.Thought = &t
	}

	if idx >= 0 {
		p.Steps[idx] = next
	} else {
		p.Steps = append(p.Steps, next)
	}
	return p
}

// ApplyStepDelta folds a step delta into the plan. Only thought deltas are
// handled here; message deltas are applied to the message by the
// orchestrator, and other delta kinds carry nothing the plan tracks.
func ApplyStepDelta(delta events.StepDeltaEvent, p *Plan) *Plan {
	if p == nil || delta.Delta.StepDetails.Type != events.DetailThought {
		return p
	}
	idx, existing := p.step(delta.ID)
	if existing == nil {
		return p
	}

	p = p.clone()
	var current string
	if existing.Thought != nil {
		current = *existing.Thought
	}
	appended := current + delta.Delta.StepDetails.Thought
	p.Steps[idx].Thought = &appended
	return p
}

// assembleToolCalls builds the step's tool call list from the event details,
// reusing the id at each position from the previous revision so tool call
// identity is stable while a step streams in.
func assembleToolCalls(details []events.ToolCallDetail, prev []ToolCall) []ToolCall {
	calls := make([]ToolCall, 0, len(details))
	for i, d := range details {
		id := uuid.NewString()
		if i < len(prev) {
			id = prev[i].ID
		}
		calls = append(calls, extractToolCall(id, d))
	}
	return calls
}
