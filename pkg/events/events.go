// Package events defines the run event taxonomy emitted by the assistants
// backend and pure classifier predicates over event names. Classification is
// by exact string membership in enumerated sets so that new server-side event
// names are ignored instead of being silently misrouted.
package events

import "encoding/json"

// Event is one parsed frame from a run event stream.
type Event struct {
	Name string
	Data json.RawMessage
}

// Run-level event names.
const (
	RunCreated        = "thread.run.created"
	RunQueued         = "thread.run.queued"
	RunInProgress     = "thread.run.in_progress"
	RunRequiresAction = "thread.run.requires_action"
	RunCompleted      = "thread.run.completed"
	RunIncomplete     = "thread.run.incomplete"
	RunFailed         = "thread.run.failed"
	RunCancelling     = "thread.run.cancelling"
	RunCancelled      = "thread.run.cancelled"
	RunExpired        = "thread.run.expired"
)

// Step-level event names.
const (
	StepCreated    = "thread.run.step.created"
	StepInProgress = "thread.run.step.in_progress"
	StepCompleted  = "thread.run.step.completed"
	StepFailed     = "thread.run.step.failed"
	StepCancelled  = "thread.run.step.cancelled"
	StepExpired    = "thread.run.step.expired"
	StepDelta      = "thread.run.step.delta"
)

// Message-level event names.
const (
	MessageCreated   = "thread.message.created"
	MessageDelta     = "thread.message.delta"
	MessageCompleted = "thread.message.completed"
)

// FrameRetry is the transport-level frame instructing the client to reset the
// current assistant message content; the server is restarting generation.
const FrameRetry = "retry"

// Run status values as reported in run-level payloads.
const (
	StatusQueued         = "queued"
	StatusInProgress     = "in_progress"
	StatusRequiresAction = "requires_action"
	StatusCompleted      = "completed"
	StatusIncomplete     = "incomplete"
	StatusFailed         = "failed"
	StatusCancelling     = "cancelling"
	StatusCancelled      = "cancelled"
	StatusExpired        = "expired"
)

// Required action types.
const (
	ActionSubmitToolOutputs   = "submit_tool_outputs"
	ActionSubmitToolApprovals = "submit_tool_approvals"
)

// Step detail types.
const (
	DetailToolCalls = "tool_calls"
	DetailThought   = "thought"
)

// Tool call discriminants.
const (
	ToolTypeSystem          = "system"
	ToolTypeFunction        = "function"
	ToolTypeCodeInterpreter = "code_interpreter"
	ToolTypeFileSearch      = "file_search"
	ToolTypeUser            = "user"
)

var runEvents = map[string]struct{}{
	RunCreated:        {},
	RunQueued:         {},
	RunInProgress:     {},
	RunRequiresAction: {},
	RunCompleted:      {},
	RunIncomplete:     {},
	RunFailed:         {},
	RunCancelling:     {},
	RunCancelled:      {},
	RunExpired:        {},
}

var stepEvents = map[string]struct{}{
	StepCreated:    {},
	StepInProgress: {},
	StepCompleted:  {},
	StepFailed:     {},
	StepCancelled:  {},
	StepExpired:    {},
}

// IsRunEvent reports whether name is one of the ten run-level event names.
func IsRunEvent(name string) bool {
	_, ok := runEvents[name]
	return ok
}

// IsStepEvent reports whether name is one of the six non-delta step-level
// event names.
func IsStepEvent(name string) bool {
	_, ok := stepEvents[name]
	return ok
}

// IsStepDelta reports whether name is the step delta event.
func IsStepDelta(name string) bool { return name == StepDelta }

// IsMessageCreated reports whether name is the message created event.
func IsMessageCreated(name string) bool { return name == MessageCreated }

// IsMessageDelta reports whether name is the message delta event.
func IsMessageDelta(name string) bool { return name == MessageDelta }

// IsMessageCompleted reports whether name is the message completed event.
func IsMessageCompleted(name string) bool { return name == MessageCompleted }
