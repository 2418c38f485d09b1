package events

import "encoding/json"

// Run is the payload carried by every thread.run.* event.
type Run struct {
	ID             string          `json:"id"`
	ThreadID       string          `json:"thread_id,omitempty"`
	Status         string          `json:"status"`
	RequiredAction *RequiredAction `json:"required_action,omitempty"`
	LastError      *RunError       `json:"last_error,omitempty"`
}

// RunError is the structured error reported on failed runs and steps.
type RunError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// RequiredAction describes what the server needs from the client before the
// run can continue. Exactly one of the two branch fields is populated,
// matching Type.
type RequiredAction struct {
	Type                string            `json:"type"`
	SubmitToolOutputs   *PendingToolCalls `json:"submit_tool_outputs,omitempty"`
	SubmitToolApprovals *PendingToolCalls `json:"submit_tool_approvals,omitempty"`
}

// PendingToolCalls lists the tool calls awaiting client input.
type PendingToolCalls struct {
	ToolCalls []PendingToolCall `json:"tool_calls"`
}

// PendingToolCall describes one tool call the client must satisfy.
type PendingToolCall struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Function *FunctionStub `json:"function,omitempty"`
}

// FunctionStub carries the name and raw argument JSON of a pending function
// call.
type FunctionStub struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Step is the payload carried by non-delta thread.run.step.* events.
type Step struct {
	ID          string      `json:"id"`
	RunID       string      `json:"run_id,omitempty"`
	Status      string      `json:"status"`
	StepDetails StepDetails `json:"step_details"`
	LastError   *RunError   `json:"last_error,omitempty"`
}

// StepDetails is the discriminated body of a step: either a thought or a
// batch of tool calls.
type StepDetails struct {
	Type      string           `json:"type"`
	Thought   string           `json:"thought,omitempty"`
	ToolCalls []ToolCallDetail `json:"tool_calls,omitempty"`
}

// ToolCallDetail is one tool invocation inside a tool_calls step. The Type
// field selects which branch is populated.
type ToolCallDetail struct {
	Type            string               `json:"type"`
	System          *SystemCall          `json:"system,omitempty"`
	Function        *FunctionCall        `json:"function,omitempty"`
	CodeInterpreter *CodeInterpreterCall `json:"code_interpreter,omitempty"`
	FileSearch      *FileSearchCall      `json:"file_search,omitempty"`
	User            *UserCall            `json:"user,omitempty"`
}

// SystemCall is a server-side built-in tool invocation (web_search,
// wikipedia, arxiv, ...). Output shape varies per tool id, so it stays raw
// until the plan assembler applies the tool-specific extraction rules.
type SystemCall struct {
	ID     string          `json:"id"`
	Input  string          `json:"input,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
}

// FunctionCall is a client-defined function invocation.
type FunctionCall struct {
	Name      string  `json:"name"`
	Arguments string  `json:"arguments"`
	Output    *string `json:"output,omitempty"`
}

// CodeInterpreterCall carries the executed code and its outputs.
type CodeInterpreterCall struct {
	Input   string                  `json:"input"`
	Outputs []CodeInterpreterOutput `json:"outputs,omitempty"`
}

// CodeInterpreterOutput is one output entry of a code interpreter call. Only
// log outputs carry text; other kinds (images) are ignored by this client.
type CodeInterpreterOutput struct {
	Type string `json:"type"`
	Logs string `json:"logs,omitempty"`
}

// FileSearchCall carries a document search query and its matches.
type FileSearchCall struct {
	Input  string             `json:"input,omitempty"`
	Output []FileSearchResult `json:"output,omitempty"`
}

// FileSearchResult is one retrieved passage.
type FileSearchResult struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// UserCall is a user-registered tool invocation.
type UserCall struct {
	Tool   UserToolRef `json:"tool"`
	Input  string      `json:"input,omitempty"`
	Output *string     `json:"output,omitempty"`
}

// UserToolRef identifies the user tool that was invoked.
type UserToolRef struct {
	ID string `json:"id"`
}

// StepDeltaEvent is the payload of thread.run.step.delta.
type StepDeltaEvent struct {
	ID    string        `json:"id"`
	Delta StepDeltaBody `json:"delta"`
}

// StepDeltaBody wraps the partial step details of a delta.
type StepDeltaBody struct {
	StepDetails StepDetails `json:"step_details"`
}

// Message is the payload of thread.message.created and
// thread.message.completed.
type Message struct {
	ID      string           `json:"id"`
	Role    string           `json:"role,omitempty"`
	Content []MessageContent `json:"content,omitempty"`
}

// MessageContent is one content block of a message.
type MessageContent struct {
	Type string      `json:"type"`
	Text MessageText `json:"text"`
}

// MessageText holds the text value of a content block.
type MessageText struct {
	Value string `json:"value"`
}

// Text concatenates the text blocks of a message payload.
func (m Message) Text() string {
	var out string
	for _, c := range m.Content {
		out += c.Text.Value
	}
	return out
}

// MessageDeltaEvent is the payload of thread.message.delta.
type MessageDeltaEvent struct {
	ID    string           `json:"id"`
	Delta MessageDeltaBody `json:"delta"`
}

// MessageDeltaBody wraps the partial content of a message delta.
type MessageDeltaBody struct {
	Content []MessageContent `json:"content"`
}

// Text concatenates the text fragments of a message delta.
func (d MessageDeltaEvent) Text() string {
	var out string
	for _, c := range d.Delta.Content {
		out += c.Text.Value
	}
	return out
}

// DecodeRun unmarshals a run-level event payload.
func DecodeRun(ev Event) (Run, error) {
	var r Run
	err := json.Unmarshal(ev.Data, &r)
	return r, err
}

// DecodeStep unmarshals a non-delta step-level event payload.
func DecodeStep(ev Event) (Step, error) {
	var s Step
	err := json.Unmarshal(ev.Data, &s)
	return s, err
}

// DecodeStepDelta unmarshals a step delta event payload.
func DecodeStepDelta(ev Event) (StepDeltaEvent, error) {
	var d StepDeltaEvent
	err := json.Unmarshal(ev.Data, &d)
	return d, err
}

// DecodeMessage unmarshals a message created/completed event payload.
func DecodeMessage(ev Event) (Message, error) {
	var m Message
	err := json.Unmarshal(ev.Data, &m)
	return m, err
}

// DecodeMessageDelta unmarshals a message delta event payload.
func DecodeMessageDelta(ev Event) (MessageDeltaEvent, error) {
	var d MessageDeltaEvent
	err := json.Unmarshal(ev.Data, &d)
	return d, err
}
