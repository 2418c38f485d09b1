package api

// Thread is a server-side conversation container.
type Thread struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// ThreadMessage is a message as persisted by the server.
type ThreadMessage struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id,omitempty"`
	Role     string `json:"role"`
	Content  string `json:"content"`
}

// MessageRequest is the body for persisting a user message.
type MessageRequest struct {
	Role        string   `json:"role"`
	Content     string   `json:"content"`
	Attachments []string `json:"attachments,omitempty"`
}

// RunRequest is the body for opening a run. The transport merges in the
// stream flag.
type RunRequest struct {
	AssistantID   string          `json:"assistant_id"`
	Tools         []string        `json:"tools"`
	ToolApprovals map[string]bool `json:"tool_approvals,omitempty"`
}

// ToolOutput pairs a pending tool call id with the client-resolved output.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// ToolOutputsRequest is the body for continuing a run that required action.
type ToolOutputsRequest struct {
	ToolOutputs []ToolOutput `json:"tool_outputs"`
}
