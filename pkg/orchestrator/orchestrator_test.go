package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribelabs/scribe/pkg/api"
	"github.com/scribelabs/scribe/pkg/chat"
	"github.com/scribelabs/scribe/pkg/events"
	"github.com/scribelabs/scribe/pkg/tools"
)

// backend scripts the assistants server for one test: a fixed SSE body for
// the run stream, another for the tool-output continuation, and recordings
// of everything the client posted.
type backend struct {
	runBody  string
	toolBody string
	// hang keeps the run stream open after runBody until the client goes
	// away, for cancellation tests.
	hang       bool
	runStarted chan struct{}

	mu          sync.Mutex
	messages    []api.MessageRequest
	toolOutputs []api.ToolOutputsRequest
	cancelled   []string
}

func (b *backend) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/threads":
			fmt.Fprint(w, `{"id": "thread_1"}`)
		case strings.HasSuffix(r.URL.Path, "/messages"):
			var req api.MessageRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			b.mu.Lock()
			b.messages = append(b.messages, req)
			b.mu.Unlock()
			fmt.Fprint(w, `{"id": "msg_user", "role": "user", "content": ""}`)
		case strings.HasSuffix(r.URL.Path, "/cancel"):
			b.mu.Lock()
			b.cancelled = append(b.cancelled, r.URL.Path)
			b.mu.Unlock()
			fmt.Fprint(w, `{}`)
		case strings.HasSuffix(r.URL.Path, "/submit_tool_outputs"):
			var req api.ToolOutputsRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			b.mu.Lock()
			b.toolOutputs = append(b.toolOutputs, req)
			b.mu.Unlock()
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, b.toolBody)
		case strings.HasSuffix(r.URL.Path, "/runs"):
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, b.runBody)
			if b.hang {
				w.(http.Flusher).Flush()
				if b.runStarted != nil {
					close(b.runStarted)
				}
				<-r.Context().Done()
			}
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func frame(name, data string) string {
	return "event: " + name + "\ndata: " + data + "\n\n"
}

type staticTool struct {
	name   string
	output string
}

func (s *staticTool) Name() string        { return s.name }
func (s *staticTool) Description() string { return "static test tool" }
func (s *staticTool) Call(context.Context, string) (string, error) {
	return s.output, nil
}

func newTestOrchestrator(t *testing.T, b *backend) (*Orchestrator, *chat.Store) {
	t.Helper()
	srv := httptest.NewServer(b.handler(t))
	t.Cleanup(srv.Close)

	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(&staticTool{name: "local_time", output: "Fri, 14 Mar 2025 09:26:53 UTC"}))
	require.NoError(t, reg.Register(&staticTool{name: "geolocation", output: "Berlin, Germany"}))

	store := chat.NewStore()
	o := New(Options{
		Client:      api.NewClient(api.Options{BaseURL: srv.URL, RateLimit: 1000, RateBurst: 1000}),
		Store:       store,
		Tools:       reg,
		AssistantID: "asst_1",
	})
	return o, store
}

func helloRunBody() string {
	return frame(events.RunCreated, `{"id": "run_1", "thread_id": "thread_1", "status": "queued"}`) +
		frame(events.RunInProgress, `{"id": "run_1", "status": "in_progress"}`) +
		frame(events.MessageCreated, `{"id": "msg_a", "role": "assistant"}`) +
		frame(events.MessageDelta, `{"id": "msg_a", "delta": {"content": [{"type": "text", "text": {"value": "Hel"}}]}}`) +
		frame(events.MessageDelta, `{"id": "msg_a", "delta": {"content": [{"type": "text", "text": {"value": "lo!"}}]}}`) +
		frame(events.MessageCompleted, `{"id": "msg_a", "role": "assistant", "content": [{"type": "text", "text": {"value": "Hello!"}}]}`) +
		frame(events.RunCompleted, `{"id": "run_1", "status": "completed"}`)
}

func TestSendMessageHappyPath(t *testing.T) {
	b := &backend{runBody: helloRunBody()}
	var completedThread string
	o, store := newTestOrchestrator(t, b)
	o.onTurnComplete = func(threadID string) { completedThread = threadID }

	res, err := o.SendMessage(context.Background(), "hi there", SendOptions{})
	require.NoError(t, err)
	assert.False(t, res.Aborted)
	assert.Equal(t, "thread_1", res.ThreadID)
	assert.Equal(t, "thread_1", completedThread)
	assert.Equal(t, StatusReady, o.Status())

	msgs := store.Get()
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.RoleUser, msgs[0].Role)
	assert.Equal(t, "hi there", msgs[0].Content)
	assert.Equal(t, chat.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello!", msgs[1].Content)
	assert.Equal(t, "msg_a", msgs[1].ID)
	assert.Equal(t, "run_1", msgs[1].RunID)
	assert.False(t, msgs[1].Pending)
	assert.NoError(t, msgs[1].Err)

	require.Len(t, b.messages, 1)
	assert.Equal(t, "hi there", b.messages[0].Content)

	run, ok := o.Run("run_1")
	assert.True(t, ok)
	assert.Equal(t, events.StatusCompleted, run.Status)
}

func TestSendMessageAssemblesPlan(t *testing.T) {
	runBody := frame(events.RunCreated, `{"id": "run_1", "status": "queued"}`) +
		frame(events.StepCreated, `{"id": "step_1", "status": "in_progress", "step_details": {"type": "thought", "thought": "Let me "}}`) +
		frame(events.StepDelta, `{"id": "step_1", "delta": {"step_details": {"type": "thought", "thought": "search."}}}`) +
		frame(events.StepCompleted, `{"id": "step_2", "status": "completed", "step_details": {"type": "tool_calls", "tool_calls": [{"type": "system", "system": {"id": "web_search", "input": "go sse", "output": [{"url": "http://x", "description": "about x"}]}}]}}`) +
		frame(events.MessageCompleted, `{"id": "msg_a", "content": [{"type": "text", "text": {"value": "Found it."}}]}`) +
		frame(events.RunCompleted, `{"id": "run_1", "status": "completed"}`)

	o, store := newTestOrchestrator(t, &backend{runBody: runBody})
	_, err := o.SendMessage(context.Background(), "find go sse docs", SendOptions{})
	require.NoError(t, err)

	msgs := store.Get()
	require.Len(t, msgs, 2)
	p := msgs[1].Plan
	require.NotNil(t, p)
	assert.False(t, p.Pending)
	require.Len(t, p.Steps, 2)

	require.NotNil(t, p.Steps[0].Thought)
	assert.Equal(t, "Let me search.", *p.Steps[0].Thought)

	require.Len(t, p.Steps[1].ToolCalls, 1)
	tc := p.Steps[1].ToolCalls[0]
	assert.Equal(t, "web_search", tc.ToolID)
	assert.Equal(t, "go sse", tc.Input)
	assert.Equal(t, []string{"http://x"}, tc.Sources)
}

func TestSendMessageToolLoop(t *testing.T) {
	runBody := frame(events.RunCreated, `{"id": "run_1", "status": "queued"}`) +
		frame(events.RunRequiresAction, `{"id": "run_1", "status": "requires_action", "required_action": {"type": "submit_tool_outputs", "submit_tool_outputs": {"tool_calls": [`+
			`{"id": "call_1", "type": "function", "function": {"name": "local_time", "arguments": "{}"}},`+
			`{"id": "call_2", "type": "function", "function": {"name": "geolocation", "arguments": "{}"}},`+
			`{"id": "call_3", "type": "function", "function": {"name": "unknown_tool", "arguments": "{}"}}]}}}`)
	toolBody := frame(events.MessageCompleted, `{"id": "msg_a", "content": [{"type": "text", "text": {"value": "It is morning in Berlin."}}]}`) +
		frame(events.RunCompleted, `{"id": "run_1", "status": "completed"}`)

	b := &backend{runBody: runBody, toolBody: toolBody}
	o, store := newTestOrchestrator(t, b)

	res, err := o.SendMessage(context.Background(), "what time is it here?", SendOptions{})
	require.NoError(t, err)
	assert.False(t, res.Aborted)

	// the continuation ran after the initial stream ended and carried the
	// resolved outputs in call order
	require.Len(t, b.toolOutputs, 1)
	outs := b.toolOutputs[0].ToolOutputs
	require.Len(t, outs, 3)
	assert.Equal(t, "call_1", outs[0].ToolCallID)
	assert.Equal(t, "Fri, 14 Mar 2025 09:26:53 UTC", outs[0].Output)
	assert.Equal(t, "call_2", outs[1].ToolCallID)
	assert.Equal(t, "Berlin, Germany", outs[1].Output)
	// unresolvable calls still answer, with an empty output
	assert.Equal(t, "call_3", outs[2].ToolCallID)
	assert.Empty(t, outs[2].Output)

	msgs := store.Get()
	require.Len(t, msgs, 2)
	assert.Equal(t, "It is morning in Berlin.", msgs[1].Content)
	assert.False(t, msgs[1].Pending)
}

func TestSendMessageSkipsNonFunctionPendingCalls(t *testing.T) {
	runBody := frame(events.RunCreated, `{"id": "run_1", "status": "queued"}`) +
		frame(events.RunRequiresAction, `{"id": "run_1", "status": "requires_action", "required_action": {"type": "submit_tool_outputs", "submit_tool_outputs": {"tool_calls": [`+
			`{"id": "call_1", "type": "user"},`+
			`{"id": "call_2", "type": "function", "function": {"name": "local_time", "arguments": "{}"}}]}}}`)
	toolBody := frame(events.RunCompleted, `{"id": "run_1", "status": "completed"}`)

	b := &backend{runBody: runBody, toolBody: toolBody}
	o, _ := newTestOrchestrator(t, b)

	_, err := o.SendMessage(context.Background(), "hi", SendOptions{})
	require.NoError(t, err)

	require.Len(t, b.toolOutputs, 1)
	outs := b.toolOutputs[0].ToolOutputs
	require.Len(t, outs, 1)
	assert.Equal(t, "call_2", outs[0].ToolCallID)
}

func TestSendMessageRunFailed(t *testing.T) {
	runBody := frame(events.RunCreated, `{"id": "run_1", "status": "queued"}`) +
		frame(events.MessageDelta, `{"id": "msg_a", "delta": {"content": [{"type": "text", "text": {"value": "partial"}}]}}`) +
		frame(events.RunFailed, `{"id": "run_1", "status": "failed", "last_error": {"code": "server_error", "message": "model overloaded"}}`)

	o, store := newTestOrchestrator(t, &backend{runBody: runBody})
	res, err := o.SendMessage(context.Background(), "hi", SendOptions{})
	require.NoError(t, err)
	assert.False(t, res.Aborted)

	msgs := store.Get()
	require.Len(t, msgs, 2)
	// partial content survives, the failure is attached
	assert.Equal(t, "partial", msgs[1].Content)
	assert.False(t, msgs[1].Pending)
	require.Error(t, msgs[1].Err)
	assert.Contains(t, msgs[1].Err.Error(), "model overloaded")
}

func TestSendMessageRetryResetsContent(t *testing.T) {
	runBody := frame(events.RunCreated, `{"id": "run_1", "status": "queued"}`) +
		frame(events.MessageDelta, `{"id": "msg_a", "delta": {"content": [{"type": "text", "text": {"value": "garbled"}}]}}`) +
		frame(events.FrameRetry, `{}`) +
		frame(events.MessageDelta, `{"id": "msg_a", "delta": {"content": [{"type": "text", "text": {"value": "clean"}}]}}`) +
		frame(events.MessageCompleted, `{"id": "msg_a", "content": [{"type": "text", "text": {"value": "clean"}}]}`) +
		frame(events.RunCompleted, `{"id": "run_1", "status": "completed"}`)

	o, store := newTestOrchestrator(t, &backend{runBody: runBody})
	_, err := o.SendMessage(context.Background(), "hi", SendOptions{})
	require.NoError(t, err)

	msgs := store.Get()
	require.Len(t, msgs, 2)
	assert.Equal(t, "clean", msgs[1].Content)
}

func TestCancelBeforeAnyContentRollsBackTurn(t *testing.T) {
	b := &backend{
		runBody:    frame(events.RunCreated, `{"id": "run_1", "status": "queued"}`),
		hang:       true,
		runStarted: make(chan struct{}),
	}
	o, store := newTestOrchestrator(t, b)

	done := make(chan Result, 1)
	go func() {
		res, err := o.SendMessage(context.Background(), "hi", SendOptions{})
		assert.NoError(t, err)
		done <- res
	}()

	<-b.runStarted
	// wait until the run id landed on the placeholder before aborting, so
	// the remote cancel has something to target
	require.Eventually(t, func() bool {
		msgs := store.Get()
		return len(msgs) == 2 && msgs[1].RunID == "run_1"
	}, 5*time.Second, 5*time.Millisecond)
	o.Cancel()

	select {
	case res := <-done:
		assert.True(t, res.Aborted)
	case <-time.After(5 * time.Second):
		t.Fatal("SendMessage did not return after cancel")
	}

	// nothing arrived, so the user message and the placeholder are both gone
	assert.Empty(t, store.Get())

	b.mu.Lock()
	cancelled := append([]string(nil), b.cancelled...)
	b.mu.Unlock()
	require.Len(t, cancelled, 1)
	assert.Equal(t, "/threads/thread_1/runs/run_1/cancel", cancelled[0])
}

func TestCancelMidStreamKeepsPartialAnswer(t *testing.T) {
	b := &backend{
		runBody: frame(events.RunCreated, `{"id": "run_1", "status": "queued"}`) +
			frame(events.StepCreated, `{"id": "step_1", "status": "in_progress", "step_details": {"type": "tool_calls", "tool_calls": [{"type": "function", "function": {"name": "f", "arguments": "{}"}}]}}`) +
			frame(events.MessageDelta, `{"id": "msg_a", "delta": {"content": [{"type": "text", "text": {"value": "partial answer"}}]}}`),
		hang:       true,
		runStarted: make(chan struct{}),
	}
	o, store := newTestOrchestrator(t, b)

	done := make(chan Result, 1)
	go func() {
		res, err := o.SendMessage(context.Background(), "hi", SendOptions{})
		assert.NoError(t, err)
		done <- res
	}()

	<-b.runStarted
	// wait until the streamed frames have been folded in before aborting
	require.Eventually(t, func() bool {
		msgs := store.Get()
		return len(msgs) == 2 && msgs[1].Content == "partial answer"
	}, 5*time.Second, 5*time.Millisecond)
	o.Cancel()

	select {
	case res := <-done:
		assert.True(t, res.Aborted)
	case <-time.After(5 * time.Second):
		t.Fatal("SendMessage did not return after cancel")
	}

	msgs := store.Get()
	require.Len(t, msgs, 2)
	assert.Equal(t, "partial answer", msgs[1].Content)
	assert.False(t, msgs[1].Pending)
	require.NotNil(t, msgs[1].Plan)
	require.Len(t, msgs[1].Plan.Steps, 1)
	assert.Equal(t, events.StatusCancelled, msgs[1].Plan.Steps[0].Status)
}

func TestSendMessageRejectsConcurrentTurn(t *testing.T) {
	b := &backend{
		runBody:    frame(events.RunCreated, `{"id": "run_1", "status": "queued"}`),
		hang:       true,
		runStarted: make(chan struct{}),
	}
	o, store := newTestOrchestrator(t, b)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := o.SendMessage(context.Background(), "first", SendOptions{})
		assert.NoError(t, err)
	}()

	<-b.runStarted
	res, err := o.SendMessage(context.Background(), "second", SendOptions{})
	require.NoError(t, err)
	assert.True(t, res.Aborted)

	// the rejected send must not have touched the conversation
	assert.Len(t, store.Get(), 2)

	o.Cancel()
	<-done
}

func TestRegenerateReplacesAssistantMessage(t *testing.T) {
	b := &backend{runBody: helloRunBody()}
	o, store := newTestOrchestrator(t, b)

	_, err := o.SendMessage(context.Background(), "hi there", SendOptions{})
	require.NoError(t, err)
	require.Len(t, store.Get(), 2)

	_, err = o.SendMessage(context.Background(), "hi there", SendOptions{Regenerate: true})
	require.NoError(t, err)

	// the user message is reused, not re-posted
	b.mu.Lock()
	posted := len(b.messages)
	b.mu.Unlock()
	assert.Equal(t, 1, posted)

	msgs := store.Get()
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.RoleUser, msgs[0].Role)
	assert.Equal(t, "Hello!", msgs[1].Content)
}

func TestThreadReusedAcrossTurns(t *testing.T) {
	b := &backend{runBody: helloRunBody()}
	o, _ := newTestOrchestrator(t, b)

	res1, err := o.SendMessage(context.Background(), "one", SendOptions{})
	require.NoError(t, err)
	res2, err := o.SendMessage(context.Background(), "two", SendOptions{})
	require.NoError(t, err)

	assert.Equal(t, res1.ThreadID, res2.ThreadID)
	assert.Equal(t, "thread_1", o.ThreadID())
}

func TestActiveTools(t *testing.T) {
	base := []string{"web_search", "wikipedia", "code_interpreter"}
	got := activeTools(base, []string{"arxiv", "web_search"}, []string{"wikipedia"})
	assert.Equal(t, []string{"web_search", "code_interpreter", "arxiv"}, got)

	assert.Empty(t, activeTools(nil, nil, nil))
	assert.Equal(t, []string{"a"}, activeTools([]string{"a", "a"}, nil, nil))
}
