package orchestrator

import (
	"context"

	"github.com/scribelabs/scribe/pkg/api"
	"github.com/scribelabs/scribe/pkg/events"
	"github.com/scribelabs/scribe/pkg/logger"
)

// handleRequiresAction resolves the server's pending tool calls and enqueues
// the submit_tool_outputs continuation. Only submit_tool_outputs with
// function calls is resolved automatically; approval requests are surfaced
// to the user elsewhere and produce no output here.
func (h *runHandler) handleRequiresAction(run events.Run) error {
	ra := run.RequiredAction
	if ra == nil || ra.Type != events.ActionSubmitToolOutputs || ra.SubmitToolOutputs == nil {
		logger.Debug("orchestrator: run %s requires %s, not auto-resolvable", run.ID, requiredActionType(ra))
		return nil
	}

	o := h.o
	o.setStatus(StatusWaiting)

	// Outputs are submitted in the same order as the filtered calls.
	outputs := make([]api.ToolOutput, 0, len(ra.SubmitToolOutputs.ToolCalls))
	for _, tc := range ra.SubmitToolOutputs.ToolCalls {
		if tc.Type != events.ToolTypeFunction || tc.Function == nil {
			continue
		}
		logger.Debug("orchestrator: resolving client tool %s for call %s", tc.Function.Name, tc.ID)
		out := o.registry.Resolve(h.ctx, tc.Function.Name, tc.Function.Arguments)
		outputs = append(outputs, api.ToolOutput{ToolCallID: tc.ID, Output: out})
	}

	o.setStatus(StatusFetching)

	req := api.ToolOutputsRequest{ToolOutputs: outputs}
	threadID := o.ThreadID()
	runID := run.ID
	h.enqueue(func(ctx context.Context) error {
		return o.client.StreamToolOutputs(ctx, threadID, runID, req, h)
	})
	return nil
}

func requiredActionType(ra *events.RequiredAction) string {
	if ra == nil {
		return "nothing"
	}
	return ra.Type
}
