package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"

	"github.com/scribelabs/scribe/pkg/chat"
	"github.com/scribelabs/scribe/pkg/events"
	"github.com/scribelabs/scribe/pkg/plan"
)

const resultPreviewLimit = 400

var (
	noticeStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	thoughtStyle = lipgloss.NewStyle().Italic(true).Faint(true)
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Underline(true)
)

// renderer prints conversation turns to a terminal.
type renderer struct {
	w io.Writer
}

func newRenderer(w io.Writer) *renderer {
	return &renderer{w: w}
}

// PrintNotice prints a faint one-line status message.
func (r *renderer) PrintNotice(msg string) {
	fmt.Fprintln(r.w, noticeStyle.Render(msg))
}

// PrintLastTurn renders the trailing assistant message of the snapshot:
// plan first, then the answer text, then any attached error.
func (r *renderer) PrintLastTurn(messages []chat.Message) {
	if len(messages) == 0 {
		return
	}
	last := messages[len(messages)-1]
	if !last.IsAssistant() {
		return
	}

	if last.Plan != nil {
		r.printPlan(last.Plan)
	}
	if last.Content != "" {
		fmt.Fprintln(r.w, last.Content)
	}
	if last.Err != nil {
		fmt.Fprintln(r.w, errorStyle.Render("error: "+last.Err.Error()))
	}
}

func (r *renderer) printPlan(p *plan.Plan) {
	for i, step := range p.Steps {
		fmt.Fprintln(r.w, stepStyle.Render(fmt.Sprintf("[step %d] %s", i+1, step.Status)))
		if step.Thought != nil && *step.Thought != "" {
			fmt.Fprintln(r.w, thoughtStyle.Render(*step.Thought))
		}
		for _, tc := range step.ToolCalls {
			r.printToolCall(tc)
		}
		if step.LastError != nil {
			fmt.Fprintln(r.w, errorStyle.Render("step error: "+step.LastError.Message))
		}
	}
}

func (r *renderer) printToolCall(tc plan.ToolCall) {
	fmt.Fprintf(r.w, "  %s (%s)\n", tc.ToolID, tc.Type)
	if tc.Input != "" {
		if tc.Type == events.ToolTypeCodeInterpreter {
			r.printCode(tc.Input)
		} else {
			fmt.Fprintf(r.w, "    input: %s\n", truncate(tc.Input, resultPreviewLimit))
		}
	}
	if tc.Result != "" {
		fmt.Fprintf(r.w, "    result: %s\n", truncate(tc.Result, resultPreviewLimit))
	}
	for _, src := range tc.Sources {
		fmt.Fprintf(r.w, "    %s\n", sourceStyle.Render(src))
	}
}

// printCode syntax-highlights interpreter input; on highlighting failure the
// raw code is printed instead.
func (r *renderer) printCode(code string) {
	var buf strings.Builder
	if err := quick.Highlight(&buf, code, "python", "terminal256", "monokai"); err != nil {
		fmt.Fprintln(r.w, indent(code, "    "))
		return
	}
	fmt.Fprintln(r.w, indent(buf.String(), "    "))
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
