package plan

import (
	"encoding/json"
	"strings"

	"github.com/scribelabs/scribe/pkg/events"
)

// System tool ids with dedicated result formatting.
const (
	systemWebSearch = "web_search"
	systemWikipedia = "wikipedia"
	systemArxiv     = "arxiv"
)

// extractToolCall applies the per-tool-type extraction rules to one tool
// call detail.
func extractToolCall(id string, d events.ToolCallDetail) ToolCall {
	tc := ToolCall{ID: id, Type: d.Type, ToolID: d.Type}

	switch d.Type {
	case events.ToolTypeSystem:
		if d.System == nil {
			break
		}
		tc.ToolID = d.System.ID
		tc.Input = d.System.Input
		tc.Result = formatSystemOutput(d.System.ID, d.System.Output)
		tc.Sources = systemSources(d.System.ID, d.System.Output)
	case events.ToolTypeUser:
		if d.User == nil {
			break
		}
		tc.ToolID = d.User.Tool.ID
		tc.Input = d.User.Input
		if d.User.Output != nil {
			tc.Result = *d.User.Output
		}
	case events.ToolTypeFunction:
		if d.Function == nil {
			break
		}
		tc.Input = d.Function.Arguments
		if d.Function.Output != nil {
			tc.Result = *d.Function.Output
		}
	case events.ToolTypeCodeInterpreter:
		if d.CodeInterpreter == nil {
			break
		}
		tc.Input = d.CodeInterpreter.Input
		tc.Result = joinLogs(d.CodeInterpreter.Outputs)
	case events.ToolTypeFileSearch:
		if d.FileSearch == nil {
			break
		}
		tc.Input = d.FileSearch.Input
		tc.Result = joinFileResults(d.FileSearch.Output)
	}
	return tc
}

// joinLogs concatenates log outputs of a code interpreter call. Other output
// kinds (images) carry nothing renderable as text and are skipped.
func joinLogs(outputs []events.CodeInterpreterOutput) string {
	var logs []string
	for _, out := range outputs {
		if out.Type == "logs" {
			logs = append(logs, out.Logs)
		}
	}
	return strings.Join(logs, "\n")
}

func joinFileResults(results []events.FileSearchResult) string {
	var parts []string
	for _, r := range results {
		parts = append(parts, r.Content+"\nSource: "+r.Source)
	}
	return strings.Join(parts, "\n\n")
}

type webSearchResult struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

type wikipediaResult struct {
	URL         string `json:"url"`
	Description string `json:"description"`
	Document    struct {
		Text string `json:"text"`
		URL  string `json:"url"`
	} `json:"document"`
}

type arxivEntry struct {
	URL string `json:"url"`
}

// formatSystemOutput renders a system call's raw output with the formatter
// for its tool id.
func formatSystemOutput(toolID string, raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	switch toolID {
	case systemWebSearch:
		var results []webSearchResult
		if err := json.Unmarshal(raw, &results); err != nil {
			return stringify(raw)
		}
		parts := make([]string, 0, len(results))
		for _, r := range results {
			parts = append(parts, r.Description+"\nSource: "+r.URL)
		}
		return strings.Join(parts, "\n\n")
	case systemWikipedia:
		var r wikipediaResult
		if err := json.Unmarshal(raw, &r); err != nil {
			return stringify(raw)
		}
		if r.Document.Text != "" {
			return r.Document.Text
		}
		return r.Description
	default:
		// arxiv and anything unrecognized: passthrough strings, stringified
		// JSON otherwise.
		return stringify(raw)
	}
}

// stringify unwraps a JSON string output, or returns the raw JSON text for
// structured outputs.
func stringify(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// systemSources extracts attribution URLs for a system call. Tool ids
// without a source rule produce nil, as do calls with no output yet.
func systemSources(toolID string, raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	switch toolID {
	case systemWebSearch:
		var results []webSearchResult
		if err := json.Unmarshal(raw, &results); err != nil {
			return nil
		}
		var urls []string
		for _, r := range results {
			urls = append(urls, r.URL)
		}
		return urls
	case systemWikipedia:
		var r wikipediaResult
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil
		}
		if r.Document.URL != "" {
			return []string{r.Document.URL}
		}
		if r.URL != "" {
			return []string{r.URL}
		}
		return nil
	case systemArxiv:
		var entries []arxivEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil
		}
		var urls []string
		for _, e := range entries {
			urls = append(urls, e.URL)
		}
		return urls
	default:
		return nil
	}
}
