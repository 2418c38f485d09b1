// Package transport opens streaming HTTP requests against the assistants
// backend and parses server-sent-event frames into typed run events. It owns
// the two frames that affect every downstream consumer uniformly: "retry"
// (reset accumulated content, keep reading) and thread.run.failed (surface
// the server error, stop reading).
package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/scribelabs/scribe/pkg/events"
	"github.com/scribelabs/scribe/pkg/logger"
)

const eventStreamMediaType = "text/event-stream"

// scanBufferSize bounds a single SSE line; large tool outputs arrive as one
// data line.
const scanBufferSize = 1024 * 1024

// Handler consumes parsed frames from one stream. HandleEvent receives every
// successfully parsed, non-special frame in arrival order. HandleRetry is
// invoked for the transport-level "retry" frame before reading continues.
type Handler interface {
	HandleEvent(ev events.Event) error
	HandleRetry()
}

// Open posts body (with "stream": true merged in) to url and reads SSE
// frames until the stream ends, the handler returns an error, or ctx is
// cancelled. Header entries are copied onto the request.
func Open(ctx context.Context, client *http.Client, url string, header http.Header, body any, h Handler) error {
	payload, err := mergeStreamFlag(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", eventStreamMediaType)

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readOpenError(resp)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, eventStreamMediaType) {
		return &ProtocolError{Reason: "unexpected content type " + ct}
	}

	return readFrames(ctx, resp.Body, h)
}

// mergeStreamFlag marshals body and forces "stream": true so the server
// negotiates an event stream.
func mergeStreamFlag(body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = make(map[string]json.RawMessage)
	}
	m["stream"] = json.RawMessage("true")
	return json.Marshal(m)
}

// readOpenError builds an HTTPError from a non-OK open response. The body is
// kept as decoded JSON when parseable so callers see the server's structured
// error, raw text otherwise.
func readOpenError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, scanBufferSize))
	body := strings.TrimSpace(string(raw))
	var decoded map[string]any
	if json.Unmarshal(raw, &decoded) == nil {
		if msg, ok := decoded["error"].(string); ok {
			body = msg
		}
	}
	return &HTTPError{Status: resp.StatusCode, Body: body}
}

// readFrames scans newline-delimited SSE frames and dispatches them. A frame
// is a group of "event:"/"data:" lines terminated by a blank line; multiple
// data lines are joined with newlines per the SSE grammar.
func readFrames(ctx context.Context, r io.Reader, h Handler) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufferSize)

	var name string
	var data []string

	flush := func() error {
		defer func() {
			name = ""
			data = nil
		}()
		if name == "" && len(data) == 0 {
			return nil
		}
		return dispatch(name, strings.Join(data, "\n"), h)
	}

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()
		switch {
		case line == "":
			if err := flush(); err != nil {
				return err
			}
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		case strings.HasPrefix(line, ":"):
			// comment/keepalive line
		default:
			logger.Debug("transport: ignoring unrecognized stream line: %q", line)
		}
	}
	if err := flush(); err != nil {
		return err
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return ctx.Err()
}

// dispatch routes one complete frame. Special frames are handled here; all
// others are forwarded verbatim to the handler.
func dispatch(name, data string, h Handler) error {
	if name == events.FrameRetry {
		logger.Debug("transport: server requested retry, resetting accumulated content")
		h.HandleRetry()
		return nil
	}

	var raw json.RawMessage
	if data != "" {
		if !json.Valid([]byte(data)) {
			return &ProtocolError{Reason: "event " + name + " carries invalid JSON payload"}
		}
		raw = json.RawMessage(data)
	}

	if name == events.RunFailed {
		var run events.Run
		_ = json.Unmarshal(raw, &run)
		msg := "unknown error"
		if run.LastError != nil && run.LastError.Message != "" {
			msg = run.LastError.Message
		}
		return &RunFailedError{Message: msg}
	}

	return h.HandleEvent(events.Event{Name: name, Data: raw})
}
