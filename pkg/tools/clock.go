package tools

import (
	"context"
	"time"
)

// ClockTool reports the user's local date and time. Kept client-side because
// the server has no idea what timezone the user sits in.
type ClockTool struct {
	now func() time.Time
}

// NewClockTool creates the tool using the system clock.
func NewClockTool() *ClockTool {
	return &ClockTool{now: time.Now}
}

// Name implements tools.Tool.
func (c *ClockTool) Name() string { return "local_time" }

// Description implements tools.Tool.
func (c *ClockTool) Description() string {
	return "Returns the user's current local date and time."
}

// Call implements tools.Tool.
func (c *ClockTool) Call(_ context.Context, _ string) (string, error) {
	return c.now().Format(time.RFC1123), nil
}
