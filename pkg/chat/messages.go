// Package chat holds the conversation state: an ordered list of messages
// read by renderers and mutated only through store updates.
package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/scribelabs/scribe/pkg/plan"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the conversation. Key identifies the message
// client-side from the moment it is created; ID is assigned once the server
// persists it.
type Message struct {
	Key       string
	ID        string
	Role      string
	Content   string
	CreatedAt time.Time
	// Err carries the failure attached to an assistant message when its
	// turn did not complete cleanly.
	Err error
	// RunID links an assistant message to the run that produced it; the
	// run snapshot itself is looked up by id, never embedded here.
	RunID string

	// Attachments lists file ids sent along with a user message.
	Attachments []string

	// Pending is true on the assistant placeholder while its run is
	// active; exactly one message is pending at a time and it is always
	// the last element.
	Pending bool
	// Plan is created lazily on the first step event and owned by this
	// message.
	Plan *plan.Plan
}

// NewUserMessage creates a user message with optional file attachments.
func NewUserMessage(content string, attachments ...string) Message {
	return Message{
		Key:         uuid.NewString(),
		Role:        RoleUser,
		Content:     content,
		CreatedAt:   time.Now(),
		Attachments: attachments,
	}
}

// NewPendingAssistantMessage creates the contentless assistant placeholder
// that a run streams into.
func NewPendingAssistantMessage() Message {
	return Message{
		Key:       uuid.NewString(),
		Role:      RoleAssistant,
		CreatedAt: time.Now(),
		Pending:   true,
	}
}

// IsUser reports whether the message was authored by the user.
func (m Message) IsUser() bool { return m.Role == RoleUser }

// IsAssistant reports whether the message was authored by the assistant.
func (m Message) IsAssistant() bool { return m.Role == RoleAssistant }

// Empty reports whether an assistant message accumulated nothing: no
// content, no plan, and no error. Empty placeholders are rolled back on
// cancellation.
func (m Message) Empty() bool {
	return m.Content == "" && m.Plan == nil && m.Err == nil
}
