// Package engine implements the conversational flow engine: a small
// interpreter that executes a flow graph against inbound channel messages,
// keeping per-conversation state across turns and emitting outbound actions
// through the channel adapter contract.
package engine

import "time"

// ConversationState is the conversation lifecycle. Transitions are
// monotonic: transferred and completed are terminal.
type ConversationState string

const (
	ConversationActive      ConversationState = "active"
	ConversationTransferred ConversationState = "transferred"
	ConversationCompleted   ConversationState = "completed"
)

// Conversation is one execution instance of a flow for one user on one
// channel. UserID is the opaque per-channel identifier (phone number, chat
// id, session id).
type Conversation struct {
	ID            string            `json:"id"`
	TenantID      string            `json:"tenant_id"`
	FlowID        string            `json:"flow_id"`
	Channel       string            `json:"channel"`
	UserID        string            `json:"user_id"`
	CurrentNodeID string            `json:"current_node_id"`
	Variables     map[string]string `json:"variables"`
	State         ConversationState `json:"state"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Finished reports whether the conversation reached a terminal state.
func (c *Conversation) Finished() bool {
	return c.State != ConversationActive
}

// Finalize moves the conversation to a terminal state. Terminal states
// never revert, so a second call is a no-op.
func (c *Conversation) Finalize(state ConversationState) {
	if c.Finished() {
		return
	}
	c.State = state
}

// SetVariable grows or overwrites the variable map. Keys are never dropped.
func (c *Conversation) SetVariable(name, value string) {
	if c.Variables == nil {
		c.Variables = make(map[string]string)
	}
	c.Variables[name] = value
}

// Direction of a message log entry.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// MessageEntry is one append-only message log row, written on every inbound
// receipt and every outbound emission.
type MessageEntry struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Direction      Direction `json:"direction"`
	Content        string    `json:"content"`
	NodeID         string    `json:"node_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Record is one row written by a persist_record node, tagged with the
// owning tenant.
type Record struct {
	ID             string            `json:"id"`
	TenantID       string            `json:"tenant_id"`
	ConversationID string            `json:"conversation_id"`
	Collection     string            `json:"collection"`
	Fields         map[string]string `json:"fields"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Task is an internal work item created by a create_task node.
type Task struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	ConversationID string    `json:"conversation_id"`
	AssigneeID     string    `json:"assignee_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Agent is a human collaborator tasks can be assigned to.
type Agent struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Appointment links a scheduled calendar event to the conversation that
// booked it.
type Appointment struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	ConversationID  string    `json:"conversation_id"`
	ExternalEventID string    `json:"external_event_id"`
	Title           string    `json:"title"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// KnowledgeEntry is one approved-knowledge result, ranked by confidence.
type KnowledgeEntry struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Event is the calendar event the schedule_event node creates.
type Event struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
}
