package engine

import (
	"context"
	"errors"

	"github.com/convoflow/convoflow/flow"
)

// ErrNotFound is returned by stores when a lookup has no result.
var ErrNotFound = errors.New("not found")

// ConversationStore persists conversation state and the append-only
// message log. The engine treats it as a key/value + query interface.
type ConversationStore interface {
	CreateConversation(ctx context.Context, c *Conversation) error
	UpdateConversation(ctx context.Context, c *Conversation) error
	FindActiveConversation(ctx context.Context, channel, userID string) (*Conversation, error)
	AppendMessage(ctx context.Context, m *MessageEntry) error
	ListMessages(ctx context.Context, conversationID string) ([]MessageEntry, error)
}

// FlowSource resolves flow definitions for routing and resumption.
type FlowSource interface {
	ActiveFlows(ctx context.Context, tenantID string) ([]flow.Flow, error)
	GetFlow(ctx context.Context, id string) (*flow.Flow, error)
}

// RecordStore writes rows produced by persist_record nodes.
type RecordStore interface {
	SaveRecord(ctx context.Context, r *Record) error
}

// TaskStore creates tasks and picks assignees for create_task nodes.
type TaskStore interface {
	CreateTask(ctx context.Context, t *Task) error
	FirstAvailableAgent(ctx context.Context, tenantID string) (*Agent, error)
}

// AppointmentStore persists appointment records for schedule_event nodes.
type AppointmentStore interface {
	SaveAppointment(ctx context.Context, a *Appointment) error
}

// KnowledgeSource queries the approved-knowledge collection, ranked by
// confidence.
type KnowledgeSource interface {
	Search(ctx context.Context, tenantID, category, query string, limit int) ([]KnowledgeEntry, error)
}

// Completer is the completion-service collaborator. The engine does no
// retries of its own; failures become user-facing fallback messages.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Calendar creates events with an externally managed access credential.
// Implementations exchange/refresh the credential themselves.
type Calendar interface {
	CreateEvent(ctx context.Context, tenantID string, ev Event) (eventID string, err error)
}

// Collaborators bundles every external dependency the executors reach.
type Collaborators struct {
	Conversations ConversationStore
	Flows         FlowSource
	Records       RecordStore
	Tasks         TaskStore
	Appointments  AppointmentStore
	Knowledge     KnowledgeSource
	Completer     Completer
	Calendar      Calendar
}
