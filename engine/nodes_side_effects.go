package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/convoflow/convoflow/flow"
)

type persistRecordConfig struct {
	Collection string            `json:"collection"`
	Fields     map[string]string `json:"fields"`
}

// persistRecordExecutor writes one interpolated record to the relational
// store, tagged with the owning tenant. The node's whole purpose is the
// side effect, so a store failure is logged and swallowed and the flow
// continues; the missing row is only visible via logs.
type persistRecordExecutor struct{}

func (x *persistRecordExecutor) Execute(ec *ExecContext, node *flow.Node) (StepResult, error) {
	var cfg persistRecordConfig
	if err := decodeConfig(node, &cfg); err != nil {
		return StepResult{}, err
	}

	fields := make(map[string]string, len(cfg.Fields))
	for k, v := range cfg.Fields {
		fields[k] = ec.Interpolated(v)
	}

	record := &Record{
		ID:             uuid.New().String(),
		TenantID:       ec.Conversation.TenantID,
		ConversationID: ec.Conversation.ID,
		Collection:     cfg.Collection,
		Fields:         fields,
		CreatedAt:      time.Now(),
	}
	if err := ec.Deps.Records.SaveRecord(ec, record); err != nil {
		ec.l.ErrorContext(ec, "persist_record write failed",
			"node", node.ID,
			"collection", cfg.Collection,
			"error", err)
	}
	return continueResult(), nil
}

type createTaskConfig struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssigneeID  string `json:"assignee_id"`
}

// createTaskExecutor creates an internal task assigned to an explicit
// collaborator or to the first available agent of the tenant. Failures are
// logged, never surfaced to the end user.
type createTaskExecutor struct{}

func (x *createTaskExecutor) Execute(ec *ExecContext, node *flow.Node) (StepResult, error) {
	var cfg createTaskConfig
	if err := decodeConfig(node, &cfg); err != nil {
		return StepResult{}, err
	}

	assignee := cfg.AssigneeID
	if assignee == "" {
		agent, err := ec.Deps.Tasks.FirstAvailableAgent(ec, ec.Conversation.TenantID)
		if err != nil {
			ec.l.ErrorContext(ec, "no available agent for task",
				"node", node.ID,
				"tenant", ec.Conversation.TenantID,
				"error", err)
			return continueResult(), nil
		}
		assignee = agent.ID
	}

	task := &Task{
		ID:             uuid.New().String(),
		TenantID:       ec.Conversation.TenantID,
		ConversationID: ec.Conversation.ID,
		AssigneeID:     assignee,
		Title:          ec.Interpolated(cfg.Title),
		Description:    ec.Interpolated(cfg.Description),
		CreatedAt:      time.Now(),
	}
	if err := ec.Deps.Tasks.CreateTask(ec, task); err != nil {
		ec.l.ErrorContext(ec, "create_task write failed",
			"node", node.ID,
			"assignee", assignee,
			"error", err)
	}
	return continueResult(), nil
}
