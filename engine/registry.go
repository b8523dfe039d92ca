package engine

import (
	"github.com/convoflow/convoflow/flow"
)

// NodeExecutor runs one node type. Collaborator failures are handled inside
// the executor; a returned error means the node could not be executed at
// all and the engine terminates the conversation.
type NodeExecutor interface {
	Execute(ec *ExecContext, node *flow.Node) (StepResult, error)
}

// Resumer is implemented by executors of interactive nodes that consume the
// user's next message themselves (answer validation, free-text capture).
// Interactive nodes without resume logic (button/list messages) advance
// purely through edge resolution.
type Resumer interface {
	Resume(ec *ExecContext, node *flow.Node) (StepResult, error)
}

// Registry maps the closed node type set to executor implementations. One
// static table; unknown types never reach execution because flow.Validate
// rejects them.
type Registry struct {
	executors map[flow.NodeType]NodeExecutor
}

func NewRegistry() *Registry {
	return &Registry{
		executors: map[flow.NodeType]NodeExecutor{
			flow.NodeStart:           &startExecutor{},
			flow.NodeMessage:         &messageExecutor{},
			flow.NodeQuestion:        &questionExecutor{},
			flow.NodeCondition:       &conditionExecutor{},
			flow.NodeSetVariable:     &setVariableExecutor{},
			flow.NodePersistRecord:   &persistRecordExecutor{},
			flow.NodeKnowledgeLookup: &knowledgeLookupExecutor{},
			flow.NodeLLMReply:        &llmReplyExecutor{},
			flow.NodeCreateTask:      &createTaskExecutor{},
			flow.NodeHandoff:         &handoffExecutor{},
			flow.NodeScheduleEvent:   &scheduleEventExecutor{},
			flow.NodeAwaitFreeText:   &awaitFreeTextExecutor{},
			flow.NodeEnd:             &endExecutor{},
		},
	}
}

// Get returns the executor for a node type.
func (r *Registry) Get(t flow.NodeType) (NodeExecutor, bool) {
	e, ok := r.executors[t]
	return e, ok
}
