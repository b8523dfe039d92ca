// Package flow defines the declarative flow graph consumed by the engine:
// nodes, edges, triggers and the variable schema, plus structural validation
// and a YAML loader for authored flow files.
package flow

// NodeType is the closed set of node behaviors. Unknown types are rejected
// by Validate, never at execution time.
type NodeType string

const (
	NodeStart           NodeType = "start"
	NodeMessage         NodeType = "message"
	NodeQuestion        NodeType = "question"
	NodeCondition       NodeType = "condition"
	NodeSetVariable     NodeType = "set_variable"
	NodePersistRecord   NodeType = "persist_record"
	NodeKnowledgeLookup NodeType = "knowledge_lookup"
	NodeLLMReply        NodeType = "llm_reply"
	NodeCreateTask      NodeType = "create_task"
	NodeHandoff         NodeType = "handoff"
	NodeScheduleEvent   NodeType = "schedule_event"
	NodeAwaitFreeText   NodeType = "await_free_text"
	NodeEnd             NodeType = "end"
)

var nodeTypes = map[NodeType]bool{
	NodeStart:           true,
	NodeMessage:         true,
	NodeQuestion:        true,
	NodeCondition:       true,
	NodeSetVariable:     true,
	NodePersistRecord:   true,
	NodeKnowledgeLookup: true,
	NodeLLMReply:        true,
	NodeCreateTask:      true,
	NodeHandoff:         true,
	NodeScheduleEvent:   true,
	NodeAwaitFreeText:   true,
	NodeEnd:             true,
}

// KnownNodeType reports whether t belongs to the closed node type set.
func KnownNodeType(t NodeType) bool {
	return nodeTypes[t]
}

// Terminal reports whether nodes of type t end the conversation and must
// have no outgoing edges.
func (t NodeType) Terminal() bool {
	return t == NodeHandoff || t == NodeEnd
}

// EdgeCondition tags the condition under which an edge is followed.
// The empty string is the default/unconditional edge.
type EdgeCondition string

const (
	EdgeDefault        EdgeCondition = ""
	EdgeButton         EdgeCondition = "button"
	EdgeTextExact      EdgeCondition = "text_exact"
	EdgeTextContains   EdgeCondition = "text_contains"
	EdgeVariableEquals EdgeCondition = "variable_equals"
	EdgeVariableSet    EdgeCondition = "variable_set"
	EdgeRegex          EdgeCondition = "regex"
	EdgeConditionTrue  EdgeCondition = "condition_true"
	EdgeConditionFalse EdgeCondition = "condition_false"
)

var edgeConditions = map[EdgeCondition]bool{
	EdgeDefault:        true,
	EdgeButton:         true,
	EdgeTextExact:      true,
	EdgeTextContains:   true,
	EdgeVariableEquals: true,
	EdgeVariableSet:    true,
	EdgeRegex:          true,
	EdgeConditionTrue:  true,
	EdgeConditionFalse: true,
}

// Node is one step of a flow. Config is the type-specific payload, decoded
// by the matching executor.
type Node struct {
	ID     string         `yaml:"id" json:"id" validate:"required"`
	Type   NodeType       `yaml:"type" json:"type" validate:"required"`
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// Edge is a directed, optionally conditional transition between two nodes.
// Value carries the comparison operand (button id, text, pattern or variable
// value); Variable names the conversation variable for variable_* conditions.
type Edge struct {
	ID        string        `yaml:"id,omitempty" json:"id,omitempty"`
	From      string        `yaml:"from" json:"from" validate:"required"`
	To        string        `yaml:"to" json:"to" validate:"required"`
	Condition EdgeCondition `yaml:"condition,omitempty" json:"condition,omitempty"`
	Variable  string        `yaml:"variable,omitempty" json:"variable,omitempty"`
	Value     string        `yaml:"value,omitempty" json:"value,omitempty"`
}

// TriggerType selects how an inbound message is matched against a flow.
type TriggerType string

const (
	TriggerKeyword TriggerType = "keyword"
	TriggerExact   TriggerType = "exact"
	TriggerRegex   TriggerType = "regex"
	TriggerAny     TriggerType = "any"
)

// Trigger is the matcher used to start a flow from an inbound message.
type Trigger struct {
	Type     TriggerType `yaml:"type" json:"type"`
	Value    string      `yaml:"value,omitempty" json:"value,omitempty"`
	Channels []string    `yaml:"channels" json:"channels"`
}

// VariableDef declares a variable the flow writes, with a type hint for
// authoring tools. The engine itself stores every value as a string.
type VariableDef struct {
	Name string `yaml:"name" json:"name" validate:"required"`
	Type string `yaml:"type,omitempty" json:"type,omitempty"`
}

// Status is the flow lifecycle state. Only active flows are triggerable.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusActive Status = "active"
	StatusPaused Status = "paused"
)

// Flow is the externally authored artifact the engine executes. It must
// round-trip losslessly through storage (JSON) and the YAML loader.
type Flow struct {
	ID        string        `yaml:"id" json:"id" validate:"required"`
	TenantID  string        `yaml:"tenant_id" json:"tenant_id" validate:"required"`
	Name      string        `yaml:"name,omitempty" json:"name,omitempty"`
	Status    Status        `yaml:"status,omitempty" json:"status"`
	Trigger   Trigger       `yaml:"trigger" json:"trigger"`
	Nodes     []Node        `yaml:"nodes" json:"nodes" validate:"required,min=1"`
	Edges     []Edge        `yaml:"edges,omitempty" json:"edges,omitempty"`
	Variables []VariableDef `yaml:"variables,omitempty" json:"variables,omitempty"`
}

// NodeByID returns the node with the given id, or nil.
func (f *Flow) NodeByID(id string) *Node {
	for i := range f.Nodes {
		if f.Nodes[i].ID == id {
			return &f.Nodes[i]
		}
	}
	return nil
}

// StartNode returns the unique start node, or nil for an invalid flow.
func (f *Flow) StartNode() *Node {
	for i := range f.Nodes {
		if f.Nodes[i].Type == NodeStart {
			return &f.Nodes[i]
		}
	}
	return nil
}

// EdgesFrom returns the outgoing edges of a node in declaration order.
// Declaration order is load-bearing: edge resolution is first-match-wins.
func (f *Flow) EdgesFrom(nodeID string) []Edge {
	var out []Edge
	for _, e := range f.Edges {
		if e.From == nodeID {
			out = append(out, e)
		}
	}
	return out
}
