package flow

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks a flow definition for structural defects before it is
// ever executed: required fields, unique node ids, edge endpoints, exactly
// one start node, terminal nodes without outgoing edges, condition branch
// edges, and unknown node/edge/trigger types.
func Validate(f *Flow) error {
	if err := validate.Struct(f); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("field %s failed rule %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("flow %s: %s", f.ID, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("flow %s: %w", f.ID, err)
	}

	ids := make(map[string]bool, len(f.Nodes))
	starts := 0
	for _, n := range f.Nodes {
		if ids[n.ID] {
			return fmt.Errorf("flow %s: duplicate node id %q", f.ID, n.ID)
		}
		ids[n.ID] = true

		if !KnownNodeType(n.Type) {
			return fmt.Errorf("flow %s: node %q has unknown type %q", f.ID, n.ID, n.Type)
		}
		if n.Type == NodeStart {
			starts++
		}
	}
	if starts != 1 {
		return fmt.Errorf("flow %s: expected exactly one start node, found %d", f.ID, starts)
	}

	for _, e := range f.Edges {
		if !ids[e.From] {
			return fmt.Errorf("flow %s: edge %s->%s references unknown origin node", f.ID, e.From, e.To)
		}
		if !ids[e.To] {
			return fmt.Errorf("flow %s: edge %s->%s references unknown destination node", f.ID, e.From, e.To)
		}
		if !edgeConditions[e.Condition] {
			return fmt.Errorf("flow %s: edge %s->%s has unknown condition %q", f.ID, e.From, e.To, e.Condition)
		}
	}

	for _, n := range f.Nodes {
		out := f.EdgesFrom(n.ID)
		if n.Type.Terminal() && len(out) > 0 {
			return fmt.Errorf("flow %s: terminal node %q must not have outgoing edges", f.ID, n.ID)
		}
		if n.Type == NodeCondition {
			if err := checkConditionBranches(f.ID, n.ID, out); err != nil {
				return err
			}
		} else {
			defaults := 0
			for _, e := range out {
				switch e.Condition {
				case EdgeDefault:
					defaults++
				case EdgeConditionTrue, EdgeConditionFalse:
					return fmt.Errorf("flow %s: node %q is not a condition node but has a %s edge", f.ID, n.ID, e.Condition)
				}
			}
			if defaults > 1 {
				return fmt.Errorf("flow %s: node %q has %d default edges, at most one is allowed", f.ID, n.ID, defaults)
			}
		}
	}

	switch f.Trigger.Type {
	case TriggerKeyword, TriggerExact, TriggerRegex, TriggerAny, "":
	default:
		return fmt.Errorf("flow %s: unknown trigger type %q", f.ID, f.Trigger.Type)
	}

	return nil
}

// checkConditionBranches enforces the condition-node edge contract: exactly
// one true branch, exactly one false branch, plus an optional default.
func checkConditionBranches(flowID, nodeID string, out []Edge) error {
	var trues, falses, defaults int
	for _, e := range out {
		switch e.Condition {
		case EdgeConditionTrue:
			trues++
		case EdgeConditionFalse:
			falses++
		case EdgeDefault:
			defaults++
		default:
			return fmt.Errorf("flow %s: condition node %q has unsupported edge condition %q", flowID, nodeID, e.Condition)
		}
	}
	if trues != 1 || falses != 1 {
		return fmt.Errorf("flow %s: condition node %q needs exactly one true and one false branch (got %d/%d)", flowID, nodeID, trues, falses)
	}
	if defaults > 1 {
		return fmt.Errorf("flow %s: condition node %q has %d default edges, at most one is allowed", flowID, nodeID, defaults)
	}
	return nil
}
