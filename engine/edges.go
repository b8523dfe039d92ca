package engine

import (
	"regexp"
	"strings"

	"github.com/convoflow/convoflow/flow"
)

// ResolveEdge selects the single outgoing edge to follow after executing
// node, returning the destination node or nil when the flow terminates.
//
// Condition nodes route on the executor's boolean result: the matching
// true/false branch wins, then a default edge, then nothing. Every other
// node scans its edges in declaration order, first typed match wins; an
// unconditional edge is remembered as fallback, not short-circuited. With
// no default and exactly one outgoing edge, that edge is followed as a last
// resort.
func ResolveEdge(node *flow.Node, f *flow.Flow, vars map[string]string, inbound string, res StepResult) *flow.Node {
	edges := f.EdgesFrom(node.ID)
	if len(edges) == 0 {
		return nil
	}

	if node.Type == flow.NodeCondition {
		return resolveConditionEdges(f, edges, res.ConditionResult)
	}

	var fallback *flow.Edge
	for i := range edges {
		e := &edges[i]
		switch e.Condition {
		case flow.EdgeDefault:
			if fallback == nil {
				fallback = e
			}
		default:
			if edgeMatches(e, vars, inbound) {
				return f.NodeByID(e.To)
			}
		}
	}

	if fallback != nil {
		return f.NodeByID(fallback.To)
	}
	if len(edges) == 1 {
		return f.NodeByID(edges[0].To)
	}
	return nil
}

func resolveConditionEdges(f *flow.Flow, edges []flow.Edge, result *bool) *flow.Node {
	var fallback *flow.Edge
	for i := range edges {
		e := &edges[i]
		switch e.Condition {
		case flow.EdgeConditionTrue:
			if result != nil && *result {
				return f.NodeByID(e.To)
			}
		case flow.EdgeConditionFalse:
			if result != nil && !*result {
				return f.NodeByID(e.To)
			}
		case flow.EdgeDefault:
			if fallback == nil {
				fallback = e
			}
		}
	}
	if fallback != nil {
		return f.NodeByID(fallback.To)
	}
	return nil
}

func edgeMatches(e *flow.Edge, vars map[string]string, inbound string) bool {
	msg := strings.TrimSpace(inbound)

	switch e.Condition {
	case flow.EdgeButton, flow.EdgeTextExact:
		return msg != "" && strings.EqualFold(msg, strings.TrimSpace(e.Value))
	case flow.EdgeTextContains:
		return msg != "" && strings.Contains(strings.ToLower(msg), strings.ToLower(strings.TrimSpace(e.Value)))
	case flow.EdgeRegex:
		if msg == "" {
			return false
		}
		re, err := regexp.Compile("(?i)" + e.Value)
		if err != nil {
			return false
		}
		return re.MatchString(msg)
	case flow.EdgeVariableEquals:
		return EvalCondition(OpEquals, vars[e.Variable], e.Value)
	case flow.EdgeVariableSet:
		return EvalCondition(OpIsSet, vars[e.Variable], "")
	}
	return false
}
