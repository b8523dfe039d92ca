package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/convoflow/convoflow/channel"
	"github.com/convoflow/convoflow/flow"
)

// Engine drives node-by-node flow execution: it runs the current node's
// executor, auto-advances through non-interactive nodes via edge
// resolution, persists conversation state after every step and stops at
// interactive or terminal nodes. It never lets an error escape to the
// webhook boundary; structural problems terminate the conversation
// instead.
type Engine struct {
	l        *slog.Logger
	cfg      Config
	registry *Registry
	deps     *Collaborators
}

func New(l *slog.Logger, cfg Config, deps *Collaborators) *Engine {
	return &Engine{
		l:        l,
		cfg:      cfg,
		registry: NewRegistry(),
		deps:     deps,
	}
}

// Start begins a freshly created conversation at the flow's start node.
// inbound is the trigger message that started the flow.
func (e *Engine) Start(ctx context.Context, conv *Conversation, f *flow.Flow, adapter channel.Adapter, inbound string) {
	ec := e.newExecContext(ctx, conv, f, adapter, inbound)
	e.logInbound(ec)

	start := f.StartNode()
	if start == nil {
		e.l.ErrorContext(ctx, "flow has no start node", "flow", f.ID, "conversation", conv.ID)
		e.finalize(ec, ConversationCompleted, "missing_start_node")
		return
	}
	e.run(ec, start)
}

// Resume feeds an inbound message to an active conversation: the current
// node's resume semantics run first (answer validation, free-text capture),
// then edge resolution advances the flow.
func (e *Engine) Resume(ctx context.Context, conv *Conversation, f *flow.Flow, adapter channel.Adapter, inbound string) {
	ec := e.newExecContext(ctx, conv, f, adapter, inbound)
	e.logInbound(ec)

	node := f.NodeByID(conv.CurrentNodeID)
	if node == nil {
		e.l.ErrorContext(ctx, "conversation points at missing node",
			"conversation", conv.ID,
			"node", conv.CurrentNodeID,
			"flow", f.ID)
		e.finalize(ec, ConversationCompleted, "missing_node")
		return
	}

	executor, ok := e.registry.Get(node.Type)
	if !ok {
		e.finalize(ec, ConversationCompleted, "unknown_node_type")
		return
	}

	res := StepResult{Continue: true}
	if resumer, ok := executor.(Resumer); ok {
		var err error
		res, err = resumer.Resume(ec, node)
		if err != nil {
			e.l.ErrorContext(ctx, "resume failed", "node", node.ID, "error", err)
			e.finalize(ec, ConversationCompleted, "resume_error")
			return
		}
	}

	e.applyPatch(ec, res)
	e.persist(ec)

	switch {
	case res.WaitForInput:
		return
	case res.EndFlow:
		e.finalize(ec, res.EndReason, "")
		return
	}

	next := ResolveEdge(node, f, conv.Variables, inbound, res)
	if next == nil {
		e.finalize(ec, ConversationCompleted, "no_edge")
		return
	}
	e.run(ec, next)
}

// run is the auto-advance loop. The step counter bounds consecutive steps
// within one turn; tripping it force-completes the conversation, which is
// the cycle-safety guarantee.
func (e *Engine) run(ec *ExecContext, node *flow.Node) {
	for steps := 0; ; steps++ {
		if steps >= e.cfg.MaxSteps {
			e.l.ErrorContext(ec, "step limit exceeded, force-completing conversation",
				"conversation", ec.Conversation.ID,
				"flow", ec.Flow.ID,
				"node", node.ID,
				"max_steps", e.cfg.MaxSteps)
			e.finalize(ec, ConversationCompleted, "step_limit")
			return
		}

		executor, ok := e.registry.Get(node.Type)
		if !ok {
			e.finalize(ec, ConversationCompleted, "unknown_node_type")
			return
		}

		ec.Conversation.CurrentNodeID = node.ID
		res, err := executor.Execute(ec, node)
		if err != nil {
			e.l.ErrorContext(ec, "node execution failed",
				"conversation", ec.Conversation.ID,
				"node", node.ID,
				"type", node.Type,
				"error", err)
			e.finalize(ec, ConversationCompleted, "execution_error")
			return
		}

		e.applyPatch(ec, res)
		e.persist(ec)

		switch {
		case res.EndFlow:
			e.finalize(ec, res.EndReason, "")
			return
		case res.WaitForInput:
			return
		}

		next := ResolveEdge(node, ec.Flow, ec.Conversation.Variables, ec.Inbound, res)
		if next == nil {
			e.finalize(ec, ConversationCompleted, "no_edge")
			return
		}
		node = next
	}
}

func (e *Engine) newExecContext(ctx context.Context, conv *Conversation, f *flow.Flow, adapter channel.Adapter, inbound string) *ExecContext {
	return &ExecContext{
		Context:      ctx,
		Conversation: conv,
		Flow:         f,
		Adapter:      adapter,
		Inbound:      inbound,
		Deps:         e.deps,
		l:            e.l,
	}
}

func (e *Engine) applyPatch(ec *ExecContext, res StepResult) {
	for k, v := range res.VariablePatch {
		ec.Conversation.SetVariable(k, v)
	}
}

func (e *Engine) persist(ec *ExecContext) {
	ec.Conversation.UpdatedAt = time.Now()
	if err := e.deps.Conversations.UpdateConversation(ec, ec.Conversation); err != nil {
		e.l.ErrorContext(ec, "conversation persist failed",
			"conversation", ec.Conversation.ID,
			"error", err)
	}
}

func (e *Engine) finalize(ec *ExecContext, state ConversationState, reason string) {
	if state == "" {
		state = ConversationCompleted
	}
	ec.Conversation.Finalize(state)
	if reason != "" {
		if ec.Conversation.Metadata == nil {
			ec.Conversation.Metadata = make(map[string]string)
		}
		ec.Conversation.Metadata["end_reason"] = reason
	}
	e.persist(ec)
	e.l.InfoContext(ec, "conversation finalized",
		"conversation", ec.Conversation.ID,
		"state", state,
		"reason", reason)
}

func (e *Engine) logInbound(ec *ExecContext) {
	if ec.Inbound == "" {
		return
	}
	entry := &MessageEntry{
		ID:             uuid.New().String(),
		ConversationID: ec.Conversation.ID,
		Direction:      DirectionIn,
		Content:        ec.Inbound,
		NodeID:         ec.Conversation.CurrentNodeID,
		CreatedAt:      time.Now(),
	}
	if err := e.deps.Conversations.AppendMessage(ec, entry); err != nil {
		e.l.ErrorContext(ec, "failed to append inbound message log entry",
			"conversation", ec.Conversation.ID,
			"error", err)
	}
}
