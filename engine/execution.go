package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/convoflow/convoflow/channel"
	"github.com/convoflow/convoflow/flow"
)

// StepResult is what a node executor reports back to the engine loop.
type StepResult struct {
	Continue        bool
	WaitForInput    bool
	EndFlow         bool
	EndReason       ConversationState
	ConditionResult *bool
	VariablePatch   map[string]string
}

func continueResult() StepResult {
	return StepResult{Continue: true}
}

func waitResult() StepResult {
	return StepResult{WaitForInput: true}
}

// ExecContext carries everything one step needs: the conversation with its
// mutable variable map, the flow, the outbound adapter, the raw inbound
// message of the current turn (empty on first entry) and the external
// collaborators. It embeds the request context so collaborator calls keep
// cancellation semantics.
type ExecContext struct {
	context.Context
	Conversation *Conversation
	Flow         *flow.Flow
	Adapter      channel.Adapter
	Inbound      string
	Deps         *Collaborators

	l *slog.Logger
}

// Var returns a conversation variable, "" when unset.
func (ec *ExecContext) Var(name string) string {
	return ec.Conversation.Variables[name]
}

// Interpolated resolves placeholders against the conversation variables.
func (ec *ExecContext) Interpolated(text string) string {
	return Interpolate(text, ec.Conversation.Variables)
}

// SendText emits text through the adapter and appends an outbound message
// log entry attributed to nodeID. Log failures never block the send.
func (ec *ExecContext) SendText(nodeID, text string) error {
	if err := ec.Adapter.SendText(ec, ec.Conversation.UserID, text); err != nil {
		return err
	}
	ec.logOutbound(nodeID, text)
	return nil
}

func (ec *ExecContext) SendImage(nodeID, url, caption string) error {
	if err := ec.Adapter.SendImage(ec, ec.Conversation.UserID, url, caption); err != nil {
		return err
	}
	ec.logOutbound(nodeID, fmt.Sprintf("[image] %s", url))
	return nil
}

func (ec *ExecContext) SendButtons(nodeID, text string, buttons []channel.Button) error {
	if err := ec.Adapter.SendButtons(ec, ec.Conversation.UserID, text, buttons); err != nil {
		return err
	}
	ec.logOutbound(nodeID, text)
	return nil
}

func (ec *ExecContext) SendList(nodeID, text, buttonLabel string, items []channel.ListItem) error {
	if err := ec.Adapter.SendList(ec, ec.Conversation.UserID, text, buttonLabel, items); err != nil {
		return err
	}
	ec.logOutbound(nodeID, text)
	return nil
}

func (ec *ExecContext) logOutbound(nodeID, content string) {
	entry := &MessageEntry{
		ID:             uuid.New().String(),
		ConversationID: ec.Conversation.ID,
		Direction:      DirectionOut,
		Content:        content,
		NodeID:         nodeID,
		CreatedAt:      time.Now(),
	}
	if err := ec.Deps.Conversations.AppendMessage(ec, entry); err != nil {
		ec.l.ErrorContext(ec, "failed to append outbound message log entry",
			"conversation", ec.Conversation.ID,
			"node", nodeID,
			"error", err)
	}
}

// decodeConfig converts a node's opaque payload into the executor's typed
// config struct. Weak typing tolerates YAML/JSON scalar differences.
func decodeConfig(node *flow.Node, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(node.Config); err != nil {
		return fmt.Errorf("failed to decode config for node %s: %w", node.ID, err)
	}
	return nil
}
