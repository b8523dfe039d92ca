package engine

import (
	"strings"

	"github.com/convoflow/convoflow/channel"
	"github.com/convoflow/convoflow/flow"
)

// startExecutor advances immediately; the start node carries no behavior.
type startExecutor struct{}

func (x *startExecutor) Execute(_ *ExecContext, _ *flow.Node) (StepResult, error) {
	return continueResult(), nil
}

type messageConfig struct {
	Kind        string             `json:"kind"` // text (default) | image | buttons | list
	Text        string             `json:"text"`
	ImageURL    string             `json:"image_url"`
	Caption     string             `json:"caption"`
	Buttons     []channel.Button   `json:"buttons"`
	Items       []channel.ListItem `json:"items"`
	ButtonLabel string             `json:"button_label"`
}

// messageExecutor sends content through the adapter. Plain text and images
// auto-advance; buttons and lists pause for the user's reply.
type messageExecutor struct{}

func (x *messageExecutor) Execute(ec *ExecContext, node *flow.Node) (StepResult, error) {
	var cfg messageConfig
	if err := decodeConfig(node, &cfg); err != nil {
		return StepResult{}, err
	}

	text := ec.Interpolated(cfg.Text)

	switch cfg.Kind {
	case "image":
		if err := ec.SendImage(node.ID, cfg.ImageURL, ec.Interpolated(cfg.Caption)); err != nil {
			ec.l.ErrorContext(ec, "message node send failed", "node", node.ID, "error", err)
		}
		return continueResult(), nil
	case "buttons":
		if err := ec.SendButtons(node.ID, text, interpolateButtons(ec, cfg.Buttons)); err != nil {
			ec.l.ErrorContext(ec, "message node send failed", "node", node.ID, "error", err)
		}
		return waitResult(), nil
	case "list":
		if err := ec.SendList(node.ID, text, cfg.ButtonLabel, interpolateItems(ec, cfg.Items)); err != nil {
			ec.l.ErrorContext(ec, "message node send failed", "node", node.ID, "error", err)
		}
		return waitResult(), nil
	default:
		if err := ec.SendText(node.ID, text); err != nil {
			ec.l.ErrorContext(ec, "message node send failed", "node", node.ID, "error", err)
		}
		return continueResult(), nil
	}
}

func interpolateButtons(ec *ExecContext, buttons []channel.Button) []channel.Button {
	out := make([]channel.Button, len(buttons))
	for i, b := range buttons {
		out[i] = channel.Button{ID: b.ID, Label: ec.Interpolated(b.Label)}
	}
	return out
}

func interpolateItems(ec *ExecContext, items []channel.ListItem) []channel.ListItem {
	out := make([]channel.ListItem, len(items))
	for i, it := range items {
		out[i] = channel.ListItem{
			ID:          it.ID,
			Title:       ec.Interpolated(it.Title),
			Description: ec.Interpolated(it.Description),
		}
	}
	return out
}

type setVariableConfig struct {
	Variable    string `json:"variable"`
	Value       string `json:"value"`
	SystemValue string `json:"system_value"` // current_date | current_time | timestamp
}

// setVariableExecutor stores a computed value: an interpolated literal or
// one of the reserved system values.
type setVariableExecutor struct{}

func (x *setVariableExecutor) Execute(ec *ExecContext, node *flow.Node) (StepResult, error) {
	var cfg setVariableConfig
	if err := decodeConfig(node, &cfg); err != nil {
		return StepResult{}, err
	}

	value := ec.Interpolated(cfg.Value)
	if cfg.SystemValue != "" {
		value = ec.Interpolated("{{" + cfg.SystemValue + "}}")
	}

	res := continueResult()
	res.VariablePatch = map[string]string{cfg.Variable: value}
	return res, nil
}

type awaitFreeTextConfig struct {
	Prompt   string `json:"prompt"`
	Variable string `json:"variable"`
}

// awaitFreeTextExecutor pauses for the user's next message and stores it
// trimmed, with no validation.
type awaitFreeTextExecutor struct{}

func (x *awaitFreeTextExecutor) Execute(ec *ExecContext, node *flow.Node) (StepResult, error) {
	var cfg awaitFreeTextConfig
	if err := decodeConfig(node, &cfg); err != nil {
		return StepResult{}, err
	}

	if cfg.Prompt != "" {
		if err := ec.SendText(node.ID, ec.Interpolated(cfg.Prompt)); err != nil {
			ec.l.ErrorContext(ec, "await node prompt send failed", "node", node.ID, "error", err)
		}
	}
	return waitResult(), nil
}

func (x *awaitFreeTextExecutor) Resume(ec *ExecContext, node *flow.Node) (StepResult, error) {
	var cfg awaitFreeTextConfig
	if err := decodeConfig(node, &cfg); err != nil {
		return StepResult{}, err
	}

	res := continueResult()
	res.VariablePatch = map[string]string{cfg.Variable: strings.TrimSpace(ec.Inbound)}
	return res, nil
}

type handoffConfig struct {
	Message string `json:"message"`
}

const defaultHandoffMessage = "One of our agents will continue this conversation shortly."

// handoffExecutor tells the user a human is taking over and ends the flow
// as transferred.
type handoffExecutor struct{}

func (x *handoffExecutor) Execute(ec *ExecContext, node *flow.Node) (StepResult, error) {
	var cfg handoffConfig
	if err := decodeConfig(node, &cfg); err != nil {
		return StepResult{}, err
	}

	msg := cfg.Message
	if msg == "" {
		msg = defaultHandoffMessage
	}
	if err := ec.SendText(node.ID, ec.Interpolated(msg)); err != nil {
		ec.l.ErrorContext(ec, "handoff message send failed", "node", node.ID, "error", err)
	}

	return StepResult{EndFlow: true, EndReason: ConversationTransferred}, nil
}

type endConfig struct {
	Message string `json:"message"`
}

// endExecutor sends an optional farewell and completes the conversation.
type endExecutor struct{}

func (x *endExecutor) Execute(ec *ExecContext, node *flow.Node) (StepResult, error) {
	var cfg endConfig
	if err := decodeConfig(node, &cfg); err != nil {
		return StepResult{}, err
	}

	if cfg.Message != "" {
		if err := ec.SendText(node.ID, ec.Interpolated(cfg.Message)); err != nil {
			ec.l.ErrorContext(ec, "end message send failed", "node", node.ID, "error", err)
		}
	}
	return StepResult{EndFlow: true, EndReason: ConversationCompleted}, nil
}
