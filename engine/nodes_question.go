package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/convoflow/convoflow/channel"
	"github.com/convoflow/convoflow/flow"
)

var answerValidate = validator.New()

type questionOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type questionConfig struct {
	Prompt       string           `json:"prompt"`
	AnswerType   string           `json:"answer_type"` // free_text (default) | email | phone | number | date | multiple_choice
	Variable     string           `json:"variable"`
	Required     bool             `json:"required"`
	MinLength    int              `json:"min_length"`
	ErrorMessage string           `json:"error_message"`
	Options      []questionOption `json:"options"`
}

const defaultAnswerError = "That doesn't look like a valid answer, could you try again?"

// questionExecutor sends a prompt and pauses. On resume it validates the
// reply against the declared answer type; an invalid reply re-prompts with
// the error message without advancing the node or consuming an edge.
type questionExecutor struct{}

func (x *questionExecutor) Execute(ec *ExecContext, node *flow.Node) (StepResult, error) {
	var cfg questionConfig
	if err := decodeConfig(node, &cfg); err != nil {
		return StepResult{}, err
	}

	prompt := ec.Interpolated(cfg.Prompt)
	if cfg.AnswerType == "multiple_choice" && len(cfg.Options) > 0 {
		buttons := make([]channel.Button, 0, len(cfg.Options))
		for _, o := range cfg.Options {
			buttons = append(buttons, channel.Button{ID: o.ID, Label: ec.Interpolated(o.Label)})
		}
		if err := ec.SendButtons(node.ID, prompt, buttons); err != nil {
			ec.l.ErrorContext(ec, "question prompt send failed", "node", node.ID, "error", err)
		}
	} else {
		if err := ec.SendText(node.ID, prompt); err != nil {
			ec.l.ErrorContext(ec, "question prompt send failed", "node", node.ID, "error", err)
		}
	}
	return waitResult(), nil
}

func (x *questionExecutor) Resume(ec *ExecContext, node *flow.Node) (StepResult, error) {
	var cfg questionConfig
	if err := decodeConfig(node, &cfg); err != nil {
		return StepResult{}, err
	}

	answer, ok := validateAnswer(&cfg, ec.Inbound)
	if !ok {
		msg := cfg.ErrorMessage
		if msg == "" {
			msg = defaultAnswerError
		}
		if err := ec.SendText(node.ID, ec.Interpolated(msg)); err != nil {
			ec.l.ErrorContext(ec, "validation error send failed", "node", node.ID, "error", err)
		}
		return waitResult(), nil
	}

	res := continueResult()
	res.VariablePatch = map[string]string{cfg.Variable: answer}
	return res, nil
}

// validateAnswer checks a trimmed reply against the question's answer type
// and required/min-length rules, returning the canonical value to store.
func validateAnswer(cfg *questionConfig, raw string) (string, bool) {
	answer := strings.TrimSpace(raw)

	if answer == "" {
		return "", !cfg.Required
	}
	if cfg.MinLength > 0 && len([]rune(answer)) < cfg.MinLength {
		return "", false
	}

	switch cfg.AnswerType {
	case "", "free_text":
		return answer, true
	case "email":
		if answerValidate.Var(answer, "required,email") != nil {
			return "", false
		}
		return answer, true
	case "phone":
		return answer, validPhone(answer)
	case "number":
		_, err := strconv.ParseFloat(answer, 64)
		return answer, err == nil
	case "date":
		for _, layout := range []string{"2006-01-02", "02/01/2006", "02-01-2006"} {
			if _, err := time.Parse(layout, answer); err == nil {
				return answer, true
			}
		}
		return "", false
	case "multiple_choice":
		for _, o := range cfg.Options {
			if strings.EqualFold(answer, o.ID) || strings.EqualFold(answer, o.Label) {
				return o.ID, true
			}
		}
		return "", false
	}
	return answer, true
}

// validPhone accepts 7-15 digits after stripping common separators.
func validPhone(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == '-' || r == '(' || r == ')' || r == ' ' || r == '.':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}
