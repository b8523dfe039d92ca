package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/convoflow/convoflow/flow"
)

type knowledgeLookupConfig struct {
	Category string `json:"category"`
	Query    string `json:"query"`
	Variable string `json:"variable"`
	Limit    int    `json:"limit"`
}

const defaultKnowledgeLimit = 3

// knowledgeLookupExecutor queries the approved-knowledge collaborator and
// stores formatted results (plus the raw entries) into the destination
// variable. A failed or empty lookup yields an explanatory fallback string,
// never an error.
type knowledgeLookupExecutor struct{}

func (x *knowledgeLookupExecutor) Execute(ec *ExecContext, node *flow.Node) (StepResult, error) {
	var cfg knowledgeLookupConfig
	if err := decodeConfig(node, &cfg); err != nil {
		return StepResult{}, err
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultKnowledgeLimit
	}
	if cfg.Variable == "" {
		cfg.Variable = "knowledge"
	}

	query := ec.Interpolated(cfg.Query)
	if query == "" {
		query = ec.Inbound
	}

	res := continueResult()
	entries, err := ec.Deps.Knowledge.Search(ec, ec.Conversation.TenantID, cfg.Category, query, cfg.Limit)
	if err != nil || len(entries) == 0 {
		if err != nil {
			ec.l.ErrorContext(ec, "knowledge lookup failed",
				"node", node.ID,
				"query", query,
				"error", err)
		}
		res.VariablePatch = map[string]string{
			cfg.Variable: fmt.Sprintf("No approved answer was found for %q.", query),
		}
		return res, nil
	}

	res.VariablePatch = map[string]string{
		cfg.Variable:          formatKnowledge(entries),
		cfg.Variable + "_raw": rawKnowledge(entries),
	}
	return res, nil
}

func formatKnowledge(entries []KnowledgeEntry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s: %s", e.Title, e.Content))
	}
	return strings.Join(lines, "\n\n")
}

func rawKnowledge(entries []KnowledgeEntry) string {
	data, err := json.Marshal(entries)
	if err != nil {
		return ""
	}
	return string(data)
}

type llmReplyConfig struct {
	SystemPrompt      string `json:"system_prompt"`
	Variable          string `json:"variable"`
	IncludeKnowledge  bool   `json:"include_knowledge"`
	KnowledgeCategory string `json:"knowledge_category"`
	IncludeVariables  bool   `json:"include_variables"`
}

const llmApology = "Sorry, I can't answer that right now. Please try again in a moment."

// llmReplyExecutor composes a system instruction from static text plus
// optionally injected approved knowledge and conversation variables, asks
// the completion collaborator for a reply to the latest inbound text, sends
// it and stores it. On failure it sends a generic apology and continues.
type llmReplyExecutor struct{}

func (x *llmReplyExecutor) Execute(ec *ExecContext, node *flow.Node) (StepResult, error) {
	var cfg llmReplyConfig
	if err := decodeConfig(node, &cfg); err != nil {
		return StepResult{}, err
	}
	if cfg.Variable == "" {
		cfg.Variable = "llm_reply"
	}

	prompt := x.buildSystemPrompt(ec, &cfg)

	reply, err := ec.Deps.Completer.Complete(ec, prompt, ec.Inbound)
	if err != nil {
		ec.l.ErrorContext(ec, "completion call failed", "node", node.ID, "error", err)
		if sendErr := ec.SendText(node.ID, llmApology); sendErr != nil {
			ec.l.ErrorContext(ec, "apology send failed", "node", node.ID, "error", sendErr)
		}
		return continueResult(), nil
	}

	if err := ec.SendText(node.ID, reply); err != nil {
		ec.l.ErrorContext(ec, "llm reply send failed", "node", node.ID, "error", err)
	}

	res := continueResult()
	res.VariablePatch = map[string]string{cfg.Variable: reply}
	return res, nil
}

func (x *llmReplyExecutor) buildSystemPrompt(ec *ExecContext, cfg *llmReplyConfig) string {
	var b strings.Builder
	b.WriteString(ec.Interpolated(cfg.SystemPrompt))

	if cfg.IncludeKnowledge {
		entries, err := ec.Deps.Knowledge.Search(ec, ec.Conversation.TenantID, cfg.KnowledgeCategory, ec.Inbound, defaultKnowledgeLimit)
		if err != nil {
			ec.l.ErrorContext(ec, "knowledge injection failed", "error", err)
		} else if len(entries) > 0 {
			b.WriteString("\n\nApproved knowledge:\n")
			b.WriteString(formatKnowledge(entries))
		}
	}

	if cfg.IncludeVariables && len(ec.Conversation.Variables) > 0 {
		b.WriteString("\n\nConversation data:\n")
		for k, v := range ec.Conversation.Variables {
			fmt.Fprintf(&b, "- %s: %s\n", k, v)
		}
	}
	return b.String()
}
