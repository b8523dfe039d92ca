package engine

import (
	"github.com/convoflow/convoflow/flow"
)

type conditionConfig struct {
	Variable string `json:"variable"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// conditionExecutor evaluates one variable against one operator/value and
// reports the boolean for edge selection. No I/O.
type conditionExecutor struct{}

func (x *conditionExecutor) Execute(ec *ExecContext, node *flow.Node) (StepResult, error) {
	var cfg conditionConfig
	if err := decodeConfig(node, &cfg); err != nil {
		return StepResult{}, err
	}

	result := EvalCondition(Operator(cfg.Operator), ec.Var(cfg.Variable), ec.Interpolated(cfg.Value))

	res := continueResult()
	res.ConditionResult = &result
	return res, nil
}
