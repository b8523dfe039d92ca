package engine

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// Config bounds engine behavior. MaxSteps is the cycle-safety guarantee: a
// hard cap on consecutive auto-advancing steps within one turn; exceeding
// it force-completes the conversation.
type Config struct {
	MaxSteps       int `json:"max_steps" mapstructure:"max_steps" default:"20" validate:"gte=1,lte=500"`
	KnowledgeLimit int `json:"knowledge_limit" mapstructure:"knowledge_limit" default:"3" validate:"gte=1,lte=20"`
}

var configValidate = validator.New()

// NewConfig returns a Config with defaults applied and validated.
func NewConfig() Config {
	var cfg Config
	// defaults on a fresh struct cannot fail
	_ = defaults.Set(&cfg)
	return cfg
}

// Check validates externally supplied values against the struct rules.
func (c *Config) Check() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("failed to apply defaults: %w", err)
	}
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("engine config validation failed: %w", err)
	}
	return nil
}
