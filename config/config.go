// Package config loads the service configuration from file and environment.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/convoflow/convoflow/engine"
)

// Config holds the configuration for the whole service.
type Config struct {
	HTTP struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"http"`
	DB struct {
		DSN string `mapstructure:"dsn"` // empty runs on the in-memory store
	} `mapstructure:"db"`
	FlowsDir string `mapstructure:"flows_dir"`
	WhatsApp struct {
		BaseURL     string `mapstructure:"base_url"`
		Token       string `mapstructure:"token"`
		PhoneID     string `mapstructure:"phone_id"`
		VerifyToken string `mapstructure:"verify_token"`
	} `mapstructure:"whatsapp"`
	Telegram struct {
		BaseURL string `mapstructure:"base_url"`
		Token   string `mapstructure:"token"`
	} `mapstructure:"telegram"`
	LLM struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
		Model   string `mapstructure:"model"`
	} `mapstructure:"llm"`
	Calendar struct {
		BaseURL      string `mapstructure:"base_url"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
		AuthURL      string `mapstructure:"auth_url"`
		TokenURL     string `mapstructure:"token_url"`
		RefreshToken string `mapstructure:"refresh_token"`
	} `mapstructure:"calendar"`
	SessionTTLMinutes int           `mapstructure:"session_ttl_minutes"`
	Engine            engine.Config `mapstructure:"engine"`
}

// Load reads config.yaml from the working directory or ./config, overlaid
// with environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	viper.SetDefault("http.addr", ":8080")
	viper.SetDefault("flows_dir", "flows")
	viper.SetDefault("session_ttl_minutes", 30)
	viper.SetDefault("whatsapp.base_url", "https://graph.facebook.com/v19.0")
	viper.SetDefault("telegram.base_url", "https://api.telegram.org")
	viper.SetDefault("llm.base_url", "https://api.openai.com/v1")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("calendar.base_url", "https://www.googleapis.com/calendar/v3")
	viper.SetDefault("calendar.auth_url", "https://accounts.google.com/o/oauth2/auth")
	viper.SetDefault("calendar.token_url", "https://oauth2.googleapis.com/token")

	if err := viper.ReadInConfig(); err != nil {
		// a config file is optional; defaults plus env cover dev mode
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.Engine.Check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
