package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all configuration (file + env overrides)
type Config struct {
	Server struct {
		Addr           string        `mapstructure:"addr"`
		Host           string        `mapstructure:"host"`
		Port           string        `mapstructure:"port"`
		LogLevel       string        `mapstructure:"log_level"`
		LogFormat      string        `mapstructure:"log_format"`
		RequestTimeout time.Duration `mapstructure:"request_timeout"`
	} `mapstructure:"server"`

	Filter struct {
		CampaignName string `mapstructure:"campaign_name"`
		TargetName   string `mapstructure:"target_name"`
	} `mapstructure:"filter"`

	Dispatch struct {
		Timeout time.Duration `mapstructure:"timeout"`
		LogLink string        `mapstructure:"log_link"`
	} `mapstructure:"dispatch"`

	LogSink struct {
		Driver string `mapstructure:"driver"`
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"log_sink"`

	Sheets struct {
		SpreadsheetID   string `mapstructure:"spreadsheet_id"`
		Tab             string `mapstructure:"tab"`
		CredentialsFile string `mapstructure:"credentials_file"`
		CredentialsJSON string `mapstructure:"credentials_json"`
	} `mapstructure:"sheets"`

	Slack struct {
		WebhookURL string `mapstructure:"webhook_url"`
	} `mapstructure:"slack"`

	Kafka struct {
		Enabled bool     `mapstructure:"enabled"`
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	} `mapstructure:"kafka"`
}

// legacyEnv maps config keys to the environment names older deployments
// were configured with.
var legacyEnv = map[string]string{
	"server.host":             "HOST",
	"server.port":             "PORT",
	"server.log_level":        "LOG_LEVEL",
	"filter.campaign_name":    "RINGBA_CAMPAIGN_NAME",
	"filter.target_name":      "RINGBA_TARGET_NAME",
	"sheets.spreadsheet_id":   "GOOGLE_SHEET_ID",
	"sheets.tab":              "GOOGLE_SHEET_TAB",
	"sheets.credentials_file": "GOOGLE_CREDS_FILE",
	"sheets.credentials_json": "GOOGLE_CREDS_JSON",
	"slack.webhook_url":       "SLACK_WEBHOOK_URL",
}

var defaults = map[string]any{
	"server.addr":             "",
	"server.host":             "0.0.0.0",
	"server.port":             "8080",
	"server.log_level":        "info",
	"server.log_format":       "console",
	"server.request_timeout":  "30s",
	"filter.campaign_name":    "",
	"filter.target_name":      "",
	"dispatch.timeout":        "10s",
	"dispatch.log_link":       "",
	"log_sink.driver":         "sheets",
	"log_sink.dsn":            "",
	"sheets.spreadsheet_id":   "",
	"sheets.tab":              "Sheet1",
	"sheets.credentials_file": "credentials.json",
	"sheets.credentials_json": "",
	"slack.webhook_url":       "",
	"kafka.enabled":           false,
	"kafka.brokers":           []string{},
	"kafka.topic":             "call-events",
}

func Load() Config {
	_ = godotenv.Load() // optional .env, never overrides the real environment

	v := viper.New()
	v.SetConfigName("application")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	_ = v.ReadInConfig() // optional; env can fully configure

	cfg, err := decode(v)
	if err != nil {
		panic(fmt.Errorf("unable to decode config: %w", err))
	}
	return cfg
}

func decode(v *viper.Viper) (Config, error) {
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, env := range legacyEnv {
		if err := v.BindEnv(k, "APP_"+strings.ToUpper(strings.ReplaceAll(k, ".", "_")), env); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	validate(&cfg)
	return cfg, nil
}

// requestSlack is the time a webhook request may spend outside dispatch.
const requestSlack = 5 * time.Second

func validate(c *Config) {
	if c.Server.Addr == "" {
		c.Server.Addr = c.Server.Host + ":" + c.Server.Port
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 30 * time.Second
	}
	if c.Dispatch.Timeout <= 0 {
		c.Dispatch.Timeout = 10 * time.Second
	}
	if c.LogSink.Driver == "" {
		c.LogSink.Driver = "sheets"
	}
	c.LogSink.Driver = strings.ToLower(c.LogSink.Driver)
	if c.Sheets.Tab == "" {
		c.Sheets.Tab = "Sheet1"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "call-events"
	}
	if need := c.DispatchBudget() + requestSlack; c.Server.RequestTimeout < need {
		log.Warn().
			Dur("request_timeout", c.Server.RequestTimeout).
			Dur("dispatch_budget", c.DispatchBudget()).
			Msg("server.request_timeout does not cover dispatch; raising it")
		c.Server.RequestTimeout = need
	}
}

// DispatchBudget is the longest an in-scope event can spend in dispatch:
// the log append plus each configured alert sink, called one after another.
func (c Config) DispatchBudget() time.Duration {
	calls := 1
	if c.Slack.WebhookURL != "" {
		calls++
	}
	if c.Kafka.Enabled {
		calls++
	}
	return c.Dispatch.Timeout * time.Duration(calls)
}

// Missing lists the settings a working deployment needs but that are unset.
func (c Config) Missing() []string {
	var out []string
	if c.Filter.CampaignName == "" {
		out = append(out, "filter.campaign_name (RINGBA_CAMPAIGN_NAME)")
	}
	if c.Filter.TargetName == "" {
		out = append(out, "filter.target_name (RINGBA_TARGET_NAME)")
	}
	switch c.LogSink.Driver {
	case "sheets":
		if c.Sheets.SpreadsheetID == "" {
			out = append(out, "sheets.spreadsheet_id (GOOGLE_SHEET_ID)")
		}
	case "postgres", "postgresql":
		if c.LogSink.DSN == "" {
			out = append(out, "log_sink.dsn")
		}
	}
	if c.Slack.WebhookURL == "" {
		out = append(out, "slack.webhook_url (SLACK_WEBHOOK_URL)")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		out = append(out, "kafka.brokers")
	}
	return out
}
