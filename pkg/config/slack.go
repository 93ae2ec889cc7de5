package config

// SlackConfig controls the best-effort operational notice posted when a
// user's cost accumulator trips the Cost Guard ceiling (see
// pkg/conversation/slack_notice.go). Disabled unless Enabled is set (in YAML,
// or by SLACK_BOT_TOKEN being present in the environment) and the variable
// named by TokenEnv holds a token; Channel is not checked.
type SlackConfig struct {
	Enabled  bool   `yaml:"enabled"`
	TokenEnv string `yaml:"token_env"`
	Channel  string `yaml:"channel"`
}

// DefaultSlackConfig returns the built-in Slack defaults (disabled).
func DefaultSlackConfig() *SlackConfig {
	return &SlackConfig{
		Enabled:  false,
		TokenEnv: "SLACK_BOT_TOKEN",
	}
}
