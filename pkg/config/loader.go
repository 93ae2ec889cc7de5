package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// YAMLConfig is the on-disk shape of docuchat.yaml: everything that is
// reasonable to version-control and override per-environment. Secrets
// (JWT_SECRET, SLACK_BOT_TOKEN, DB_PASSWORD) are environment-only and never
// appear here.
type YAMLConfig struct {
	Cost        *CostConfig        `yaml:"cost"`
	Ingest      *IngestConfig      `yaml:"ingest"`
	Scheduler   *SchedulerConfig   `yaml:"scheduler"`
	Registry    *RegistryConfig    `yaml:"registry"`
	LLM         *LLMConfig         `yaml:"llm"`
	Auth        *AuthConfig        `yaml:"auth"`
	Retention   *RetentionConfig   `yaml:"retention"`
	Slack       *SlackConfig       `yaml:"slack"`
	Server      *ServerConfig      `yaml:"server"`
	ExampleDocs []string           `yaml:"example_document_ids"`
}

// Initialize loads docuchat.yaml (if present) from configDir, applies a
// .env file and environment overrides, merges onto built-in defaults, and
// validates the result.
//
// Steps:
//  1. Load .env into the process environment (non-fatal if absent)
//  2. Load docuchat.yaml, expanding ${VAR} references against the
//     environment
//  3. Merge onto built-in defaults (YAML overrides defaults; zero values
//     in YAML do not clobber a default)
//  4. Apply required secrets from the environment
//  5. Validate
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to load .env file", "error", err)
	}

	yamlCfg, err := loadYAMLConfig(configDir)
	if err != nil {
		return nil, err
	}

	cfg, err := build(yamlCfg)
	if err != nil {
		return nil, fmt.Errorf("build configuration: %w", err)
	}
	cfg.configDir = configDir

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	log.Info("configuration initialized",
		"cost_limit", cfg.Cost.Limit,
		"example_documents", len(cfg.ExampleDocs),
		"task_timeout", cfg.Scheduler.TaskTimeout)

	return cfg, nil
}

func loadYAMLConfig(configDir string) (*YAMLConfig, error) {
	path := filepath.Join(configDir, "docuchat.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &YAMLConfig{}, nil
		}
		return nil, NewLoadError(path, err)
	}

	data = ExpandEnv(data)

	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return &cfg, nil
}

// build merges the loaded YAML onto built-in defaults, field by field, the
// way the teacher's Initialize merges user tarsy.yaml onto GetBuiltinConfig.
func build(y *YAMLConfig) (*Config, error) {
	cfg := &Config{
		Cost:      DefaultCostConfig(),
		Ingest:    DefaultIngestConfig(),
		Scheduler: DefaultSchedulerConfig(),
		Registry:  DefaultRegistryConfig(),
		LLM:       DefaultLLMConfig(),
		Auth:      DefaultAuthConfig(),
		Retention: DefaultRetentionConfig(),
		Slack:     DefaultSlackConfig(),
		Server:    DefaultServerConfig(),
	}

	if err := mergeInto(cfg.Cost, y.Cost); err != nil {
		return nil, err
	}
	if err := mergeInto(cfg.Ingest, y.Ingest); err != nil {
		return nil, err
	}
	if err := mergeInto(cfg.Scheduler, y.Scheduler); err != nil {
		return nil, err
	}
	if err := mergeInto(cfg.Registry, y.Registry); err != nil {
		return nil, err
	}
	if err := mergeInto(cfg.LLM, y.LLM); err != nil {
		return nil, err
	}
	if err := mergeInto(cfg.Auth, y.Auth); err != nil {
		return nil, err
	}
	if err := mergeInto(cfg.Retention, y.Retention); err != nil {
		return nil, err
	}
	if err := mergeInto(cfg.Slack, y.Slack); err != nil {
		return nil, err
	}
	if err := mergeInto(cfg.Server, y.Server); err != nil {
		return nil, err
	}

	examples := make(ExampleDocumentSet, len(y.ExampleDocs))
	for _, id := range y.ExampleDocs {
		examples[id] = true
	}
	if env := os.Getenv("EXAMPLE_DOCUMENT_IDS"); env != "" {
		for _, id := range splitCSV(env) {
			examples[id] = true
		}
	}
	cfg.ExampleDocs = examples

	cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	if secret := os.Getenv("SLACK_BOT_TOKEN"); secret != "" {
		cfg.Slack.Enabled = true
	}

	return cfg, nil
}

// mergeInto merges src onto dst in place (non-zero fields in src win),
// mirroring the teacher's mergo.Merge(queueConfig, tarsyConfig.Queue,
// mergo.WithOverride) idiom. A nil src is a no-op.
func mergeInto[T any](dst *T, src *T) error {
	if src == nil {
		return nil
	}
	return mergo.Merge(dst, src, mergo.WithOverride)
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, trimSpace(s[start:i]))
			}
			start = i + 1
		}
	}
	return out
}

func trimSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}
