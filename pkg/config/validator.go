package config

import "fmt"

// Validator validates a loaded Config with clear, fail-fast error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation, stopping at the first
// error so misconfiguration is reported with a single actionable message.
func (v *Validator) ValidateAll() error {
	if err := v.validateCost(); err != nil {
		return fmt.Errorf("cost: %w", err)
	}
	if err := v.validateIngest(); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if err := v.validateScheduler(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := v.validateRegistry(); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	if err := v.validateLLM(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	return nil
}

func (v *Validator) validateCost() error {
	if v.cfg.Cost.Limit < 0 {
		return fmt.Errorf("limit must be non-negative, got %v", v.cfg.Cost.Limit)
	}
	return nil
}

func (v *Validator) validateIngest() error {
	if v.cfg.Ingest.MaxChunksPerDoc < 1 {
		return fmt.Errorf("max_chunks_per_doc must be at least 1")
	}
	if v.cfg.Ingest.DefaultChunkSize < 1 {
		return fmt.Errorf("default_chunk_size must be at least 1")
	}
	return nil
}

func (v *Validator) validateScheduler() error {
	if v.cfg.Scheduler.TaskTimeout <= 0 {
		return fmt.Errorf("task_timeout must be positive")
	}
	return nil
}

func (v *Validator) validateRegistry() error {
	if v.cfg.Registry.PerConnQueueCapacity < 1 {
		return fmt.Errorf("per_conn_queue_capacity must be at least 1")
	}
	if v.cfg.Registry.PerConnPutTimeout <= 0 {
		return fmt.Errorf("per_conn_put_timeout must be positive")
	}
	return nil
}

func (v *Validator) validateLLM() error {
	if v.cfg.LLM.ModelDefault == "" {
		return fmt.Errorf("model_default must not be empty")
	}
	if v.cfg.LLM.ModelFullContext == "" {
		return fmt.Errorf("model_full_context must not be empty")
	}
	return nil
}

func validate(cfg *Config) error {
	return NewValidator(cfg).ValidateAll()
}
