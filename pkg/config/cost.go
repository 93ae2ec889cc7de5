package config

// CostConfig controls the Cost Guard's per-user admission ceiling.
type CostConfig struct {
	// Limit is the per-user cost ceiling in dollars; a user whose
	// cost_accum reaches this amount is refused further LLM-invoking
	// requests until an operator resets it.
	Limit float64 `yaml:"limit"`
}

// DefaultCostConfig returns the built-in cost guard defaults.
func DefaultCostConfig() *CostConfig {
	return &CostConfig{Limit: 0.5}
}
