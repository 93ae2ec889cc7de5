package config

import "time"

// RetentionConfig controls the demo-conversation safety-net sweep: the
// per-connection-disconnect cleanup (4.8) is the primary mechanism, but an
// abrupt socket fault can skip it, so a periodic sweep catches demo
// conversations whose owning connection is long gone.
type RetentionConfig struct {
	// DemoTTL is how old an orphaned demo conversation must be before the
	// sweep considers it safe to delete even without a disconnect signal.
	DemoTTL time.Duration `yaml:"demo_ttl"`

	// SweepInterval is how often the sweep loop runs.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		DemoTTL:       1 * time.Hour,
		SweepInterval: 15 * time.Minute,
	}
}
