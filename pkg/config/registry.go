package config

import "time"

// RegistryConfig controls the Connection Registry's per-connection
// backpressure and the Event Bus's overflow threshold.
type RegistryConfig struct {
	// PerConnQueueCapacity is the bound on each connection's outbound
	// event queue.
	PerConnQueueCapacity int `yaml:"per_conn_queue_capacity"`

	// PerConnPutTimeout bounds how long dispatch waits to enqueue an
	// event onto a slow connection before dropping it as QUEUE_FULL.
	PerConnPutTimeout time.Duration `yaml:"per_conn_put_timeout"`

	// BusHighWaterMark bounds the Event Bus's internal FIFO; emits
	// beyond this depth fail fast with BUS_OVERFLOW.
	BusHighWaterMark int `yaml:"bus_high_water_mark"`
}

// DefaultRegistryConfig returns the built-in registry defaults.
func DefaultRegistryConfig() *RegistryConfig {
	return &RegistryConfig{
		PerConnQueueCapacity: 256,
		PerConnPutTimeout:    1000 * time.Millisecond,
		BusHighWaterMark:     4096,
	}
}
