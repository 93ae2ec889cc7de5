package config

import "time"

// SchedulerConfig controls the Service Scheduler's per-task deadline and
// task-queue depth.
type SchedulerConfig struct {
	// TaskTimeout is the total deadline given to every scheduler task.
	TaskTimeout time.Duration `yaml:"task_timeout"`

	// GracefulShutdownTimeout is loaded from YAML but not read by the
	// scheduler: Shutdown waits as long as its ctx allows, and main bounds
	// that ctx by TaskTimeout.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`

	// QueueCapacity is the depth of the FIFO task queue the bus adapter
	// pushes onto; 0 or less selects a depth of 1024.
	QueueCapacity int `yaml:"queue_capacity"`
}

// DefaultSchedulerConfig returns the built-in scheduler defaults.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		TaskTimeout:             25 * time.Second,
		GracefulShutdownTimeout: 25 * time.Second,
		QueueCapacity:           0,
	}
}
