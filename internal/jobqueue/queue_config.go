package jobqueue

import (
	"os"
	"time"

	"github.com/riverqueue/river"
)

// QueueConfig holds the tunable parameters for the deploy job queue
type QueueConfig struct {
	// MaxWorkers is the number of deploys processed concurrently
	MaxWorkers int

	// MaxRetries is the number of attempts before a deploy is abandoned
	MaxRetries int

	// JobTimeout bounds a single deploy attempt
	JobTimeout time.Duration
}

// DefaultQueueConfig returns the default configuration
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxWorkers: 5,
		MaxRetries: 5,
		JobTimeout: 5 * time.Minute,
	}
}

// DevelopmentQueueConfig fails fast for local iteration
func DevelopmentQueueConfig() *QueueConfig {
	config := DefaultQueueConfig()
	config.MaxWorkers = 2
	config.MaxRetries = 2
	config.JobTimeout = 2 * time.Minute
	return config
}

// GetQueueConfig selects a configuration based on DEVORA_ENV
func GetQueueConfig() *QueueConfig {
	if os.Getenv("DEVORA_ENV") == "development" {
		return DevelopmentQueueConfig()
	}
	return DefaultQueueConfig()
}

// RiverQueueConfig converts our config to River's queue configuration format
func (c *QueueConfig) RiverQueueConfig() map[string]river.QueueConfig {
	return map[string]river.QueueConfig{
		river.QueueDefault: {
			MaxWorkers: c.MaxWorkers,
		},
	}
}
