package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigWithDefaults(t *testing.T) {
	t.Run("zero value fills every field", func(t *testing.T) {
		cfg := Config{}.withDefaults()
		assert.Equal(t, 8, cfg.Workers)
		assert.Equal(t, time.Second, cfg.PollInterval)
		assert.Equal(t, time.Minute, cfg.JobTimeout)
		assert.Equal(t, int32(8), cfg.MaxAttempts)
	})

	t.Run("explicit values are kept", func(t *testing.T) {
		cfg := Config{
			Workers:      2,
			PollInterval: 5 * time.Second,
			JobTimeout:   30 * time.Second,
			MaxAttempts:  3,
		}.withDefaults()
		assert.Equal(t, 2, cfg.Workers)
		assert.Equal(t, 5*time.Second, cfg.PollInterval)
		assert.Equal(t, 30*time.Second, cfg.JobTimeout)
		assert.Equal(t, int32(3), cfg.MaxAttempts)
	})
}
