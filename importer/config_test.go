package importer

import (
	"testing"

	"github.com/poiesic/vecport/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())
	assert.Equal(t, 768, config.VectorDim)
	assert.Equal(t, 50, config.EmbeddingBatchSize)
	assert.False(t, config.Strict)
	assert.False(t, config.Resume)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero vector dim", func(c *Config) { c.VectorDim = 0 }},
		{"negative chunk batch", func(c *Config) { c.ChunkBatchSize = -1 }},
		{"zero embedding batch", func(c *Config) { c.EmbeddingBatchSize = 0 }},
		{"zero conversation batch", func(c *Config) { c.ConversationBatchSize = 0 }},
		{"zero max retries", func(c *Config) { c.MaxRetries = 0 }},
		{"zero retry delay", func(c *Config) { c.RetryDelay = 0 }},
		{"zero call timeout", func(c *Config) { c.CallTimeout = 0 }},
		{"zero report interval", func(c *Config) { c.ReportInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestConfigBatchSize(t *testing.T) {
	config := DefaultConfig()
	config.ChunkBatchSize = 100
	config.EmbeddingBatchSize = 25
	config.ConversationBatchSize = 75

	assert.Equal(t, 100, config.batchSize(core.CollectionChunks))
	assert.Equal(t, 25, config.batchSize(core.CollectionEmbeddings))
	assert.Equal(t, 75, config.batchSize(core.CollectionConversations))
}
