package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	assert.Equal(t, "qwen2.5:7b", cfg.Model)
	assert.Equal(t, "none", cfg.Token)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithHost("http://custom:8080/v1"),
			WithModel("gpt-4o-mini"),
			WithToken("sk-test"),
			WithTemperature(0.7),
			WithTimeout(time.Minute),
			WithMaxContextRunes(500),
			WithRetry(5, time.Second),
		)

		assert.Equal(t, "http://custom:8080/v1", cfg.Host)
		assert.Equal(t, "gpt-4o-mini", cfg.Model)
		assert.Equal(t, "sk-test", cfg.Token)
		assert.Equal(t, 0.7, cfg.Temperature)
		assert.Equal(t, time.Minute, cfg.Timeout)
		assert.Equal(t, 500, cfg.MaxContextRunes)
		assert.Equal(t, 5, cfg.MaxAttempts)
		assert.Equal(t, time.Second, cfg.RetryDelay)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		expected string
	}{
		{"adds v1", "http://localhost:11434", "http://localhost:11434/v1"},
		{"strips trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"keeps v1", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"empty stays empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Host: tt.host}
			cfg.Normalize()
			assert.Equal(t, tt.expected, cfg.Host)
			assert.Equal(t, "none", cfg.Token, "empty token defaults to none")
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://localhost:8080"))
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:8080/v1", cfg.Host, "validate normalizes")
	})

	invalid := []struct {
		name string
		opt  ConfigOption
	}{
		{"missing host", WithHost("")},
		{"missing model", WithModel("")},
		{"temperature too low", WithTemperature(-0.1)},
		{"temperature too high", WithTemperature(2.5)},
		{"zero timeout", WithTimeout(0)},
		{"zero context", WithMaxContextRunes(0)},
		{"zero attempts", WithRetry(0, time.Second)},
		{"negative delay", WithRetry(1, -time.Second)},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(tt.opt)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("temperature at boundaries", func(t *testing.T) {
		assert.NoError(t, NewConfig(WithTemperature(0)).Validate())
		assert.NoError(t, NewConfig(WithTemperature(2)).Validate())
	})
}
