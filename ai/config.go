// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"strings"
	"time"
)

// Config holds configuration for the answer-generation service.
type Config struct {
	// Host is the base URL of an OpenAI-compatible chat API.
	// Example: "http://localhost:11434/v1" for a local server
	Host string

	// Model is the chat model identifier.
	// Example: "qwen2.5:7b", "gpt-4o-mini"
	Model string

	// Token is the API key. Local servers that need none accept "none".
	Token string

	// Temperature is the sampling temperature, 0 to 2.
	// Default: 0.2
	Temperature float64

	// Timeout bounds one answer request including retries.
	// Default: 2m
	Timeout time.Duration

	// MaxContextRunes bounds the source text sent with a question. Longer
	// sources are cut.
	// Default: 12000
	MaxContextRunes int

	// MaxAttempts is the number of tries per request. Default: 3
	MaxAttempts int

	// RetryDelay is the delay before the first retry, doubled after each.
	// Default: 500ms
	RetryDelay time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithHost sets the chat service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the chat model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithToken sets the API key.
func WithToken(token string) ConfigOption {
	return func(c *Config) {
		c.Token = token
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = t
	}
}

// WithTimeout sets the per-answer timeout.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithMaxContextRunes sets the source text budget.
func WithMaxContextRunes(n int) ConfigOption {
	return func(c *Config) {
		c.MaxContextRunes = n
	}
}

// WithRetry sets the attempt count and the first retry delay.
func WithRetry(maxAttempts int, delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = maxAttempts
		c.RetryDelay = delay
	}
}

// DefaultConfig returns a Config with sensible defaults for a local OpenAI-compatible service.
func DefaultConfig() *Config {
	return &Config{
		Host:            "http://localhost:11434/v1",
		Model:           "qwen2.5:7b",
		Token:           "none",
		Temperature:     0.2,
		Timeout:         2 * time.Minute,
		MaxContextRunes: 12000,
		MaxAttempts:     3,
		RetryDelay:      500 * time.Millisecond,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//   cfg := NewConfig(
//       WithHost("http://localhost:11434"),
//       WithModel("gpt-4o-mini"),
//   )
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to the host if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
	if c.Token == "" {
		c.Token = "none"
	}
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Host == "" {
		return errors.New("ai config: Host is required")
	}
	if c.Model == "" {
		return errors.New("ai config: Model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("ai config: Temperature must be between 0 and 2")
	}
	if c.Timeout <= 0 {
		return errors.New("ai config: Timeout must be positive")
	}
	if c.MaxContextRunes < 1 {
		return errors.New("ai config: MaxContextRunes must be positive")
	}
	if c.MaxAttempts < 1 {
		return errors.New("ai config: MaxAttempts must be at least 1")
	}
	if c.RetryDelay < 0 {
		return errors.New("ai config: RetryDelay cannot be negative")
	}
	return nil
}
