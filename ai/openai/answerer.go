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


package openai

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/docsift/ai"
)

// ErrEmptyResponse is returned when the model produces no usable text.
var ErrEmptyResponse = errors.New("model returned no answer")

// Answerer implements ai.Answerer using an OpenAI-compatible chat API.
type Answerer struct {
	client llms.Model
	config *ai.Config
	logger *slog.Logger
}

// newAnswerer is an internal constructor that accepts any llms.Model.
func newAnswerer(config *ai.Config, client llms.Model) *Answerer {
	return &Answerer{
		client: client,
		config: config,
		logger: slog.Default().With("component", "openai-answerer"),
	}
}

// NewAnswerer creates an answerer using the provided configuration.
// The config is validated and normalized before use.
//
// Returns ai.Answerer interface to enforce abstraction.
func NewAnswerer(config *ai.Config) (ai.Answerer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.Token),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}
	return newAnswerer(config, client), nil
}

// Answer sends the question and the fitted sources to the model. Transient
// failures are retried with backoff within config.Timeout.
func (a *Answerer) Answer(ctx context.Context, question string, sources []ai.Source) (string, error) {
	if len(sources) == 0 {
		return "", ai.ErrNoSources
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	fitted := fitSources(sources, a.config.MaxContextRunes)
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(answerSystemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(buildUserPrompt(question, fitted)),
			},
		},
	}

	var answer string
	attempt := 0
	err := ai.RetryWithBackoff(ctx, func() error {
		attempt++
		response, err := a.client.GenerateContent(ctx, content, llms.WithTemperature(a.config.Temperature))
		if err != nil {
			a.logger.Warn("failed to generate answer", "attempt", attempt, "err", err)
			if ctx.Err() != nil {
				return ai.Permanent(err)
			}
			return err
		}
		if len(response.Choices) < 1 {
			return ai.Permanent(ErrEmptyResponse)
		}
		answer = strings.TrimSpace(response.Choices[0].Content)
		if answer == "" {
			return ai.Permanent(ErrEmptyResponse)
		}
		return nil
	}, a.config.MaxAttempts, a.config.RetryDelay)
	if err != nil {
		a.logger.Error("answer generation failed", "attempts", attempt, "err", err)
		return "", err
	}

	a.logger.Debug("generated answer", "sources", len(fitted), "attempts", attempt, "chars", len(answer))
	return answer, nil
}
