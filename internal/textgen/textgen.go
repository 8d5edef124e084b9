// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package textgen defines the text-generation collaborator contract that host
// services inject, and the helper that pulls structured JSON out of model
// text. No provider ships with riskwatch and the detector never calls one.
package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ManuGH/riskwatch/internal/log"
)

// ErrNoJSON is returned when the generated text carries no JSON object.
var ErrNoJSON = errors.New("no JSON object in generated text")

// Generator produces free text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ExtractJSON returns the outermost JSON object in text, ignoring markdown
// code fences and any prose around it.
func ExtractJSON(text string) (string, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// language tag on the opening fence
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return s[start : end+1], nil
}

// GenerateJSON asks g for a JSON object and decodes it into a T. Any failure
// (generator error, missing or invalid JSON) yields fallback; the returned
// error says why the fallback was used and is nil when decoding succeeded.
func GenerateJSON[T any](ctx context.Context, g Generator, prompt string, fallback T) (T, error) {
	logger := log.WithComponentFromContext(ctx, "textgen")

	if g == nil {
		return fallback, errors.New("no generator configured")
	}

	text, err := g.Generate(ctx, prompt)
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "textgen.fallback").Str("reason", "generate_failed").Msg("text generation failed, using fallback")
		return fallback, fmt.Errorf("generate: %w", err)
	}

	raw, err := ExtractJSON(text)
	if err != nil {
		logger.Warn().Str(log.FieldEvent, "textgen.fallback").Str("reason", "no_json").Msg("generated text has no JSON, using fallback")
		return fallback, err
	}

	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "textgen.fallback").Str("reason", "invalid_json").Msg("generated JSON invalid, using fallback")
		return fallback, fmt.Errorf("decode generated JSON: %w", err)
	}
	return out, nil
}
