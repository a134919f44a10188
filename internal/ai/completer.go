// Package ai turns procurement text into structured data through a language
// model. Providers live in subpackages and implement Completer.
package ai

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned by providers when the model produced no text
var ErrEmptyResponse = errors.New("model returned empty response")

// Completion is a single provider-neutral model request
type Completion struct {
	Model       string
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
	JSON        bool
}

// Completer sends a prompt to a language model and returns its text answer
type Completer interface {
	Complete(ctx context.Context, req Completion) (string, error)
}

// CompleterFunc adapts a function to Completer
type CompleterFunc func(ctx context.Context, req Completion) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Completion) (string, error) {
	return f(ctx, req)
}
