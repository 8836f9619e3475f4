package domain

import (
	"context"
	"fmt"
	"strings"
)

// KeyPrefix namespaces every key this service writes to the shared database.
const KeyPrefix = "citymatch:"

// Embedder turns text into a dense vector. Implementations are chained as
// decorators: provider, cache, metrics, instruction.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbedderFunc adapts a function to Embedder.
type EmbedderFunc func(ctx context.Context, text string) (EmbeddingResult, error)

// Embed calls f.
func (f EmbedderFunc) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return f(ctx, text)
}

// HealthChecker is implemented by embedders that can check their provider.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Wrapper is implemented by decorators to expose the embedder they wrap.
type Wrapper interface {
	Unwrap() Embedder
}

// CheckHealth calls the first embedder in the decorator chain that
// implements HealthChecker. A chain without one is considered healthy.
func CheckHealth(ctx context.Context, e Embedder) error {
	for e != nil {
		if hc, ok := e.(HealthChecker); ok {
			return hc.HealthCheck(ctx) //nolint:wrapcheck // caller adds context
		}
		w, ok := e.(Wrapper)
		if !ok {
			return nil
		}
		e = w.Unwrap()
	}
	return nil
}

// EmbeddingResult is a vector plus the tokens the provider billed for it.
// Cached results report zero tokens.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// InstructionEmbedder prefixes text with a task instruction, as asymmetric
// retrieval models expect for queries but not for indexed documents.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder returns inner unchanged when instruction is blank.
func NewInstructionEmbedder(inner Embedder, instruction string) Embedder {
	if strings.TrimSpace(instruction) == "" {
		return inner
	}
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Unwrap returns the decorated embedder.
func (e *InstructionEmbedder) Unwrap() Embedder { return e.inner }

// Embed prepends the instruction and delegates.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}
