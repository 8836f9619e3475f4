package domain

import (
	"context"
	"errors"
	"testing"
)

// recorder captures the text handed to the provider.
func recorder(got *string, res EmbeddingResult, err error) EmbedderFunc {
	return func(_ context.Context, text string) (EmbeddingResult, error) {
		*got = text
		return res, err
	}
}

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	var got string
	emb := NewInstructionEmbedder(recorder(&got, EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}, nil),
		"travel preference: ")

	result, err := emb.Embed(context.Background(), "beaches and hiking")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "travel preference: beaches and hiking" {
		t.Errorf("expected prepended text, got %q", got)
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	var got string
	innerErr := errors.New("provider down")
	emb := NewInstructionEmbedder(recorder(&got, EmbeddingResult{}, innerErr), "travel preference: ")

	_, err := emb.Embed(context.Background(), "museums")
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestInstructionEmbedder_BlankInstructionIsPassThrough(t *testing.T) {
	for _, instruction := range []string{"", "   "} {
		var got string
		inner := recorder(&got, EmbeddingResult{Embedding: []float32{0.5}}, nil)
		emb := NewInstructionEmbedder(inner, instruction)

		if _, ok := emb.(*InstructionEmbedder); ok {
			t.Errorf("instruction %q: expected the inner embedder back", instruction)
		}
		if _, err := emb.Embed(context.Background(), "test"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "test" {
			t.Errorf("expected 'test', got %q", got)
		}
	}
}

type checked struct {
	EmbedderFunc
	err   error
	calls int
}

func (p *checked) HealthCheck(context.Context) error {
	p.calls++
	return p.err
}

func TestCheckHealth_WalksDecorators(t *testing.T) {
	var got string
	healthErr := errors.New("provider unreachable")
	base := &checked{EmbedderFunc: recorder(&got, EmbeddingResult{}, nil), err: healthErr}
	chain := NewInstructionEmbedder(base, "query: ")

	if err := CheckHealth(context.Background(), chain); !errors.Is(err, healthErr) {
		t.Fatalf("expected health error, got %v", err)
	}
	if base.calls != 1 {
		t.Errorf("expected 1 health check, got %d", base.calls)
	}
}

func TestCheckHealth_NoChecker(t *testing.T) {
	var got string
	chain := NewInstructionEmbedder(recorder(&got, EmbeddingResult{}, nil), "query: ")
	if err := CheckHealth(context.Background(), chain); err != nil {
		t.Errorf("expected healthy chain, got %v", err)
	}
	if err := CheckHealth(context.Background(), nil); err != nil {
		t.Errorf("expected nil embedder to be healthy, got %v", err)
	}
}
