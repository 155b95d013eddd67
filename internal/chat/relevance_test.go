package chat

import (
	"context"
	"errors"
	"testing"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{1, 0, 0}, nil
}

func TestHasKeyword(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"What are your hours?", true},
		{"HOURS", true},
		{"do you have kung pao chicken", true},
		{"can I make a reservation", true},
		{"what's on the MENU", true},
		{"tell me about the weather", false},
		{"", false},
		{"how do I solve this math problem", false},
	}

	for _, tt := range tests {
		if got := HasKeyword(tt.query); got != tt.want {
			t.Errorf("HasKeyword(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestIsGreeting(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"hi", true},
		{"Hello", true},
		{"  hey  ", true},
		{"hi!", true},
		{"hello? anyone there", true},
		{"hey, how are you", true},
		{"good morning", true},
		{"Good Evening!", true},
		{"hi there", true},
		{"high five", false},
		{"hellos", false},
		{"say hi to the chef", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsGreeting(tt.query); got != tt.want {
			t.Errorf("IsGreeting(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := []float32{0.5, -1.2, 3.3, 0.1}
	b := []float32{-0.7, 2.0, 1.1, -0.4}

	ab, okAB := cosineSimilarity(a, b)
	ba, okBA := cosineSimilarity(b, a)

	if !okAB || !okBA {
		t.Fatalf("expected both directions to be computable")
	}
	if ab != ba {
		t.Errorf("similarity not symmetric: %v != %v", ab, ba)
	}
}

func TestCosineSimilarityIdentical(t *testing.T) {
	a := []float32{1, 2, 3}
	sim, ok := cosineSimilarity(a, a)
	if !ok {
		t.Fatalf("expected similarity to be computable")
	}
	if sim < 0.9999 || sim > 1.0001 {
		t.Errorf("self similarity = %v, want ~1.0", sim)
	}
}

func TestCosineSimilarityZeroMagnitude(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 2, 3}
	if _, ok := cosineSimilarity(a, b); ok {
		t.Errorf("expected zero-magnitude vector to be rejected")
	}
}

func TestIsRelevantKeywordShortCircuit(t *testing.T) {
	embedder := &fakeEmbedder{}
	gate := NewGate(embedder, "anchor", 0.4)

	if !gate.IsRelevant(context.Background(), "what are your hours") {
		t.Fatalf("keyword question should be relevant")
	}
	if embedder.calls != 0 {
		t.Errorf("keyword match must not call the embedder, got %d calls", embedder.calls)
	}
}

func TestIsRelevantSemantic(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"tasty chinese cuisine": {1, 0.1, 0},
		"anchor":                {1, 0, 0},
	}}
	gate := NewGate(embedder, "anchor", 0.4)

	if !gate.IsRelevant(context.Background(), "tasty chinese cuisine") {
		t.Errorf("similar question should pass the threshold")
	}
}

func TestIsRelevantBelowThreshold(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"unrelated topic": {0, 1, 0},
		"anchor":          {1, 0, 0},
	}}
	gate := NewGate(embedder, "anchor", 0.4)

	if gate.IsRelevant(context.Background(), "unrelated topic") {
		t.Errorf("orthogonal question should be irrelevant")
	}
}

func TestIsRelevantEmbeddingFailure(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("provider down")}
	gate := NewGate(embedder, "anchor", 0.4)

	// Must not panic and must fail safe
	if gate.IsRelevant(context.Background(), "something without keywords") {
		t.Errorf("embedding failure must yield not relevant")
	}
}

func TestIsRelevantLengthMismatch(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"odd sized question": {1, 0},
		"anchor":             {1, 0, 0},
	}}
	gate := NewGate(embedder, "anchor", 0.4)

	if gate.IsRelevant(context.Background(), "odd sized question") {
		t.Errorf("mismatched vector lengths must yield not relevant")
	}
}
