package chat

import (
	"context"
	"math"
	"strings"

	"lockchun-chatbot/internal/ai"
	"lockchun-chatbot/internal/logger"
)

// Keywords for the quick relevance check
var keyTerms = []string{
	"menu", "price", "prices", "dish", "dishes", "special", "kung pao",
	"chicken", "beef", "shrimp", "soup", "hours", "time", "open", "close",
	"reservation", "reserve", "pickup", "order", "phone", "location",
	"address", "directions", "lunch", "family", "dinner",
}

// Terms indicating a greeting
var greetingTerms = []string{
	"hi", "hello", "hey", "good morning", "good afternoon", "good evening",
}

// HasKeyword reports whether the query contains any predefined relevant
// keyword. Case-insensitive.
func HasKeyword(query string) bool {
	lowerQuery := strings.ToLower(query)
	for _, term := range keyTerms {
		if strings.Contains(lowerQuery, term) {
			return true
		}
	}
	return false
}

// IsGreeting reports whether the query is exactly a greeting, or starts with
// one followed by a space or light punctuation. Case-insensitive, trimmed.
func IsGreeting(query string) bool {
	lowerQuery := strings.ToLower(strings.TrimSpace(query))
	for _, greeting := range greetingTerms {
		if lowerQuery == greeting ||
			strings.HasPrefix(lowerQuery, greeting+" ") ||
			strings.HasPrefix(lowerQuery, greeting+"!") ||
			strings.HasPrefix(lowerQuery, greeting+"?") ||
			strings.HasPrefix(lowerQuery, greeting+",") {
			return true
		}
	}
	return false
}

// Gate decides whether a user message is in scope for the chatbot.
type Gate struct {
	embedder     ai.Embedder
	anchorPhrase string
	threshold    float64
}

func NewGate(embedder ai.Embedder, anchorPhrase string, threshold float64) *Gate {
	return &Gate{
		embedder:     embedder,
		anchorPhrase: anchorPhrase,
		threshold:    threshold,
	}
}

// IsRelevant first checks for keywords, then falls back to semantic
// similarity against the anchor phrase. It never fails: any embedding error
// yields false.
func (g *Gate) IsRelevant(ctx context.Context, question string) bool {
	// 1. Keyword check (fastest)
	if HasKeyword(question) {
		return true
	}

	// 2. Semantic similarity check (slower, uses API)
	questionVector, err := g.embedder.EmbedQuery(ctx, question)
	if err != nil {
		logger.Error("Relevance embedding failed", "question", question, "error", err)
		return false
	}
	anchorVector, err := g.embedder.EmbedQuery(ctx, g.anchorPhrase)
	if err != nil {
		logger.Error("Anchor embedding failed", "error", err)
		return false
	}

	// Same model should yield same length; anything else is not comparable
	if len(questionVector) != len(anchorVector) {
		logger.Warn("Embedding length mismatch in relevance check",
			"question_len", len(questionVector), "anchor_len", len(anchorVector))
		return false
	}

	similarity, ok := cosineSimilarity(questionVector, anchorVector)
	if !ok {
		logger.Warn("Zero magnitude vector encountered in relevance check", "question", question)
		return false
	}

	return similarity > g.threshold
}

// cosineSimilarity computes dot(a,b) / (|a|*|b|) over the shared index range.
// ok is false when either vector has zero magnitude.
func cosineSimilarity(a, b []float32) (float64, bool) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dotProduct, magA, magB float64
	for i := 0; i < n; i++ {
		dotProduct += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}

	magA = math.Sqrt(magA)
	magB = math.Sqrt(magB)

	if magA == 0 || magB == 0 {
		return 0, false
	}
	return dotProduct / (magA * magB), true
}
