package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the application metrics
type Metrics struct {
	RequestCounter   metric.Int64Counter
	RequestDuration  metric.Float64Histogram
	BlockedQuestions metric.Int64Counter
}

// InitMetrics initializes the application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("lockchun-chatbot")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	blockedQuestions, err := meter.Int64Counter(
		"chat.questions.blocked",
		metric.WithDescription("Questions refused by the relevance or security filters"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:   requestCounter,
		RequestDuration:  requestDuration,
		BlockedQuestions: blockedQuestions,
	}, nil
}

// RecordRequest records one finished HTTP request
func (m *Metrics) RecordRequest(ctx context.Context, method, path, status string, duration float64) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.String("status", status),
	)
	m.RequestCounter.Add(ctx, 1, attrs)
	m.RequestDuration.Record(ctx, duration, attrs)
}

// RecordBlocked counts a refused question by filter kind
func (m *Metrics) RecordBlocked(ctx context.Context, filter string) {
	m.BlockedQuestions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("filter", filter),
	))
}
