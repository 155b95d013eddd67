package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"lockchun-chatbot/internal/logger"
)

// initTimeout bounds the one-shot dial+probe once it is detached from the
// caller's context.
const initTimeout = 30 * time.Second

// Index is the usable handle the service hands out after a verified connect.
type Index interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]Document, error)
	Probe(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Dialer connects to the remote vector index and returns a handle that has
// not yet been probed.
type Dialer func(ctx context.Context) (Index, error)

// Service owns the one vector index connection per process. Initialization
// runs at most once: concurrent callers share the single dial+probe attempt,
// and a terminal failure is sticky until the process restarts.
type Service struct {
	dial Dialer

	once sync.Once

	mu      sync.Mutex
	index   Index
	healthy bool
	err     error
}

func NewService(dial Dialer) *Service {
	return &Service{dial: dial}
}

// Initialize connects, binds the retrieval handle and runs a cheap similarity
// probe to confirm the index is queryable. The first caller performs the
// work; everyone else blocks until it finishes and observes the same result.
func (s *Service) Initialize(ctx context.Context) error {
	s.once.Do(func() { s.initialize(ctx) })

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Service) initialize(ctx context.Context) {
	logger.Info("Initializing vector index connection...")

	// The first caller is usually a request. Its cancellation must not be
	// recorded as the process-wide sticky failure, so the dial+probe runs
	// detached from the caller with its own deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), initTimeout)
	defer cancel()

	index, err := s.dial(ctx)
	if err != nil {
		logger.Error("Failed to connect to vector index", "error", err)
		s.mu.Lock()
		s.err = fmt.Errorf("vector index connection failed: %w", err)
		s.mu.Unlock()
		return
	}

	if err := index.Probe(ctx); err != nil {
		logger.Error("Vector index probe query failed", "error", err)
		// Best-effort disconnect before recording the failure
		if closeErr := index.Close(); closeErr != nil {
			logger.Error("Error disconnecting after failed probe", "error", closeErr)
		}
		s.mu.Lock()
		s.err = fmt.Errorf("vector index probe failed: %w", err)
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.index = index
	s.healthy = true
	s.err = nil
	s.mu.Unlock()
	logger.Info("Vector index initialization complete")
}

// Index returns the live handle. The error distinguishes a failed
// initialization from access before initialization completed.
func (s *Service) Index() (Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil || !s.healthy {
		if s.err != nil {
			return nil, fmt.Errorf("vector store cannot be accessed due to initialization error: %w", s.err)
		}
		return nil, errors.New("vector store accessed before initialization completed")
	}
	return s.index, nil
}

// Ready reports whether initialization succeeded AND the connection still
// answers. The connection may drop after a successful init, so a failed ping
// flips the shared state back to unhealthy and records the new error.
func (s *Service) Ready(ctx context.Context) bool {
	s.mu.Lock()
	index, healthy := s.index, s.healthy
	s.mu.Unlock()

	if index == nil || !healthy {
		return false
	}

	if err := index.Ping(ctx); err != nil {
		logger.Error("Vector index connection check failed", "error", err)
		s.mu.Lock()
		s.healthy = false
		s.err = fmt.Errorf("vector index connection lost: %w", err)
		s.mu.Unlock()
		return false
	}
	return true
}
