package vectorstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeIndex struct {
	probeErr error
	pingErr  error
	closed   bool
}

func (f *fakeIndex) SimilaritySearch(ctx context.Context, query string, k int) ([]Document, error) {
	return nil, nil
}

func (f *fakeIndex) Probe(ctx context.Context) error { return f.probeErr }
func (f *fakeIndex) Ping(ctx context.Context) error  { return f.pingErr }
func (f *fakeIndex) Close() error {
	f.closed = true
	return nil
}

func TestInitializeOnce(t *testing.T) {
	var dials int32
	index := &fakeIndex{}
	svc := NewService(func(ctx context.Context) (Index, error) {
		atomic.AddInt32(&dials, 1)
		return index, nil
	})

	// Concurrent callers share a single dial+probe attempt
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Initialize(context.Background()); err != nil {
				t.Errorf("Initialize returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&dials); got != 1 {
		t.Fatalf("expected exactly one dial, got %d", got)
	}

	if _, err := svc.Index(); err != nil {
		t.Fatalf("Index() after success: %v", err)
	}
	if !svc.Ready(context.Background()) {
		t.Fatalf("Ready() should be true after successful init")
	}
}

func TestInitializeSurvivesCanceledCaller(t *testing.T) {
	index := &fakeIndex{}
	svc := NewService(func(ctx context.Context) (Index, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return index, nil
	})

	// A request-scoped first caller may be canceled mid-init (client
	// disconnect). The healthy backend must not end up sticky-failed.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("canceled caller poisoned init against a healthy backend: %v", err)
	}

	if _, err := svc.Index(); err != nil {
		t.Fatalf("Index() after init: %v", err)
	}
	if !svc.Ready(context.Background()) {
		t.Fatalf("Ready() should be true after successful init")
	}
}

func TestInitializeFailureIsSticky(t *testing.T) {
	var dials int32
	svc := NewService(func(ctx context.Context) (Index, error) {
		atomic.AddInt32(&dials, 1)
		return nil, errors.New("connection refused")
	})

	if err := svc.Initialize(context.Background()); err == nil {
		t.Fatalf("expected initialization failure")
	}
	// No automatic retry
	if err := svc.Initialize(context.Background()); err == nil {
		t.Fatalf("failure must remain sticky")
	}
	if got := atomic.LoadInt32(&dials); got != 1 {
		t.Fatalf("expected exactly one dial attempt, got %d", got)
	}

	_, err := svc.Index()
	if err == nil || !strings.Contains(err.Error(), "initialization error") {
		t.Fatalf("Index() error should name the initialization failure, got %v", err)
	}
}

func TestProbeFailureDisconnects(t *testing.T) {
	index := &fakeIndex{probeErr: errors.New("no such index")}
	svc := NewService(func(ctx context.Context) (Index, error) {
		return index, nil
	})

	if err := svc.Initialize(context.Background()); err == nil {
		t.Fatalf("expected probe failure to fail initialization")
	}
	if !index.closed {
		t.Errorf("expected best-effort disconnect after failed probe")
	}
}

func TestIndexBeforeInitialize(t *testing.T) {
	svc := NewService(func(ctx context.Context) (Index, error) {
		return &fakeIndex{}, nil
	})

	_, err := svc.Index()
	if err == nil || !strings.Contains(err.Error(), "before initialization") {
		t.Fatalf("Index() before init should say so, got %v", err)
	}
}

func TestReadyDetectsDroppedConnection(t *testing.T) {
	index := &fakeIndex{}
	svc := NewService(func(ctx context.Context) (Index, error) {
		return index, nil
	})

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !svc.Ready(context.Background()) {
		t.Fatalf("Ready() should be true")
	}

	// Connection drops after a successful init
	index.pingErr = errors.New("connection reset")
	if svc.Ready(context.Background()) {
		t.Fatalf("Ready() should detect the dropped connection")
	}

	// State flipped back and the new error recorded
	_, err := svc.Index()
	if err == nil || !strings.Contains(err.Error(), "connection lost") {
		t.Fatalf("Index() should surface the connection loss, got %v", err)
	}
}
