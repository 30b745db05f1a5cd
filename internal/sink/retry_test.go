package sink

import (
	"errors"
	"testing"
	"time"
)

// flaky fails the first n calls with ErrUnavailable, then delegates to an
// in-memory store.
type flaky struct {
	*Memory
	failures int
	calls    int
}

func (f *flaky) CreateOrReplaceTable(name string, columns []string, rows []Row) error {
	f.calls++
	if f.calls <= f.failures {
		return ErrUnavailable
	}
	return f.Memory.CreateOrReplaceTable(name, columns, rows)
}

func TestRetrying_SucceedsAfterTransientFailures(t *testing.T) {
	inner := &flaky{Memory: NewMemory(), failures: 2}
	var slept []time.Duration
	r := NewRetrying(inner, 5, 10*time.Millisecond)
	r.Sleep = func(d time.Duration) { slept = append(slept, d) }

	if err := r.CreateOrReplaceTable("flat", []string{"order_id"}, nil); err != nil {
		t.Fatalf("should recover: %v", err)
	}
	if inner.calls != 3 {
		t.Fatalf("want 3 attempts, got %d", inner.calls)
	}
	// Exponential backoff: each wait doubles.
	if len(slept) != 2 || slept[0] != 10*time.Millisecond || slept[1] != 20*time.Millisecond {
		t.Fatalf("backoff schedule wrong: %v", slept)
	}
}

func TestRetrying_GivesUpAfterBoundedAttempts(t *testing.T) {
	inner := &flaky{Memory: NewMemory(), failures: 100}
	r := NewRetrying(inner, 3, time.Millisecond)
	r.Sleep = func(time.Duration) {}

	err := r.CreateOrReplaceTable("flat", []string{"order_id"}, nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
	if inner.calls != 3 {
		t.Fatalf("want 3 attempts, got %d", inner.calls)
	}
}

func TestRetrying_OnRetryCountsRetriedAttempts(t *testing.T) {
	inner := &flaky{Memory: NewMemory(), failures: 2}
	r := NewRetrying(inner, 5, time.Millisecond)
	r.Sleep = func(time.Duration) {}
	retries := 0
	r.OnRetry = func() { retries++ }

	if err := r.CreateOrReplaceTable("flat", []string{"order_id"}, nil); err != nil {
		t.Fatalf("should recover: %v", err)
	}
	// Two failed attempts were retried; the successful one was not.
	if retries != 2 {
		t.Fatalf("want 2 retries, got %d", retries)
	}
}

func TestRetrying_FatalErrorsPassThrough(t *testing.T) {
	inner := NewMemory()
	r := NewRetrying(inner, 5, time.Millisecond)
	r.Sleep = func(time.Duration) { t.Fatalf("schema mismatch must not be retried") }

	_ = r.CreateOrReplaceTable("flat", []string{"order_id"}, nil)
	err := r.InsertRows("flat", []Row{{"bogus": 1}})
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("want schema mismatch, got %v", err)
	}
}
