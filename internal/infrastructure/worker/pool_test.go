package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shoplens/backend/internal/infrastructure/worker"
)

func TestProcessAll_PreservesInputOrder(t *testing.T) {
	t.Parallel()

	items := []int{5, 1, 4, 2, 3}
	fn := func(_ context.Context, n int) (string, error) {
		// Later items finish first.
		time.Sleep(time.Duration(n) * time.Millisecond)
		return fmt.Sprintf("item-%d", n), nil
	}

	out := worker.ProcessAll(context.Background(), items, fn, worker.Options{Workers: 3})
	if len(out) != len(items) {
		t.Fatalf("expected %d outputs, got %d", len(items), len(out))
	}
	for i, n := range items {
		want := fmt.Sprintf("item-%d", n)
		if out[i].Output != want || out[i].Input != n {
			t.Fatalf("out[%d] = %#v, want output %q", i, out[i], want)
		}
	}
}

func TestProcessAll_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	fn := func(_ context.Context, _ int) (int, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return 0, nil
	}

	items := make([]int, 10)
	worker.ProcessAll(context.Background(), items, fn, worker.Options{Workers: 3})

	if got := peak.Load(); got > 3 {
		t.Fatalf("expected at most 3 in flight, saw %d", got)
	}
	if got := peak.Load(); got < 2 {
		t.Fatalf("expected items to overlap, peak was %d", got)
	}
}

func TestProcessAll_IsolatesFailures(t *testing.T) {
	t.Parallel()

	fn := func(_ context.Context, s string) (string, error) {
		if s == "bad" {
			return "", errors.New("boom")
		}
		return s + "!", nil
	}

	out := worker.ProcessAll(context.Background(), []string{"a", "bad", "c"}, fn, worker.Options{Workers: 2})
	if len(out) != 3 {
		t.Fatalf("expected 3 outputs, got %d", len(out))
	}
	if out[0].Err != nil || out[0].Output != "a!" {
		t.Fatalf("unexpected out[0]: %#v", out[0])
	}
	if out[1].Err == nil {
		t.Fatalf("expected error for out[1]")
	}
	if out[2].Err != nil || out[2].Output != "c!" {
		t.Fatalf("unexpected out[2]: %#v", out[2])
	}
}

func TestProcessAll_CancelledContextStillReturnsEveryItem(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fn := func(ctx context.Context, s string) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return s, nil
	}

	out := worker.ProcessAll(ctx, []string{"a", "b", "c", "d"}, fn, worker.Options{Workers: 3, RateLimitRPS: 100})
	if len(out) != 4 {
		t.Fatalf("expected 4 outputs, got %d", len(out))
	}
	for i, r := range out {
		if r.Err == nil {
			t.Fatalf("out[%d]: expected error from cancelled context", i)
		}
	}
}

func TestProcessAll_Empty(t *testing.T) {
	t.Parallel()

	fn := func(_ context.Context, s string) (string, error) { return s, nil }
	out := worker.ProcessAll(context.Background(), nil, fn, worker.Options{Workers: 3})
	if len(out) != 0 {
		t.Fatalf("expected no outputs, got %d", len(out))
	}
}
