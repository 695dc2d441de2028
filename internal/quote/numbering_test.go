package quote

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

type atomicCounter struct {
	n int64
}

func (c *atomicCounter) Next(_ context.Context) (int64, error) {
	return atomic.AddInt64(&c.n, 1), nil
}

func TestFormatBase(t *testing.T) {
	cases := map[int64]string{
		1:      "Q00001",
		42:     "Q00042",
		99999:  "Q99999",
		100000: "Q100000",
	}
	for n, want := range cases {
		if got := FormatBase(n); got != want {
			t.Fatalf("FormatBase(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestReference(t *testing.T) {
	if got := Reference("Q00042", 0); got != "Q00042-0" {
		t.Fatalf("unexpected reference %q", got)
	}
	if got := Reference("Q00042", 3); got != "Q00042-3" {
		t.Fatalf("unexpected reference %q", got)
	}
}

func TestConcurrentAllocationsAreUnique(t *testing.T) {
	counter := &atomicCounter{}
	const workers = 50

	var mu sync.Mutex
	seen := map[string]bool{}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := counter.Next(context.Background())
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			ref := Reference(FormatBase(n), 0)
			mu.Lock()
			defer mu.Unlock()
			if seen[ref] {
				t.Errorf("duplicate reference %s", ref)
			}
			seen[ref] = true
		}()
	}
	wg.Wait()

	if len(seen) != workers {
		t.Fatalf("expected %d unique references, got %d", workers, len(seen))
	}
}
