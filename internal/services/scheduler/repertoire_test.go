package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"metronome/pkg/cronexpr"
)

func mustPattern(t *testing.T, expr string, at time.Time) *cronexpr.Pattern {
	t.Helper()
	p, err := cronexpr.ParseAt(expr, at)
	if err != nil {
		t.Fatalf("ParseAt(%q): %v", expr, err)
	}
	return p
}

func noopTask(context.Context) error { return nil }

var repAnchor = time.Date(2024, 7, 8, 10, 30, 0, 0, time.UTC) // Monday

func TestRepertoireDuplicateID(t *testing.T) {
	t.Parallel()
	r := NewRepertoire()
	p := mustPattern(t, "* * * * *", repAnchor)

	if err := r.Add("job", p, noopTask); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	err := r.Add("job", p, noopTask)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("second Add: got %v, want ErrDuplicateID", err)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d after rejected duplicate, want 1", r.Len())
	}
}

func TestRepertoireRemove(t *testing.T) {
	t.Parallel()
	r := NewRepertoire()
	p := mustPattern(t, "* * * * *", repAnchor)

	for _, id := range []string{"a", "b", "c"} {
		if err := r.Add(id, p, noopTask); err != nil {
			t.Fatalf("Add(%q): %v", id, err)
		}
	}

	if !r.Remove("b") {
		t.Fatal("Remove(b) = false, want true")
	}
	if r.Remove("b") {
		t.Fatal("second Remove(b) = true, want false")
	}
	if r.Remove("missing") {
		t.Fatal("Remove(missing) = true, want false")
	}
	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}

	// Removal must keep insertion order and a consistent index.
	got := r.IDs()
	want := []string{"a", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("IDs = %v, want %v", got, want)
		}
	}
	if !r.Remove("c") {
		t.Fatal("Remove(c) after reindex = false, want true")
	}
}

func TestRepertoireUpdatePattern(t *testing.T) {
	t.Parallel()
	r := NewRepertoire()
	never := mustPattern(t, "0 0 30 2 *", repAnchor) // Feb 30 never matches
	always := mustPattern(t, "* * * * *", repAnchor)

	if err := r.Add("job", never, noopTask); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if r.UpdatePattern("missing", always) {
		t.Fatal("UpdatePattern(missing) = true, want false")
	}
	if !r.UpdatePattern("job", always) {
		t.Fatal("UpdatePattern(job) = false, want true")
	}
	if n := len(r.Matches(repAnchor, false)); n != 1 {
		t.Fatalf("Matches after update = %d entries, want 1", n)
	}
}

func TestRepertoireMatchesTableOrder(t *testing.T) {
	t.Parallel()
	r := NewRepertoire()
	always := mustPattern(t, "* * * * *", repAnchor)
	never := mustPattern(t, "0 0 30 2 *", repAnchor)

	for _, e := range []struct {
		id string
		p  *cronexpr.Pattern
	}{
		{"third", always},
		{"skip", never},
		{"first", always},
	} {
		if err := r.Add(e.id, e.p, noopTask); err != nil {
			t.Fatalf("Add(%q): %v", e.id, err)
		}
	}

	matched := r.Matches(repAnchor, false)
	if len(matched) != 2 {
		t.Fatalf("Matches = %d entries, want 2", len(matched))
	}
	if matched[0].ID != "third" || matched[1].ID != "first" {
		t.Fatalf("match order = [%s %s], want insertion order [third first]", matched[0].ID, matched[1].ID)
	}
}

func TestRepertoireConcurrentAccess(t *testing.T) {
	t.Parallel()
	r := NewRepertoire()
	p := mustPattern(t, "* * * * *", repAnchor)

	const n = 1000
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("job-%d", i)
			if err := r.Add(id, p, noopTask); err != nil {
				t.Errorf("Add(%q): %v", id, err)
				return
			}
			if i%2 == 0 {
				r.Remove(id)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for _, e := range r.Matches(repAnchor, false) {
				if e.Pattern == nil {
					t.Error("sweep observed half-constructed entry")
					return
				}
			}
		}
	}()
	wg.Wait()

	if r.Len() != n/2 {
		t.Fatalf("Len = %d, want %d", r.Len(), n/2)
	}
}
