package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/ftxqxd/filebox"
)

type revision struct {
	value int
	err   error
}

func startWatch(t *testing.T, ctx context.Context, path string, opts ...Option) (<-chan revision, <-chan error) {
	t.Helper()
	revs := make(chan revision, 64)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, filebox.JSON[int](), func(value int, err error) {
			revs <- revision{value: value, err: err}
		}, opts...)
	}()
	return revs, done
}

// awaitRevision rewrites path until the watcher reports a matching
// revision; registration timing is not observable from outside.
func awaitRevision(t *testing.T, path, contents string, revs <-chan revision, match func(revision) bool) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
		select {
		case r := <-revs:
			if match(r) {
				return
			}
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatalf("watcher never reported %q", contents)
		}
	}
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.box")
	if err := os.WriteFile(path, []byte("1"), 0o644); err != nil {
		t.Fatalf("Failed to seed file: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	revs, done := startWatch(t, ctx, path, MinInterval(time.Millisecond))

	awaitRevision(t, path, "2", revs, func(r revision) bool {
		return r.err == nil && r.value == 2
	})

	// Corrupt bytes reach the handler as an error, then a clean write
	// recovers.
	awaitRevision(t, path, "{bad", revs, func(r revision) bool {
		return r.err != nil
	})
	awaitRevision(t, path, "3", revs, func(r revision) bool {
		return r.err == nil && r.value == 3
	})

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Watch did not return after cancellation")
	}
}

func TestWatch_CoalescesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "busy.box")
	if err := os.WriteFile(path, []byte("0"), 0o644); err != nil {
		t.Fatalf("Failed to seed file: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	revs, _ := startWatch(t, ctx, path, MinInterval(300*time.Millisecond))

	// Handshake before the burst; registration timing is not observable.
	awaitRevision(t, path, "-1", revs, func(r revision) bool {
		return r.err == nil && r.value == -1
	})

	const writes = 20
	for i := 1; i <= writes; i++ {
		if err := os.WriteFile(path, []byte(strconv.Itoa(i)), 0o644); err != nil {
			t.Fatalf("Failed to write revision %d: %v", i, err)
		}
	}

	// The burst collapses into far fewer observations than writes, and the
	// last one carries the settled value.
	observed := 0
	deadline := time.After(10 * time.Second)
	for {
		select {
		case r := <-revs:
			observed++
			if r.err == nil && r.value == writes {
				if observed >= writes {
					t.Errorf("%d observations for %d writes, expected the burst to coalesce", observed, writes)
				}
				return
			}
		case <-deadline:
			t.Fatalf("watcher never settled on %d after %d observations", writes, observed)
		}
	}
}

func TestWatch_Remove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doomed.box")
	if err := os.WriteFile(path, []byte("1"), 0o644); err != nil {
		t.Fatalf("Failed to seed file: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	revs, done := startWatch(t, ctx, path, MinInterval(time.Millisecond))
	awaitRevision(t, path, "1", revs, func(r revision) bool {
		return r.err == nil && r.value == 1
	})

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil after removal, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Watch did not return after removal")
	}
}

func TestWatch_Missing(t *testing.T) {
	err := Watch(t.Context(), filepath.Join(t.TempDir(), "absent.box"), filebox.JSON[int](), func(int, error) {})
	if err == nil {
		t.Fatal("Watch should fail on a missing file")
	}
}
