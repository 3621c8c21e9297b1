package secure_channel

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func startedRegistry(max, timeout int) *Registry {
	r := NewRegistry(max, timeout, X25519)
	r.Start()
	return r
}

func TestRegistryCapacity(t *testing.T) {
	r := startedRegistry(MAX_SESSIONS, SESSION_TIMEOUT_TICKS)
	defer r.Stop()

	ids := make([]SessionID, 0, MAX_SESSIONS)
	for i := 0; i < MAX_SESSIONS; i++ {
		id, err := r.CreateSession(0)
		if err != nil {
			t.Fatalf("Session %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	_, err := r.CreateSession(0)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Expected ErrCapacityExceeded, got %v", err)
	}
	if !strings.Contains(err.Error(), "exceeded max limit of 1031") {
		t.Fatalf("Unexpected error message: %v", err)
	}
	if !Retryable(err) {
		t.Fatal("Capacity errors should be retryable.")
	}
	if r.Len() != MAX_SESSIONS {
		t.Fatalf("Expected %d sessions, got %d", MAX_SESSIONS, r.Len())
	}

	r.RemoveSession(ids[0])
	if _, err := r.CreateSession(0); err != nil {
		t.Fatalf("Creating after a removal should succeed: %v", err)
	}
}

func TestRegistryInsertDestroysRejected(t *testing.T) {
	r := startedRegistry(1, SESSION_TIMEOUT_TICKS)
	if _, err := r.CreateSession(0); err != nil {
		t.Fatal(err)
	}

	ctx, err := NewExchangeContext(X25519)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.insert(99, ctx); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Expected ErrCapacityExceeded, got %v", err)
	}
	if !ctx.destroyed {
		t.Fatal("A rejected context must be destroyed.")
	}
}

func TestRegistryIdsAreUnique(t *testing.T) {
	r := startedRegistry(-1, SESSION_TIMEOUT_TICKS)
	defer r.Stop()

	seen := make(map[SessionID]bool)
	for i := 0; i < 200; i++ {
		id, err := r.CreateSession(0)
		if err != nil {
			t.Fatal(err)
		}
		if id == 0 || seen[id] {
			t.Fatalf("Bad session id %d", id)
		}
		seen[id] = true
	}

	// a colliding id is redrawn
	ctx, _ := NewExchangeContext(X25519)
	var taken SessionID
	for id := range seen {
		taken = id
		break
	}
	id, err := r.insert(taken, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if id == taken {
		t.Fatal("Insert reused a live session id.")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	r := startedRegistry(MAX_SESSIONS, SESSION_TIMEOUT_TICKS)
	defer r.Stop()

	id, err := r.CreateSession(0)
	if err != nil {
		t.Fatal(err)
	}
	keep, _ := r.CreateSession(0)

	r.RemoveSession(id)
	r.RemoveSession(id)
	r.RemoveSession(12345)
	if r.Len() != 1 {
		t.Fatalf("Expected 1 session, got %d", r.Len())
	}
	if err := r.view(id, func(*ExchangeContext) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if err := r.view(keep, func(*ExchangeContext) error { return nil }); err != nil {
		t.Fatal(err)
	}
}

func TestSweepExpiresIdleSessions(t *testing.T) {
	r := startedRegistry(MAX_SESSIONS, SESSION_TIMEOUT_TICKS)
	defer r.Stop()

	idle, _ := r.CreateSession(0)
	busy, _ := r.CreateSession(0)
	touch := func(id SessionID) error {
		return r.view(id, func(*ExchangeContext) error { return nil })
	}

	for i := 0; i < SESSION_TIMEOUT_TICKS; i++ {
		if n := r.SweepInactive(); n != 0 {
			t.Fatalf("Sweep %d expired %d sessions", i+1, n)
		}
		if err := touch(busy); err != nil {
			t.Fatal(err)
		}
	}

	// idle has now been untouched for 15 sweeps; the 16th removes it
	if n := r.SweepInactive(); n != 1 {
		t.Fatalf("Expected the 16th sweep to expire 1 session, got %d", n)
	}
	if err := touch(idle); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Idle session should be gone, got %v", err)
	}
	if err := touch(busy); err != nil {
		t.Fatalf("Busy session should survive: %v", err)
	}
}

func TestSweepNeverExpires(t *testing.T) {
	r := startedRegistry(MAX_SESSIONS, -1)
	defer r.Stop()
	r.CreateSession(0)
	for i := 0; i < 100; i++ {
		r.SweepInactive()
	}
	if r.Len() != 1 {
		t.Fatal("A timeout of -1 should never expire sessions.")
	}
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry(MAX_SESSIONS, SESSION_TIMEOUT_TICKS, X25519)
	if _, err := r.CreateSession(0); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Expected ErrNotReady before Start, got %v", err)
	}

	r.Start()
	r.Start()
	id, err := r.CreateSession(0)
	if err != nil {
		t.Fatal(err)
	}
	var ctx *ExchangeContext
	r.view(id, func(c *ExchangeContext) error {
		ctx = c
		return nil
	})

	r.Stop()
	if r.Len() != 0 || !ctx.destroyed {
		t.Fatal("Stop should destroy every session.")
	}
	if err := r.view(id, func(*ExchangeContext) error { return nil }); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Expected ErrNotReady after Stop, got %v", err)
	}
	r.RemoveSession(id)
	if r.SweepInactive() != 0 {
		t.Fatal("Sweeping a stopped registry should do nothing.")
	}

	r.Start()
	if _, err := r.CreateSession(0); err != nil {
		t.Fatalf("A restarted registry should work: %v", err)
	}
	r.RemoveAll()
	if r.Len() != 0 {
		t.Fatal("RemoveAll left sessions behind.")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := startedRegistry(MAX_SESSIONS, SESSION_TIMEOUT_TICKS)
	defer r.Stop()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				id, err := r.CreateSession(0)
				if err != nil {
					t.Error(err)
					return
				}
				r.view(id, func(*ExchangeContext) error { return nil })
				r.SweepInactive()
				r.RemoveSession(id)
			}
		}()
	}
	wg.Wait()
	if r.Len() != 0 {
		t.Fatalf("Expected an empty registry, got %d", r.Len())
	}
}
