// Registry maintains the map of ids to secure channel sessions that
// the enclave currently holds. Sessions leave it when they are
// removed explicitly, when the registry stops, or when they stay
// inactive for too many sweeps.
package secure_channel

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// SessionID identifies a session. 0 is reserved and never issued.
type SessionID uint64

// The max number of secure channel sessions at the same time.
const MAX_SESSIONS = 1031

// A session is removed after being idle for more than
// SESSION_TIMEOUT_TICKS sweeps.
const SESSION_TIMEOUT_TICKS = 15

type entry struct {
	id       SessionID
	inactive atomic.Int32 // sweeps since the last lookup
	ctx      *ExchangeContext
}

type Registry struct {
	sync.RWMutex

	started bool
	// -1 means unlimited, for both
	maxSessions int
	timeout     int32
	curve       CurveID
	rand        io.Reader

	sessions map[SessionID]*entry
}

// NewRegistry returns a stopped registry holding at most maxSessions
// sessions, each expiring after timeout idle sweeps. New sessions use
// curve unless told otherwise.
func NewRegistry(maxSessions, timeout int, curve CurveID) *Registry {
	return &Registry{
		maxSessions: maxSessions,
		timeout:     int32(timeout),
		curve:       curve,
		rand:        rand.Reader,
		sessions:    make(map[SessionID]*entry),
	}
}

// Start makes the registry usable. Starting a started registry is a
// no-op.
func (r *Registry) Start() {
	r.Lock()
	defer r.Unlock()
	if r.started {
		return
	}
	r.started = true
	log.Info().Int("max_sessions", r.maxSessions).Int32("timeout_ticks", r.timeout).Msg("secure channel registry started")
}

// Stop destroys every session and makes the registry unusable until
// the next Start. Callers must drain in-flight operations first.
func (r *Registry) Stop() {
	r.Lock()
	defer r.Unlock()
	n := r.removeAllLocked()
	r.started = false
	log.Info().Int("destroyed", n).Msg("secure channel registry stopped")
}

func (r *Registry) Started() bool {
	r.RLock()
	defer r.RUnlock()
	return r.started
}

func (r *Registry) Len() int {
	r.RLock()
	defer r.RUnlock()
	return len(r.sessions)
}

func (r *Registry) full() bool {
	return r.maxSessions != -1 && len(r.sessions) >= r.maxSessions
}

// randomID draws a non-zero session id.
func (r *Registry) randomID() (SessionID, error) {
	var bytes [8]byte
	for {
		if _, err := io.ReadFull(r.rand, bytes[:]); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRandomSource, err)
		}
		if id := SessionID(binary.BigEndian.Uint64(bytes[:])); id != 0 {
			return id, nil
		}
	}
}

// CreateSession builds a new exchange context on curve (the registry
// default if curve is 0) and registers it under a fresh random id.
// Capacity is checked before any key material is generated.
func (r *Registry) CreateSession(curve CurveID) (SessionID, error) {
	if curve == 0 {
		curve = r.curve
	}
	if !IsSupportedCurve(curve) {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedCurve, curve)
	}

	r.RLock()
	started, full := r.started, r.full()
	r.RUnlock()
	if !started {
		return 0, fmt.Errorf("%w: registry not started", ErrNotReady)
	}
	if full {
		return 0, capacityError(r.maxSessions)
	}

	id, err := r.randomID()
	if err != nil {
		return 0, err
	}
	ctx, err := newExchangeContext(curve, r.rand)
	if err != nil {
		return 0, err
	}
	return r.insert(id, ctx)
}

// insert takes ownership of ctx: if the session cannot be registered,
// ctx is destroyed before insert returns.
func (r *Registry) insert(id SessionID, ctx *ExchangeContext) (SessionID, error) {
	r.Lock()
	defer r.Unlock()

	if !r.started {
		ctx.Destroy()
		return 0, fmt.Errorf("%w: registry not started", ErrNotReady)
	}
	// another caller may have taken the last slot since the check
	// in CreateSession
	if r.full() {
		ctx.Destroy()
		log.Error().Int("max_sessions", r.maxSessions).Msg("secure channel session number exceeds the max limit")
		return 0, capacityError(r.maxSessions)
	}
	for _, taken := r.sessions[id]; taken; _, taken = r.sessions[id] {
		var err error
		if id, err = r.randomID(); err != nil {
			ctx.Destroy()
			return 0, err
		}
	}

	r.sessions[id] = &entry{id: id, ctx: ctx}
	log.Debug().Uint64("session_id", uint64(id)).Stringer("curve", ctx.Curve()).Msg("created secure channel session")
	return id, nil
}

// lookup finds the entry for id and marks it active. The caller must
// hold the lock, in either mode.
func (r *Registry) lookup(id SessionID) (*entry, error) {
	if !r.started {
		return nil, fmt.Errorf("%w: registry not started", ErrNotReady)
	}
	e, ok := r.sessions[id]
	if !ok {
		return nil, notFoundError(id)
	}
	e.inactive.Store(0)
	return e, nil
}

// view runs fn on the context of session id under the read lock. The
// context must not escape fn; anything the caller needs is copied
// out inside it.
func (r *Registry) view(id SessionID, fn func(*ExchangeContext) error) error {
	r.RLock()
	defer r.RUnlock()
	e, err := r.lookup(id)
	if err != nil {
		return err
	}
	return fn(e.ctx)
}

// update is view under the write lock, for anything that mutates the
// context.
func (r *Registry) update(id SessionID, fn func(*ExchangeContext) error) error {
	r.Lock()
	defer r.Unlock()
	e, err := r.lookup(id)
	if err != nil {
		return err
	}
	return fn(e.ctx)
}

// RemoveSession destroys session id. Removing an unknown session is
// not an error.
func (r *Registry) RemoveSession(id SessionID) {
	r.Lock()
	defer r.Unlock()
	e, ok := r.sessions[id]
	if !ok { // if id's not in the registry, no problem
		return
	}
	delete(r.sessions, id)
	e.ctx.Destroy()
	log.Debug().Uint64("session_id", uint64(id)).Msg("removed secure channel session")
}

// RemoveAll destroys every session.
func (r *Registry) RemoveAll() {
	r.Lock()
	defer r.Unlock()
	r.removeAllLocked()
}

func (r *Registry) removeAllLocked() int {
	n := len(r.sessions)
	for id, e := range r.sessions {
		delete(r.sessions, id)
		e.ctx.Destroy()
	}
	return n
}

// SweepInactive ages every session by one tick and destroys those
// idle for more than the timeout. It returns how many were destroyed.
// The registry never calls it on its own; see RunSweeper.
func (r *Registry) SweepInactive() int {
	r.Lock()
	defer r.Unlock()
	if !r.started || r.timeout == -1 {
		return 0
	}

	expired := 0
	for id, e := range r.sessions {
		if e.inactive.Add(1) <= r.timeout {
			continue
		}
		delete(r.sessions, id)
		e.ctx.Destroy()
		expired++
		log.Warn().Uint64("session_id", uint64(id)).Msg("secure channel session timed out")
	}
	return expired
}
