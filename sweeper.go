package secure_channel

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper is anything with a periodic expiry pass, such as a
// SessionManager or a Registry.
type Sweeper interface {
	Sweep() int
}

// Sweep makes a Registry usable as a Sweeper.
func (r *Registry) Sweep() int {
	return r.SweepInactive()
}

// RunSweeper calls s.Sweep every interval until ctx is done. Combined
// with the timeout of the registry, a session lives at least
// timeout * interval after its last use.
func RunSweeper(ctx context.Context, s Sweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Debug().Int("expired", n).Msg("swept inactive sessions")
			}
		}
	}
}

// SweepInterval is the configured time between two sweeps.
func (sm *sessionManager) SweepInterval() time.Duration {
	return sm.sweepInterval
}
