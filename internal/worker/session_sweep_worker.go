package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// SessionSweeper drops idle location sessions.
type SessionSweeper interface {
	Sweep(now time.Time) int
}

// SessionSweepWorker evicts idle location sessions from memory.
type SessionSweepWorker struct {
	sessions SessionSweeper
	interval time.Duration
}

// NewSessionSweepWorker constructs a SessionSweepWorker.
func NewSessionSweepWorker(sessions SessionSweeper, interval time.Duration) *SessionSweepWorker {
	return &SessionSweepWorker{sessions: sessions, interval: interval}
}

// Start sweeps on every tick until ctx is done.
func (w *SessionSweepWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting session sweep worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if n := w.sessions.Sweep(now); n > 0 {
				log.Info().Int("removed", n).Msg("Idle location sessions evicted")
			}
		case <-ctx.Done():
			log.Info().Msg("Session sweep worker stopped")
			return
		}
	}
}
