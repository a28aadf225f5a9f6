package sharing

import (
	"context"
	"log"
	"time"

	"sharetrack/backend/internal/config"
	"sharetrack/backend/internal/metrics"
)

// Sweeper periodically expires sessions past their deadline and, when a
// retention period is set, deletes old resolved records.
type Sweeper struct {
	Sessions  *SessionManager
	Interval  time.Duration
	Retention time.Duration
	BatchSize int
}

// NewSweeper creates a Sweeper.
func NewSweeper(sessions *SessionManager, interval, retention time.Duration) *Sweeper {
	return &Sweeper{
		Sessions:  sessions,
		Interval:  interval,
		Retention: retention,
		BatchSize: config.SweepBatchSize,
	}
}

// Run sweeps every Interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	log.Printf("Expiry sweeper started (interval %s).", s.Interval)
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Expiry sweeper stopped.")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				log.Printf("ERROR: Expiry sweep failed: %v", err)
			}
		}
	}
}

// Sweep runs one pass and returns how many sessions this pass expired.
// Sessions ended concurrently by a revoke are skipped, not counted.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	size := s.BatchSize
	if size <= 0 {
		size = config.SweepBatchSize
	}

	expired := 0
	for {
		batch, err := s.Sessions.Storage.ListExpiredSessions(ctx, s.Sessions.now(), size)
		if err != nil {
			return expired, err
		}
		progressed := false
		for i := range batch {
			won, err := s.Sessions.Expire(ctx, &batch[i])
			if err != nil {
				log.Printf("ERROR: Failed to expire session %s: %v", batch[i].ID, err)
				continue
			}
			if won {
				expired++
				progressed = true
			}
		}
		if len(batch) < size || !progressed {
			break
		}
	}
	if expired > 0 {
		log.Printf("INFO: Sweeper expired %d session(s)", expired)
	}

	if s.Retention > 0 {
		purged, err := s.Sessions.Storage.PurgeEnded(ctx, s.Sessions.now().Add(-s.Retention))
		if err != nil {
			return expired, err
		}
		if purged > 0 {
			log.Printf("INFO: Sweeper purged %d record(s) older than %s", purged, s.Retention)
		}
	}
	return expired, nil
}
