package session

import (
	"context"
	"time"
)

// Janitor periodically reaps idle sessions. It runs as a supervised service.
type Janitor struct {
	manager  *Manager
	ttl      time.Duration
	interval time.Duration
}

// NewJanitor reaps sessions idle for longer than ttl every interval
func NewJanitor(manager *Manager, ttl, interval time.Duration) *Janitor {
	return &Janitor{
		manager:  manager,
		ttl:      ttl,
		interval: interval,
	}
}

func (j *Janitor) String() string {
	return "session-janitor"
}

// Serve blocks until ctx is done
func (j *Janitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := j.manager.Reap(j.ttl); n > 0 {
				j.manager.log.Debug().Int("reaped", n).Msg("Janitor pass")
			}
		}
	}
}
