package staging

import (
	"context"
	"log"
	"os"
	"time"
)

const (
	DefaultStagedTTL       = 30 * time.Minute
	DefaultCleanupInterval = 10 * time.Minute
)

// StartSweeper launches a backstop loop that removes staged artifacts older
// than the store's TTL. Normal operation releases artifacts in-request; the
// sweeper only catches leaks from interrupted cycles.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	go s.sweepLoop(ctx, interval)
}

func (s *Store) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepExpired()
		}
	}
}

func (s *Store) sweepExpired() {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	var expired []string
	for path, stagedAt := range s.live {
		if stagedAt.Before(cutoff) {
			expired = append(expired, path)
		}
	}
	for _, path := range expired {
		delete(s.live, path)
	}
	s.mu.Unlock()

	for _, path := range expired {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("sweep staged artifact %s failed: %v", path, err)
			continue
		}
		log.Printf("swept leaked staged artifact %s", path)
	}
}
