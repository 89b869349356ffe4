package gemini

import (
	"context"
	"fmt"
	"time"

	"mediachat/internal/models"
)

// DefaultPollInterval is the fixed wait between state fetches.
const DefaultPollInterval = 10 * time.Second

// StateFetch re-fetches a remote asset's current state by name.
type StateFetch func(ctx context.Context, name string) (*models.RemoteAsset, error)

// Poller drives an uploaded asset through the remote processing state
// machine until it reaches a terminal state.
type Poller struct {
	// Interval between state fetches. Defaults to DefaultPollInterval.
	Interval time.Duration
	// MaxWait bounds the total wait. Zero waits forever; callers needing
	// bounded latency set it.
	MaxWait time.Duration
	// Sleep is replaceable in tests. Defaults to a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// AwaitReady polls until the asset leaves the processing state. It returns
// the ready handle, or an AssetProcessingError when the service reports a
// failed terminal state or MaxWait runs out. Terminal states are never polled
// past.
func (p *Poller) AwaitReady(ctx context.Context, asset *models.RemoteAsset, fetch StateFetch) (*models.RemoteAsset, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	var deadline time.Time
	if p.MaxWait > 0 {
		deadline = time.Now().Add(p.MaxWait)
	}

	for asset.State == models.AssetProcessing {
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			// Expiry surfaces the same way a failed terminal state does.
			return nil, &AssetProcessingError{Name: asset.Name, State: asset.RawState}
		}
		if err := sleep(ctx, interval); err != nil {
			return nil, err
		}
		next, err := fetch(ctx, asset.Name)
		if err != nil {
			return nil, fmt.Errorf("refresh asset state: %w", err)
		}
		asset = next
	}

	if asset.State != models.AssetReady {
		return nil, &AssetProcessingError{Name: asset.Name, State: asset.RawState}
	}
	return asset, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
