package checks

import (
	"context"
	"time"

	"github.com/charlesng35/smokefree/internal/cache"
	"github.com/charlesng35/smokefree/internal/monitoring"
)

// storageProbeKey is never written; a successful read of a missing key proves the backend answers.
const storageProbeKey = "__health_probe"

// Storage returns a readiness probe that reads from the notification storage backend.
func Storage(store cache.Store, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("storage", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if store == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "storage not configured"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout))
		defer cancel()
		_, _, err := store.Get(probeCtx, storageProbeKey)
		return monitoring.ResultFromError("storage", err, time.Since(start))
	})
}
