package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/charlesng35/smokefree/internal/monitoring"
)

// StreamCounter exposes the number of open realtime streams of a user.
type StreamCounter interface {
	Connections(userID string) int
}

// Realtime reports how many signed-in users currently hold a notification stream.
func Realtime(streams StreamCounter, sessions SessionLister) monitoring.Check {
	return monitoring.NewCheck("realtime", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if streams == nil || sessions == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  "realtime hub unavailable",
				Duration: time.Since(start),
			}
		}

		active := sessions.Active()
		open, streaming := 0, 0
		for _, s := range active {
			if n := streams.Connections(s.UserID()); n > 0 {
				open += n
				streaming++
			}
		}
		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Details:  fmt.Sprintf("%d streams for %d of %d users", open, streaming, len(active)),
			Duration: time.Since(start),
		}
	})
}
