package checks

import (
	"context"
	"fmt"

	"github.com/charlesng35/smokefree/internal/monitoring"
	"github.com/charlesng35/smokefree/internal/session"
)

// SessionLister exposes the active sessions.
type SessionLister interface {
	Active() []*session.Session
}

// Sessions returns a liveness probe reporting how many users are signed in.
func Sessions(sessions SessionLister) monitoring.Check {
	return monitoring.NewCheck("sessions", func(context.Context) monitoring.ProbeResult {
		if sessions == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "session manager unavailable"}
		}
		return monitoring.ProbeResult{
			Status:  monitoring.StatusUp,
			Details: fmt.Sprintf("%d active", len(sessions.Active())),
		}
	})
}
