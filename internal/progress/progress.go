package progress

import (
	"math"
	"time"

	"github.com/charlesng35/smokefree/internal/milestones"
	"github.com/charlesng35/smokefree/internal/models"
)

const defaultPackSize = 20

// Stats summarises a user's quit progress.
type Stats struct {
	QuitDate            time.Time             `json:"quit_date"`
	DaysSinceQuit       int                   `json:"days_since_quit"`
	CigarettesAvoided   int                   `json:"cigarettes_avoided"`
	MoneySaved          float64               `json:"money_saved"`
	NextMilestone       *milestones.Milestone `json:"next_milestone,omitempty"`
	DaysToNextMilestone int                   `json:"days_to_next_milestone,omitempty"`
}

// DaysSince counts whole calendar days in loc between quit and now. Future quit dates yield 0.
func DaysSince(quit, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	qy, qm, qd := quit.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()

	start := time.Date(qy, qm, qd, 0, 0, 0, 0, time.UTC)
	end := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	days := int(end.Sub(start).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Calculate derives Stats for profile at now.
func Calculate(profile models.QuitProfile, now time.Time, loc *time.Location) Stats {
	days := DaysSince(profile.QuitDate, now, loc)

	packSize := profile.PackSize
	if packSize <= 0 {
		packSize = defaultPackSize
	}
	avoided := days * max(profile.CigarettesPerDay, 0)
	saved := float64(avoided) / float64(packSize) * profile.PackPrice

	stats := Stats{
		QuitDate:          profile.QuitDate,
		DaysSinceQuit:     days,
		CigarettesAvoided: avoided,
		MoneySaved:        math.Round(saved*100) / 100,
	}
	if next, ok := milestones.Next(days); ok {
		stats.NextMilestone = &next
		stats.DaysToNextMilestone = next.Days - days
	}
	return stats
}
