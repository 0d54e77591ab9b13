package milestones

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/charlesng35/smokefree/internal/notifications"
	"github.com/charlesng35/smokefree/pkg/logger"
	"github.com/charlesng35/smokefree/pkg/metrics"
)

// Milestone is an elapsed-day count with celebratory content.
type Milestone struct {
	Days    int    `json:"days"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

var table = []Milestone{
	{Days: 1, Title: "24 Hours Smoke-Free!", Message: "Your blood carbon monoxide level has dropped to normal."},
	{Days: 3, Title: "3 Days Smoke-Free!", Message: "Nicotine is out of your body and breathing is getting easier."},
	{Days: 7, Title: "One Week Smoke-Free!", Message: "Your senses of taste and smell are starting to return."},
	{Days: 14, Title: "Two Weeks Smoke-Free!", Message: "Your circulation is improving and walking is easier."},
	{Days: 30, Title: "One Month Smoke-Free!", Message: "Your lung function is improving and coughing is decreasing."},
	{Days: 90, Title: "Three Months Smoke-Free!", Message: "Your lung capacity has increased noticeably."},
	{Days: 180, Title: "Six Months Smoke-Free!", Message: "Coughing, congestion and shortness of breath keep decreasing."},
	{Days: 365, Title: "One Year Smoke-Free!", Message: "Your risk of heart disease is now half that of a smoker."},
}

// Lookup returns the milestone for exactly days.
func Lookup(days int) (Milestone, bool) {
	for _, m := range table {
		if m.Days == days {
			return m, true
		}
	}
	return Milestone{}, false
}

// Next returns the first milestone strictly after days.
func Next(days int) (Milestone, bool) {
	for _, m := range table {
		if m.Days > days {
			return m, true
		}
	}
	return Milestone{}, false
}

// Adder receives milestone notifications.
type Adder interface {
	Add(ctx context.Context, in notifications.Input) (notifications.Record, bool)
}

// Notifier emits at most one notification per milestone day for the lifetime of a session.
type Notifier struct {
	mu      sync.Mutex
	store   Adder
	emitted map[int]bool
	log     *zap.Logger
}

// NewNotifier returns a Notifier that adds to store.
func NewNotifier(store Adder) *Notifier {
	return &Notifier{
		store:   store,
		emitted: make(map[int]bool),
		log:     logger.WithModule("milestones"),
	}
}

// CheckMilestones emits the milestone for daysSinceQuit when it matches the table exactly.
// Missed days are never caught up. It reports whether a notification was added.
func (n *Notifier) CheckMilestones(ctx context.Context, daysSinceQuit int) bool {
	m, ok := Lookup(daysSinceQuit)
	if !ok {
		return false
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.emitted[m.Days] {
		return false
	}

	_, added := n.store.Add(ctx, notifications.Input{
		Title:   m.Title,
		Message: m.Message,
		Type:    notifications.TypeMilestone,
		Data:    map[string]any{"milestoneDays": m.Days},
	})
	if !added {
		return false
	}

	n.emitted[m.Days] = true
	metrics.MilestonesEmitted.WithLabelValues(strconv.Itoa(m.Days)).Inc()
	n.log.Info("milestone reached", zap.Int("days", m.Days))
	return true
}
