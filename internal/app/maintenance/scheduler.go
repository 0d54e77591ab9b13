package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/smokefree/internal/cache"
	"github.com/charlesng35/smokefree/internal/models"
	"github.com/charlesng35/smokefree/internal/progress"
	"github.com/charlesng35/smokefree/internal/session"
	"github.com/charlesng35/smokefree/pkg/logger"
)

const (
	defaultMilestoneSpec = "@daily"
	defaultPurgeSpec     = "@hourly"
)

// SessionSource lists signed-in sessions.
type SessionSource interface {
	Active() []*session.Session
}

// ProfileSource loads quit profiles for a set of users.
type ProfileSource interface {
	ListByUsers(ctx context.Context, userIDs []string) (map[string]models.QuitProfile, error)
}

// Scheduler runs the periodic milestone sweep and storage purge.
type Scheduler struct {
	sessions SessionSource
	profiles ProfileSource
	purger   cache.Purger
	cron     *cron.Cron
	now      func() time.Time
	loc      *time.Location
	log      *zap.Logger

	milestoneSchedule string
	purgeSchedule     string
}

// Option customises the Scheduler.
type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock used by the sweep and purge.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the location in which days since quitting are counted.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithMilestoneSchedule overrides the cron expression of the milestone sweep.
func WithMilestoneSchedule(expr string) Option {
	return func(s *Scheduler) {
		if expr != "" {
			s.milestoneSchedule = expr
		}
	}
}

// WithPurgeSchedule overrides the cron expression of the storage purge.
func WithPurgeSchedule(expr string) Option {
	return func(s *Scheduler) {
		if expr != "" {
			s.purgeSchedule = expr
		}
	}
}

// NewScheduler constructs a Scheduler. A nil sessions or profiles source disables the sweep;
// a nil purger disables the purge.
func NewScheduler(sessions SessionSource, profiles ProfileSource, purger cache.Purger, opts ...Option) *Scheduler {
	s := &Scheduler{
		sessions:          sessions,
		profiles:          profiles,
		purger:            purger,
		now:               time.Now,
		loc:               time.UTC,
		milestoneSchedule: defaultMilestoneSpec,
		purgeSchedule:     defaultPurgeSpec,
		log:               logger.WithModule("maintenance"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger), cron.WithLocation(s.loc))
	}
	return s
}

func (s *Scheduler) sweepEnabled() bool {
	return s.sessions != nil && s.profiles != nil
}

// Start registers the enabled jobs and launches the cron scheduler.
func (s *Scheduler) Start() error {
	if !s.sweepEnabled() && s.purger == nil {
		return nil
	}

	if s.sweepEnabled() {
		if _, err := s.cron.AddFunc(s.milestoneSchedule, func() {
			if _, err := s.SweepMilestones(context.Background()); err != nil {
				s.log.Warn("milestone sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if s.purger != nil {
		if _, err := s.cron.AddFunc(s.purgeSchedule, func() {
			if _, err := s.purger.PurgeExpired(context.Background(), s.now()); err != nil {
				s.log.Warn("storage purge failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts the scheduler, returning a context that is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce executes every enabled job sequentially.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if s.sweepEnabled() {
		if _, err := s.SweepMilestones(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if s.purger != nil {
		if _, err := s.purger.PurgeExpired(ctx, s.now()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// SweepMilestones checks every active session whose user has a quit profile and returns
// the number of milestone notifications emitted.
func (s *Scheduler) SweepMilestones(ctx context.Context) (int, error) {
	if !s.sweepEnabled() {
		return 0, nil
	}

	active := s.sessions.Active()
	if len(active) == 0 {
		return 0, nil
	}

	ids := make([]string, len(active))
	for i, sess := range active {
		ids[i] = sess.UserID()
	}
	profiles, err := s.profiles.ListByUsers(ctx, ids)
	if err != nil {
		return 0, err
	}

	now := s.now()
	emitted := 0
	for _, sess := range active {
		profile, ok := profiles[sess.UserID()]
		if !ok {
			continue
		}
		days := progress.DaysSince(profile.QuitDate, now, s.loc)
		if sess.Milestones().CheckMilestones(ctx, days) {
			emitted++
		}
	}

	if emitted > 0 {
		s.log.Info("milestone sweep emitted notifications", zap.Int("count", emitted))
	}
	return emitted, nil
}
