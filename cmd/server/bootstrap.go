package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/smokefree/internal/api"
	"github.com/charlesng35/smokefree/internal/app"
	"github.com/charlesng35/smokefree/internal/app/maintenance"
	iauth "github.com/charlesng35/smokefree/internal/auth"
	"github.com/charlesng35/smokefree/internal/cache"
	"github.com/charlesng35/smokefree/internal/database"
	"github.com/charlesng35/smokefree/internal/monitoring"
	"github.com/charlesng35/smokefree/internal/monitoring/checks"
	"github.com/charlesng35/smokefree/internal/notifications"
	"github.com/charlesng35/smokefree/internal/push"
	"github.com/charlesng35/smokefree/internal/realtime"
	"github.com/charlesng35/smokefree/internal/services"
	"github.com/charlesng35/smokefree/internal/session"
	"github.com/charlesng35/smokefree/pkg/logger"
)

const healthProbeTimeout = 2 * time.Second

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Storage   cache.Store
	Broker    *push.Broker
	Hub       *realtime.Hub
	Sessions  *session.Manager
	Scheduler *maintenance.Scheduler
	Router    *gin.Engine
}

// bootstrapRuntime initialises the database, storage, push broker, sessions and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Storage, err = cfg.Storage.NewStore(stack.DB)
	if err != nil {
		return nil, err
	}
	log.Info("notification storage ready", zap.String("driver", storageDriver(cfg.Storage)))

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	deviceTokens, err := services.NewDeviceTokenService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise device token service: %w", err)
	}
	profiles, err := services.NewProfileService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise profile service: %w", err)
	}

	background := push.NewBackgroundHandler(push.NewLogRenderer(), cfg.Push.Icon, cfg.Push.DefaultClickURL)
	stack.Broker = push.NewBroker(background)
	stack.Hub = realtime.NewHub()

	var bridge *push.Bridge
	if cfg.Push.Enabled {
		bridge = push.NewBridge(stack.Broker, deviceTokens)
	}

	builder := session.Builder{
		Storage:      stack.Storage,
		Bridge:       bridge,
		StoreOptions: storeOptions(cfg, stack.Hub),
	}
	stack.Sessions = session.NewManager(builder.Build)

	stack.Scheduler = newScheduler(cfg, stack.Sessions, profiles, stack.Storage)
	// Collections that expired while the server was down are dropped before the first purge tick.
	if err := stack.Scheduler.RunOnce(ctx); err != nil {
		log.Warn("initial maintenance run failed", zap.Error(err))
	}
	if err := stack.Scheduler.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	health := monitoring.NewHealthManager()
	health.RegisterLiveness(checks.Sessions(stack.Sessions))
	health.RegisterLiveness(checks.Realtime(stack.Hub, stack.Sessions))
	health.RegisterReadiness(checks.Database(stack.DB, healthProbeTimeout))
	health.RegisterReadiness(checks.Storage(stack.Storage, healthProbeTimeout))

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:         stack.DB,
		Config:     cfg,
		Tokens:     jwtSvc,
		Sessions:   stack.Sessions,
		Hub:        stack.Hub,
		Broker:     stack.Broker,
		Background: background,
		Registrar:  deviceTokens,
		Profiles:   profiles,
		Health:     health,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func storeOptions(cfg *app.Config, hub *realtime.Hub) []notifications.Option {
	n := cfg.Notifications
	opts := []notifications.Option{
		notifications.WithKeyPrefix(cfg.Storage.KeyPrefix),
		notifications.WithTTL(cfg.Storage.TTL),
		notifications.WithLocation(n.Location()),
		notifications.WithLayouts(n.DateLayout, n.TimeLayout),
		notifications.WithDefaultPushTitle(n.DefaultPushTitle),
	}
	if hub != nil {
		opts = append(opts, notifications.WithObserver(hub.NotificationObserver()))
	}
	return opts
}

func newScheduler(cfg *app.Config, sessions *session.Manager, profiles *services.ProfileService, storage cache.Store) *maintenance.Scheduler {
	var (
		sessionSource maintenance.SessionSource
		profileSource maintenance.ProfileSource
		purger        cache.Purger
	)
	if cfg.Milestones.Enabled {
		sessionSource = sessions
		profileSource = profiles
	}
	if p, ok := storage.(cache.Purger); ok {
		purger = p
	}

	return maintenance.NewScheduler(sessionSource, profileSource, purger,
		maintenance.WithLocation(cfg.Notifications.Location()),
		maintenance.WithMilestoneSchedule(cfg.Milestones.Schedule),
		maintenance.WithPurgeSchedule(cfg.Maintenance.StoragePurgeSchedule),
	)
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Scheduler != nil {
		select {
		case <-s.Scheduler.Stop().Done():
		case <-ctx.Done():
			log.Warn("maintenance jobs still running at shutdown", zap.Error(ctx.Err()))
		}
	}

	if s.Sessions != nil {
		if err := s.Sessions.Close(); err != nil {
			log.Warn("session shutdown", zap.Error(err))
		}
	}
	if s.Broker != nil {
		s.Broker.Close()
	}
	if s.Hub != nil {
		s.Hub.Close()
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
		s.DB = nil
	}
}

func storageDriver(cfg app.StorageConfig) string {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		return "database"
	}
	return driver
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseConnConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if err := database.Close(db); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
