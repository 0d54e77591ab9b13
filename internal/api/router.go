package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/smokefree/internal/app"
	"github.com/charlesng35/smokefree/internal/handlers"
	"github.com/charlesng35/smokefree/internal/middleware"
	"github.com/charlesng35/smokefree/internal/monitoring"
	"github.com/charlesng35/smokefree/internal/monitoring/checks"
	"github.com/charlesng35/smokefree/internal/realtime"
	"github.com/charlesng35/smokefree/internal/session"
)

// Dependencies groups everything the router wires into handlers.
type Dependencies struct {
	DB         *gorm.DB
	Config     *app.Config
	Tokens     middleware.TokenValidator
	Sessions   *session.Manager
	Hub        *realtime.Hub
	Broker     handlers.Deliverer
	Background handlers.Clicker
	Registrar  handlers.TokenStore
	Profiles   handlers.ProfileStore
	Health     *monitoring.HealthManager
}

func (d Dependencies) validate() error {
	switch {
	case d.Config == nil:
		return fmt.Errorf("config must be provided")
	case d.Tokens == nil:
		return fmt.Errorf("token validator must be provided")
	case d.Sessions == nil:
		return fmt.Errorf("session manager must be provided")
	case d.Registrar == nil:
		return fmt.Errorf("token registrar must be provided")
	case d.Profiles == nil:
		return fmt.Errorf("profile store must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins...))

	// Public
	health := deps.Health
	if health == nil {
		health = monitoring.NewHealthManager()
		health.RegisterReadiness(checks.Database(deps.DB, 0))
	}
	registerHealthRoutes(r, handlers.NewHealthHandler(health))
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.Tokens))

	registerSessionRoutes(api, handlers.NewSessionHandler(deps.Sessions))
	registerNotificationRoutes(api, handlers.NewNotificationHandler(deps.Sessions, deps.Hub))

	pushHandler := handlers.NewPushHandler(deps.Sessions, deps.Registrar, deps.Broker, deps.Background, handlers.PushConfig{
		Enabled:  cfg.Push.Enabled,
		VAPIDKey: cfg.Push.VAPIDPublicKey,
	})
	limiter := middleware.NewRateLimiter(cfg.Push.RateLimitPerMinute, time.Minute)
	registerPushRoutes(api, pushHandler, limiter)

	registerProfileRoutes(api, handlers.NewProfileHandler(deps.Profiles, deps.Sessions, cfg.Notifications.Location()))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
