package app

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/smokefree/internal/cache"
	"github.com/charlesng35/smokefree/internal/database"
)

// DatabaseConnConfig converts the application database section into database.Config.
func (c DatabaseConfig) DatabaseConnConfig() database.Config {
	cfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:   strings.TrimSpace(c.Path),
		DSN:    strings.TrimSpace(c.DSN),
	}

	var auth DBAuthConfig
	switch cfg.Driver {
	case "", "sqlite":
		cfg.Driver = "sqlite"
		return cfg
	case "postgres", "postgresql":
		cfg.Driver = "postgres"
		auth = c.Postgres
	case "mysql":
		auth = c.MySQL
	default:
		// Unsupported drivers surface from database.Open.
		return cfg
	}

	cfg.Host = strings.TrimSpace(auth.Host)
	cfg.Port = auth.Port
	cfg.Name = strings.TrimSpace(auth.Database)
	cfg.User = strings.TrimSpace(auth.Username)
	cfg.Password = auth.Password
	return cfg
}

// NewStore builds the notification storage backend selected by storage.driver.
func (c StorageConfig) NewStore(db *gorm.DB) (cache.Store, error) {
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case "", "database":
		if db == nil {
			return nil, fmt.Errorf("storage: database driver requires a database handle")
		}
		return cache.NewDatabaseStore(db), nil
	case "memory":
		return cache.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", c.Driver)
	}
}
