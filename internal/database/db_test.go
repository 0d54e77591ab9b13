package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/smokefree/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Exec("SELECT 1").Error)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.ErrorContains(t, err, `unsupported database driver "oracle"`)
}

func TestAutoMigrateCreatesTables(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrateAndSeed(db))

	for _, model := range []any{&models.StorageEntry{}, &models.DeviceToken{}, &models.QuitProfile{}} {
		require.True(t, db.Migrator().HasTable(model), "missing table for %T", model)
	}

	entry := models.StorageEntry{Key: "notifications_u1", Value: datatypes.JSON(`[]`), ExpiresAt: time.Time{}}
	require.NoError(t, db.Create(&entry).Error)
}

func TestAutoMigrateRejectsNilHandle(t *testing.T) {
	require.Error(t, AutoMigrateAndSeed(nil))
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite", DSN: "file:" + t.Name() + "?mode=memory&cache=shared"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	return db
}
