package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "./data/meal.db", cfg.Database.Path)
	assert.Equal(t, 30, cfg.Backups.MaxFiles)
	assert.True(t, cfg.Backups.OnStartup)
	assert.Equal(t, 12*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DB_DRIVER", "POSTGRES")
	t.Setenv("BACKUP_MAX_FILES", "5")
	t.Setenv("ALLOWED_ORIGINS", "http://kiosk.local, http://admin.local ,")
	t.Setenv("CHECKIN_CACHE_TTL", "bogus")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Backups.MaxFiles)
	assert.Equal(t, []string{"http://kiosk.local", "http://admin.local"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.Cache.CheckInTTL)
}

func TestLocationFallsBackToLocal(t *testing.T) {
	cfg := &Config{Timezone: "Not/AZone"}
	assert.Equal(t, time.Local, cfg.Location())

	cfg.Timezone = "UTC"
	assert.Equal(t, "UTC", cfg.Location().String())
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
