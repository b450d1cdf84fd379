package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	release := Default()
	release.Server.Mode = "release"
	release.JWT.Secret = "short"
	assert.Error(t, release.Validate())
	release.JWT.Secret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, release.Validate())

	bad := Default()
	bad.Quiz.PassingScore = 120
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.Quiz.WatchRatio = 1.5
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.Database.Driver = "postgres"
	assert.Error(t, bad.Validate())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	uploads := filepath.Join(dir, "media")
	yaml := `
server:
  port: "9090"
  mode: debug
database:
  driver: sqlite
  sqlite_path: test.db
jwt:
  secret: test
  expire_hours: 2
storage:
  type: local
  local_path: ` + uploads + `
quiz:
  passing_score: 70
  retake_cooldown_hours: 12
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, float64(70), cfg.Quiz.PassingScore)
	assert.Equal(t, 12*time.Hour, cfg.Quiz.RetakeCooldown())
	// 未配置的项使用默认值
	assert.Equal(t, 0.9, cfg.Quiz.WatchRatio)
	assert.Equal(t, "0 3 * * *", cfg.Scheduler.ProgressSyncSpec)
	assert.DirExists(t, uploads)
}
