package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, EnvDev, cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 168*time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "/media", cfg.MediaURL)
	assert.Equal(t, int64(2<<20), cfg.MaxAvatarBytes)
	assert.False(t, cfg.MailEnabled())
}

func TestLoadFromFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	content := "HTTP_ADDR=:9090\nJWT_TTL=2h\nAUTO_MIGRATE=true\nMEDIA_URL=uploads/\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))

	t.Setenv("APP_ENV", "dev")
	t.Setenv("HTTP_ADDR", ":7070")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.HTTPAddr, "environment wins over .env")
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, "/uploads", cfg.MediaURL)
}

func TestLoadRejectsDefaultSecretsInProd(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SESSION_SECRET", "")

	_, err := Load(t.TempDir())
	require.Error(t, err)
}

func TestLoadProdWithSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SESSION_SECRET", "another-s3cret")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := &Config{AppEnv: "staging", DatabaseURL: "postgres://x"}
	assert.Error(t, cfg.Validate())
}
