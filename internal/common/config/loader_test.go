// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
database:
  postgres:
    host: localhost
    database: marketplace
    user: marketplace
  redis:
    address: localhost:6379
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "gig-marketplace", cfg.App.Name)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, ":8080", cfg.HTTP.Addr())
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "postgres", cfg.Search.Backend)
	assert.False(t, cfg.Search.UsesElasticsearch())
	assert.Equal(t, 20, cfg.Search.DefaultPageSize)
	assert.Equal(t, 100, cfg.Search.MaxPageSize)
	assert.Equal(t, "session:", cfg.Auth.SessionPrefix)
	assert.Equal(t, "session_token", cfg.Auth.CookieName)
	assert.Equal(t, 24*time.Hour, GetDuration(cfg.Auth.SessionTTL))
	assert.Equal(t, "jobs", cfg.Database.Elasticsearch.JobsIndex)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_PG_PASSWORD", "s3cret")
	cfg, err := LoadFromFile(writeConfig(t, `
database:
  postgres:
    host: localhost
    database: marketplace
    user: marketplace
    password: ${TEST_PG_PASSWORD}
  redis:
    address: localhost:6379
`))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing postgres host",
			body:    "database:\n  redis:\n    address: x\n",
			wantErr: "database.postgres.host is required",
		},
		{
			name:    "elasticsearch backend without addresses",
			body:    minimalConfig + "search:\n  backend: elasticsearch\n",
			wantErr: "database.elasticsearch.addresses is required",
		},
		{
			name:    "unknown backend",
			body:    minimalConfig + "search:\n  backend: solr\n",
			wantErr: "search.backend must be postgres or elasticsearch",
		},
		{
			name:    "camunda enabled without broker",
			body:    minimalConfig + "camunda:\n  enabled: true\n",
			wantErr: "camunda.broker_address is required",
		},
		{
			name:    "email without sender",
			body:    minimalConfig + "notifications:\n  email:\n    enabled: true\n",
			wantErr: "notifications.email.from_email is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"send-marketplace-notification": {Enabled: false, MaxJobsActive: 2},
	}}

	w := GetWorkerConfig(cfg, "send-marketplace-notification")
	assert.Equal(t, 2, w.MaxJobsActive)
	assert.False(t, IsWorkerEnabled(cfg, "send-marketplace-notification"))

	def := GetWorkerConfig(cfg, "unknown")
	assert.True(t, def.Enabled)
	assert.Equal(t, 3, def.MaxRetries)
	assert.True(t, IsWorkerEnabled(cfg, "unknown"))
}

func TestLoadFromFile_RateLimitBurstDefaultsToTwiceRate(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
http:
  rate_limit_rps: 5
  allowed_origins: ["https://app.example.com"]
`))
	require.NoError(t, err)

	assert.Equal(t, 5.0, cfg.HTTP.RateLimitRPS)
	assert.Equal(t, 10, cfg.HTTP.RateLimitBurst)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.HTTP.AllowedOrigins)
}
