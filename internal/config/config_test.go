package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
server:
  port: 8080
store:
  type: "memory"
auth:
  mode: "local"
  jwt_secret: "0123456789abcdef0123456789abcdef"
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, int64(3), cfg.Billing.RatePerMinute)
	assert.Equal(t, "bob", cfg.Billing.Currency)
	assert.Equal(t, 60, cfg.Rental.TickSeconds)
	assert.Equal(t, 20, cfg.Rental.PauseTimeoutMinutes)
	assert.Equal(t, "http://localhost:3000", cfg.QR.BaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "0 * * * * *", cfg.Scheduler.ReconcileSessions)
	assert.Equal(t, ":8080", cfg.GetServerAddress())
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"bad port", "server:\n  port: -1\n"},
		{"short jwt secret", "server:\n  port: 8080\nstore:\n  type: memory\nauth:\n  jwt_secret: short\n"},
		{"missing firestore project", "server:\n  port: 8080\nstore:\n  type: firestore\nauth:\n  jwt_secret: 0123456789abcdef0123456789abcdef\n"},
		{"unknown store", "server:\n  port: 8080\nstore:\n  type: cassandra\nauth:\n  jwt_secret: 0123456789abcdef0123456789abcdef\n"},
		{"unknown auth mode", "server:\n  port: 8080\nstore:\n  type: memory\nauth:\n  mode: saml\n  jwt_secret: 0123456789abcdef0123456789abcdef\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BILLING_RATE_PER_MINUTE", "7")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.Billing.RatePerMinute)
	assert.Equal(t, "error", cfg.Log.Level)
}
