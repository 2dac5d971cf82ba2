package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "SELECTION_SECONDS", "CALL_INTERVAL", "STAKE", "DATABASE_URL", "PG_HOST", "ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 45, cfg.SelectionSeconds)
	assert.Equal(t, 5, cfg.WinnerSeconds)
	assert.Equal(t, 3*time.Second, cfg.CallInterval)
	assert.Equal(t, 5*time.Second, cfg.ExhaustionDelay)
	assert.Equal(t, 99, cfg.CardCount)
	assert.Equal(t, int64(0), cfg.Stake)
	assert.Equal(t, "", cfg.DatabaseURL)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SELECTION_SECONDS", "10")
	t.Setenv("CALL_INTERVAL", "1500")
	t.Setenv("EXHAUSTION_DELAY", "2s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PG_HOST", "db")
	t.Setenv("POSTGRES_USER", "bingo")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("PG_PORT", "")
	t.Setenv("PG_DATABASE", "hall")
	t.Setenv("STAKE", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 10, cfg.SelectionSeconds)
	assert.Equal(t, 1500*time.Millisecond, cfg.CallInterval)
	assert.Equal(t, 2*time.Second, cfg.ExhaustionDelay)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "postgres://bingo:secret@db:5432/hall", cfg.DatabaseURL)
	assert.Equal(t, int64(10), cfg.Stake)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"zero selection":   {"SELECTION_SECONDS": "0"},
		"house cut":        {"HOUSE_CUT_PERCENT": "120"},
		"stake without db": {"STAKE": "5", "DATABASE_URL": "", "PG_HOST": ""},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
