package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadCrowd_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "MIGRATIONS_DIR", "MAX_REPORTS_PER_HOUR", "MIN_VOTES_VERIFIED",
		"VERIFIED_RATE_THRESHOLD", "STALE_RATE_THRESHOLD", "STALE_DAYS",
		"MAX_STRATEGIES_RESPONSE", "MIN_PROVIDER_STRATEGIES", "FALLBACK_SUCCESS_RATE",
		"SWEEP_INTERVAL", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadCrowd()

	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "migrations", cfg.MigrationsDir)
	require.Equal(t, 10, cfg.MaxReportsPerHour)
	require.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 24*time.Hour, cfg.SweepInterval)
	require.NoError(t, cfg.Validate())

	th := cfg.Thresholds()
	require.Equal(t, 5, th.MinVotes)
	require.Equal(t, 0.60, th.VerifiedRate)
	require.Equal(t, 0.40, th.StaleRate)
	require.Equal(t, 7*24*time.Hour, th.StaleAge)

	rk := cfg.Ranking()
	require.Equal(t, 5, rk.Limit)
	require.Equal(t, 3, rk.MinLocal)
	require.Equal(t, 0.70, rk.FallbackRate)
}

func TestLoadCrowd_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STALE_DAYS", "14")
	t.Setenv("VERIFIED_RATE_THRESHOLD", "0.75")
	t.Setenv("MAX_REPORTS_PER_HOUR", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := LoadCrowd()

	require.Equal(t, ":9090", cfg.Addr())
	require.Equal(t, 14*24*time.Hour, cfg.Thresholds().StaleAge)
	require.Equal(t, 0.75, cfg.VerifiedRate)
	require.Equal(t, 10, cfg.MaxReportsPerHour, "unparsable values fall back")
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestCrowdValidate(t *testing.T) {
	t.Setenv("MAX_REPORTS_PER_HOUR", "")
	t.Setenv("STALE_RATE_THRESHOLD", "")
	t.Setenv("VERIFIED_RATE_THRESHOLD", "")
	t.Setenv("MIN_PROVIDER_STRATEGIES", "")
	t.Setenv("FALLBACK_SUCCESS_RATE", "")

	tests := []struct {
		name   string
		mutate func(*Crowd)
	}{
		{"zero ceiling", func(c *Crowd) { c.MaxReportsPerHour = 0 }},
		{"zero votes", func(c *Crowd) { c.MinVotesVerified = 0 }},
		{"stale above verified", func(c *Crowd) { c.StaleRate = 0.7 }},
		{"verified above one", func(c *Crowd) { c.VerifiedRate = 1.5 }},
		{"zero stale days", func(c *Crowd) { c.StaleDays = 0 }},
		{"zero limit", func(c *Crowd) { c.MaxStrategies = 0 }},
		{"negative min local", func(c *Crowd) { c.MinProviderStrategies = -1 }},
		{"fallback rate below zero", func(c *Crowd) { c.FallbackRate = -0.1 }},
		{"fallback rate above one", func(c *Crowd) { c.FallbackRate = 1.2 }},
		{"zero interval", func(c *Crowd) { c.SweepInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadCrowd()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadSweepCtl(t *testing.T) {
	t.Setenv("CROWD_BASE_URL", "https://crowd.example/")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("UPSTREAM_TIMEOUT", "")

	cfg := LoadSweepCtl()
	require.Equal(t, "https://crowd.example", cfg.BaseURL)
	require.Equal(t, 5, cfg.MaxRetries)
	require.Equal(t, 5*time.Minute, cfg.UpstreamTimeout)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel(""))
}
