package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAdminEmails(t *testing.T) {
	require.Equal(t,
		[]string{"a@x.in", "b@y.in"},
		ParseAdminEmails(" A@x.in , b@Y.in "))

	require.Empty(t, ParseAdminEmails(""))
	require.Empty(t, ParseAdminEmails(" , ,"))
}

func TestLoad(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/sargam_test?sslmode=disable")
	t.Setenv("JWT_SECRET_KEY", "test-secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ADMIN_EMAILS", "organizer@aaroha.in")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,https://aaroha.in")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.ServerPort)
	require.Equal(t, []string{"organizer@aaroha.in"}, cfg.AdminEmails)
	require.Equal(t, []string{"http://localhost:3000", "https://aaroha.in"}, cfg.CORSAllowedOrigins)
	require.False(t, cfg.R2Configured())
	require.False(t, cfg.SMTPConfigured())

	t.Run("missing database url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("bad port", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "99999")
		_, err := Load()
		require.Error(t, err)
	})
}
