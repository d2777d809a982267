package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ADMIN_EMAILS", "")
	t.Setenv("OTP_TTL", "")

	cfg := Load()

	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 10*time.Second, cfg.MailSendTimeout)
	assert.Empty(t, cfg.AdminEmails)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.TrustProxy)
}

func TestLoad_AdminEmailsAreSplitAndTrimmed(t *testing.T) {
	t.Setenv("ADMIN_EMAILS", " admin@nitj.ac.in, ,Mod@NITJ.ac.in ")

	cfg := Load()

	assert.Equal(t, []string{"admin@nitj.ac.in", "Mod@NITJ.ac.in"}, cfg.AdminEmails)
}

func TestLoad_BadDurationFallsBack(t *testing.T) {
	t.Setenv("MAIL_SEND_TIMEOUT", "soon")
	t.Setenv("JWT_EXPIRY", "2h")

	cfg := Load()

	assert.Equal(t, 10*time.Second, cfg.MailSendTimeout)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
}

func TestLoad_FrontendURLTrailingSlashTrimmed(t *testing.T) {
	t.Setenv("FRONTEND_URL", "https://swapkr.example/")

	assert.Equal(t, "https://swapkr.example", Load().FrontendURL)
}

func TestLoad_TrustProxy(t *testing.T) {
	t.Setenv("TRUST_PROXY", "true")

	assert.True(t, Load().TrustProxy)
}
