package main

import (
	"testing"

	"github.com/hairizuan-noorazman/repair-desk/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotificationSender_DefaultsToMailer(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Empty(t, cfg.Notify.EndpointURL)

	mailer := notify.NewSMTPMailer(cfg.smtpConfig())
	sender, err := newNotificationSender(cfg, mailer)
	require.NoError(t, err)
	require.NotNil(t, sender)
	assert.Same(t, mailer, sender)
}

func TestNewNotificationSender_Endpoint(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("NOTIFY_ENDPOINT_URL", "http://desk.internal:8080/api/send-email")
	t.Setenv("NOTIFY_API_KEY", "desk-notify-key")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "desk-notify-key", cfg.Notify.APIKey)

	sender, err := newNotificationSender(cfg, notify.NewSMTPMailer(cfg.smtpConfig()))
	require.NoError(t, err)
	assert.IsType(t, &notify.HTTPSender{}, sender)
}
