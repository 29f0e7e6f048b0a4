package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, DriverJSON, cfg.Storage.Driver)
	assert.Equal(t, "bookings.json", cfg.Storage.File)
	assert.Equal(t, "1M", cfg.Security.BodyLimit)
	assert.Equal(t, "public", cfg.Static.Dir)
	assert.Equal(t, []string{"log"}, cfg.Notify.ChannelList())
	assert.Equal(t, 10*time.Second, cfg.Notify.Timeout)
	assert.False(t, cfg.Auth.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "8081")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("BODY_LIMIT", "10M")
	t.Setenv("NOTIFY_CHANNELS", "log, Formspree")
	t.Setenv("FORMSPREE_FORM_ID", "xyzabc")
	t.Setenv("STUDIO_TIMEZONE", "Europe/Madrid")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "10M", cfg.Security.BodyLimit)
	assert.Equal(t, []string{"log", "formspree"}, cfg.Notify.ChannelList())
	assert.Equal(t, "https://formspree.io/f/xyzabc", cfg.Notify.Formspree.URL())
	assert.Equal(t, "Europe/Madrid", cfg.Booking.Location().String())
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "mongo"}},
		{"unknown channel", map[string]string{"NOTIFY_CHANNELS": "whatsapp"}},
		{"formspree without form", map[string]string{"NOTIFY_CHANNELS": "formspree"}},
		{"auth without password", map[string]string{"AUTH_ENABLED": "true", "JWT_SECRET": "0123456789abcdef"}},
		{"auth with short secret", map[string]string{"AUTH_ENABLED": "true", "ADMIN_PASSWORD": "ink", "JWT_SECRET": "short"}},
		{"bad timezone", map[string]string{"STUDIO_TIMEZONE": "Mars/Olympus"}},
		{"unparseable body limit", map[string]string{"BODY_LIMIT": "lots"}},
		{"zero body limit", map[string]string{"BODY_LIMIT": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
