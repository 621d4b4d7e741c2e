package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(env.Options{Environment: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "redis", cfg.StoreDriver)
	assert.Equal(t, "music-tracks", cfg.TrackCollection)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.True(t, cfg.OfflineFallback)
	assert.Equal(t, []string{"https://aster-alarm.vercel.app"}, cfg.PartnerOrigins)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr())
	assert.False(t, cfg.HistoryEnabled())
	assert.False(t, cfg.OffloadEnabled())
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse(env.Options{Environment: map[string]string{
		"STORE_DRIVER":        "memory",
		"PARTNER_ORIGINS":     "https://aster-alarm.vercel.app/, http://localhost:5173 ,",
		"STORE_WRITE_TIMEOUT": "3s",
		"DB_HOST":             "db.internal",
		"MINIO_ENDPOINT":      "minio:9000",
	}})
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, []string{"https://aster-alarm.vercel.app", "http://localhost:5173"}, cfg.PartnerOrigins)
	assert.Equal(t, 3*time.Second, cfg.WriteTimeout)
	assert.True(t, cfg.HistoryEnabled())
	assert.True(t, cfg.OffloadEnabled())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"STORE_DRIVER": "firebase"}},
		{"wildcard origin", map[string]string{"PARTNER_ORIGINS": "*"}},
		{"origin with path", map[string]string{"PARTNER_ORIGINS": "https://aster-alarm.vercel.app/app"}},
		{"origin without scheme", map[string]string{"PARTNER_ORIGINS": "aster-alarm.vercel.app"}},
		{"zero timeout", map[string]string{"STORE_WRITE_TIMEOUT": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(env.Options{Environment: tt.env})
			assert.Error(t, err)
		})
	}
}
