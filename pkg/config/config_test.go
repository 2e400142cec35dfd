package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 5*time.Second, cfg.CheckIn.Timeout)
	assert.False(t, cfg.CheckIn.AtomicCreditDecrement)
	assert.Equal(t, time.Second, cfg.CheckIn.FlashDuration)
	assert.Equal(t, 8, cfg.Engagement.MaxConcurrency)
	assert.Equal(t, 40, cfg.Engagement.AtRiskScore)
	assert.Equal(t, 5*time.Minute, cfg.Engagement.CacheTTL)
	assert.Empty(t, cfg.Mail.APIKey)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("CHECKIN_ATOMIC_CREDIT_DECREMENT", true)
	v.Set("CHECKIN_TIMEOUT", "bogus")
	v.Set("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	v.Set("ENGAGEMENT_CACHE_TTL", "90s")

	cfg := fromViper(v)

	assert.True(t, cfg.CheckIn.AtomicCreditDecrement)
	assert.Equal(t, 5*time.Second, cfg.CheckIn.Timeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 90*time.Second, cfg.Engagement.CacheTTL)
}
