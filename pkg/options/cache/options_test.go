package cache

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledSkipsRedisValidation(t *testing.T) {
	o := NewOptions()
	o.Redis.Host = ""
	assert.Empty(t, o.Validate())
}

func TestEnabledValidatesRedis(t *testing.T) {
	o := NewOptions()
	o.Enabled = true
	o.Redis.Host = ""
	o.KeyPrefix = ""
	assert.Len(t, o.Validate(), 2)
}

func TestFlags(t *testing.T) {
	o := NewOptions()
	fs := pflag.NewFlagSet("cache", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{"--cache.enabled", "--cache.redis.host=redis.local", "--cache.redis.port=6380"}))
	assert.True(t, o.Enabled)
	assert.Equal(t, "redis.local:6380", o.Redis.Addr())
}
