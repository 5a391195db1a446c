package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	options "github.com/kart-io/mida-chat/pkg/options/redis"
)

func TestNewNilOptions(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)
}

func TestNewInvalidOptions(t *testing.T) {
	opts := options.NewOptions()
	opts.Host = ""
	_, err := New(context.Background(), opts)
	assert.ErrorContains(t, err, "invalid redis options")
}

func TestNewUnreachable(t *testing.T) {
	opts := options.NewOptions()
	opts.Port = 1
	opts.DialTimeout = 200 * time.Millisecond
	opts.MaxRetries = 0

	_, err := New(context.Background(), opts)
	assert.ErrorContains(t, err, "failed to ping redis")
}

func TestClient(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := New(ctx, options.NewOptions())
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer func() { _ = c.Close() }()

	assert.Equal(t, "redis", c.Name())
	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.Client().Set(ctx, "mida-chat:test", "ok", time.Second).Err())
	val, err := c.Client().Get(ctx, "mida-chat:test").Result()
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
}
