package telemetry

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMonitorRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	r := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	t.Cleanup(func() { _ = r.Close() })

	require.NoError(t, MonitorRedis(r))

	ctx := context.Background()
	require.NoError(t, r.Set(ctx, "k", "v", 0).Err())
	got, err := r.Get(ctx, "k").Result()
	require.NoError(t, err)
	require.Equal(t, "v", got)

	_, err = r.Get(ctx, "missing").Result()
	require.ErrorIs(t, err, redis.Nil)
}
