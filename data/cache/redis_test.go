package cache

import (
	"context"
	"testing"
	"time"

	"github.com/KotFed0t/finplan/internal/model/moexModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, time.Minute), mr
}

func TestQuoteRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	err := c.SetQuotes(ctx, []moexModel.Quote{{Symbol: "SBER", Price: decimal.RequireFromString("301.25"), Active: true}})
	require.NoError(t, err)

	q, err := c.GetQuote(ctx, "SBER")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("301.25").Equal(q.Price))
}

func TestQuoteExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetQuotes(ctx, []moexModel.Quote{{Symbol: "GAZP", Price: decimal.NewFromInt(1)}}))
	mr.FastForward(2 * time.Minute)

	_, err := c.GetQuote(ctx, "GAZP")
	assert.ErrorIs(t, err, ErrMiss)
}
