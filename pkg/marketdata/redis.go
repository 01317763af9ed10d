// Package marketdata fans the engine's event stream out to read-side
// consumers: a Redis cache for ticker, depth and recent trades, and a Kafka
// topic for downstream subscribers.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/joripage/tokenex/pkg/engine/model"
)

const recentTradesCap = 100

// RedisCache mirrors the latest market data into Redis so API reads never
// touch the matching path.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func tickerKey(pair string) string { return fmt.Sprintf("marketdata:ticker:%s", pair) }
func bookKey(pair string) string   { return fmt.Sprintf("marketdata:book:%s", pair) }
func tradesKey(pair string) string { return fmt.Sprintf("marketdata:trades:%s", pair) }

func (c *RedisCache) Publish(ctx context.Context, ev *model.Event) error {
	if ev.Ticker != nil {
		b, err := json.Marshal(ev.Ticker)
		if err != nil {
			return err
		}
		if err := c.client.Set(ctx, tickerKey(ev.Pair), b, 0).Err(); err != nil {
			return err
		}
	}

	switch ev.Type {
	case model.EventOrderBookChanged:
		if ev.Book == nil {
			return nil
		}
		b, err := json.Marshal(ev.Book)
		if err != nil {
			return err
		}
		return c.client.Set(ctx, bookKey(ev.Pair), b, 0).Err()

	case model.EventTradeExecuted:
		if ev.Trade == nil {
			return nil
		}
		b, err := json.Marshal(ev.Trade)
		if err != nil {
			return err
		}
		pipe := c.client.Pipeline()
		pipe.LPush(ctx, tradesKey(ev.Pair), b)
		pipe.LTrim(ctx, tradesKey(ev.Pair), 0, recentTradesCap-1)
		_, err = pipe.Exec(ctx)
		return err
	}
	return nil
}

// Ticker reads the cached ticker for a pair.
func (c *RedisCache) Ticker(ctx context.Context, pair string) (*model.Ticker, error) {
	b, err := c.client.Get(ctx, tickerKey(pair)).Bytes()
	if err != nil {
		return nil, err
	}
	var t model.Ticker
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Book reads the cached depth snapshot for a pair.
func (c *RedisCache) Book(ctx context.Context, pair string) (*model.BookSnapshot, error) {
	b, err := c.client.Get(ctx, bookKey(pair)).Bytes()
	if err != nil {
		return nil, err
	}
	var snap model.BookSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// RecentTrades reads the cached trade list, newest first.
func (c *RedisCache) RecentTrades(ctx context.Context, pair string, limit int) ([]*model.Trade, error) {
	if limit <= 0 || limit > recentTradesCap {
		limit = recentTradesCap
	}
	vals, err := c.client.LRange(ctx, tradesKey(pair), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*model.Trade, 0, len(vals))
	for _, v := range vals {
		var t model.Trade
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, nil
}
