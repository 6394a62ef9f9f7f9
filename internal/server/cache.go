package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v9"
	"promobar/internal/model"
)

// The public active-bars response is cached briefly per (shop, limit,
// country). Schedule and targeting state move slowly, so a stale window of
// CacheTTL is acceptable; keys are shop-scoped and never shared across shops.

func activeBarsCacheKey(shop string, limit int, country string) string {
	return fmt.Sprintf("active-bars:%s:%d:%s", shop, limit, country)
}

func (s Server) activeBarsCacheGet(ctx context.Context, key string) ([]model.Bar, bool) {
	if s.Redis == nil {
		return nil, false
	}
	cached, err := s.Redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.Logger.Errorf("activeBarsCacheGet: Error getting Redis cache with key: %s, err: %v", key, err)
		}
		return nil, false
	}
	var bars []model.Bar
	if err = json.Unmarshal([]byte(cached), &bars); err != nil {
		s.Logger.Errorf("activeBarsCacheGet: Error unmarshalling cache with key: %s, err: %v", key, err)
		return nil, false
	}
	s.Logger.Debugf("activeBarsCacheGet: Cache found, key: %s", key)
	return bars, true
}

func (s Server) activeBarsCacheSet(ctx context.Context, key string, bars []model.Bar) {
	if s.Redis == nil {
		return
	}
	encoded, err := json.Marshal(bars)
	if err != nil {
		s.Logger.Errorf("activeBarsCacheSet: Error marshalling bars for key: %s, err: %v", key, err)
		return
	}
	if err = s.Redis.Set(ctx, key, encoded, s.CacheTTL).Err(); err != nil {
		s.Logger.Errorf("activeBarsCacheSet: Error setting Redis cache with key: %s, err: %v", key, err)
	}
}
