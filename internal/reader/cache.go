// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reader

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/tosho/internal/epub"
	"github.com/taibuivan/tosho/internal/platform/constants"
)

// ContentCache stores rendered book content keyed by filename. A miss
// returns (nil, nil); cache failures are the caller's to degrade on.
type ContentCache interface {
	Get(context context.Context, filename string) (*epub.Content, error)
	Set(context context.Context, filename string, content *epub.Content) error
	Invalidate(context context.Context, filename string) error
}

// RedisCache keeps rendered content in Redis for an hour. Rendering a
// large book means decoding and base64-inlining every image, so the
// cache is what keeps repeat opens cheap.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

func cacheKey(filename string) string {
	return constants.RedisPrefixReaderContent + filename
}

func (cache *RedisCache) Get(context context.Context, filename string) (*epub.Content, error) {
	payload, err := cache.client.Get(context, cacheKey(filename)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	content := &epub.Content{}
	if err := json.Unmarshal(payload, content); err != nil {
		// A corrupt entry behaves like a miss and gets dropped.
		cache.logger.Warn("dropping corrupt cached content", "book", filename, "error", err)
		_ = cache.client.Del(context, cacheKey(filename)).Err()
		return nil, nil
	}
	return content, nil
}

func (cache *RedisCache) Set(context context.Context, filename string, content *epub.Content) error {
	payload, err := json.Marshal(content)
	if err != nil {
		return err
	}
	return cache.client.Set(context, cacheKey(filename), payload, constants.ReaderContentTTL).Err()
}

func (cache *RedisCache) Invalidate(context context.Context, filename string) error {
	return cache.client.Del(context, cacheKey(filename)).Err()
}
