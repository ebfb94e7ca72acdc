// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package docstore

import "github.com/redis/go-redis/v9"

// NewRedisNotifierForClient wraps client without subscribing.
func NewRedisNotifierForClient(client *redis.Client, channel string) *RedisNotifier {
	return newRedisNotifier(client, nil, channel, nil)
}
