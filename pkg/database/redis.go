package database

import (
	"context"

	"aira-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// RDB 为 nil 时表示未配置 Redis，依赖它的功能（token 黑名单）自动停用。
var RDB *redis.Client

// InitRedis 初始化 Redis 客户端连接。addr 为空时跳过。
func InitRedis(addr, password string, db int) {
	if addr == "" {
		log.Info("Redis not configured, token blacklist disabled")
		return
	}

	RDB = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := RDB.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to redis", err)
	}

	log.Info("Redis client connected successfully")
}
