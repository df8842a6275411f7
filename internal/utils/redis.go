package utils

import (
	"github.com/redis/go-redis/v9"

	"sampsim/internal/logger"
)

// OpenRedisFromEnv：从 REDIS_* 打开客户端；REDIS_ENABLED=false 时返回 nil
// 约束：REDIS_DB 为负数或解析失败时回退到 0
func OpenRedisFromEnv() *redis.Client {
	if !EnvBool("REDIS_ENABLED", true) {
		logger.L().Info("redis_disabled")
		return nil
	}
	addr := EnvString("REDIS_HOST", "127.0.0.1") + ":" + EnvString("REDIS_PORT", "6379")
	db := EnvInt("REDIS_DB", 0)
	if db < 0 {
		db = 0
	}
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: EnvString("REDIS_PASS", ""), DB: db})
}
