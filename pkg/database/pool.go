package database

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DatabasePool 数据库连接池
type DatabasePool struct {
	instance DatabaseInterface
	config   DatabaseConfig
	mu       sync.RWMutex
	lastUsed time.Time
}

var (
	globalPool *DatabasePool
	poolMutex  sync.Mutex
)

// GetDatabase returns the process-wide database, recreating it when the config
// changes or the current instance fails its health check.
func GetDatabase(config DatabaseConfig, log *zap.SugaredLogger) DatabaseInterface {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil || shouldRecreateConnection(globalPool, config, log) {
		if globalPool != nil && globalPool.instance != nil {
			_ = globalPool.instance.Close()
		}
		globalPool = &DatabasePool{
			instance: NewDatabase(config, log),
			config:   config,
			lastUsed: time.Now(),
		}
		return globalPool.instance
	}

	globalPool.mu.Lock()
	globalPool.lastUsed = time.Now()
	globalPool.mu.Unlock()
	return globalPool.instance
}

// shouldRecreateConnection 判断是否需要重新创建连接
// The in-memory fallback is never recreated since that would drop its data.
func shouldRecreateConnection(pool *DatabasePool, newConfig DatabaseConfig, log *zap.SugaredLogger) bool {
	if pool == nil || pool.instance == nil {
		return true
	}
	if pool.config.PostgresDSN != newConfig.PostgresDSN {
		log.Infow("database configuration changed, recreating connection")
		return true
	}
	if _, ok := pool.instance.(*MemoryDatabase); ok {
		return false
	}
	if err := pool.instance.HealthCheck(); err != nil {
		log.Warnw("database health check failed, recreating", "error", err)
		return true
	}
	return false
}

// ResetDatabase closes and forgets the process-wide database.
func ResetDatabase() {
	poolMutex.Lock()
	defer poolMutex.Unlock()
	if globalPool != nil && globalPool.instance != nil {
		_ = globalPool.instance.Close()
	}
	globalPool = nil
}

// GetConnectionStats 获取连接池统计信息
func GetConnectionStats() map[string]interface{} {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil {
		return map[string]interface{}{
			"status":    "no_connection",
			"last_used": nil,
		}
	}

	globalPool.mu.RLock()
	lastUsed := globalPool.lastUsed
	globalPool.mu.RUnlock()

	kind := "memory"
	if _, ok := globalPool.instance.(*PostgresDatabase); ok {
		kind = "postgres"
	}
	return map[string]interface{}{
		"status":    "connected",
		"type":      kind,
		"last_used": lastUsed.Format(time.RFC3339),
		"age":       time.Since(lastUsed).String(),
	}
}
