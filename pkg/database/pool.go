package database

import (
	"fmt"
	"sync"
	"time"
)

// DatabasePool keeps a shared connection alive across handler invocations.
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

// GetDatabase returns the shared database instance, recreating it when the
// configuration changed or the connection went stale.
func GetDatabase(config DatabaseConfig) DatabaseInterface {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil || shouldRecreateConnection(globalPool, config) {
		fmt.Printf("🔄 Creating new database connection pool\n")

		if globalPool != nil && globalPool.instance != nil {
			globalPool.instance.Close()
		}

		instance := NewDatabase(config)
		globalPool = &DatabasePool{
			instance: instance,
			config:   config,
			lastUsed: time.Now(),
		}
	} else {
		globalPool.mu.Lock()
		globalPool.lastUsed = time.Now()
		globalPool.mu.Unlock()

		fmt.Printf("♻️  Reusing existing database connection\n")
	}

	return globalPool.instance
}

func shouldRecreateConnection(pool *DatabasePool, newConfig DatabaseConfig) bool {
	if pool == nil || pool.instance == nil {
		return true
	}

	if !configEquals(pool.config, newConfig) {
		fmt.Printf("🔄 Database configuration changed, recreating connection\n")
		return true
	}

	// Connections idle past 30 minutes get a fresh handshake
	pool.mu.RLock()
	expired := time.Since(pool.lastUsed) > 30*time.Minute
	pool.mu.RUnlock()

	if expired {
		fmt.Printf("⏰ Database connection expired, recreating\n")
		return true
	}

	if err := pool.instance.HealthCheck(); err != nil {
		fmt.Printf("❌ Database health check failed, recreating: %v\n", err)
		return true
	}

	return false
}

func configEquals(a, b DatabaseConfig) bool {
	return a.UseLocalDB == b.UseLocalDB &&
		a.PostgresDSN == b.PostgresDSN
}

// CleanupIdleConnections closes the shared connection after prolonged idleness.
func CleanupIdleConnections() {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil {
		return
	}

	globalPool.mu.RLock()
	idle := time.Since(globalPool.lastUsed) > 10*time.Minute
	globalPool.mu.RUnlock()

	if idle {
		fmt.Printf("🧹 Cleaning up idle database connection\n")
		if globalPool.instance != nil {
			globalPool.instance.Close()
		}
		globalPool = nil
	}
}

// GetConnectionStats reports pool state for the debug endpoint.
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

	return map[string]interface{}{
		"status":    "connected",
		"last_used": lastUsed.Format(time.RFC3339),
		"age":       time.Since(lastUsed).String(),
		"config": map[string]interface{}{
			"use_local_db": globalPool.config.UseLocalDB,
			"has_postgres": globalPool.config.PostgresDSN != "",
		},
	}
}
