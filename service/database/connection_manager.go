/*
 * @module service/database/connection_manager
 * @description 连接管理器，维护按别名注册的数据库连接池，提供获取/归还/丢弃的连接生命周期管理
 * @architecture 对象池模式 - 显式的连接管理器实例由应用根持有并注入各仓储
 * @documentReference dev_docs/repository.md
 * @stateFlow 注册配置 -> 获取连接 -> 执行语句 -> 归还或丢弃 -> 进程退出时带宽限期关闭
 * @rules 执行出错的连接不归还池，标记丢弃；未注册别名在执行任何SQL前短路返回错误
 * @dependencies database/sql, github.com/lib/pq
 * @refs service/repository
 */

package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

// PoolConfig 单个连接池的注册配置
type PoolConfig struct {
	Alias       string
	DriverName  string // 缺省postgres
	DSN         string
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	Standalone  bool // 非池化注册，每次获取建立独立连接
}

// Connection 一次获取到的连接，持有者用完必须Release
type Connection struct {
	Conn       *sql.Conn
	alias      string
	standalone *sql.DB // 非池化连接独占的DB句柄，释放时整体关闭
}

// Alias 返回连接所属的池别名
func (c *Connection) Alias() string {
	return c.alias
}

// ConnectionManager 连接管理器
type ConnectionManager struct {
	mu      sync.RWMutex
	pools   map[string]*sql.DB
	configs map[string]PoolConfig
}

// NewConnectionManager 创建连接管理器并注册全部池配置
func NewConnectionManager(configs []PoolConfig) (*ConnectionManager, error) {
	m := &ConnectionManager{
		pools:   make(map[string]*sql.DB),
		configs: make(map[string]PoolConfig),
	}

	for _, cfg := range configs {
		if cfg.DriverName == "" {
			cfg.DriverName = "postgres"
		}
		m.configs[cfg.Alias] = cfg

		if cfg.Standalone {
			continue
		}

		db, err := sql.Open(cfg.DriverName, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("连接池 %s 创建失败: %w", cfg.Alias, err)
		}
		if cfg.MaxOpen > 0 {
			db.SetMaxOpenConns(cfg.MaxOpen)
		}
		if cfg.MaxIdle > 0 {
			db.SetMaxIdleConns(cfg.MaxIdle)
		}
		if cfg.MaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.MaxLifetime)
		}
		m.pools[cfg.Alias] = db

		slog.Info("连接池注册成功", "alias", cfg.Alias, "max_open", cfg.MaxOpen)
	}

	return m, nil
}

// Acquire 按别名获取一个连接
// 别名未注册或池耗尽时返回错误，调用方在执行任何SQL前即可短路
func (m *ConnectionManager) Acquire(ctx context.Context, alias string) (*Connection, error) {
	m.mu.RLock()
	pool, pooled := m.pools[alias]
	cfg, registered := m.configs[alias]
	m.mu.RUnlock()

	if !registered {
		return nil, fmt.Errorf("未注册的连接池别名: %s", alias)
	}

	// 非池化注册：建立独立连接，释放时整体关闭
	if cfg.Standalone {
		db, err := sql.Open(cfg.DriverName, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("独立连接 %s 建立失败: %w", alias, err)
		}
		db.SetMaxOpenConns(1)
		conn, err := db.Conn(ctx)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("独立连接 %s 建立失败: %w", alias, err)
		}
		return &Connection{Conn: conn, alias: alias, standalone: db}, nil
	}

	if !pooled {
		return nil, fmt.Errorf("连接池 %s 未初始化", alias)
	}
	conn, err := pool.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("从连接池 %s 获取连接失败: %w", alias, err)
	}
	return &Connection{Conn: conn, alias: alias}, nil
}

// Release 释放连接
// drop为true时连接不回池：会话状态可疑，标记为坏连接由驱动丢弃
func (m *ConnectionManager) Release(conn *Connection, drop bool) {
	if conn == nil || conn.Conn == nil {
		return
	}

	if drop {
		// Raw回调返回ErrBadConn，连接池据此丢弃该物理连接
		_ = conn.Conn.Raw(func(driverConn interface{}) error {
			return driver.ErrBadConn
		})
		slog.Warn("连接已标记丢弃", "alias", conn.alias)
	}

	if err := conn.Conn.Close(); err != nil && err != driver.ErrBadConn {
		slog.Error("连接释放失败", "alias", conn.alias, "error", err)
	}

	if conn.standalone != nil {
		conn.standalone.Close()
	}
}

// Ping 检查指定别名的池连通性
func (m *ConnectionManager) Ping(ctx context.Context, alias string) error {
	m.mu.RLock()
	pool, ok := m.pools[alias]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("未注册的连接池别名: %s", alias)
	}
	return pool.PingContext(ctx)
}

// Aliases 返回全部注册的池别名
func (m *ConnectionManager) Aliases() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	aliases := make([]string, 0, len(m.configs))
	for alias := range m.configs {
		aliases = append(aliases, alias)
	}
	return aliases
}

// Shutdown 关闭全部连接池，等待在途语句的宽限期
func (m *ConnectionManager) Shutdown(gracePeriod time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gracePeriod > 0 {
		time.Sleep(gracePeriod)
	}

	for alias, pool := range m.pools {
		if err := pool.Close(); err != nil {
			slog.Error("连接池关闭失败", "alias", alias, "error", err)
		} else {
			slog.Info("连接池已关闭", "alias", alias)
		}
	}
	m.pools = make(map[string]*sql.DB)
}
