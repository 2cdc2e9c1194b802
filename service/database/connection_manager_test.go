/*
 * @module service/database/connection_manager_test
 * @description 连接管理器注册与获取路径的单元测试
 * @architecture 测试驱动开发 - 不依赖可达的数据库，覆盖短路错误路径
 * @documentReference dev_docs/repository.md
 * @stateFlow 注册配置 -> 按别名获取 -> 错误短路断言
 * @rules 未注册别名必须在执行任何SQL前短路；池化别名获取失败时返回带别名的错误
 * @dependencies testing, testify
 * @refs connection_manager.go
 */

package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAcquireUnknownAlias 测试未注册别名在执行任何SQL前短路
func TestAcquireUnknownAlias(t *testing.T) {
	manager, err := NewConnectionManager([]PoolConfig{
		{Alias: "erp", DSN: "host=127.0.0.1 port=1 dbname=erp", Standalone: true},
	})
	require.NoError(t, err)

	_, err = manager.Acquire(context.Background(), "mes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "未注册的连接池别名")
}

// TestAcquirePooledUnreachable 测试池化别名在数据库不可达时返回带别名的获取错误
func TestAcquirePooledUnreachable(t *testing.T) {
	manager, err := NewConnectionManager([]PoolConfig{
		{Alias: "erp", DSN: "host=127.0.0.1 port=1 dbname=erp sslmode=disable connect_timeout=1", MaxOpen: 1},
	})
	require.NoError(t, err)
	defer manager.Shutdown(0)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err = manager.Acquire(ctx, "erp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "erp")
}

// TestAliasesAndRelease 测试别名清单包含全部注册配置，空连接释放为无操作
func TestAliasesAndRelease(t *testing.T) {
	manager, err := NewConnectionManager([]PoolConfig{
		{Alias: "erp", DSN: "host=127.0.0.1 port=1 dbname=erp"},
		{Alias: "legacy", DSN: "host=127.0.0.1 port=1 dbname=legacy", Standalone: true},
	})
	require.NoError(t, err)
	defer manager.Shutdown(0)

	assert.ElementsMatch(t, []string{"erp", "legacy"}, manager.Aliases())

	manager.Release(nil, true)
	manager.Release(&Connection{}, false)
}
