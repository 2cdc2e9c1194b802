/*
 * @module service/basicdata/profile_test
 * @description ProfileService与启动参数校验的单元测试
 * @architecture 测试驱动开发 - sqlite内存库验证配置读写与默认值
 * @documentReference dev_docs/transport_worker.md
 * @stateFlow 测试准备 -> 配置写入 -> 读取验证 -> 默认值验证
 * @rules 覆盖参数校验边界、配置不存在时的默认值和整体覆盖语义
 * @dependencies testing, testify, gorm, sqlite
 * @refs profile.go
 */

package basicdata

import (
	"testing"

	"esb-bridge-service/service/meta"
	"esb-bridge-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupProfileDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.JobProfile{}))
	return db
}

// TestValidateProfile 测试启动参数校验
func TestValidateProfile(t *testing.T) {
	testCases := []struct {
		name    string
		profile map[string]interface{}
		wantErr bool
	}{
		{
			name:    "空配置合法",
			profile: map[string]interface{}{},
			wantErr: false,
		},
		{
			name:    "sleepSeconds低于下限",
			profile: map[string]interface{}{"sleepSeconds": 10},
			wantErr: true,
		},
		{
			name:    "sleepSeconds等于下限",
			profile: map[string]interface{}{"sleepSeconds": 30},
			wantErr: false,
		},
		{
			name:    "transportRowLimit为零",
			profile: map[string]interface{}{"transportRowLimit": 0},
			wantErr: true,
		},
		{
			name:    "transportRowLimit超过上限",
			profile: map[string]interface{}{"transportRowLimit": 101},
			wantErr: true,
		},
		{
			name:    "启用日期区间但缺少边界",
			profile: map[string]interface{}{"enableDateRange": true, "dateFrom": "2026-01-01"},
			wantErr: true,
		},
		{
			name: "完整日期区间合法",
			profile: map[string]interface{}{
				"enableDateRange": true,
				"dateFrom":        "2026-01-01",
				"dateTo":          "2026-01-31",
			},
			wantErr: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateProfile(tc.profile)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestProfileGetDefault 测试配置不存在时返回全默认值的空配置
func TestProfileGetDefault(t *testing.T) {
	service := NewProfileService(setupProfileDB(t), "test")

	profile, err := service.Get("sales-order")
	require.NoError(t, err)

	assert.Equal(t, meta.DefaultSleepSeconds, profile.SleepSeconds())
	assert.Equal(t, meta.DefaultLookbackDays, profile.LookbackDays())
	assert.Equal(t, meta.DefaultMaxRowNumber, profile.MaxRowNumber())
	assert.Equal(t, meta.DefaultTransportRowLimit, profile.TransportRowLimit())
	assert.False(t, profile.EnableDateRange())
}

// TestProfileUpsert 测试配置写入与整体覆盖
func TestProfileUpsert(t *testing.T) {
	service := NewProfileService(setupProfileDB(t), "test")

	_, err := service.Upsert("sales-order", map[string]interface{}{
		"sleepSeconds":      60,
		"transportRowLimit": 50,
	})
	require.NoError(t, err)

	profile, err := service.Get("sales-order")
	require.NoError(t, err)
	assert.Equal(t, 60, profile.SleepSeconds())
	assert.Equal(t, 50, profile.TransportRowLimit())

	// 再次写入整体覆盖，未提供的字段回落默认值
	_, err = service.Upsert("sales-order", map[string]interface{}{"lookbackDays": 7})
	require.NoError(t, err)

	profile, err = service.Get("sales-order")
	require.NoError(t, err)
	assert.Equal(t, 7, profile.LookbackDays())
	assert.Equal(t, meta.DefaultSleepSeconds, profile.SleepSeconds())
}

// TestProfileUpsertRejectsInvalid 测试非法参数拒绝写入
func TestProfileUpsertRejectsInvalid(t *testing.T) {
	service := NewProfileService(setupProfileDB(t), "test")

	_, err := service.Upsert("sales-order", map[string]interface{}{"sleepSeconds": 5})
	assert.Error(t, err)

	profile, err := service.Get("sales-order")
	require.NoError(t, err)
	assert.Equal(t, meta.DefaultSleepSeconds, profile.SleepSeconds())
}

// TestTransportRowLimitCapped 测试越界配置读取时压回上限
func TestTransportRowLimitCapped(t *testing.T) {
	profile := &models.JobProfile{Profile: map[string]interface{}{"transportRowLimit": 500}}
	assert.Equal(t, meta.MaxTransportRowLimit, profile.TransportRowLimit())
}
