/*
 * @module service/models/job_profile
 * @description ETL任务配置模型，按环境和接口名持久化更新扫描与传输的运行参数
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/transport_worker.md
 * @stateFlow 管理启动写入 -> 工作者读取 -> 缺省字段按默认值补齐
 * @rules 每个(环境, 接口名)一行；字段缺失时按meta包默认值补齐
 * @dependencies gorm.io/gorm, github.com/google/uuid, github.com/spf13/cast
 * @refs service/basicdata, service/meta
 */

package models

import (
	"time"

	"esb-bridge-service/service/meta"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// JobProfile ETL任务配置
type JobProfile struct {
	ID            string                 `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Env           string                 `json:"env" gorm:"not null;size:20;uniqueIndex:idx_job_profile_env_iface"`
	InterfaceName string                 `json:"interface_name" gorm:"not null;size:100;uniqueIndex:idx_job_profile_env_iface"`
	Profile       map[string]interface{} `json:"profile" gorm:"serializer:json"` // 运行参数JSON
	CreatedAt     time.Time              `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time              `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName 指定表名
func (JobProfile) TableName() string {
	return "job_profiles"
}

// BeforeCreate GORM钩子，创建前生成UUID
func (p *JobProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// profileInt 读取整型配置项，缺失或非法时返回默认值
func (p *JobProfile) profileInt(key string, defaultValue int) int {
	if p.Profile == nil {
		return defaultValue
	}
	value, exists := p.Profile[key]
	if !exists {
		return defaultValue
	}
	parsed, err := cast.ToIntE(value)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

// SleepSeconds 轮询间隔秒数
func (p *JobProfile) SleepSeconds() int {
	return p.profileInt("sleepSeconds", meta.DefaultSleepSeconds)
}

// LookbackDays 更新扫描回溯天数
func (p *JobProfile) LookbackDays() int {
	return p.profileInt("lookbackDays", meta.DefaultLookbackDays)
}

// MaxRowNumber 单次扫描标记行数上限
func (p *JobProfile) MaxRowNumber() int {
	return p.profileInt("maxRowNumber", meta.DefaultMaxRowNumber)
}

// TransportRowLimit 单批传输行数上限
func (p *JobProfile) TransportRowLimit() int {
	limit := p.profileInt("transportRowLimit", meta.DefaultTransportRowLimit)
	if limit > meta.MaxTransportRowLimit {
		return meta.MaxTransportRowLimit
	}
	return limit
}

// EnableDateRange 是否启用显式日期区间扫描
func (p *JobProfile) EnableDateRange() bool {
	if p.Profile == nil {
		return false
	}
	return cast.ToBool(p.Profile["enableDateRange"])
}

// DateFrom 扫描起始日期
func (p *JobProfile) DateFrom() string {
	if p.Profile == nil {
		return ""
	}
	return cast.ToString(p.Profile["dateFrom"])
}

// DateTo 扫描结束日期
func (p *JobProfile) DateTo() string {
	if p.Profile == nil {
		return ""
	}
	return cast.ToString(p.Profile["dateTo"])
}
