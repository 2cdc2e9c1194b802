/*
 * @module service/cleanup/retention
 * @description 审计日志定时清理服务，按保留天数周期删除过期的网关调用与回调审计记录
 * @architecture 后台任务 - cron驱动的保留策略
 * @documentReference dev_docs/plsql_gateway.md
 * @stateFlow cron触发 -> 按保留窗口删除过期记录 -> 记录清理行数
 * @rules 默认每天凌晨三点执行，保留90天；清理失败仅记日志等待下个周期
 * @dependencies github.com/robfig/cron/v3, gorm.io/gorm
 * @refs service/models
 */

package cleanup

import (
	"log/slog"
	"time"

	"esb-bridge-service/service/models"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// RetentionService 审计日志保留服务
type RetentionService struct {
	db            *gorm.DB
	cron          *cron.Cron
	retentionDays int
}

// NewRetentionService 创建保留服务
func NewRetentionService(db *gorm.DB, retentionDays int) *RetentionService {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &RetentionService{
		db:            db,
		cron:          cron.New(),
		retentionDays: retentionDays,
	}
}

// Start 注册清理计划并启动
func (s *RetentionService) Start() error {
	if _, err := s.cron.AddFunc("0 3 * * *", s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("审计日志保留服务启动", "retention_days", s.retentionDays)
	return nil
}

// Stop 停止清理计划
func (s *RetentionService) Stop() {
	s.cron.Stop()
}

// sweep 执行一次过期记录清理
func (s *RetentionService) sweep() {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)

	result := s.db.Where("requested_at < ?", cutoff).Delete(&models.ApiRequestLog{})
	if result.Error != nil {
		slog.Error("网关审计日志清理失败", "error", result.Error)
	} else if result.RowsAffected > 0 {
		slog.Info("网关审计日志清理完成", "deleted", result.RowsAffected, "cutoff", cutoff.Format("2006-01-02"))
	}

	result = s.db.Where("requested_at < ?", cutoff).Delete(&models.CallbackRequestLog{})
	if result.Error != nil {
		slog.Error("回调审计日志清理失败", "error", result.Error)
	} else if result.RowsAffected > 0 {
		slog.Info("回调审计日志清理完成", "deleted", result.RowsAffected, "cutoff", cutoff.Format("2006-01-02"))
	}
}
