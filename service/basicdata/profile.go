/*
 * @module service/basicdata/profile
 * @description 任务配置服务，按环境和接口名读写JobProfile，启动时校验并持久化运行参数
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/transport_worker.md
 * @stateFlow 管理启动写入配置 -> 工作者每轮读取 -> 缺省字段按默认值补齐
 * @rules sleepSeconds不低于30；transportRowLimit不超过100；配置不存在时返回全默认值的空配置
 * @dependencies gorm.io/gorm
 * @refs service/models, update_worker.go, interface_service.go
 */

package basicdata

import (
	"errors"
	"fmt"

	"esb-bridge-service/service/meta"
	"esb-bridge-service/service/models"

	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// ProfileService 任务配置服务
type ProfileService struct {
	db  *gorm.DB
	env string
}

// NewProfileService 创建任务配置服务
func NewProfileService(db *gorm.DB, env string) *ProfileService {
	return &ProfileService{db: db, env: env}
}

// Get 读取接口配置，不存在时返回空配置（各字段取默认值）
func (s *ProfileService) Get(interfaceName string) (*models.JobProfile, error) {
	var profile models.JobProfile
	err := s.db.Where("env = ? AND interface_name = ?", s.env, interfaceName).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.JobProfile{Env: s.env, InterfaceName: interfaceName}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("任务配置读取失败: %w", err)
	}
	return &profile, nil
}

// ValidateProfile 校验启动参数
func ValidateProfile(profile map[string]interface{}) error {
	if value, exists := profile["sleepSeconds"]; exists {
		if cast.ToInt(value) < meta.MinSleepSeconds {
			return fmt.Errorf("sleepSeconds不能低于%d", meta.MinSleepSeconds)
		}
	}
	if value, exists := profile["transportRowLimit"]; exists {
		limit := cast.ToInt(value)
		if limit <= 0 || limit > meta.MaxTransportRowLimit {
			return fmt.Errorf("transportRowLimit必须在1到%d之间", meta.MaxTransportRowLimit)
		}
	}
	if cast.ToBool(profile["enableDateRange"]) {
		if cast.ToString(profile["dateFrom"]) == "" || cast.ToString(profile["dateTo"]) == "" {
			return fmt.Errorf("启用日期区间时dateFrom和dateTo不能为空")
		}
	}
	return nil
}

// Upsert 写入接口配置，存在则整体覆盖profile
func (s *ProfileService) Upsert(interfaceName string, profile map[string]interface{}) (*models.JobProfile, error) {
	if err := ValidateProfile(profile); err != nil {
		return nil, err
	}

	var existing models.JobProfile
	err := s.db.Where("env = ? AND interface_name = ?", s.env, interfaceName).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		created := models.JobProfile{Env: s.env, InterfaceName: interfaceName, Profile: profile}
		if err := s.db.Create(&created).Error; err != nil {
			return nil, fmt.Errorf("任务配置创建失败: %w", err)
		}
		return &created, nil
	}
	if err != nil {
		return nil, fmt.Errorf("任务配置读取失败: %w", err)
	}

	existing.Profile = profile
	if err := s.db.Save(&existing).Error; err != nil {
		return nil, fmt.Errorf("任务配置更新失败: %w", err)
	}
	return &existing, nil
}
