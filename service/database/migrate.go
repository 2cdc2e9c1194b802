/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责创建和更新服务元数据表结构
 * @architecture 数据访问层 - 迁移管理
 * @documentReference dev_docs/model.md
 * @stateFlow 应用启动时执行数据库迁移
 * @rules 确保数据库结构与模型定义保持一致；业务数据表归属遗留ERP库，不在迁移范围内
 * @dependencies esb-bridge-service/service/models, gorm.io/gorm
 * @refs service/init.go
 */

package database

import (
	"log"

	"esb-bridge-service/service/models"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	log.Println("开始数据库迁移...")

	// 传输任务配置表
	err := db.AutoMigrate(
		&models.JobProfile{},
	)
	if err != nil {
		return err
	}

	// PL/SQL接口注册与审计表
	err = db.AutoMigrate(
		&models.ApiRoute{},
		&models.ApiRequestLog{},
		&models.CallbackRequestLog{},
	)
	if err != nil {
		return err
	}

	log.Println("数据库迁移完成")
	return nil
}
