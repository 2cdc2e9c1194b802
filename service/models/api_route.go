/*
 * @module service/models/api_route
 * @description PL/SQL接口注册模型，记录存储过程到REST端点的映射和注册生命周期状态
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/plsql_gateway.md
 * @stateFlow 提交注册 -> REGISTING -> 包装DDL编译 -> VALID；任一步失败补偿为INVALID
 * @rules bizName全局唯一；origName为包名.过程名；INVALID为显式终态，可重新注册
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/plsql, service/meta
 */

package models

import (
	"time"

	"esb-bridge-service/service/meta"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApiRoute PL/SQL接口注册记录
type ApiRoute struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	BizName       string    `json:"biz_name" gorm:"not null;size:100;uniqueIndex"` // 业务接口名，作为REST路径段
	PackageName   string    `json:"package_name" gorm:"not null;size:100"`
	ProcedureName string    `json:"procedure_name" gorm:"not null;size:100"`
	OrigName      string    `json:"orig_name" gorm:"not null;size:200;index"` // 包名.过程名
	WrapName      string    `json:"wrap_name,omitempty" gorm:"size:200"`      // 注册成功后回填的包装函数名
	Status        string    `json:"status" gorm:"not null;size:20;default:'REGISTING';index"`
	Remark        string    `json:"remark,omitempty" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	CreatedBy     string    `json:"created_by" gorm:"not null;default:'system';size:100"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName 指定表名
func (ApiRoute) TableName() string {
	return "api_routes"
}

// BeforeCreate GORM钩子，创建前生成UUID并补齐派生字段
func (r *ApiRoute) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = meta.APIStatusRegisting
	}
	if r.OrigName == "" {
		r.OrigName = r.PackageName + "." + r.ProcedureName
	}
	if r.CreatedBy == "" {
		r.CreatedBy = "system"
	}
	return nil
}

// IsInvocable 是否可被网关调用
func (r *ApiRoute) IsInvocable() bool {
	return r.Status == meta.APIStatusValid
}
