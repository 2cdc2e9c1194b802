/*
 * @module service/models/audit_log
 * @description 网关调用与回调往返的审计日志模型，远程调用前后各落一次，支撑重放与排障
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/plsql_gateway.md
 * @stateFlow 调用前插入请求记录 -> 远程调用 -> 回填响应与耗时
 * @rules 请求响应报文按大文本存储；回调往返单独成表
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/plsql
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApiRequestLog 网关调用审计日志
type ApiRequestLog struct {
	ID            string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	InstID        string     `json:"inst_id" gorm:"not null;size:36;index"` // ESB信封实例ID
	BizName       string     `json:"biz_name" gorm:"not null;size:100;index"`
	PackageName   string     `json:"package_name" gorm:"not null;size:100"`
	ProcedureName string     `json:"procedure_name" gorm:"not null;size:100"`
	SourceSystem  string     `json:"source_system,omitempty" gorm:"size:50;index"`
	RequestBody   string     `json:"request_body,omitempty" gorm:"type:text"`
	ResponseBody  string     `json:"response_body,omitempty" gorm:"type:text"`
	ReturnCode    string     `json:"return_code,omitempty" gorm:"size:20"`
	Success       bool       `json:"success" gorm:"default:false"`
	RequestedAt   time.Time  `json:"requested_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	RespondedAt   *time.Time `json:"responded_at,omitempty"`
	DurationMs    int64      `json:"duration_ms" gorm:"default:0"`
}

// TableName 指定表名
func (ApiRequestLog) TableName() string {
	return "api_request_logs"
}

// BeforeCreate GORM钩子，创建前生成UUID
func (l *ApiRequestLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

// CallbackRequestLog 回调往返审计日志
type CallbackRequestLog struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RequestLogID string     `json:"request_log_id" gorm:"not null;type:varchar(36);index"` // 关联的网关调用记录
	CallbackURL  string     `json:"callback_url" gorm:"not null;size:500"`
	RequestBody  string     `json:"request_body,omitempty" gorm:"type:text"`
	ResponseBody string     `json:"response_body,omitempty" gorm:"type:text"`
	Success      bool       `json:"success" gorm:"default:false"`
	RequestedAt  time.Time  `json:"requested_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	RespondedAt  *time.Time `json:"responded_at,omitempty"`
}

// TableName 指定表名
func (CallbackRequestLog) TableName() string {
	return "callback_request_logs"
}

// BeforeCreate GORM钩子，创建前生成UUID
func (l *CallbackRequestLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}
