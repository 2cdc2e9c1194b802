/*
 * @module service/basicdata/actions
 * @description 传输接口的状态表操作：标记变更、认领待传行、批次序列获取和行状态迁移
 * @architecture 分层架构 - 传输工作者与仓储之间的数据操作层
 * @documentReference dev_docs/transport_worker.md
 * @stateFlow 标记过程置PENDING -> 条件认领置RUNNING -> 外呼结果置SUCCESS或ERROR
 * @rules 认领用条件批量更新实现原子占有；处理信息截断到1000字符；状态迁移最后写入者胜出
 * @dependencies github.com/spf13/cast
 * @refs config.go, service/repository, service/metadata
 */

package basicdata

import (
	"context"
	"fmt"

	"esb-bridge-service/service/meta"
	"esb-bridge-service/service/metadata"
	"esb-bridge-service/service/models"
	"esb-bridge-service/service/repository"

	"github.com/spf13/cast"
)

// TransportActions 单个传输接口的状态表操作集
type TransportActions struct {
	config *TransportInterface
	repo   *repository.Repository
}

// NewTransportActions 创建状态表操作集
func NewTransportActions(config *TransportInterface, repo *repository.Repository) *TransportActions {
	return &TransportActions{config: config, repo: repo}
}

// MarkUpdate 调用标记过程把变更的源行置为PENDING
// 按配置走回溯天数或显式日期区间，maxRowNumber限制单次标记量
func (a *TransportActions) MarkUpdate(ctx context.Context, profile *models.JobProfile) repository.Result {
	binds := metadata.BindMap{
		"p_maxRowNumber": {Direction: metadata.BindIn, Value: profile.MaxRowNumber()},
	}

	var sqlText string
	if profile.EnableDateRange() {
		sqlText = fmt.Sprintf("CALL %s(:p_dateFrom, :p_dateTo, :p_maxRowNumber)", a.config.MarkProcedure)
		binds["p_dateFrom"] = metadata.BindParam{Direction: metadata.BindIn, Value: profile.DateFrom()}
		binds["p_dateTo"] = metadata.BindParam{Direction: metadata.BindIn, Value: profile.DateTo()}
	} else {
		sqlText = fmt.Sprintf("CALL %s(:p_lookbackDays, :p_maxRowNumber)", a.config.MarkProcedure)
		binds["p_lookbackDays"] = metadata.BindParam{Direction: metadata.BindIn, Value: profile.LookbackDays()}
	}

	return a.repo.Exec(ctx, sqlText, binds)
}

// HasPending 探查是否存在待传行
func (a *TransportActions) HasPending(ctx context.Context) (bool, repository.Result) {
	result := a.repo.FindOneBy(ctx, metadata.Plain{FieldProcessStatus: meta.TransportStatusPending})
	if !result.Success {
		return false, result
	}
	return result.Data != nil, result
}

// ClaimPending 认领最多limit个待传行
func (a *TransportActions) ClaimPending(ctx context.Context, limit int) repository.Result {
	return a.repo.Find(ctx, metadata.SelectOptions{
		Criteria: metadata.Plain{FieldProcessStatus: meta.TransportStatusPending},
		OrderBy:  FieldQueueID,
		Limit:    limit,
	})
}

// FindRow 按队列ID读取单行
func (a *TransportActions) FindRow(ctx context.Context, queueID interface{}) repository.Result {
	return a.repo.FindOneBy(ctx, metadata.Plain{FieldQueueID: queueID})
}

// NextBatchSequence 获取下一个传输批次号
func (a *TransportActions) NextBatchSequence(ctx context.Context) (int64, repository.Result) {
	result := a.repo.Query(ctx, fmt.Sprintf("SELECT %s.NEXTVAL AS \"seq\" FROM DUAL", a.config.BatchSequence), nil)
	if !result.Success {
		return 0, result
	}
	rows, _ := result.Data.([]map[string]interface{})
	if len(rows) == 0 {
		return 0, repository.Fail(repository.ErrCodeExecute, fmt.Errorf("批次序列未返回值: %s", a.config.BatchSequence))
	}
	return cast.ToInt64(rows[0]["seq"]), result
}

// assignStatus 批量迁移行状态，重复执行最后写入者胜出
func (a *TransportActions) assignStatus(ctx context.Context, queueIDs []interface{}, batch int64, status, message string) repository.Result {
	entities := make([]map[string]interface{}, len(queueIDs))
	for i, queueID := range queueIDs {
		entities[i] = map[string]interface{}{
			FieldQueueID:        queueID,
			FieldProcessStatus:  status,
			FieldTransportBatch: batch,
			FieldProcessMessage: TruncateMessage(message),
		}
	}
	return a.repo.UpdateMany(ctx, entities, []string{FieldQueueID})
}

// AssignRunning 认领行置RUNNING
func (a *TransportActions) AssignRunning(ctx context.Context, queueIDs []interface{}, batch int64) repository.Result {
	return a.assignStatus(ctx, queueIDs, batch, meta.TransportStatusRunning, "")
}

// AssignSuccess 外呼成功，行置SUCCESS并记录回执信息
func (a *TransportActions) AssignSuccess(ctx context.Context, queueIDs []interface{}, batch int64, returnMsg string) repository.Result {
	return a.assignStatus(ctx, queueIDs, batch, meta.TransportStatusSuccess, returnMsg)
}

// AssignError 外呼失败，行置ERROR并记录截断后的失败信息
func (a *TransportActions) AssignError(ctx context.Context, queueIDs []interface{}, batch int64, message string) repository.Result {
	return a.assignStatus(ctx, queueIDs, batch, meta.TransportStatusError, message)
}

// ListWithPagination 分页查询状态表，管理端列表接口使用
func (a *TransportActions) ListWithPagination(ctx context.Context, criteria metadata.Criteria, page, size int) repository.Result {
	return a.repo.FindWithPagination(ctx, metadata.SelectOptions{
		Criteria:  criteria,
		OrderBy:   FieldQueueID,
		OrderDesc: true,
	}, page, size)
}

// TruncateMessage 处理信息截断到固定上限
func TruncateMessage(message string) string {
	runes := []rune(message)
	if len(runes) <= meta.ProcessMessageLimit {
		return message
	}
	return string(runes[:meta.ProcessMessageLimit])
}
