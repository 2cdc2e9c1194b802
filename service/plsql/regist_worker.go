/*
 * @module service/plsql/regist_worker
 * @description 接口注册工作者，执行四步注册流程：校验 -> 登记 -> 包装DDL编译 -> 生效
 * @architecture 补偿事务 - 多步流程非原子，任一步失败统一补偿为INVALID终态
 * @documentReference dev_docs/plsql_gateway.md
 * @stateFlow REGISTING -> 校验包与过程 -> 注册登记 -> 包装对象编译 -> VALID；失败 -> INVALID
 * @rules 补偿动作必须执行；失败原因写入任务日志供管理端回看
 * @dependencies gorm.io/gorm
 * @refs catalog.go, manage_service.go
 */

package plsql

import (
	"context"
	"fmt"
	"log/slog"

	"esb-bridge-service/service/meta"
	"esb-bridge-service/service/models"
	"esb-bridge-service/service/taskqueue"

	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// RegistWorker 接口注册工作者
type RegistWorker struct {
	db      *gorm.DB
	catalog *Catalog
	queue   *taskqueue.Queue
}

// NewRegistWorker 创建注册工作者
func NewRegistWorker(db *gorm.DB, catalog *Catalog, queue *taskqueue.Queue) *RegistWorker {
	return &RegistWorker{db: db, catalog: catalog, queue: queue}
}

// Handle 执行一次注册流程
func (w *RegistWorker) Handle(ctx context.Context, job *taskqueue.Job) error {
	routeID := cast.ToString(job.Payload["routeId"])

	var route models.ApiRoute
	if err := w.db.First(&route, "id = ?", routeID).Error; err != nil {
		return fmt.Errorf("注册任务读取接口记录失败: %w", err)
	}

	if err := w.regist(ctx, job, &route); err != nil {
		// 任一步失败都补偿为INVALID终态，补偿失败仅记日志
		w.queue.AppendLog(ctx, job.ID, fmt.Sprintf("注册失败: %s", err.Error()))
		if compErr := w.db.Model(&route).Update("status", meta.APIStatusInvalid).Error; compErr != nil {
			slog.Error("注册失败补偿INVALID失败", "orig_name", route.OrigName, "error", compErr)
		}
		return err
	}

	w.queue.AppendLog(ctx, job.ID, fmt.Sprintf("接口注册成功: %s -> %s", route.OrigName, route.WrapName))
	return nil
}

func (w *RegistWorker) regist(ctx context.Context, job *taskqueue.Job, route *models.ApiRoute) error {
	w.queue.AppendLog(ctx, job.ID, fmt.Sprintf("开始注册接口: %s", route.OrigName))

	if err := w.db.Model(route).Update("status", meta.APIStatusRegisting).Error; err != nil {
		return fmt.Errorf("置REGISTING失败: %w", err)
	}

	w.queue.AppendLog(ctx, job.ID, "步骤1: 校验程序包与存储过程")
	if err := w.catalog.CheckPackageProcedure(ctx, route.PackageName, route.ProcedureName); err != nil {
		return err
	}

	w.queue.AppendLog(ctx, job.ID, "步骤2: 调用注册过程登记接口")
	wrapName, err := w.catalog.Regist(ctx, route.PackageName, route.ProcedureName, route.BizName, route.Remark, route.CreatedBy)
	if err != nil {
		return err
	}

	w.queue.AppendLog(ctx, job.ID, "步骤3: 生成并编译包装对象")
	if err := w.catalog.GenerateWrapper(ctx, route.PackageName, route.ProcedureName); err != nil {
		return err
	}

	w.queue.AppendLog(ctx, job.ID, "步骤4: 接口生效")
	if err := w.db.Model(route).Updates(map[string]interface{}{
		"wrap_name": wrapName,
		"status":    meta.APIStatusValid,
	}).Error; err != nil {
		return fmt.Errorf("置VALID失败: %w", err)
	}
	route.WrapName = wrapName
	route.Status = meta.APIStatusValid
	return nil
}
