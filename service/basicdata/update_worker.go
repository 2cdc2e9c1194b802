/*
 * @module service/basicdata/update_worker
 * @description 更新工作者，周期调用标记过程发现变更行，探查到待传行且传输队列空闲时投递传输任务
 * @architecture 自调度循环 - 延迟任务驱动，检查后投递
 * @documentReference dev_docs/transport_worker.md
 * @stateFlow 标记变更 -> 探查PENDING -> 传输队列空闲则投递传输任务 -> 更新队列无后继时延迟自续
 * @rules 传输队列存在活动或等待任务时不重复投递；自续前检查更新队列避免任务堆积
 * @dependencies service/taskqueue
 * @refs actions.go, transport_worker.go, interface_service.go
 */

package basicdata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"esb-bridge-service/service/meta"
	"esb-bridge-service/service/taskqueue"
)

// UpdateWorker 更新工作者
type UpdateWorker struct {
	config         *TransportInterface
	actions        *TransportActions
	profiles       *ProfileService
	updateQueue    *taskqueue.Queue
	transportQueue *taskqueue.Queue
}

// NewUpdateWorker 创建更新工作者
func NewUpdateWorker(config *TransportInterface, actions *TransportActions, profiles *ProfileService,
	updateQueue, transportQueue *taskqueue.Queue) *UpdateWorker {
	return &UpdateWorker{
		config:         config,
		actions:        actions,
		profiles:       profiles,
		updateQueue:    updateQueue,
		transportQueue: transportQueue,
	}
}

// Handle 执行一轮标记与调度
func (w *UpdateWorker) Handle(ctx context.Context, job *taskqueue.Job) error {
	profile, err := w.profiles.Get(w.config.Name)
	if err != nil {
		return err
	}

	if result := w.actions.MarkUpdate(ctx, profile); !result.Success {
		// 标记失败不中断循环，记录后照常探查与自续
		w.updateQueue.AppendLog(ctx, job.ID, fmt.Sprintf("标记过程执行失败: %s", result.Message))
		slog.Error("标记过程执行失败", "interface", w.config.Name, "message", result.Message)
	}

	pending, result := w.actions.HasPending(ctx)
	if !result.Success {
		return fmt.Errorf("待传行探查失败: %s", result.Message)
	}

	if pending {
		if err := w.dispatchTransport(ctx, job, profile.TransportRowLimit()); err != nil {
			return err
		}
	}

	return w.reschedule(ctx, job, profile.SleepSeconds())
}

// dispatchTransport 传输队列空闲时投递一个传输任务
// 检查后投递存在竞态窗口，传输侧认领为条件更新，重复投递至多空转一轮
func (w *UpdateWorker) dispatchTransport(ctx context.Context, job *taskqueue.Job, rowLimit int) error {
	active, err := w.transportQueue.GetActiveCount(ctx)
	if err != nil {
		return fmt.Errorf("传输队列活动数查询失败: %w", err)
	}
	waiting, err := w.transportQueue.GetWaitingCount(ctx)
	if err != nil {
		return fmt.Errorf("传输队列等待数查询失败: %w", err)
	}
	if active > 0 || waiting > 0 {
		w.updateQueue.AppendLog(ctx, job.ID, "传输队列忙，跳过本轮投递")
		return nil
	}

	if _, err := w.transportQueue.Add(ctx, meta.JobNameTransport, map[string]interface{}{
		"transportRowLimit": rowLimit,
	}); err != nil {
		return fmt.Errorf("传输任务投递失败: %w", err)
	}
	w.updateQueue.AppendLog(ctx, job.ID, "发现待传行，已投递传输任务")
	return nil
}

// reschedule 更新队列没有后继任务时延迟自续
func (w *UpdateWorker) reschedule(ctx context.Context, job *taskqueue.Job, sleepSeconds int) error {
	delayed, err := w.updateQueue.GetDelayedCount(ctx)
	if err != nil {
		return fmt.Errorf("更新队列延迟数查询失败: %w", err)
	}
	waiting, err := w.updateQueue.GetWaitingCount(ctx)
	if err != nil {
		return fmt.Errorf("更新队列等待数查询失败: %w", err)
	}
	if delayed > 0 || waiting > 0 {
		return nil
	}

	if _, err := w.updateQueue.AddDelayed(ctx, meta.JobNameUpdate, job.Payload,
		time.Duration(sleepSeconds)*time.Second); err != nil {
		return fmt.Errorf("更新任务自续失败: %w", err)
	}
	return nil
}
