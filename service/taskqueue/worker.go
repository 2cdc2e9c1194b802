/*
 * @module service/taskqueue/worker
 * @description 队列工作者，轮询认领任务并调用处理函数，任务结束落完成或失败记录
 * @architecture 工作者模式 - 每个接口队列一个逻辑工作者，并发度可配置
 * @documentReference dev_docs/taskqueue.md
 * @stateFlow 轮询 -> 认领 -> 执行处理函数 -> 完成/失败 -> 继续轮询
 * @rules ETL工作者并发度默认1；处理函数panic按失败记录，不中断工作者循环
 * @dependencies context, time
 * @refs queue.go
 */

package taskqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Handler 任务处理函数
type Handler func(ctx context.Context, job *Job) error

// Worker 队列工作者
type Worker struct {
	queue       *Queue
	handler     Handler
	concurrency int
	interval    time.Duration
	cancel      context.CancelFunc
}

// NewWorker 创建工作者，concurrency小于1时取1
func NewWorker(queue *Queue, handler Handler, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		queue:       queue,
		handler:     handler,
		concurrency: concurrency,
		interval:    time.Second,
	}
}

// Start 启动工作者循环
func (w *Worker) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	for i := 0; i < w.concurrency; i++ {
		go w.loop(runCtx)
	}
	slog.Info("队列工作者启动", "queue", w.queue.Name(), "concurrency", w.concurrency)
}

// Stop 停止工作者循环，在途任务执行完毕自行落记录
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

// loop 单并发度的轮询循环
func (w *Worker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOne(ctx)
		}
	}
}

// runOne 认领并执行一个任务
func (w *Worker) runOne(ctx context.Context) {
	job, err := w.queue.claim(ctx)
	if err != nil {
		slog.Error("任务认领失败", "queue", w.queue.Name(), "error", err)
		return
	}
	if job == nil {
		return
	}

	failReason := ""
	func() {
		defer func() {
			if r := recover(); r != nil {
				failReason = fmt.Sprintf("任务处理panic: %v", r)
			}
		}()
		if err := w.handler(ctx, job); err != nil {
			failReason = err.Error()
		}
	}()

	if failReason != "" {
		slog.Error("任务执行失败", "queue", w.queue.Name(), "job", job.Name, "job_id", job.ID, "reason", failReason)
	}
	w.queue.finish(ctx, job, failReason)
}
