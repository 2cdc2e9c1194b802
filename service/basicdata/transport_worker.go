/*
 * @module service/basicdata/transport_worker
 * @description 传输工作者，认领待传行、获取批次号、外呼ESB并按结果迁移行状态，失败行逐行调度一次重试
 * @architecture 状态机 - PENDING认领 -> RUNNING -> SUCCESS/ERROR，单行重试不再自动续约
 * @documentReference dev_docs/transport_worker.md
 * @stateFlow 认领 -> 置RUNNING -> POST信封 -> 成功置SUCCESS/失败置ERROR并逐行入队重试 -> 批量任务自续
 * @rules 业务失败不算任务失败；失败信息截断1000字符；重试任务不再自动入队；游标推送按页直到游标不再推进
 * @dependencies service/esb, service/taskqueue, github.com/spf13/cast
 * @refs actions.go, update_worker.go, interface_service.go
 */

package basicdata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"esb-bridge-service/service/esb"
	"esb-bridge-service/service/events"
	"esb-bridge-service/service/meta"
	"esb-bridge-service/service/metadata"
	"esb-bridge-service/service/monitoring"
	"esb-bridge-service/service/notify"
	"esb-bridge-service/service/repository"
	"esb-bridge-service/service/taskqueue"

	"github.com/spf13/cast"
)

// childFinder 子行抓取需要的最小仓储能力
type childFinder interface {
	Find(ctx context.Context, opts metadata.SelectOptions) repository.Result
}

// TransportWorker 传输工作者
type TransportWorker struct {
	config         *TransportInterface
	actions        *TransportActions
	children       childFinder // 子行视图的仓储，未声明子行抓取时为nil
	transportQueue *taskqueue.Queue
	esbClient      *esb.Client
	publisher      *events.Publisher
	notifier       *notify.MQTTNotifier
}

// NewTransportWorker 创建传输工作者
func NewTransportWorker(config *TransportInterface, actions *TransportActions, transportQueue *taskqueue.Queue,
	esbClient *esb.Client, publisher *events.Publisher, notifier *notify.MQTTNotifier) *TransportWorker {
	worker := &TransportWorker{
		config:         config,
		actions:        actions,
		transportQueue: transportQueue,
		esbClient:      esbClient,
		publisher:      publisher,
		notifier:       notifier,
	}
	if config.Child != nil {
		// 子行走自己的列映射，内嵌的行才是领域字段而非物理列名
		worker.children = actions.repo.WithMapper(config.Child.Mapper)
	}
	return worker
}

// Handle 任务分发入口
func (w *TransportWorker) Handle(ctx context.Context, job *taskqueue.Job) error {
	switch job.Name {
	case meta.JobNameTransport:
		if w.config.CursorFeed {
			return w.runCursorFeed(ctx, job)
		}
		return w.runBatch(ctx, job)
	case meta.JobNameRetry:
		return w.runRetry(ctx, job)
	default:
		return fmt.Errorf("未知任务类型: %s", job.Name)
	}
}

// buildPayload 构造外呼载荷
// 声明了分组键时按组合键聚合为带表头的分组列表；声明了子行抓取时并发内嵌子行，结果无序
func (w *TransportWorker) buildPayload(ctx context.Context, rows []map[string]interface{}) (interface{}, error) {
	if w.config.Child != nil {
		if err := w.embedChildren(ctx, rows); err != nil {
			return nil, err
		}
	}

	if len(w.config.GroupKeys) == 0 {
		return rows, nil
	}

	groups := make(map[string]map[string]interface{})
	order := make([]string, 0)
	for _, row := range rows {
		key := ""
		for _, groupKey := range w.config.GroupKeys {
			key += cast.ToString(row[groupKey]) + "|"
		}
		group, exists := groups[key]
		if !exists {
			group = make(map[string]interface{}, len(w.config.GroupKeys)+1)
			for _, groupKey := range w.config.GroupKeys {
				group[groupKey] = row[groupKey]
			}
			group["items"] = []map[string]interface{}{}
			groups[key] = group
			order = append(order, key)
		}
		group["items"] = append(group["items"].([]map[string]interface{}), row)
	}

	grouped := make([]map[string]interface{}, 0, len(order))
	for _, key := range order {
		grouped = append(grouped, groups[key])
	}
	return grouped, nil
}

// embedChildren 按父行键并发抓取子行并内嵌，父行间抓取顺序不保证
// 子行查询经子实体仓储构建，内嵌行携带领域字段名并应用列转换
func (w *TransportWorker) embedChildren(ctx context.Context, rows []map[string]interface{}) error {
	child := w.config.Child
	orderBy := ""
	if pk := child.Mapper.Metadata().PrimaryKey; pk != nil {
		orderBy = pk.DomainName
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, row := range rows {
		wg.Add(1)
		go func(row map[string]interface{}) {
			defer wg.Done()
			result := w.children.Find(ctx, metadata.SelectOptions{
				Criteria: metadata.Plain{child.ChildKey: row[child.ParentKey]},
				OrderBy:  orderBy,
			})
			mu.Lock()
			defer mu.Unlock()
			if !result.Success {
				if firstErr == nil {
					firstErr = fmt.Errorf("子行抓取失败: %s", result.Message)
				}
				return
			}
			childRows, _ := result.Data.([]map[string]interface{})
			row[child.EmbedField] = childRows
		}(row)
	}
	wg.Wait()
	return firstErr
}

// postRows 外呼ESB并按结果迁移行状态，失败时逐行入队重试任务
func (w *TransportWorker) postRows(ctx context.Context, job *taskqueue.Job, rows []map[string]interface{}, batch int64, scheduleRetry bool) error {
	queueIDs := make([]interface{}, len(rows))
	for i, row := range rows {
		queueIDs[i] = row[FieldQueueID]
	}

	if result := w.actions.AssignRunning(ctx, queueIDs, batch); !result.Success {
		return fmt.Errorf("置RUNNING失败: %s", result.Message)
	}

	payload, err := w.buildPayload(ctx, rows)
	if err != nil {
		// 载荷构造失败按业务失败处理，行置ERROR
		w.actions.AssignError(ctx, queueIDs, batch, err.Error())
		return err
	}

	w.publisher.Publish(ctx, events.TransportEvent{
		Type: events.EventBatchStarted, InterfaceName: w.config.Name,
		TransportBatch: batch, RowCount: len(rows),
	})

	start := time.Now()
	response, err := w.esbClient.Post(ctx, w.config.TargetURL, esb.NewRequest(payload))
	monitoring.EsbCallDuration.WithLabelValues(w.config.Name).Observe(time.Since(start).Seconds())

	failMessage := ""
	if err != nil {
		failMessage = err.Error()
	} else if !response.IsSuccess() {
		failMessage = fmt.Sprintf("returnCode=%s, returnMsg=%s", response.EsbInfo.ReturnCode, response.EsbInfo.ReturnMsg)
	}

	if failMessage != "" {
		w.transportQueue.AppendLog(ctx, job.ID, fmt.Sprintf("批次%d外呼失败: %s", batch, TruncateMessage(failMessage)))
		if result := w.actions.AssignError(ctx, queueIDs, batch, failMessage); !result.Success {
			slog.Error("置ERROR失败", "interface", w.config.Name, "batch", batch, "message", result.Message)
		}
		monitoring.TransportRowsTotal.WithLabelValues(w.config.Name, meta.TransportStatusError).Add(float64(len(rows)))
		monitoring.TransportBatchesTotal.WithLabelValues(w.config.Name, "error").Inc()

		if scheduleRetry {
			// 失败行逐行调度一次单行重试
			for _, queueID := range queueIDs {
				if _, err := w.transportQueue.Add(ctx, meta.JobNameRetry, map[string]interface{}{FieldQueueID: queueID}); err != nil {
					slog.Error("重试任务入队失败", "interface", w.config.Name, "queue_id", queueID, "error", err)
					continue
				}
				monitoring.RetryJobsTotal.WithLabelValues(w.config.Name).Inc()
			}
			w.publisher.Publish(ctx, events.TransportEvent{
				Type: events.EventRetryScheduled, InterfaceName: w.config.Name,
				TransportBatch: batch, RowCount: len(rows),
			})
		}

		w.publisher.Publish(ctx, events.TransportEvent{
			Type: events.EventBatchFailed, InterfaceName: w.config.Name,
			TransportBatch: batch, RowCount: len(rows), Message: TruncateMessage(failMessage),
		})
		w.notifier.Notify(w.config.Name, "error", fmt.Sprintf("批次%d传输失败: %s", batch, TruncateMessage(failMessage)))
		return nil
	}

	if result := w.actions.AssignSuccess(ctx, queueIDs, batch, response.EsbInfo.ReturnMsg); !result.Success {
		return fmt.Errorf("置SUCCESS失败: %s", result.Message)
	}
	w.transportQueue.AppendLog(ctx, job.ID, fmt.Sprintf("批次%d传输成功，行数%d", batch, len(rows)))
	monitoring.TransportRowsTotal.WithLabelValues(w.config.Name, meta.TransportStatusSuccess).Add(float64(len(rows)))
	monitoring.TransportBatchesTotal.WithLabelValues(w.config.Name, "success").Inc()
	w.publisher.Publish(ctx, events.TransportEvent{
		Type: events.EventBatchSucceeded, InterfaceName: w.config.Name,
		TransportBatch: batch, RowCount: len(rows),
	})
	return nil
}

// runBatch 批量传输：认领、外呼、自续
func (w *TransportWorker) runBatch(ctx context.Context, job *taskqueue.Job) error {
	limit := cast.ToInt(job.Payload["transportRowLimit"])
	if limit <= 0 || limit > meta.MaxTransportRowLimit {
		limit = meta.DefaultTransportRowLimit
	}

	claimResult := w.actions.ClaimPending(ctx, limit)
	if !claimResult.Success {
		return fmt.Errorf("认领待传行失败: %s", claimResult.Message)
	}
	rows, _ := claimResult.Data.([]map[string]interface{})
	if len(rows) == 0 {
		w.transportQueue.AppendLog(ctx, job.ID, "无待传行，批量传输结束")
		return nil
	}

	batch, seqResult := w.actions.NextBatchSequence(ctx)
	if !seqResult.Success {
		return fmt.Errorf("批次序列获取失败: %s", seqResult.Message)
	}

	if err := w.postRows(ctx, job, rows, batch, true); err != nil {
		return err
	}

	// 无论批次成败都自续，持续消费剩余待传行
	if _, err := w.transportQueue.Add(ctx, meta.JobNameTransport, job.Payload); err != nil {
		return fmt.Errorf("传输任务自续失败: %w", err)
	}
	return nil
}

// runRetry 单行重试：同样的认领-外呼生命周期，但只处理一行且不再自动入队
func (w *TransportWorker) runRetry(ctx context.Context, job *taskqueue.Job) error {
	queueID := job.Payload[FieldQueueID]
	rowResult := w.actions.FindRow(ctx, queueID)
	if !rowResult.Success {
		return fmt.Errorf("重试行读取失败: %s", rowResult.Message)
	}
	if rowResult.Data == nil {
		w.transportQueue.AppendLog(ctx, job.ID, fmt.Sprintf("重试行不存在: %v", queueID))
		return nil
	}
	row := rowResult.Data.(map[string]interface{})

	batch, seqResult := w.actions.NextBatchSequence(ctx)
	if !seqResult.Success {
		return fmt.Errorf("批次序列获取失败: %s", seqResult.Message)
	}

	return w.postRows(ctx, job, []map[string]interface{}{row}, batch, false)
}

// runCursorFeed 游标推送：按页推送直到数据推完或游标不再推进
func (w *TransportWorker) runCursorFeed(ctx context.Context, job *taskqueue.Job) error {
	size := w.config.PageSize
	if size <= 0 {
		size = meta.DefaultTransportRowLimit
	}

	for page := 1; ; page++ {
		pageResult := w.actions.ListWithPagination(ctx, nil, page, size)
		if !pageResult.Success {
			return fmt.Errorf("游标页查询失败: %s", pageResult.Message)
		}
		pageData := pageResult.Data.(*repository.PageData)
		if len(pageData.Rows) == 0 {
			w.transportQueue.AppendLog(ctx, job.ID, fmt.Sprintf("游标推送结束，共%d页", page-1))
			return nil
		}

		request := esb.NewRequest(pageData.Rows)
		request.QueryInfo = esb.QueryInfo{
			PageSize:    cast.ToString(size),
			CurrentPage: cast.ToString(page),
		}

		response, err := w.esbClient.Post(ctx, w.config.TargetURL, request)
		if err != nil {
			return fmt.Errorf("游标页推送失败: %w", err)
		}
		if !response.IsSuccess() {
			return fmt.Errorf("游标页推送返回失败: returnCode=%s", response.EsbInfo.ReturnCode)
		}

		w.transportQueue.AppendLog(ctx, job.ID, fmt.Sprintf("游标页%d推送成功，行数%d", page, len(pageData.Rows)))

		// 游标不再推进时终止，避免对端分页异常导致的死循环
		if int64(page*size) >= pageData.Total {
			w.transportQueue.AppendLog(ctx, job.ID, fmt.Sprintf("游标推送完成，总行数%d", pageData.Total))
			return nil
		}
	}
}
