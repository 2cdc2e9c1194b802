/*
 * @module service/plsql/callback_worker
 * @description 回调工作者，异步执行包装函数调用后把结果POST回调用方提供的回调地址
 * @architecture 异步回调 - 执行与回调各落一次审计，过程写入任务日志
 * @documentReference dev_docs/plsql_gateway.md
 * @stateFlow 认领回调任务 -> 执行包装函数 -> 构造回调报文 -> POST回调地址 -> 审计回填
 * @rules 回调使用ESB basic auth；回调失败任务置failed等待人工处理，不自动重试
 * @dependencies gorm.io/gorm
 * @refs gateway.go, service/esb
 */

package plsql

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"esb-bridge-service/service/esb"
	"esb-bridge-service/service/models"
	"esb-bridge-service/service/taskqueue"

	"github.com/spf13/cast"
)

// CallbackWorker 回调工作者
type CallbackWorker struct {
	gateway *Gateway
	queue   *taskqueue.Queue
}

// NewCallbackWorker 创建回调工作者
func NewCallbackWorker(gateway *Gateway, queue *taskqueue.Queue) *CallbackWorker {
	return &CallbackWorker{gateway: gateway, queue: queue}
}

// Handle 执行一次异步调用与回调
func (w *CallbackWorker) Handle(ctx context.Context, job *taskqueue.Job) error {
	w.queue.AppendLog(ctx, job.ID, "异步执行开始")

	routeID := cast.ToString(job.Payload["routeId"])
	callbackURL := cast.ToString(job.Payload["callbackUrl"])
	body, _ := job.Payload["body"].(map[string]interface{})
	if body == nil {
		return fmt.Errorf("回调任务载荷缺失请求体")
	}

	var route models.ApiRoute
	if err := w.gateway.db.First(&route, "id = ?", routeID).Error; err != nil {
		return fmt.Errorf("回调任务读取接口记录失败: %w", err)
	}

	invokeResult := w.gateway.invokeDirectly(ctx, &route, body)

	resultJSON, _ := json.Marshal(invokeResult)
	w.queue.AppendLog(ctx, job.ID, fmt.Sprintf("异步执行结果: %s", string(resultJSON)))

	callbackBody := w.buildCallbackBody(job, invokeResult)
	requestJSON, _ := json.Marshal(callbackBody)

	auditLog := &models.CallbackRequestLog{
		RequestLogID: invokeResult.EsbInfo.InstID,
		CallbackURL:  callbackURL,
		RequestBody:  string(requestJSON),
		RequestedAt:  time.Now(),
	}
	if err := w.gateway.db.Create(auditLog).Error; err != nil {
		slog.Error("回调审计请求记录失败", "callback_url", callbackURL, "error", err)
	}

	w.queue.AppendLog(ctx, job.ID, fmt.Sprintf("开始调用回调api: %s", callbackURL))
	response, err := w.gateway.esbClient.Post(ctx, callbackURL, callbackBody)

	now := time.Now()
	updates := map[string]interface{}{"responded_at": &now}
	if err != nil {
		updates["success"] = false
		updates["response_body"] = err.Error()
		w.queue.AppendLog(ctx, job.ID, fmt.Sprintf("回调失败: %s", err.Error()))
	} else {
		responseJSON, _ := json.Marshal(response)
		updates["success"] = response.IsSuccess()
		updates["response_body"] = string(responseJSON)
		w.queue.AppendLog(ctx, job.ID, fmt.Sprintf("回调响应: %s", string(responseJSON)))
	}
	if updateErr := w.gateway.db.Model(auditLog).Updates(updates).Error; updateErr != nil {
		slog.Error("回调审计响应回填失败", "callback_url", callbackURL, "error", updateErr)
	}

	if err != nil {
		return fmt.Errorf("回调地址调用失败: %w", err)
	}
	w.queue.AppendLog(ctx, job.ID, "回调完成")
	return nil
}

// buildCallbackBody 回调报文：回显执行结果的信封，requestInfo携带任务ID和执行结果
func (w *CallbackWorker) buildCallbackBody(job *taskqueue.Job, invokeResult *esb.Response) *esb.Request {
	now := time.Now().Format(esb.RequestTimeFormat)
	requestInfo := map[string]interface{}{
		"jobId":     job.ID,
		"messageId": job.ID,
	}
	if resultMap, ok := invokeResult.ResultInfo.(map[string]interface{}); ok {
		for key, value := range resultMap {
			requestInfo[key] = value
		}
	}
	return &esb.Request{
		EsbInfo: esb.EsbInfo{
			InstID:       invokeResult.EsbInfo.InstID,
			RequestTime:  now,
			ResponseTime: now,
			ReturnCode:   invokeResult.EsbInfo.ReturnCode,
			ReturnStatus: invokeResult.EsbInfo.ReturnStatus,
			ReturnMsg:    invokeResult.EsbInfo.ReturnMsg,
		},
		RequestInfo: requestInfo,
	}
}
