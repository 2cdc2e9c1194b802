/*
 * @module service/plsql/gateway
 * @description PL/SQL网关服务，把已注册的存储过程暴露为REST调用：直接调用与异步回调两种模式
 * @architecture 网关模式 - ESB信封进出，调用前后落审计日志
 * @documentReference dev_docs/plsql_gateway.md
 * @stateFlow 路由查找 -> 状态前置校验 -> 直接调用或投递回调队列 -> 审计回填
 * @rules 仅VALID状态可调用；回调队列活动数达到并行度上限时拒绝；网关失败一律HTTP 200 + E9999信封
 * @dependencies gorm.io/gorm, github.com/go-redis/redis/v8
 * @refs catalog.go, service/esb, api/controllers
 */

package plsql

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"esb-bridge-service/service/esb"
	"esb-bridge-service/service/meta"
	"esb-bridge-service/service/models"
	"esb-bridge-service/service/monitoring"
	"esb-bridge-service/service/taskqueue"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// DefaultCallbackConcurrency 回调工作者并行度，同时是回调队列的容量守卫阈值
const DefaultCallbackConcurrency = 30

// Gateway PL/SQL网关服务
type Gateway struct {
	db        *gorm.DB
	catalog   *Catalog
	esbClient *esb.Client
	client    *redis.Client

	// 回调工作者挂在网关自身的生命周期上，不随单次请求的context退出
	baseCtx context.Context
	cancel  context.CancelFunc

	mu                  sync.Mutex
	callbackQueues      map[string]*callbackRuntime
	callbackConcurrency int
}

type callbackRuntime struct {
	queue  *taskqueue.Queue
	worker *taskqueue.Worker
}

// NewGateway 创建网关服务
func NewGateway(db *gorm.DB, catalog *Catalog, esbClient *esb.Client, client *redis.Client) *Gateway {
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		db:                  db,
		catalog:             catalog,
		esbClient:           esbClient,
		client:              client,
		baseCtx:             baseCtx,
		cancel:              cancel,
		callbackQueues:      make(map[string]*callbackRuntime),
		callbackConcurrency: DefaultCallbackConcurrency,
	}
}

// requestMeta 摘取信封元数据，缺失的instId/requestTime补齐并写回请求体，保证多次摘取一致
func requestMeta(body map[string]interface{}) (instID, requestTime string) {
	esbInfo, ok := body["esbInfo"].(map[string]interface{})
	if !ok {
		esbInfo = map[string]interface{}{}
		body["esbInfo"] = esbInfo
	}
	instID = cast.ToString(esbInfo["instId"])
	if instID == "" {
		instID = uuid.New().String()
		esbInfo["instId"] = instID
	}
	requestTime = cast.ToString(esbInfo["requestTime"])
	if requestTime == "" {
		requestTime = time.Now().Format(esb.RequestTimeFormat)
		esbInfo["requestTime"] = requestTime
	}
	return instID, requestTime
}

// failure 网关本地失败信封，回显请求时间
func failure(instID, requestTime, returnMsg string) *esb.Response {
	response := esb.FailureResponse(instID, "E9999", returnMsg)
	response.EsbInfo.RequestTime = requestTime
	return response
}

// sourceSystem 从请求体各种历史形态的表头里摘取来源系统编码
func sourceSystem(body map[string]interface{}) string {
	requestInfo, _ := body["requestInfo"].(map[string]interface{})
	for _, headerKey := range []string{"", "header", "headerTbl", "headTbl"} {
		section := requestInfo
		if headerKey != "" {
			section, _ = requestInfo[headerKey].(map[string]interface{})
		}
		if section == nil {
			continue
		}
		for _, codeKey := range []string{"sourceCode", "scuxSourceCode"} {
			if code := cast.ToString(section[codeKey]); code != "" {
				return code
			}
		}
	}
	return "default"
}

// Invoke 网关调用入口，按callbackInfo.URL有无选择直接调用或异步回调
func (g *Gateway) Invoke(ctx context.Context, packageName, procedureName string, body map[string]interface{}) *esb.Response {
	instID, requestTime := requestMeta(body)
	origName := packageName + "." + procedureName

	var route models.ApiRoute
	if err := g.db.First(&route, "orig_name = ?", origName).Error; err != nil {
		return failure(instID, requestTime, fmt.Sprintf("api %s/%s 注册信息发生错误，没有对应的api", packageName, procedureName))
	}
	switch route.Status {
	case meta.APIStatusInvalid:
		return failure(instID, requestTime, fmt.Sprintf("api %s/%s 已失效，拒绝调用", packageName, procedureName))
	case meta.APIStatusRegisting:
		return failure(instID, requestTime, fmt.Sprintf("api %s/%s 正在注册中", packageName, procedureName))
	}

	callbackURL := ""
	if callbackInfo, ok := body["callbackInfo"].(map[string]interface{}); ok {
		callbackURL = cast.ToString(callbackInfo["URL"])
	}
	if callbackURL == "" {
		return g.invokeDirectly(ctx, &route, body)
	}
	return g.submitCallback(ctx, &route, body, callbackURL, instID, requestTime)
}

// invokeDirectly 同步调用包装函数：审计插入 -> 调用 -> 审计回填
func (g *Gateway) invokeDirectly(ctx context.Context, route *models.ApiRoute, body map[string]interface{}) *esb.Response {
	instID, requestTime := requestMeta(body)

	requestJSON, err := json.Marshal(body)
	if err != nil {
		return failure(instID, requestTime, fmt.Sprintf("请求体序列化失败: %s", err.Error()))
	}

	auditLog := &models.ApiRequestLog{
		InstID:        instID,
		BizName:       route.BizName,
		PackageName:   route.PackageName,
		ProcedureName: route.ProcedureName,
		SourceSystem:  sourceSystem(body),
		RequestBody:   string(requestJSON),
		RequestedAt:   time.Now(),
	}
	if err := g.db.Create(auditLog).Error; err != nil {
		slog.Error("网关审计请求记录失败", "orig_name", route.OrigName, "error", err)
	}

	start := time.Now()
	responseJSON, invokeErr := g.catalog.InvokeWrapper(ctx, route.WrapName, string(requestJSON))
	duration := time.Since(start)
	monitoring.EsbCallDuration.WithLabelValues(route.BizName).Observe(duration.Seconds())

	response := g.buildResponse(instID, requestTime, responseJSON, invokeErr)

	result := "success"
	if !response.IsSuccess() {
		result = "error"
	}
	monitoring.GatewayRequestsTotal.WithLabelValues(route.BizName, result).Inc()

	responseBody, _ := json.Marshal(response)
	now := time.Now()
	if err := g.db.Model(auditLog).Updates(map[string]interface{}{
		"response_body": string(responseBody),
		"return_code":   response.EsbInfo.ReturnCode,
		"success":       response.IsSuccess(),
		"responded_at":  &now,
		"duration_ms":   duration.Milliseconds(),
	}).Error; err != nil {
		slog.Error("网关审计响应回填失败", "orig_name", route.OrigName, "error", err)
	}

	return response
}

// buildResponse 把包装函数的JSON出参置换为标准ESB响应信封
// 出参自带esbInfo时回显其返回码；否则按调用成败补默认码A9999/E9999
func (g *Gateway) buildResponse(instID, requestTime, responseJSON string, invokeErr error) *esb.Response {
	response := &esb.Response{
		EsbInfo: esb.EsbInfo{
			InstID:       instID,
			RequestTime:  requestTime,
			ResponseTime: time.Now().Format(esb.RequestTimeFormat),
		},
	}

	if invokeErr != nil {
		response.EsbInfo.ReturnStatus = "E"
		response.EsbInfo.ReturnCode = "E9999"
		response.EsbInfo.ReturnMsg = invokeErr.Error()
		return response
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(responseJSON), &parsed); err != nil {
		response.EsbInfo.ReturnStatus = "E"
		response.EsbInfo.ReturnCode = "E9999"
		response.EsbInfo.ReturnMsg = fmt.Sprintf("包装函数出参解析失败: %s", err.Error())
		return response
	}

	response.EsbInfo.ReturnStatus = "S"
	response.EsbInfo.ReturnCode = "A9999"
	if esbInfo, ok := parsed["esbInfo"].(map[string]interface{}); ok {
		if code := cast.ToString(esbInfo["returnCode"]); code != "" {
			response.EsbInfo.ReturnCode = code
		}
		if status := cast.ToString(esbInfo["returnStatus"]); status != "" {
			response.EsbInfo.ReturnStatus = status
		}
		response.EsbInfo.ReturnMsg = cast.ToString(esbInfo["returnMsg"])
		response.EsbInfo.Attr1 = cast.ToString(esbInfo["attr1"])
		response.EsbInfo.Attr2 = cast.ToString(esbInfo["attr2"])
		response.EsbInfo.Attr3 = cast.ToString(esbInfo["attr3"])
	}
	if resultInfo, ok := parsed["resultInfo"]; ok {
		response.ResultInfo = resultInfo
	}
	if !strings.HasPrefix(response.EsbInfo.ReturnCode, "A") {
		response.EsbInfo.ReturnStatus = "E"
	}
	return response
}

// callbackQueue 取来源系统的回调队列，不存在则创建并启动工作者
func (g *Gateway) callbackQueue(source string) *callbackRuntime {
	g.mu.Lock()
	defer g.mu.Unlock()

	if runtime, exists := g.callbackQueues[source]; exists {
		return runtime
	}

	queue := taskqueue.NewQueue(meta.CallbackQueueName(source), g.client)
	worker := NewCallbackWorker(g, queue)
	runtime := &callbackRuntime{
		queue:  queue,
		worker: taskqueue.NewWorker(queue, worker.Handle, g.callbackConcurrency),
	}
	runtime.worker.Start(g.baseCtx)
	g.callbackQueues[source] = runtime
	slog.Info("回调队列创建", "source", source, "concurrency", g.callbackConcurrency)
	return runtime
}

// submitCallback 异步回调模式：容量守卫通过后投递回调任务，立刻返回受理信封
func (g *Gateway) submitCallback(ctx context.Context, route *models.ApiRoute, body map[string]interface{},
	callbackURL, instID, requestTime string) *esb.Response {
	source := sourceSystem(body)
	runtime := g.callbackQueue(source)

	active, err := runtime.queue.GetActiveCount(ctx)
	if err != nil {
		return failure(instID, requestTime, fmt.Sprintf("回调队列检查失败: %s", err.Error()))
	}
	if active >= int64(g.callbackConcurrency) {
		return failure(instID, requestTime, fmt.Sprintf("%s回调队列已满，请稍后再试", source))
	}

	jobID, err := runtime.queue.Add(ctx, meta.JobNameCallback, map[string]interface{}{
		"routeId":     route.ID,
		"body":        body,
		"callbackUrl": callbackURL,
	})
	if err != nil {
		return failure(instID, requestTime, fmt.Sprintf("回调任务投递失败: %s", err.Error()))
	}

	response := esb.SuccessResponse(instID, map[string]interface{}{"messageId": jobID})
	response.EsbInfo.RequestTime = requestTime
	response.EsbInfo.ReturnMsg = fmt.Sprintf("成功提交任务 messageId:%s，请等待接口回调", jobID)
	return response
}

// Shutdown 停止全部回调工作者
func (g *Gateway) Shutdown() {
	g.cancel()
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, runtime := range g.callbackQueues {
		runtime.worker.Stop()
	}
}
