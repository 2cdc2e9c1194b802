/*
 * @module service/plsql/gateway_test
 * @description 网关前置校验、来源系统摘取和响应置换的单元测试
 * @architecture 测试驱动开发 - sqlite内存库验证前置校验，纯函数路径直接断言
 * @documentReference dev_docs/plsql_gateway.md
 * @stateFlow 构造请求体 -> 网关调用 -> 信封断言
 * @rules 网关失败一律返回E9999信封；来源系统编码兼容各种历史表头形态
 * @dependencies testing, testify, gorm, sqlite
 * @refs gateway.go
 */

package plsql

import (
	"context"
	"testing"
	"time"

	"esb-bridge-service/service/meta"
	"esb-bridge-service/service/models"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGatewayPreflight 测试路由缺失与非VALID状态的前置拒绝
func TestGatewayPreflight(t *testing.T) {
	db := setupRouteDB(t)
	require.NoError(t, db.Create(&models.ApiRoute{
		BizName: "采购订单同步", PackageName: "CUX_PO_PKG", ProcedureName: "SYNC_ORDER",
		Status: meta.APIStatusInvalid,
	}).Error)
	require.NoError(t, db.Create(&models.ApiRoute{
		BizName: "供应商主数据", PackageName: "CUX_VENDOR_PKG", ProcedureName: "SYNC_VENDOR",
		Status: meta.APIStatusRegisting,
	}).Error)

	gateway := NewGateway(db, nil, nil, nil)

	testCases := []struct {
		name          string
		packageName   string
		procedureName string
		wantContains  string
	}{
		{
			name:          "接口未注册",
			packageName:   "CUX_MISSING_PKG",
			procedureName: "NOPE",
			wantContains:  "没有对应的api",
		},
		{
			name:          "接口已失效",
			packageName:   "CUX_PO_PKG",
			procedureName: "SYNC_ORDER",
			wantContains:  "已失效",
		},
		{
			name:          "接口注册中",
			packageName:   "CUX_VENDOR_PKG",
			procedureName: "SYNC_VENDOR",
			wantContains:  "正在注册中",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			response := gateway.Invoke(context.Background(), tc.packageName, tc.procedureName,
				map[string]interface{}{"esbInfo": map[string]interface{}{"instId": "inst-1"}})
			assert.False(t, response.IsSuccess())
			assert.Equal(t, "E9999", response.EsbInfo.ReturnCode)
			assert.Equal(t, "inst-1", response.EsbInfo.InstID)
			assert.Contains(t, response.EsbInfo.ReturnMsg, tc.wantContains)
		})
	}
}

// TestCallbackRuntimeLifecycle 测试回调队列运行时挂在网关自身生命周期上
// 受理请求返回后其context取消，回调工作者必须继续存活，直到网关Shutdown
func TestCallbackRuntimeLifecycle(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	gateway := NewGateway(nil, nil, nil, client)

	runtime := gateway.callbackQueue("SRM")
	require.NotNil(t, runtime)
	assert.Same(t, runtime, gateway.callbackQueue("SRM"))

	// 模拟受理请求返回：任意请求级context取消都不触及网关的基础context
	requestCtx, cancelRequest := context.WithCancel(context.Background())
	cancelRequest()
	<-requestCtx.Done()
	select {
	case <-gateway.baseCtx.Done():
		t.Fatal("回调工作者的运行context不应随请求context退出")
	default:
	}

	gateway.Shutdown()
	select {
	case <-gateway.baseCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("Shutdown后回调工作者的运行context应当终止")
	}
}

// TestRequestMeta 测试信封元数据补齐且重复摘取一致
func TestRequestMeta(t *testing.T) {
	body := map[string]interface{}{}
	instID, requestTime := requestMeta(body)
	assert.NotEmpty(t, instID)
	assert.NotEmpty(t, requestTime)

	instID2, requestTime2 := requestMeta(body)
	assert.Equal(t, instID, instID2)
	assert.Equal(t, requestTime, requestTime2)
}

// TestSourceSystem 测试来源系统编码兼容多种历史表头形态
func TestSourceSystem(t *testing.T) {
	testCases := []struct {
		name string
		body map[string]interface{}
		want string
	}{
		{
			name: "顶层sourceCode",
			body: map[string]interface{}{"requestInfo": map[string]interface{}{"sourceCode": "SRM"}},
			want: "SRM",
		},
		{
			name: "header内sourceCode",
			body: map[string]interface{}{"requestInfo": map[string]interface{}{
				"header": map[string]interface{}{"sourceCode": "WMS"},
			}},
			want: "WMS",
		},
		{
			name: "headerTbl内scuxSourceCode",
			body: map[string]interface{}{"requestInfo": map[string]interface{}{
				"headerTbl": map[string]interface{}{"scuxSourceCode": "MES"},
			}},
			want: "MES",
		},
		{
			name: "缺失时回落默认",
			body: map[string]interface{}{},
			want: "default",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, sourceSystem(tc.body))
		})
	}
}

// TestBuildResponse 测试包装函数出参置换为ESB信封
func TestBuildResponse(t *testing.T) {
	gateway := &Gateway{}

	t.Run("出参自带信封回显返回码", func(t *testing.T) {
		response := gateway.buildResponse("inst-1", "2026-08-29 10:00:00.000",
			`{"esbInfo":{"returnCode":"A0001","returnMsg":"处理成功"},"resultInfo":{"count":3}}`, nil)
		assert.True(t, response.IsSuccess())
		assert.Equal(t, "A0001", response.EsbInfo.ReturnCode)
		assert.Equal(t, "处理成功", response.EsbInfo.ReturnMsg)
		assert.NotNil(t, response.ResultInfo)
	})

	t.Run("出参无信封按成功补默认码", func(t *testing.T) {
		response := gateway.buildResponse("inst-1", "2026-08-29 10:00:00.000", `{"resultInfo":{}}`, nil)
		assert.True(t, response.IsSuccess())
		assert.Equal(t, "A9999", response.EsbInfo.ReturnCode)
	})

	t.Run("非A前缀返回码置换为失败状态", func(t *testing.T) {
		response := gateway.buildResponse("inst-1", "2026-08-29 10:00:00.000",
			`{"esbInfo":{"returnCode":"E0101","returnMsg":"余额不足"}}`, nil)
		assert.False(t, response.IsSuccess())
		assert.Equal(t, "E", response.EsbInfo.ReturnStatus)
	})

	t.Run("调用错误返回E9999", func(t *testing.T) {
		response := gateway.buildResponse("inst-1", "2026-08-29 10:00:00.000", "", assert.AnError)
		assert.False(t, response.IsSuccess())
		assert.Equal(t, "E9999", response.EsbInfo.ReturnCode)
	})

	t.Run("出参非法JSON返回E9999", func(t *testing.T) {
		response := gateway.buildResponse("inst-1", "2026-08-29 10:00:00.000", "not-json", nil)
		assert.False(t, response.IsSuccess())
		assert.Contains(t, response.EsbInfo.ReturnMsg, "解析失败")
	})
}
