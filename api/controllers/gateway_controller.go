/*
 * @module api/controllers/gateway_controller
 * @description PL/SQL REST网关控制器：接收历史ESB信封请求并转发至包装函数执行
 * @architecture 分层架构 - 控制器层
 * @documentReference dev_docs/plsql_gateway.md
 * @stateFlow HTTP请求 -> 信封解析 -> 网关执行（同步或回调排队） -> ESB信封返回
 * @rules 为兼容历史客户端，网关一律返回HTTP 200，业务结果由信封returnCode表达
 * @dependencies service/plsql, service/esb
 * @refs api/routes.go, api/middleware/appkey_auth.go
 */

package controllers

import (
	"encoding/json"
	"net/http"

	"esb-bridge-service/service"
	"esb-bridge-service/service/esb"
	"esb-bridge-service/service/plsql"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// GatewayController PL/SQL REST网关控制器
type GatewayController struct {
	gateway *plsql.Gateway
}

// NewGatewayController 创建网关控制器
func NewGatewayController() *GatewayController {
	return &GatewayController{gateway: service.GlobalGateway}
}

// Invoke 调用已注册的PL/SQL接口
// @Summary 调用已注册的PL/SQL接口
// @Description 请求体为历史ESB信封，携带callbackInfo.url时转为异步回调模式
// @Tags PL/SQL网关
// @Accept json
// @Produce json
// @Param packageName path string true "包名"
// @Param procedureName path string true "过程名"
// @Param envelope body map[string]interface{} true "ESB信封请求"
// @Success 200 {object} esb.Response
// @Router /plsql/restful/{packageName}/{procedureName} [post]
func (c *GatewayController) Invoke(w http.ResponseWriter, r *http.Request) {
	packageName := chi.URLParam(r, "packageName")
	procedureName := chi.URLParam(r, "procedureName")

	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		render.JSON(w, r, esb.FailureResponse("", "E9999", "请求体解析失败，请提交合法的JSON信封"))
		return
	}

	render.JSON(w, r, c.gateway.Invoke(r.Context(), packageName, procedureName, body))
}
