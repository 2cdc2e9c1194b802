/*
 * @module api/controllers/basic_data_controller
 * @description 基础数据传输接口的管理控制器：启动、停止、状态表分页查询、队列状态和任务配置
 * @architecture 分层架构 - 控制器层
 * @documentReference dev_docs/transport_worker.md
 * @stateFlow HTTP请求 -> 参数验证 -> 接口服务调用 -> 统一响应返回
 * @rules 启动守卫错误透传错误码（EXIST ACTIVE等）；列表查询条件只接受等值过滤
 * @dependencies service/basicdata, service/metadata
 * @refs api/routes.go
 */

package controllers

import (
	"encoding/json"
	"net/http"

	"esb-bridge-service/service"
	"esb-bridge-service/service/basicdata"
	"esb-bridge-service/service/metadata"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// BasicDataController 传输接口管理控制器
type BasicDataController struct {
	interfaces *basicdata.InterfaceService
}

// NewBasicDataController 创建传输接口管理控制器
func NewBasicDataController() *BasicDataController {
	return &BasicDataController{interfaces: service.GlobalInterfaceService}
}

// StartRequest 启动请求，任务配置直接作为请求体
type StartRequest map[string]interface{}

// ListRequest 状态表分页查询请求
type ListRequest struct {
	Page   int                    `json:"page" example:"1"`
	Size   int                    `json:"size" example:"10"`
	Filter map[string]interface{} `json:"filter,omitempty"` // 等值过滤条件，字段名为领域字段
}

// Interfaces 已注册传输接口列表
// @Summary 传输接口列表
// @Tags 基础数据
// @Produce json
// @Success 200 {object} APIResponse
// @Router /basic-data/interfaces [get]
func (c *BasicDataController) Interfaces(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, OkResponse(c.interfaces.Names()))
}

// Start 启动传输接口
// @Summary 启动传输接口
// @Description 守卫通过后持久化任务配置、恢复队列并投递首个更新任务
// @Tags 基础数据
// @Accept json
// @Produce json
// @Param interface path string true "接口名"
// @Param profile body StartRequest false "任务配置"
// @Success 200 {object} APIResponse
// @Router /basic-data/{interface}/start [post]
func (c *BasicDataController) Start(w http.ResponseWriter, r *http.Request) {
	interfaceName := chi.URLParam(r, "interface")

	var profile StartRequest
	if r.Body != nil {
		// 空请求体按全默认配置启动
		_ = json.NewDecoder(r.Body).Decode(&profile)
	}

	if err := c.interfaces.Start(r.Context(), interfaceName, profile); err != nil {
		render.JSON(w, r, ErrorResponse(err))
		return
	}
	render.JSON(w, r, OkResponse(nil))
}

// Stop 停止传输接口
// @Summary 停止传输接口
// @Tags 基础数据
// @Produce json
// @Param interface path string true "接口名"
// @Success 200 {object} APIResponse
// @Router /basic-data/{interface}/stop [post]
func (c *BasicDataController) Stop(w http.ResponseWriter, r *http.Request) {
	if err := c.interfaces.Stop(r.Context(), chi.URLParam(r, "interface")); err != nil {
		render.JSON(w, r, ErrorResponse(err))
		return
	}
	render.JSON(w, r, OkResponse(nil))
}

// List 状态表分页查询
// @Summary 状态表分页查询
// @Tags 基础数据
// @Accept json
// @Produce json
// @Param interface path string true "接口名"
// @Param query body ListRequest true "分页与过滤条件"
// @Success 200 {object} APIResponse
// @Router /basic-data/{interface}/list [post]
func (c *BasicDataController) List(w http.ResponseWriter, r *http.Request) {
	var req ListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, r, FailResponse("INVALID PARAM", "请求参数解析失败"))
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Size <= 0 {
		req.Size = 10
	}

	var criteria metadata.Criteria
	if len(req.Filter) > 0 {
		criteria = metadata.Plain(req.Filter)
	}

	result, err := c.interfaces.List(r.Context(), chi.URLParam(r, "interface"), criteria, req.Page, req.Size)
	if err != nil {
		render.JSON(w, r, ErrorResponse(err))
		return
	}
	render.JSON(w, r, result)
}

// QueueStatus 队列状态
// @Summary 更新与传输队列的状态汇总
// @Tags 基础数据
// @Produce json
// @Param interface path string true "接口名"
// @Success 200 {object} APIResponse
// @Router /basic-data/{interface}/queueStatus [post]
func (c *BasicDataController) QueueStatus(w http.ResponseWriter, r *http.Request) {
	status, err := c.interfaces.QueueStatus(r.Context(), chi.URLParam(r, "interface"))
	if err != nil {
		render.JSON(w, r, ErrorResponse(err))
		return
	}
	render.JSON(w, r, OkResponse(status))
}

// Profile 任务配置查询
// @Summary 任务配置查询
// @Tags 基础数据
// @Produce json
// @Param interface path string true "接口名"
// @Success 200 {object} APIResponse
// @Router /basic-data/{interface}/profile [post]
func (c *BasicDataController) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := c.interfaces.Profile(chi.URLParam(r, "interface"))
	if err != nil {
		render.JSON(w, r, ErrorResponse(err))
		return
	}
	render.JSON(w, r, OkResponse(profile))
}
