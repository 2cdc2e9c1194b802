/*
 * @module api/controllers/plsql_controller
 * @description PL/SQL接口注册管理控制器：注册提交、列表、详情、编辑、失效、重新注册和注册队列运维
 * @architecture 分层架构 - 控制器层
 * @documentReference dev_docs/plsql_gateway.md
 * @stateFlow HTTP请求 -> 参数验证 -> 管理服务调用 -> 统一响应返回
 * @rules 注册为异步任务，提交成功返回任务ID；同名注册进行中时透传DUPLICATE NAME错误码
 * @dependencies service/plsql
 * @refs api/routes.go
 */

package controllers

import (
	"encoding/json"
	"net/http"

	"esb-bridge-service/service"
	"esb-bridge-service/service/plsql"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// PlsqlController PL/SQL接口注册管理控制器
type PlsqlController struct {
	manage *plsql.ManageService
}

// NewPlsqlController 创建管理控制器
func NewPlsqlController() *PlsqlController {
	return &PlsqlController{manage: service.GlobalPlsqlManageService}
}

// RouteListRequest 接口列表查询请求
type RouteListRequest struct {
	Page     int    `json:"page" example:"1"`
	Size     int    `json:"size" example:"10"`
	BizName  string `json:"bizName,omitempty"`  // 业务接口名，包含匹配
	OrigName string `json:"origName,omitempty"` // 包名.过程名，包含匹配
}

// RouteEditRequest 接口编辑请求
type RouteEditRequest struct {
	ID      string `json:"id"`
	BizName string `json:"bizName"`
	Remark  string `json:"remark"`
}

// Regist 提交接口注册任务
// @Summary 提交接口注册任务
// @Description 注册为异步四步流程，提交成功返回任务ID，可通过任务日志查看进度
// @Tags PL/SQL管理
// @Accept json
// @Produce json
// @Param params body plsql.RegistParams true "注册参数"
// @Success 200 {object} APIResponse
// @Router /plsql/regist [post]
func (c *PlsqlController) Regist(w http.ResponseWriter, r *http.Request) {
	var params plsql.RegistParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		render.JSON(w, r, FailResponse("INVALID PARAM", "请求参数解析失败"))
		return
	}

	jobID, err := c.manage.SubmitRegist(r.Context(), params)
	if err != nil {
		render.JSON(w, r, ErrorResponse(err))
		return
	}
	render.JSON(w, r, OkResponse(map[string]string{"jobId": jobID}))
}

// List 接口分页列表
// @Summary 接口分页列表
// @Tags PL/SQL管理
// @Accept json
// @Produce json
// @Param query body RouteListRequest true "查询条件"
// @Success 200 {object} APIResponse
// @Router /plsql/list [post]
func (c *PlsqlController) List(w http.ResponseWriter, r *http.Request) {
	var req RouteListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, r, FailResponse("INVALID PARAM", "请求参数解析失败"))
		return
	}

	list, err := c.manage.List(req.BizName, req.OrigName, req.Page, req.Size)
	if err != nil {
		render.JSON(w, r, ErrorResponse(err))
		return
	}
	render.JSON(w, r, OkResponse(list))
}

// Detail 接口详情
// @Summary 接口详情
// @Tags PL/SQL管理
// @Produce json
// @Param id path string true "接口ID"
// @Success 200 {object} APIResponse
// @Router /plsql/detail/{id} [get]
func (c *PlsqlController) Detail(w http.ResponseWriter, r *http.Request) {
	route, err := c.manage.Detail(chi.URLParam(r, "id"))
	if err != nil {
		render.JSON(w, r, ErrorResponse(err))
		return
	}
	render.JSON(w, r, OkResponse(route))
}

// Edit 编辑接口业务名与备注
// @Summary 编辑接口
// @Tags PL/SQL管理
// @Accept json
// @Produce json
// @Param params body RouteEditRequest true "编辑参数"
// @Success 200 {object} APIResponse
// @Router /plsql/edit [post]
func (c *PlsqlController) Edit(w http.ResponseWriter, r *http.Request) {
	var req RouteEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, r, FailResponse("INVALID PARAM", "请求参数解析失败"))
		return
	}

	if err := c.manage.Edit(req.ID, req.BizName, req.Remark); err != nil {
		render.JSON(w, r, ErrorResponse(err))
		return
	}
	render.JSON(w, r, OkResponse(nil))
}

// Invalidate 失效接口
// @Summary 失效接口，拒绝后续网关调用
// @Tags PL/SQL管理
// @Produce json
// @Param id path string true "接口ID"
// @Success 200 {object} APIResponse
// @Router /plsql/invalid/{id} [post]
func (c *PlsqlController) Invalidate(w http.ResponseWriter, r *http.Request) {
	if err := c.manage.Invalidate(chi.URLParam(r, "id"), operatorName(r)); err != nil {
		render.JSON(w, r, ErrorResponse(err))
		return
	}
	render.JSON(w, r, OkResponse(nil))
}

// ReRegist 重新注册接口
// @Summary 按已有记录重新提交注册
// @Tags PL/SQL管理
// @Produce json
// @Param id path string true "接口ID"
// @Success 200 {object} APIResponse
// @Router /plsql/re-regist/{id} [post]
func (c *PlsqlController) ReRegist(w http.ResponseWriter, r *http.Request) {
	jobID, err := c.manage.ReRegist(r.Context(), chi.URLParam(r, "id"), operatorName(r))
	if err != nil {
		render.JSON(w, r, ErrorResponse(err))
		return
	}
	render.JSON(w, r, OkResponse(map[string]string{"jobId": jobID}))
}

// Jobs 最近的注册任务列表
// @Summary 注册任务列表
// @Tags PL/SQL管理
// @Produce json
// @Success 200 {object} APIResponse
// @Router /plsql/jobs [get]
func (c *PlsqlController) Jobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := c.manage.ListJobs(r.Context())
	if err != nil {
		render.JSON(w, r, ErrorResponse(err))
		return
	}
	render.JSON(w, r, OkResponse(jobs))
}

// JobLogs 注册任务执行日志
// @Summary 注册任务执行日志
// @Tags PL/SQL管理
// @Produce json
// @Param id path string true "任务ID"
// @Success 200 {object} APIResponse
// @Router /plsql/jobs/{id}/logs [get]
func (c *PlsqlController) JobLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := c.manage.JobLogs(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		render.JSON(w, r, ErrorResponse(err))
		return
	}
	render.JSON(w, r, OkResponse(logs))
}

// QueueStatus 注册队列状态
// @Summary 注册队列状态
// @Tags PL/SQL管理
// @Produce json
// @Success 200 {object} APIResponse
// @Router /plsql/queue/status [get]
func (c *PlsqlController) QueueStatus(w http.ResponseWriter, r *http.Request) {
	status, err := c.manage.QueueStatus(r.Context())
	if err != nil {
		render.JSON(w, r, ErrorResponse(err))
		return
	}
	render.JSON(w, r, OkResponse(status))
}

// PauseQueue 暂停注册队列
// @Summary 暂停注册队列
// @Tags PL/SQL管理
// @Produce json
// @Success 200 {object} APIResponse
// @Router /plsql/queue/pause [post]
func (c *PlsqlController) PauseQueue(w http.ResponseWriter, r *http.Request) {
	if err := c.manage.PauseQueue(r.Context()); err != nil {
		render.JSON(w, r, FailResponse("PAUSE_QUEUE_ERR", err.Error()))
		return
	}
	render.JSON(w, r, OkResponse(nil))
}

// ResumeQueue 恢复注册队列
// @Summary 恢复注册队列
// @Tags PL/SQL管理
// @Produce json
// @Success 200 {object} APIResponse
// @Router /plsql/queue/resume [post]
func (c *PlsqlController) ResumeQueue(w http.ResponseWriter, r *http.Request) {
	if err := c.manage.ResumeQueue(r.Context()); err != nil {
		render.JSON(w, r, FailResponse("RESUME_QUEUE_ERR", err.Error()))
		return
	}
	render.JSON(w, r, OkResponse(nil))
}

// operatorName 从请求头取操作人，管理端透传用户名
func operatorName(r *http.Request) string {
	if name := r.Header.Get("X-Operator"); name != "" {
		return name
	}
	return "SYSADMIN"
}
