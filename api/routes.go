/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式；网关路径保留历史ESB信封协议
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers, api/middleware
 */

package api

import (
	"esb-bridge-service/api/controllers"
	apimiddleware "esb-bridge-service/api/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 基础数据传输接口管理
	r.Route("/basic-data", func(r chi.Router) {
		basicDataController := controllers.NewBasicDataController()

		// 已注册传输接口列表
		r.Get("/interfaces", basicDataController.Interfaces)

		r.Route("/{interface}", func(r chi.Router) {
			// 启动传输接口，请求体为任务配置
			r.Post("/start", basicDataController.Start)

			// 停止传输接口，排空并暂停两条队列
			r.Post("/stop", basicDataController.Stop)

			// 状态表分页查询
			r.Post("/list", basicDataController.List)

			// 更新与传输队列状态
			r.Post("/queueStatus", basicDataController.QueueStatus)

			// 任务配置查询
			r.Post("/profile", basicDataController.Profile)
		})
	})

	// PL/SQL接口注册管理与网关
	r.Route("/plsql", func(r chi.Router) {
		plsqlController := controllers.NewPlsqlController()

		// 注册管理
		r.Post("/regist", plsqlController.Regist)
		r.Post("/list", plsqlController.List)
		r.Get("/detail/{id}", plsqlController.Detail)
		r.Post("/edit", plsqlController.Edit)
		r.Post("/invalid/{id}", plsqlController.Invalidate)
		r.Post("/re-regist/{id}", plsqlController.ReRegist)

		// 注册任务运维
		r.Get("/jobs", plsqlController.Jobs)
		r.Get("/jobs/{id}/logs", plsqlController.JobLogs)
		r.Route("/queue", func(r chi.Router) {
			r.Get("/status", plsqlController.QueueStatus)
			r.Post("/pause", plsqlController.PauseQueue)
			r.Post("/resume", plsqlController.ResumeQueue)
		})

		// REST网关，历史客户端按包名.过程名调用，appkey鉴权
		gatewayController := controllers.NewGatewayController()
		r.Route("/restful", func(r chi.Router) {
			r.Use(apimiddleware.NewAppKeyAuthMiddleware().Middleware)
			r.Post("/{packageName}/{procedureName}", gatewayController.Invoke)
		})
	})
}
