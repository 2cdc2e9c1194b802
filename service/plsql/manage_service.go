/*
 * @module service/plsql/manage_service
 * @description 接口注册管理服务：提交注册任务、接口列表与编辑、失效、重新注册和注册队列运维
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/plsql_gateway.md
 * @stateFlow 提交注册任务（同名守卫） -> 注册工作者异步执行 -> 管理端查看任务与日志
 * @rules 同一接口名的注册任务在队列中未终结时拒绝重复提交；失效操作影响行数为0时报无对应数据
 * @dependencies gorm.io/gorm, service/taskqueue
 * @refs regist_worker.go, gateway.go, api/controllers
 */

package plsql

import (
	"context"
	"errors"
	"fmt"

	"esb-bridge-service/service/meta"
	"esb-bridge-service/service/models"
	"esb-bridge-service/service/taskqueue"

	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// RegistParams 注册提交参数
type RegistParams struct {
	PackageName   string `json:"packageName"`
	ProcedureName string `json:"procedureName"`
	BizName       string `json:"bizName"`
	Remark        string `json:"remark"`
	UpdatedBy     string `json:"updatedBy"`
}

// RouteList 接口分页列表
type RouteList struct {
	Items []models.ApiRoute `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Size  int               `json:"size"`
}

// JobSummary 注册任务摘要
type JobSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// ManageService 接口注册管理服务
type ManageService struct {
	db          *gorm.DB
	registQueue *taskqueue.Queue
}

// NewManageService 创建管理服务
func NewManageService(db *gorm.DB, registQueue *taskqueue.Queue) *ManageService {
	return &ManageService{db: db, registQueue: registQueue}
}

// SubmitRegist 提交接口注册任务
// 同一接口名在注册队列中存在未终结任务时拒绝，防止并发注册互相覆盖
func (s *ManageService) SubmitRegist(ctx context.Context, params RegistParams) (string, error) {
	if params.PackageName == "" || params.ProcedureName == "" || params.BizName == "" {
		return "", meta.NewOpError(meta.ErrCodeInvalidParam, "packageName、procedureName和bizName不能为空")
	}
	if params.UpdatedBy == "" {
		params.UpdatedBy = "SYSADMIN"
	}
	origName := params.PackageName + "." + params.ProcedureName

	pending, err := s.registQueue.PendingJobs(ctx)
	if err != nil {
		return "", fmt.Errorf("注册队列检查失败: %w", err)
	}
	for _, job := range pending {
		if cast.ToString(job.Payload["origName"]) == origName {
			return "", meta.NewOpError(meta.ErrCodeDuplicateName, "当前接口的注册正在进行中，请稍后再试")
		}
	}

	route, err := s.upsertRoute(params, origName)
	if err != nil {
		return "", err
	}

	jobID, err := s.registQueue.Add(ctx, meta.JobNameRegist, map[string]interface{}{
		"routeId":  route.ID,
		"origName": origName,
	})
	if err != nil {
		return "", fmt.Errorf("注册任务入队失败: %w", err)
	}
	return jobID, nil
}

// upsertRoute 登记或重置接口记录，重新注册复用原记录并回到REGISTING
func (s *ManageService) upsertRoute(params RegistParams, origName string) (*models.ApiRoute, error) {
	var existing models.ApiRoute
	err := s.db.First(&existing, "orig_name = ?", origName).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var conflict models.ApiRoute
		if err := s.db.First(&conflict, "biz_name = ?", params.BizName).Error; err == nil {
			return nil, meta.NewOpError(meta.ErrCodeDuplicateName,
				fmt.Sprintf("业务接口名已被%s占用", conflict.OrigName))
		}

		created := models.ApiRoute{
			BizName:       params.BizName,
			PackageName:   params.PackageName,
			ProcedureName: params.ProcedureName,
			Remark:        params.Remark,
			CreatedBy:     params.UpdatedBy,
		}
		if err := s.db.Create(&created).Error; err != nil {
			return nil, fmt.Errorf("接口记录创建失败: %w", err)
		}
		return &created, nil
	}
	if err != nil {
		return nil, fmt.Errorf("接口记录读取失败: %w", err)
	}

	if err := s.db.Model(&existing).Updates(map[string]interface{}{
		"biz_name": params.BizName,
		"remark":   params.Remark,
		"status":   meta.APIStatusRegisting,
	}).Error; err != nil {
		return nil, fmt.Errorf("接口记录重置失败: %w", err)
	}
	existing.BizName = params.BizName
	existing.Remark = params.Remark
	existing.Status = meta.APIStatusRegisting
	return &existing, nil
}

// List 接口分页列表，bizName与origName按包含匹配过滤
func (s *ManageService) List(bizName, origName string, page, size int) (*RouteList, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}

	query := s.db.Model(&models.ApiRoute{})
	if bizName != "" {
		query = query.Where("biz_name LIKE ?", "%"+bizName+"%")
	}
	if origName != "" {
		query = query.Where("orig_name LIKE ?", "%"+origName+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("接口列表计数失败: %w", err)
	}

	var items []models.ApiRoute
	if err := query.Order("updated_at DESC").
		Offset((page - 1) * size).Limit(size).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("接口列表查询失败: %w", err)
	}

	return &RouteList{Items: items, Total: total, Page: page, Size: size}, nil
}

// Detail 查询单个接口
func (s *ManageService) Detail(id string) (*models.ApiRoute, error) {
	var route models.ApiRoute
	err := s.db.First(&route, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, meta.NewOpError(meta.ErrCodeNotFound, "没有找到对应的接口数据")
	}
	if err != nil {
		return nil, fmt.Errorf("接口查询失败: %w", err)
	}
	return &route, nil
}

// Edit 编辑接口的业务名与备注
func (s *ManageService) Edit(id, bizName, remark string) error {
	result := s.db.Model(&models.ApiRoute{}).Where("id = ?", id).Updates(map[string]interface{}{
		"biz_name": bizName,
		"remark":   remark,
	})
	if result.Error != nil {
		return fmt.Errorf("接口编辑失败: %w", result.Error)
	}
	if result.RowsAffected < 1 {
		return meta.NewOpError(meta.ErrCodeNotFound, "没有对应的接口数据")
	}
	return nil
}

// Invalidate 失效接口，拒绝后续网关调用
func (s *ManageService) Invalidate(id, updatedBy string) error {
	result := s.db.Model(&models.ApiRoute{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     meta.APIStatusInvalid,
		"created_by": updatedBy,
	})
	if result.Error != nil {
		return fmt.Errorf("接口失效失败: %w", result.Error)
	}
	if result.RowsAffected < 1 {
		return meta.NewOpError(meta.ErrCodeNotFound, "没有对应的接口数据")
	}
	return nil
}

// ReRegist 按已有记录重新提交注册
func (s *ManageService) ReRegist(ctx context.Context, id, updatedBy string) (string, error) {
	route, err := s.Detail(id)
	if err != nil {
		return "", err
	}
	return s.SubmitRegist(ctx, RegistParams{
		PackageName:   route.PackageName,
		ProcedureName: route.ProcedureName,
		BizName:       route.BizName,
		Remark:        route.Remark,
		UpdatedBy:     updatedBy,
	})
}

// ListJobs 最近的注册任务列表
func (s *ManageService) ListJobs(ctx context.Context) ([]JobSummary, error) {
	jobs, err := s.registQueue.ListJobs(ctx, 100)
	if err != nil {
		return nil, fmt.Errorf("注册任务列表查询失败: %w", err)
	}
	summaries := make([]JobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, JobSummary{
			ID:     job.ID,
			Name:   cast.ToString(job.Payload["origName"]),
			Status: string(job.State),
		})
	}
	return summaries, nil
}

// JobLogs 注册任务执行日志
func (s *ManageService) JobLogs(ctx context.Context, jobID string) ([]string, error) {
	return s.registQueue.GetLogs(ctx, jobID)
}

// QueueStatus 注册队列状态
func (s *ManageService) QueueStatus(ctx context.Context) (*taskqueue.Status, error) {
	return s.registQueue.GetStatus(ctx)
}

// PauseQueue 暂停注册队列
func (s *ManageService) PauseQueue(ctx context.Context) error {
	return s.registQueue.Pause(ctx)
}

// ResumeQueue 恢复注册队列
func (s *ManageService) ResumeQueue(ctx context.Context) error {
	return s.registQueue.Resume(ctx)
}
