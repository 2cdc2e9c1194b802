/*
 * @module service/basicdata/interface_service
 * @description 传输接口运行时注册表，装配队列与工作者，提供启动、停止、队列状态和状态表查询的管理入口
 * @architecture 分层架构 - 服务层，按接口名路由到运行时
 * @documentReference dev_docs/transport_worker.md
 * @stateFlow 注册期建队列并暂停 -> 启动守卫通过后清队、写配置、恢复队列并投递首个更新任务 -> 停止时排空并暂停
 * @rules 任一队列存在活动/等待/延迟任务时拒绝启动；停止不打断活动中的任务
 * @dependencies service/taskqueue, github.com/go-redis/redis/v8
 * @refs update_worker.go, transport_worker.go, api/controllers
 */

package basicdata

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"esb-bridge-service/service/esb"
	"esb-bridge-service/service/events"
	"esb-bridge-service/service/meta"
	"esb-bridge-service/service/metadata"
	"esb-bridge-service/service/models"
	"esb-bridge-service/service/notify"
	"esb-bridge-service/service/repository"
	"esb-bridge-service/service/taskqueue"

	"github.com/go-redis/redis/v8"
)

// InterfaceRuntime 单个传输接口的运行时：队列、工作者和状态表操作
type InterfaceRuntime struct {
	Config          *TransportInterface
	Actions         *TransportActions
	UpdateQueue     *taskqueue.Queue
	TransportQueue  *taskqueue.Queue
	updateWorker    *taskqueue.Worker
	transportWorker *taskqueue.Worker
}

// InterfaceService 传输接口注册表
type InterfaceService struct {
	runtimes map[string]*InterfaceRuntime
	profiles *ProfileService
	client   *redis.Client

	esbClient *esb.Client
	publisher *events.Publisher
	notifier  *notify.MQTTNotifier
}

// NewInterfaceService 创建接口注册表
func NewInterfaceService(profiles *ProfileService, client *redis.Client,
	esbClient *esb.Client, publisher *events.Publisher, notifier *notify.MQTTNotifier) *InterfaceService {
	return &InterfaceService{
		runtimes:  make(map[string]*InterfaceRuntime),
		profiles:  profiles,
		client:    client,
		esbClient: esbClient,
		publisher: publisher,
		notifier:  notifier,
	}
}

// Register 注册传输接口并装配运行时
// 队列注册即暂停，必须经显式启动才开始消费，避免重启后残留任务立刻执行
func (s *InterfaceService) Register(ctx context.Context, config *TransportInterface, repo *repository.Repository) error {
	if _, exists := s.runtimes[config.Name]; exists {
		return fmt.Errorf("传输接口重复注册: %s", config.Name)
	}

	actions := NewTransportActions(config, repo)
	updateQueue := taskqueue.NewQueue(meta.UpdateQueueName(config.Name), s.client)
	transportQueue := taskqueue.NewQueue(meta.TransportQueueName(config.Name), s.client)

	if err := updateQueue.Pause(ctx); err != nil {
		return fmt.Errorf("更新队列初始暂停失败: %w", err)
	}
	if err := transportQueue.Pause(ctx); err != nil {
		return fmt.Errorf("传输队列初始暂停失败: %w", err)
	}

	updateWorker := NewUpdateWorker(config, actions, s.profiles, updateQueue, transportQueue)
	transportWorker := NewTransportWorker(config, actions, transportQueue, s.esbClient, s.publisher, s.notifier)

	runtime := &InterfaceRuntime{
		Config:          config,
		Actions:         actions,
		UpdateQueue:     updateQueue,
		TransportQueue:  transportQueue,
		updateWorker:    taskqueue.NewWorker(updateQueue, updateWorker.Handle, 1),
		transportWorker: taskqueue.NewWorker(transportQueue, transportWorker.Handle, 1),
	}
	runtime.updateWorker.Start(ctx)
	runtime.transportWorker.Start(ctx)

	s.runtimes[config.Name] = runtime
	slog.Info("传输接口注册完成", "interface", config.Name)
	return nil
}

// Names 按字典序返回已注册接口名
func (s *InterfaceService) Names() []string {
	names := make([]string, 0, len(s.runtimes))
	for name := range s.runtimes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Runtime 按名查找运行时
func (s *InterfaceService) Runtime(name string) (*InterfaceRuntime, error) {
	runtime, exists := s.runtimes[name]
	if !exists {
		return nil, meta.NewOpError(meta.ErrCodeNotFound, fmt.Sprintf("传输接口不存在: %s", name))
	}
	return runtime, nil
}

// guardIdle 启动守卫：两条队列上任何活动、等待或延迟任务都拒绝启动
// 活动优先于等待、等待优先于延迟报告，便于运维定位重叠来源
func (s *InterfaceService) guardIdle(ctx context.Context, runtime *InterfaceRuntime) error {
	statuses := make([]*taskqueue.Status, 0, 2)
	for _, queue := range []*taskqueue.Queue{runtime.UpdateQueue, runtime.TransportQueue} {
		status, err := queue.GetStatus(ctx)
		if err != nil {
			return fmt.Errorf("队列状态查询失败: %w", err)
		}
		statuses = append(statuses, status)
	}
	for _, status := range statuses {
		if status.Active > 0 {
			return meta.NewOpError(meta.ErrCodeExistActive, fmt.Sprintf("队列%s存在活动任务", status.Name))
		}
	}
	for _, status := range statuses {
		if status.Waiting > 0 {
			return meta.NewOpError(meta.ErrCodeExistWaiting, fmt.Sprintf("队列%s存在等待任务", status.Name))
		}
	}
	for _, status := range statuses {
		if status.Delayed > 0 {
			return meta.NewOpError(meta.ErrCodeExistDelayed, fmt.Sprintf("队列%s存在延迟任务", status.Name))
		}
	}
	return nil
}

// Start 启动传输接口：守卫通过后清理非活跃残留、持久化配置、恢复队列并投递首个更新任务
func (s *InterfaceService) Start(ctx context.Context, name string, profile map[string]interface{}) error {
	runtime, err := s.Runtime(name)
	if err != nil {
		return err
	}

	if err := s.guardIdle(ctx, runtime); err != nil {
		return err
	}

	for _, queue := range []*taskqueue.Queue{runtime.UpdateQueue, runtime.TransportQueue} {
		if err := queue.Clean(ctx, taskqueue.CleanableStates...); err != nil {
			return fmt.Errorf("队列清理失败: %w", err)
		}
	}

	if profile == nil {
		profile = map[string]interface{}{}
	}
	if _, err := s.profiles.Upsert(name, profile); err != nil {
		return meta.NewOpError(meta.ErrCodeInvalidParam, err.Error())
	}

	if err := runtime.UpdateQueue.Resume(ctx); err != nil {
		return fmt.Errorf("更新队列恢复失败: %w", err)
	}
	if err := runtime.TransportQueue.Resume(ctx); err != nil {
		return fmt.Errorf("传输队列恢复失败: %w", err)
	}

	if _, err := runtime.UpdateQueue.Add(ctx, meta.JobNameUpdate, map[string]interface{}{}); err != nil {
		return fmt.Errorf("更新任务投递失败: %w", err)
	}

	s.publisher.Publish(ctx, events.TransportEvent{Type: events.EventInterfaceStart, InterfaceName: name})
	slog.Info("传输接口启动", "interface", name)
	return nil
}

// Stop 停止传输接口：排空等待与延迟任务并暂停两条队列，活动中的任务执行完自然终止
func (s *InterfaceService) Stop(ctx context.Context, name string) error {
	runtime, err := s.Runtime(name)
	if err != nil {
		return err
	}

	for _, queue := range []*taskqueue.Queue{runtime.UpdateQueue, runtime.TransportQueue} {
		if err := queue.Drain(ctx); err != nil {
			return fmt.Errorf("队列排空失败: %w", err)
		}
		if err := queue.Pause(ctx); err != nil {
			return fmt.Errorf("队列暂停失败: %w", err)
		}
	}

	s.publisher.Publish(ctx, events.TransportEvent{Type: events.EventInterfaceStop, InterfaceName: name})
	slog.Info("传输接口停止", "interface", name)
	return nil
}

// QueueStatus 返回接口两条队列的状态汇总
func (s *InterfaceService) QueueStatus(ctx context.Context, name string) (map[string]*taskqueue.Status, error) {
	runtime, err := s.Runtime(name)
	if err != nil {
		return nil, err
	}

	updateStatus, err := runtime.UpdateQueue.GetStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("更新队列状态查询失败: %w", err)
	}
	transportStatus, err := runtime.TransportQueue.GetStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("传输队列状态查询失败: %w", err)
	}
	return map[string]*taskqueue.Status{
		"update":    updateStatus,
		"transport": transportStatus,
	}, nil
}

// Profile 返回接口当前配置
func (s *InterfaceService) Profile(name string) (*models.JobProfile, error) {
	if _, err := s.Runtime(name); err != nil {
		return nil, err
	}
	return s.profiles.Get(name)
}

// List 分页查询接口状态表
func (s *InterfaceService) List(ctx context.Context, name string, criteria metadata.Criteria, page, size int) (repository.Result, error) {
	runtime, err := s.Runtime(name)
	if err != nil {
		return repository.Result{}, err
	}
	return runtime.Actions.ListWithPagination(ctx, criteria, page, size), nil
}

// Shutdown 停止全部工作者循环，进程退出前调用
func (s *InterfaceService) Shutdown() {
	for _, runtime := range s.runtimes {
		runtime.updateWorker.Stop()
		runtime.transportWorker.Stop()
	}
}
