/*
 * @module service/taskqueue/queue
 * @description Redis任务队列，提供FIFO与延迟任务、暂停/恢复/清空原语和活跃/等待/延迟计数探查
 * @architecture 队列模式 - Redis列表承载等待与活跃任务，有序集合承载延迟任务
 * @documentReference dev_docs/taskqueue.md
 * @stateFlow 入队(等待或延迟) -> 到期提升 -> 工作者认领转活跃 -> 完成或失败落记录
 * @rules 暂停的队列不派发任务；清空只作用于非活跃状态；任务日志逐行追加到任务记录
 * @dependencies github.com/go-redis/redis/v8, github.com/google/uuid
 * @refs worker.go, service/basicdata, service/plsql
 */

package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// JobState 任务状态
type JobState string

const (
	JobStateWaiting   JobState = "waiting"
	JobStateDelayed   JobState = "delayed"
	JobStateActive    JobState = "active"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// CleanableStates 管理清空操作覆盖的非活跃状态集合
var CleanableStates = []JobState{JobStateWaiting, JobStateDelayed, JobStateCompleted, JobStateFailed}

// Job 队列任务
type Job struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Payload    map[string]interface{} `json:"payload"`
	State      JobState               `json:"state"`
	EnqueuedAt time.Time              `json:"enqueuedAt"`
	StartedAt  *time.Time             `json:"startedAt,omitempty"`
	FinishedAt *time.Time             `json:"finishedAt,omitempty"`
	FailReason string                 `json:"failReason,omitempty"`
}

// Queue Redis任务队列
type Queue struct {
	name   string
	client *redis.Client
}

// NewRedisClient 按环境变量创建Redis客户端
func NewRedisClient() (*redis.Client, error) {
	host := getEnvWithDefault("REDIS_HOST", "localhost")
	port := getEnvWithDefault("REDIS_PORT", "6379")
	password := os.Getenv("REDIS_PASSWORD")
	db := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		fmt.Sscanf(dbStr, "%d", &db)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}
	return client, nil
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// NewQueue 创建队列
func NewQueue(name string, client *redis.Client) *Queue {
	return &Queue{name: name, client: client}
}

// Name 返回队列名
func (q *Queue) Name() string {
	return q.name
}

func (q *Queue) key(suffix string) string {
	return fmt.Sprintf("esbq:%s:%s", q.name, suffix)
}

func (q *Queue) jobKey(jobID string) string {
	return q.key("job:" + jobID)
}

func (q *Queue) logKey(jobID string) string {
	return q.key("log:" + jobID)
}

// saveJob 持久化任务记录
func (q *Queue) saveJob(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.Set(ctx, q.jobKey(job.ID), data, 7*24*time.Hour).Err()
}

// GetJob 读取任务记录
func (q *Queue) GetJob(ctx context.Context, jobID string) (*Job, error) {
	data, err := q.client.Get(ctx, q.jobKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Add 入队等待任务，返回任务ID
func (q *Queue) Add(ctx context.Context, name string, payload map[string]interface{}) (string, error) {
	job := &Job{
		ID:         uuid.New().String(),
		Name:       name,
		Payload:    payload,
		State:      JobStateWaiting,
		EnqueuedAt: time.Now(),
	}
	if err := q.saveJob(ctx, job); err != nil {
		return "", fmt.Errorf("任务记录保存失败: %w", err)
	}
	if err := q.client.LPush(ctx, q.key("wait"), job.ID).Err(); err != nil {
		return "", fmt.Errorf("任务入队失败: %w", err)
	}
	q.recordHistory(ctx, job.ID)
	return job.ID, nil
}

// AddDelayed 入队延迟任务，delay到期后由提升逻辑转入等待队列
func (q *Queue) AddDelayed(ctx context.Context, name string, payload map[string]interface{}, delay time.Duration) (string, error) {
	job := &Job{
		ID:         uuid.New().String(),
		Name:       name,
		Payload:    payload,
		State:      JobStateDelayed,
		EnqueuedAt: time.Now(),
	}
	if err := q.saveJob(ctx, job); err != nil {
		return "", fmt.Errorf("任务记录保存失败: %w", err)
	}
	readyAt := float64(time.Now().Add(delay).UnixMilli())
	if err := q.client.ZAdd(ctx, q.key("delayed"), &redis.Z{Score: readyAt, Member: job.ID}).Err(); err != nil {
		return "", fmt.Errorf("延迟任务入队失败: %w", err)
	}
	q.recordHistory(ctx, job.ID)
	return job.ID, nil
}

// recordHistory 任务ID写入历史列表供管理端回看，保留最近1000个
func (q *Queue) recordHistory(ctx context.Context, jobID string) {
	pipe := q.client.Pipeline()
	pipe.LPush(ctx, q.key("history"), jobID)
	pipe.LTrim(ctx, q.key("history"), 0, 999)
	pipe.Expire(ctx, q.key("history"), 7*24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("任务历史记录失败", "queue", q.name, "job_id", jobID, "error", err)
	}
}

// PendingJobs 返回活跃、等待和延迟状态的任务记录
func (q *Queue) PendingJobs(ctx context.Context) ([]*Job, error) {
	ids := make([]string, 0)
	for _, suffix := range []string{"active", "wait"} {
		listIDs, err := q.client.LRange(ctx, q.key(suffix), 0, -1).Result()
		if err != nil {
			return nil, err
		}
		ids = append(ids, listIDs...)
	}
	delayedIDs, err := q.client.ZRange(ctx, q.key("delayed"), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	ids = append(ids, delayedIDs...)

	jobs := make([]*Job, 0, len(ids))
	for _, id := range ids {
		if job, _ := q.GetJob(ctx, id); job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// ListJobs 按入队先后倒序返回最近的任务记录，limit不大于历史保留量
func (q *Queue) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 100
	}
	ids, err := q.client.LRange(ctx, q.key("history"), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	jobs := make([]*Job, 0, len(ids))
	for _, id := range ids {
		if job, _ := q.GetJob(ctx, id); job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// promoteDue 把到期的延迟任务提升到等待队列
func (q *Queue) promoteDue(ctx context.Context) error {
	now := fmt.Sprintf("%d", time.Now().UnixMilli())
	jobIDs, err := q.client.ZRangeByScore(ctx, q.key("delayed"), &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil {
		return err
	}
	for _, jobID := range jobIDs {
		removed, err := q.client.ZRem(ctx, q.key("delayed"), jobID).Result()
		if err != nil || removed == 0 {
			continue
		}
		if job, _ := q.GetJob(ctx, jobID); job != nil {
			job.State = JobStateWaiting
			_ = q.saveJob(ctx, job)
		}
		if err := q.client.LPush(ctx, q.key("wait"), jobID).Err(); err != nil {
			return err
		}
	}
	return nil
}

// claim 认领一个等待任务转入活跃，队列暂停或无任务时返回nil
func (q *Queue) claim(ctx context.Context) (*Job, error) {
	paused, err := q.IsPaused(ctx)
	if err != nil || paused {
		return nil, err
	}

	if err := q.promoteDue(ctx); err != nil {
		return nil, err
	}

	jobID, err := q.client.RPopLPush(ctx, q.key("wait"), q.key("active")).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	job, err := q.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		// 任务记录已过期，丢弃残留ID
		q.client.LRem(ctx, q.key("active"), 0, jobID)
		return nil, nil
	}

	now := time.Now()
	job.State = JobStateActive
	job.StartedAt = &now
	if err := q.saveJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// finish 任务完成或失败，移出活跃列表并落记录
func (q *Queue) finish(ctx context.Context, job *Job, failReason string) {
	q.client.LRem(ctx, q.key("active"), 0, job.ID)
	now := time.Now()
	job.FinishedAt = &now
	if failReason != "" {
		job.State = JobStateFailed
		job.FailReason = failReason
	} else {
		job.State = JobStateCompleted
	}
	if err := q.saveJob(ctx, job); err != nil {
		slog.Error("任务完成记录保存失败", "queue", q.name, "job_id", job.ID, "error", err)
	}
}

// AppendLog 向任务记录追加一行日志
func (q *Queue) AppendLog(ctx context.Context, jobID, line string) {
	entry := fmt.Sprintf("%s %s", time.Now().Format("2006-01-02 15:04:05.000"), line)
	if err := q.client.RPush(ctx, q.logKey(jobID), entry).Err(); err != nil {
		slog.Error("任务日志追加失败", "queue", q.name, "job_id", jobID, "error", err)
		return
	}
	q.client.Expire(ctx, q.logKey(jobID), 7*24*time.Hour)
}

// GetLogs 读取任务日志
func (q *Queue) GetLogs(ctx context.Context, jobID string) ([]string, error) {
	return q.client.LRange(ctx, q.logKey(jobID), 0, -1).Result()
}

// Pause 暂停队列派发
func (q *Queue) Pause(ctx context.Context) error {
	return q.client.Set(ctx, q.key("paused"), "1", 0).Err()
}

// Resume 恢复队列派发
func (q *Queue) Resume(ctx context.Context) error {
	return q.client.Del(ctx, q.key("paused")).Err()
}

// IsPaused 检查队列是否暂停
func (q *Queue) IsPaused(ctx context.Context) (bool, error) {
	exists, err := q.client.Exists(ctx, q.key("paused")).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// GetWaitingCount 等待任务数
func (q *Queue) GetWaitingCount(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key("wait")).Result()
}

// GetActiveCount 活跃任务数
func (q *Queue) GetActiveCount(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key("active")).Result()
}

// GetDelayedCount 延迟任务数
func (q *Queue) GetDelayedCount(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.key("delayed")).Result()
}

// Status 队列状态汇总
type Status struct {
	Name    string `json:"name"`
	Paused  bool   `json:"paused"`
	Waiting int64  `json:"waiting"`
	Active  int64  `json:"active"`
	Delayed int64  `json:"delayed"`
}

// GetStatus 返回队列状态汇总
func (q *Queue) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{Name: q.name}
	var err error
	if status.Paused, err = q.IsPaused(ctx); err != nil {
		return nil, err
	}
	if status.Waiting, err = q.GetWaitingCount(ctx); err != nil {
		return nil, err
	}
	if status.Active, err = q.GetActiveCount(ctx); err != nil {
		return nil, err
	}
	if status.Delayed, err = q.GetDelayedCount(ctx); err != nil {
		return nil, err
	}
	return status, nil
}

// Clean 清空指定状态的任务，活跃任务不受影响
func (q *Queue) Clean(ctx context.Context, states ...JobState) error {
	for _, state := range states {
		switch state {
		case JobStateWaiting:
			if err := q.client.Del(ctx, q.key("wait")).Err(); err != nil {
				return fmt.Errorf("清空等待任务失败: %w", err)
			}
		case JobStateDelayed:
			if err := q.client.Del(ctx, q.key("delayed")).Err(); err != nil {
				return fmt.Errorf("清空延迟任务失败: %w", err)
			}
		case JobStateCompleted, JobStateFailed:
			// 完成与失败记录按TTL自然过期，无独立索引可清
		case JobStateActive:
			// 活跃任务不清空，由其自身运行结束
		}
	}
	return nil
}

// Drain 清空等待与延迟任务
func (q *Queue) Drain(ctx context.Context) error {
	return q.Clean(ctx, JobStateWaiting, JobStateDelayed)
}
