/*
 * @module service/monitoring/metrics
 * @description 传输与网关的Prometheus指标定义，经/metrics端点暴露
 * @architecture 观测层 - 指标采集
 * @documentReference dev_docs/transport_worker.md
 * @stateFlow 工作者与网关在关键路径打点 -> promhttp拉取
 * @rules 指标按接口名和结果维度打标签；注册一次，包级单例
 * @dependencies github.com/prometheus/client_golang
 * @refs service/basicdata, service/plsql
 */

package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransportRowsTotal 按接口和终态统计的传输行数
	TransportRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "esb_transport_rows_total",
		Help: "按接口和终态统计的传输行数",
	}, []string{"interface", "status"})

	// TransportBatchesTotal 按接口和结果统计的传输批次数
	TransportBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "esb_transport_batches_total",
		Help: "按接口和结果统计的传输批次数",
	}, []string{"interface", "result"})

	// RetryJobsTotal 按接口统计的单行重试任务数
	RetryJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "esb_retry_jobs_total",
		Help: "按接口统计的单行重试任务数",
	}, []string{"interface"})

	// EsbCallDuration ESB外呼耗时分布
	EsbCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "esb_call_duration_seconds",
		Help:    "ESB外呼耗时分布",
		Buckets: prometheus.DefBuckets,
	}, []string{"interface"})

	// GatewayRequestsTotal 按业务接口和结果统计的网关调用数
	GatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "esb_gateway_requests_total",
		Help: "按业务接口和结果统计的网关调用数",
	}, []string{"biz_name", "result"})
)
