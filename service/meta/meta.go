/*
 * @module service/meta
 * @description 领域常量定义：传输行生命周期、接口注册状态、队列命名、任务配置默认值和管理操作错误码
 * @architecture 元数据驱动 - 常量与默认值的单一出处
 * @documentReference dev_docs/transport_worker.md
 * @stateFlow 无状态常量包
 * @rules 生命周期状态与遗留系统保持一致；错误码文案沿用遗留约定
 * @dependencies 无
 * @refs service/basicdata, service/plsql, service/models
 */

package meta

// 传输行生命周期状态
const (
	TransportStatusPending = "PENDING"
	TransportStatusRunning = "RUNNING"
	TransportStatusSuccess = "SUCCESS"
	TransportStatusError   = "ERROR"
)

// 接口注册状态，REGISTING为中间态，失败补偿统一落INVALID
const (
	APIStatusRegisting = "REGISTING"
	APIStatusValid     = "VALID"
	APIStatusInvalid   = "INVALID"
)

// 管理操作错误码，启动守卫拒绝并发重叠运行
const (
	ErrCodeExistActive   = "EXIST ACTIVE"
	ErrCodeExistWaiting  = "EXIST WAITTING"
	ErrCodeExistDelayed  = "EXIST DELAYED"
	ErrCodeNotFound      = "NOT FOUND"
	ErrCodeDuplicateName = "DUPLICATE NAME"
	ErrCodeInvalidParam  = "INVALID PARAM"
	ErrCodeQueueBusy     = "QUEUE BUSY"
)

// 任务配置默认值
const (
	DefaultSleepSeconds      = 30
	DefaultLookbackDays      = 30
	DefaultMaxRowNumber      = 1000
	DefaultTransportRowLimit = 100

	MinSleepSeconds      = 30
	MaxTransportRowLimit = 100
)

// ProcessMessageLimit 传输行处理信息的截断长度
const ProcessMessageLimit = 1000

// 任务名
const (
	JobNameUpdate    = "update"
	JobNameTransport = "transport"
	JobNameRetry     = "retry"
	JobNameRegist    = "regist"
	JobNameCallback  = "callback"
)

// 队列命名
const (
	QueueSuffixUpdate    = "-update"
	QueueSuffixTransport = "-transport"
	QueuePlsqlRegist     = "plsql-regist"
	QueueCallbackPrefix  = "plsql-callback-"
)

// UpdateQueueName 接口的更新扫描队列名
func UpdateQueueName(interfaceName string) string {
	return interfaceName + QueueSuffixUpdate
}

// TransportQueueName 接口的传输队列名
func TransportQueueName(interfaceName string) string {
	return interfaceName + QueueSuffixTransport
}

// CallbackQueueName 来源系统的回调队列名
func CallbackQueueName(sourceSystem string) string {
	return QueueCallbackPrefix + sourceSystem
}
