/*
 * @module service/basicdata/config
 * @description 传输接口描述符，静态声明每个ETL接口的状态表元数据、标记过程、批次序列和目的端配置
 * @architecture 元数据驱动 - 接口描述符注册表
 * @documentReference dev_docs/transport_worker.md
 * @stateFlow 启动期注册描述符 -> 接口服务按名装配队列与工作者
 * @rules 状态表必须包含queueId/processStatus/transportBatch/processMessage列；分组与子行抓取按需声明
 * @dependencies service/metadata
 * @refs actions.go, transport_worker.go, interface_service.go
 */

package basicdata

import (
	"esb-bridge-service/service/metadata"
)

// 状态表的固定领域字段
const (
	FieldQueueID        = "queueId"
	FieldProcessStatus  = "processStatus"
	FieldTransportBatch = "transportBatch"
	FieldProcessMessage = "processMessage"
)

// ChildFetch 子行抓取配置，分组传输时按父行键并发抓取子行并内嵌
type ChildFetch struct {
	Mapper     *metadata.ColumnMapper // 子行视图的列映射
	ParentKey  string                 // 父行上的关联字段
	ChildKey   string                 // 子行上的关联字段
	EmbedField string                 // 内嵌到父行载荷的字段名
}

// TransportInterface 传输接口描述符
type TransportInterface struct {
	Name          string                 // 接口名，同时作为队列名前缀
	Mapper        *metadata.ColumnMapper // 状态表/视图的列映射
	MarkProcedure string                 // 标记变更行的存储过程，schema.package.procedure
	BatchSequence string                 // 传输批次序列，schema.sequence
	TargetURL     string                 // ESB目的端URL
	GroupKeys     []string               // 分组传输的组合键，为空时整批平铺
	Child         *ChildFetch            // 子行抓取配置，为nil时不抓取
	CursorFeed    bool                   // 游标推送模式：按页推送直到游标不再推进
	PageSize      int                    // 游标推送模式的页大小
}
