/*
 * @module service/transport_interfaces
 * @description 传输接口静态注册表，声明每个ETL接口的状态视图元数据、标记过程、批次序列和目的端
 * @architecture 元数据驱动 - 编译期声明替代运行时字典
 * @documentReference dev_docs/transport_worker.md
 * @stateFlow 应用启动时逐个注册到接口服务
 * @rules 状态视图必须声明queueId/processStatus/transportBatch/processMessage四个固定字段
 * @dependencies service/basicdata, service/metadata
 * @refs service/init.go
 */

package service

import (
	"esb-bridge-service/service/basicdata"
	"esb-bridge-service/service/metadata"
)

// transportFixedColumns 状态视图的固定控制列
func transportFixedColumns() []metadata.ColumnDescriptor {
	return []metadata.ColumnDescriptor{
		{DomainName: basicdata.FieldQueueID, PhysicalName: "QUEUE_ID", SQLType: metadata.SQLTypeNumber},
		{DomainName: basicdata.FieldProcessStatus, PhysicalName: "PROCESS_STATUS", SQLType: metadata.SQLTypeString, Updatable: true},
		{DomainName: basicdata.FieldTransportBatch, PhysicalName: "TRANSPORT_BATCH", SQLType: metadata.SQLTypeNumber, Updatable: true},
		{DomainName: basicdata.FieldProcessMessage, PhysicalName: "PROCESS_MESSAGE", SQLType: metadata.SQLTypeString, Updatable: true},
	}
}

// itemMasterMapper 物料主数据状态视图
var itemMasterMapper = metadata.MustColumnMapper(&metadata.EntityMetadata{
	Schema:          "CUX",
	TableOrViewName: "CUX_ITEM_TRANSPORT_V",
	PrimaryKey:      &metadata.PrimaryKey{DomainName: basicdata.FieldQueueID, PhysicalName: "QUEUE_ID", SQLType: metadata.SQLTypeNumber},
	Columns: append(transportFixedColumns(),
		metadata.ColumnDescriptor{DomainName: "itemCode", PhysicalName: "ITEM_CODE", SQLType: metadata.SQLTypeString},
		metadata.ColumnDescriptor{DomainName: "itemDesc", PhysicalName: "ITEM_DESC", SQLType: metadata.SQLTypeString},
		metadata.ColumnDescriptor{DomainName: "primaryUom", PhysicalName: "PRIMARY_UOM", SQLType: metadata.SQLTypeString},
		metadata.ColumnDescriptor{DomainName: "itemStatus", PhysicalName: "ITEM_STATUS", SQLType: metadata.SQLTypeString},
		metadata.ColumnDescriptor{DomainName: "lastUpdateDate", PhysicalName: "LAST_UPDATE_DATE", SQLType: metadata.SQLTypeDate},
	),
})

// poOrderMapper 采购订单头状态视图，分组传输时行上的头字段作为组键
var poOrderMapper = metadata.MustColumnMapper(&metadata.EntityMetadata{
	Schema:          "CUX",
	TableOrViewName: "CUX_PO_TRANSPORT_V",
	PrimaryKey:      &metadata.PrimaryKey{DomainName: basicdata.FieldQueueID, PhysicalName: "QUEUE_ID", SQLType: metadata.SQLTypeNumber},
	Columns: append(transportFixedColumns(),
		metadata.ColumnDescriptor{DomainName: "poHeaderId", PhysicalName: "PO_HEADER_ID", SQLType: metadata.SQLTypeNumber},
		metadata.ColumnDescriptor{DomainName: "poNumber", PhysicalName: "PO_NUMBER", SQLType: metadata.SQLTypeString},
		metadata.ColumnDescriptor{DomainName: "vendorCode", PhysicalName: "VENDOR_CODE", SQLType: metadata.SQLTypeString},
		metadata.ColumnDescriptor{DomainName: "orderDate", PhysicalName: "ORDER_DATE", SQLType: metadata.SQLTypeDate},
		metadata.ColumnDescriptor{DomainName: "orderStatus", PhysicalName: "ORDER_STATUS", SQLType: metadata.SQLTypeString},
	),
})

// poLineMapper 采购订单行视图，按poHeaderId抓取后内嵌到头载荷
var poLineMapper = metadata.MustColumnMapper(&metadata.EntityMetadata{
	Schema:          "CUX",
	TableOrViewName: "CUX_PO_LINE_TRANSPORT_V",
	PrimaryKey:      &metadata.PrimaryKey{DomainName: "poLineId", PhysicalName: "PO_LINE_ID", SQLType: metadata.SQLTypeNumber},
	Columns: []metadata.ColumnDescriptor{
		{DomainName: "poLineId", PhysicalName: "PO_LINE_ID", SQLType: metadata.SQLTypeNumber},
		{DomainName: "poHeaderId", PhysicalName: "PO_HEADER_ID", SQLType: metadata.SQLTypeNumber},
		{DomainName: "lineNum", PhysicalName: "LINE_NUM", SQLType: metadata.SQLTypeNumber},
		{DomainName: "itemCode", PhysicalName: "ITEM_CODE", SQLType: metadata.SQLTypeString},
		{DomainName: "quantity", PhysicalName: "QUANTITY", SQLType: metadata.SQLTypeNumber},
		{DomainName: "unitPrice", PhysicalName: "UNIT_PRICE", SQLType: metadata.SQLTypeNumber},
	},
})

// onhandMapper 现有量状态视图，游标推送模式按页全量推送
var onhandMapper = metadata.MustColumnMapper(&metadata.EntityMetadata{
	Schema:          "CUX",
	TableOrViewName: "CUX_ONHAND_TRANSPORT_V",
	PrimaryKey:      &metadata.PrimaryKey{DomainName: basicdata.FieldQueueID, PhysicalName: "QUEUE_ID", SQLType: metadata.SQLTypeNumber},
	Columns: append(transportFixedColumns(),
		metadata.ColumnDescriptor{DomainName: "organizationCode", PhysicalName: "ORGANIZATION_CODE", SQLType: metadata.SQLTypeString},
		metadata.ColumnDescriptor{DomainName: "itemCode", PhysicalName: "ITEM_CODE", SQLType: metadata.SQLTypeString},
		metadata.ColumnDescriptor{DomainName: "subinventory", PhysicalName: "SUBINVENTORY", SQLType: metadata.SQLTypeString},
		metadata.ColumnDescriptor{DomainName: "onhandQuantity", PhysicalName: "ONHAND_QUANTITY", SQLType: metadata.SQLTypeNumber},
	),
})

// transportInterfaces 返回全部传输接口描述符，目的端URL从环境读取
func transportInterfaces() []*basicdata.TransportInterface {
	return []*basicdata.TransportInterface{
		{
			Name:          "item-master",
			Mapper:        itemMasterMapper,
			MarkProcedure: "CUX.CUX_ITEM_TRANSPORT_PKG.MARK_CHANGED",
			BatchSequence: "CUX.CUX_TRANSPORT_BATCH_S",
			TargetURL:     getEnvWithDefault("ESB_ITEM_MASTER_URL", "http://esb.local/services/itemMaster"),
		},
		{
			Name:          "po-order",
			Mapper:        poOrderMapper,
			MarkProcedure: "CUX.CUX_PO_TRANSPORT_PKG.MARK_CHANGED",
			BatchSequence: "CUX.CUX_TRANSPORT_BATCH_S",
			TargetURL:     getEnvWithDefault("ESB_PO_ORDER_URL", "http://esb.local/services/poOrder"),
			GroupKeys:     []string{"poHeaderId", "poNumber", "vendorCode", "orderDate", "orderStatus"},
			Child: &basicdata.ChildFetch{
				Mapper:     poLineMapper,
				ParentKey:  "poHeaderId",
				ChildKey:   "poHeaderId",
				EmbedField: "lines",
			},
		},
		{
			Name:          "onhand-stock",
			Mapper:        onhandMapper,
			MarkProcedure: "CUX.CUX_ONHAND_TRANSPORT_PKG.MARK_CHANGED",
			BatchSequence: "CUX.CUX_TRANSPORT_BATCH_S",
			TargetURL:     getEnvWithDefault("ESB_ONHAND_URL", "http://esb.local/services/onhandStock"),
			CursorFeed:    true,
			PageSize:      200,
		},
	}
}
