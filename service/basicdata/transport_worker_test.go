/*
 * @module service/basicdata/transport_worker_test
 * @description 传输载荷构造与处理信息截断的单元测试
 * @architecture 测试驱动开发 - 纯函数路径不依赖外部组件
 * @documentReference dev_docs/transport_worker.md
 * @stateFlow 构造行集 -> 载荷构造 -> 分组结构验证
 * @rules 覆盖平铺与分组两种载荷形态、子行内嵌的领域字段形态、分组顺序稳定性和截断边界
 * @dependencies testing, testify
 * @refs transport_worker.go, actions.go
 */

package basicdata

import (
	"context"
	"strings"
	"sync"
	"testing"

	"esb-bridge-service/service/meta"
	"esb-bridge-service/service/metadata"
	"esb-bridge-service/service/repository"

	"github.com/spf13/cast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildPayloadFlat 测试未声明分组键时整批平铺
func TestBuildPayloadFlat(t *testing.T) {
	worker := &TransportWorker{config: &TransportInterface{Name: "sales-order"}}
	rows := []map[string]interface{}{
		{"queueId": 1, "orderNo": "SO-001"},
		{"queueId": 2, "orderNo": "SO-002"},
	}

	payload, err := worker.buildPayload(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, rows, payload)
}

// TestBuildPayloadGrouped 测试组合键分组，表头字段提升且组内顺序保持认领顺序
func TestBuildPayloadGrouped(t *testing.T) {
	worker := &TransportWorker{config: &TransportInterface{
		Name:      "sales-order",
		GroupKeys: []string{"orderNo", "customer"},
	}}
	rows := []map[string]interface{}{
		{"queueId": 1, "orderNo": "SO-001", "customer": "C01", "lineNo": 1},
		{"queueId": 2, "orderNo": "SO-001", "customer": "C01", "lineNo": 2},
		{"queueId": 3, "orderNo": "SO-002", "customer": "C02", "lineNo": 1},
	}

	payload, err := worker.buildPayload(context.Background(), rows)
	require.NoError(t, err)

	groups, ok := payload.([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, groups, 2)

	assert.Equal(t, "SO-001", groups[0]["orderNo"])
	assert.Equal(t, "C01", groups[0]["customer"])
	items := groups[0]["items"].([]map[string]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0]["lineNo"])
	assert.Equal(t, 2, items[1]["lineNo"])

	assert.Equal(t, "SO-002", groups[1]["orderNo"])
	items = groups[1]["items"].([]map[string]interface{})
	assert.Len(t, items, 1)
}

// fakeChildRepo 记录子行查询选项并按父键返回预置子行
type fakeChildRepo struct {
	mu   sync.Mutex
	opts []metadata.SelectOptions
	rows map[string][]map[string]interface{}
}

func (f *fakeChildRepo) Find(_ context.Context, opts metadata.SelectOptions) repository.Result {
	f.mu.Lock()
	f.opts = append(f.opts, opts)
	f.mu.Unlock()
	plain := opts.Criteria.(metadata.Plain)
	return repository.Ok(f.rows[cast.ToString(plain["poHeaderId"])])
}

// TestBuildPayloadEmbedChildren 测试子行抓取走子实体列映射，内嵌行携带领域字段名
func TestBuildPayloadEmbedChildren(t *testing.T) {
	lineMapper := metadata.MustColumnMapper(&metadata.EntityMetadata{
		Schema:          "CUX",
		TableOrViewName: "CUX_PO_LINE_TRANSPORT_V",
		PrimaryKey:      &metadata.PrimaryKey{DomainName: "poLineId", PhysicalName: "PO_LINE_ID", SQLType: metadata.SQLTypeNumber},
		Columns: []metadata.ColumnDescriptor{
			{DomainName: "poLineId", PhysicalName: "PO_LINE_ID", SQLType: metadata.SQLTypeNumber},
			{DomainName: "poHeaderId", PhysicalName: "PO_HEADER_ID", SQLType: metadata.SQLTypeNumber},
			{DomainName: "lineNum", PhysicalName: "LINE_NUM", SQLType: metadata.SQLTypeNumber},
		},
	})

	fake := &fakeChildRepo{rows: map[string][]map[string]interface{}{
		"100": {
			{"poLineId": 11, "poHeaderId": 100, "lineNum": 1, "id": 11},
			{"poLineId": 12, "poHeaderId": 100, "lineNum": 2, "id": 12},
		},
	}}
	worker := &TransportWorker{
		config: &TransportInterface{
			Name: "po-order",
			Child: &ChildFetch{
				Mapper:     lineMapper,
				ParentKey:  "poHeaderId",
				ChildKey:   "poHeaderId",
				EmbedField: "lines",
			},
		},
		children: fake,
	}

	rows := []map[string]interface{}{
		{"queueId": 1, "poHeaderId": 100, "poNumber": "PO-100"},
		{"queueId": 2, "poHeaderId": 200, "poNumber": "PO-200"},
	}
	payload, err := worker.buildPayload(context.Background(), rows)
	require.NoError(t, err)

	result, ok := payload.([]map[string]interface{})
	require.True(t, ok)

	lines, ok := result[0]["lines"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, lines, 2)
	assert.Equal(t, 1, lines[0]["lineNum"])
	assert.Equal(t, 11, lines[0]["poLineId"])
	assert.NotContains(t, lines[0], "LINE_NUM")
	assert.NotContains(t, lines[0], "PO_LINE_ID")
	assert.Empty(t, result[1]["lines"])

	// 每个父行一次子行查询，条件打在子行关联键上并按子行主键排序
	require.Len(t, fake.opts, 2)
	parents := make([]interface{}, 0, 2)
	for _, opts := range fake.opts {
		assert.Equal(t, "poLineId", opts.OrderBy)
		plain, ok := opts.Criteria.(metadata.Plain)
		require.True(t, ok)
		parents = append(parents, plain["poHeaderId"])
	}
	assert.ElementsMatch(t, []interface{}{100, 200}, parents)
}

// TestTruncateMessage 测试处理信息按字符数截断
func TestTruncateMessage(t *testing.T) {
	assert.Equal(t, "短消息", TruncateMessage("短消息"))

	long := strings.Repeat("错", meta.ProcessMessageLimit+50)
	truncated := TruncateMessage(long)
	assert.Equal(t, meta.ProcessMessageLimit, len([]rune(truncated)))
	assert.Equal(t, strings.Repeat("错", meta.ProcessMessageLimit), truncated)
}
