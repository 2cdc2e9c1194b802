/*
 * @module service/metadata/statement_test
 * @description 语句构建器的单元测试，覆盖查询、分页窗口、插入回填、批量同构校验和更新删除
 * @architecture 单元测试 - 构建期语义验证，不触发任何IO
 * @documentReference dev_docs/statement_builder.md
 * @stateFlow 构建语句 -> 验证SQL文本和绑定集 -> 验证构建期错误
 * @rules 构建期错误在生成任何SQL之前返回；分页窗口区间为[((p-1)*s)+1, p*s]
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs statement.go
 */

package metadata

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatementBuilder_BuildSelect_Basic(t *testing.T) {
	builder := NewStatementBuilder(testMapper(t))

	stmt, err := builder.BuildSelect(SelectOptions{
		Fields:   []string{"bizName", "status"},
		Criteria: Plain{"status": "VALID"},
	})

	assert.NoError(t, err)
	assert.Contains(t, stmt.SQL, `BIZ_NAME AS "bizName"`)
	assert.Contains(t, stmt.SQL, `STATUS AS "status"`)
	// 主键列始终参与投影
	assert.Contains(t, stmt.SQL, `API_ID AS "apiId"`)
	assert.Contains(t, stmt.SQL, "WHERE 1 = 1 AND STATUS = :p_status")
	assert.Equal(t, "VALID", stmt.Binds["p_status"].Value)
	assert.True(t, stmt.Options.AutoCommit)
	assert.False(t, stmt.Options.FetchClobAsString)
}

func TestStatementBuilder_BuildSelect_InvalidField(t *testing.T) {
	builder := NewStatementBuilder(testMapper(t))

	_, err := builder.BuildSelect(SelectOptions{Fields: []string{"noSuchField"}})

	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidField))
}

func TestStatementBuilder_BuildSelect_ClobFetchHint(t *testing.T) {
	builder := NewStatementBuilder(testMapper(t))

	stmt, err := builder.BuildSelect(SelectOptions{Fields: []string{"remark"}})

	assert.NoError(t, err)
	// 投影包含CLOB列时设置文本取回提示
	assert.True(t, stmt.Options.FetchClobAsString)
}

func TestStatementBuilder_BuildSelect_LimitAndOrder(t *testing.T) {
	builder := NewStatementBuilder(testMapper(t))

	stmt, err := builder.BuildSelect(SelectOptions{
		OrderBy:   "createdAt",
		OrderDesc: true,
		Limit:     1,
	})

	assert.NoError(t, err)
	assert.Contains(t, stmt.SQL, "AND ROWNUM <= 1")
	assert.Contains(t, stmt.SQL, "ORDER BY CREATED_AT DESC")
}

func TestStatementBuilder_BuildPaginatedSelect(t *testing.T) {
	builder := NewStatementBuilder(testMapper(t))

	stmt, err := builder.BuildPaginatedSelect(SelectOptions{
		Criteria: Single{&Criterion{Field: "bizName", Operator: OpLikeContains, Value: "SRM"}},
		OrderBy:  "apiId",
	}, 3, 10)

	assert.NoError(t, err)
	// 双层窗口：总数窗口列 + 上界截断 + 下界过滤，页码从1开始
	assert.Contains(t, stmt.SQL, `COUNT(*) OVER () AS "total"`)
	assert.Contains(t, stmt.SQL, "WHERE ROWNUM < 31")
	assert.Contains(t, stmt.SQL, `WHERE "rownumid" >= 21`)
	assert.Equal(t, "SRM", stmt.Binds["p_bizName"].Value)
}

func TestStatementBuilder_BuildPaginatedSelect_InvalidPage(t *testing.T) {
	builder := NewStatementBuilder(testMapper(t))

	tests := []struct {
		name string
		page int
		size int
	}{
		{"页码为0", 0, 10},
		{"页码为负", -1, 10},
		{"页大小为0", 1, 0},
		{"页大小为负", 1, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := builder.BuildPaginatedSelect(SelectOptions{}, tt.page, tt.size)
			assert.True(t, errors.Is(err, ErrInvalidPagination))
		})
	}
}

func TestStatementBuilder_BuildInsert(t *testing.T) {
	builder := NewStatementBuilder(testMapper(t))

	stmt, err := builder.BuildInsert(map[string]interface{}{
		"bizName": "采购订单回传",
		"status":  "REGISTING",
	})

	assert.NoError(t, err)
	// 主键来自序列，执行后通过:id出参回填
	assert.Contains(t, stmt.SQL, "ESBUSER.SEQ_API_INFO.NEXTVAL")
	assert.Contains(t, stmt.SQL, "RETURNING API_ID INTO :id")
	assert.Equal(t, BindOut, stmt.Binds[IDBindName].Direction)
	assert.Equal(t, "采购订单回传", stmt.Binds["bizName"].Value)
}

func TestStatementBuilder_BuildInsert_PrimaryKeySet(t *testing.T) {
	builder := NewStatementBuilder(testMapper(t))

	_, err := builder.BuildInsert(map[string]interface{}{
		"apiId":   int64(99),
		"bizName": "X",
	})

	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrPrimaryKeySet))
}

func TestStatementBuilder_BuildBatchInsert_Homogeneous(t *testing.T) {
	builder := NewStatementBuilder(testMapper(t))

	entities := make([]map[string]interface{}, 3)
	for i := range entities {
		entities[i] = map[string]interface{}{
			"bizName": fmt.Sprintf("接口%d", i),
			"status":  "REGISTING",
		}
	}

	stmt, err := builder.BuildBatchInsert(entities)

	assert.NoError(t, err)
	assert.Len(t, stmt.BatchBinds, 3)
	for i, binds := range stmt.BatchBinds {
		assert.Equal(t, fmt.Sprintf("接口%d", i), binds["bizName"].Value)
		assert.Equal(t, BindOut, binds[IDBindName].Direction)
	}
}

func TestStatementBuilder_BuildBatchInsert_Heterogeneous(t *testing.T) {
	builder := NewStatementBuilder(testMapper(t))

	entities := []map[string]interface{}{
		{"bizName": "A", "status": "REGISTING"},
		{"bizName": "B"},
	}

	_, err := builder.BuildBatchInsert(entities)

	// 字段集合不一致时构建失败，不产生任何SQL
	assert.True(t, errors.Is(err, ErrHeterogeneousBatch))
}

func TestStatementBuilder_BuildBatchInsert_Empty(t *testing.T) {
	builder := NewStatementBuilder(testMapper(t))

	_, err := builder.BuildBatchInsert(nil)
	assert.True(t, errors.Is(err, ErrEmptyBatch))
}

func TestStatementBuilder_BuildUpdate(t *testing.T) {
	builder := NewStatementBuilder(testMapper(t))

	stmt, err := builder.BuildUpdate(
		map[string]interface{}{"status": "INVALID"},
		Plain{"bizName": "X"},
	)

	assert.NoError(t, err)
	assert.Contains(t, stmt.SQL, "SET STATUS = :status")
	assert.Contains(t, stmt.SQL, "WHERE 1 = 1 AND BIZ_NAME = :p_bizName")
	assert.Equal(t, "INVALID", stmt.Binds["status"].Value)
	assert.Equal(t, "X", stmt.Binds["p_bizName"].Value)
}

func TestStatementBuilder_BuildUpdate_RequiresCriteria(t *testing.T) {
	builder := NewStatementBuilder(testMapper(t))

	_, err := builder.BuildUpdate(map[string]interface{}{"status": "INVALID"}, nil)
	assert.True(t, errors.Is(err, ErrEmptyCriteria))
}

func TestStatementBuilder_BuildBatchUpdate(t *testing.T) {
	builder := NewStatementBuilder(testMapper(t))

	entities := []map[string]interface{}{
		{"bizName": "A", "status": "VALID"},
		{"bizName": "B", "status": "INVALID"},
	}

	stmt, err := builder.BuildBatchUpdate(entities, []string{"bizName"})

	assert.NoError(t, err)
	// SET子句排除定位键列，WHERE绑定用p_前缀隔离
	assert.Contains(t, stmt.SQL, "SET STATUS = :status")
	assert.NotContains(t, stmt.SQL, "SET BIZ_NAME")
	assert.Contains(t, stmt.SQL, "AND BIZ_NAME = :p_bizName")
	assert.Len(t, stmt.BatchBinds, 2)
	assert.Equal(t, "A", stmt.BatchBinds[0]["p_bizName"].Value)
	assert.Equal(t, "INVALID", stmt.BatchBinds[1]["status"].Value)
}

func TestStatementBuilder_BuildBatchUpdate_MissingKey(t *testing.T) {
	builder := NewStatementBuilder(testMapper(t))

	entities := []map[string]interface{}{
		{"bizName": "A", "status": "VALID"},
		{"bizName": nil, "status": "INVALID"},
	}

	_, err := builder.BuildBatchUpdate(entities, []string{"bizName"})
	assert.True(t, errors.Is(err, ErrMissingKey))
}

func TestStatementBuilder_BuildDelete(t *testing.T) {
	builder := NewStatementBuilder(testMapper(t))

	stmt, err := builder.BuildDelete(Plain{"status": "INVALID"})

	assert.NoError(t, err)
	assert.Contains(t, stmt.SQL, "DELETE FROM ESBUSER.T_API_INFO WHERE 1 = 1 AND STATUS = :p_status")
}

func TestStatementBuilder_BuildDelete_RequiresCriteria(t *testing.T) {
	builder := NewStatementBuilder(testMapper(t))

	// 不提供无条件全表删除
	_, err := builder.BuildDelete(nil)
	assert.True(t, errors.Is(err, ErrEmptyCriteria))

	_, err = builder.BuildDelete(Plain{})
	assert.True(t, errors.Is(err, ErrEmptyCriteria))
}

func TestUpperSnake(t *testing.T) {
	assert.Equal(t, "BIZ_NAME", UpperSnake("bizName"))
	assert.Equal(t, "STATUS", UpperSnake("status"))
	assert.Equal(t, "PROCESS_STATUS", UpperSnake("processStatus"))
}
