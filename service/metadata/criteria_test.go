/*
 * @module service/metadata/criteria_test
 * @description 条件编译器的单元测试，覆盖标量比较、LIKE族、IN数组绑定、子查询和组合条件
 * @architecture 单元测试 - 纯函数编译结果验证
 * @documentReference dev_docs/statement_builder.md
 * @stateFlow 构造条件 -> 编译 -> 验证SQL片段和绑定变量
 * @rules 标量操作符恰好产生一个绑定，IN按元素产生绑定，每个绑定名都出现在SQL文本中
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs criteria.go, criteria_list.go
 */

package metadata

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testMapper(t *testing.T) *ColumnMapper {
	t.Helper()
	mapper, err := NewColumnMapper(&EntityMetadata{
		Schema:          "ESBUSER",
		TableOrViewName: "T_API_INFO",
		PrimaryKey: &PrimaryKey{
			DomainName:   "apiId",
			PhysicalName: "API_ID",
			SQLType:      SQLTypeNumber,
			SequenceRef:  "ESBUSER.SEQ_API_INFO",
		},
		Columns: []ColumnDescriptor{
			{DomainName: "apiId", PhysicalName: "API_ID", SQLType: SQLTypeNumber, Updatable: false, Insertable: false},
			{DomainName: "bizName", PhysicalName: "BIZ_NAME", SQLType: SQLTypeString, Updatable: true, Insertable: true},
			{DomainName: "origName", PhysicalName: "ORIG_NAME", SQLType: SQLTypeString, Updatable: false, Insertable: true},
			{DomainName: "status", PhysicalName: "STATUS", SQLType: SQLTypeString, Updatable: true, Insertable: true},
			{DomainName: "remark", PhysicalName: "REMARK", SQLType: SQLTypeClob, Updatable: true, Insertable: true},
			{DomainName: "createdAt", PhysicalName: "CREATED_AT", SQLType: SQLTypeDate, Updatable: false, Insertable: true,
				ToDomain: DateToDisplay, ToPhysical: DisplayToTime},
		},
	})
	assert.NoError(t, err)
	return mapper
}

func TestCriterion_Compile_ScalarOperators(t *testing.T) {
	mapper := testMapper(t)

	tests := []struct {
		name     string
		operator Operator
		fragment string
	}{
		{"等值", OpEQ, "AND STATUS = :p_status"},
		{"小于", OpLT, "AND STATUS < :p_status"},
		{"大于", OpGT, "AND STATUS > :p_status"},
		{"不等", OpNE, "AND STATUS != :p_status"},
		{"小于等于", OpLE, "AND STATUS <= :p_status"},
		{"大于等于", OpGE, "AND STATUS >= :p_status"},
		{"OR等值", OpOrEQ, "OR STATUS = :p_status"},
		{"OR不等", OpOrNE, "OR STATUS != :p_status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			criterion := &Criterion{Field: "status", Operator: tt.operator, Value: "VALID"}
			fragment, binds, err := criterion.Compile(mapper, "p_")

			assert.NoError(t, err)
			assert.Equal(t, tt.fragment, fragment)
			// 标量操作符恰好一个绑定，且绑定名出现在片段中
			assert.Len(t, binds, 1)
			assert.Equal(t, "VALID", binds["p_status"].Value)
			assert.Contains(t, fragment, ":p_status")
		})
	}
}

func TestCriterion_Compile_LikeContains(t *testing.T) {
	mapper := testMapper(t)

	criterion := &Criterion{Field: "bizName", Operator: OpLikeContains, Value: "SRM"}
	fragment, binds, err := criterion.Compile(mapper, "p_")

	assert.NoError(t, err)
	// 通配符在绑定变量外侧拼接，绑定值保持原文
	assert.Equal(t, "AND NVL(BIZ_NAME,'') LIKE '%' || :p_bizName || '%'", fragment)
	assert.Equal(t, "SRM", binds["p_bizName"].Value)
}

func TestCriterion_Compile_LikeVariants(t *testing.T) {
	mapper := testMapper(t)

	tests := []struct {
		name     string
		operator Operator
		fragment string
	}{
		{"前缀匹配", OpLikePrefix, "AND NVL(BIZ_NAME,'') LIKE '' || :p_bizName || '%'"},
		{"后缀匹配", OpLikeSuffix, "AND NVL(BIZ_NAME,'') LIKE '%' || :p_bizName || ''"},
		{"原样匹配", OpLike, "AND NVL(BIZ_NAME,'') LIKE '' || :p_bizName || ''"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			criterion := &Criterion{Field: "bizName", Operator: tt.operator, Value: "SRM"}
			fragment, binds, err := criterion.Compile(mapper, "p_")

			assert.NoError(t, err)
			assert.Equal(t, tt.fragment, fragment)
			assert.Len(t, binds, 1)
		})
	}
}

func TestCriterion_Compile_InArray(t *testing.T) {
	mapper := testMapper(t)

	values := []interface{}{"VALID", "INVALID", "REGISTING"}
	criterion := &Criterion{Field: "status", Operator: OpIn, Value: values}
	fragment, binds, err := criterion.Compile(mapper, "p_")

	assert.NoError(t, err)
	assert.Equal(t, "AND STATUS IN (:p_status_0,:p_status_1,:p_status_2)", fragment)
	// 数组值按元素数量产生绑定
	assert.Len(t, binds, len(values))
	for i, value := range values {
		name := fmt.Sprintf("p_status_%d", i)
		assert.Equal(t, value, binds[name].Value)
		assert.Contains(t, fragment, ":"+name)
	}
}

func TestCriterion_Compile_NotIn(t *testing.T) {
	mapper := testMapper(t)

	criterion := &Criterion{Field: "status", Operator: OpNotIn, Value: []interface{}{"ERROR"}}
	fragment, binds, err := criterion.Compile(mapper, "p_")

	assert.NoError(t, err)
	assert.Equal(t, "AND STATUS NOT IN (:p_status_0)", fragment)
	assert.Len(t, binds, 1)
}

func TestCriterion_Compile_ArrayOnScalarOperator(t *testing.T) {
	mapper := testMapper(t)

	criterion := &Criterion{Field: "status", Operator: OpEQ, Value: []interface{}{"A", "B"}}
	_, _, err := criterion.Compile(mapper, "p_")

	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrArrayOperand))
}

func TestCriterion_Compile_Exists(t *testing.T) {
	mapper := testMapper(t)

	sub := &Subquery{
		SQL:        "SELECT 1 FROM T_API_LOG L WHERE L.API_ID = T.API_ID AND L.STATUS = :sub_status",
		BindParams: map[string]interface{}{"sub_status": "ERROR"},
	}
	criterion := &Criterion{Field: "apiId", Operator: OpExists, Value: sub}
	fragment, binds, err := criterion.Compile(mapper, "p_")

	assert.NoError(t, err)
	// 子查询SQL原样内联，自带绑定并入外层
	assert.Equal(t, "AND EXISTS ("+sub.SQL+")", fragment)
	assert.Equal(t, "ERROR", binds["sub_status"].Value)
}

func TestCriterion_Compile_ExistsWithoutSubquery(t *testing.T) {
	mapper := testMapper(t)

	criterion := &Criterion{Field: "apiId", Operator: OpNotExists, Value: "not-a-subquery"}
	_, _, err := criterion.Compile(mapper, "p_")

	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrSubqueryOperand))
}

func TestCriterion_Compile_InSubquery(t *testing.T) {
	mapper := testMapper(t)

	sub := &Subquery{SQL: "SELECT API_ID FROM T_API_LOG WHERE STATUS = :sub_s", BindParams: map[string]interface{}{"sub_s": "E"}}
	criterion := &Criterion{Field: "apiId", Operator: OpIn, Value: sub}
	fragment, binds, err := criterion.Compile(mapper, "p_")

	assert.NoError(t, err)
	assert.Equal(t, "AND API_ID IN ("+sub.SQL+")", fragment)
	assert.Equal(t, "E", binds["sub_s"].Value)
}

func TestCriterion_Compile_UnmappedFieldFallsThrough(t *testing.T) {
	mapper := testMapper(t)

	// 不在映射中的字段名原样使用，作为裸连接查询的逃生通道
	criterion := &Criterion{Field: "RAW_COLUMN", Operator: OpEQ, Value: 1}
	fragment, _, err := criterion.Compile(mapper, "p_")

	assert.NoError(t, err)
	assert.Equal(t, "AND RAW_COLUMN = :p_RAW_COLUMN", fragment)
}

func TestCriterion_Compile_ToPhysicalTransform(t *testing.T) {
	mapper := testMapper(t)

	criterion := &Criterion{Field: "createdAt", Operator: OpGE, Value: "2024-01-02 03:04:05"}
	_, binds, err := criterion.Compile(mapper, "p_")

	assert.NoError(t, err)
	// 绑定前应用toPhysical转换，展示格式字符串转为时间值
	_, isString := binds["p_createdAt"].Value.(string)
	assert.False(t, isString)
}

func TestNewCriterion_SingleFieldOnly(t *testing.T) {
	_, err := NewCriterion(map[string]interface{}{"a": 1, "b": 2}, OpEQ)
	assert.True(t, errors.Is(err, ErrInvalidCriteria))

	criterion, err := NewCriterion(map[string]interface{}{"status": "VALID"}, OpEQ)
	assert.NoError(t, err)
	assert.Equal(t, "status", criterion.Field)
}

func TestCriteriaList_Compile(t *testing.T) {
	mapper := testMapper(t)

	list := NewCriteriaList(
		&Criterion{Field: "status", Operator: OpEQ, Value: "VALID"},
		&Criterion{Field: "bizName", Operator: OpLikeContains, Value: "SRM"},
		&Criterion{Field: "status", Operator: OpOrEQ, Value: "REGISTING"},
	)

	fragment, binds, err := list.Compile(mapper)
	assert.NoError(t, err)

	// 成员按序号分配前缀，隔离同字段的绑定名
	assert.Contains(t, fragment, ":p0_status")
	assert.Contains(t, fragment, ":p1_bizName")
	assert.Contains(t, fragment, ":p2_status")
	assert.Len(t, binds, 3)
	assert.Equal(t, "VALID", binds["p0_status"].Value)
	assert.Equal(t, "REGISTING", binds["p2_status"].Value)

	// 片段按声明顺序拼接
	assert.True(t, strings.Index(fragment, "p0_status") < strings.Index(fragment, "p1_bizName"))
}

func TestCriteriaList_Compile_DuplicateBind(t *testing.T) {
	mapper := testMapper(t)

	// 子查询绑定名与另一成员冲突
	list := NewCriteriaList(
		&Criterion{Field: "apiId", Operator: OpExists, Value: &Subquery{
			SQL:        "SELECT 1 FROM DUAL WHERE 1 = :p1_bizName",
			BindParams: map[string]interface{}{"p1_bizName": 1},
		}},
		&Criterion{Field: "bizName", Operator: OpEQ, Value: "X"},
	)

	_, _, err := list.Compile(mapper)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateBind))
}
