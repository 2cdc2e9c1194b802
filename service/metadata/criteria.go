/*
 * @module service/metadata/criteria
 * @description 条件编译器，把单字段过滤条件编译为SQL布尔片段和命名绑定变量
 * @architecture 编译器模式 - 条件对象到SQL片段的纯函数翻译
 * @documentReference dev_docs/statement_builder.md
 * @stateFlow 字段解析 -> 操作符模板匹配 -> 值转换 -> 绑定变量生成
 * @rules 每个条件只允许一个字段；数组值只允许IN/NOT IN；EXISTS类要求子查询值；OR变体只改变连接词
 * @dependencies fmt, strings
 * @refs column.go, criteria_list.go, statement.go
 */

package metadata

import (
	"fmt"
	"strings"
)

// Operator 条件操作符，取值沿用遗留系统的操作符记号
type Operator string

const (
	OpEQ Operator = "="
	OpLT Operator = "<"
	OpGT Operator = ">"
	OpNE Operator = "!="
	OpLE Operator = "<="
	OpGE Operator = ">="

	OpLike         Operator = "LIKE"
	OpLikePrefix   Operator = "LIKE%"
	OpLikeSuffix   Operator = "%LIKE"
	OpLikeContains Operator = "%LIKE%"

	OpIn        Operator = "IN"
	OpNotIn     Operator = "NOT IN"
	OpExists    Operator = "EXISTS"
	OpNotExists Operator = "NOT EXISTS"

	// OR变体用于在主条件之后追加备选谓词，连接词由AND换成OR
	OpOrEQ Operator = "OR ="
	OpOrLT Operator = "OR <"
	OpOrGT Operator = "OR >"
	OpOrNE Operator = "OR !="
	OpOrLE Operator = "OR <="
	OpOrGE Operator = "OR >="
)

// Subquery 子查询值，SQL文本原样内联，绑定变量按自身命名并入外层绑定集
type Subquery struct {
	SQL        string
	BindParams map[string]interface{}
}

// BindDirection 绑定变量方向
type BindDirection string

const (
	BindIn    BindDirection = "IN"
	BindOut   BindDirection = "OUT"
	BindInOut BindDirection = "INOUT"
)

// BindParam 绑定变量
type BindParam struct {
	Direction BindDirection
	Value     interface{}
	SQLType   SQLType
}

// BindMap 绑定变量集合，键为绑定变量名
type BindMap map[string]BindParam

// Criterion 单字段过滤条件
type Criterion struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// NewCriterion 基于字段字典构建条件，字典必须恰好包含一个字段
// 多字段字典应由调用方拆分为多个条件
func NewCriterion(fields map[string]interface{}, op Operator) (*Criterion, error) {
	if len(fields) != 1 {
		return nil, ErrInvalidCriteria
	}
	for field, value := range fields {
		return &Criterion{Field: field, Operator: op, Value: value}, nil
	}
	return nil, ErrInvalidCriteria
}

// comparisonTemplates 标量比较操作符及其SQL记号
var comparisonTemplates = map[Operator]struct {
	sqlOp string
	or    bool
}{
	OpEQ:   {"=", false},
	OpLT:   {"<", false},
	OpGT:   {">", false},
	OpNE:   {"!=", false},
	OpLE:   {"<=", false},
	OpGE:   {">=", false},
	OpOrEQ: {"=", true},
	OpOrLT: {"<", true},
	OpOrGT: {">", true},
	OpOrNE: {"!=", true},
	OpOrLE: {"<=", true},
	OpOrGE: {">=", true},
}

// likeTemplates LIKE族操作符的通配符包裹方式
// 通配符以字面量拼接在绑定变量外侧，绑定值保持原文可复用可记录
var likeTemplates = map[Operator]struct {
	left  string
	right string
}{
	OpLike:         {"''", "''"},
	OpLikePrefix:   {"''", "'%'"},
	OpLikeSuffix:   {"'%'", "''"},
	OpLikeContains: {"'%'", "'%'"},
}

// Compile 编译单个条件为SQL布尔片段和绑定变量集
// 片段携带前导连接词（AND或OR），由语句构建器拼接在WHERE 1 = 1之后
func (c *Criterion) Compile(mapper *ColumnMapper, prefix string) (string, BindMap, error) {
	col := mapper.PhysicalName(c.Field)
	bindName := prefix + c.Field

	// 标量比较
	if tpl, ok := comparisonTemplates[c.Operator]; ok {
		if _, isArray := c.Value.([]interface{}); isArray {
			return "", nil, NewFieldError(ErrArrayOperand, c.Field)
		}
		connective := "AND"
		if tpl.or {
			connective = "OR"
		}
		fragment := fmt.Sprintf("%s %s %s :%s", connective, col, tpl.sqlOp, bindName)
		binds := BindMap{bindName: {Direction: BindIn, Value: mapper.BindValue(c.Field, c.Value)}}
		return fragment, binds, nil
	}

	// LIKE族
	if tpl, ok := likeTemplates[c.Operator]; ok {
		if _, isArray := c.Value.([]interface{}); isArray {
			return "", nil, NewFieldError(ErrArrayOperand, c.Field)
		}
		fragment := fmt.Sprintf("AND NVL(%s,'') LIKE %s || :%s || %s", col, tpl.left, bindName, tpl.right)
		binds := BindMap{bindName: {Direction: BindIn, Value: mapper.BindValue(c.Field, c.Value)}}
		return fragment, binds, nil
	}

	switch c.Operator {
	case OpIn, OpNotIn:
		return c.compileIn(mapper, col, bindName)
	case OpExists, OpNotExists:
		return c.compileExists()
	default:
		return "", nil, fmt.Errorf("不支持的操作符: %s", c.Operator)
	}
}

// compileIn 编译IN/NOT IN，数组值逐元素生成绑定变量k_0,k_1,…
func (c *Criterion) compileIn(mapper *ColumnMapper, col, bindName string) (string, BindMap, error) {
	keyword := "IN"
	if c.Operator == OpNotIn {
		keyword = "NOT IN"
	}

	// 子查询形式：SQL原样内联，子查询自带的绑定并入外层
	if sub, ok := c.Value.(*Subquery); ok {
		fragment := fmt.Sprintf("AND %s %s (%s)", col, keyword, sub.SQL)
		binds := make(BindMap, len(sub.BindParams))
		for name, value := range sub.BindParams {
			binds[name] = BindParam{Direction: BindIn, Value: value}
		}
		return fragment, binds, nil
	}

	values, ok := c.Value.([]interface{})
	if !ok || len(values) == 0 {
		return "", nil, NewFieldError(ErrArrayOperand, c.Field)
	}

	binds := make(BindMap, len(values))
	placeholders := make([]string, len(values))
	for i, value := range values {
		name := fmt.Sprintf("%s_%d", bindName, i)
		placeholders[i] = ":" + name
		binds[name] = BindParam{Direction: BindIn, Value: mapper.BindValue(c.Field, value)}
	}

	fragment := fmt.Sprintf("AND %s %s (%s)", col, keyword, strings.Join(placeholders, ","))
	return fragment, binds, nil
}

// compileExists 编译EXISTS/NOT EXISTS，值必须是子查询
func (c *Criterion) compileExists() (string, BindMap, error) {
	sub, ok := c.Value.(*Subquery)
	if !ok {
		return "", nil, NewFieldError(ErrSubqueryOperand, c.Field)
	}

	keyword := "EXISTS"
	if c.Operator == OpNotExists {
		keyword = "NOT EXISTS"
	}

	binds := make(BindMap, len(sub.BindParams))
	for name, value := range sub.BindParams {
		binds[name] = BindParam{Direction: BindIn, Value: value}
	}

	fragment := fmt.Sprintf("AND %s (%s)", keyword, sub.SQL)
	return fragment, binds, nil
}
