/*
 * @module service/metadata/column
 * @description 列描述与实体元数据定义，静态描述表/视图的主键、列名翻译、SQL类型和值转换
 * @architecture 元数据驱动 - 静态描述符表替代运行时字典
 * @documentReference dev_docs/statement_builder.md
 * @stateFlow 编译期声明元数据 -> 构建器按元数据生成语句 -> 行映射按元数据还原领域对象
 * @rules domainName在同一映射内唯一；视图元数据必须声明主键；表元数据可省略序列引用，主键由ROWID提供
 * @dependencies github.com/spf13/cast
 * @refs criteria.go, statement.go, service/repository
 */

package metadata

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// SQLType 列的SQL类型
type SQLType string

const (
	SQLTypeString    SQLType = "STRING"
	SQLTypeNumber    SQLType = "NUMBER"
	SQLTypeDate      SQLType = "DATE"
	SQLTypeTimestamp SQLType = "TIMESTAMP"
	SQLTypeClob      SQLType = "CLOB"
)

// 时间值的规范展示格式
const (
	DateDisplayFormat      = "2006-01-02 15:04:05"
	TimestampDisplayFormat = "2006-01-02 15:04:05.000"
)

// ValueTransform 列值转换函数
type ValueTransform func(value interface{}) interface{}

// ColumnDescriptor 列描述符
type ColumnDescriptor struct {
	DomainName   string         // 领域字段名
	PhysicalName string         // 物理列名
	SQLType      SQLType        // SQL类型
	Updatable    bool           // 是否允许更新
	Insertable   bool           // 是否允许插入
	ToDomain     ValueTransform // 读取时的值转换
	ToPhysical   ValueTransform // 绑定前的值转换
}

// PrimaryKey 主键描述
type PrimaryKey struct {
	DomainName   string
	PhysicalName string
	SQLType      SQLType
	SequenceRef  string // 序列引用，为空时主键来自数据库行标识
}

// EntityMetadata 实体元数据，表和视图共用，视图通过BaseQuery提供FROM来源
type EntityMetadata struct {
	Schema          string
	TableOrViewName string
	PrimaryKey      *PrimaryKey
	Columns         []ColumnDescriptor
	BaseQuery       string // 视图基础查询，非空时作为FROM来源
}

// QualifiedName 返回带schema前缀的表/视图名
func (m *EntityMetadata) QualifiedName() string {
	if m.Schema == "" {
		return m.TableOrViewName
	}
	return m.Schema + "." + m.TableOrViewName
}

// FromSource 返回语句的FROM来源，视图使用基础查询
func (m *EntityMetadata) FromSource() string {
	if m.BaseQuery != "" {
		return "(" + m.BaseQuery + ")"
	}
	return m.QualifiedName()
}

// RowIdentifier 返回行标识表达式，声明了主键时使用主键物理列
func (m *EntityMetadata) RowIdentifier() string {
	if m.PrimaryKey != nil {
		return m.PrimaryKey.PhysicalName
	}
	return "ROWID"
}

// ColumnMapper 列映射器，提供领域字段名到列描述符的查找
type ColumnMapper struct {
	meta    *EntityMetadata
	byName  map[string]*ColumnDescriptor
	ordered []string
}

// NewColumnMapper 基于实体元数据创建列映射器
// domainName重复视为元数据定义错误，直接返回error由启动期暴露
func NewColumnMapper(meta *EntityMetadata) (*ColumnMapper, error) {
	byName := make(map[string]*ColumnDescriptor, len(meta.Columns))
	ordered := make([]string, 0, len(meta.Columns))

	for i := range meta.Columns {
		col := &meta.Columns[i]
		if _, exists := byName[col.DomainName]; exists {
			return nil, fmt.Errorf("列映射定义错误，领域字段名重复: %s", col.DomainName)
		}
		byName[col.DomainName] = col
		ordered = append(ordered, col.DomainName)
	}

	return &ColumnMapper{
		meta:    meta,
		byName:  byName,
		ordered: ordered,
	}, nil
}

// MustColumnMapper 创建列映射器，定义错误直接panic，用于包级静态元数据声明
func MustColumnMapper(meta *EntityMetadata) *ColumnMapper {
	mapper, err := NewColumnMapper(meta)
	if err != nil {
		panic(err)
	}
	return mapper
}

// Metadata 返回底层元数据
func (m *ColumnMapper) Metadata() *EntityMetadata {
	return m.meta
}

// Column 查找领域字段对应的列描述符
func (m *ColumnMapper) Column(domainName string) (*ColumnDescriptor, bool) {
	col, ok := m.byName[domainName]
	return col, ok
}

// PhysicalName 解析领域字段到物理列名
// 字段不在映射中时原样返回，作为裸连接查询的逃生通道
func (m *ColumnMapper) PhysicalName(domainName string) string {
	if col, ok := m.byName[domainName]; ok {
		return col.PhysicalName
	}
	return domainName
}

// DomainNames 按声明顺序返回所有领域字段名
func (m *ColumnMapper) DomainNames() []string {
	return m.ordered
}

// HasField 检查领域字段是否在映射中
func (m *ColumnMapper) HasField(domainName string) bool {
	_, ok := m.byName[domainName]
	return ok
}

// BindValue 绑定前的值处理，应用列上声明的toPhysical转换
// NUMBER列的值原样透传，不做隐式取整
func (m *ColumnMapper) BindValue(domainName string, value interface{}) interface{} {
	col, ok := m.byName[domainName]
	if !ok {
		return value
	}
	if col.ToPhysical != nil {
		return col.ToPhysical(value)
	}
	return value
}

// DomainValue 读取后的值处理，应用列上声明的toDomain转换
func (m *ColumnMapper) DomainValue(domainName string, value interface{}) interface{} {
	col, ok := m.byName[domainName]
	if !ok {
		return value
	}
	if col.ToDomain != nil {
		return col.ToDomain(value)
	}
	return value
}

// DateToDisplay 日期列的规范toDomain转换
func DateToDisplay(value interface{}) interface{} {
	return formatTimeValue(value, DateDisplayFormat)
}

// TimestampToDisplay 时间戳列的规范toDomain转换
func TimestampToDisplay(value interface{}) interface{} {
	return formatTimeValue(value, TimestampDisplayFormat)
}

// DisplayToTime 规范展示格式的toPhysical转换，解析失败时原样透传
func DisplayToTime(value interface{}) interface{} {
	str := cast.ToString(value)
	if str == "" {
		return value
	}
	for _, layout := range []string{TimestampDisplayFormat, DateDisplayFormat, "2006-01-02"} {
		if t, err := time.Parse(layout, str); err == nil {
			return t
		}
	}
	return value
}

// formatTimeValue 格式化时间值为展示字符串
func formatTimeValue(value interface{}, layout string) interface{} {
	switch v := value.(type) {
	case time.Time:
		return v.Format(layout)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.Format(layout)
	default:
		return value
	}
}

// UpperSnake 领域字段名转物理列名的默认约定，bizName -> BIZ_NAME
func UpperSnake(domainName string) string {
	var sb strings.Builder
	for i, r := range domainName {
		if r >= 'A' && r <= 'Z' && i > 0 {
			sb.WriteByte('_')
		}
		sb.WriteRune(r)
	}
	return strings.ToUpper(sb.String())
}
