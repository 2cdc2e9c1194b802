/*
 * @module service/metadata/statement
 * @description 语句构建器，基于实体元数据和条件编译器生成完整的SELECT/INSERT/UPDATE/DELETE语句
 * @architecture 构建器模式 - 元数据驱动生成带命名绑定变量的SQL文本
 * @documentReference dev_docs/statement_builder.md
 * @stateFlow 条件归一化 -> 字段校验 -> 语句拼装 -> 绑定变量收集
 * @rules 主键列始终参与投影；插入主键来自序列或行标识；更新删除必须携带条件；分页参数必须为正
 * @dependencies fmt, strings
 * @refs column.go, criteria.go, service/repository
 */

package metadata

import (
	"fmt"
	"sort"
	"strings"
)

// IDBindName 插入语句回填主键的出参绑定名
const IDBindName = "id"

// StatementOptions 语句执行选项
type StatementOptions struct {
	AutoCommit        bool
	FetchClobAsString bool // CLOB列按文本返回而非流式句柄
}

// CompiledStatement 编译完成的语句
// SQL中出现的每个:name占位符都在Binds中有对应项，出参绑定（如插入回填的:id）除外
type CompiledStatement struct {
	SQL        string
	Binds      BindMap
	BatchBinds []BindMap // 批量操作时按实体展开的绑定集，executeMany逐组执行
	Options    StatementOptions
}

// Criteria 条件输入的标签联合：普通等值字典、单个条件、条件列表
// 在语句构建器边界归一化一次，替代运行期的形状探测
type Criteria interface {
	compile(mapper *ColumnMapper) (string, BindMap, error)
}

// Plain 普通等值字典条件，每个键按等值编译，绑定名前缀p_
type Plain map[string]interface{}

func (p Plain) compile(mapper *ColumnMapper) (string, BindMap, error) {
	keys := make([]string, 0, len(p))
	for key := range p {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fragments := make([]string, 0, len(keys))
	binds := make(BindMap, len(keys))
	for _, key := range keys {
		criterion := &Criterion{Field: key, Operator: OpEQ, Value: p[key]}
		fragment, memberBinds, err := criterion.Compile(mapper, "p_")
		if err != nil {
			return "", nil, err
		}
		for name, param := range memberBinds {
			binds[name] = param
		}
		fragments = append(fragments, fragment)
	}
	return strings.Join(fragments, " "), binds, nil
}

// Single 单个已构造的条件，绑定名前缀p_
type Single struct {
	Criterion *Criterion
}

func (s Single) compile(mapper *ColumnMapper) (string, BindMap, error) {
	return s.Criterion.Compile(mapper, "p_")
}

// List 条件列表，成员前缀由组合器按序号分配
type List struct {
	Criteria *CriteriaList
}

func (l List) compile(mapper *ColumnMapper) (string, BindMap, error) {
	return l.Criteria.Compile(mapper)
}

// SelectOptions 查询构建选项
type SelectOptions struct {
	Fields    []string // 为空时投影全部列
	Criteria  Criteria // 为nil时不附加条件
	OrderBy   string   // 单一排序字段
	OrderDesc bool
	Limit     int // 大于0时附加ROWNUM上限
}

// StatementBuilder 语句构建器
type StatementBuilder struct {
	mapper *ColumnMapper
}

// NewStatementBuilder 创建语句构建器
func NewStatementBuilder(mapper *ColumnMapper) *StatementBuilder {
	return &StatementBuilder{mapper: mapper}
}

// Mapper 返回底层列映射器
func (b *StatementBuilder) Mapper() *ColumnMapper {
	return b.mapper
}

// resolveCriteria 条件归一化，nil条件编译为空片段
func (b *StatementBuilder) resolveCriteria(criteria Criteria) (string, BindMap, error) {
	if criteria == nil {
		return "", BindMap{}, nil
	}
	return criteria.compile(b.mapper)
}

// projection 构建投影列表，校验字段名并保证主键列始终在列
func (b *StatementBuilder) projection(fields []string) ([]string, bool, error) {
	meta := b.mapper.Metadata()

	if len(fields) == 0 {
		fields = b.mapper.DomainNames()
	} else {
		for _, field := range fields {
			if !b.mapper.HasField(field) {
				return nil, false, NewFieldError(ErrInvalidField, field)
			}
		}
	}

	columns := make([]string, 0, len(fields)+1)
	hasClob := false
	pkIncluded := false

	for _, field := range fields {
		col, _ := b.mapper.Column(field)
		columns = append(columns, fmt.Sprintf("%s AS \"%s\"", col.PhysicalName, field))
		if col.SQLType == SQLTypeClob {
			hasClob = true
		}
		if meta.PrimaryKey != nil && field == meta.PrimaryKey.DomainName {
			pkIncluded = true
		}
	}

	// 主键（或行标识）始终参与投影，供行映射回填id字段
	if meta.PrimaryKey != nil {
		if !pkIncluded {
			columns = append(columns, fmt.Sprintf("%s AS \"%s\"", meta.PrimaryKey.PhysicalName, meta.PrimaryKey.DomainName))
		}
	} else {
		columns = append(columns, "ROWID AS \"rowIdentifier\"")
	}

	return columns, hasClob, nil
}

// BuildSelect 构建查询语句
func (b *StatementBuilder) BuildSelect(opts SelectOptions) (*CompiledStatement, error) {
	columns, hasClob, err := b.projection(opts.Fields)
	if err != nil {
		return nil, err
	}

	fragment, binds, err := b.resolveCriteria(opts.Criteria)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.mapper.Metadata().FromSource())
	sb.WriteString(" WHERE 1 = 1")
	if fragment != "" {
		sb.WriteString(" ")
		sb.WriteString(fragment)
	}
	if opts.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" AND ROWNUM <= %d", opts.Limit))
	}
	if opts.OrderBy != "" {
		if !b.mapper.HasField(opts.OrderBy) {
			return nil, NewFieldError(ErrInvalidField, opts.OrderBy)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(b.mapper.PhysicalName(opts.OrderBy))
		if opts.OrderDesc {
			sb.WriteString(" DESC")
		}
	}

	return &CompiledStatement{
		SQL:   sb.String(),
		Binds: binds,
		Options: StatementOptions{
			AutoCommit:        true,
			FetchClobAsString: hasClob,
		},
	}, nil
}

// BuildPaginatedSelect 构建分页查询
// 双层窗口包裹：内层用COUNT(*) OVER ()计算总数并用ROWNUM截断上界，
// 外层按行号过滤出[((page-1)*size)+1 .. page*size]区间，页码从1开始
func (b *StatementBuilder) BuildPaginatedSelect(opts SelectOptions, page, size int) (*CompiledStatement, error) {
	if page <= 0 || size <= 0 {
		return nil, ErrInvalidPagination
	}

	base, err := b.BuildSelect(SelectOptions{
		Fields:    opts.Fields,
		Criteria:  opts.Criteria,
		OrderBy:   opts.OrderBy,
		OrderDesc: opts.OrderDesc,
	})
	if err != nil {
		return nil, err
	}

	// 内层投影追加总数窗口列
	inner := strings.Replace(base.SQL, "SELECT ", "SELECT COUNT(*) OVER () AS \"total\", ", 1)

	sql := fmt.Sprintf(
		"SELECT * FROM (SELECT ROWNUM AS \"rownumid\", T.* FROM (%s) T WHERE ROWNUM < %d) WHERE \"rownumid\" >= %d",
		inner, (page*size)+1, ((page-1)*size)+1)

	return &CompiledStatement{
		SQL:     sql,
		Binds:   base.Binds,
		Options: base.Options,
	}, nil
}

// entityKeys 返回实体的排序字段名
func entityKeys(entity map[string]interface{}) []string {
	keys := make([]string, 0, len(entity))
	for key := range entity {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// sameKeySet 检查两个实体的字段集合是否一致
func sameKeySet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// insertShape 构建插入语句骨架，主键值由序列或行标识提供并通过:id出参回填
func (b *StatementBuilder) insertShape(keys []string) (string, error) {
	meta := b.mapper.Metadata()

	columns := make([]string, 0, len(keys)+1)
	values := make([]string, 0, len(keys)+1)

	if meta.PrimaryKey != nil && meta.PrimaryKey.SequenceRef != "" {
		columns = append(columns, meta.PrimaryKey.PhysicalName)
		values = append(values, meta.PrimaryKey.SequenceRef+".NEXTVAL")
	}

	for _, key := range keys {
		col, ok := b.mapper.Column(key)
		if !ok {
			return "", NewFieldError(ErrInvalidField, key)
		}
		if !col.Insertable {
			return "", NewFieldError(ErrInvalidField, key)
		}
		columns = append(columns, col.PhysicalName)
		values = append(values, ":"+key)
	}

	returning := meta.RowIdentifier()
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s INTO :%s",
		meta.QualifiedName(),
		strings.Join(columns, ", "),
		strings.Join(values, ", "),
		returning, IDBindName)
	return sql, nil
}

// checkPrimaryKeyUnset 插入实体不允许携带主键值
func (b *StatementBuilder) checkPrimaryKeyUnset(entity map[string]interface{}) error {
	meta := b.mapper.Metadata()
	if meta.PrimaryKey == nil {
		return nil
	}
	if value, exists := entity[meta.PrimaryKey.DomainName]; exists && value != nil {
		return NewFieldError(ErrPrimaryKeySet, meta.PrimaryKey.DomainName)
	}
	return nil
}

// entityBinds 把实体字段展开为绑定变量集，附带:id出参
func (b *StatementBuilder) entityBinds(keys []string, entity map[string]interface{}, withID bool) BindMap {
	binds := make(BindMap, len(keys)+1)
	for _, key := range keys {
		binds[key] = BindParam{Direction: BindIn, Value: b.mapper.BindValue(key, entity[key])}
	}
	if withID {
		binds[IDBindName] = BindParam{Direction: BindOut}
	}
	return binds
}

// BuildInsert 构建单实体插入
func (b *StatementBuilder) BuildInsert(entity map[string]interface{}) (*CompiledStatement, error) {
	if len(entity) == 0 {
		return nil, ErrEmptyBatch
	}
	if err := b.checkPrimaryKeyUnset(entity); err != nil {
		return nil, err
	}

	keys := entityKeys(entity)
	sql, err := b.insertShape(keys)
	if err != nil {
		return nil, err
	}

	return &CompiledStatement{
		SQL:     sql,
		Binds:   b.entityBinds(keys, entity, true),
		Options: StatementOptions{AutoCommit: true},
	}, nil
}

// BuildBatchInsert 构建批量插入，一条语句按实体展开多组绑定执行
// 实体字段集合必须同构，以第一个实体为基准
func (b *StatementBuilder) BuildBatchInsert(entities []map[string]interface{}) (*CompiledStatement, error) {
	if len(entities) == 0 {
		return nil, ErrEmptyBatch
	}

	first := entityKeys(entities[0])
	for _, entity := range entities {
		if err := b.checkPrimaryKeyUnset(entity); err != nil {
			return nil, err
		}
		if !sameKeySet(first, entityKeys(entity)) {
			return nil, ErrHeterogeneousBatch
		}
	}

	sql, err := b.insertShape(first)
	if err != nil {
		return nil, err
	}

	batchBinds := make([]BindMap, len(entities))
	for i, entity := range entities {
		batchBinds[i] = b.entityBinds(first, entity, true)
	}

	return &CompiledStatement{
		SQL:        sql,
		BatchBinds: batchBinds,
		Options:    StatementOptions{AutoCommit: true},
	}, nil
}

// setClause 构建SET子句，排除指定字段
func (b *StatementBuilder) setClause(keys []string, exclude map[string]bool) ([]string, error) {
	assignments := make([]string, 0, len(keys))
	for _, key := range keys {
		if exclude[key] {
			continue
		}
		col, ok := b.mapper.Column(key)
		if !ok {
			return nil, NewFieldError(ErrInvalidField, key)
		}
		if !col.Updatable {
			return nil, NewFieldError(ErrInvalidField, key)
		}
		assignments = append(assignments, fmt.Sprintf("%s = :%s", col.PhysicalName, key))
	}
	return assignments, nil
}

// BuildUpdate 构建条件更新
func (b *StatementBuilder) BuildUpdate(set map[string]interface{}, criteria Criteria) (*CompiledStatement, error) {
	if len(set) == 0 {
		return nil, ErrEmptyBatch
	}
	if criteria == nil {
		return nil, ErrEmptyCriteria
	}

	fragment, criteriaBinds, err := b.resolveCriteria(criteria)
	if err != nil {
		return nil, err
	}
	if fragment == "" {
		return nil, ErrEmptyCriteria
	}

	keys := entityKeys(set)
	assignments, err := b.setClause(keys, nil)
	if err != nil {
		return nil, err
	}

	binds := make(BindMap, len(keys)+len(criteriaBinds))
	for _, key := range keys {
		binds[key] = BindParam{Direction: BindIn, Value: b.mapper.BindValue(key, set[key])}
	}
	for name, param := range criteriaBinds {
		binds[name] = param
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE 1 = 1 %s",
		b.mapper.Metadata().QualifiedName(),
		strings.Join(assignments, ", "),
		fragment)

	return &CompiledStatement{
		SQL:     sql,
		Binds:   binds,
		Options: StatementOptions{AutoCommit: true},
	}, nil
}

// BuildBatchUpdate 构建按键列表的批量更新
// SET子句排除定位键列，WHERE绑定用p_前缀隔离同名SET绑定，每个实体必须携带全部键值
func (b *StatementBuilder) BuildBatchUpdate(entities []map[string]interface{}, by []string) (*CompiledStatement, error) {
	if len(entities) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(by) == 0 {
		return nil, ErrEmptyCriteria
	}

	byset := make(map[string]bool, len(by))
	for _, key := range by {
		if !b.mapper.HasField(key) {
			return nil, NewFieldError(ErrInvalidField, key)
		}
		byset[key] = true
	}

	first := entityKeys(entities[0])
	assignments, err := b.setClause(first, byset)
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return nil, ErrEmptyBatch
	}

	conditions := make([]string, 0, len(by))
	for _, key := range by {
		conditions = append(conditions, fmt.Sprintf("AND %s = :p_%s", b.mapper.PhysicalName(key), key))
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE 1 = 1 %s",
		b.mapper.Metadata().QualifiedName(),
		strings.Join(assignments, ", "),
		strings.Join(conditions, " "))

	batchBinds := make([]BindMap, len(entities))
	for i, entity := range entities {
		if !sameKeySet(first, entityKeys(entity)) {
			return nil, ErrHeterogeneousBatch
		}

		binds := make(BindMap, len(first)+len(by))
		for _, key := range first {
			if byset[key] {
				continue
			}
			binds[key] = BindParam{Direction: BindIn, Value: b.mapper.BindValue(key, entity[key])}
		}
		for _, key := range by {
			value, exists := entity[key]
			if !exists || value == nil {
				return nil, NewFieldError(ErrMissingKey, key)
			}
			binds["p_"+key] = BindParam{Direction: BindIn, Value: b.mapper.BindValue(key, value)}
		}
		batchBinds[i] = binds
	}

	return &CompiledStatement{
		SQL:        sql,
		BatchBinds: batchBinds,
		Options:    StatementOptions{AutoCommit: true},
	}, nil
}

// BuildDelete 构建条件删除，不提供无条件全表删除
func (b *StatementBuilder) BuildDelete(criteria Criteria) (*CompiledStatement, error) {
	if criteria == nil {
		return nil, ErrEmptyCriteria
	}

	fragment, binds, err := b.resolveCriteria(criteria)
	if err != nil {
		return nil, err
	}
	if fragment == "" {
		return nil, ErrEmptyCriteria
	}

	sql := fmt.Sprintf("DELETE FROM %s WHERE 1 = 1 %s",
		b.mapper.Metadata().QualifiedName(), fragment)

	return &CompiledStatement{
		SQL:     sql,
		Binds:   binds,
		Options: StatementOptions{AutoCommit: true},
	}, nil
}
