/*
 * @module service/metadata/criteria_list
 * @description 条件组合器，按序拼接多个条件的编译片段并合并绑定变量集
 * @architecture 编译器模式 - 组合多个单字段条件
 * @documentReference dev_docs/statement_builder.md
 * @stateFlow 逐条件分配前缀 -> 编译 -> 片段拼接 -> 绑定集合并
 * @rules 组合器自动按成员序号分配前缀p{i}_，成员之间绑定名冲突视为构建错误
 * @dependencies fmt, strings
 * @refs criteria.go, statement.go
 */

package metadata

import (
	"fmt"
	"strings"
)

// CriteriaList 条件列表，成员按声明顺序参与WHERE子句拼接
type CriteriaList struct {
	members []*Criterion
}

// NewCriteriaList 创建条件列表
func NewCriteriaList(members ...*Criterion) *CriteriaList {
	return &CriteriaList{members: members}
}

// Add 追加条件
func (l *CriteriaList) Add(c *Criterion) *CriteriaList {
	l.members = append(l.members, c)
	return l
}

// Len 返回成员数量
func (l *CriteriaList) Len() int {
	return len(l.members)
}

// Compile 编译整个条件列表
// 每个成员自动获得p{序号}_前缀以隔离绑定名，合并后仍出现重名按构建错误处理
func (l *CriteriaList) Compile(mapper *ColumnMapper) (string, BindMap, error) {
	fragments := make([]string, 0, len(l.members))
	binds := make(BindMap)

	for i, member := range l.members {
		prefix := fmt.Sprintf("p%d_", i)
		fragment, memberBinds, err := member.Compile(mapper, prefix)
		if err != nil {
			return "", nil, err
		}

		for name, param := range memberBinds {
			if _, exists := binds[name]; exists {
				return "", nil, fmt.Errorf("%w: %s", ErrDuplicateBind, name)
			}
			binds[name] = param
		}
		fragments = append(fragments, fragment)
	}

	return strings.Join(fragments, " "), binds, nil
}
