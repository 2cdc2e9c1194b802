/*
 * @module service/metadata/errors
 * @description 语句构建期错误定义，均为调用方错误，构建阶段快速失败，不做重试
 * @architecture 工具层 - 错误分类
 * @documentReference dev_docs/statement_builder.md
 * @stateFlow 构建期校验 -> 返回哨兵错误 -> 调用方修正输入
 * @rules 构建期错误在执行任何IO前抛出；执行期错误统一走Result结构
 * @dependencies errors, fmt
 * @refs criteria.go, statement.go
 */

package metadata

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCriteria 单个条件包含多个字段，调用方应拆分为多个条件
	ErrInvalidCriteria = errors.New("条件对象只允许包含一个字段")

	// ErrInvalidField 请求的字段在列映射中不存在
	ErrInvalidField = errors.New("字段在列映射中不存在")

	// ErrHeterogeneousBatch 批量实体的字段集合不一致
	ErrHeterogeneousBatch = errors.New("批量实体字段集合不一致")

	// ErrPrimaryKeySet 插入实体不允许携带主键值，主键由序列或行标识生成
	ErrPrimaryKeySet = errors.New("插入实体不允许携带主键值")

	// ErrMissingKey 批量更新实体缺少定位键值
	ErrMissingKey = errors.New("批量更新实体缺少定位键值")

	// ErrInvalidPagination 分页参数必须为正整数
	ErrInvalidPagination = errors.New("分页参数page和size必须大于0")

	// ErrEmptyBatch 批量操作实体列表为空
	ErrEmptyBatch = errors.New("批量操作实体列表不能为空")

	// ErrEmptyCriteria 更新和删除必须携带条件，不提供无条件全表操作
	ErrEmptyCriteria = errors.New("更新和删除操作必须携带条件")

	// ErrDuplicateBind 组合条件之间绑定变量名冲突
	ErrDuplicateBind = errors.New("组合条件绑定变量名冲突")

	// ErrArrayOperand 数组值只允许用于IN和NOT IN操作符
	ErrArrayOperand = errors.New("数组值只允许用于IN和NOT IN操作符")

	// ErrSubqueryOperand EXISTS和NOT EXISTS要求值为子查询
	ErrSubqueryOperand = errors.New("EXISTS类操作符要求值为子查询")
)

// FieldError 包装具体字段名的构建期错误
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Field)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// NewFieldError 创建带字段名的构建期错误
func NewFieldError(err error, field string) *FieldError {
	return &FieldError{Field: field, Err: err}
}
