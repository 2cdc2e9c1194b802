/*
 * @module service/repository/binds
 * @description 命名绑定变量到驱动占位符的翻译，遗留方言的RETURNING INTO出参改写为RETURNING扫描
 * @architecture 适配器模式 - 编译语句与实际执行驱动之间的方言适配
 * @documentReference dev_docs/repository.md
 * @stateFlow 剥离出参子句 -> 扫描命名占位符 -> 按首现顺序编号 -> 收集入参值
 * @rules 同名占位符复用同一编号；单引号字符串内的冒号不作占位符处理；出参绑定不参与入参收集
 * @dependencies fmt, strings
 * @refs repository.go, service/metadata
 */

package repository

import (
	"fmt"
	"strings"

	"esb-bridge-service/service/metadata"
)

// translatedStatement 翻译完成的可执行语句
type translatedStatement struct {
	SQL         string
	Args        []interface{}
	ReturningID bool // 原语句携带RETURNING … INTO :id出参，执行时改为RETURNING扫描
}

// isBindChar 占位符名合法字符
func isBindChar(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// translateStatement 把命名绑定语句翻译为驱动可执行的位置参数语句
func translateStatement(sqlText string, binds metadata.BindMap) (*translatedStatement, error) {
	result := &translatedStatement{}

	// RETURNING … INTO :id 出参改写：剥离INTO子句，执行时QueryRow扫描返回列
	intoClause := " INTO :" + metadata.IDBindName
	if strings.HasSuffix(sqlText, intoClause) {
		sqlText = strings.TrimSuffix(sqlText, intoClause)
		result.ReturningID = true
	}

	var sb strings.Builder
	ordinals := make(map[string]int)
	inQuote := false

	for i := 0; i < len(sqlText); i++ {
		ch := sqlText[i]

		if ch == '\'' {
			inQuote = !inQuote
			sb.WriteByte(ch)
			continue
		}

		if inQuote || ch != ':' || i+1 >= len(sqlText) || !isBindChar(sqlText[i+1]) {
			sb.WriteByte(ch)
			continue
		}

		// 取出占位符名
		j := i + 1
		for j < len(sqlText) && isBindChar(sqlText[j]) {
			j++
		}
		name := sqlText[i+1 : j]
		i = j - 1

		param, ok := binds[name]
		if !ok {
			return nil, fmt.Errorf("SQL占位符缺少对应绑定: %s", name)
		}
		if param.Direction == metadata.BindOut {
			return nil, fmt.Errorf("出参绑定不允许出现在入参位置: %s", name)
		}

		ordinal, seen := ordinals[name]
		if !seen {
			ordinal = len(ordinals) + 1
			ordinals[name] = ordinal
			result.Args = append(result.Args, param.Value)
		}
		sb.WriteString(fmt.Sprintf("$%d", ordinal))
	}

	result.SQL = sb.String()
	return result, nil
}
