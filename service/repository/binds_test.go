/*
 * @module service/repository/binds_test
 * @description 命名绑定翻译的单元测试
 * @architecture 单元测试 - 方言适配的纯函数验证
 * @documentReference dev_docs/repository.md
 * @stateFlow 构造命名绑定语句 -> 翻译 -> 验证占位符编号和入参顺序
 * @rules 同名占位符复用编号；引号内冒号不处理；出参改写为RETURNING扫描
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs binds.go
 */

package repository

import (
	"testing"

	"esb-bridge-service/service/metadata"

	"github.com/stretchr/testify/assert"
)

func TestTranslateStatement_Basic(t *testing.T) {
	binds := metadata.BindMap{
		"p_status":  {Direction: metadata.BindIn, Value: "VALID"},
		"p_bizName": {Direction: metadata.BindIn, Value: "SRM"},
	}

	translated, err := translateStatement(
		"SELECT 1 FROM T WHERE 1 = 1 AND STATUS = :p_status AND BIZ_NAME = :p_bizName", binds)

	assert.NoError(t, err)
	assert.Equal(t, "SELECT 1 FROM T WHERE 1 = 1 AND STATUS = $1 AND BIZ_NAME = $2", translated.SQL)
	assert.Equal(t, []interface{}{"VALID", "SRM"}, translated.Args)
	assert.False(t, translated.ReturningID)
}

func TestTranslateStatement_ReusesOrdinalForSameName(t *testing.T) {
	binds := metadata.BindMap{
		"p_v": {Direction: metadata.BindIn, Value: 7},
	}

	translated, err := translateStatement("SELECT 1 FROM T WHERE A = :p_v OR B = :p_v", binds)

	assert.NoError(t, err)
	assert.Equal(t, "SELECT 1 FROM T WHERE A = $1 OR B = $1", translated.SQL)
	assert.Len(t, translated.Args, 1)
}

func TestTranslateStatement_QuotedColonUntouched(t *testing.T) {
	binds := metadata.BindMap{
		"p_name": {Direction: metadata.BindIn, Value: "X"},
	}

	translated, err := translateStatement(
		"SELECT ':notabind' AS literal FROM T WHERE NVL(N,'') LIKE '%' || :p_name || '%'", binds)

	assert.NoError(t, err)
	assert.Contains(t, translated.SQL, "':notabind'")
	assert.Contains(t, translated.SQL, "|| $1 ||")
}

func TestTranslateStatement_ReturningInto(t *testing.T) {
	binds := metadata.BindMap{
		"bizName": {Direction: metadata.BindIn, Value: "X"},
		"id":      {Direction: metadata.BindOut},
	}

	translated, err := translateStatement(
		"INSERT INTO T (BIZ_NAME) VALUES (:bizName) RETURNING API_ID INTO :id", binds)

	assert.NoError(t, err)
	// 出参子句剥离，执行时改为RETURNING扫描
	assert.Equal(t, "INSERT INTO T (BIZ_NAME) VALUES ($1) RETURNING API_ID", translated.SQL)
	assert.True(t, translated.ReturningID)
	assert.Equal(t, []interface{}{"X"}, translated.Args)
}

func TestTranslateStatement_MissingBind(t *testing.T) {
	_, err := translateStatement("SELECT 1 FROM T WHERE A = :p_missing", metadata.BindMap{})
	assert.Error(t, err)
}

func TestTranslateStatement_OutBindInline(t *testing.T) {
	binds := metadata.BindMap{
		"o": {Direction: metadata.BindOut},
	}

	_, err := translateStatement("SELECT :o FROM DUAL", binds)
	assert.Error(t, err)
}
