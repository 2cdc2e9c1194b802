/*
 * @module service/repository/row_converter_test
 * @description 行值转换器的单元测试，覆盖UTF-8直通和GBK遗留编码还原
 * @architecture 单元测试
 * @documentReference dev_docs/repository.md
 * @stateFlow 构造原始字节 -> 转换 -> 验证解码结果
 * @rules 合法UTF-8字节直通；非法UTF-8在遗留模式下按GBK解码
 * @dependencies testing, github.com/stretchr/testify/assert, golang.org/x/text
 * @refs row_converter.go
 */

package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

func TestRowConverter_UTF8PassThrough(t *testing.T) {
	converter := NewRowConverter(true)

	assert.Equal(t, "采购订单", converter.Convert([]byte("采购订单")))
	assert.Equal(t, "plain", converter.Convert([]byte("plain")))
}

func TestRowConverter_NonBytesUntouched(t *testing.T) {
	converter := NewRowConverter(true)

	assert.Equal(t, int64(42), converter.Convert(int64(42)))
	assert.Nil(t, converter.Convert(nil))
}

func TestRowConverter_GBKDecode(t *testing.T) {
	converter := NewRowConverter(true)

	// 构造GBK编码的中文字节序列
	encoded, _, err := transform.Bytes(simplifiedchinese.GBK.NewEncoder(), []byte("供应商名称"))
	assert.NoError(t, err)

	assert.Equal(t, "供应商名称", converter.Convert(encoded))
}

func TestRowConverter_GBKDisabled(t *testing.T) {
	converter := NewRowConverter(false)

	encoded, _, err := transform.Bytes(simplifiedchinese.GBK.NewEncoder(), []byte("供应商"))
	assert.NoError(t, err)

	// 未开启遗留模式时非法UTF-8按原始字节强转
	result := converter.Convert(encoded)
	assert.NotEqual(t, "供应商", result)
}
