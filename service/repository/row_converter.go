/*
 * @module service/repository/row_converter
 * @description 行值转换器，把驱动返回的原始列值还原为领域值，兼容遗留库的GBK编码CHAR列
 * @architecture 工具层 - 行映射的值转换
 * @documentReference dev_docs/repository.md
 * @stateFlow 原始列值 -> 编码还原 -> toDomain转换 -> 领域字段赋值
 * @rules 字节值优先按UTF-8处理，非法UTF-8按GBK解码；解码失败保留原始字节的强转结果
 * @dependencies golang.org/x/text/encoding/simplifiedchinese, golang.org/x/text/transform
 * @refs repository.go, service/metadata
 */

package repository

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// RowConverter 行值转换器
type RowConverter struct {
	legacyGBK bool // 遗留库CHAR列按GBK存储
}

// NewRowConverter 创建行值转换器
func NewRowConverter(legacyGBK bool) *RowConverter {
	return &RowConverter{legacyGBK: legacyGBK}
}

// Convert 还原单个列值
func (c *RowConverter) Convert(value interface{}) interface{} {
	raw, ok := value.([]byte)
	if !ok {
		return value
	}

	if utf8.Valid(raw) {
		return string(raw)
	}

	if c.legacyGBK {
		if decoded, err := decodeGBK(raw); err == nil {
			return decoded
		}
	}

	return string(raw)
}

// decodeGBK GBK字节序列解码为UTF-8字符串
func decodeGBK(raw []byte) (string, error) {
	decoded, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
