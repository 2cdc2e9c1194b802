/*
 * @module service/esb/envelope_test
 * @description ESB信封的单元测试，覆盖成败判定和信封构造
 * @architecture 单元测试
 * @documentReference dev_docs/esb_protocol.md
 * @stateFlow 构造信封 -> 验证字段和判定逻辑
 * @rules returnCode以A开头才算成功，其余一律失败
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs envelope.go
 */

package esb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResponse_IsSuccess(t *testing.T) {
	tests := []struct {
		name       string
		returnCode string
		expected   bool
	}{
		{"A前缀成功", "A0001", true},
		{"单字母A成功", "A", true},
		{"E前缀失败", "E9999", false},
		{"S前缀失败", "S0001", false},
		{"空码失败", "", false},
		{"小写a失败", "a0001", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{EsbInfo: EsbInfo{ReturnCode: tt.returnCode}}
			assert.Equal(t, tt.expected, resp.IsSuccess())
		})
	}
}

func TestNewRequest(t *testing.T) {
	payload := map[string]interface{}{"orderNo": "PO-001"}
	req := NewRequest(payload)

	assert.NotEmpty(t, req.EsbInfo.InstID)
	assert.Equal(t, payload, req.RequestInfo)

	// requestTime符合YYYY-MM-DD HH:mm:ss.SSS格式
	_, err := time.Parse(RequestTimeFormat, req.EsbInfo.RequestTime)
	assert.NoError(t, err)
}

func TestFailureResponse(t *testing.T) {
	resp := FailureResponse("", "E0401", "appkey校验失败")

	assert.False(t, resp.IsSuccess())
	assert.NotEmpty(t, resp.EsbInfo.InstID)
	assert.Equal(t, "F", resp.EsbInfo.ReturnStatus)
	assert.Equal(t, "appkey校验失败", resp.EsbInfo.ReturnMsg)
}

func TestSuccessResponse(t *testing.T) {
	resp := SuccessResponse("inst-1", map[string]interface{}{"count": 3})

	assert.True(t, resp.IsSuccess())
	assert.Equal(t, "inst-1", resp.EsbInfo.InstID)
	assert.Equal(t, "S", resp.EsbInfo.ReturnStatus)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abcd", 2))
	// 按符文截断，不截断多字节字符
	assert.Equal(t, "采购", truncate("采购订单", 2))
}
