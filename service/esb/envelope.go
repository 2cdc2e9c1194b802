/*
 * @module service/esb/envelope
 * @description ESB报文信封定义，ETL传输和PL/SQL网关外呼共用的标准请求/响应包装
 * @architecture 协议层 - 系统间调用的统一报文契约
 * @documentReference dev_docs/esb_protocol.md
 * @stateFlow 构造请求信封 -> 外呼 -> 按returnCode前缀判定成败
 * @rules instId使用uuid；requestTime格式YYYY-MM-DD HH:mm:ss.SSS；成功判定仅看returnCode是否以A开头
 * @dependencies github.com/google/uuid
 * @refs client.go, service/basicdata, service/plsql
 */

package esb

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestTimeFormat ESB报文时间格式
const RequestTimeFormat = "2006-01-02 15:04:05.000"

// EsbInfo 报文头
type EsbInfo struct {
	InstID       string `json:"instId"`
	RequestTime  string `json:"requestTime"`
	ResponseTime string `json:"responseTime,omitempty"`
	ReturnCode   string `json:"returnCode,omitempty"`
	ReturnStatus string `json:"returnStatus,omitempty"`
	ReturnMsg    string `json:"returnMsg,omitempty"`
	Attr1        string `json:"attr1,omitempty"`
	Attr2        string `json:"attr2,omitempty"`
	Attr3        string `json:"attr3,omitempty"`
}

// QueryInfo 分页查询信息
type QueryInfo struct {
	PageSize    string `json:"pageSize,omitempty"`
	CurrentPage string `json:"currentPage,omitempty"`
}

// Request ESB请求信封
type Request struct {
	EsbInfo     EsbInfo     `json:"esbInfo"`
	QueryInfo   QueryInfo   `json:"queryInfo"`
	RequestInfo interface{} `json:"requestInfo"`
}

// Response ESB响应信封
type Response struct {
	EsbInfo    EsbInfo     `json:"esbInfo"`
	QueryInfo  *QueryInfo  `json:"queryInfo,omitempty"`
	ResultInfo interface{} `json:"resultInfo,omitempty"`
}

// NewRequest 构造请求信封
func NewRequest(payload interface{}) *Request {
	return &Request{
		EsbInfo: EsbInfo{
			InstID:      uuid.New().String(),
			RequestTime: time.Now().Format(RequestTimeFormat),
		},
		RequestInfo: payload,
	}
}

// IsSuccess 响应成败判定，仅看returnCode是否以A开头，缺失视为失败
func (r *Response) IsSuccess() bool {
	return strings.HasPrefix(r.EsbInfo.ReturnCode, "A")
}

// FailureResponse 构造失败响应信封，网关鉴权失败等本地失败场景使用
func FailureResponse(instID, returnCode, returnMsg string) *Response {
	if instID == "" {
		instID = uuid.New().String()
	}
	return &Response{
		EsbInfo: EsbInfo{
			InstID:       instID,
			ResponseTime: time.Now().Format(RequestTimeFormat),
			ReturnCode:   returnCode,
			ReturnStatus: "F",
			ReturnMsg:    returnMsg,
		},
	}
}

// SuccessResponse 构造成功响应信封
func SuccessResponse(instID string, resultInfo interface{}) *Response {
	if instID == "" {
		instID = uuid.New().String()
	}
	return &Response{
		EsbInfo: EsbInfo{
			InstID:       instID,
			ResponseTime: time.Now().Format(RequestTimeFormat),
			ReturnCode:   "A0001",
			ReturnStatus: "S",
			ReturnMsg:    "执行成功",
		},
		ResultInfo: resultInfo,
	}
}
