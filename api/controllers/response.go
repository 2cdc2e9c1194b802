package controllers

import (
	"errors"

	"esb-bridge-service/service/meta"
)

// APIResponse 统一API响应结构
type APIResponse struct {
	Success   bool        `json:"success" example:"true"`
	Data      interface{} `json:"data,omitempty"`
	ErrorCode string      `json:"errorCode,omitempty" example:"NOT FOUND"`
	Message   string      `json:"message,omitempty" example:"没有对应的接口数据"`
}

// OkResponse 成功响应
func OkResponse(data interface{}) APIResponse {
	return APIResponse{Success: true, Data: data}
}

// FailResponse 失败响应
func FailResponse(errorCode, message string) APIResponse {
	return APIResponse{Success: false, ErrorCode: errorCode, Message: message}
}

// ErrorResponse 从error构造失败响应，携带错误码的操作错误透传其错误码
func ErrorResponse(err error) APIResponse {
	var opErr *meta.OpError
	if errors.As(err, &opErr) {
		return FailResponse(opErr.Code, opErr.Message)
	}
	return FailResponse("INTERNAL ERROR", err.Error())
}
