package meta

// OpError 携带错误码的管理操作错误，控制器据此填充响应的errorCode
type OpError struct {
	Code    string
	Message string
}

func (e *OpError) Error() string {
	return e.Message
}

// NewOpError 创建带错误码的操作错误
func NewOpError(code, message string) *OpError {
	return &OpError{Code: code, Message: message}
}
