/*
 * @module service/repository/result
 * @description 仓储统一结果结构，所有仓储方法不抛错误，调用方显式检查success
 * @architecture 分层架构 - 仓储层结果契约
 * @documentReference dev_docs/repository.md
 * @stateFlow 执行成功 -> Ok包装数据；执行失败 -> Fail携带错误码和信息
 * @rules 获取连接失败、执行失败、行映射失败统一走该结构，不向上抛异常
 * @dependencies 无
 * @refs repository.go
 */

package repository

// 仓储错误码
const (
	ErrCodeBuild   = "BUILD_ERROR"   // 构建期错误，语句未生成
	ErrCodeAcquire = "ACQUIRE_ERROR" // 连接获取失败，未执行任何SQL
	ErrCodeExecute = "EXECUTE_ERROR" // 执行期错误，连接已丢弃
	ErrCodeMapping = "MAPPING_ERROR" // 行映射失败
)

// Result 统一结果结构
type Result struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	ErrorCode string      `json:"errorCode,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// Ok 成功结果
func Ok(data interface{}) Result {
	return Result{Success: true, Data: data}
}

// Fail 失败结果
func Fail(code string, err error) Result {
	return Result{Success: false, ErrorCode: code, Message: err.Error()}
}

// PageData 分页查询的数据载荷
type PageData struct {
	Rows  []map[string]interface{} `json:"rows"`
	Total int64                    `json:"total"`
	Page  int                      `json:"page"`
	Size  int                      `json:"size"`
}
