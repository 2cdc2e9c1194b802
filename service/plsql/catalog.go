/*
 * @module service/plsql/catalog
 * @description 遗留库目录操作：存储过程存在性校验、包装对象注册与编译、包装函数调用
 * @architecture 分层架构 - 注册流程与网关共用的遗留库访问层
 * @documentReference dev_docs/plsql_gateway.md
 * @stateFlow 校验包与过程 -> 调用注册过程 -> 生成并编译包装对象 -> 回读包装函数名
 * @rules 包装函数为JSON入参JSON出参；包装对象编译后必须回查VALID；重载过程拒绝注册
 * @dependencies service/repository
 * @refs regist_worker.go, gateway.go
 */

package plsql

import (
	"context"
	"fmt"

	"esb-bridge-service/service/meta"
	"esb-bridge-service/service/metadata"
	"esb-bridge-service/service/repository"

	"github.com/spf13/cast"
)

// Catalog 遗留库目录操作集
type Catalog struct {
	repo *repository.Repository
}

// NewCatalog 创建目录操作集
func NewCatalog(repo *repository.Repository) *Catalog {
	return &Catalog{repo: repo}
}

func inBind(value interface{}) metadata.BindParam {
	return metadata.BindParam{Direction: metadata.BindIn, Value: value}
}

// CheckPackageProcedure 校验程序包有效且目标过程存在无重载
// 依次检查：包体存在、包体VALID、过程存在、过程无同名重载
func (c *Catalog) CheckPackageProcedure(ctx context.Context, packageName, procedureName string) error {
	result := c.repo.Query(ctx,
		`SELECT STATUS AS "status" FROM ALL_OBJECTS WHERE OBJECT_TYPE = 'PACKAGE BODY' AND OBJECT_NAME = :p_packageName AND ROWNUM = 1`,
		metadata.BindMap{"p_packageName": inBind(packageName)})
	if !result.Success {
		return fmt.Errorf("程序包校验查询失败: %s", result.Message)
	}
	rows, _ := result.Data.([]map[string]interface{})
	if len(rows) == 0 {
		return meta.NewOpError("PACKAGE NOT FOUND", fmt.Sprintf("没有找到对应的程序包: %s", packageName))
	}
	if cast.ToString(rows[0]["status"]) != "VALID" {
		return meta.NewOpError("PACKAGE NOT VALID", fmt.Sprintf("程序包不是有效状态: %s", packageName))
	}

	result = c.repo.Query(ctx,
		`SELECT OBJECT_NAME AS "objectName", OVERLOAD AS "overload" FROM ALL_ARGUMENTS
 WHERE PACKAGE_NAME = :p_packageName AND OBJECT_NAME = :p_procedureName AND DATA_LEVEL = 0 AND ROWNUM = 1`,
		metadata.BindMap{
			"p_packageName":   inBind(packageName),
			"p_procedureName": inBind(procedureName),
		})
	if !result.Success {
		return fmt.Errorf("存储过程校验查询失败: %s", result.Message)
	}
	rows, _ = result.Data.([]map[string]interface{})
	if len(rows) == 0 {
		return meta.NewOpError("PROCEDURE NOT FOUND", fmt.Sprintf("没有找到对应的存储过程: %s.%s", packageName, procedureName))
	}
	if cast.ToString(rows[0]["overload"]) != "" {
		return meta.NewOpError("PROCEDURE OVERLOADED", fmt.Sprintf("存储过程存在同名重载，无法注册: %s.%s", packageName, procedureName))
	}
	return nil
}

// Regist 调用遗留库注册过程登记接口，并回读生成的包装函数名
func (c *Catalog) Regist(ctx context.Context, packageName, procedureName, bizName, remark, updatedBy string) (string, error) {
	result := c.repo.Exec(ctx,
		"CALL CUX.CUX_11GAPI_WRAPPER_PKG.REGIST(:p_packageName, :p_procedureName, :p_bizName, :p_remark, :p_updatedBy)",
		metadata.BindMap{
			"p_packageName":   inBind(packageName),
			"p_procedureName": inBind(procedureName),
			"p_bizName":       inBind(bizName),
			"p_remark":        inBind(remark),
			"p_updatedBy":     inBind(updatedBy),
		})
	if !result.Success {
		return "", fmt.Errorf("注册过程执行失败: %s", result.Message)
	}

	result = c.repo.Query(ctx,
		`SELECT WRAP_NAME AS "wrapName" FROM CUX.CUX_PLSQL_REST_API_TOP_T WHERE ORIG_NAME = :p_origName`,
		metadata.BindMap{"p_origName": inBind(packageName + "." + procedureName)})
	if !result.Success {
		return "", fmt.Errorf("包装函数名回读失败: %s", result.Message)
	}
	rows, _ := result.Data.([]map[string]interface{})
	if len(rows) == 0 || cast.ToString(rows[0]["wrapName"]) == "" {
		return "", fmt.Errorf("注册过程未生成包装函数名: %s.%s", packageName, procedureName)
	}
	return cast.ToString(rows[0]["wrapName"]), nil
}

// GenerateWrapper 生成并编译包装对象，编译完成后回查对象状态
func (c *Catalog) GenerateWrapper(ctx context.Context, packageName, procedureName string) error {
	result := c.repo.Exec(ctx,
		"CALL CUX.CUX_11GAPI_WRAPPER_PKG.GEN_WRAP_PACKAGE(:p_packageName, :p_procedureName)",
		metadata.BindMap{
			"p_packageName":   inBind(packageName),
			"p_procedureName": inBind(procedureName),
		})
	if !result.Success {
		return fmt.Errorf("包装对象生成失败: %s", result.Message)
	}

	// 包装包编译失败不会让生成过程报错，必须回查对象状态
	result = c.repo.Query(ctx,
		`SELECT OBJECT_NAME AS "objectName", STATUS AS "status" FROM ALL_OBJECTS
 WHERE OBJECT_TYPE = 'PACKAGE BODY' AND OBJECT_NAME = :p_wrapPackage AND ROWNUM = 1`,
		metadata.BindMap{"p_wrapPackage": inBind(wrapPackageName(packageName))})
	if !result.Success {
		return fmt.Errorf("包装对象状态回查失败: %s", result.Message)
	}
	rows, _ := result.Data.([]map[string]interface{})
	if len(rows) == 0 {
		return fmt.Errorf("包装对象未生成: %s", wrapPackageName(packageName))
	}
	if cast.ToString(rows[0]["status"]) != "VALID" {
		return fmt.Errorf("包装对象编译后状态异常: %s status=%s", wrapPackageName(packageName), rows[0]["status"])
	}
	return nil
}

// InvokeWrapper 调用包装函数，JSON文本入参、JSON文本出参
func (c *Catalog) InvokeWrapper(ctx context.Context, wrapName, requestJSON string) (string, error) {
	result := c.repo.Query(ctx,
		fmt.Sprintf(`SELECT %s(:p_request) AS "response" FROM DUAL`, wrapName),
		metadata.BindMap{"p_request": inBind(requestJSON)})
	if !result.Success {
		return "", fmt.Errorf("包装函数调用失败: %s", result.Message)
	}
	rows, _ := result.Data.([]map[string]interface{})
	if len(rows) == 0 {
		return "", fmt.Errorf("包装函数未返回结果: %s", wrapName)
	}
	return cast.ToString(rows[0]["response"]), nil
}

// wrapPackageName 注册器的包装包命名约定
func wrapPackageName(packageName string) string {
	return "CUX_W_" + packageName
}
