/*
 * @module service/plsql/manage_service_test
 * @description 接口注册管理服务的单元测试
 * @architecture 测试驱动开发 - sqlite内存库验证接口CRUD语义
 * @documentReference dev_docs/plsql_gateway.md
 * @stateFlow 测试准备 -> 数据构造 -> 操作验证
 * @rules 覆盖包含匹配过滤、编辑影响行数判定和失效语义
 * @dependencies testing, testify, gorm, sqlite
 * @refs manage_service.go
 */

package plsql

import (
	"errors"
	"testing"

	"esb-bridge-service/service/meta"
	"esb-bridge-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupRouteDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ApiRoute{}))
	return db
}

func seedRoutes(t *testing.T, db *gorm.DB) {
	routes := []models.ApiRoute{
		{BizName: "采购订单同步", PackageName: "CUX_PO_PKG", ProcedureName: "SYNC_ORDER", Status: meta.APIStatusValid},
		{BizName: "供应商主数据", PackageName: "CUX_VENDOR_PKG", ProcedureName: "SYNC_VENDOR", Status: meta.APIStatusValid},
		{BizName: "采购退货", PackageName: "CUX_PO_PKG", ProcedureName: "RETURN_ORDER", Status: meta.APIStatusInvalid},
	}
	for i := range routes {
		require.NoError(t, db.Create(&routes[i]).Error)
	}
}

// TestRouteListFilter 测试bizName与origName包含匹配过滤
func TestRouteListFilter(t *testing.T) {
	db := setupRouteDB(t)
	seedRoutes(t, db)
	service := NewManageService(db, nil)

	list, err := service.List("采购", "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Total)
	assert.Len(t, list.Items, 2)

	list, err = service.List("", "VENDOR", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, "供应商主数据", list.Items[0].BizName)

	// 分页参数缺省回落 page=1 size=10
	list, err = service.List("", "", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 10, list.Size)
}

// TestRouteEdit 测试接口编辑与不存在记录的判定
func TestRouteEdit(t *testing.T) {
	db := setupRouteDB(t)
	seedRoutes(t, db)
	service := NewManageService(db, nil)

	var route models.ApiRoute
	require.NoError(t, db.First(&route, "biz_name = ?", "采购订单同步").Error)

	require.NoError(t, service.Edit(route.ID, "采购订单同步V2", "新备注"))

	edited, err := service.Detail(route.ID)
	require.NoError(t, err)
	assert.Equal(t, "采购订单同步V2", edited.BizName)
	assert.Equal(t, "新备注", edited.Remark)

	err = service.Edit("missing-id", "x", "y")
	var opErr *meta.OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, meta.ErrCodeNotFound, opErr.Code)
}

// TestRouteInvalidate 测试接口失效
func TestRouteInvalidate(t *testing.T) {
	db := setupRouteDB(t)
	seedRoutes(t, db)
	service := NewManageService(db, nil)

	var route models.ApiRoute
	require.NoError(t, db.First(&route, "biz_name = ?", "供应商主数据").Error)

	require.NoError(t, service.Invalidate(route.ID, "OPS"))

	invalidated, err := service.Detail(route.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.APIStatusInvalid, invalidated.Status)
	assert.False(t, invalidated.IsInvocable())

	err = service.Invalidate("missing-id", "OPS")
	var opErr *meta.OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, meta.ErrCodeNotFound, opErr.Code)
}

// TestRouteModelDerivedFields 测试创建钩子补齐派生字段
func TestRouteModelDerivedFields(t *testing.T) {
	db := setupRouteDB(t)

	route := models.ApiRoute{BizName: "库存查询", PackageName: "CUX_INV_PKG", ProcedureName: "QUERY_STOCK"}
	require.NoError(t, db.Create(&route).Error)

	assert.NotEmpty(t, route.ID)
	assert.Equal(t, "CUX_INV_PKG.QUERY_STOCK", route.OrigName)
	assert.Equal(t, meta.APIStatusRegisting, route.Status)
	assert.False(t, route.IsInvocable())
}
