/*
 * @module api/middleware/appkey_auth
 * @description 网关appkey鉴权中间件，校验调用方密钥并放行白名单路径
 * @architecture 中间件模式 - HTTP请求拦截和验证
 * @documentReference dev_docs/plsql_gateway.md
 * @stateFlow appkey提取 -> bcrypt校验 -> 下一个处理器
 * @rules 鉴权失败返回HTTP 200的ESB失败信封，兼容历史客户端不处理非200状态码的行为
 * @dependencies net/http, golang.org/x/crypto/bcrypt
 * @refs api/routes.go, service/esb/envelope.go
 */

package middleware

import (
	"net/http"
	"os"
	"strings"
	"sync"

	"esb-bridge-service/service/esb"

	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"
)

// AppKeyHeader 调用方密钥请求头
const AppKeyHeader = "appkey"

// AppKeyAuthMiddleware 网关appkey鉴权中间件
type AppKeyAuthMiddleware struct {
	keyHash []byte
	// 校验结果缓存，bcrypt逐请求比对开销过大
	verified sync.Map
	// 白名单路径（不需要鉴权）
	whitelistPaths []string
}

// NewAppKeyAuthMiddleware 创建appkey鉴权中间件实例
// ESB_APPKEY_HASH为空时鉴权退化为直接放行，便于本地开发
func NewAppKeyAuthMiddleware() *AppKeyAuthMiddleware {
	return &AppKeyAuthMiddleware{
		keyHash: []byte(os.Getenv("ESB_APPKEY_HASH")),
		whitelistPaths: []string{
			"/health",
			"/ready",
			"/swagger",
		},
	}
}

// IsWhitelistPath 检查路径是否在白名单中
func (m *AppKeyAuthMiddleware) IsWhitelistPath(path string) bool {
	for _, whitelistPath := range m.whitelistPaths {
		if strings.HasPrefix(path, whitelistPath) {
			return true
		}
	}
	return false
}

// Middleware 鉴权中间件处理函数
func (m *AppKeyAuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.keyHash) == 0 || m.IsWhitelistPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		appKey := r.Header.Get(AppKeyHeader)
		if appKey == "" {
			m.respondUnauthorized(w, r, "缺少appkey请求头")
			return
		}

		if _, ok := m.verified.Load(appKey); ok {
			next.ServeHTTP(w, r)
			return
		}

		if err := bcrypt.CompareHashAndPassword(m.keyHash, []byte(appKey)); err != nil {
			m.respondUnauthorized(w, r, "appkey校验失败，拒绝调用")
			return
		}

		m.verified.Store(appKey, struct{}{})
		next.ServeHTTP(w, r)
	})
}

// respondUnauthorized 返回鉴权失败的ESB信封
func (m *AppKeyAuthMiddleware) respondUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	render.JSON(w, r, esb.FailureResponse("", "E9999", message))
}
