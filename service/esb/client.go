/*
 * @module service/esb/client
 * @description ESB外呼客户端，携带基础认证POST请求信封并解析响应信封
 * @architecture 客户端模式 - 出站HTTP调用的统一入口
 * @documentReference dev_docs/esb_protocol.md
 * @stateFlow 序列化请求信封 -> POST -> 解析响应信封 -> 按returnCode判定
 * @rules 非2xx或响应解析失败按业务失败返回错误；超时可配置
 * @dependencies net/http, encoding/json
 * @refs envelope.go
 */

package esb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client ESB外呼客户端
type Client struct {
	httpClient *http.Client
	username   string
	password   string
}

// NewClient 创建客户端
func NewClient(username, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		username:   username,
		password:   password,
	}
}

// Post 发送请求信封到指定URL并解析响应信封
func (c *Client) Post(ctx context.Context, url string, request *Request) (*Response, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("请求信封序列化失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("请求构建失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ESB调用失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ESB响应读取失败: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ESB调用返回非成功状态: %d, body=%s", resp.StatusCode, truncate(string(respBody), 500))
	}

	var envelope Response
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("ESB响应解析失败: %w, body=%s", err, truncate(string(respBody), 500))
	}
	return &envelope, nil
}

// truncate 截断字符串到指定长度
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
