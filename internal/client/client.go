// Package client 封装后端 REST 与 CRM manageclients 接口
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout 普通请求超时
const DefaultTimeout = 60 * time.Second

// ErrUnauthorized 后端返回 401（令牌过期或无效）
var ErrUnauthorized = errors.New("não autorizado: faça login novamente")

// Config 客户端配置
type Config struct {
	BaseURL string
	Timeout time.Duration
	Token   string // 后端 Bearer 令牌
}

// Client 后端 REST 客户端
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger

	mu    sync.RWMutex
	token string
}

// New 创建客户端
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
		token:   cfg.Token,
	}, nil
}

// SetToken 更新 Bearer 令牌
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token 当前 Bearer 令牌
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// BaseURL 后端地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request 单次请求描述
type request struct {
	method  string
	path    string
	query   url.Values
	body    interface{}
	timeout time.Duration // 覆盖默认超时（0 表示不覆盖）
}

// do 发送 JSON 请求并把响应解码到 out（out 为 nil 时丢弃响应体）
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	raw, _, err := c.doRaw(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", req.path, err)
	}
	return nil
}

// doRaw 发送请求并返回原始响应体与 Content-Type
func (c *Client) doRaw(ctx context.Context, req request) ([]byte, string, error) {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var bodyReader io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	if req.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, bodyReader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if bodyReader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	client := c.httpClient
	if req.timeout > c.httpClient.Timeout {
		// 长请求不受全局超时限制，由 ctx 控制
		cp := *c.httpClient
		cp.Timeout = 0
		client = &cp
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Error(err),
		)
		return nil, "", &APIError{Message: err.Error(), Network: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("backend request",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, "", ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", newStatusError(resp.StatusCode, raw)
	}
	return raw, resp.Header.Get("Content-Type"), nil
}
