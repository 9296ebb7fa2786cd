package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"hypnotools/internal/model"
)

// Login 登录后端，成功时保存令牌
func (c *Client) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/login",
		body:   req,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to login: %w", err)
	}
	if resp.Success && resp.Token != "" {
		c.SetToken(resp.Token)
	}
	return &resp, nil
}

// ValidateToken 让后端校验令牌
func (c *Client) ValidateToken(ctx context.Context, token string) (bool, error) {
	var ok bool
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/validate",
		body:   token,
	}, &ok)
	if err != nil {
		return false, fmt.Errorf("failed to validate token: %w", err)
	}
	return ok, nil
}

// Logout 清除本地令牌
func (c *Client) Logout() {
	c.SetToken("")
}

// TokenExpiry 读取 JWT 的 exp（不校验签名，签名由后端负责）
// 令牌不是 JWT 或没有 exp 时 ok=false
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// TokenExpired 令牌已过期（无法判断时视为未过期）
func TokenExpired(token string, now time.Time) bool {
	exp, ok := TokenExpiry(token)
	if !ok {
		return false
	}
	return !now.Before(exp)
}
