package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hypnotools/internal/client"
	"hypnotools/internal/model"
	"hypnotools/internal/store"
	"hypnotools/internal/validation"
)

// StatusResponse 系统状态响应
// LoggedIn 表示有未过期的后端令牌；TokenExpiresAt 仅在令牌可解析时给出
type StatusResponse struct {
	Empresa        string           `json:"empresa"`
	CRMConfigured  bool             `json:"crmConfigured"`
	LoggedIn       bool             `json:"loggedIn"`
	User           *model.UserInfo  `json:"usuario"`
	TokenExpiresAt string           `json:"tokenExpiresAt"`
	LastImport     *model.ImportRun `json:"lastImport"`
	BackendURL     string           `json:"backendUrl"`
	CRMEndpoint    string           `json:"crmEndpoint"`
}

// GetStatus 获取系统状态
// GET /api/v1/status
func (h *Handler) GetStatus(c *gin.Context) {
	token, user, _ := h.app.Store.LoadSession()
	empresa, crmToken := h.app.CRM.Credentials()

	resp := StatusResponse{
		Empresa:       empresa,
		CRMConfigured: empresa != "" && crmToken != "",
		LoggedIn:      token != "" && !client.TokenExpired(token, time.Now()),
		BackendURL:    h.app.Backend.BaseURL(),
		CRMEndpoint:   h.app.CRM.Endpoint(),
	}
	if resp.LoggedIn {
		resp.User = user
	}
	if exp, ok := client.TokenExpiry(token); ok {
		resp.TokenExpiresAt = exp.UTC().Format(time.RFC3339)
	}

	runs, err := h.app.Store.ListImportLogs(1)
	if err != nil {
		h.logger.Warn("failed to load last import", zap.Error(err))
	} else if len(runs) > 0 {
		resp.LastImport = &runs[0]
	}

	c.JSON(http.StatusOK, resp)
}

// ConfigResponse 可修改的配置
type ConfigResponse struct {
	Empresa      string `json:"empresa"`
	TokenSet     bool   `json:"tokenConfigured"`
	BatchSize    int    `json:"batchSize"`
	BatchDelayMS int    `json:"batchDelayMs"`
	MaxRetries   int    `json:"maxRetries"`
}

// UpdateConfigRequest 更新配置请求，未给出的字段不变
type UpdateConfigRequest struct {
	Empresa *string `json:"empresa"`
	Token   *string `json:"token"`
}

// GetConfig 获取配置
// GET /api/v1/config
func (h *Handler) GetConfig(c *gin.Context) {
	empresa, token := h.app.CRM.Credentials()
	opts := h.app.BatchOptions()
	c.JSON(http.StatusOK, ConfigResponse{
		Empresa:      empresa,
		TokenSet:     token != "",
		BatchSize:    opts.BatchSize,
		BatchDelayMS: int(opts.BatchDelay / time.Millisecond),
		MaxRetries:   opts.MaxRetries,
	})
}

// UpdateConfig 更新公司与 CRM 令牌
// PATCH /api/v1/config
func (h *Handler) UpdateConfig(c *gin.Context) {
	var req UpdateConfigRequest
	if !bindJSON(c, &req) {
		return
	}

	empresa, token := h.app.CRM.Credentials()
	if req.Empresa != nil {
		empresa = strings.TrimSpace(*req.Empresa)
		if err := h.app.Store.SetConfig(store.ConfigKeyEmpresa, empresa); err != nil {
			h.writeError(c, err)
			return
		}
	}
	if req.Token != nil {
		token = strings.TrimSpace(*req.Token)
		if err := h.app.Store.SetConfig(store.ConfigKeyCRMToken, token); err != nil {
			h.writeError(c, err)
			return
		}
	}
	h.app.CRM.SetCredentials(empresa, token)

	c.JSON(http.StatusOK, gin.H{"message": "Configuração atualizada"})
}

// loginMessages 登录请求的校验提示
var loginMessages = map[string]string{
	"email.required":   "Email é obrigatório",
	"email.email":      "Email inválido",
	"senha.required":   "Senha é obrigatória",
	"empresa.required": "Empresa é obrigatória",
}

// Login 登录后端并保存会话
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := validation.Struct(req, loginMessages); err != nil {
		h.writeError(c, err)
		return
	}

	resp, err := h.app.Backend.Login(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !resp.Success {
		c.JSON(http.StatusUnauthorized, resp)
		return
	}

	if err := h.app.Store.SaveSession(resp.Token, resp.Usuario, req.Empresa); err != nil {
		h.logger.Warn("failed to persist session", zap.Error(err))
	}
	_, crmToken := h.app.CRM.Credentials()
	h.app.CRM.SetCredentials(req.Empresa, crmToken)

	c.JSON(http.StatusOK, resp)
}

// Logout 清除会话
// POST /api/v1/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	h.app.Backend.Logout()
	if err := h.app.Store.ClearSession(); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sessão encerrada"})
}
