// Package v1 operator UI 使用的 JSON/SSE 接口
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hypnotools/internal/app"
	"hypnotools/internal/client"
	"hypnotools/internal/deletion"
	"hypnotools/internal/erp"
	"hypnotools/internal/parser"
	"hypnotools/internal/validation"
)

// Handler v1 接口处理器
type Handler struct {
	app       *app.App
	logger    *zap.Logger
	downloads *downloadStore
}

// NewHandler 创建处理器
func NewHandler(a *app.App) *Handler {
	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		app:       a,
		logger:    logger.Named("api"),
		downloads: newDownloadStore(),
	}
}

// RegisterRoutes 注册 v1 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态与配置
	router.GET("/status", h.GetStatus)
	router.GET("/config", h.GetConfig)
	router.PATCH("/config", h.UpdateConfig)
	router.POST("/auth/login", h.Login)
	router.POST("/auth/logout", h.Logout)

	// 客户导入
	router.POST("/import/parse", h.ParseImport)
	router.POST("/import", h.Import)
	router.GET("/imports", h.ListImports)
	router.GET("/imports/:runId/errors", h.ListImportErrors)
	router.POST("/imports/:runId/export", h.ExportImportErrors)
	router.GET("/download/:token", h.Download)

	// 批量删除
	router.POST("/deletion/parse", h.ParseDeletionIDs)
	router.POST("/deletion/validate", h.ValidateDeletion)
	router.POST("/deletion/execute", h.ExecuteDeletion)
	router.GET("/deletion/runs", h.ListDeletionRuns)
	router.GET("/deletion/logs", h.ListDeletionLogs)
	router.GET("/deletion/logs/:name", h.DownloadDeletionLog)

	// ERP 映射
	erpGroup := router.Group("/erp")
	{
		erpGroup.GET("/obras", h.ListObras)
		erpGroup.GET("/obras/:codigo/unidades", h.GetUnits)
		erpGroup.POST("/obras/:codigo/refresh", h.RefreshUnits)
		erpGroup.GET("/empresas", h.ListCompanies)
		erpGroup.GET("/provedores", h.ListProviders)
		erpGroup.GET("/catalogo", h.GetCatalog)
		erpGroup.POST("/automap", h.AutoMap)
		erpGroup.POST("/validate", h.ValidateMapping)
		erpGroup.GET("/template/patterns", h.ListPatterns)
		erpGroup.POST("/template/test", h.TestTemplate)
		erpGroup.POST("/template/detect", h.DetectPattern)
		erpGroup.POST("/payload", h.PreviewPayload)
		erpGroup.POST("/import", h.ImportStructure)
		erpGroup.POST("/external-ids", h.UpdateExternalIDs)
		erpGroup.GET("/status-unidades", h.ListUnitStatuses)
	}
}

// 请求错误映射为 400
var badRequestErrors = []error{
	errNoFile,
	parser.ErrUnsupportedFormat,
	parser.ErrSheetNotFound,
	parser.ErrEmptySheet,
	deletion.ErrIDsRequired,
	deletion.ErrNoIDs,
	deletion.ErrTooManyIDs,
	deletion.ErrUnsupportedFormat,
	deletion.ErrNoIDsInFile,
	deletion.ErrNoValidClients,
	erp.ErrNoUnits,
	erp.ErrProductIDRequired,
	erp.ErrMappingIncomplete,
	erp.ErrNoUnitsForUpdate,
	erp.ErrProductIDRequiredForUpdate,
	erp.ErrNoExternalIDs,
	erp.ErrPatternNotDetected,
	client.ErrNotConfigured,
}

// errorStatus 错误对应的 HTTP 状态码
func errorStatus(err error) int {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return http.StatusBadRequest
	}
	if errors.Is(err, client.ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, erp.ErrObraNotFound) {
		return http.StatusNotFound
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return apiErr.Status
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError 统一错误响应；校验错误附带字段明细
func (h *Handler) writeError(c *gin.Context, err error) {
	status := errorStatus(err)
	body := gin.H{"error": err.Error()}
	var verr *validation.Error
	if errors.As(err, &verr) {
		body["details"] = verr.Details
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, body)
}

// bindJSON 解析请求体，失败时已写出 400
func bindJSON(c *gin.Context, out interface{}) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Formato de requisição inválido"})
		return false
	}
	return true
}

// sseStream SSE 写出器
type sseStream struct {
	c       *gin.Context
	flusher http.Flusher
}

// startSSE 设置 SSE 响应头；不支持流式时写出 500 并返回 nil
func startSSE(c *gin.Context) *sseStream {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming não suportado"})
		return nil
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	return &sseStream{c: c, flusher: flusher}
}

// send SSE 格式: data: {json}\n\n
func (s *sseStream) send(event interface{}) {
	b, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(s.c.Writer, "data: %s\n\n", b)
	s.flusher.Flush()
}

// streamEvent 非导入流程使用的事件
type streamEvent struct {
	Type      string      `json:"type"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

func newEvent(typ, msg string, data interface{}) streamEvent {
	return streamEvent{Type: typ, Message: msg, Data: data, Timestamp: time.Now()}
}

// contentDisposition 附件头，同时给出 UTF-8 文件名
func contentDisposition(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
