package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hypnotools/internal/deletion"
	"hypnotools/internal/model"
)

// ParseIDsRequest 文本形式的 ID 列表
type ParseIDsRequest struct {
	Text string `json:"text"`
}

// ParseDeletionIDs 从文本或上传的工作簿解析客户 ID
// POST /api/v1/deletion/parse
func (h *Handler) ParseDeletionIDs(c *gin.Context) {
	var (
		ids []int
		err error
	)
	if fh, ferr := c.FormFile("file"); ferr == nil {
		f, oerr := fh.Open()
		if oerr != nil {
			h.writeError(c, oerr)
			return
		}
		defer f.Close()
		ids, err = deletion.ParseIDsFromReader(f, fh.Filename)
	} else {
		var req ParseIDsRequest
		if !bindJSON(c, &req) {
			return
		}
		ids, err = deletion.ParseIDsFromText(req.Text)
	}

	if errors.Is(err, deletion.ErrTooManyIDs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "count": len(ids)})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"clientIds": ids,
		"count":     len(ids),
		"formatted": deletion.FormatIDs(ids),
	})
}

// ValidateDeletionRequest 删除前校验请求
type ValidateDeletionRequest struct {
	ClientIDs []int `json:"clientIds"`
}

// ValidateDeletion 校验 ID 并统计受影响的表
// POST /api/v1/deletion/validate
func (h *Handler) ValidateDeletion(c *gin.Context) {
	var req ValidateDeletionRequest
	if !bindJSON(c, &req) {
		return
	}
	preview, err := h.app.Deletion.Preview(c.Request.Context(), req.ClientIDs)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// ExecuteDeletion 执行删除 (SSE 流式响应)
// 请求不合法时直接返回 400，不进入流式响应
// POST /api/v1/deletion/execute
func (h *Handler) ExecuteDeletion(c *gin.Context) {
	var req model.DeletionRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := deletion.ValidateRequest(req); err != nil {
		h.writeError(c, err)
		return
	}

	stream := startSSE(c)
	if stream == nil {
		return
	}
	stream.send(newEvent("start", "Iniciando exclusão", gin.H{"count": len(req.ClientIDs)}))

	res, err := h.app.Deletion.Run(c.Request.Context(), req, func(p model.Progress) {
		stream.send(newEvent("progress", p.Operation, p))
	})
	if err != nil {
		stream.send(newEvent("error", err.Error(), gin.H{"status": errorStatus(err)}))
		return
	}
	stream.send(newEvent("done", res.Message, res))
}

// ListDeletionRuns 本地删除记录
// GET /api/v1/deletion/runs?limit=50
func (h *Handler) ListDeletionRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := h.app.Store.ListDeletionRuns(limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// ListDeletionLogs 后端删除日志列表
// GET /api/v1/deletion/logs
func (h *Handler) ListDeletionLogs(c *gin.Context) {
	logs, err := h.app.Deletion.Logs(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// DownloadDeletionLog 下载后端删除日志
// GET /api/v1/deletion/logs/:name
func (h *Handler) DownloadDeletionLog(c *gin.Context) {
	name := c.Param("name")
	data, contentType, err := h.app.Deletion.DownloadLog(c.Request.Context(), name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if contentType == "" {
		contentType = contentTypeText
	}
	c.Header("Content-Disposition", contentDisposition(name))
	c.Data(http.StatusOK, contentType, data)
}
