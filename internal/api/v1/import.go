package v1

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"hypnotools/internal/importer"
	"hypnotools/internal/parser"
	"hypnotools/internal/report"
)

// 下载文件的 Content-Type
const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeText = "text/plain; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// errNoFile 请求中没有 file 字段
var errNoFile = errors.New("Arquivo não enviado")

// ParseImport 解析上传的工作簿，只返回预览
// POST /api/v1/import/parse
func (h *Handler) ParseImport(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.writeError(c, errNoFile)
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.writeError(c, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer f.Close()

	res, err := parser.ParseClientReader(f, fh.Filename, h.app.ParseOptions(), h.logger)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// saveUpload 保存上传文件到 uploads 目录
func (h *Handler) saveUpload(c *gin.Context) (path, filename string, err error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", "", errNoFile
	}
	if !parser.IsSupportedWorkbook(fh.Filename) {
		return "", "", parser.ErrUnsupportedFormat
	}
	path = filepath.Join(h.app.UploadDir(), uuid.NewString()+filepath.Ext(fh.Filename))
	if err := c.SaveUploadedFile(fh, path); err != nil {
		return "", "", fmt.Errorf("failed to save upload: %w", err)
	}
	return path, fh.Filename, nil
}

// Import 导入客户工作簿 (SSE 流式响应)
// POST /api/v1/import
func (h *Handler) Import(c *gin.Context) {
	path, filename, err := h.saveUpload(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	// 清理上传文件
	defer os.Remove(path)

	dryRun, _ := strconv.ParseBool(c.DefaultPostForm("dryRun", "false"))

	stream := startSSE(c)
	if stream == nil {
		return
	}

	progressChan := h.app.Coordinator.Import(c.Request.Context(), importer.ImportOptions{
		FilePath: path,
		Filename: filename,
		Empresa:  h.app.Empresa(),
		DryRun:   dryRun,
	})

	for event := range progressChan {
		if event.Type == importer.EventDone {
			if s, ok := event.Data.(*importer.Summary); ok {
				event.Data = h.withDownloads(c, s)
			}
		}
		stream.send(event)
	}
}

// withDownloads 为报告与日志生成一次性下载地址
func (h *Handler) withDownloads(c *gin.Context, s *importer.Summary) gin.H {
	out := gin.H{"summary": s}
	prefix := strings.TrimSuffix(c.FullPath(), "/import")
	if s.ReportPath != "" {
		token := h.downloads.put(s.ReportPath, filepath.Base(s.ReportPath), contentTypeCSV, downloadTTL)
		out["reportUrl"] = prefix + "/download/" + token
	}
	if s.LogPath != "" {
		token := h.downloads.put(s.LogPath, filepath.Base(s.LogPath), contentTypeText, downloadTTL)
		out["logUrl"] = prefix + "/download/" + token
	}
	return out
}

// Download 下载报告或日志（一次性）
// GET /api/v1/download/:token
func (h *Handler) Download(c *gin.Context) {
	token := c.Param("token")
	item, ok := h.downloads.take(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Link de download expirado"})
		return
	}
	if _, err := os.Stat(item.filePath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Arquivo não encontrado"})
		return
	}

	c.Header("Content-Disposition", contentDisposition(item.filename))
	c.Header("Content-Type", item.contentType)
	c.File(item.filePath)
}

// ListImports 导入历史
// GET /api/v1/imports?limit=50
func (h *Handler) ListImports(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := h.app.Store.ListImportLogs(limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imports": runs})
}

// ListImportErrors 某次导入的错误行
// GET /api/v1/imports/:runId/errors
func (h *Handler) ListImportErrors(c *gin.Context) {
	run, err := h.app.Store.GetImportLog(c.Param("runId"))
	if err != nil {
		h.logger.Debug("import run lookup failed", zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "Importação não encontrada"})
		return
	}
	errs, err := h.app.Store.ListImportErrors(run.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"import": run, "errors": errs})
}

// ExportImportErrors 将某次导入的错误导出为 xlsx（SSE 进度 + 完成后提供下载地址）
// POST /api/v1/imports/:runId/export
func (h *Handler) ExportImportErrors(c *gin.Context) {
	run, err := h.app.Store.GetImportLog(c.Param("runId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Importação não encontrada"})
		return
	}
	errs, err := h.app.Store.ListImportErrors(run.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	stream := startSSE(c)
	if stream == nil {
		return
	}
	stream.send(newEvent("start", "Gerando planilha de erros", gin.H{"runId": run.RunID, "errors": len(errs)}))

	lastPercent := -1
	f, err := report.BuildErrorWorkbook(errs, func(p report.ProgressEvent) {
		if p.Percent == lastPercent {
			return
		}
		lastPercent = p.Percent
		stream.send(newEvent("progress", p.Stage, gin.H{"percent": p.Percent}))
	})
	if err != nil {
		stream.send(newEvent("error", "Falha ao gerar planilha: "+err.Error(), gin.H{}))
		return
	}
	defer f.Close()

	dir := filepath.Join(h.app.DataDir, "exports", run.RunID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		stream.send(newEvent("error", "Falha ao gravar planilha: "+err.Error(), gin.H{}))
		return
	}
	path := filepath.Join(dir, "relatorio_erros_importacao.xlsx")
	if err := f.SaveAs(path); err != nil {
		stream.send(newEvent("error", "Falha ao gravar planilha: "+err.Error(), gin.H{}))
		return
	}

	token := h.downloads.put(path, filepath.Base(path), contentTypeXLSX, downloadTTL)
	prefix := strings.TrimSuffix(c.FullPath(), "/imports/:runId/export")
	stream.send(newEvent("done", "Planilha gerada", gin.H{
		"percent":     100,
		"downloadUrl": prefix + "/download/" + token,
	}))
}
