package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hypnotools/internal/archive"
	"hypnotools/internal/logger"
	"hypnotools/internal/metrics"
	"hypnotools/internal/model"
	"hypnotools/internal/parser"
	"hypnotools/internal/report"
	"hypnotools/internal/store"
)

// 进度事件类型
const (
	EventStart    = "start"
	EventInfo     = "info"
	EventProgress = "progress"
	EventWarning  = "warning"
	EventError    = "error"
	EventDone     = "done"
)

// 归档分类
const archiveKind = "imports"

// History 导入历史存储
type History interface {
	CreateImportLog(runID, filename string, fileSize int64, empresa string) (int64, error)
	UpdateImportLog(id int64, u store.ImportLogUpdate) error
	InsertImportErrors(importLogID int64, errs []model.ImportError) error
}

// Coordinator 导入协调器
type Coordinator struct {
	sender    Sender
	history   History
	archiver  *archive.Archiver
	metrics   *metrics.Metrics
	logger    *zap.Logger
	batch     BatchOptions
	parse     parser.ParseOptions
	exportDir string
	sleep     SleepFunc
}

// NewCoordinator 创建导入协调器
func NewCoordinator(sender Sender, zl *zap.Logger) *Coordinator {
	if zl == nil {
		zl = zap.NewNop()
	}
	return &Coordinator{
		sender: sender,
		logger: zl,
		batch:  DefaultBatchOptions(),
	}
}

// WithHistory 记录导入历史
func (c *Coordinator) WithHistory(h History) *Coordinator {
	c.history = h
	return c
}

// WithArchiver 完成后归档报告与日志
func (c *Coordinator) WithArchiver(a *archive.Archiver) *Coordinator {
	c.archiver = a
	return c
}

// WithMetrics 启用指标
func (c *Coordinator) WithMetrics(m *metrics.Metrics) *Coordinator {
	c.metrics = m
	return c
}

// WithBatchOptions 批量发送参数
func (c *Coordinator) WithBatchOptions(o BatchOptions) *Coordinator {
	c.batch = o
	return c
}

// WithParseOptions 解析参数
func (c *Coordinator) WithParseOptions(o parser.ParseOptions) *Coordinator {
	c.parse = o
	return c
}

// WithExportDir 报告与日志的输出目录，为空时不落盘
func (c *Coordinator) WithExportDir(dir string) *Coordinator {
	c.exportDir = dir
	return c
}

// WithSleep 替换批次间等待（测试用）
func (c *Coordinator) WithSleep(fn SleepFunc) *Coordinator {
	c.sleep = fn
	return c
}

// ImportOptions 导入选项
type ImportOptions struct {
	FilePath string
	Filename string // 显示用文件名，默认取 FilePath 的文件名
	Empresa  string
	DryRun   bool // 只解析，不发送
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`      // start/info/progress/warning/error/done
	Message   string      `json:"message"`   // 事件消息
	Data      interface{} `json:"data"`      // 附加数据
	Timestamp time.Time   `json:"timestamp"` // 时间戳
}

// Summary done 事件携带的汇总
type Summary struct {
	RunID        string              `json:"runId"`
	Filename     string              `json:"filename"`
	Status       string              `json:"status"`
	DryRun       bool                `json:"dryRun"`
	TotalRows    int                 `json:"totalRows"`
	ValidRows    int                 `json:"validRows"`
	Result       *model.ImportResult `json:"result"`
	ReportPath   string              `json:"reportPath,omitempty"`
	LogPath      string              `json:"logPath,omitempty"`
	ArchivedKeys []string            `json:"archivedKeys,omitempty"`
	Duration     time.Duration       `json:"duration"`
}

// importRun 一次导入的上下文
type importRun struct {
	opts     ImportOptions
	ch       chan ProgressEvent
	summary  *Summary
	log      *logger.ImportLog
	logID    int64
	hasLogID bool
}

// Import 执行导入，返回进度通道
func (c *Coordinator) Import(ctx context.Context, opts ImportOptions) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		c.doImport(ctx, opts, progressChan)
	}()

	return progressChan
}

// doImport 解析 → 日志 → 历史 → 发送 → 报告 → 回写 → 归档
func (c *Coordinator) doImport(ctx context.Context, opts ImportOptions, ch chan ProgressEvent) {
	startTime := time.Now()
	if opts.Filename == "" {
		opts.Filename = filepath.Base(opts.FilePath)
	}
	run := &importRun{
		opts: opts,
		ch:   ch,
		summary: &Summary{
			RunID:    uuid.NewString(),
			Filename: opts.Filename,
			DryRun:   opts.DryRun,
		},
	}

	c.emit(ch, EventStart, "Iniciando importação da planilha", map[string]string{
		"filename": opts.Filename,
		"runId":    run.summary.RunID,
	})

	parsed, err := parser.ParseClientFile(opts.FilePath, c.parse, c.logger)
	if err != nil {
		c.logger.Warn("failed to parse workbook", zap.String("file", opts.Filename), zap.Error(err))
		c.emit(ch, EventError, err.Error(), nil)
		return
	}
	run.summary.TotalRows = parsed.TotalRows
	run.summary.ValidRows = parsed.ValidRows

	c.emit(ch, EventInfo, fmt.Sprintf("Planilha lida: %d linhas, %d válidas, %d com erro",
		parsed.TotalRows, parsed.ValidRows, len(parsed.Errors)), map[string]interface{}{
		"totalRows":    parsed.TotalRows,
		"validRows":    parsed.ValidRows,
		"emptyRows":    parsed.EmptyRows,
		"errors":       len(parsed.Errors),
		"stoppedEarly": parsed.StoppedEarly,
	})
	if len(parsed.Records) == 0 {
		c.emit(ch, EventWarning, "Nenhum cliente válido encontrado na planilha", nil)
	}

	c.openLog(run)
	c.createHistory(run)

	result, runErr := c.send(ctx, run, parsed)
	run.summary.Result = result

	c.writeReport(run, result.Errors)
	if err := run.log.Close(); err != nil {
		c.logger.Warn("failed to close import log", zap.Error(err))
	}
	run.summary.LogPath = run.log.Path()

	run.summary.Status = runStatus(result, runErr)
	if runErr != nil {
		c.emit(ch, EventWarning, "Importação cancelada", nil)
	}
	c.finishHistory(run, runErr)
	c.metrics.RecordImportRun(run.summary.Status)

	c.archive(ctx, run)

	run.summary.Duration = time.Since(startTime)
	c.emit(ch, EventDone, doneMessage(run.summary), run.summary)
}

// openLog 打开本次日志；无法落盘时退回内存日志
func (c *Coordinator) openLog(run *importRun) {
	dir := ""
	if c.exportDir != "" {
		dir = filepath.Join(c.exportDir, run.summary.RunID)
	}
	l, err := logger.OpenImportLog(dir, c.logger)
	if err != nil {
		c.emit(run.ch, EventWarning, fmt.Sprintf("Não foi possível criar o log: %v", err), nil)
		l, _ = logger.OpenImportLog("", c.logger)
	}
	run.log = l
	run.log.Logf("Arquivo: %s", run.opts.Filename)
	run.log.Logf("Empresa: %s", run.opts.Empresa)
}

func (c *Coordinator) createHistory(run *importRun) {
	if c.history == nil {
		return
	}
	var size int64
	if fi, err := os.Stat(run.opts.FilePath); err == nil {
		size = fi.Size()
	}
	id, err := c.history.CreateImportLog(run.summary.RunID, run.opts.Filename, size, run.opts.Empresa)
	if err != nil {
		c.logger.Warn("failed to create import history", zap.Error(err))
		c.emit(run.ch, EventWarning, "Falha ao registrar histórico da importação", nil)
		return
	}
	run.logID = id
	run.hasLogID = true
}

// send 分批发送；DryRun 只返回解析错误
func (c *Coordinator) send(ctx context.Context, run *importRun, parsed *parser.ParseResult) (*model.ImportResult, error) {
	if run.opts.DryRun {
		run.log.Logf("Simulação: %d clientes seriam enviados", len(parsed.Records))
		c.emit(run.ch, EventInfo, fmt.Sprintf("Simulação: %d clientes seriam enviados", len(parsed.Records)), nil)
		return &model.ImportResult{
			Success:    len(parsed.Errors) == 0,
			ErrorCount: len(parsed.Errors),
			Errors:     parsed.Errors,
		}, nil
	}

	importer := NewBatchImporter(c.sender, c.batch, c.logger).
		WithImportLog(run.log).
		WithMetrics(c.metrics).
		WithSleep(c.sleep)
	return importer.Import(ctx, parsed.Records, parsed.Errors, func(p model.Progress) {
		c.emit(run.ch, EventProgress, p.Operation, p)
	})
}

func (c *Coordinator) writeReport(run *importRun, errs []model.ImportError) {
	if len(errs) == 0 || c.exportDir == "" {
		return
	}
	path, err := report.WriteErrorCSVFile(filepath.Join(c.exportDir, run.summary.RunID), "", errs)
	if err != nil {
		c.logger.Warn("failed to write error report", zap.Error(err))
		c.emit(run.ch, EventWarning, "Falha ao gerar relatório de erros", nil)
		return
	}
	run.summary.ReportPath = path
	run.log.Logf("Relatório de erros: %s", filepath.Base(path))
}

func (c *Coordinator) finishHistory(run *importRun, runErr error) {
	if !run.hasLogID {
		return
	}
	s := run.summary
	u := store.ImportLogUpdate{
		TotalRows:      s.TotalRows,
		ValidRows:      s.ValidRows,
		ProcessedCount: s.Result.ProcessedCount,
		ErrorCount:     s.Result.ErrorCount,
		ReportPath:     s.ReportPath,
		LogPath:        s.LogPath,
		Status:         s.Status,
	}
	if runErr != nil {
		u.ErrorMessage = runErr.Error()
	}
	if err := c.history.UpdateImportLog(run.logID, u); err != nil {
		c.logger.Warn("failed to update import history", zap.String("run_id", s.RunID), zap.Error(err))
	}
	if err := c.history.InsertImportErrors(run.logID, s.Result.Errors); err != nil {
		c.logger.Warn("failed to store import errors", zap.String("run_id", s.RunID), zap.Error(err))
	}
}

// archive 取消的导入也会归档，不受 ctx 取消影响
func (c *Coordinator) archive(ctx context.Context, run *importRun) {
	if c.archiver == nil {
		return
	}
	files := map[string]string{
		run.summary.ReportPath: "text/csv; charset=utf-8",
		run.summary.LogPath:    "text/plain; charset=utf-8",
	}
	keys, err := c.archiver.UploadFiles(context.WithoutCancel(ctx), archiveKind, run.summary.RunID, files)
	run.summary.ArchivedKeys = keys
	if err != nil {
		c.logger.Warn("failed to archive import artifacts", zap.Error(err))
		c.emit(run.ch, EventWarning, "Falha ao arquivar relatório e log", nil)
	}
}

// runStatus 取消优先，其次看是否有错误与成功数
func runStatus(result *model.ImportResult, runErr error) string {
	switch {
	case runErr != nil:
		return store.ImportStatusCancelled
	case result.Success:
		return store.ImportStatusCompleted
	case result.ProcessedCount > 0:
		return store.ImportStatusPartial
	default:
		return store.ImportStatusFailed
	}
}

func doneMessage(s *Summary) string {
	if s.DryRun {
		return fmt.Sprintf("Simulação concluída: %d válidos, %d erros", s.ValidRows, s.Result.ErrorCount)
	}
	return fmt.Sprintf("Importação concluída: %d importados, %d erros", s.Result.ProcessedCount, s.Result.ErrorCount)
}

// emit 非阻塞发送进度事件
func (c *Coordinator) emit(ch chan ProgressEvent, typ, msg string, data interface{}) {
	select {
	case ch <- ProgressEvent{Type: typ, Message: msg, Data: data, Timestamp: time.Now()}:
	default:
		// 通道已满，丢弃事件
	}
}
