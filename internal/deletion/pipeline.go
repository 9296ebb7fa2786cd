package deletion

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hypnotools/internal/metrics"
	"hypnotools/internal/model"
	"hypnotools/internal/store"
	"hypnotools/internal/validation"
)

// 删除记录状态
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
	StatusRejected  = "rejected"
)

// ErrNoValidClients 校验后没有可删除的客户
var ErrNoValidClients = errors.New("Nenhum cliente válido para exclusão")

// requestMessages 删除请求的校验提示
var requestMessages = map[string]string{
	"clientIds.required": ErrIDsRequired.Error(),
	"clientIds.min":      ErrIDsRequired.Error(),
	"clientIds.max":      ErrTooManyIDs.Error(),
	"clientIds.gt":       "IDs de cliente devem ser inteiros positivos",
	"reason.required":    "Motivo da exclusão é obrigatório",
	"reason.min":         "Motivo da exclusão deve ter pelo menos 10 caracteres",
	"userEmail.required": "Email do usuário é obrigatório",
	"userEmail.email":    "Email do usuário inválido",
	"confirmDeletion":    "Você deve confirmar a exclusão",
}

// Backend 后端删除接口
type Backend interface {
	ValidateForDeletion(ctx context.Context, ids []int) (*model.DeletionValidation, error)
	AffectedTablesStats(ctx context.Context, ids []int) ([]model.AffectedTableStat, error)
	BulkDelete(ctx context.Context, req model.DeletionRequest) (*model.DeletionResponse, error)
	DeletionLogs(ctx context.Context) ([]string, error)
	DownloadDeletionLog(ctx context.Context, name string) ([]byte, string, error)
}

// RunStore 删除记录存储
type RunStore interface {
	InsertDeletionRun(run *store.DeletionRun) (int64, error)
}

// ProgressFunc 进度回调
type ProgressFunc func(model.Progress)

// Pipeline 批量删除流程
type Pipeline struct {
	backend Backend
	store   RunStore
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewPipeline 创建删除流程
func NewPipeline(backend Backend, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{backend: backend, logger: logger}
}

// WithStore 记录每次删除
func (p *Pipeline) WithStore(s RunStore) *Pipeline {
	p.store = s
	return p
}

// WithMetrics 启用指标
func (p *Pipeline) WithMetrics(m *metrics.Metrics) *Pipeline {
	p.metrics = m
	return p
}

// ValidateRequest 校验删除请求
func ValidateRequest(req model.DeletionRequest) error {
	return validation.Struct(req, requestMessages)
}

// Preview 删除前预览
type Preview struct {
	Validation     *model.DeletionValidation `json:"validation"`
	AffectedTables []model.AffectedTableStat `json:"affectedTables"`
	TotalRecords   int                       `json:"totalRecords"`
}

// Preview 校验客户 ID 并统计受影响的表
// 统计失败不影响校验结果，只记录日志
func (p *Pipeline) Preview(ctx context.Context, ids []int) (*Preview, error) {
	if len(ids) == 0 {
		return nil, ErrIDsRequired
	}
	if len(ids) > MaxIDs {
		return nil, ErrTooManyIDs
	}

	v, err := p.backend.ValidateForDeletion(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := &Preview{Validation: v, AffectedTables: []model.AffectedTableStat{}}
	if len(v.InvalidIDs) > 0 {
		p.logger.Warn("invalid client ids", zap.Int("count", len(v.InvalidIDs)), zap.Ints("ids", v.InvalidIDs))
	}
	if len(v.ValidIDs) == 0 {
		return out, nil
	}

	stats, err := p.backend.AffectedTablesStats(ctx, v.ValidIDs)
	if err != nil {
		p.logger.Warn("failed to load affected tables", zap.Error(err))
		return out, nil
	}
	for _, s := range stats {
		if s.RecordCount > 0 {
			out.AffectedTables = append(out.AffectedTables, s)
			out.TotalRecords += s.RecordCount
		}
	}
	return out, nil
}

// Result 一次删除的结果
type Result struct {
	RunID    string                  `json:"runId"`
	Preview  *Preview                `json:"preview"`
	Response *model.DeletionResponse `json:"response"`
	Message  string                  `json:"message"`
	Status   string                  `json:"status"`
}

// Run 校验请求 → 校验 ID → 统计 → 删除有效 ID → 记录
func (p *Pipeline) Run(ctx context.Context, req model.DeletionRequest, progress ProgressFunc) (*Result, error) {
	report := func(pct int, op string) {
		if progress != nil {
			progress(model.NewProgress(pct, 100, op))
		}
	}
	res := &Result{RunID: uuid.NewString()}
	run := &store.DeletionRun{
		RunID:        res.RunID,
		UserEmail:    req.UserEmail,
		Reason:       req.Reason,
		RequestedIDs: req.ClientIDs,
	}

	report(10, "Validando solicitação...")
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	report(30, "Validando IDs de clientes...")
	preview, err := p.Preview(ctx, req.ClientIDs)
	if err != nil {
		p.finish(run, StatusFailed, err.Error())
		return nil, err
	}
	res.Preview = preview
	run.ValidCount = len(preview.Validation.ValidIDs)
	run.InvalidCount = len(preview.Validation.InvalidIDs)
	if run.ValidCount == 0 {
		p.finish(run, StatusRejected, ErrNoValidClients.Error())
		return nil, ErrNoValidClients
	}

	report(70, fmt.Sprintf("Excluindo %d clientes...", run.ValidCount))
	p.logger.Info("deleting clients",
		zap.String("run_id", res.RunID),
		zap.Int("valid", run.ValidCount),
		zap.Int("invalid", run.InvalidCount),
		zap.String("user", req.UserEmail),
	)
	del := req
	del.ClientIDs = preview.Validation.ValidIDs
	resp, err := p.backend.BulkDelete(ctx, del)
	if err != nil {
		p.finish(run, StatusFailed, err.Error())
		return nil, err
	}

	res.Response = resp
	run.DeletedCount = resp.DeletedCount
	run.FailedCount = resp.FailedCount
	run.LogFileName = resp.LogFileName
	if resp.Success {
		res.Status = StatusCompleted
		res.Message = fmt.Sprintf("%d clientes excluídos com sucesso!", resp.DeletedCount)
	} else {
		res.Status = StatusPartial
		res.Message = fmt.Sprintf("Exclusão concluída com %d erros", resp.FailedCount)
	}
	p.finish(run, res.Status, "")

	report(100, "Exclusão concluída")
	return res, nil
}

// finish 写入删除记录并计数
func (p *Pipeline) finish(run *store.DeletionRun, status, errMsg string) {
	run.Status = status
	run.ErrorMessage = errMsg
	p.metrics.RecordDeletionRun(status, run.DeletedCount)
	if p.store == nil {
		return
	}
	if _, err := p.store.InsertDeletionRun(run); err != nil {
		p.logger.Warn("failed to record deletion run", zap.String("run_id", run.RunID), zap.Error(err))
	}
}

// Logs 后端删除日志列表
func (p *Pipeline) Logs(ctx context.Context) ([]string, error) {
	return p.backend.DeletionLogs(ctx)
}

// DownloadLog 下载删除日志
func (p *Pipeline) DownloadLog(ctx context.Context, name string) ([]byte, string, error) {
	return p.backend.DownloadDeletionLog(ctx, name)
}
