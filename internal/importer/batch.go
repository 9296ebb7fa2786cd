package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"hypnotools/internal/client"
	"hypnotools/internal/logger"
	"hypnotools/internal/metrics"
	"hypnotools/internal/model"
)

// 默认批量参数
const (
	DefaultBatchSize  = 5
	DefaultBatchDelay = time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second
)

// Sender 发送单条客户记录
type Sender interface {
	SendClient(ctx context.Context, rec *model.ClientRecord, rowNumber int) (*client.SendResult, error)
}

// BatchOptions 批量发送参数
type BatchOptions struct {
	BatchSize  int
	BatchDelay time.Duration // 每批之后的固定间隔
	MaxRetries int           // 网络错误重试次数
	RetryDelay time.Duration // 第 n 次重试等待 RetryDelay*n
}

// DefaultBatchOptions 默认参数
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		BatchSize:  DefaultBatchSize,
		BatchDelay: DefaultBatchDelay,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// SleepFunc 可取消的等待
type SleepFunc func(ctx context.Context, d time.Duration) error

// BatchImporter 分批并发发送客户记录
type BatchImporter struct {
	sender  Sender
	opts    BatchOptions
	logger  *zap.Logger
	log     *logger.ImportLog
	metrics *metrics.Metrics
	sleep   SleepFunc
}

// NewBatchImporter 创建批量导入器
func NewBatchImporter(sender Sender, opts BatchOptions, zl *zap.Logger) *BatchImporter {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BatchDelay < 0 {
		opts.BatchDelay = 0
	}
	if zl == nil {
		zl = zap.NewNop()
	}
	return &BatchImporter{
		sender: sender,
		opts:   opts,
		logger: zl,
		sleep:  sleepContext,
	}
}

// WithImportLog 设置本次导入的文本日志
func (b *BatchImporter) WithImportLog(l *logger.ImportLog) *BatchImporter {
	b.log = l
	return b
}

// WithMetrics 设置指标
func (b *BatchImporter) WithMetrics(m *metrics.Metrics) *BatchImporter {
	b.metrics = m
	return b
}

// WithSleep 替换等待函数
func (b *BatchImporter) WithSleep(fn SleepFunc) *BatchImporter {
	if fn != nil {
		b.sleep = fn
	}
	return b
}

// Options 当前参数
func (b *BatchImporter) Options() BatchOptions {
	return b.opts
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Import 发送全部记录
//
// skipped 为解析阶段的错误，排在结果错误列表最前面。
// ctx 取消时停止后续批次，未发送的记录以 "Importação cancelada" 计入错误，并返回 ctx.Err()。
func (b *BatchImporter) Import(ctx context.Context, records []*model.ClientRecord, skipped []model.ImportError, progress func(model.Progress)) (*model.ImportResult, error) {
	total := len(records)
	batchSize := b.opts.BatchSize
	totalBatches := (total + batchSize - 1) / batchSize

	errs := make([]model.ImportError, 0, len(skipped))
	errs = append(errs, skipped...)
	processed, failed := 0, 0

	report := func(current int, op string) {
		if progress != nil {
			progress(model.NewProgress(current, total, op))
		}
	}

	b.log.Logf("=== INICIANDO IMPORTAÇÃO ===")
	b.log.Logf("Total de clientes a importar: %d", total)
	b.log.Logf("Linhas ignoradas na leitura: %d", len(skipped))
	b.log.Logf("Batch size: %d", batchSize)
	b.log.Logf("Total de batches: %d", totalBatches)

	report(0, "Iniciando importação...")

	var runErr error
	for i := 0; i < totalBatches; i++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			for idx := i * batchSize; idx < total; idx++ {
				failed++
				errs = append(errs, model.ImportError{
					Row:     idx + 1,
					Field:   model.ErrorFieldAPI,
					Message: fmt.Sprintf("Linha %d: Importação cancelada", idx+1),
				})
			}
			break
		}

		start := i * batchSize
		end := start + batchSize
		if end > total {
			end = total
		}
		batch := records[start:end]

		b.log.Logf("Processando batch %d/%d com %d clientes", i+1, totalBatches, len(batch))
		report(processed+failed, fmt.Sprintf("Processando lote %d de %d...", i+1, totalBatches))

		batchStart := time.Now()
		outcomes := b.sendBatch(ctx, batch, start)
		b.metrics.ObserveBatch(time.Since(batchStart))

		for j, err := range outcomes {
			idx := start + j + 1
			name := batch[j].Nome
			if err == nil {
				processed++
				b.metrics.RecordSent(true)
				b.log.Logf("✅ Cliente %d (%s) - SUCESSO", idx, name)
				continue
			}
			failed++
			b.metrics.RecordSent(false)
			msg := err.Error()
			b.log.Logf("❌ Cliente %d (%s) - FALHOU: %s", idx, name, msg)
			errs = append(errs, model.ImportError{Row: idx, Field: model.ErrorFieldAPI, Message: msg})
		}

		report(processed+failed, fmt.Sprintf("Processados: %d, Erros: %d", processed, failed))

		if err := b.sleep(ctx, b.opts.BatchDelay); err != nil {
			b.logger.Info("import cancelled during batch pause", zap.Int("batch", i+1))
		}
	}

	if runErr == nil {
		report(total, "Importação concluída")
	} else {
		report(processed+failed, "Importação cancelada")
	}

	b.log.Logf("=== IMPORTAÇÃO FINALIZADA ===")
	b.log.Logf("Total processados com SUCESSO: %d", processed)
	b.log.Logf("Total de ERROS: %d", failed)
	b.log.Logf("Total de erros no processamento: %d", len(skipped))
	b.log.Logf("Total geral de erros: %d", len(errs))

	return &model.ImportResult{
		Success:        len(errs) == 0,
		ProcessedCount: processed,
		ErrorCount:     len(errs),
		Errors:         errs,
	}, runErr
}

// sendBatch 并发发送一批记录，结果按批内顺序返回
func (b *BatchImporter) sendBatch(ctx context.Context, batch []*model.ClientRecord, offset int) []error {
	outcomes := make([]error, len(batch))

	var g errgroup.Group
	for j, rec := range batch {
		j, rec := j, rec
		g.Go(func() error {
			outcomes[j] = b.sendWithRetry(ctx, rec, offset+j+1)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// sendWithRetry 网络错误按 RetryDelay*1、*2、*3 退避重试
func (b *BatchImporter) sendWithRetry(ctx context.Context, rec *model.ClientRecord, row int) error {
	for attempt := 0; ; attempt++ {
		_, err := b.sender.SendClient(ctx, rec, row)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("Linha %d: Importação cancelada", row)
		}
		if !client.IsNetworkError(err) {
			return err
		}
		if attempt >= b.opts.MaxRetries {
			return fmt.Errorf("Linha %d: %s após %d tentativas", row, client.NetworkErrorMessage, b.opts.MaxRetries)
		}

		b.metrics.RecordRetry()
		b.logger.Warn("network error, retrying",
			zap.Int("row", row),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", b.opts.MaxRetries),
		)
		if err := b.sleep(ctx, b.opts.RetryDelay*time.Duration(attempt+1)); err != nil {
			return fmt.Errorf("Linha %d: Importação cancelada", row)
		}
	}
}
