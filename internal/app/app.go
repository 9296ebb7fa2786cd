// Package app 按配置组装存储、客户端与各导入流程，供 HTTP 服务与命令行共用
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"hypnotools/internal/archive"
	"hypnotools/internal/cache"
	"hypnotools/internal/client"
	"hypnotools/internal/config"
	"hypnotools/internal/deletion"
	"hypnotools/internal/erp"
	"hypnotools/internal/importer"
	"hypnotools/internal/metrics"
	"hypnotools/internal/parser"
	"hypnotools/internal/store"
)

// DBFileName SQLite 文件名
const DBFileName = "hypnotools.db"

// App 组装好的组件
type App struct {
	Config      *config.AppConfig
	DataDir     string
	Store       *store.Store
	Backend     *client.Client
	CRM         *client.CRMClient
	Cache       cache.Cache
	Archiver    *archive.Archiver
	Metrics     *metrics.Metrics
	ERP         *erp.Service
	Deletion    *deletion.Pipeline
	Coordinator *importer.Coordinator
	Logger      *zap.Logger
}

// New 打开数据库、恢复会话并创建各服务
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare data dir: %w", err)
	}

	st, err := store.New(filepath.Join(dataDir, DBFileName))
	if err != nil {
		return nil, err
	}
	logger.Debug("database opened", zap.String("path", st.Path()))

	a := &App{
		Config:  cfg,
		DataDir: dataDir,
		Store:   st,
		Logger:  logger,
	}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config
	token, user, empresa := a.Store.LoadSession()
	if empresa == "" {
		empresa = cfg.API.Empresa
	}

	backend, err := client.New(client.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout(),
		Token:   token,
	}, a.Logger.Named("backend"))
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}
	a.Backend = backend
	if user != nil {
		a.Logger.Info("session restored", zap.String("user", user.Email), zap.String("empresa", empresa))
	}

	a.CRM = client.NewCRMClient(client.CRMConfig{
		HostTemplate: cfg.API.CRMHostTemplate,
		Empresa:      empresa,
		Token:        a.Store.GetConfigDefault(store.ConfigKeyCRMToken, cfg.API.Token),
		Timeout:      cfg.API.Timeout(),
	}, a.Logger.Named("crm"))

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
	}

	if cfg.Cache.RedisAddr != "" {
		r, err := cache.NewRedis(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, a.Logger.Named("cache"))
		if err != nil {
			a.Logger.Warn("redis unavailable, using memory cache", zap.Error(err))
			a.Cache = cache.NewMemory()
		} else {
			a.Cache = r
		}
	} else {
		a.Cache = cache.NewMemory()
	}

	a.Archiver, err = archive.New(ctx, cfg.Archive, a.Logger.Named("archive"))
	if err != nil {
		return fmt.Errorf("failed to create archiver: %w", err)
	}

	a.ERP = erp.NewService(backend, a.Logger.Named("erp")).
		WithCache(a.Cache, cfg.Cache.TTL()).
		WithStore(a.Store).
		WithMetrics(a.Metrics)

	a.Deletion = deletion.NewPipeline(backend, a.Logger.Named("deletion")).
		WithStore(a.Store).
		WithMetrics(a.Metrics)

	a.Coordinator = importer.NewCoordinator(a.CRM, a.Logger.Named("import")).
		WithHistory(a.Store).
		WithArchiver(a.Archiver).
		WithMetrics(a.Metrics).
		WithBatchOptions(a.BatchOptions()).
		WithParseOptions(a.ParseOptions()).
		WithExportDir(filepath.Join(a.DataDir, "exports"))
	return nil
}

// BatchOptions 配置中的批量参数
func (a *App) BatchOptions() importer.BatchOptions {
	c := a.Config.Import
	return importer.BatchOptions{
		BatchSize:  c.BatchSize,
		BatchDelay: c.BatchDelay(),
		MaxRetries: c.MaxRetries,
		RetryDelay: c.RetryDelay(),
	}
}

// ParseOptions 配置中的解析参数
func (a *App) ParseOptions() parser.ParseOptions {
	return parser.ParseOptions{
		MaxRows:       a.Config.Import.MaxRows,
		EmptyRowLimit: a.Config.Import.EmptyRowLimit,
	}
}

// UploadDir 上传文件目录
func (a *App) UploadDir() string {
	return filepath.Join(a.DataDir, "uploads")
}

// Empresa 当前公司
func (a *App) Empresa() string {
	empresa, _ := a.CRM.Credentials()
	return empresa
}

// Close 释放缓存与数据库
func (a *App) Close() error {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn("failed to close cache", zap.Error(err))
		}
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
