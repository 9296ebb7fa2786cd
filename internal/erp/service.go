package erp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hypnotools/internal/cache"
	"hypnotools/internal/metrics"
	"hypnotools/internal/model"
)

// LargeImportThreshold 超过该单元数时提示耗时较长
const LargeImportThreshold = 500

var (
	// ErrNoUnitsForUpdate 回写 id_externo 时没有选择单元
	ErrNoUnitsForUpdate = errors.New("Selecione pelo menos uma unidade para atualizar.")
	// ErrProductIDRequiredForUpdate 回写 id_externo 时缺少产品 ID
	ErrProductIDRequiredForUpdate = errors.New("Informe o ID do Produto no campo abaixo para atualizar as unidades.")
	// ErrNoExternalIDs 所选单元都没有可用标识
	ErrNoExternalIDs = errors.New("Nenhuma unidade válida com Identificador_unid encontrada.")
	// ErrMappingIncomplete 必填字段未映射
	ErrMappingIncomplete = errors.New("mapeamento incompleto")
	// ErrObraNotFound 项目不存在或未启用
	ErrObraNotFound = errors.New("obra não encontrada")
)

// Backend 后端 ERP 接口
type Backend interface {
	ActiveObras(ctx context.Context, empresa string) ([]model.Obra, error)
	DetailedUnits(ctx context.Context, empresa, codigoObra string) ([]model.Unit, error)
	CustomFields(ctx context.Context, empresa, codigoObra string) ([]model.CustomField, error)
	UnitStatuses(ctx context.Context) ([]model.UnitStatus, error)
	ExternalProviders(ctx context.Context, empresa string, provedor int) ([]model.ExternalProvider, error)
	ActiveCompanies(ctx context.Context, empresa string) ([]model.Company, error)
	TestTemplate(ctx context.Context, req model.TemplateTestRequest) (*model.TemplateResult, error)
	ImportStructure(ctx context.Context, payload *model.ProductImportRequest) (map[string]any, error)
	UpdateExternalIDs(ctx context.Context, req model.ExternalIDUpdateRequest) (*model.ExternalIDUpdateResponse, error)
}

// MappingStore 保存每个项目最近一次的映射
type MappingStore interface {
	SaveERPMapping(empresa, codigoObra string, mappings []model.FieldMapping, statuses []model.StatusMapping) error
	LoadERPMapping(empresa, codigoObra string) ([]model.FieldMapping, []model.StatusMapping, bool, error)
}

// Service ERP 导入流程
type Service struct {
	backend Backend
	cache   cache.Cache
	ttl     time.Duration
	store   MappingStore
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewService 创建服务
func NewService(backend Backend, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend: backend,
		ttl:     cache.DefaultTTL,
		logger:  logger,
		now:     time.Now,
	}
}

// WithCache 启用查询缓存
func (s *Service) WithCache(c cache.Cache, ttl time.Duration) *Service {
	s.cache = c
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

// WithStore 启用映射持久化
func (s *Service) WithStore(st MappingStore) *Service {
	s.store = st
	return s
}

// WithMetrics 启用指标
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// Obras 在建项目（缓存）
func (s *Service) Obras(ctx context.Context, empresa string) ([]model.Obra, error) {
	return cache.Fetch(ctx, s.cache, cache.ObrasKey(empresa), s.ttl, func(ctx context.Context) ([]model.Obra, error) {
		return s.backend.ActiveObras(ctx, empresa)
	})
}

// Obra 按编码查找项目
func (s *Service) Obra(ctx context.Context, empresa, codigoObra string) (model.Obra, error) {
	obras, err := s.Obras(ctx, empresa)
	if err != nil {
		return model.Obra{}, err
	}
	for _, o := range obras {
		if o.CodigoObra == codigoObra {
			return o, nil
		}
	}
	return model.Obra{}, fmt.Errorf("%w: %s", ErrObraNotFound, codigoObra)
}

// UnitSet 项目单元及其自定义字段
type UnitSet struct {
	Units        []model.Unit        `json:"unidades"`
	CustomFields []model.CustomField `json:"camposPersonalizados"`
}

// Units 并行加载单元明细与自定义字段
// 后端没有自定义字段时从单元键中识别
func (s *Service) Units(ctx context.Context, empresa, codigoObra string) (*UnitSet, error) {
	var set UnitSet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		units, err := cache.Fetch(gctx, s.cache, cache.UnitsKey(empresa, codigoObra), s.ttl, func(ctx context.Context) ([]model.Unit, error) {
			return s.backend.DetailedUnits(ctx, empresa, codigoObra)
		})
		set.Units = units
		return err
	})
	g.Go(func() error {
		fields, err := cache.Fetch(gctx, s.cache, cache.CustomFieldsKey(empresa, codigoObra), s.ttl, func(ctx context.Context) ([]model.CustomField, error) {
			return s.backend.CustomFields(ctx, empresa, codigoObra)
		})
		set.CustomFields = fields
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(set.CustomFields) == 0 && len(set.Units) > 0 {
		set.CustomFields = DetectCustomFields(set.Units)
	}
	s.logger.Debug("loaded units",
		zap.String("empresa", empresa),
		zap.String("obra", codigoObra),
		zap.Int("units", len(set.Units)),
		zap.Int("custom_fields", len(set.CustomFields)),
	)
	return &set, nil
}

// Refresh 清除项目相关缓存
func (s *Service) Refresh(ctx context.Context, empresa, codigoObra string) error {
	if s.cache == nil {
		return nil
	}
	keys := []string{cache.ObrasKey(empresa)}
	if codigoObra != "" {
		keys = append(keys, cache.UnitsKey(empresa, codigoObra), cache.CustomFieldsKey(empresa, codigoObra))
	}
	return s.cache.Delete(ctx, keys...)
}

// UnitStatuses 目标系统状态列表（缓存）
func (s *Service) UnitStatuses(ctx context.Context) ([]model.UnitStatus, error) {
	return cache.Fetch(ctx, s.cache, cache.UnitStatusesKey(), s.ttl, s.backend.UnitStatuses)
}

// Companies ERP 启用中的公司
func (s *Service) Companies(ctx context.Context, empresa string) ([]model.Company, error) {
	return s.backend.ActiveCompanies(ctx, empresa)
}

// Providers 外部 ERP 提供方
func (s *Service) Providers(ctx context.Context, empresa string, provedor int) ([]model.ExternalProvider, error) {
	return s.backend.ExternalProviders(ctx, empresa, provedor)
}

// Wizard 映射向导的初始状态
type Wizard struct {
	Available  []string                `json:"camposDisponiveis"`
	Mappings   Mappings                `json:"mapeamentos"`
	Statuses   []model.StatusMapping   `json:"mapeamentosStatus"`
	Validation model.MappingValidation `json:"validacao"`
	Restored   bool                    `json:"restaurado"`
}

// PrepareWizard 初始化映射：有保存的映射时恢复，否则按目录初始化并自动映射
// 状态映射以单元中出现的状态为准，保存过的取值覆盖默认值
func (s *Service) PrepareWizard(empresa, codigoObra string, set *UnitSet) (*Wizard, error) {
	w := &Wizard{
		Available: AvailableFields(set.Units, set.CustomFields),
		Statuses:  ExtractUniqueStatuses(set.Units),
	}

	if s.store != nil {
		saved, savedStatuses, found, err := s.store.LoadERPMapping(empresa, codigoObra)
		if err != nil {
			return nil, err
		}
		if found && len(saved) > 0 {
			w.Mappings = Mappings(saved)
			w.Restored = true
			prev := make(map[string]int, len(savedStatuses))
			for _, st := range savedStatuses {
				prev[st.StatusERP] = st.StatusTRSID
			}
			for i := range w.Statuses {
				if id, ok := prev[w.Statuses[i].StatusERP]; ok {
					w.Statuses[i].StatusTRSID = id
				}
			}
		}
	}

	if w.Mappings == nil {
		w.Mappings = NewMappings()
		w.Mappings.AutoMap(w.Available)
	}
	w.Validation = w.Mappings.Validate()
	return w, nil
}

// TestTemplate 测试模板；remote 为 true 时由后端执行，失败返回固定错误结果
func (s *Service) TestTemplate(ctx context.Context, cfg model.TemplateConfig, sample string, remote bool) model.TemplateResult {
	if !remote {
		return TestTemplate(cfg, sample)
	}
	res, err := s.backend.TestTemplate(ctx, model.TemplateTestRequest{Config: cfg, Sample: sample})
	if err != nil {
		s.logger.Warn("remote template test failed", zap.Error(err))
		return FailedTemplateResult(sample)
	}
	return *res
}

// StructureImport 产品结构导入参数
type StructureImport struct {
	Empresa         string                `json:"empresa"`
	Obra            model.Obra            `json:"obra"`
	ManualProductID int                   `json:"idProdutoManual"`
	Units           []model.Unit          `json:"unidades"`
	Mappings        Mappings              `json:"mapeamentos"`
	Statuses        []model.StatusMapping `json:"mapeamentosStatus"`
}

// StructureImportResult 导入结果
type StructureImportResult struct {
	Success       bool           `json:"success"`
	Message       string         `json:"message"`
	TotalUnidades int            `json:"totalUnidades"`
	Raw           map[string]any `json:"raw,omitempty"`
}

// LargeImportNotice 单元数较多时的等待提示，否则为空
func LargeImportNotice(n int) string {
	if n <= LargeImportThreshold {
		return ""
	}
	return fmt.Sprintf("Processando %d unidades... Isso pode levar alguns minutos. Por favor, aguarde.", n)
}

// Preview 构建载荷但不发送
func (s *Service) Preview(req StructureImport) (*model.ProductImportRequest, error) {
	if len(req.Units) == 0 {
		return nil, ErrNoUnits
	}
	idProduto, err := ResolveProductID(req.ManualProductID, req.Obra)
	if err != nil {
		return nil, err
	}
	if v := req.Mappings.Validate(); !v.Valid {
		return nil, fmt.Errorf("%w: %s", ErrMappingIncomplete, strings.Join(v.Missing, ", "))
	}
	return BuildPayload(req.Obra, req.Units, req.Mappings, req.Statuses, idProduto, s.now())
}

// ImportStructure 构建并发送产品结构；成功后保存映射
func (s *Service) ImportStructure(ctx context.Context, req StructureImport) (*StructureImportResult, error) {
	payload, err := s.Preview(req)
	if err != nil {
		return nil, err
	}

	if notice := LargeImportNotice(len(payload.Unidades)); notice != "" {
		s.logger.Info(notice)
	}
	s.logger.Info("importing product structure",
		zap.String("obra", req.Obra.CodigoObra),
		zap.Int("id_produto", payload.IDProduto),
		zap.Int("tipologias", len(payload.Tipologias)),
		zap.Int("unidades", len(payload.Unidades)),
	)

	resp, err := s.backend.ImportStructure(ctx, payload)
	if err != nil {
		s.metrics.RecordStructureImport(false)
		return nil, err
	}

	res := &StructureImportResult{Raw: resp}
	res.Success, _ = resp["success"].(bool)
	res.TotalUnidades = intField(resp, "totalUnidades")
	if res.Success {
		total := res.TotalUnidades
		if total == 0 {
			total = len(req.Units)
		}
		res.Message = fmt.Sprintf("Estrutura importada com sucesso! %d unidades processadas.", total)
	} else {
		res.Message, _ = resp["message"].(string)
		if res.Message == "" {
			res.Message = "Falha na importação da estrutura."
		}
		if e, ok := resp["error"]; ok && e != nil {
			s.logger.Warn("structure import failed", zap.Any("error", e))
		}
	}
	s.metrics.RecordStructureImport(res.Success)

	if res.Success && s.store != nil && req.Empresa != "" {
		if err := s.store.SaveERPMapping(req.Empresa, req.Obra.CodigoObra, req.Mappings, req.Statuses); err != nil {
			s.logger.Warn("failed to save erp mapping", zap.Error(err))
		}
	}
	return res, nil
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// ExternalIDResult 回写结果与提示
type ExternalIDResult struct {
	Response *model.ExternalIDUpdateResponse `json:"response"`
	Message  string                          `json:"message"`
}

// UpdateExternalIDs 为所选单元回写 id_externo
func (s *Service) UpdateExternalIDs(ctx context.Context, obra model.Obra, manualProductID int, units []model.Unit) (*ExternalIDResult, error) {
	if len(units) == 0 {
		return nil, ErrNoUnitsForUpdate
	}
	idProduto, err := ResolveProductID(manualProductID, obra)
	if err != nil {
		return nil, ErrProductIDRequiredForUpdate
	}
	items := BuildExternalIDItems(units)
	if len(items) == 0 {
		return nil, ErrNoExternalIDs
	}

	resp, err := s.backend.UpdateExternalIDs(ctx, model.ExternalIDUpdateRequest{
		IDProduto:  idProduto,
		CodigoObra: obra.CodigoObra,
		Unidades:   items,
	})
	if err != nil {
		return nil, err
	}

	out := &ExternalIDResult{Response: resp}
	if resp.Success {
		out.Message = fmt.Sprintf("Atualização concluída! %d/%d unidades atualizadas.", resp.TotalAtualizados, resp.TotalRecebidos)
	} else {
		out.Message = resp.Message
		if out.Message == "" {
			out.Message = "Falha na atualização do ID externo."
		}
		if resp.Error != "" {
			s.logger.Warn("external id update failed", zap.String("error", resp.Error))
		}
	}
	return out, nil
}
