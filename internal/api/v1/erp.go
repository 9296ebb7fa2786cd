package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hypnotools/internal/erp"
	"hypnotools/internal/model"
)

// empresaOf 查询参数中的公司，缺省为当前会话公司
func (h *Handler) empresaOf(c *gin.Context) string {
	if v := c.Query("empresa"); v != "" {
		return v
	}
	return h.app.Empresa()
}

// ListObras 启用中的项目
// GET /api/v1/erp/obras?empresa=
func (h *Handler) ListObras(c *gin.Context) {
	obras, err := h.app.ERP.Obras(c.Request.Context(), h.empresaOf(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"obras": obras})
}

// GetUnits 项目单元与映射向导初始状态
// GET /api/v1/erp/obras/:codigo/unidades
func (h *Handler) GetUnits(c *gin.Context) {
	ctx := c.Request.Context()
	empresa := h.empresaOf(c)
	codigo := c.Param("codigo")

	obra, err := h.app.ERP.Obra(ctx, empresa, codigo)
	if err != nil {
		h.writeError(c, err)
		return
	}
	set, err := h.app.ERP.Units(ctx, empresa, codigo)
	if err != nil {
		h.writeError(c, err)
		return
	}
	wizard, err := h.app.ERP.PrepareWizard(empresa, codigo, set)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"obra":                 obra,
		"unidades":             set.Units,
		"camposPersonalizados": set.CustomFields,
		"wizard":               wizard,
		"aviso":                erp.LargeImportNotice(len(set.Units)),
	})
}

// RefreshUnits 清除项目缓存
// POST /api/v1/erp/obras/:codigo/refresh
func (h *Handler) RefreshUnits(c *gin.Context) {
	if err := h.app.ERP.Refresh(c.Request.Context(), h.empresaOf(c), c.Param("codigo")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cache atualizado"})
}

// ListCompanies ERP 启用中的公司
// GET /api/v1/erp/empresas
func (h *Handler) ListCompanies(c *gin.Context) {
	companies, err := h.app.ERP.Companies(c.Request.Context(), h.empresaOf(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"empresas": companies})
}

// ListProviders 外部 ERP 提供方
// GET /api/v1/erp/provedores?provedor=1
func (h *Handler) ListProviders(c *gin.Context) {
	provedor, _ := strconv.Atoi(c.DefaultQuery("provedor", "0"))
	providers, err := h.app.ERP.Providers(c.Request.Context(), h.empresaOf(c), provedor)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"provedores": providers})
}

// GetCatalog 目标字段目录
// GET /api/v1/erp/catalogo
func (h *Handler) GetCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"campos":     erp.Catalog(),
		"categorias": erp.CategoryLabels,
	})
}

// AutoMapRequest 自动映射请求；未给出映射时按目录初始化
type AutoMapRequest struct {
	Available []string     `json:"camposDisponiveis"`
	Mappings  erp.Mappings `json:"mapeamentos"`
}

// AutoMap 按字段名自动映射
// POST /api/v1/erp/automap
func (h *Handler) AutoMap(c *gin.Context) {
	var req AutoMapRequest
	if !bindJSON(c, &req) {
		return
	}
	ms := req.Mappings
	if len(ms) == 0 {
		ms = erp.NewMappings()
	}
	n := ms.AutoMap(req.Available)
	c.JSON(http.StatusOK, gin.H{
		"mapeamentos": ms,
		"mapeados":    n,
		"validacao":   ms.Validate(),
	})
}

// ValidateMappingRequest 映射校验请求
type ValidateMappingRequest struct {
	Mappings erp.Mappings `json:"mapeamentos"`
}

// ValidateMapping 校验必填字段
// POST /api/v1/erp/validate
func (h *Handler) ValidateMapping(c *gin.Context) {
	var req ValidateMappingRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, req.Mappings.Validate())
}

// ListPatterns 内置模板
// GET /api/v1/erp/template/patterns
func (h *Handler) ListPatterns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"padroes": erp.Patterns})
}

// TestTemplateRequest 模板测试请求
// 给出映射时，测试成功后把模板写入映射并返回
type TestTemplateRequest struct {
	Config   model.TemplateConfig `json:"configuracao"`
	Sample   string               `json:"numeroUnidadeTeste"`
	Remote   bool                 `json:"remoto"`
	Mappings erp.Mappings         `json:"mapeamentos"`
}

// TestTemplate 测试模板
// POST /api/v1/erp/template/test
func (h *Handler) TestTemplate(c *gin.Context) {
	var req TestTemplateRequest
	if !bindJSON(c, &req) {
		return
	}
	res := h.app.ERP.TestTemplate(c.Request.Context(), req.Config, req.Sample, req.Remote)
	out := gin.H{"resultado": res}
	if len(req.Mappings) > 0 && res.Success {
		if err := req.Mappings.ApplyTemplateToAll(req.Config, &res); err == nil {
			out["mapeamentos"] = req.Mappings
			out["validacao"] = req.Mappings.Validate()
		}
	}
	c.JSON(http.StatusOK, out)
}

// DetectPatternRequest 模式识别请求
type DetectPatternRequest struct {
	Sample string `json:"numeroUnidadeTeste"`
}

// DetectPattern 识别示例对应的内置模式
// POST /api/v1/erp/template/detect
func (h *Handler) DetectPattern(c *gin.Context) {
	var req DetectPatternRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := erp.DetectPattern(req.Sample)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"padrao":    p,
		"resultado": erp.TestTemplate(p.Config, req.Sample),
	})
}

// structureRequest 请求中的公司缺省为当前会话公司
func (h *Handler) structureRequest(c *gin.Context) (erp.StructureImport, bool) {
	var req erp.StructureImport
	if !bindJSON(c, &req) {
		return req, false
	}
	if req.Empresa == "" {
		req.Empresa = h.app.Empresa()
	}
	return req, true
}

// PreviewPayload 构建产品结构载荷但不发送
// POST /api/v1/erp/payload
func (h *Handler) PreviewPayload(c *gin.Context) {
	req, ok := h.structureRequest(c)
	if !ok {
		return
	}
	payload, err := h.app.ERP.Preview(req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// ImportStructure 导入产品结构
// POST /api/v1/erp/import
func (h *Handler) ImportStructure(c *gin.Context) {
	req, ok := h.structureRequest(c)
	if !ok {
		return
	}
	res, err := h.app.ERP.ImportStructure(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{
		"resultado": res,
		"aviso":     erp.LargeImportNotice(len(req.Units)),
	})
}

// ExternalIDRequest id_externo 回写请求
type ExternalIDRequest struct {
	Obra            model.Obra   `json:"obra"`
	ManualProductID int          `json:"idProdutoManual"`
	Units           []model.Unit `json:"unidades"`
}

// UpdateExternalIDs 回写所选单元的 id_externo
// POST /api/v1/erp/external-ids
func (h *Handler) UpdateExternalIDs(c *gin.Context) {
	var req ExternalIDRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.app.ERP.UpdateExternalIDs(c.Request.Context(), req.Obra, req.ManualProductID, req.Units)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListUnitStatuses 目标系统单元状态
// GET /api/v1/erp/status-unidades
func (h *Handler) ListUnitStatuses(c *gin.Context) {
	statuses, err := h.app.ERP.UnitStatuses(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statuses})
}
