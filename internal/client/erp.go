package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"hypnotools/internal/model"
)

// StructureImportTimeout 产品结构导入超时
const StructureImportTimeout = 10 * time.Minute

func erpPath(parts ...string) string {
	p := "/api/erp"
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// ExternalProviders 外部 ERP 提供方，provedor 为 0 时不过滤
func (c *Client) ExternalProviders(ctx context.Context, empresa string, provedor int) ([]model.ExternalProvider, error) {
	var q url.Values
	if provedor > 0 {
		q = url.Values{"provedor": {fmt.Sprint(provedor)}}
	}
	var resp []model.ExternalProvider
	err := c.do(ctx, request{method: http.MethodGet, path: erpPath("provedores-externos", empresa), query: q}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to load external providers: %w", err)
	}
	return resp, nil
}

// ActiveCompanies ERP 启用中的公司
func (c *Client) ActiveCompanies(ctx context.Context, empresa string) ([]model.Company, error) {
	var resp []model.Company
	if err := c.do(ctx, request{method: http.MethodGet, path: erpPath("empresas-ativas", empresa)}, &resp); err != nil {
		return nil, fmt.Errorf("failed to load companies: %w", err)
	}
	return resp, nil
}

// ActiveObras 在建项目
func (c *Client) ActiveObras(ctx context.Context, empresa string) ([]model.Obra, error) {
	var resp []model.Obra
	if err := c.do(ctx, request{method: http.MethodGet, path: erpPath("obter-obras-ativas", empresa)}, &resp); err != nil {
		return nil, fmt.Errorf("failed to load obras: %w", err)
	}
	return resp, nil
}

// DetailedUnits 项目单元明细
func (c *Client) DetailedUnits(ctx context.Context, empresa, codigoObra string) ([]model.Unit, error) {
	var resp []model.Unit
	if err := c.do(ctx, request{method: http.MethodGet, path: erpPath("unidades-detalhadas", empresa, codigoObra)}, &resp); err != nil {
		return nil, fmt.Errorf("failed to load units of obra %s: %w", codigoObra, err)
	}
	return resp, nil
}

// CustomFields 项目自定义字段
func (c *Client) CustomFields(ctx context.Context, empresa, codigoObra string) ([]model.CustomField, error) {
	var resp []model.CustomField
	if err := c.do(ctx, request{method: http.MethodGet, path: erpPath("campos-personalizados", empresa, codigoObra)}, &resp); err != nil {
		return nil, fmt.Errorf("failed to load custom fields of obra %s: %w", codigoObra, err)
	}
	return resp, nil
}

// ImportStructure 发送楼栋/户型/单元结构
// 返回后端原始 JSON 对象
func (c *Client) ImportStructure(ctx context.Context, payload *model.ProductImportRequest) (map[string]any, error) {
	var resp map[string]any
	err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/api/ImportacaoProduto/importar-estrutura",
		body:    payload,
		timeout: StructureImportTimeout,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to import structure: %w", err)
	}
	return resp, nil
}

// TestTemplate 由后端执行模板测试
func (c *Client) TestTemplate(ctx context.Context, req model.TemplateTestRequest) (*model.TemplateResult, error) {
	var resp model.TemplateResult
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/MapeamentoCampos/testar", body: req}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to test template: %w", err)
	}
	return &resp, nil
}

// UnitStatuses 目标系统单元状态列表
func (c *Client) UnitStatuses(ctx context.Context) ([]model.UnitStatus, error) {
	var resp []model.UnitStatus
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/ImportacaoProduto/ObterStatusUnidades"}, &resp); err != nil {
		return nil, fmt.Errorf("failed to load unit statuses: %w", err)
	}
	return resp, nil
}

// UpdateExternalIDs 回写单元 id_externo
func (c *Client) UpdateExternalIDs(ctx context.Context, req model.ExternalIDUpdateRequest) (*model.ExternalIDUpdateResponse, error) {
	var resp model.ExternalIDUpdateResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/unidade/atualizar-id-externo", body: req}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to update external ids: %w", err)
	}
	return &resp, nil
}
