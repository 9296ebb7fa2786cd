package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// 字段分类
const (
	CategoryTorre       = "torre"
	CategoryTipologia   = "tipologia"
	CategoryUnidade     = "unidade"
	CategoryPropriedade = "propriedade"
)

// FieldMapping ERP 字段映射（DE/PARA）
type FieldMapping struct {
	TargetField  string          `json:"campoObrigatorio" validate:"required"`
	SourceField  *string         `json:"campoERP"`
	Category     string          `json:"categoria" validate:"oneof=torre tipologia unidade propriedade"`
	ManualValue  *string         `json:"valorManual,omitempty"`
	UseDefault   bool            `json:"usarValorPadrao"`
	Required     bool            `json:"obrigatorio"`
	Label        string          `json:"mensagem,omitempty"`
	DefaultValue string          `json:"valorPadrao,omitempty"`
	Template     *TemplateConfig `json:"templateConfig,omitempty"`
}

// IsMapped 是否已有来源字段或默认值
func (m FieldMapping) IsMapped() bool {
	return (m.SourceField != nil && *m.SourceField != "") || m.UseDefault
}

// TemplateConfig 正则模板配置
type TemplateConfig struct {
	Pattern                   string `json:"patternExtracao"`
	UnityNumberTemplate       string `json:"unityNumberTemplate"`
	UnityNumberCustomTemplate string `json:"unityNumberCustomTemplate"`
	FloorTemplate             string `json:"floorTemplate"`
	StripSpaces               bool   `json:"removerEspacos"`
	StripLeadingZeros         bool   `json:"removerZerosEsquerda"`
}

// TemplateResult 模板测试结果
type TemplateResult struct {
	Success           bool     `json:"sucesso"`
	Original          string   `json:"numeroOriginal"`
	UnityNumber       string   `json:"unityNumber"`
	UnityNumberCustom string   `json:"unityNumberCustom"`
	Floor             string   `json:"floor"`
	Error             string   `json:"erro,omitempty"`
	Groups            []string `json:"gruposCapturados"`
}

// TemplateTestRequest 模板测试请求
type TemplateTestRequest struct {
	Config TemplateConfig `json:"configuracao"`
	Sample string         `json:"numeroUnidadeTeste"`
}

// MappingValidation 映射校验结果
type MappingValidation struct {
	Valid    bool     `json:"valido"`
	Missing  []string `json:"camposFaltantes"`
	Warnings []string `json:"avisos"`
}

// StatusMapping ERP 状态 -> 目标状态 ID
type StatusMapping struct {
	StatusERP   string `json:"statusERP"`
	StatusTRSID int    `json:"statusTRSId"`
}

// UnitStatus 目标系统的单元状态
type UnitStatus struct {
	ID        int    `json:"id"`
	Nome      string `json:"nome"`
	Descricao string `json:"descricao"`
}

// Obra ERP 在建项目
// 日期保持 ERP 原样字符串（格式不统一）
type Obra struct {
	CodigoObra          string `json:"codigoObra"`
	EmpresaObra         int    `json:"empresaObra"`
	NomeObra            string `json:"nomeObra"`
	StatusObra          string `json:"statusObra"`
	DataInicio          string `json:"dataInicio,omitempty"`
	DataPrevisaoTermino string `json:"dataPrevisaoTermino,omitempty"`
	DataFimObra         string `json:"dtfim_obr,omitempty"`
	IDProduto           *int   `json:"idProduto,omitempty"`
}

// CustomField ERP 自定义字段
type CustomField struct {
	Campo     string `json:"campo"`
	Descricao string `json:"descricao"`
}

// ExternalProvider 外部 ERP 提供方
type ExternalProvider struct {
	ID       int    `json:"id"`
	Nome     string `json:"nome"`
	URLBase  string `json:"urlBase"`
	Usuario  string `json:"usuario"`
	Empresa  string `json:"empresa"`
	Provedor int    `json:"provedor"`
}

// Company ERP 启用中的公司
type Company struct {
	Codigo   int    `json:"codigo_emp"`
	Nome     string `json:"desc_emp"`
	CNPJ     string `json:"cgc_emp"`
	Endereco string `json:"endereco_emp"`
	Telefone string `json:"fone_emp"`
}

// Unit ERP 单元明细，字段不固定
type Unit map[string]any

// String 以字符串读取字段，不存在或为 null 时 ok=false
func (u Unit) String(field string) (string, bool) {
	v, ok := u[field]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	default:
		return fmt.Sprint(t), true
	}
}

// Keys 排序后的字段名
func (u Unit) Keys() []string {
	keys := make([]string, 0, len(u))
	for k := range u {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ProductImportRequest 产品结构导入载荷
type ProductImportRequest struct {
	IDProduto  int           `json:"IdProduto"`
	Torres     []Tower       `json:"Torres"`
	Tipologias []Typology    `json:"Tipologias"`
	Unidades   []UnitPayload `json:"Unidades"`
}

// Tower 楼栋
type Tower struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	QtyFloors    int    `json:"qty_floors"`
	QtyColumns   int    `json:"qty_columns"`
	DeliveryDate string `json:"delivery_date"`
	Status       string `json:"status"`
	GroundFloor  string `json:"ground_floor"`
	UnitPattern  string `json:"unit_pattern"`
	IDExterno    string `json:"id_externo,omitempty"`
}

// Typology 户型
type Typology struct {
	Name       string             `json:"name"`
	Tipology   string             `json:"tipology"`
	UsableArea string             `json:"usable_area"`
	TotalArea  string             `json:"total_area"`
	Padrao     int                `json:"padrao"`
	IDExterno  string             `json:"id_externo,omitempty"`
	Properties []TypologyProperty `json:"properties"`
}

// TypologyProperty 户型属性
type TypologyProperty struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// UnitPayload 单元
type UnitPayload struct {
	IDTorre           string `json:"id_torre"`
	IDTipologia       string `json:"id_tipologia"`
	Floor             int    `json:"floor"`
	UnityNumber       string `json:"unity_number"`
	UnityNumberCustom string `json:"unity_number_custom,omitempty"`
	Status            string `json:"status"`
	Cadastrar         bool   `json:"cadastrar"`
	PercentageUnity   string `json:"percentage_unity,omitempty"`
	Fase              string `json:"fase,omitempty"`
	Vaga              string `json:"vaga,omitempty"`
	Deposito          string `json:"deposito,omitempty"`
	AreaDeposito      string `json:"area_deposito,omitempty"`
	FracaoIdeal       string `json:"fracao_ideal,omitempty"`
	IDExterno         string `json:"id_externo,omitempty"`
	AreaTotal         string `json:"area_total,omitempty"`
}

// ExternalIDUpdateRequest 回写 id_externo 请求
type ExternalIDUpdateRequest struct {
	IDProduto  int                  `json:"idProduto"`
	CodigoObra string               `json:"codigoObra"`
	Unidades   []ExternalIDUnitItem `json:"unidades"`
}

// ExternalIDUnitItem 单元标识
type ExternalIDUnitItem struct {
	IdentificadorUnid string `json:"Identificador_unid"`
}

// ExternalIDUpdateResponse 回写结果
type ExternalIDUpdateResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	TotalAtualizados int    `json:"totalAtualizados"`
	TotalRecebidos   int    `json:"totalRecebidos"`
	ProcessedAt      string `json:"processedAt,omitempty"`
	Error            string `json:"error,omitempty"`
	StatusCode       int    `json:"statusCode,omitempty"`
}
