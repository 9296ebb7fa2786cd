// Package erp ERP 字段映射向导：字段目录、自动映射、模板提取、状态映射与导入载荷构建
package erp

import "hypnotools/internal/model"

// 目标字段
const (
	FieldNomeTorre         = "nomeTorre"
	FieldNomeTipologia     = "nomeTipologia"
	FieldAreaUtil          = "areaUtil"
	FieldAreaTotal         = "areaTotal"
	FieldUnityNumber       = "unity_number"
	FieldUnityNumberCustom = "unity_number_custom"
	FieldFloor             = "floor"
	FieldTipoUnidade       = "tipoUnidade"
	FieldSituacao          = "situacao"
	FieldQtdBanheiro       = "qtdBanheiro"
	FieldQtdQuarto         = "qtdQuarto"
	FieldQtdSuite          = "qtdSuite"
	FieldQtdComodo         = "qtdComodo"
	FieldQtdSacada         = "qtdSacada"
	FieldQtdCozinha        = "qtdCozinha"
	FieldVaga              = "vaga"
	FieldDeposito          = "deposito"
	FieldAreaDeposito      = "areaDeposito"
	FieldFracaoIdeal       = "fracaoIdeal"
	FieldFase              = "fase"
)

// FieldDef 目录中的一个目标字段
type FieldDef struct {
	Name         string `json:"propriedade"`
	Label        string `json:"mensagem"`
	Category     string `json:"categoria"`
	DefaultValue string `json:"valorPadrao,omitempty"`
	Required     bool   `json:"obrigatorio"`
}

// RequiredFields 必填字段
// 交付日期不在目录中，始终取项目的 dtfim_obr
var RequiredFields = []FieldDef{
	{Name: FieldNomeTorre, Label: "Nome da Torre", Category: model.CategoryTorre, Required: true},
	{Name: FieldNomeTipologia, Label: "Nome da Tipologia", Category: model.CategoryTipologia, Required: true},
	{Name: FieldAreaUtil, Label: "Área Útil", Category: model.CategoryTipologia, Required: true},
	{Name: FieldAreaTotal, Label: "Área Total", Category: model.CategoryTipologia, Required: true},
	{Name: FieldUnityNumber, Label: "Unity Number (Identificação)", Category: model.CategoryUnidade, Required: true},
	{Name: FieldUnityNumberCustom, Label: "Unity Number Custom (Exibição)", Category: model.CategoryUnidade, Required: true},
	{Name: FieldFloor, Label: "Floor (Andar)", Category: model.CategoryUnidade, Required: true},
	{Name: FieldTipoUnidade, Label: "Tipo de Unidade", Category: model.CategoryUnidade, Required: true},
	{Name: FieldSituacao, Label: "Situação", Category: model.CategoryUnidade, DefaultValue: "1", Required: true},
}

// OptionalFields 可选字段
var OptionalFields = []FieldDef{
	{Name: FieldQtdBanheiro, Label: "Qtd de Banheiros", Category: model.CategoryPropriedade},
	{Name: FieldQtdQuarto, Label: "Qtd de Quartos", Category: model.CategoryPropriedade},
	{Name: FieldQtdSuite, Label: "Qtd de Suítes", Category: model.CategoryPropriedade},
	{Name: FieldQtdComodo, Label: "Qtd de Cômodos", Category: model.CategoryPropriedade},
	{Name: FieldQtdSacada, Label: "Qtd de Sacadas", Category: model.CategoryPropriedade},
	{Name: FieldQtdCozinha, Label: "Qtd de Cozinhas", Category: model.CategoryPropriedade},
	{Name: FieldVaga, Label: "Vaga", Category: model.CategoryUnidade},
	{Name: FieldDeposito, Label: "Depósito", Category: model.CategoryUnidade},
	{Name: FieldAreaDeposito, Label: "Área do Depósito", Category: model.CategoryUnidade},
	{Name: FieldAreaTotal, Label: "Área Total da Unidade", Category: model.CategoryUnidade},
	{Name: FieldFracaoIdeal, Label: "Fração Ideal", Category: model.CategoryUnidade},
	{Name: FieldFase, Label: "Fase", Category: model.CategoryUnidade},
}

// propertyNames 户型属性：映射字段 -> 载荷名称，顺序即输出顺序
var propertyNames = []struct {
	field string
	name  string
}{
	{FieldQtdBanheiro, "Banheiro"},
	{FieldQtdQuarto, "Quarto"},
	{FieldQtdSuite, "Suíte"},
	{FieldQtdComodo, "Cômodo"},
	{FieldQtdSacada, "Sacada"},
	{FieldQtdCozinha, "Cozinha"},
}

// CategoryLabels 分类显示名
var CategoryLabels = map[string]string{
	model.CategoryTorre:       "Dados da Torre/Obra",
	model.CategoryTipologia:   "Dados da Tipologia",
	model.CategoryUnidade:     "Dados da Unidade",
	model.CategoryPropriedade: "Propriedades da Tipologia",
}

// Catalog 全部字段，必填在前
func Catalog() []FieldDef {
	out := make([]FieldDef, 0, len(RequiredFields)+len(OptionalFields))
	out = append(out, RequiredFields...)
	return append(out, OptionalFields...)
}

// NewMappings 按目录初始化映射
// 带默认值的字段（situacao）预置手动值并启用默认值
func NewMappings() Mappings {
	out := make(Mappings, 0, len(RequiredFields)+len(OptionalFields))
	for _, def := range Catalog() {
		m := model.FieldMapping{
			TargetField:  def.Name,
			Category:     def.Category,
			Required:     def.Required,
			Label:        def.Label,
			DefaultValue: def.DefaultValue,
		}
		if def.DefaultValue != "" {
			v := def.DefaultValue
			m.ManualValue = &v
			m.UseDefault = true
		}
		out = append(out, m)
	}
	return out
}
