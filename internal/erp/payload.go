package erp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"hypnotools/internal/model"
	"hypnotools/internal/parser"
)

// defaultTypology 单元没有户型名时使用
const defaultTypology = "Padrão"

var (
	// ErrNoUnits 没有选择单元
	ErrNoUnits = errors.New("Selecione pelo menos uma unidade para importar.")
	// ErrProductIDRequired 缺少产品 ID
	ErrProductIDRequired = errors.New("Informe o ID do Produto no campo abaixo para importar.")
)

// ResolveProductID 手动填写的产品 ID 优先，否则取项目上的 idProduto
func ResolveProductID(manual int, obra model.Obra) (int, error) {
	id := manual
	if id <= 0 && obra.IDProduto != nil {
		id = *obra.IDProduto
	}
	if id <= 0 {
		return 0, ErrProductIDRequired
	}
	return id, nil
}

// valueOf 取映射值：启用默认值时用手动值（模板值按模板计算），否则读单元的来源字段
// 没有值时返回 ""
func valueOf(target string, ms Mappings, u model.Unit) string {
	var m *model.FieldMapping
	for i := range ms {
		if ms[i].TargetField == target {
			m = &ms[i]
			break
		}
	}
	if m == nil {
		return ""
	}

	if m.UseDefault && m.ManualValue != nil && *m.ManualValue != "" {
		if strings.HasPrefix(*m.ManualValue, templatePrefix) && m.Template != nil {
			return ApplyTemplate(*m.Template, unitTemplateSource(u), target)
		}
		return *m.ManualValue
	}

	if m.SourceField != nil && *m.SourceField != "" && u != nil {
		if v, ok := u.String(*m.SourceField); ok {
			return v
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func unitField(u model.Unit, field string) string {
	v, _ := u.String(field)
	return v
}

// floorOf 单元楼层，无法解析时为 0
func floorOf(u model.Unit, unidade Mappings) int {
	n, ok := parser.ParseLeadingInt(firstNonEmpty(valueOf(FieldFloor, unidade, u), "0"))
	if !ok {
		return 0
	}
	return n
}

// typologyKey 单元所属户型名
// tipoUnidade 在 tipologia 分类中查找，目录里它属于 unidade，因此实际以 nomeTipologia 为准
func typologyKey(u model.Unit, tipologia Mappings) string {
	return firstNonEmpty(
		valueOf(FieldTipoUnidade, tipologia, u),
		valueOf(FieldNomeTipologia, tipologia, u),
		defaultTypology,
	)
}

// normalizeArea 面积统一经 decimal 规范化，支持逗号小数；无法解析时原样返回
func normalizeArea(v string) string {
	if v == "" {
		return v
	}
	d, err := decimal.NewFromString(strings.Replace(strings.TrimSpace(v), ",", ".", 1))
	if err != nil {
		return v
	}
	return d.String()
}

// FormatDeliveryDate 交付日期输出 yyyy-MM-dd
// 支持 dd/MM/yyyy 与 ISO；为空或无法解析时取 now 一年后
func FormatDeliveryDate(s string, now time.Time) string {
	fallback := now.UTC().AddDate(1, 0, 0).Format("2006-01-02")
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}

	if strings.Contains(s, "/") {
		parts := strings.Split(s, "/")
		if len(parts) < 3 {
			return fallback
		}
		day, ok1 := parser.ParseLeadingInt(parts[0])
		month, ok2 := parser.ParseLeadingInt(parts[1])
		year, ok3 := parser.ParseLeadingInt(parts[2])
		if !ok1 || !ok2 || !ok3 {
			return fallback
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format("2006-01-02")
		}
	}
	return fallback
}

// BuildPayload 由项目、单元与映射构建产品结构导入载荷
// 只生成一栋楼，户型按名称去重并以下标引用
func BuildPayload(obra model.Obra, units []model.Unit, ms Mappings, statuses []model.StatusMapping, idProduto int, now time.Time) (*model.ProductImportRequest, error) {
	if len(units) == 0 {
		return nil, ErrNoUnits
	}
	if idProduto <= 0 {
		return nil, ErrProductIDRequired
	}

	tower := buildTower(obra, units, ms, now)
	typologies := buildTypologies(units, ms)
	payloadUnits := buildUnits(units, ms, typologies, statuses)

	return &model.ProductImportRequest{
		IDProduto:  idProduto,
		Torres:     []model.Tower{tower},
		Tipologias: typologies,
		Unidades:   payloadUnits,
	}, nil
}

func buildTower(obra model.Obra, units []model.Unit, ms Mappings, now time.Time) model.Tower {
	torre := ms.InCategory(model.CategoryTorre)
	unidade := ms.InCategory(model.CategoryUnidade)

	name := firstNonEmpty(valueOf(FieldNomeTorre, torre, units[0]), obra.NomeObra)

	perFloor := make(map[int]int)
	qtyFloors := 0
	for i, u := range units {
		f := floorOf(u, unidade)
		perFloor[f]++
		if i == 0 || f > qtyFloors {
			qtyFloors = f
		}
	}
	qtyColumns := 1
	if len(perFloor) > 0 {
		qtyColumns = 0
		for _, n := range perFloor {
			if n > qtyColumns {
				qtyColumns = n
			}
		}
	}

	first := firstNonEmpty(
		valueOf(FieldUnityNumber, unidade, units[0]),
		unitField(units[0], "codigoUnidade"),
		"0",
	)
	unitPattern := "0"
	if utf8.RuneCountInString(first) >= 3 {
		unitPattern = "1"
	}

	groundFloor := "1"
	if qtyFloors > 0 {
		groundFloor = "0"
	}

	return model.Tower{
		Name:         name,
		Description:  fmt.Sprintf("Torre importada do ERP - %s", obra.NomeObra),
		QtyFloors:    qtyFloors,
		QtyColumns:   qtyColumns,
		DeliveryDate: FormatDeliveryDate(obra.DataFimObra, now),
		Status:       "1",
		GroundFloor:  groundFloor,
		UnitPattern:  unitPattern,
		IDExterno:    obra.CodigoObra,
	}
}

func buildTypologies(units []model.Unit, ms Mappings) []model.Typology {
	tipologia := ms.InCategory(model.CategoryTipologia)
	propriedade := ms.InCategory(model.CategoryPropriedade)

	var order []string
	refs := make(map[string]model.Unit)
	for _, u := range units {
		key := typologyKey(u, tipologia)
		if _, ok := refs[key]; !ok {
			refs[key] = u
			order = append(order, key)
		}
	}

	out := make([]model.Typology, 0, len(order))
	for i, key := range order {
		ref := refs[key]

		props := []model.TypologyProperty{}
		for _, p := range propertyNames {
			qty, ok := parser.ParseLeadingInt(firstNonEmpty(valueOf(p.field, propriedade, ref), "0"))
			if ok && qty > 0 {
				props = append(props, model.TypologyProperty{Name: p.name, Quantity: qty})
			}
		}

		padrao := 0
		if i == 0 {
			padrao = 1
		}
		out = append(out, model.Typology{
			Name:       key,
			Tipology:   key,
			UsableArea: normalizeArea(firstNonEmpty(valueOf(FieldAreaUtil, tipologia, ref), "0")),
			TotalArea:  normalizeArea(firstNonEmpty(valueOf(FieldAreaTotal, tipologia, ref), "0")),
			Padrao:     padrao,
			IDExterno:  key,
			Properties: props,
		})
	}
	return out
}

func buildUnits(units []model.Unit, ms Mappings, typologies []model.Typology, statuses []model.StatusMapping) []model.UnitPayload {
	tipologia := ms.InCategory(model.CategoryTipologia)
	unidade := ms.InCategory(model.CategoryUnidade)

	index := make(map[string]int, len(typologies))
	for i, t := range typologies {
		if _, ok := index[t.Name]; !ok {
			index[t.Name] = i
		}
	}

	out := make([]model.UnitPayload, 0, len(units))
	for _, u := range units {
		idTipologia, ok := index[typologyKey(u, tipologia)]
		if !ok {
			idTipologia = -1
		}

		number := firstNonEmpty(valueOf(FieldUnityNumber, unidade, u), unitField(u, "codigoUnidade"), "0")
		situacao := firstNonEmpty(valueOf(FieldSituacao, unidade, u), "1")

		status := MapStatus(situacao)
		if override := statusOverride(statuses, unitField(u, "status")); override != "" {
			status = override
		}

		out = append(out, model.UnitPayload{
			IDTorre:           "0",
			IDTipologia:       strconv.Itoa(idTipologia),
			Floor:             floorOf(u, unidade),
			UnityNumber:       number,
			UnityNumberCustom: firstNonEmpty(valueOf(FieldUnityNumberCustom, unidade, u), number),
			Status:            status,
			Cadastrar:         true,
			PercentageUnity:   "0",
			IDExterno:         firstNonEmpty(unitField(u, "Identificador_unid"), unitField(u, "codigoUnidade")),
			Vaga:              valueOf(FieldVaga, unidade, u),
			Deposito:          valueOf(FieldDeposito, unidade, u),
			AreaDeposito:      normalizeArea(valueOf(FieldAreaDeposito, unidade, u)),
			FracaoIdeal:       valueOf(FieldFracaoIdeal, unidade, u),
			Fase:              valueOf(FieldFase, unidade, u),
			AreaTotal:         normalizeArea(valueOf(FieldAreaTotal, unidade, u)),
		})
	}
	return out
}

// BuildExternalIDItems 回写 id_externo 的单元标识：codigoUnidade，否则 descricaoUnidade，空值跳过
func BuildExternalIDItems(units []model.Unit) []model.ExternalIDUnitItem {
	out := make([]model.ExternalIDUnitItem, 0, len(units))
	for _, u := range units {
		id := unitTemplateSource(u)
		if id == "" {
			continue
		}
		out = append(out, model.ExternalIDUnitItem{IdentificadorUnid: id})
	}
	return out
}
