package erp

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"hypnotools/internal/model"
)

// extrasKey 单元中嵌套的扩展字段容器，不作为可映射字段
const extrasKey = "camposExtras"

var (
	customFieldRe = regexp.MustCompile(`(?i)^c\d+_unid$`)
	unidSuffixRe  = regexp.MustCompile(`(?i)_unid$`)
	firstNumberRe = regexp.MustCompile(`\d+`)
)

// autoMapAliases 自动映射候选名，按顺序精确匹配（忽略大小写）
var autoMapAliases = map[string][]string{
	FieldNomeTorre:         {"nomeObra", "nome_obra", "obra", "torre", "nome_torre"},
	FieldNomeTipologia:     {"tipoUnidade", "tipo_unidade", "tipologia", "nome_tipologia"},
	FieldAreaUtil:          {"areaPrivativa", "area_privativa", "area_util", "areaUtil"},
	FieldAreaTotal:         {"areaTotal", "area_total"},
	FieldUnityNumber:       {"codigoUnidade", "codigo_unidade", "numero_unidade", "unity_number", "identificador_unid"},
	FieldUnityNumberCustom: {"descricaoUnidade", "descricao_unidade", "nome_unidade", "unity_number_custom", "unidade"},
	FieldFloor:             {"andar", "floor", "pavimento", "quadra"},
	FieldTipoUnidade:       {"tipoUnidade", "tipo_unidade", "tipo"},
	FieldSituacao:          {"status", "situacao", "statusUnidade"},
	FieldVaga:              {"vaga", "vagas", "garagem"},
	FieldDeposito:          {"deposito", "depositos"},
	FieldAreaDeposito:      {"areaDeposito", "area_deposito"},
	FieldFracaoIdeal:       {"fracaoIdeal", "fracao_ideal"},
	FieldFase:              {"fase", "etapa"},
}

// Mappings 一次向导会话的全部字段映射
type Mappings []model.FieldMapping

// Find 按目标字段与分类查找，未找到返回 nil
func (ms Mappings) Find(target, category string) *model.FieldMapping {
	for i := range ms {
		if ms[i].TargetField == target && ms[i].Category == category {
			return &ms[i]
		}
	}
	return nil
}

// first 按目标字段取第一个映射（不区分分类）
func (ms Mappings) first(target string) *model.FieldMapping {
	for i := range ms {
		if ms[i].TargetField == target {
			return &ms[i]
		}
	}
	return nil
}

// InCategory 某分类下的映射
func (ms Mappings) InCategory(category string) Mappings {
	out := make(Mappings, 0, len(ms))
	for _, m := range ms {
		if m.Category == category {
			out = append(out, m)
		}
	}
	return out
}

// MappedCount 已映射（有来源字段或启用默认值）的数量
func (ms Mappings) MappedCount() int {
	n := 0
	for _, m := range ms {
		if m.IsMapped() {
			n++
		}
	}
	return n
}

// AvailableFields 可映射的 ERP 字段：首个单元的键加自定义字段名，去重排序
func AvailableFields(units []model.Unit, custom []model.CustomField) []string {
	if len(units) == 0 {
		return nil
	}
	set := make(map[string]struct{})
	for k := range units[0] {
		if k == extrasKey {
			continue
		}
		set[k] = struct{}{}
	}
	for _, c := range custom {
		if c.Campo != "" {
			set[c.Campo] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DetectCustomFields 后端未返回自定义字段时，从单元键中识别 cN_unid
// 按 N 数值排序，描述为去掉 _unid 后的大写名
func DetectCustomFields(units []model.Unit) []model.CustomField {
	if len(units) == 0 {
		return nil
	}
	var names []string
	for k := range units[0] {
		if customFieldRe.MatchString(k) {
			names = append(names, k)
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		ni, nj := fieldNumber(names[i]), fieldNumber(names[j])
		if ni != nj {
			return ni < nj
		}
		return names[i] < names[j]
	})

	out := make([]model.CustomField, 0, len(names))
	for _, n := range names {
		out = append(out, model.CustomField{
			Campo:     n,
			Descricao: strings.ToUpper(unidSuffixRe.ReplaceAllString(n, "")),
		})
	}
	return out
}

func fieldNumber(name string) int {
	n, _ := strconv.Atoi(firstNumberRe.FindString(name))
	return n
}

// AutoMap 按候选名自动映射
// 同名目标字段在多个分类中出现时（areaTotal）全部映射
func (ms Mappings) AutoMap(available []string) int {
	lower := make(map[string]string, len(available))
	for _, f := range available {
		key := strings.ToLower(f)
		if _, ok := lower[key]; !ok {
			lower[key] = f
		}
	}

	mapped := 0
	for i := range ms {
		for _, alias := range autoMapAliases[ms[i].TargetField] {
			found, ok := lower[strings.ToLower(alias)]
			if !ok {
				continue
			}
			src := found
			ms[i].SourceField = &src
			ms[i].UseDefault = false
			mapped++
			break
		}
	}
	return mapped
}

// SetSource 选择来源字段：清空手动值并关闭默认值
func (ms Mappings) SetSource(target, category, source string) error {
	m := ms.Find(target, category)
	if m == nil {
		return fmt.Errorf("unknown field %s/%s", category, target)
	}
	if source == "" {
		m.SourceField = nil
		return nil
	}
	src := source
	m.SourceField = &src
	m.UseDefault = false
	empty := ""
	m.ManualValue = &empty
	m.Template = nil
	return nil
}

// SetManual 设置手动值：非空时启用默认值并清空来源字段，空值关闭默认值
func (ms Mappings) SetManual(target, category, value string) error {
	m := ms.Find(target, category)
	if m == nil {
		return fmt.Errorf("unknown field %s/%s", category, target)
	}
	v := value
	m.ManualValue = &v
	if value == "" {
		m.UseDefault = false
		return nil
	}
	m.UseDefault = true
	m.SourceField = nil
	if !strings.HasPrefix(value, templatePrefix) {
		m.Template = nil
	}
	return nil
}

// Validate 检查必填字段是否都有来源、手动值或默认值
// 未映射的可选字段按分类计数，生成一条提示
func (ms Mappings) Validate() model.MappingValidation {
	missing := []string{}
	warnings := []string{}

	for _, def := range RequiredFields {
		m := ms.Find(def.Name, def.Category)
		if m == nil || (!hasSource(m) && !m.UseDefault && !hasManual(m)) {
			missing = append(missing, def.Label)
		}
	}

	unmapped := 0
	for _, def := range OptionalFields {
		m := ms.Find(def.Name, def.Category)
		if m == nil || (!hasSource(m) && !hasManual(m)) {
			unmapped++
		}
	}
	if unmapped > 0 {
		warnings = append(warnings, fmt.Sprintf("%d campos opcionais não foram mapeados", unmapped))
	}

	return model.MappingValidation{
		Valid:    len(missing) == 0,
		Missing:  missing,
		Warnings: warnings,
	}
}

func hasSource(m *model.FieldMapping) bool {
	return m.SourceField != nil && *m.SourceField != ""
}

func hasManual(m *model.FieldMapping) bool {
	return m.ManualValue != nil && *m.ManualValue != ""
}

// Preview 以首个单元预览映射值；无值时返回 "-"
func Preview(m model.FieldMapping, units []model.Unit) string {
	if m.UseDefault && m.ManualValue != nil && *m.ManualValue != "" {
		return *m.ManualValue
	}
	if !hasSource(&m) || len(units) == 0 {
		return "-"
	}
	v, ok := units[0].String(*m.SourceField)
	if !ok {
		return "-"
	}
	return v
}
