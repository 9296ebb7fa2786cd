package erp

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"hypnotools/internal/model"
)

// templatePrefix 手动值以此开头时按模板计算
const templatePrefix = "TEMPLATE:"

var (
	// ErrPatternNotDetected 示例不匹配任何内置模式
	ErrPatternNotDetected = errors.New("Não conseguimos detectar o padrão automaticamente. Escolha um padrão manualmente ou configure o regex.")
	// ErrTemplateNotTested 模板未测试成功时不能应用
	ErrTemplateNotTested = errors.New("template não testado com sucesso")

	whitespaceRe   = regexp.MustCompile(`\s`)
	leadingZerosRe = regexp.MustCompile(`^0+`)
)

// Pattern 内置模式
type Pattern struct {
	Name   string               `json:"nome"`
	Config model.TemplateConfig `json:"config"`
}

// Patterns 内置模式，DetectPattern 按此顺序尝试
var Patterns = []Pattern{
	{
		Name: "Quadra-Lote (ex: QD 31 LT 01)",
		Config: model.TemplateConfig{
			Pattern:                   `QD\s+(\d+)\s+LT\s+(\d+)`,
			UnityNumberTemplate:       "{1}{2}",
			UnityNumberCustomTemplate: "QD {1} LT {2}",
			FloorTemplate:             "{1}",
			StripSpaces:               true,
		},
	},
	{
		Name: "Quadra-Lote 2 (ex: QUADRA 01 LOTE 02)",
		Config: model.TemplateConfig{
			Pattern:                   `QUADRA\s+(\d+)\s+LOTE\s+(\d+)`,
			UnityNumberTemplate:       "{1}{2}",
			UnityNumberCustomTemplate: "QUADRA {1} LOTE {2}",
			FloorTemplate:             "{1}",
			StripSpaces:               true,
		},
	},
	{
		Name: "Apartamento Numérico (ex: 1501, 202)",
		Config: model.TemplateConfig{
			Pattern:                   `(\d{2,4})`,
			UnityNumberTemplate:       "{1}",
			UnityNumberCustomTemplate: "{1}",
			FloorTemplate:             "{1}",
			StripSpaces:               true,
		},
	},
	{
		Name: "Lote Simples (ex: LOTE 001)",
		Config: model.TemplateConfig{
			Pattern:                   `LOTE\s+(\d+)`,
			UnityNumberTemplate:       "{1}",
			UnityNumberCustomTemplate: "LOTE {1}",
			FloorTemplate:             "0",
			StripSpaces:               true,
			StripLeadingZeros:         true,
		},
	},
}

// templateFor 目标字段对应的模板
func templateFor(cfg model.TemplateConfig, target string) string {
	switch target {
	case FieldUnityNumber:
		return cfg.UnityNumberTemplate
	case FieldUnityNumberCustom:
		return cfg.UnityNumberCustomTemplate
	case FieldFloor:
		return cfg.FloorTemplate
	}
	return ""
}

// extract 执行正则，返回捕获组（不含整体匹配）
func extract(pattern, value string) ([]string, bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, false, err
	}
	m := re.FindStringSubmatch(value)
	if m == nil {
		return nil, false, nil
	}
	return m[1:], true, nil
}

// render 将 {n} 替换为第 n 个捕获组（每个只替换第一次出现），再做空格与前导零处理
func render(cfg model.TemplateConfig, tpl string, groups []string) string {
	out := tpl
	for i, g := range groups {
		out = strings.Replace(out, fmt.Sprintf("{%d}", i+1), g, 1)
	}
	if cfg.StripSpaces {
		out = whitespaceRe.ReplaceAllString(out, "")
	}
	if cfg.StripLeadingZeros {
		out = leadingZerosRe.ReplaceAllString(out, "")
		if out == "" {
			out = "0"
		}
	}
	return out
}

// ApplyTemplate 用模板从原始单元编号生成目标字段值
// 不匹配、模板为空或正则无效时返回 "0"
func ApplyTemplate(cfg model.TemplateConfig, value, target string) string {
	groups, ok, err := extract(cfg.Pattern, value)
	if err != nil || !ok {
		return "0"
	}
	tpl := templateFor(cfg, target)
	if tpl == "" {
		return "0"
	}
	return render(cfg, tpl, groups)
}

// DetectPattern 返回第一个能匹配示例的内置模式
func DetectPattern(sample string) (Pattern, error) {
	for _, p := range Patterns {
		re := regexp.MustCompile(p.Config.Pattern)
		if re.MatchString(sample) {
			return p, nil
		}
	}
	return Pattern{}, ErrPatternNotDetected
}

// TestTemplate 在本地对示例执行模板
func TestTemplate(cfg model.TemplateConfig, sample string) model.TemplateResult {
	res := model.TemplateResult{Original: sample, Groups: []string{}}
	if cfg.Pattern == "" || sample == "" {
		res.Error = "Informe o padrão de extração e um exemplo de unidade"
		return res
	}

	groups, ok, err := extract(cfg.Pattern, sample)
	if err != nil {
		res.Error = fmt.Sprintf("Regex inválido: %v", err)
		return res
	}
	if !ok {
		res.Error = "O exemplo não corresponde ao padrão de extração"
		return res
	}

	res.Success = true
	res.Groups = groups
	res.UnityNumber = ApplyTemplate(cfg, sample, FieldUnityNumber)
	res.UnityNumberCustom = ApplyTemplate(cfg, sample, FieldUnityNumberCustom)
	res.Floor = ApplyTemplate(cfg, sample, FieldFloor)
	return res
}

// FailedTemplateResult 远程测试失败时的结果
func FailedTemplateResult(sample string) model.TemplateResult {
	return model.TemplateResult{
		Original: sample,
		Error:    "Erro ao processar template",
		Groups:   []string{},
	}
}

// ApplyTemplateToAll 将模板写入 unity_number、unity_number_custom、floor 的手动值
// 仅在测试结果成功时生效
func (ms Mappings) ApplyTemplateToAll(cfg model.TemplateConfig, result *model.TemplateResult) error {
	if result == nil || !result.Success {
		return ErrTemplateNotTested
	}
	for _, target := range []string{FieldUnityNumber, FieldUnityNumberCustom, FieldFloor} {
		m := ms.first(target)
		if m == nil {
			continue
		}
		v := templatePrefix + templateFor(cfg, target)
		c := cfg
		m.ManualValue = &v
		m.UseDefault = true
		m.SourceField = nil
		m.Template = &c
	}
	return nil
}

// unitTemplateSource 模板的输入：codigoUnidade，否则 descricaoUnidade
func unitTemplateSource(u model.Unit) string {
	if v, ok := u.String("codigoUnidade"); ok && v != "" {
		return v
	}
	if v, ok := u.String("descricaoUnidade"); ok && v != "" {
		return v
	}
	return ""
}
