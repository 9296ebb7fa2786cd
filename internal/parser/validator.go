package parser

import (
	"fmt"
	"regexp"
	"strings"

	"hypnotools/internal/model"
)

// emailRe \s 只匹配 ASCII 空白，另排除 \v、Unicode 空格（NBSP 等）与 BOM
var emailRe = regexp.MustCompile(`^[^\s\v\p{Z}\x{FEFF}@]+@[^\s\v\p{Z}\x{FEFF}@]+\.[^\s\v\p{Z}\x{FEFF}@]+$`)

// numericTextFields 以文本保存、需要校验为数值的字段
var numericTextFields = []string{
	"conjuge_renda_mensal",
	"renda_familiar",
	"valor_de_imovel",
	"valor_ate_imovel",
	"dormitorio_de",
	"dormitorio_ate",
}

// IsValidEmail 邮箱格式校验
func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// ValidateClient 校验客户记录，收集全部错误（不提前返回）
// 婚姻状况与 CPF 通过校验时会被就地规范化
func ValidateClient(c *model.ClientRecord) []string {
	var errs []string

	if strings.TrimSpace(c.Nome) == "" {
		errs = append(errs, "Nome é obrigatório")
	}

	if strings.TrimSpace(c.Email) == "" {
		errs = append(errs, "Email é obrigatório")
	} else if !IsValidEmail(c.Email) {
		errs = append(errs, fmt.Sprintf("Email inválido: %q", c.Email))
	}

	if c.Email2 != "" && !IsValidEmail(c.Email2) {
		errs = append(errs, "Email2 inválido")
	}
	if c.Email3 != "" && !IsValidEmail(c.Email3) {
		errs = append(errs, "Email3 inválido")
	}

	if c.EstadoCivil != "" {
		if v, ok := NormalizeMaritalStatus(c.EstadoCivil); ok {
			c.EstadoCivil = v
		} else {
			errs = append(errs, fmt.Sprintf("Estado Civil inválido: %q (deve ser: Solteiro, Casado, Divorciado ou Viúvo)", c.EstadoCivil))
		}
	}
	if c.ConjugeEstadoCivil != "" {
		if v, ok := NormalizeMaritalStatus(c.ConjugeEstadoCivil); ok {
			c.ConjugeEstadoCivil = v
		} else {
			errs = append(errs, fmt.Sprintf("Estado Civil do Cônjuge inválido: %q (deve ser: Solteiro, Casado, Divorciado ou Viúvo)", c.ConjugeEstadoCivil))
		}
	}

	if c.CPF != "" {
		if v, ok := FormatCPF(c.CPF); ok {
			c.CPF = v
		} else {
			errs = append(errs, fmt.Sprintf("CPF inválido: %q (deve ter 11 dígitos)", c.CPF))
		}
	}
	if c.ConjugeCPF != "" {
		if v, ok := FormatCPF(c.ConjugeCPF); ok {
			c.ConjugeCPF = v
		} else {
			errs = append(errs, fmt.Sprintf("CPF do Cônjuge inválido: %q (deve ter 11 dígitos)", c.ConjugeCPF))
		}
	}

	for _, field := range numericTextFields {
		v := c.Value(field)
		if v == "" {
			continue
		}
		if _, ok := ParseLeadingDecimal(v); !ok {
			errs = append(errs, fmt.Sprintf("%s deve ser um valor numérico", field))
		}
	}

	if !IsValidDate(c.DataNascimento) {
		errs = append(errs, "Data de nascimento deve ter formato válido (YYYY-MM-DD)")
	}
	if !IsValidDate(c.ConjugeDtNascimento) {
		errs = append(errs, "Data de nascimento do cônjuge deve ter formato válido (YYYY-MM-DD)")
	}

	return errs
}
