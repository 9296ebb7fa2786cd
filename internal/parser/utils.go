package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	nonDigitRe     = regexp.MustCompile(`\D`)
	leadingIntRe   = regexp.MustCompile(`^[+-]?\d+`)
	leadingFloatRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`,
	"‘", `"`, "’", `"`,
	"–", "-", "—", "-",
)

// StripAccents 去除变音符号（NFD 分解后删除组合字符）
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeText 规范化文本：小写、去首尾空白、去重音、压缩空白、统一引号与破折号
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.TrimSpace(strings.ToLower(s))
	s = StripAccents(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return quoteReplacer.Replace(s)
}

// ContainsAny 检查字符串是否包含任意一个关键词
func ContainsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// DigitsOnly 只保留数字
func DigitsOnly(s string) string {
	return nonDigitRe.ReplaceAllString(s, "")
}

// ParseLeadingInt 解析字符串开头的整数（忽略前导空白与后续字符）
func ParseLeadingInt(s string) (int, bool) {
	m := leadingIntRe.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseLeadingDecimal 解析字符串开头的数值
func ParseLeadingDecimal(s string) (decimal.Decimal, bool) {
	m := leadingFloatRe.FindString(strings.TrimSpace(s))
	if m == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// IsBlank 是否为空白
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
