package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// serialRe 序列日只接受普通十进制数，排除 NaN、Inf 与十六进制浮点
var serialRe = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)

// excelEpochOffsetDays Excel 序列日 25569 = 1970-01-01
const excelEpochOffsetDays = 25569

// dateLayouts 字符串日期可接受的格式
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"02-01-2006",
	"02.01.2006",
}

// SerialToDate Excel 序列日转日期（UTC）
func SerialToDate(serial float64) time.Time {
	ms := math.Round((serial - excelEpochOffsetDays) * 86400 * 1000)
	return time.UnixMilli(int64(ms)).UTC()
}

// ParseDate 解析序列日或字符串日期
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if serialRe.MatchString(value) {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsInf(f, 0) {
			return time.Time{}, false
		}
		return SerialToDate(f), true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate 统一输出 YYYY-MM-DD，无法解析时返回空串
func FormatDate(value string) string {
	t, ok := ParseDate(value)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}

// IsValidDate 空值视为有效
func IsValidDate(value string) bool {
	if value == "" {
		return true
	}
	_, ok := ParseDate(value)
	return ok
}

// FormatCPF 11 位数字格式化为 XXX.XXX.XXX-XX
func FormatCPF(value string) (string, bool) {
	d := DigitsOnly(value)
	if len(d) != 11 {
		return "", false
	}
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11], true
}

var maritalStatuses = map[string]string{
	"solteiro":   "Solteiro",
	"solteira":   "Solteiro",
	"casado":     "Casado",
	"casada":     "Casado",
	"divorciado": "Divorciado",
	"divorciada": "Divorciado",
	"separado":   "Divorciado",
	"separada":   "Divorciado",
	"viuvo":      "Viuvo",
	"viuva":      "Viuvo",
}

// NormalizeMaritalStatus 婚姻状况同义词归一（忽略大小写、重音、阴阳性）
func NormalizeMaritalStatus(value string) (string, bool) {
	key := StripAccents(strings.ToLower(strings.TrimSpace(value)))
	v, ok := maritalStatuses[key]
	return v, ok
}
