package erp

import (
	"sort"
	"strconv"
	"strings"

	"hypnotools/internal/model"
)

// 目标系统单元状态
const (
	StatusDisponivel   = "1"
	StatusVendido      = "2"
	StatusReservado    = "3"
	StatusIndisponivel = "4"
)

var statusAliases = map[string]string{
	"disponivel":   StatusDisponivel,
	"disponível":   StatusDisponivel,
	"available":    StatusDisponivel,
	"livre":        StatusDisponivel,
	"vendido":      StatusVendido,
	"vendida":      StatusVendido,
	"sold":         StatusVendido,
	"reservado":    StatusReservado,
	"reservada":    StatusReservado,
	"reserved":     StatusReservado,
	"indisponivel": StatusIndisponivel,
	"indisponível": StatusIndisponivel,
	"bloqueado":    StatusIndisponivel,
	"bloqueada":    StatusIndisponivel,
}

// MapStatus ERP 状态文本 -> 目标状态 ID，未知时为可售
func MapStatus(s string) string {
	if id, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return id
	}
	return StatusDisponivel
}

// ExtractUniqueStatuses 单元中出现过的 ERP 状态（去空白、排序），初始映射为 1
func ExtractUniqueStatuses(units []model.Unit) []model.StatusMapping {
	seen := make(map[string]struct{})
	for _, u := range units {
		s, ok := u.String("status")
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		seen[s] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for s := range seen {
		names = append(names, s)
	}
	sort.Strings(names)

	out := make([]model.StatusMapping, 0, len(names))
	for _, s := range names {
		out = append(out, model.StatusMapping{StatusERP: s, StatusTRSID: 1})
	}
	return out
}

// statusOverride 按状态映射表覆盖；未命中返回 ""
func statusOverride(mappings []model.StatusMapping, erpStatus string) string {
	if len(mappings) == 0 || erpStatus == "" {
		return ""
	}
	for _, m := range mappings {
		if m.StatusERP == erpStatus {
			return strconv.Itoa(m.StatusTRSID)
		}
	}
	return ""
}
