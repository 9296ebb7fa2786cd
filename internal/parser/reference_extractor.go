package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"hypnotools/internal/model"
)

// ExtractReferences 读取参考表（跳过表头）
// 缺少该 Sheet 时返回空切片
func ExtractReferences(f *excelize.File, sheetName string) []model.ReferenceEntry {
	return extractReferences(f, sheetName, zap.NewNop())
}

func extractReferences(f *excelize.File, sheetName string, logger *zap.Logger) []model.ReferenceEntry {
	if f == nil || !hasSheet(f, sheetName) {
		return []model.ReferenceEntry{}
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return []model.ReferenceEntry{}
	}

	return referencesFromRows(sheetName, rows, logger)
}

// referencesFromRows 将原始行转换为参考条目
// ID 不是整数的行被跳过，并记录 debug 日志
func referencesFromRows(sheetName string, rows [][]string, logger *zap.Logger) []model.ReferenceEntry {
	entries := make([]model.ReferenceEntry, 0, len(rows))

	// SUB MOMENTO 的名称在第 3 列，其余表在第 2 列
	nameCol := 1
	if sheetName == SheetSubMomento {
		nameCol = 2
	}

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) < 2 {
			continue
		}

		id, ok := parseReferenceID(cellAt(row, 0))
		if !ok {
			logger.Debug("reference row skipped: id is not an integer",
				zap.String("sheet", sheetName),
				zap.Int("row", i+1),
				zap.String("id", cellAt(row, 0)),
				zap.String("name", cellAt(row, nameCol)),
			)
			continue
		}

		raw := cellAt(row, 3)
		if raw == "" {
			raw = cellAt(row, 2)
		}

		entries = append(entries, model.ReferenceEntry{
			ID:       id,
			Name:     cellAt(row, nameCol),
			RawValue: raw,
		})
	}

	return entries
}

// ExtractAllReferences 读取全部已知参考表；logger 为 nil 时不记录跳过的行
func ExtractAllReferences(f *excelize.File, logger *zap.Logger) model.References {
	if logger == nil {
		logger = zap.NewNop()
	}
	return model.References{
		SubMomentos:       extractReferences(f, SheetSubMomento, logger),
		Momentos:          extractReferences(f, SheetMomento, logger),
		MotivosNaoCliente: extractReferences(f, SheetMotivoNaoCliente, logger),
		Midias:            extractReferences(f, SheetMidiasOrigem, logger),
		Canais:            extractReferences(f, SheetCanaisOrigem, logger),
		Produtos:          extractReferences(f, SheetProduto, logger),
		Usuarios:          extractReferences(f, SheetUsuario, logger),
	}
}

// FindReference 按规范化名称精确查找，先匹配者优先
func FindReference(entries []model.ReferenceEntry, value string) (model.ReferenceEntry, bool) {
	want := NormalizeText(value)
	if want == "" {
		return model.ReferenceEntry{}, false
	}
	for _, e := range entries {
		if NormalizeText(e.Name) == want {
			return e, true
		}
	}
	return model.ReferenceEntry{}, false
}

// SuggestReferences 返回前 5 个字符相互包含的候选名称（仅用于诊断日志）
func SuggestReferences(entries []model.ReferenceEntry, value string) []string {
	want := NormalizeText(value)
	prefix := firstRunes(want, 5)

	var out []string
	for _, e := range entries {
		name := NormalizeText(e.Name)
		if strings.Contains(name, prefix) || strings.Contains(want, firstRunes(name, 5)) {
			out = append(out, e.Name)
		}
	}
	return out
}

func parseReferenceID(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	// 数值单元格可能以 "12.0" 形式出现
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) {
		return int(f), true
	}
	return 0, false
}

func hasSheet(f *excelize.File, name string) bool {
	idx, err := f.GetSheetIndex(name)
	return err == nil && idx >= 0
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
