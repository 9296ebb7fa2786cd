package parser

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"hypnotools/internal/model"
)

// referenceField 需要经参考表解析为 ID 的字段
type referenceField struct {
	idField string
	entries func(model.References) []model.ReferenceEntry
}

var referenceFields = map[string]referenceField{
	"canal_origem": {"id_canal_origem", func(r model.References) []model.ReferenceEntry { return r.Canais }},
	"midia_origem": {"id_midia", func(r model.References) []model.ReferenceEntry { return r.Midias }},
	"momento":      {"id_momento", func(r model.References) []model.ReferenceEntry { return r.Momentos }},
	"submomento":   {"id_submomento", func(r model.References) []model.ReferenceEntry { return r.SubMomentos }},
	"produto":      {"id_produto", func(r model.References) []model.ReferenceEntry { return r.Produtos }},
	"usuario":      {"id_usuario", func(r model.References) []model.ReferenceEntry { return r.Usuarios }},
}

// RowMapper 将一行单元格转换为客户记录
type RowMapper struct {
	refs    model.References
	headers []string // 原始表头，用于收集未映射列
	logger  *zap.Logger
	now     func() time.Time
}

// NewRowMapper 创建行映射器
func NewRowMapper(refs model.References, logger *zap.Logger) *RowMapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RowMapper{
		refs:   refs,
		logger: logger,
		now:    time.Now,
	}
}

// WithHeaders 设置原始表头，未映射列将写入 Extra
func (m *RowMapper) WithHeaders(headers []string) *RowMapper {
	m.headers = headers
	return m
}

// MapRow 映射并校验单行；校验失败时返回 nil 记录与错误列表
func (m *RowMapper) MapRow(row []string, mapping ColumnMapping, rowNumber int) (*model.ClientRecord, []string) {
	rec := &model.ClientRecord{}

	// 按列序处理，同一字段出现多列时后者覆盖前者
	for _, colIdx := range mapping.Indices() {
		field := mapping[colIdx]
		value := cellAt(row, colIdx)
		if value == "" {
			continue
		}
		m.setField(rec, field, value, rowNumber)
	}
	m.mapExtras(rec, row, mapping)

	if errs := ValidateClient(rec); len(errs) > 0 {
		return nil, errs
	}

	if rec.IDClienteLegado == "" {
		rec.IDClienteLegado = fmt.Sprintf("import_%d_%d", rowNumber, m.now().UnixMilli())
	}
	rec.Excluido = "0"

	return rec, nil
}

// mapExtras 记录未被映射的列，键为规范化表头（空格替换为下划线）
func (m *RowMapper) mapExtras(rec *model.ClientRecord, row []string, mapping ColumnMapping) {
	for idx, header := range m.headers {
		if _, mapped := mapping[idx]; mapped {
			continue
		}
		key := strings.ReplaceAll(NormalizeText(header), " ", "_")
		value := cellAt(row, idx)
		if key == "" || value == "" {
			continue
		}
		rec.SetExtra(key, value)
	}
}

func (m *RowMapper) setField(rec *model.ClientRecord, field, value string, rowNumber int) {
	if rf, ok := referenceFields[field]; ok {
		entries := rf.entries(m.refs)
		if e, found := FindReference(entries, value); found {
			rec.SetID(rf.idField, model.IntPtr(e.ID))
			return
		}
		m.logger.Debug("reference not found",
			zap.Int("row", rowNumber),
			zap.String("field", field),
			zap.String("value", value),
			zap.Strings("suggestions", SuggestReferences(entries, value)),
		)
		return
	}

	switch field {
	case "temperatura", "objetivo":
		if v, ok := ParseLeadingInt(value); ok {
			rec.SetID("id_"+field, model.IntPtr(v))
		}
	case "renda_mensal", "fgts", "qtd_dependentes", "valor_entrada":
		v, _ := ParseLeadingInt(value)
		rec.SetInt(field, v)
	case "data_nascimento", "conjuge_dt_nascimento":
		rec.SetText(field, FormatDate(value))
	default:
		if !rec.SetText(field, value) {
			rec.SetExtra(field, value)
		}
	}
}
