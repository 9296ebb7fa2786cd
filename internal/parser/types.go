package parser

import (
	"errors"
	"sort"

	"hypnotools/internal/model"
)

// 客户工作簿相关常量
const (
	ClientsSheet          = "CLIENTES"
	DefaultMaxRows        = 100000
	DefaultEmptyRowLimit  = 50
	SheetSubMomento       = "SUB MOMENTO"
	SheetMomento          = "MOMENTO"
	SheetMotivoNaoCliente = "MOTIVO DE NÃO CLIENTE"
	SheetMidiasOrigem     = "MÍDIAS DE ORIGEM"
	SheetCanaisOrigem     = "CANAIS DE ORIGEM"
	SheetProduto          = "PRODUTO"
	SheetUsuario          = "USUARIO"
)

// 致命解析错误
var (
	ErrUnsupportedFormat = errors.New("Formato de arquivo não suportado")
	ErrSheetNotFound     = errors.New("Aba CLIENTES não encontrada")
	ErrEmptySheet        = errors.New("Planilha de clientes está vazia")
)

// ColumnMapping 列索引 -> 语义字段
type ColumnMapping map[int]string

// Indices 升序列索引
func (m ColumnMapping) Indices() []int {
	out := make([]int, 0, len(m))
	for idx := range m {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Fields 已识别字段 -> 列索引（同名字段取最后一列）
func (m ColumnMapping) Fields() map[string]int {
	out := make(map[string]int, len(m))
	for _, idx := range m.Indices() {
		out[m[idx]] = idx
	}
	return out
}

// ParseOptions 解析选项
type ParseOptions struct {
	MaxRows       int // 最多读取的数据行
	EmptyRowLimit int // 连续空行达到该值即停止
}

func (o ParseOptions) withDefaults() ParseOptions {
	if o.MaxRows <= 0 {
		o.MaxRows = DefaultMaxRows
	}
	if o.EmptyRowLimit <= 0 {
		o.EmptyRowLimit = DefaultEmptyRowLimit
	}
	return o
}

// ParseResult 客户工作簿解析结果
type ParseResult struct {
	Filename     string                `json:"filename"`
	Headers      []string              `json:"headers"`
	Mapping      ColumnMapping         `json:"mapping"`
	References   model.References      `json:"references"`
	Records      []*model.ClientRecord `json:"-"`
	Errors       []model.ImportError   `json:"errors"`
	TotalRows    int                   `json:"totalRows"`    // 扫描到的数据行（不含表头）
	EmptyRows    int                   `json:"emptyRows"`    // 跳过的空行
	ValidRows    int                   `json:"validRows"`    // 通过校验的行
	StoppedEarly bool                  `json:"stoppedEarly"` // 因连续空行提前结束
}
