package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"hypnotools/internal/model"
)

// supportedExtensions 可读取的工作簿扩展名
var supportedExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xltx": true,
	".xltm": true,
}

// IsSupportedWorkbook 根据扩展名判断是否可解析
func IsSupportedWorkbook(filename string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ClientParser 客户工作簿解析器
type ClientParser struct {
	file   *excelize.File
	mapper *ColumnMapper
	opts   ParseOptions
	logger *zap.Logger
}

// NewClientParser 创建客户工作簿解析器
func NewClientParser(file *excelize.File, opts ParseOptions, logger *zap.Logger) *ClientParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientParser{
		file:   file,
		mapper: NewColumnMapper(),
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

// ParseClientFile 打开并解析客户工作簿
func ParseClientFile(path string, opts ParseOptions, logger *zap.Logger) (*ParseResult, error) {
	if !IsSupportedWorkbook(path) {
		return nil, ErrUnsupportedFormat
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	result, err := NewClientParser(f, opts, logger).Parse()
	if err != nil {
		return nil, err
	}
	result.Filename = filepath.Base(path)
	return result, nil
}

// ParseClientReader 从流解析客户工作簿
func ParseClientReader(r io.Reader, filename string, opts ParseOptions, logger *zap.Logger) (*ParseResult, error) {
	if !IsSupportedWorkbook(filename) {
		return nil, ErrUnsupportedFormat
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	result, err := NewClientParser(f, opts, logger).Parse()
	if err != nil {
		return nil, err
	}
	result.Filename = filepath.Base(filename)
	return result, nil
}

// Parse 读取参考表与 CLIENTES，返回有效记录与逐行错误
func (p *ClientParser) Parse() (*ParseResult, error) {
	if !hasSheet(p.file, ClientsSheet) {
		return nil, ErrSheetNotFound
	}

	refs := ExtractAllReferences(p.file, p.logger)
	p.logger.Info("references loaded",
		zap.Int("sub_momentos", len(refs.SubMomentos)),
		zap.Int("momentos", len(refs.Momentos)),
		zap.Int("midias", len(refs.Midias)),
		zap.Int("canais", len(refs.Canais)),
		zap.Int("produtos", len(refs.Produtos)),
		zap.Int("usuarios", len(refs.Usuarios)),
	)

	rows, err := p.readRows()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, ErrEmptySheet
	}

	headers := rows[0]
	mapping := p.mapper.Map(headers)
	p.logger.Debug("column mapping", zap.Any("mapping", mapping))

	result := &ParseResult{
		Headers:    headers,
		Mapping:    mapping,
		References: refs,
		Records:    make([]*model.ClientRecord, 0, len(rows)-1),
		Errors:     []model.ImportError{},
	}
	p.scanRows(result, rows)

	p.logger.Info("client sheet parsed",
		zap.Int("rows", result.TotalRows),
		zap.Int("valid", result.ValidRows),
		zap.Int("invalid", len(result.Errors)),
		zap.Bool("stopped_early", result.StoppedEarly),
	)
	return result, nil
}

// readRows 流式读取，最多读取表头 + MaxRows 行
func (p *ClientParser) readRows() ([][]string, error) {
	it, err := p.file.Rows(ClientsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	defer it.Close()

	limit := p.opts.MaxRows + 1
	var rows [][]string
	for it.Next() {
		if len(rows) >= limit {
			p.logger.Warn("row limit reached", zap.Int("max_rows", p.opts.MaxRows))
			break
		}
		row, err := it.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (p *ClientParser) scanRows(result *ParseResult, rows [][]string) {
	rm := NewRowMapper(result.References, p.logger).WithHeaders(result.Headers)

	emptyRun := 0
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		rowNumber := i + 1

		if isEmptyRow(row) {
			emptyRun++
			result.EmptyRows++
			if emptyRun >= p.opts.EmptyRowLimit {
				result.StoppedEarly = true
				p.logger.Info("stopping at consecutive empty rows",
					zap.Int("row", rowNumber),
					zap.Int("empty_rows", emptyRun),
				)
				break
			}
			continue
		}
		emptyRun = 0
		result.TotalRows++

		rec, errs := rm.MapRow(row, result.Mapping, rowNumber)
		if len(errs) > 0 {
			result.Errors = append(result.Errors, model.ImportError{
				Row:     rowNumber,
				Field:   model.ErrorFieldValidation,
				Message: strings.Join(errs, "; "),
			})
			continue
		}
		result.Records = append(result.Records, rec)
	}
	result.ValidRows = len(result.Records)
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if !IsBlank(cell) {
			return false
		}
	}
	return true
}
