// Package deletion 客户批量删除流程：ID 解析、删除前校验、执行与记录
package deletion

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"hypnotools/internal/parser"
)

// MaxIDs 单次删除的最大客户数
const MaxIDs = 1000

var (
	// ErrIDsRequired 未输入任何内容
	ErrIDsRequired = errors.New("Informe pelo menos um ID de cliente")
	// ErrNoIDs 输入中没有有效 ID
	ErrNoIDs = errors.New("Nenhum ID válido encontrado")
	// ErrTooManyIDs 超过上限
	ErrTooManyIDs = fmt.Errorf("Máximo de %d IDs por exclusão", MaxIDs)
	// ErrUnsupportedFormat 非 Excel 文件
	ErrUnsupportedFormat = errors.New("Arquivo deve ser Excel (.xlsx, .xlsm)")
	// ErrNoIDsInFile 文件中没有有效 ID
	ErrNoIDsInFile = errors.New("Nenhum ID válido encontrado no arquivo")
)

var idSeparatorRe = regexp.MustCompile(`[,\n\r\s]+`)

// idSheets 优先读取的工作表
var idSheets = []string{"IDS", "CLIENTES"}

// idSet 保序去重
type idSet struct {
	seen map[int]struct{}
	ids  []int
}

func (s *idSet) add(v string) {
	id, ok := parser.ParseLeadingInt(v)
	if !ok || id <= 0 {
		return
	}
	if s.seen == nil {
		s.seen = make(map[int]struct{})
	}
	if _, dup := s.seen[id]; dup {
		return
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
}

// ParseIDsFromText 按逗号、换行、空白拆分，保留正整数并保序去重
func ParseIDsFromText(text string) ([]int, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrIDsRequired
	}
	var set idSet
	for _, part := range idSeparatorRe.Split(text, -1) {
		if p := strings.TrimSpace(part); p != "" {
			set.add(p)
		}
	}
	if len(set.ids) == 0 {
		return nil, ErrNoIDs
	}
	if len(set.ids) > MaxIDs {
		return set.ids, ErrTooManyIDs
	}
	return set.ids, nil
}

// IsSupportedFile excelize 能读取的工作簿格式
func IsSupportedFile(filename string) bool {
	return parser.IsSupportedWorkbook(filename)
}

// ParseIDsFromWorkbook 从工作簿读取 ID
func ParseIDsFromWorkbook(path string) ([]int, error) {
	if !IsSupportedFile(path) {
		return nil, ErrUnsupportedFormat
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("Erro ao processar arquivo Excel: %w", err)
	}
	defer f.Close()
	return idsFromFile(f)
}

// ParseIDsFromReader 从上传内容读取 ID
func ParseIDsFromReader(r io.Reader, filename string) ([]int, error) {
	if !IsSupportedFile(filename) {
		return nil, ErrUnsupportedFormat
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("Erro ao processar arquivo Excel: %w", err)
	}
	defer f.Close()
	return idsFromFile(f)
}

// idsFromFile 读取 IDS，否则 CLIENTES，否则第一个工作表；扫描所有单元格
func idsFromFile(f *excelize.File) ([]int, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoIDsInFile
	}
	sheet := sheets[0]
	for _, name := range idSheets {
		if idx, err := f.GetSheetIndex(name); err == nil && idx >= 0 {
			sheet = name
			break
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("Erro ao processar arquivo Excel: %w", err)
	}

	var set idSet
	for _, row := range rows {
		for _, cell := range row {
			if c := strings.TrimSpace(cell); c != "" {
				set.add(c)
			}
		}
	}
	if len(set.ids) == 0 {
		return nil, ErrNoIDsInFile
	}
	return set.ids, nil
}

// FormatIDs 以 ", " 连接，用于回显
func FormatIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}
