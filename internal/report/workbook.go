package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"hypnotools/internal/model"
)

// ErrorSheetName 错误报告工作簿中的 Sheet 名
const ErrorSheetName = "ERROS"

// ProgressEvent 报告生成进度
type ProgressEvent struct {
	Percent int
	Stage   string
}

func reportProgress(progress func(ProgressEvent), percent int, stage string) {
	if progress == nil {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	progress(ProgressEvent{
		Percent: percent,
		Stage:   stage,
	})
}

// BuildErrorWorkbook 生成与 CSV 同列的 xlsx 错误报告
func BuildErrorWorkbook(errs []model.ImportError, progress func(ProgressEvent)) (*excelize.File, error) {
	f := excelize.NewFile()
	reportProgress(progress, 0, "preparing")

	if err := f.SetSheetName("Sheet1", ErrorSheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet failed: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E0E0E0"}},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create header style failed: %w", err)
	}

	header := make([]interface{}, len(csvHeaders))
	for i, h := range csvHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(ErrorSheetName, "A1", &header); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.SetCellStyle(ErrorSheetName, "A1", "E1", headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}

	for i, e := range errs {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{e.Row, ErrorType(e), e.Field, e.Message, ErrorDetails(e)}
		if err := f.SetSheetRow(ErrorSheetName, cell, &row); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write row %d failed: %w", i+2, err)
		}
		if len(errs) > 0 && (i+1)%500 == 0 {
			reportProgress(progress, (i+1)*100/len(errs), "writing")
		}
	}

	widths := map[string]float64{"A": 8, "B": 14, "C": 12, "D": 80, "E": 50}
	for col, w := range widths {
		if err := f.SetColWidth(ErrorSheetName, col, col, w); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	reportProgress(progress, 100, "done")
	return f, nil
}
