package model

import "math"

// 错误来源字段
const (
	ErrorFieldRow        = "linha"
	ErrorFieldValidation = "validação"
	ErrorFieldAPI        = "api"
)

// ImportError 导入错误（解析阶段与发送阶段共用）
type ImportError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ImportResult 批量导入结果
type ImportResult struct {
	Success        bool          `json:"success"`
	ProcessedCount int           `json:"processedCount"`
	ErrorCount     int           `json:"errorCount"`
	Errors         []ImportError `json:"errors"`
}

// Progress 进度状态
type Progress struct {
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Operation  string  `json:"operation"`
}

// NewProgress 计算百分比（四舍五入到整数）
func NewProgress(current, total int, operation string) Progress {
	pct := 0.0
	if total > 0 {
		pct = math.Round(float64(current) / float64(total) * 100)
	}
	return Progress{
		Current:    current,
		Total:      total,
		Percentage: pct,
		Operation:  operation,
	}
}

// ReferenceEntry 参考表条目
type ReferenceEntry struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	RawValue string `json:"rawValue"`
}

// References 各参考表条目
type References struct {
	SubMomentos       []ReferenceEntry `json:"subMomentos"`
	Momentos          []ReferenceEntry `json:"momentos"`
	MotivosNaoCliente []ReferenceEntry `json:"motivosNaoCliente"`
	Midias            []ReferenceEntry `json:"midias"`
	Canais            []ReferenceEntry `json:"canais"`
	Produtos          []ReferenceEntry `json:"produtos"`
	Usuarios          []ReferenceEntry `json:"usuarios"`
}

// ImportRun 导入历史记录
type ImportRun struct {
	ID             int64  `json:"id"`
	RunID          string `json:"runId"`
	Filename       string `json:"filename"`
	Empresa        string `json:"empresa"`
	Status         string `json:"status"`
	TotalRows      int    `json:"totalRows"`
	ValidRows      int    `json:"validRows"`
	ProcessedCount int    `json:"processedCount"`
	ErrorCount     int    `json:"errorCount"`
	ReportPath     string `json:"reportPath,omitempty"`
	LogPath        string `json:"logPath,omitempty"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
	CreatedAt      string `json:"createdAt"`
	CompletedAt    string `json:"completedAt,omitempty"`
}
