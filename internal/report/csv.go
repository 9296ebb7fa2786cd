package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"hypnotools/internal/model"
)

// ErrorReportFilename 错误报告默认文件名
const ErrorReportFilename = "relatorio_erros_importacao.csv"

const utf8BOM = "\uFEFF"

var csvHeaders = []string{"Linha", "Tipo", "Campo", "Mensagem", "Detalhes"}

// ErrorType 错误类别（Linha Vazia / Validação / Erro API / Desconhecido）
func ErrorType(e model.ImportError) string {
	switch e.Field {
	case model.ErrorFieldRow:
		return "Linha Vazia"
	case model.ErrorFieldValidation:
		return "Validação"
	case model.ErrorFieldAPI:
		return "Erro API"
	default:
		return "Desconhecido"
	}
}

// ErrorDetails 面向用户的补充说明
func ErrorDetails(e model.ImportError) string {
	switch e.Field {
	case model.ErrorFieldRow:
		return "Linha sem dados ou com todas as colunas vazias"
	case model.ErrorFieldValidation:
		return validationDetails(e.Message)
	case model.ErrorFieldAPI:
		return "Erro ao enviar para a API (verifique logs)"
	default:
		return ""
	}
}

// validationDetails 按消息关键字给出提示，命中第一条规则即返回
func validationDetails(msg string) string {
	has := func(s string) bool { return strings.Contains(msg, s) }

	switch {
	case has("Email") && has("obrigatório"):
		return "Campo de email está vazio"
	case has("Email") && has("inválido"):
		return "Email não possui formato válido (falta @, domínio inválido, etc)"
	case has("Nome") && has("obrigatório"):
		return "Campo de nome está vazio"
	case has("CPF") && has("formato"):
		return "CPF informado não possui formato 000.000.000-00"
	case has("Estado Civil"):
		return "Estado Civil deve ser: Solteiro, Casado, Divorciado ou Viuvo"
	case has("numérico"):
		return "Campo numérico contém valor não-numérico"
	case has("data"):
		return "Data informada possui formato inválido"
	default:
		return "Verifique os dados da linha na planilha original"
	}
}

// WriteErrorCSV 写出 UTF-8 BOM + 全字段加引号的 CSV，行间以 \n 分隔
func WriteErrorCSV(w io.Writer, errs []model.ImportError) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(utf8BOM); err != nil {
		return err
	}
	if err := writeQuotedRow(bw, csvHeaders); err != nil {
		return err
	}
	for _, e := range errs {
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
		row := []string{strconv.Itoa(e.Row), ErrorType(e), e.Field, e.Message, ErrorDetails(e)}
		if err := writeQuotedRow(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteErrorCSVFile 在 dir 下写出错误报告，返回文件路径
func WriteErrorCSVFile(dir, name string, errs []model.ImportError) (string, error) {
	if name == "" {
		name = ErrorReportFilename
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report dir: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report: %w", err)
	}
	defer f.Close()

	if err := WriteErrorCSV(f, errs); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

func writeQuotedRow(w *bufio.Writer, fields []string) error {
	for i, field := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(`"` + strings.ReplaceAll(field, `"`, `""`) + `"`); err != nil {
			return err
		}
	}
	return nil
}
