package deletion

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"hypnotools/internal/model"
	"hypnotools/internal/store"
	"hypnotools/internal/validation"
)

func TestParseIDsFromText(t *testing.T) {
	t.Parallel()

	ids, err := ParseIDsFromText("10, 20\n30\r\n 20 abc -5 0 40x 7.9")
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30, 40, 7}, ids)

	_, err = ParseIDsFromText("   ")
	assert.ErrorIs(t, err, ErrIDsRequired)

	_, err = ParseIDsFromText("abc, -1, 0")
	assert.ErrorIs(t, err, ErrNoIDs)

	var sb strings.Builder
	for i := 1; i <= MaxIDs+1; i++ {
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString(",")
	}
	ids, err = ParseIDsFromText(sb.String())
	assert.ErrorIs(t, err, ErrTooManyIDs)
	assert.Len(t, ids, MaxIDs+1)
}

func TestFormatIDs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1, 22, 333", FormatIDs([]int{1, 22, 333}))
	assert.Equal(t, "", FormatIDs(nil))
}

func writeWorkbook(t *testing.T, sheets map[string][][]interface{}, order []string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseIDsFromReader_PrefersIDSSheet(t *testing.T) {
	t.Parallel()

	buf := writeWorkbook(t, map[string][][]interface{}{
		"Resumo":   {{"999"}},
		"CLIENTES": {{"888"}},
		"IDS":      {{"ID", "Obs"}, {101, "x"}, {"102", 101}, {nil, "103"}},
	}, []string{"Resumo", "CLIENTES", "IDS"})

	ids, err := ParseIDsFromReader(buf, "ids.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []int{101, 102, 103}, ids)
}

func TestParseIDsFromReader_FallbackSheets(t *testing.T) {
	t.Parallel()

	buf := writeWorkbook(t, map[string][][]interface{}{
		"Resumo":   {{"999"}},
		"CLIENTES": {{"Id"}, {5}, {6}},
	}, []string{"Resumo", "CLIENTES"})
	ids, err := ParseIDsFromReader(buf, "c.xlsm")
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6}, ids)

	buf = writeWorkbook(t, map[string][][]interface{}{
		"Planilha": {{"7", "8"}, {"texto"}},
	}, []string{"Planilha"})
	ids, err = ParseIDsFromReader(buf, "p.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []int{7, 8}, ids)

	buf = writeWorkbook(t, map[string][][]interface{}{
		"Planilha": {{"sem ids"}},
	}, []string{"Planilha"})
	_, err = ParseIDsFromReader(buf, "p.xlsx")
	assert.ErrorIs(t, err, ErrNoIDsInFile)

	_, err = ParseIDsFromReader(strings.NewReader(""), "antigo.xls")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseIDsFromWorkbook(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 42))
	path := filepath.Join(t.TempDir(), "ids.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	ids, err := ParseIDsFromWorkbook(path)
	require.NoError(t, err)
	assert.Equal(t, []int{42}, ids)
}

type fakeBackend struct {
	validation *model.DeletionValidation
	stats      []model.AffectedTableStat
	statsErr   error
	resp       *model.DeletionResponse
	deleteErr  error
	deleted    []int
}

func (f *fakeBackend) ValidateForDeletion(context.Context, []int) (*model.DeletionValidation, error) {
	return f.validation, nil
}

func (f *fakeBackend) AffectedTablesStats(context.Context, []int) ([]model.AffectedTableStat, error) {
	return f.stats, f.statsErr
}

func (f *fakeBackend) BulkDelete(_ context.Context, req model.DeletionRequest) (*model.DeletionResponse, error) {
	f.deleted = req.ClientIDs
	return f.resp, f.deleteErr
}

func (f *fakeBackend) DeletionLogs(context.Context) ([]string, error) {
	return []string{"deletion_1.log"}, nil
}

func (f *fakeBackend) DownloadDeletionLog(context.Context, string) ([]byte, string, error) {
	return []byte("log"), "text/plain", nil
}

type memRunStore struct {
	runs []store.DeletionRun
}

func (m *memRunStore) InsertDeletionRun(run *store.DeletionRun) (int64, error) {
	m.runs = append(m.runs, *run)
	return int64(len(m.runs)), nil
}

func validRequest(ids ...int) model.DeletionRequest {
	return model.DeletionRequest{
		ClientIDs:       ids,
		Reason:          "Clientes duplicados na base",
		UserEmail:       gofakeit.Email(),
		ConfirmDeletion: true,
	}
}

func TestPipeline_Run(t *testing.T) {
	t.Parallel()

	be := &fakeBackend{
		validation: &model.DeletionValidation{ValidIDs: []int{1, 2}, InvalidIDs: []int{3}},
		stats: []model.AffectedTableStat{
			{TableName: "clientes", RecordCount: 2},
			{TableName: "tarefas", RecordCount: 0},
			{TableName: "interacoes", RecordCount: 5},
		},
		resp: &model.DeletionResponse{Success: true, DeletedCount: 2, LogFileName: "deletion_x.log"},
	}
	st := &memRunStore{}
	p := NewPipeline(be, nil).WithStore(st)

	var steps []float64
	res, err := p.Run(context.Background(), validRequest(1, 2, 3), func(pr model.Progress) {
		steps = append(steps, pr.Percentage)
	})
	require.NoError(t, err)

	assert.Equal(t, []float64{10, 30, 70, 100}, steps)
	assert.Equal(t, []int{1, 2}, be.deleted, "only valid ids are deleted")
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "2 clientes excluídos com sucesso!", res.Message)
	assert.Equal(t, 7, res.Preview.TotalRecords)
	assert.Len(t, res.Preview.AffectedTables, 2)

	require.Len(t, st.runs, 1)
	run := st.runs[0]
	assert.Equal(t, res.RunID, run.RunID)
	assert.Equal(t, []int{1, 2, 3}, run.RequestedIDs)
	assert.Equal(t, 2, run.ValidCount)
	assert.Equal(t, 1, run.InvalidCount)
	assert.Equal(t, "deletion_x.log", run.LogFileName)
}

func TestPipeline_RunPartialAndErrors(t *testing.T) {
	t.Parallel()

	be := &fakeBackend{
		validation: &model.DeletionValidation{ValidIDs: []int{1}},
		statsErr:   errors.New("stats down"),
		resp:       &model.DeletionResponse{Success: false, DeletedCount: 0, FailedCount: 1},
	}
	st := &memRunStore{}
	p := NewPipeline(be, nil).WithStore(st)

	res, err := p.Run(context.Background(), validRequest(1), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, res.Status)
	assert.Equal(t, "Exclusão concluída com 1 erros", res.Message)
	assert.Empty(t, res.Preview.AffectedTables)

	be.validation = &model.DeletionValidation{InvalidIDs: []int{1}}
	_, err = p.Run(context.Background(), validRequest(1), nil)
	assert.ErrorIs(t, err, ErrNoValidClients)
	assert.Equal(t, StatusRejected, st.runs[len(st.runs)-1].Status)

	be.validation = &model.DeletionValidation{ValidIDs: []int{1}}
	be.deleteErr = errors.New("500")
	_, err = p.Run(context.Background(), validRequest(1), nil)
	assert.Error(t, err)
	assert.Equal(t, StatusFailed, st.runs[len(st.runs)-1].Status)
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateRequest(validRequest(1)))

	req := validRequest()
	req.Reason = "curto"
	req.ConfirmDeletion = false
	err := ValidateRequest(req)
	require.ErrorIs(t, err, validation.ErrInvalid)

	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	assert.ElementsMatch(t, []string{
		"Informe pelo menos um ID de cliente",
		"Motivo da exclusão deve ter pelo menos 10 caracteres",
		"Você deve confirmar a exclusão",
	}, verr.Messages())

	p := NewPipeline(&fakeBackend{}, nil)
	_, err = p.Run(context.Background(), req, nil)
	assert.ErrorIs(t, err, validation.ErrInvalid)
}
