package importer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/xuri/excelize/v2"
	"hypnotools/internal/archive"
	"hypnotools/internal/client"
	"hypnotools/internal/parser"
	"hypnotools/internal/store"
)

// writeClientsWorkbook 只有 CLIENTES 一个 Sheet 的工作簿
func writeClientsWorkbook(t *testing.T, rows ...[]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", parser.ClientsSheet); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	all := append([][]interface{}{{"Nome", "Email"}}, rows...)
	for i, row := range all {
		r := row
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(parser.ClientsSheet, cell, &r); err != nil {
			t.Fatalf("set row %d: %v", i+1, err)
		}
	}

	path := filepath.Join(t.TempDir(), "clientes.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "hypnotools.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// collect 读完通道，返回全部事件与 done 汇总
func collect(t *testing.T, ch <-chan ProgressEvent) ([]ProgressEvent, *Summary) {
	t.Helper()
	var events []ProgressEvent
	var summary *Summary
	for evt := range ch {
		events = append(events, evt)
		if evt.Type == EventDone {
			s, ok := evt.Data.(*Summary)
			if !ok {
				t.Fatalf("unexpected done data type: %T", evt.Data)
			}
			summary = s
		}
	}
	return events, summary
}

type memUploader struct {
	mu   sync.Mutex
	keys []string
}

func (m *memUploader) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, *in.Key)
	return &s3.PutObjectOutput{}, nil
}

func TestCoordinator_ImportRecordsHistoryAndArtifacts(t *testing.T) {
	t.Parallel()

	path := writeClientsWorkbook(t,
		[]interface{}{gofakeit.Name(), gofakeit.Email()},
		[]interface{}{gofakeit.Name(), "sem-email"},
		[]interface{}{gofakeit.Name(), gofakeit.Email()},
	)
	st := newTestStore(t)
	exportDir := t.TempDir()

	sender := newFakeSender()
	sender.failures[2] = []error{&client.APIError{Status: 400, Message: "Linha 2: CPF duplicado"}}
	uploader := &memUploader{}
	sleeper := &sleepRecorder{}

	coord := NewCoordinator(sender, nil).
		WithHistory(st).
		WithExportDir(exportDir).
		WithArchiver(archive.NewWithClient(uploader, "bucket", "hypno", nil)).
		WithSleep(sleeper.sleep)

	events, summary := collect(t, coord.Import(context.Background(), ImportOptions{
		FilePath: path,
		Empresa:  "acme",
	}))

	if len(events) == 0 || events[0].Type != EventStart {
		t.Fatalf("first event want=%s got=%v", EventStart, events)
	}
	for _, evt := range events {
		if evt.Type == EventError {
			t.Fatalf("unexpected error event: %s", evt.Message)
		}
	}
	if summary == nil {
		t.Fatalf("missing done summary")
	}

	if summary.Status != store.ImportStatusPartial {
		t.Fatalf("status want=%s got=%s", store.ImportStatusPartial, summary.Status)
	}
	if summary.TotalRows != 3 || summary.ValidRows != 2 {
		t.Fatalf("rows want=3/2 got=%d/%d", summary.TotalRows, summary.ValidRows)
	}
	if summary.Result.ProcessedCount != 1 || summary.Result.ErrorCount != 2 {
		t.Fatalf("result want=1/2 got=%d/%d", summary.Result.ProcessedCount, summary.Result.ErrorCount)
	}

	if filepath.Base(summary.ReportPath) != "relatorio_erros_importacao.csv" {
		t.Fatalf("unexpected report path: %s", summary.ReportPath)
	}
	for _, p := range []string{summary.ReportPath, summary.LogPath} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("artifact %s missing: %v", p, err)
		}
	}
	if len(summary.ArchivedKeys) != 2 || len(uploader.keys) != 2 {
		t.Fatalf("archived want=2 got=%v", uploader.keys)
	}

	run, err := st.GetImportLog(summary.RunID)
	if err != nil {
		t.Fatalf("get import log: %v", err)
	}
	if run.Status != store.ImportStatusPartial || run.Empresa != "acme" || run.ProcessedCount != 1 {
		t.Fatalf("unexpected history row: %+v", run)
	}
	errs, err := st.ListImportErrors(run.ID)
	if err != nil {
		t.Fatalf("list import errors: %v", err)
	}
	if len(errs) != 2 {
		t.Fatalf("stored errors want=2 got=%d", len(errs))
	}
}

func TestCoordinator_DryRunSkipsSending(t *testing.T) {
	t.Parallel()

	path := writeClientsWorkbook(t,
		[]interface{}{gofakeit.Name(), gofakeit.Email()},
		[]interface{}{gofakeit.Name(), gofakeit.Email()},
	)
	sender := newFakeSender()
	coord := NewCoordinator(sender, nil)

	_, summary := collect(t, coord.Import(context.Background(), ImportOptions{FilePath: path, DryRun: true}))
	if summary == nil {
		t.Fatalf("missing done summary")
	}
	if len(sender.calls) != 0 {
		t.Fatalf("dry run must not send, calls=%v", sender.calls)
	}
	if summary.Status != store.ImportStatusCompleted || !summary.DryRun {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.ReportPath != "" || summary.LogPath != "" {
		t.Fatalf("no export dir, want no artifacts got=%s %s", summary.ReportPath, summary.LogPath)
	}
}

func TestCoordinator_ParseErrorStopsRun(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	path := filepath.Join(t.TempDir(), "vazio.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	_ = f.Close()

	events, summary := collect(t, NewCoordinator(newFakeSender(), nil).Import(context.Background(), ImportOptions{FilePath: path}))
	if summary != nil {
		t.Fatalf("want no done event, got %+v", summary)
	}
	last := events[len(events)-1]
	if last.Type != EventError || last.Message != parser.ErrSheetNotFound.Error() {
		t.Fatalf("last event want=error(%s) got=%s(%s)", parser.ErrSheetNotFound, last.Type, last.Message)
	}
}

func TestCoordinator_CancelledContext(t *testing.T) {
	t.Parallel()

	path := writeClientsWorkbook(t, []interface{}{gofakeit.Name(), gofakeit.Email()})
	st := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, summary := collect(t, NewCoordinator(newFakeSender(), nil).WithHistory(st).Import(ctx, ImportOptions{FilePath: path}))
	if summary == nil {
		t.Fatalf("missing done summary")
	}
	if summary.Status != store.ImportStatusCancelled {
		t.Fatalf("status want=%s got=%s", store.ImportStatusCancelled, summary.Status)
	}
	if summary.Result.ErrorCount != 1 {
		t.Fatalf("unsent rows must be errors, got=%d", summary.Result.ErrorCount)
	}

	run, err := st.GetImportLog(summary.RunID)
	if err != nil {
		t.Fatalf("get import log: %v", err)
	}
	if run.Status != store.ImportStatusCancelled || run.ErrorMessage == "" {
		t.Fatalf("unexpected history row: %+v", run)
	}
}
