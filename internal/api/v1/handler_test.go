package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"hypnotools/internal/app"
	"hypnotools/internal/client"
	"hypnotools/internal/config"
	"hypnotools/internal/deletion"
	"hypnotools/internal/erp"
	"hypnotools/internal/model"
	"hypnotools/internal/parser"
	"hypnotools/internal/store"
)

// newTestApp 组装使用临时目录与假后端的 App
func newTestApp(t *testing.T, backend http.Handler) (*Handler, *gin.Engine, *app.App) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if backend == nil {
		backend = http.NotFoundHandler()
	}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.Data.DataDir = t.TempDir()
	cfg.API.BaseURL = srv.URL
	cfg.API.Empresa = "acme"

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("init app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	h := NewHandler(a)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return h, r, a
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode body: %v body=%s", err, w.Body.String())
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetStatus_NoSession(t *testing.T) {
	_, r, a := newTestApp(t, nil)

	w := doJSON(r, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	var resp StatusResponse
	decode(t, w, &resp)
	if resp.LoggedIn {
		t.Fatalf("want loggedIn=false")
	}
	if resp.Empresa != "acme" {
		t.Fatalf("want empresa=acme got=%q", resp.Empresa)
	}
	if resp.CRMConfigured {
		t.Fatalf("want crmConfigured=false without token")
	}
	if resp.BackendURL != a.Backend.BaseURL() {
		t.Fatalf("want backendUrl=%s got=%s", a.Backend.BaseURL(), resp.BackendURL)
	}
	if resp.LastImport != nil {
		t.Fatalf("want no last import got=%+v", resp.LastImport)
	}
}

func TestUpdateConfig_PersistsCredentials(t *testing.T) {
	_, r, a := newTestApp(t, nil)

	w := doJSON(r, http.MethodPatch, "/api/v1/config", map[string]any{
		"empresa": " construtora ",
		"token":   "crm-token",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(r, http.MethodGet, "/api/v1/config", nil)
	var cfg ConfigResponse
	decode(t, w, &cfg)
	if cfg.Empresa != "construtora" || !cfg.TokenSet {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.BatchSize != 5 || cfg.BatchDelayMS != 1000 || cfg.MaxRetries != 3 {
		t.Fatalf("unexpected batch options: %+v", cfg)
	}
	if got := a.Store.GetConfigDefault(store.ConfigKeyCRMToken, ""); got != "crm-token" {
		t.Fatalf("want stored token=crm-token got=%q", got)
	}
	if got := a.Store.GetConfigDefault(store.ConfigKeyEmpresa, ""); got != "construtora" {
		t.Fatalf("want stored empresa=construtora got=%q", got)
	}

	// 只改公司时令牌保持不变
	w = doJSON(r, http.MethodPatch, "/api/v1/config", map[string]any{"empresa": "outra"})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	empresa, token := a.CRM.Credentials()
	if empresa != "outra" || token != "crm-token" {
		t.Fatalf("want outra/crm-token got=%s/%s", empresa, token)
	}
}

func TestLogin_ValidationError(t *testing.T) {
	_, r, _ := newTestApp(t, nil)

	w := doJSON(r, http.MethodPost, "/api/v1/auth/login", map[string]any{
		"email": "nao-e-email",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	var body struct {
		Error   string `json:"error"`
		Details []any  `json:"details"`
	}
	decode(t, w, &body)
	if len(body.Details) != 3 {
		t.Fatalf("want 3 details got=%v", body.Details)
	}
}

func TestLogin_SavesSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req model.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Senha != "segredo" {
			writeJSON(w, model.LoginResponse{Success: false, Message: "Credenciais inválidas"})
			return
		}
		writeJSON(w, model.LoginResponse{
			Success: true,
			Token:   "jwt-token",
			Usuario: &model.UserInfo{IDUsuario: 7, Nome: "Ana", Email: req.Email, Ativo: true},
		})
	})
	_, r, a := newTestApp(t, mux)

	w := doJSON(r, http.MethodPost, "/api/v1/auth/login", model.LoginRequest{
		Email: "ana@example.com", Senha: "errada", Empresa: "acme",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 got=%d", w.Code)
	}

	w = doJSON(r, http.MethodPost, "/api/v1/auth/login", model.LoginRequest{
		Email: "ana@example.com", Senha: "segredo", Empresa: "construtora",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	token, user, empresa := a.Store.LoadSession()
	if token != "jwt-token" || user == nil || user.Email != "ana@example.com" || empresa != "construtora" {
		t.Fatalf("unexpected session: token=%q user=%+v empresa=%q", token, user, empresa)
	}
	if a.Backend.Token() != "jwt-token" {
		t.Fatalf("want backend token set")
	}
	if a.Empresa() != "construtora" {
		t.Fatalf("want empresa=construtora got=%s", a.Empresa())
	}

	w = doJSON(r, http.MethodPost, "/api/v1/auth/logout", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if token, _, _ := a.Store.LoadSession(); token != "" {
		t.Fatalf("want session cleared got token=%q", token)
	}
}

// multipartWorkbook 构造带 file 字段的上传请求
func multipartWorkbook(t *testing.T, target, path, filename string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read workbook: %v", err)
	}
	_, _ = part.Write(data)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func writeClientsWorkbook(t *testing.T, rows ...[]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", parser.ClientsSheet); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	all := append([][]any{{"Nome", "Email"}}, rows...)
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

func TestParseImport_Preview(t *testing.T) {
	_, r, _ := newTestApp(t, nil)
	path := writeClientsWorkbook(t,
		[]any{"Maria Silva", "maria@example.com"},
		[]any{"João Souza", "sem-email"},
	)

	req := multipartWorkbook(t, "/api/v1/import/parse", path, "clientes.xlsx", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}

	var res parser.ParseResult
	decode(t, w, &res)
	if res.TotalRows != 2 || res.ValidRows != 1 {
		t.Fatalf("want total=2 valid=1 got total=%d valid=%d", res.TotalRows, res.ValidRows)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("want 1 error got=%v", res.Errors)
	}
}

func TestParseImport_MissingFile(t *testing.T) {
	_, r, _ := newTestApp(t, nil)

	w := doJSON(r, http.MethodPost, "/api/v1/import/parse", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 got=%d body=%s", w.Code, w.Body.String())
	}
}

func TestImport_DryRunStreamsEvents(t *testing.T) {
	_, r, a := newTestApp(t, nil)
	path := writeClientsWorkbook(t, []any{"Maria Silva", "maria@example.com"})

	req := multipartWorkbook(t, "/api/v1/import", path, "clientes.xlsx", map[string]string{"dryRun": "true"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("want text/event-stream got=%s", ct)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "data: ") {
		t.Fatalf("want SSE frames got=%s", body)
	}
	if !strings.Contains(body, `"type":"done"`) {
		t.Fatalf("want done event got=%s", body)
	}

	entries, err := os.ReadDir(a.UploadDir())
	if err != nil {
		t.Fatalf("read uploads: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("want upload removed got=%d files", len(entries))
	}
}

func TestDownload_OneShot(t *testing.T) {
	h, r, _ := newTestApp(t, nil)

	path := filepath.Join(t.TempDir(), "relatorio.csv")
	if err := os.WriteFile(path, []byte("Linha,Erro\n2,Email inválido\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	token := h.downloads.put(path, "relatorio.csv", contentTypeCSV, downloadTTL)

	w := doJSON(r, http.MethodGet, "/api/v1/download/"+token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Email inválido") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "relatorio.csv") {
		t.Fatalf("unexpected content-disposition: %s", cd)
	}

	w = doJSON(r, http.MethodGet, "/api/v1/download/"+token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404 on second download got=%d", w.Code)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("want file kept: %v", err)
	}
}

func TestExportImportErrors_Workbook(t *testing.T) {
	_, r, a := newTestApp(t, nil)

	id, err := a.Store.CreateImportLog("run-1", "clientes.xlsx", 1024, "acme")
	if err != nil {
		t.Fatalf("create log: %v", err)
	}
	if err := a.Store.InsertImportErrors(id, []model.ImportError{
		{Row: 3, Field: "Email", Message: "Email inválido"},
		{Row: 5, Field: "API", Message: "Erro na API: conflito"},
	}); err != nil {
		t.Fatalf("insert errors: %v", err)
	}

	w := doJSON(r, http.MethodPost, "/api/v1/imports/run-1/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	m := regexp.MustCompile(`"downloadUrl":"([^"]+)"`).FindStringSubmatch(w.Body.String())
	if m == nil {
		t.Fatalf("want downloadUrl in stream: %s", w.Body.String())
	}
	if !strings.HasPrefix(m[1], "/api/v1/download/") {
		t.Fatalf("unexpected url: %s", m[1])
	}

	w = doJSON(r, http.MethodGet, m[1], nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	got, _ := f.GetCellValue("ERROS", "D2")
	if got != "Email inválido" {
		t.Fatalf("want D2=Email inválido got=%q", got)
	}

	w = doJSON(r, http.MethodPost, "/api/v1/imports/nao-existe/export", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404 got=%d", w.Code)
	}
}

func TestParseDeletionIDs_Text(t *testing.T) {
	_, r, _ := newTestApp(t, nil)

	w := doJSON(r, http.MethodPost, "/api/v1/deletion/parse", map[string]any{"text": "3, 1\n2 3"})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	var body struct {
		ClientIDs []int  `json:"clientIds"`
		Count     int    `json:"count"`
		Formatted string `json:"formatted"`
	}
	decode(t, w, &body)
	if body.Count != 3 || fmt.Sprint(body.ClientIDs) != "[3 1 2]" {
		t.Fatalf("unexpected ids: %+v", body)
	}

	w = doJSON(r, http.MethodPost, "/api/v1/deletion/parse", map[string]any{"text": "abc"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 got=%d", w.Code)
	}
}

// deletionBackend 假的删除接口，id 1 和 2 有效
func deletionBackend(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/clients/validate-for-deletion", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, model.DeletionValidation{
			ValidIDs:   []int{1, 2},
			InvalidIDs: []int{99},
		})
	})
	mux.HandleFunc("/clients/affected-tables-stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []model.AffectedTableStat{
			{TableName: "clientes", RecordCount: 2},
			{TableName: "vendas", RecordCount: 0},
		})
	})
	mux.HandleFunc("/clients/bulk-delete", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ClientIDs []int `json:"clientIds"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.ClientIDs) != 2 {
			t.Errorf("want 2 ids sent got=%v", body.ClientIDs)
		}
		writeJSON(w, model.DeletionResponse{Success: true, DeletedCount: 2, LogFileName: "exclusao.log"})
	})
	mux.HandleFunc("/clients/deletion-logs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []string{"exclusao.log"})
	})
	mux.HandleFunc("/clients/deletion-log/exclusao.log", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("cliente 1 excluído"))
	})
	return mux
}

func TestValidateDeletion_Preview(t *testing.T) {
	_, r, _ := newTestApp(t, deletionBackend(t))

	w := doJSON(r, http.MethodPost, "/api/v1/deletion/validate", map[string]any{"clientIds": []int{1, 2, 99}})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	var preview deletion.Preview
	decode(t, w, &preview)
	if preview.TotalRecords != 2 || len(preview.AffectedTables) != 1 {
		t.Fatalf("unexpected preview: %+v", preview)
	}
}

func TestExecuteDeletion_InvalidRequest(t *testing.T) {
	_, r, _ := newTestApp(t, deletionBackend(t))

	w := doJSON(r, http.MethodPost, "/api/v1/deletion/execute", map[string]any{
		"clientIds": []int{1},
		"reason":    "curto",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 got=%d body=%s", w.Code, w.Body.String())
	}
	if strings.HasPrefix(w.Body.String(), "data: ") {
		t.Fatalf("want plain JSON error, got SSE")
	}
}

func TestExecuteDeletion_Streams(t *testing.T) {
	_, r, a := newTestApp(t, deletionBackend(t))

	w := doJSON(r, http.MethodPost, "/api/v1/deletion/execute", model.DeletionRequest{
		ClientIDs:       []int{1, 2, 99},
		Reason:          "Clientes duplicados na base",
		UserEmail:       "ana@example.com",
		ConfirmDeletion: true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, `"type":"done"`) || !strings.Contains(body, "2 clientes excluídos com sucesso!") {
		t.Fatalf("unexpected stream: %s", body)
	}
	if n := strings.Count(body, `"type":"progress"`); n != 4 {
		t.Fatalf("want 4 progress events got=%d", n)
	}

	runs, err := a.Store.ListDeletionRuns(10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != deletion.StatusCompleted || runs[0].DeletedCount != 2 {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	w = doJSON(r, http.MethodGet, "/api/v1/deletion/runs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
}

func TestDeletionLogs(t *testing.T) {
	_, r, _ := newTestApp(t, deletionBackend(t))

	w := doJSON(r, http.MethodGet, "/api/v1/deletion/logs", nil)
	var body struct {
		Logs []string `json:"logs"`
	}
	decode(t, w, &body)
	if len(body.Logs) != 1 || body.Logs[0] != "exclusao.log" {
		t.Fatalf("unexpected logs: %v", body.Logs)
	}

	w = doJSON(r, http.MethodGet, "/api/v1/deletion/logs/exclusao.log", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	if w.Body.String() != "cliente 1 excluído" {
		t.Fatalf("unexpected log body: %s", w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "exclusao.log") {
		t.Fatalf("unexpected content-disposition: %s", cd)
	}
}

func TestERP_ObrasAndMissingObra(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/erp/obter-obras-ativas/acme", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []model.Obra{{CodigoObra: "OB1", NomeObra: "Residencial Aurora"}})
	})
	_, r, _ := newTestApp(t, mux)

	w := doJSON(r, http.MethodGet, "/api/v1/erp/obras", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	var body struct {
		Obras []model.Obra `json:"obras"`
	}
	decode(t, w, &body)
	if len(body.Obras) != 1 || body.Obras[0].CodigoObra != "OB1" {
		t.Fatalf("unexpected obras: %+v", body.Obras)
	}

	w = doJSON(r, http.MethodGet, "/api/v1/erp/obras/OB9/unidades", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404 got=%d body=%s", w.Code, w.Body.String())
	}
}

func TestERP_AutoMapAndDetect(t *testing.T) {
	_, r, _ := newTestApp(t, nil)

	w := doJSON(r, http.MethodPost, "/api/v1/erp/automap", map[string]any{
		"camposDisponiveis": []string{"codigoUnidade", "areaPrivativa"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	var auto struct {
		Mapeamentos erp.Mappings            `json:"mapeamentos"`
		Validacao   model.MappingValidation `json:"validacao"`
	}
	decode(t, w, &auto)
	if len(auto.Mapeamentos) != len(erp.Catalog()) {
		t.Fatalf("want %d mappings got=%d", len(erp.Catalog()), len(auto.Mapeamentos))
	}

	w = doJSON(r, http.MethodPost, "/api/v1/erp/template/detect", map[string]any{"numeroUnidadeTeste": "QD 31 LT 01"})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	var detected struct {
		Padrao    erp.Pattern          `json:"padrao"`
		Resultado model.TemplateResult `json:"resultado"`
	}
	decode(t, w, &detected)
	if detected.Padrao.Name != erp.Patterns[0].Name {
		t.Fatalf("want %s got=%s", erp.Patterns[0].Name, detected.Padrao.Name)
	}
	if detected.Resultado.UnityNumber != "3101" {
		t.Fatalf("want unity number 3101 got=%s", detected.Resultado.UnityNumber)
	}

	w = doJSON(r, http.MethodPost, "/api/v1/erp/template/detect", map[string]any{"numeroUnidadeTeste": "Casa"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 got=%d", w.Code)
	}
}

func TestERP_PayloadRequiresUnits(t *testing.T) {
	_, r, _ := newTestApp(t, nil)

	w := doJSON(r, http.MethodPost, "/api/v1/erp/payload", map[string]any{
		"obra": map[string]any{"codigoObra": "OB1"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 got=%d body=%s", w.Code, w.Body.String())
	}
}

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unauthorized", fmt.Errorf("wrap: %w", client.ErrUnauthorized), http.StatusUnauthorized},
		{"obra", fmt.Errorf("%w: X", erp.ErrObraNotFound), http.StatusNotFound},
		{"bad request", deletion.ErrNoIDs, http.StatusBadRequest},
		{"api 4xx", &client.APIError{Status: http.StatusConflict, Message: "conflito"}, http.StatusConflict},
		{"api 5xx", &client.APIError{Status: http.StatusInternalServerError}, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := errorStatus(tc.err); got != tc.want {
			t.Fatalf("%s: want=%d got=%d", tc.name, tc.want, got)
		}
	}
}
