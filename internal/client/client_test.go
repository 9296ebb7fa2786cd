package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hypnotools/internal/model"
)

func newCRM(t *testing.T, h http.HandlerFunc) *CRMClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewCRMClient(CRMConfig{
		HostTemplate: srv.URL + "/%s/api/manageclients",
		Empresa:      "acme",
		Token:        "tok",
	}, nil)
}

func TestSendClient_Success(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath string
	var gotQuery map[string][]string
	c := newCRM(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		_, _ = io.WriteString(w, `{"id": 991}`)
	})

	rec := &model.ClientRecord{Nome: "Ana", Email: "ana@x.com", IDCanalOrigem: model.IntPtr(7), RendaMensal: 3500}
	res, err := c.SendClient(context.Background(), rec, 4)
	require.NoError(t, err)
	assert.Equal(t, "991", res.ID)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/acme/api/manageclients", gotPath)
	assert.Equal(t, "tok", gotQuery["token"][0])
	assert.Equal(t, "Ana", gotQuery["nome"][0])
	assert.Equal(t, "7", gotQuery["id_canal_origem"][0])
	assert.Equal(t, "", gotQuery["id_midia"][0])
	assert.Equal(t, "3500", gotQuery["renda_mensal"][0])
	assert.Equal(t, "cliente", gotQuery["status"][0])
	assert.Equal(t, "0", gotQuery["excluido"][0])
}

func TestSendClient_InBandErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		want string
	}{
		{"array", `{"erros": ["CPF duplicado", {"message": "email ruim"}]}`, "Linha 2: Erros da API: CPF duplicado, email ruim"},
		{"object", `{"erros": {"description": "falhou"}}`, "Linha 2: Erros da API: falhou"},
		{"string", `{"erros": "token expirado"}`, "Linha 2: Erros da API: token expirado"},
		{"empty array is truthy", `{"erros": [], "id": 10}`, "Linha 2: Erros da API: "},
		{"no id", `{"ok": true}`, "Linha 2: Cliente não foi criado - API retornou sucesso mas sem ID"},
		{"empty body", ``, "Linha 2: Cliente não foi criado - API retornou sucesso mas sem ID"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := newCRM(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := c.SendClient(context.Background(), &model.ClientRecord{Nome: "x"}, 2)
			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())
			assert.False(t, IsNetworkError(err))
		})
	}
}

func TestSendClient_StatusErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message", http.StatusBadRequest, `{"message": "inválido"}`, "Linha 1: inválido"},
		{"erros", http.StatusUnprocessableEntity, `{"erros": ["a", "b"]}`, "Linha 1: a, b"},
		{"json", http.StatusConflict, `{"code": 9}`, `Linha 1: {"code": 9}`},
		{"plain", http.StatusInternalServerError, `boom`, "Linha 1: 500: Internal Server Error"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := newCRM(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := c.SendClient(context.Background(), &model.ClientRecord{}, 1)
			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.Status)
		})
	}
}

func TestSendClient_NetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewCRMClient(CRMConfig{HostTemplate: url + "/%s", Empresa: "acme", Token: "tok"}, nil)
	_, err := c.SendClient(context.Background(), &model.ClientRecord{}, 3)
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	assert.Equal(t, "network error: Linha 3: Erro de rede/CORS", err.Error())
}

func TestSendClient_NotConfigured(t *testing.T) {
	t.Parallel()

	c := NewCRMClient(CRMConfig{}, nil)
	_, err := c.SendClient(context.Background(), &model.ClientRecord{}, 5)
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, "Linha 5: Empresa não configurada", err.Error())

	c.SetCredentials("acme", "  ")
	_, err = c.SendClient(context.Background(), &model.ClientRecord{}, 5)
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, "Linha 5: Token não configurado", err.Error())
}

func newBackend(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL + "/", Token: "jwt"}, nil)
	require.NoError(t, err)
	return c
}

func TestClient_BearerAndUnauthorized(t *testing.T) {
	t.Parallel()

	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer jwt" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode([]model.UnitStatus{{ID: 1, Nome: "Disponível"}})
	})

	statuses, err := c.UnitStatuses(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "Disponível", statuses[0].Nome)

	c.Logout()
	_, err = c.UnitStatuses(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_Login(t *testing.T) {
	t.Parallel()

	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		var req model.LoginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(model.LoginResponse{
			Success: true,
			Token:   "novo-" + req.Empresa,
			Usuario: &model.UserInfo{IDUsuario: 1, Nome: "Op", Email: req.Email, Ativo: true},
		})
	})

	resp, err := c.Login(context.Background(), model.LoginRequest{Email: "op@x.com", Senha: "s", Empresa: "acme"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "novo-acme", c.Token())
}

func TestClient_DeletionEndpoints(t *testing.T) {
	t.Parallel()

	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/clients/validate-for-deletion":
			assert.Equal(t, "3,5", r.URL.Query().Get("clientIds"))
			_, _ = io.WriteString(w, `{"validIds":[3],"invalidIds":[5],"clientDetails":[],"totalRecordsToDelete":4,"affectedTables":["clientes"]}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/clients/bulk-delete":
			body, _ := io.ReadAll(r.Body)
			assert.NotContains(t, string(body), "confirmDeletion")
			_, _ = io.WriteString(w, `{"success":true,"deletedCount":1,"failedCount":0,"logFileName":"del.log"}`)
		case r.URL.Path == "/clients/deletion-log/del.log":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = io.WriteString(w, "linha 1")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()
	v, err := c.ValidateForDeletion(ctx, []int{3, 5})
	require.NoError(t, err)
	assert.Equal(t, []int{3}, v.ValidIDs)
	assert.Equal(t, 4, v.TotalRecordsToDelete)

	res, err := c.BulkDelete(ctx, model.DeletionRequest{ClientIDs: []int{3}, Reason: "duplicado no CRM", UserEmail: "a@b.com", ConfirmDeletion: true})
	require.NoError(t, err)
	assert.Equal(t, "del.log", res.LogFileName)

	raw, ct, err := c.DownloadDeletionLog(ctx, "del.log")
	require.NoError(t, err)
	assert.Equal(t, "linha 1", string(raw))
	assert.True(t, strings.HasPrefix(ct, "text/plain"))

	_, _, err = c.DownloadDeletionLog(ctx, "../etc")
	assert.Error(t, err)

	_, err = c.DeletionLogs(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestTokenExpiry(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	signed, err := tok.SignedString([]byte("segredo"))
	require.NoError(t, err)

	got, ok := TokenExpiry(signed)
	require.True(t, ok)
	assert.True(t, got.Equal(exp))
	assert.False(t, TokenExpired(signed, time.Now()))
	assert.True(t, TokenExpired(signed, exp.Add(time.Second)))

	_, ok = TokenExpiry("não-é-jwt")
	assert.False(t, ok)
}
