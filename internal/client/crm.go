package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"hypnotools/internal/model"
)

// DefaultCRMHostTemplate manageclients 地址模板，%s 为公司标识
const DefaultCRMHostTemplate = "https://%s.hypnobox.com.br/api/manageclients"

// NetworkErrorMessage 请求未得到 HTTP 响应时的提示
const NetworkErrorMessage = "Erro de rede/CORS"

// ErrNotConfigured 公司或令牌未配置
var ErrNotConfigured = errors.New("crm não configurado")

// configError 带行号的未配置错误，errors.Is 匹配 ErrNotConfigured
type configError struct {
	msg string
}

func (e *configError) Error() string {
	return e.msg
}

func (e *configError) Is(target error) bool {
	return target == ErrNotConfigured
}

// CRMConfig CRM 配置
type CRMConfig struct {
	HostTemplate string
	Empresa      string
	Token        string
	Timeout      time.Duration
}

// CRMClient manageclients 客户端
type CRMClient struct {
	httpClient   *http.Client
	hostTemplate string
	logger       *zap.Logger

	mu      sync.RWMutex
	empresa string
	token   string
}

// SendResult 单条发送结果
type SendResult struct {
	ID  string
	Raw map[string]interface{}
}

// NewCRMClient 创建 CRM 客户端
func NewCRMClient(cfg CRMConfig, logger *zap.Logger) *CRMClient {
	if cfg.HostTemplate == "" {
		cfg.HostTemplate = DefaultCRMHostTemplate
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CRMClient{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		hostTemplate: cfg.HostTemplate,
		logger:       logger,
		empresa:      strings.TrimSpace(cfg.Empresa),
		token:        strings.TrimSpace(cfg.Token),
	}
}

// SetCredentials 更新公司与令牌
func (c *CRMClient) SetCredentials(empresa, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.empresa = strings.TrimSpace(empresa)
	c.token = strings.TrimSpace(token)
}

// Credentials 当前公司与令牌
func (c *CRMClient) Credentials() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.empresa, c.token
}

// Endpoint 当前公司的 manageclients 地址
func (c *CRMClient) Endpoint() string {
	empresa, _ := c.Credentials()
	return fmt.Sprintf(c.hostTemplate, empresa)
}

// SendClient 以 PUT 发送一条客户记录
//
// 返回的错误消息已带 "Linha N: " 前缀；网络层失败为 *APIError{Network: true}。
func (c *CRMClient) SendClient(ctx context.Context, rec *model.ClientRecord, rowNumber int) (*SendResult, error) {
	empresa, token := c.Credentials()
	if empresa == "" {
		return nil, &configError{msg: fmt.Sprintf("Linha %d: Empresa não configurada", rowNumber)}
	}
	if token == "" {
		return nil, &configError{msg: fmt.Sprintf("Linha %d: Token não configurado", rowNumber)}
	}

	u := fmt.Sprintf(c.hostTemplate, empresa) + "?" + ClientQuery(rec, token).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, nil)
	if err != nil {
		return nil, fmt.Errorf("Linha %d: failed to create request: %w", rowNumber, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &APIError{
			Message: fmt.Sprintf("Linha %d: %s", rowNumber, NetworkErrorMessage),
			Network: true,
			Err:     err,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("Linha %d: failed to read response: %w", rowNumber, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newStatusError(resp.StatusCode, raw)
		apiErr.Message = fmt.Sprintf("Linha %d: %s", rowNumber, apiErr.Message)
		return nil, apiErr
	}

	var body map[string]interface{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, &APIError{
				Status:  resp.StatusCode,
				Message: fmt.Sprintf("Linha %d: resposta inválida da API: %s", rowNumber, string(raw)),
			}
		}
	}

	if erros, ok := body["erros"]; ok && erros != nil && !isBlankErros(erros) {
		return nil, &APIError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("Linha %d: Erros da API: %s", rowNumber, extractErros(erros)),
		}
	}

	id, ok := body["id"]
	if !ok || id == nil || fmt.Sprint(id) == "" {
		return nil, &APIError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("Linha %d: Cliente não foi criado - API retornou sucesso mas sem ID", rowNumber),
		}
	}

	c.logger.Debug("crm client created",
		zap.Int("row", rowNumber),
		zap.Any("id", id),
	)
	return &SendResult{ID: fmt.Sprint(id), Raw: body}, nil
}

// isBlankErros erros 为空串、false 或 0 时视为无错误（空数组仍视为错误）
func isBlankErros(v interface{}) bool {
	switch t := v.(type) {
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	default:
		return false
	}
}

// clientQueryFields 查询参数顺序与 manageclients 文档一致
var clientQueryFields = []string{
	"id_cliente_legado", "nome", "email",
	"ddd_residencial", "tel_residencial",
	"ddd_celular", "tel_celular",
	"ddd_comercial", "tel_comercial",
	"id_usuario", "id_produto",
	"endereco", "cep", "numero", "complemento", "cidade", "UF",
	"id_canal_origem", "id_midia", "id_momento", "id_submomento",
	"id_temperatura", "id_objetivo",
	"sexo", "cpf", "renda_mensal", "fgts", "qtd_dependentes", "rg", "valor_entrada",
	"email2", "email3", "profissao", "cargo",
	"data_nascimento", "estado_civil",
	"bairro", "bairro_comercial", "cep_comercial", "cidade_comercial", "complemento_comercial",
	"conjuge_dt_nascimento", "conjuge_estado_civil",
}

// ClientQuery 构建 manageclients 查询参数，空值以空串发送
func ClientQuery(rec *model.ClientRecord, token string) url.Values {
	q := url.Values{}
	q.Set("token", token)
	for _, field := range clientQueryFields {
		q.Set(field, rec.Value(field))
	}
	q.Set("status", "cliente")
	excluido := rec.Excluido
	if excluido == "" {
		excluido = "0"
	}
	q.Set("excluido", excluido)
	return q
}

// IsNetworkError 判断是否为可重试的网络层失败
func IsNetworkError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Network
	}
	return false
}
