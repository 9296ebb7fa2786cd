package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError 远端调用失败
//
// Network=true 表示请求未得到任何 HTTP 响应（连接失败、超时等），此时 Status 为 0。
type APIError struct {
	Status  int
	Message string
	Network bool
	Err     error
}

func (e *APIError) Error() string {
	if e.Network {
		return fmt.Sprintf("network error: %s", e.Message)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// newStatusError 从非 2xx 响应体提取错误消息
// 优先级：message > erros > 整个 JSON > "<status>: <statusText>"
func newStatusError(status int, body []byte) *APIError {
	msg := ""

	var obj map[string]interface{}
	if err := json.Unmarshal(body, &obj); err == nil && len(obj) > 0 {
		if m, ok := obj["message"].(string); ok && m != "" {
			msg = m
		} else if erros, ok := obj["erros"]; ok && erros != nil {
			msg = statusErros(erros)
		} else {
			msg = strings.TrimSpace(string(body))
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("%d: %s", status, http.StatusText(status))
	}

	return &APIError{Status: status, Message: msg}
}

// statusErros 错误响应中的 erros：数组以 ", " 连接，对象序列化为 JSON
func statusErros(v interface{}) string {
	switch t := v.(type) {
	case []interface{}:
		return joinErros(t, ", ")
	case map[string]interface{}:
		b, _ := json.Marshal(t)
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// extractErros 将响应中的 erros 字段转为消息
// 数组元素为字符串时原样使用，为对象时取 message/error/description，否则序列化为 JSON
func extractErros(v interface{}) string {
	switch t := v.(type) {
	case []interface{}:
		return joinErros(t, ", ")
	case map[string]interface{}:
		return describeObject(t, true)
	default:
		return fmt.Sprint(t)
	}
}

func joinErros(v interface{}, sep string) string {
	list, ok := v.([]interface{})
	if !ok {
		return extractErros(v)
	}
	parts := make([]string, 0, len(list))
	for _, item := range list {
		switch t := item.(type) {
		case string:
			parts = append(parts, t)
		case map[string]interface{}:
			parts = append(parts, describeObject(t, false))
		default:
			parts = append(parts, fmt.Sprint(t))
		}
	}
	return strings.Join(parts, sep)
}

func describeObject(obj map[string]interface{}, indent bool) string {
	for _, key := range []string{"message", "error", "description"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	var b []byte
	if indent {
		b, _ = json.MarshalIndent(obj, "", "  ")
	} else {
		b, _ = json.Marshal(obj)
	}
	return string(b)
}
