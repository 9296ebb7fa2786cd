// Package validation 请求结构校验（go-playground/validator），错误信息为葡萄牙语
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid 校验失败
var ErrInvalid = errors.New("dados inválidos")

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator 共享实例，字段名取 json 标签
func Validator() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return instance
}

// Detail 单个字段错误
type Detail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error 校验错误集合
type Error struct {
	Details []Detail `json:"details"`
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Details))
	for i, d := range e.Details {
		msgs[i] = d.Message
	}
	return strings.Join(msgs, "; ")
}

func (e *Error) Is(target error) bool {
	return target == ErrInvalid
}

// Messages 仅返回消息
func (e *Error) Messages() []string {
	out := make([]string, len(e.Details))
	for i, d := range e.Details {
		out[i] = d.Message
	}
	return out
}

// Struct 校验结构体；失败时返回 *Error
// messages 可按 "字段.标签" 或 "字段" 覆盖默认消息
func Struct(v interface{}, messages map[string]string) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Error{}
	for _, fe := range verrs {
		field := fieldPath(fe)
		msg, ok := messages[field+"."+fe.Tag()]
		if !ok {
			msg, ok = messages[field]
		}
		if !ok {
			msg = fmt.Sprintf("%s: %s", field, message(fe))
		}
		out.Details = append(out.Details, Detail{Field: field, Message: msg})
	}
	return out
}

// fieldPath 去掉顶层结构体名与切片下标
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	if i := strings.Index(ns, "["); i >= 0 {
		ns = ns[:i]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "campo obrigatório"
	case "email":
		return "email inválido"
	case "min":
		if fe.Kind() == reflect.String {
			return "deve ter pelo menos " + fe.Param() + " caracteres"
		}
		return "mínimo " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "deve ter no máximo " + fe.Param() + " caracteres"
		}
		return "máximo " + fe.Param()
	case "gt":
		return "deve ser maior que " + fe.Param()
	case "eq":
		return "deve ser " + fe.Param()
	case "oneof":
		return "deve ser um de: " + fe.Param()
	default:
		return "valor inválido"
	}
}
