package validation

import (
	"errors"
	"testing"

	"hypnotools/internal/model"
)

func TestStruct_DefaultAndOverriddenMessages(t *testing.T) {
	t.Parallel()

	req := model.DeletionRequest{
		ClientIDs: []int{1, -2},
		Reason:    "curto",
		UserEmail: "nao-email",
	}
	err := Struct(req, map[string]string{
		"reason.min": "Motivo deve ter pelo menos 10 caracteres",
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	got := map[string]string{}
	for _, d := range verr.Details {
		got[d.Field] = d.Message
	}

	want := map[string]string{
		"clientIds":       "clientIds: deve ser maior que 0",
		"reason":          "Motivo deve ter pelo menos 10 caracteres",
		"userEmail":       "userEmail: email inválido",
		"confirmDeletion": "confirmDeletion: deve ser true",
	}
	for field, msg := range want {
		if got[field] != msg {
			t.Fatalf("field %s: want=%q got=%q", field, msg, got[field])
		}
	}
}

func TestStruct_Valid(t *testing.T) {
	t.Parallel()

	req := model.LoginRequest{Email: "ana@example.com", Senha: "x", Empresa: "acme"}
	if err := Struct(req, nil); err != nil {
		t.Fatalf("want=nil got=%v", err)
	}
}
