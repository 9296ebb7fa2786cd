package parser

import "testing"

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"  E-mail do Cliente ":    "e-mail do cliente",
		"Mídia   de\tOrigem":      "midia de origem",
		"Endereço":                "endereco",
		"“Canal”":                 `"canal"`,
		"Nome – Completo":         "nome - completo",
		"":                        "",
		"SUB MOMENTO (Verificar)": "sub momento (verificar)",
	}
	for in, want := range cases {
		if got := NormalizeText(in); got != want {
			t.Fatalf("NormalizeText(%q) want=%q got=%q", in, want, got)
		}
	}
}

func TestParseLeadingInt(t *testing.T) {
	t.Parallel()

	if v, ok := ParseLeadingInt("3500 reais"); !ok || v != 3500 {
		t.Fatalf("3500 reais want=3500 got=%d ok=%v", v, ok)
	}
	if v, ok := ParseLeadingInt(" -12"); !ok || v != -12 {
		t.Fatalf("-12 want=-12 got=%d ok=%v", v, ok)
	}
	if v, ok := ParseLeadingInt("12.9"); !ok || v != 12 {
		t.Fatalf("12.9 want=12 got=%d ok=%v", v, ok)
	}
	if _, ok := ParseLeadingInt("abc"); ok {
		t.Fatalf("abc should not parse")
	}
}

func TestParseLeadingDecimal(t *testing.T) {
	t.Parallel()

	d, ok := ParseLeadingDecimal("1500.50abc")
	if !ok || d.String() != "1500.5" {
		t.Fatalf("1500.50abc want=1500.5 got=%s ok=%v", d.String(), ok)
	}
	if _, ok := ParseLeadingDecimal(".5"); !ok {
		t.Fatalf(".5 should parse")
	}
	if _, ok := ParseLeadingDecimal("R$ 100"); ok {
		t.Fatalf("R$ 100 should not parse")
	}
}

func TestFormatCPF(t *testing.T) {
	t.Parallel()

	got, ok := FormatCPF("12345678901")
	if !ok || got != "123.456.789-01" {
		t.Fatalf("want=123.456.789-01 got=%s ok=%v", got, ok)
	}
	got, ok = FormatCPF("123.456.789-01")
	if !ok || got != "123.456.789-01" {
		t.Fatalf("formatted input want=123.456.789-01 got=%s", got)
	}
	if _, ok := FormatCPF("1234567890"); ok {
		t.Fatalf("10 digits should be rejected")
	}
}

func TestFormatDate(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"25569":      "1970-01-01",
		"45366":      "2024-03-15",
		"2024-03-15": "2024-03-15",
		"15/03/2024": "2024-03-15",
		"not a date": "",
		"":           "",
		"nan":        "",
		"NaN":        "",
		"inf":        "",
		"-Infinity":  "",
		"0x1p4":      "",
		"1e5":        "",
		"45366.5":    "2024-03-15",
	}
	for in, want := range cases {
		if got := FormatDate(in); got != want {
			t.Fatalf("FormatDate(%q) want=%q got=%q", in, want, got)
		}
	}
}

func TestNormalizeMaritalStatus(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"solteira": "Solteiro",
		" CASADO ": "Casado",
		"Separada": "Divorciado",
		"Viúva":    "Viuvo",
	}
	for in, want := range cases {
		got, ok := NormalizeMaritalStatus(in)
		if !ok || got != want {
			t.Fatalf("NormalizeMaritalStatus(%q) want=%q got=%q ok=%v", in, want, got, ok)
		}
	}
	if _, ok := NormalizeMaritalStatus("enrolado"); ok {
		t.Fatalf("enrolado should be rejected")
	}
}

func TestIsValidEmail(t *testing.T) {
	t.Parallel()

	nbsp := string(rune(0x00a0))
	ideographicSpace := string(rune(0x3000))
	bom := string(rune(0xfeff))

	cases := []struct {
		in   string
		want bool
	}{
		{"jane@example.com", true},
		{"jane.doe@mail.co.uk", true},
		{"jane@example", false},
		{"jane doe@example.com", false},
		{"jane" + nbsp + "doe@x.com", false},
		{"jane@exa" + ideographicSpace + "mple.com", false},
		{bom + "jane@example.com", false},
		{"jane\vdoe@example.com", false},
		{"jane@@example.com", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsValidEmail(tc.in); got != tc.want {
			t.Fatalf("IsValidEmail(%q) want=%v got=%v", tc.in, tc.want, got)
		}
	}
}
