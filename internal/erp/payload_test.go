package erp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypnotools/internal/model"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func TestApplyTemplate(t *testing.T) {
	t.Parallel()

	quadraLote := Patterns[0].Config
	loteSimples := Patterns[3].Config

	cases := []struct {
		name   string
		cfg    model.TemplateConfig
		value  string
		target string
		want   string
	}{
		{"unity number", quadraLote, "QD 31 LT 01", FieldUnityNumber, "3101"},
		{"custom strips spaces", quadraLote, "QD 31 LT 01", FieldUnityNumberCustom, "QD31LT01"},
		{"floor", quadraLote, "QD 31 LT 01", FieldFloor, "31"},
		{"leading zeros", loteSimples, "LOTE 001", FieldUnityNumber, "1"},
		{"all zeros becomes 0", loteSimples, "LOTE 000", FieldUnityNumber, "0"},
		{"constant template", loteSimples, "LOTE 001", FieldFloor, "0"},
		{"no match", quadraLote, "CASA 4", FieldUnityNumber, "0"},
		{"unknown target", quadraLote, "QD 31 LT 01", FieldSituacao, "0"},
		{"invalid regex", model.TemplateConfig{Pattern: "(", UnityNumberTemplate: "{1}"}, "x", FieldUnityNumber, "0"},
		{"first occurrence only", model.TemplateConfig{Pattern: `(\d+)`, UnityNumberTemplate: "{1}-{1}"}, "A7", FieldUnityNumber, "7-{1}"},
		{"missing group kept literally", model.TemplateConfig{Pattern: `(\d+)`, UnityNumberTemplate: "{1}-{2}"}, "A7", FieldUnityNumber, "7-{2}"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ApplyTemplate(tc.cfg, tc.value, tc.target))
		})
	}
}

func TestDetectPattern(t *testing.T) {
	t.Parallel()

	p, err := DetectPattern("QD 31 LT 01")
	require.NoError(t, err)
	assert.Equal(t, Patterns[0].Name, p.Name)

	p, err = DetectPattern("QUADRA 01 LOTE 02")
	require.NoError(t, err)
	assert.Equal(t, Patterns[1].Name, p.Name)

	p, err = DetectPattern("1501")
	require.NoError(t, err)
	assert.Equal(t, Patterns[2].Name, p.Name)

	_, err = DetectPattern("CASA")
	assert.ErrorIs(t, err, ErrPatternNotDetected)
}

func TestTestTemplate(t *testing.T) {
	t.Parallel()

	res := TestTemplate(Patterns[1].Config, "QUADRA 01 LOTE 02")
	assert.True(t, res.Success)
	assert.Equal(t, []string{"01", "02"}, res.Groups)
	assert.Equal(t, "0102", res.UnityNumber)
	assert.Equal(t, "QUADRA01LOTE02", res.UnityNumberCustom)
	assert.Equal(t, "01", res.Floor)

	res = TestTemplate(Patterns[1].Config, "BLOCO A")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)

	res = TestTemplate(model.TemplateConfig{}, "x")
	assert.False(t, res.Success)
}

func TestApplyTemplateToAll(t *testing.T) {
	t.Parallel()

	ms := NewMappings()
	cfg := Patterns[0].Config

	assert.ErrorIs(t, ms.ApplyTemplateToAll(cfg, &model.TemplateResult{Success: false}), ErrTemplateNotTested)
	assert.ErrorIs(t, ms.ApplyTemplateToAll(cfg, nil), ErrTemplateNotTested)

	res := TestTemplate(cfg, "QD 31 LT 01")
	require.NoError(t, ms.ApplyTemplateToAll(cfg, &res))

	m := ms.Find(FieldUnityNumber, model.CategoryUnidade)
	assert.Equal(t, "TEMPLATE:{1}{2}", *m.ManualValue)
	assert.True(t, m.UseDefault)
	require.NotNil(t, m.Template)
	assert.Equal(t, cfg.Pattern, m.Template.Pattern)
	assert.Equal(t, "TEMPLATE:{1}", *ms.Find(FieldFloor, model.CategoryUnidade).ManualValue)
}

func TestFormatDeliveryDate(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                     "2025-03-15",
		"31/12/2025":           "2025-12-31",
		"31/02/2025":           "2025-03-03",
		"2025-06-30":           "2025-06-30",
		"2025-06-30T10:00:00Z": "2025-06-30",
		"2025-06-30 08:00:00":  "2025-06-30",
		"12/2025":              "2025-03-15",
		"amanhã":               "2025-03-15",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatDeliveryDate(in, fixedNow), in)
	}
}

func TestResolveProductID(t *testing.T) {
	t.Parallel()

	id := 42
	got, err := ResolveProductID(0, model.Obra{IDProduto: &id})
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	got, err = ResolveProductID(7, model.Obra{IDProduto: &id})
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	_, err = ResolveProductID(0, model.Obra{})
	assert.ErrorIs(t, err, ErrProductIDRequired)
}

func readyMappings(t *testing.T, units []model.Unit) Mappings {
	t.Helper()
	ms := NewMappings()
	ms.AutoMap(AvailableFields(units, nil))
	require.NoError(t, ms.SetManual(FieldNomeTorre, model.CategoryTorre, "Torre A"))
	require.NoError(t, ms.SetSource(FieldQtdQuarto, model.CategoryPropriedade, "quartos"))
	return ms
}

func TestBuildPayload(t *testing.T) {
	t.Parallel()

	units := sampleUnits()
	ms := readyMappings(t, units)
	obra := model.Obra{CodigoObra: "OB1", NomeObra: "Residencial Sol", DataFimObra: "31/12/2025"}
	statuses := []model.StatusMapping{{StatusERP: "Vendido", StatusTRSID: 4}}

	p, err := BuildPayload(obra, units, ms, statuses, 99, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 99, p.IDProduto)

	require.Len(t, p.Torres, 1)
	assert.Equal(t, model.Tower{
		Name:         "Torre A",
		Description:  "Torre importada do ERP - Residencial Sol",
		QtyFloors:    2,
		QtyColumns:   2,
		DeliveryDate: "2025-12-31",
		Status:       "1",
		GroundFloor:  "0",
		UnitPattern:  "1",
		IDExterno:    "OB1",
	}, p.Torres[0])

	require.Len(t, p.Tipologias, 2)
	assert.Equal(t, model.Typology{
		Name: "2Q", Tipology: "2Q", UsableArea: "45.5", TotalArea: "60.25", Padrao: 1, IDExterno: "2Q",
		Properties: []model.TypologyProperty{{Name: "Quarto", Quantity: 2}},
	}, p.Tipologias[0])
	assert.Equal(t, "3Q", p.Tipologias[1].Name)
	assert.Equal(t, 0, p.Tipologias[1].Padrao)
	assert.Equal(t, "0", p.Tipologias[1].UsableArea)
	assert.Equal(t, []model.TypologyProperty{{Name: "Quarto", Quantity: 3}}, p.Tipologias[1].Properties)

	require.Len(t, p.Unidades, 3)
	u1, u2, u3 := p.Unidades[0], p.Unidades[1], p.Unidades[2]

	assert.Equal(t, "0", u1.IDTorre)
	assert.Equal(t, "0", u1.IDTipologia)
	assert.Equal(t, 1, u1.Floor)
	assert.Equal(t, "101", u1.UnityNumber)
	assert.Equal(t, "Apto 101", u1.UnityNumberCustom)
	assert.Equal(t, "4", u1.Status, "status mapping overrides")
	assert.Equal(t, "101", u1.IDExterno)
	assert.Equal(t, "60.25", u1.AreaTotal)
	assert.True(t, u1.Cadastrar)
	assert.Equal(t, "0", u1.PercentageUnity)

	assert.Equal(t, "102", u2.UnityNumberCustom, "custom falls back to unity number")
	assert.Equal(t, "1", u2.Status)
	assert.Empty(t, u2.AreaTotal)

	assert.Equal(t, "1", u3.IDTipologia)
	assert.Equal(t, 2, u3.Floor)
	assert.Equal(t, "3", u3.Status)
	assert.Equal(t, "EXT-201", u3.IDExterno)
}

func TestBuildPayload_TemplateAndDefaults(t *testing.T) {
	t.Parallel()

	units := []model.Unit{
		{"codigoUnidade": "QD 05 LT 12"},
		{"codigoUnidade": "QD 05 LT 13"},
		{"codigoUnidade": "QD 07 LT 01"},
	}
	ms := NewMappings()
	ms.AutoMap(AvailableFields(units, nil))
	res := TestTemplate(Patterns[0].Config, "QD 05 LT 12")
	require.NoError(t, ms.ApplyTemplateToAll(Patterns[0].Config, &res))

	p, err := BuildPayload(model.Obra{CodigoObra: "LOT", NomeObra: "Loteamento"}, units, ms, nil, 1, fixedNow)
	require.NoError(t, err)

	tw := p.Torres[0]
	assert.Equal(t, "Loteamento", tw.Name, "tower name falls back to obra name")
	assert.Equal(t, 7, tw.QtyFloors)
	assert.Equal(t, 2, tw.QtyColumns)
	assert.Equal(t, "2025-03-15", tw.DeliveryDate)
	assert.Equal(t, "1", tw.UnitPattern)

	require.Len(t, p.Tipologias, 1)
	assert.Equal(t, "Padrão", p.Tipologias[0].Name)
	assert.Empty(t, p.Tipologias[0].Properties)

	assert.Equal(t, "0512", p.Unidades[0].UnityNumber)
	assert.Equal(t, "QD05LT12", p.Unidades[0].UnityNumberCustom)
	assert.Equal(t, 5, p.Unidades[0].Floor)
	assert.Equal(t, "1", p.Unidades[0].Status, "situacao default")
	assert.Equal(t, "QD 05 LT 12", p.Unidades[0].IDExterno)
}

func TestBuildPayload_Errors(t *testing.T) {
	t.Parallel()

	_, err := BuildPayload(model.Obra{}, nil, NewMappings(), nil, 1, fixedNow)
	assert.ErrorIs(t, err, ErrNoUnits)

	_, err = BuildPayload(model.Obra{}, sampleUnits(), NewMappings(), nil, 0, fixedNow)
	assert.ErrorIs(t, err, ErrProductIDRequired)
}

func TestBuildExternalIDItems(t *testing.T) {
	t.Parallel()

	items := BuildExternalIDItems([]model.Unit{
		{"codigoUnidade": "101"},
		{"descricaoUnidade": "Casa 2"},
		{"codigoUnidade": ""},
		{},
	})
	assert.Equal(t, []model.ExternalIDUnitItem{{IdentificadorUnid: "101"}, {IdentificadorUnid: "Casa 2"}}, items)
}
