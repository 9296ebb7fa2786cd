package parser

import (
	"strings"
)

// fieldAlias 语义字段及其可接受的表头写法
type fieldAlias struct {
	field   string
	aliases []string
}

// clientFieldAliases 别名表，按声明顺序匹配，先匹配的字段生效
var clientFieldAliases = []fieldAlias{
	{"id_cliente_legado", []string{"id_cliente_legado", "id cliente legado", "cliente legado"}},
	{"produto", []string{"nome do produto / empreendimento", "produto", "nome do produto", "id_produto", "id produto", "empreendimento"}},
	{"usuario", []string{"e-mail do corretor responsavel", "e-mail do corretor", "email do corretor", "corretor responsavel", "id_usuario", "id usuario", "usuario"}},
	{"nome", []string{"nome do cliente obrigatorio", "nome do cliente", "nome completo", "nome_completo", "nome"}},
	{"email", []string{"e-mail do cliente obrigatorio", "e-mail do cliente", "email do cliente", "email cliente", "email", "e-mail"}},
	{"ddd_residencial", []string{"ddd_residencial", "ddd residencial"}},
	{"tel_residencial", []string{"tel_residencial", "telefone residencial", "fone residencial", "telefone"}},
	{"ddd_celular", []string{"ddd_celular", "ddd celular"}},
	{"tel_celular", []string{"tel_celular", "telefone celular", "celular"}},
	{"ddd_comercial", []string{"ddd_comercial", "ddd comercial"}},
	{"tel_comercial", []string{"tel_comercial", "telefone comercial", "fone comercial"}},
	{"status", []string{"status"}},
	{"motivo_nao_cliente", []string{"motivo_nao_cliente", "motivo nao cliente"}},
	{"data_cadastro", []string{"data_cadastro", "data cadastro"}},
	{"endereco", []string{"endereco", "endereço", "logradouro"}},
	{"cep", []string{"cep", "código postal"}},
	{"numero", []string{"numero", "número", "num"}},
	{"complemento", []string{"complemento endereco", "compl endereco"}},
	{"cidade", []string{"cidade", "municipio", "município"}},
	{"UF", []string{"uf", "estado", "sigla estado"}},
	{"sexo", []string{"sexo", "gênero", "genero"}},
	{"cpf", []string{"cpf", "documento"}},
	{"renda_mensal", []string{"renda_mensal", "renda mensal", "renda"}},
	{"fgts", []string{"valor do fgts", "fgts", "saldo fgts"}},
	{"qtd_dependentes", []string{"qtd_dependentes", "dependentes", "qtd dependentes"}},
	{"rg", []string{"rg do cliente", "rg", "identidade"}},
	{"valor_entrada", []string{"valor_entrada", "valor entrada", "entrada"}},
	{"email2", []string{"e-mail 2", "email 2", "segundo email"}},
	{"email3", []string{"e-mail 3", "email 3", "terceiro email"}},
	{"profissao", []string{"profissao", "profissão", "ocupacao", "ocupação"}},
	{"cargo", []string{"cargo", "função", "funcao"}},
	{"data_nascimento", []string{"data_nascimento", "data nascimento", "nascimento", "dt_nascimento"}},
	{"estado_civil", []string{"estado civil"}},
	{"bairro", []string{"bairro", "distrito"}},
	{"descricao", []string{"descricao", "descrição", "observacoes", "observações"}},
	{"bairro_comercial", []string{"bairro_comercial", "bairro comercial"}},
	{"cep_comercial", []string{"cep_comercial", "cep comercial"}},
	{"cidade_comercial", []string{"cidade_comercial", "cidade comercial"}},
	{"complemento_comercial", []string{"complemento_comercial", "complemento comercial"}},
	{"conjuge_dt_nascimento", []string{"conjuge_dt_nascimento", "conjuge data nascimento", "dt nasc conjuge"}},
	{"conjuge_estado_civil", []string{"conjuge_estado_civil", "conjuge estado civil"}},
	{"canal_origem", []string{"canal_origem", "canal origem", "canal", "id_canal_origem", "id canal origem", "canal de origem"}},
	{"midia_origem", []string{"midia_origem", "midia origem", "midia", "id_midia", "id midia", "mídia", "mídia origem"}},
	{"momento", []string{"momento", "id_momento", "id momento", "momento obrigatorio"}},
	{"submomento", []string{"submomento", "id_submomento", "id submomento", "sub_momento", "sub momento (verificar aba complementar *) obrigatorio"}},
	{"temperatura", []string{"temperatura", "id_temperatura", "id temperatura"}},
	{"objetivo", []string{"objetivo", "id_objetivo", "id objetivo"}},
	{"conjuge_profissao", []string{"conjuge_profissao", "conjuge profissao", "profissao conjuge", "profissão cônjuge"}},
	{"conjuge_renda_mensal", []string{"conjuge_renda_mensal", "conjuge renda mensal", "renda mensal conjuge"}},
	{"conjuge_sexo", []string{"conjuge_sexo", "conjuge sexo", "sexo conjuge"}},
	{"conjuge_cpf", []string{"conjuge_cpf", "conjuge cpf", "cpf conjuge"}},
	{"nome_conjuge", []string{"nome_conjuge", "nome conjuge", "conjuge nome", "cônjuge nome"}},
	{"data_atualizacao", []string{"data_atualizacao", "data atualizacao", "data atualização"}},
	{"data_criacao", []string{"data_criacao", "data criacao", "data criação"}},
	{"renda_familiar", []string{"renda_familiar", "renda familiar"}},
	{"logradouro_comercial", []string{"logradouro_comercial", "logradouro comercial", "endereco comercial"}},
}

// ColumnMapper 表头 -> 语义字段映射器
type ColumnMapper struct {
	aliases []fieldAlias // 已规范化的别名表
}

// NewColumnMapper 创建列映射器
func NewColumnMapper() *ColumnMapper {
	normalized := make([]fieldAlias, len(clientFieldAliases))
	for i, fa := range clientFieldAliases {
		list := make([]string, len(fa.aliases))
		for j, a := range fa.aliases {
			list[j] = NormalizeText(a)
		}
		normalized[i] = fieldAlias{field: fa.field, aliases: list}
	}
	return &ColumnMapper{aliases: normalized}
}

// Map 映射表头，未识别的列不出现在结果中
func (m *ColumnMapper) Map(headers []string) ColumnMapping {
	mapping := make(ColumnMapping)

	for idx, header := range headers {
		col := NormalizeText(header)
		if col == "" {
			continue
		}
		if field := m.MapHeader(col); field != "" {
			mapping[idx] = field
		}
	}

	return mapping
}

// MapHeader 映射单个已规范化表头
func (m *ColumnMapper) MapHeader(col string) string {
	// SUB MOMENTO 复合表头优先
	if strings.Contains(col, "sub momento") && strings.Contains(col, "verificar aba complementar") {
		return "submomento"
	}

	// 电话规则必须先于别名表，避免 "celular"/"telefone" 互相覆盖
	if strings.Contains(col, "telefone celular") {
		return "tel_celular"
	}
	if strings.Contains(col, "telefone comercial") {
		return "tel_comercial"
	}
	if strings.Contains(col, "telefone residencial") {
		return "tel_residencial"
	}
	if col == "telefone" {
		return "tel_residencial"
	}

	for _, fa := range m.aliases {
		if ContainsAny(col, fa.aliases) {
			return fa.field
		}
	}
	return ""
}

// KnownFields 别名表中的全部字段（按声明顺序）
func KnownFields() []string {
	out := make([]string, len(clientFieldAliases))
	for i, fa := range clientFieldAliases {
		out[i] = fa.field
	}
	return out
}
