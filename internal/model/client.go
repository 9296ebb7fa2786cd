package model

import (
	"strconv"
	"strings"
)

// ClientRecord 待导入 CRM 的客户记录
// 字段名与 manageclients 接口参数一致
type ClientRecord struct {
	IDClienteLegado string `json:"id_cliente_legado"`
	Nome            string `json:"nome"`
	Email           string `json:"email"`

	DDDResidencial string `json:"ddd_residencial,omitempty"`
	TelResidencial string `json:"tel_residencial,omitempty"`
	DDDCelular     string `json:"ddd_celular,omitempty"`
	TelCelular     string `json:"tel_celular,omitempty"`
	DDDComercial   string `json:"ddd_comercial,omitempty"`
	TelComercial   string `json:"tel_comercial,omitempty"`

	// 参考表解析出的 ID（未匹配时为 nil）
	IDUsuario     *int `json:"id_usuario,omitempty"`
	IDProduto     *int `json:"id_produto,omitempty"`
	IDCanalOrigem *int `json:"id_canal_origem,omitempty"`
	IDMidia       *int `json:"id_midia,omitempty"`
	IDMomento     *int `json:"id_momento,omitempty"`
	IDSubmomento  *int `json:"id_submomento,omitempty"`
	IDTemperatura *int `json:"id_temperatura,omitempty"`
	IDObjetivo    *int `json:"id_objetivo,omitempty"`

	Status           string `json:"status,omitempty"`
	MotivoNaoCliente string `json:"motivo_nao_cliente,omitempty"`
	DataCadastro     string `json:"data_cadastro,omitempty"`
	DataAtualizacao  string `json:"data_atualizacao,omitempty"`
	DataCriacao      string `json:"data_criacao,omitempty"`

	Endereco    string `json:"endereco,omitempty"`
	CEP         string `json:"cep,omitempty"`
	Numero      string `json:"numero,omitempty"`
	Complemento string `json:"complemento,omitempty"`
	Bairro      string `json:"bairro,omitempty"`
	Cidade      string `json:"cidade,omitempty"`
	UF          string `json:"UF,omitempty"`

	LogradouroComercial  string `json:"logradouro_comercial,omitempty"`
	BairroComercial      string `json:"bairro_comercial,omitempty"`
	CEPComercial         string `json:"cep_comercial,omitempty"`
	CidadeComercial      string `json:"cidade_comercial,omitempty"`
	ComplementoComercial string `json:"complemento_comercial,omitempty"`

	Sexo           string `json:"sexo,omitempty"`
	CPF            string `json:"cpf,omitempty"`
	RG             string `json:"rg,omitempty"`
	Email2         string `json:"email2,omitempty"`
	Email3         string `json:"email3,omitempty"`
	Profissao      string `json:"profissao,omitempty"`
	Cargo          string `json:"cargo,omitempty"`
	DataNascimento string `json:"data_nascimento,omitempty"`
	EstadoCivil    string `json:"estado_civil,omitempty"`
	Descricao      string `json:"descricao,omitempty"`

	RendaMensal    int    `json:"renda_mensal"`
	FGTS           int    `json:"fgts"`
	QtdDependentes int    `json:"qtd_dependentes"`
	ValorEntrada   int    `json:"valor_entrada"`
	RendaFamiliar  string `json:"renda_familiar,omitempty"`

	NomeConjuge         string `json:"nome_conjuge,omitempty"`
	ConjugeDtNascimento string `json:"conjuge_dt_nascimento,omitempty"`
	ConjugeEstadoCivil  string `json:"conjuge_estado_civil,omitempty"`
	ConjugeProfissao    string `json:"conjuge_profissao,omitempty"`
	ConjugeRendaMensal  string `json:"conjuge_renda_mensal,omitempty"`
	ConjugeSexo         string `json:"conjuge_sexo,omitempty"`
	ConjugeCPF          string `json:"conjuge_cpf,omitempty"`

	Excluido string `json:"excluido"`

	// 未识别列：规范化列名 -> 原始值
	Extra map[string]string `json:"extra,omitempty"`
}

// textFields 文本字段名 -> 字段指针
func (c *ClientRecord) textFields() map[string]*string {
	return map[string]*string{
		"id_cliente_legado":     &c.IDClienteLegado,
		"nome":                  &c.Nome,
		"email":                 &c.Email,
		"ddd_residencial":       &c.DDDResidencial,
		"tel_residencial":       &c.TelResidencial,
		"ddd_celular":           &c.DDDCelular,
		"tel_celular":           &c.TelCelular,
		"ddd_comercial":         &c.DDDComercial,
		"tel_comercial":         &c.TelComercial,
		"status":                &c.Status,
		"motivo_nao_cliente":    &c.MotivoNaoCliente,
		"data_cadastro":         &c.DataCadastro,
		"data_atualizacao":      &c.DataAtualizacao,
		"data_criacao":          &c.DataCriacao,
		"endereco":              &c.Endereco,
		"cep":                   &c.CEP,
		"numero":                &c.Numero,
		"complemento":           &c.Complemento,
		"bairro":                &c.Bairro,
		"cidade":                &c.Cidade,
		"UF":                    &c.UF,
		"logradouro_comercial":  &c.LogradouroComercial,
		"bairro_comercial":      &c.BairroComercial,
		"cep_comercial":         &c.CEPComercial,
		"cidade_comercial":      &c.CidadeComercial,
		"complemento_comercial": &c.ComplementoComercial,
		"sexo":                  &c.Sexo,
		"cpf":                   &c.CPF,
		"rg":                    &c.RG,
		"email2":                &c.Email2,
		"email3":                &c.Email3,
		"profissao":             &c.Profissao,
		"cargo":                 &c.Cargo,
		"data_nascimento":       &c.DataNascimento,
		"estado_civil":          &c.EstadoCivil,
		"descricao":             &c.Descricao,
		"renda_familiar":        &c.RendaFamiliar,
		"nome_conjuge":          &c.NomeConjuge,
		"conjuge_dt_nascimento": &c.ConjugeDtNascimento,
		"conjuge_estado_civil":  &c.ConjugeEstadoCivil,
		"conjuge_profissao":     &c.ConjugeProfissao,
		"conjuge_renda_mensal":  &c.ConjugeRendaMensal,
		"conjuge_sexo":          &c.ConjugeSexo,
		"conjuge_cpf":           &c.ConjugeCPF,
		"excluido":              &c.Excluido,
	}
}

// intFields 整数字段名 -> 字段指针
func (c *ClientRecord) intFields() map[string]*int {
	return map[string]*int{
		"renda_mensal":    &c.RendaMensal,
		"fgts":            &c.FGTS,
		"qtd_dependentes": &c.QtdDependentes,
		"valor_entrada":   &c.ValorEntrada,
	}
}

// idFields 可空 ID 字段名 -> 字段指针
func (c *ClientRecord) idFields() map[string]**int {
	return map[string]**int{
		"id_usuario":      &c.IDUsuario,
		"id_produto":      &c.IDProduto,
		"id_canal_origem": &c.IDCanalOrigem,
		"id_midia":        &c.IDMidia,
		"id_momento":      &c.IDMomento,
		"id_submomento":   &c.IDSubmomento,
		"id_temperatura":  &c.IDTemperatura,
		"id_objetivo":     &c.IDObjetivo,
	}
}

// SetText 设置文本字段，字段未知时返回 false
func (c *ClientRecord) SetText(field, value string) bool {
	p, ok := c.textFields()[field]
	if !ok {
		return false
	}
	*p = value
	return true
}

// SetInt 设置整数字段
func (c *ClientRecord) SetInt(field string, value int) bool {
	p, ok := c.intFields()[field]
	if !ok {
		return false
	}
	*p = value
	return true
}

// SetID 设置可空 ID 字段
func (c *ClientRecord) SetID(field string, value *int) bool {
	p, ok := c.idFields()[field]
	if !ok {
		return false
	}
	*p = value
	return true
}

// Value 以字符串形式读取字段（nil ID 返回空串）
func (c *ClientRecord) Value(field string) string {
	if p, ok := c.textFields()[field]; ok {
		return *p
	}
	if p, ok := c.intFields()[field]; ok {
		return strconv.Itoa(*p)
	}
	if p, ok := c.idFields()[field]; ok {
		if *p == nil {
			return ""
		}
		return strconv.Itoa(**p)
	}
	return c.Lookup(field)
}

// SetExtra 记录未识别列
func (c *ClientRecord) SetExtra(key, value string) {
	if c.Extra == nil {
		c.Extra = make(map[string]string)
	}
	c.Extra[key] = value
}

// Lookup 在附加列中按键查找，忽略大小写与首尾空白
func (c *ClientRecord) Lookup(key string) string {
	if len(c.Extra) == 0 {
		return ""
	}
	if v, ok := c.Extra[key]; ok {
		return v
	}
	want := strings.ToLower(strings.TrimSpace(key))
	for k, v := range c.Extra {
		if strings.ToLower(strings.TrimSpace(k)) == want {
			return v
		}
	}
	return ""
}

// IntPtr 返回 v 的指针
func IntPtr(v int) *int {
	return &v
}
