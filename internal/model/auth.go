package model

// LoginRequest 登录请求
type LoginRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Senha   string `json:"senha" validate:"required"`
	Empresa string `json:"empresa" validate:"required"`
}

// LoginResponse 登录返回
type LoginResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Token   string    `json:"token,omitempty"`
	Usuario *UserInfo `json:"usuario,omitempty"`
}

// UserInfo 登录用户
type UserInfo struct {
	IDUsuario int    `json:"idUsuario"`
	Nome      string `json:"nome"`
	Email     string `json:"email"`
	Ativo     bool   `json:"ativo"`
}
