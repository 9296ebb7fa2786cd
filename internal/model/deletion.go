package model

// DeletionRequest 批量删除请求
type DeletionRequest struct {
	ClientIDs       []int  `json:"clientIds" validate:"required,min=1,max=1000,dive,gt=0"`
	Reason          string `json:"reason" validate:"required,min=10"`
	UserEmail       string `json:"userEmail" validate:"required,email"`
	ConfirmDeletion bool   `json:"confirmDeletion,omitempty" validate:"eq=true"`
}

// DeletionResponse 批量删除接口返回
type DeletionResponse struct {
	Success      bool             `json:"success"`
	DeletedCount int              `json:"deletedCount"`
	FailedCount  int              `json:"failedCount"`
	LogFileName  string           `json:"logFileName"`
	Errors       []string         `json:"errors,omitempty"`
	Details      []DeletionDetail `json:"details,omitempty"`
}

// DeletionDetail 单个客户删除明细
type DeletionDetail struct {
	ClientID       int      `json:"clientId"`
	ClientName     string   `json:"clientName,omitempty"`
	Success        bool     `json:"success"`
	Error          string   `json:"error,omitempty"`
	AffectedTables []string `json:"affectedTables"`
	RecordsDeleted int      `json:"recordsDeleted"`
}

// DeletionValidation 删除前校验结果
type DeletionValidation struct {
	ValidIDs             []int          `json:"validIds"`
	InvalidIDs           []int          `json:"invalidIds"`
	ClientDetails        []ClientDetail `json:"clientDetails"`
	TotalRecordsToDelete int            `json:"totalRecordsToDelete"`
	AffectedTables       []string       `json:"affectedTables"`
}

// ClientDetail 校验返回的客户信息
type ClientDetail struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	CPF              string `json:"cpf,omitempty"`
	RegistrationDate string `json:"registrationDate"`
}

// AffectedTableStat 受影响表统计
type AffectedTableStat struct {
	TableName   string `json:"tableName"`
	RecordCount int    `json:"recordCount"`
	Description string `json:"description"`
}
