package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"hypnotools/internal/model"
)

// SaveERPMapping 保存某项目最近一次使用的映射
func (s *Store) SaveERPMapping(empresa, codigoObra string, mappings []model.FieldMapping, statuses []model.StatusMapping) error {
	m, err := json.Marshal(mappings)
	if err != nil {
		return fmt.Errorf("failed to encode mappings: %w", err)
	}
	if statuses == nil {
		statuses = []model.StatusMapping{}
	}
	st, err := json.Marshal(statuses)
	if err != nil {
		return fmt.Errorf("failed to encode status mappings: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO erp_mappings (empresa, codigo_obra, mappings, status_mappings)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(empresa, codigo_obra) DO UPDATE SET
			mappings = excluded.mappings,
			status_mappings = excluded.status_mappings,
			updated_at = CURRENT_TIMESTAMP
	`, empresa, codigoObra, string(m), string(st))
	if err != nil {
		return fmt.Errorf("failed to save erp mapping: %w", err)
	}
	return nil
}

// LoadERPMapping 读取保存的映射，不存在时 found=false
func (s *Store) LoadERPMapping(empresa, codigoObra string) (mappings []model.FieldMapping, statuses []model.StatusMapping, found bool, err error) {
	var m, st string
	err = s.db.QueryRow(`
		SELECT mappings, status_mappings FROM erp_mappings
		WHERE empresa = ? AND codigo_obra = ?
	`, empresa, codigoObra).Scan(&m, &st)
	if err == sql.ErrNoRows {
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to load erp mapping: %w", err)
	}
	if err := json.Unmarshal([]byte(m), &mappings); err != nil {
		return nil, nil, false, fmt.Errorf("failed to decode mappings: %w", err)
	}
	if err := json.Unmarshal([]byte(st), &statuses); err != nil {
		return nil, nil, false, fmt.Errorf("failed to decode status mappings: %w", err)
	}
	return mappings, statuses, true, nil
}
