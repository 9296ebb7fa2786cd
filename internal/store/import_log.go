package store

import (
	"database/sql"
	"fmt"

	"hypnotools/internal/model"
)

// 导入状态
const (
	ImportStatusProcessing = "processing"
	ImportStatusCompleted  = "completed"
	ImportStatusPartial    = "partial"
	ImportStatusFailed     = "failed"
	ImportStatusCancelled  = "cancelled"
)

// CreateImportLog 创建导入记录，返回 import_log_id
func (s *Store) CreateImportLog(runID, filename string, fileSize int64, empresa string) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO import_logs (run_id, filename, file_size, empresa, status)
		VALUES (?, ?, ?, ?, 'processing')
	`, runID, filename, fileSize, empresa)
	if err != nil {
		return 0, fmt.Errorf("failed to create import log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get import log id: %w", err)
	}
	return id, nil
}

// ImportLogUpdate 完成时回写的统计
type ImportLogUpdate struct {
	TotalRows      int
	ValidRows      int
	ProcessedCount int
	ErrorCount     int
	ReportPath     string
	LogPath        string
	Status         string
	ErrorMessage   string
}

// UpdateImportLog 完成导入记录更新
func (s *Store) UpdateImportLog(id int64, u ImportLogUpdate) error {
	_, err := s.db.Exec(`
		UPDATE import_logs SET
			total_rows = ?,
			valid_rows = ?,
			processed_count = ?,
			error_count = ?,
			report_path = ?,
			log_path = ?,
			status = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, u.TotalRows, u.ValidRows, u.ProcessedCount, u.ErrorCount, u.ReportPath, u.LogPath, u.Status, u.ErrorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update import log: %w", err)
	}
	return nil
}

// InsertImportErrors 在一个事务内批量写入错误行
func (s *Store) InsertImportErrors(importLogID int64, errs []model.ImportError) error {
	if len(errs) == 0 {
		return nil
	}

	return s.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO import_errors (import_log_id, row_num, field, message)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range errs {
			if _, err := stmt.Exec(importLogID, e.Row, e.Field, e.Message); err != nil {
				return fmt.Errorf("failed to insert import error (row %d): %w", e.Row, err)
			}
		}
		return nil
	})
}

// ListImportLogs 最近的导入记录，按创建时间倒序
func (s *Store) ListImportLogs(limit int) ([]model.ImportRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, run_id, filename, empresa, status, total_rows, valid_rows,
			processed_count, error_count, report_path, log_path, error_message,
			created_at, completed_at
		FROM import_logs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import logs: %w", err)
	}
	defer rows.Close()

	var out []model.ImportRun
	for rows.Next() {
		run, err := scanImportRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// GetImportLog 按 run_id 查询
func (s *Store) GetImportLog(runID string) (*model.ImportRun, error) {
	row := s.db.QueryRow(`
		SELECT id, run_id, filename, empresa, status, total_rows, valid_rows,
			processed_count, error_count, report_path, log_path, error_message,
			created_at, completed_at
		FROM import_logs
		WHERE run_id = ?
	`, runID)
	run, err := scanImportRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("import run not found: %s", runID)
	}
	return run, err
}

// ListImportErrors 某次导入的错误行
func (s *Store) ListImportErrors(importLogID int64) ([]model.ImportError, error) {
	rows, err := s.db.Query(`
		SELECT row_num, field, message FROM import_errors
		WHERE import_log_id = ?
		ORDER BY id
	`, importLogID)
	if err != nil {
		return nil, fmt.Errorf("failed to list import errors: %w", err)
	}
	defer rows.Close()

	var out []model.ImportError
	for rows.Next() {
		var e model.ImportError
		if err := rows.Scan(&e.Row, &e.Field, &e.Message); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanImportRun(r rowScanner) (*model.ImportRun, error) {
	var run model.ImportRun
	var completed sql.NullString
	err := r.Scan(&run.ID, &run.RunID, &run.Filename, &run.Empresa, &run.Status,
		&run.TotalRows, &run.ValidRows, &run.ProcessedCount, &run.ErrorCount,
		&run.ReportPath, &run.LogPath, &run.ErrorMessage, &run.CreatedAt, &completed)
	if err != nil {
		return nil, err
	}
	run.CompletedAt = completed.String
	return &run, nil
}
