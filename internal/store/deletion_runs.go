package store

import (
	"encoding/json"
	"fmt"
)

// DeletionRun 批量删除记录
type DeletionRun struct {
	ID           int64  `json:"id"`
	RunID        string `json:"runId"`
	UserEmail    string `json:"userEmail"`
	Reason       string `json:"reason"`
	RequestedIDs []int  `json:"requestedIds"`
	ValidCount   int    `json:"validCount"`
	InvalidCount int    `json:"invalidCount"`
	DeletedCount int    `json:"deletedCount"`
	FailedCount  int    `json:"failedCount"`
	LogFileName  string `json:"logFileName,omitempty"`
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

// InsertDeletionRun 写入一次删除记录
func (s *Store) InsertDeletionRun(run *DeletionRun) (int64, error) {
	ids, err := json.Marshal(run.RequestedIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to encode ids: %w", err)
	}
	res, err := s.db.Exec(`
		INSERT INTO deletion_runs (run_id, user_email, reason, requested_ids,
			valid_count, invalid_count, deleted_count, failed_count,
			log_file_name, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.RunID, run.UserEmail, run.Reason, string(ids),
		run.ValidCount, run.InvalidCount, run.DeletedCount, run.FailedCount,
		run.LogFileName, run.Status, run.ErrorMessage)
	if err != nil {
		return 0, fmt.Errorf("failed to insert deletion run: %w", err)
	}
	return res.LastInsertId()
}

// ListDeletionRuns 最近的删除记录
func (s *Store) ListDeletionRuns(limit int) ([]DeletionRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, run_id, user_email, reason, requested_ids, valid_count, invalid_count,
			deleted_count, failed_count, log_file_name, status, error_message, created_at
		FROM deletion_runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deletion runs: %w", err)
	}
	defer rows.Close()

	var out []DeletionRun
	for rows.Next() {
		var r DeletionRun
		var ids string
		if err := rows.Scan(&r.ID, &r.RunID, &r.UserEmail, &r.Reason, &ids,
			&r.ValidCount, &r.InvalidCount, &r.DeletedCount, &r.FailedCount,
			&r.LogFileName, &r.Status, &r.ErrorMessage, &r.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ids), &r.RequestedIDs); err != nil {
			return nil, fmt.Errorf("failed to decode ids of run %s: %w", r.RunID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
