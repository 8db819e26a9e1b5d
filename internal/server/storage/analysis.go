// FILE: lixenwraith/chessassist/internal/server/storage/analysis.go
package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// RecordAnalysis asynchronously appends an audit row
func (s *Store) RecordAnalysis(record AnalysisRecord) error {
	return s.enqueue("analysis record", func(tx *sql.Tx) error {
		query := `INSERT INTO analyses (
			session_id, user_id, provider, fen, suggestions, error, elapsed_ms, applied, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

		_, err := tx.Exec(query,
			record.SessionID, record.UserID, record.Provider, record.FEN,
			record.Suggestions, record.Error, record.ElapsedMs, record.Applied,
			record.CreatedAt,
		)
		return err
	})
}

// QueryAnalyses retrieves audit rows, newest first. "" or "*" matches any
// session or user; limit <= 0 returns everything.
func (s *Store) QueryAnalyses(sessionID, userID string, limit int) ([]AnalysisRecord, error) {
	query := `SELECT
		analysis_id, session_id, user_id, provider, fen, suggestions, error, elapsed_ms, applied, created_at
	FROM analyses WHERE 1=1`

	var args []any

	if sessionID != "" && sessionID != "*" {
		query += " AND session_id = ?"
		args = append(args, sessionID)
	}
	if userID != "" && userID != "*" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	query += " ORDER BY created_at DESC, analysis_id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var records []AnalysisRecord
	for rows.Next() {
		var r AnalysisRecord
		err := rows.Scan(
			&r.AnalysisID, &r.SessionID, &r.UserID, &r.Provider, &r.FEN,
			&r.Suggestions, &r.Error, &r.ElapsedMs, &r.Applied, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return records, nil
}

// DeleteAnalysesBefore prunes audit rows older than cutoff
func (s *Store) DeleteAnalysesBefore(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM analyses WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
