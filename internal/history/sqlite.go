package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"baize/internal/models"
)

// SQLiteStore 变更历史的 SQLite 实现；与基线共用同一数据库文件。
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore 在 db 上建表并返回历史存储。
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS change_history (
			id            TEXT PRIMARY KEY,
			ts            INTEGER NOT NULL,
			category      TEXT NOT NULL,
			change_type   TEXT NOT NULL,
			identifier    TEXT NOT NULL,
			name          TEXT NOT NULL,
			field_changes TEXT,
			relevance     INTEGER NOT NULL,
			notified      INTEGER NOT NULL DEFAULT 0,
			acknowledged  INTEGER NOT NULL DEFAULT 0,
			ai_severity   TEXT,
			ai_summary    TEXT
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("history: create table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save 写入一条变更记录。
func (s *SQLiteStore) Save(ctx context.Context, rec *models.ChangeRecord) error {
	if rec == nil {
		return nil
	}
	changes, err := json.Marshal(rec.FieldChanges)
	if err != nil {
		return fmt.Errorf("history: marshal changes: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO change_history
			(id, ts, category, change_type, identifier, name, field_changes,
			 relevance, notified, acknowledged, ai_severity, ai_summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.Unix(), string(rec.Category), string(rec.ChangeType),
		rec.Identifier, rec.Name, string(changes),
		rec.Relevance, boolToInt(rec.Notified), boolToInt(rec.Acknowledged),
		rec.AISeverity, rec.AISummary,
	)
	if err != nil {
		return fmt.Errorf("history: save: %w", err)
	}
	return nil
}

// UnacknowledgedCount 返回未知悉记录数。
func (s *SQLiteStore) UnacknowledgedCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM change_history WHERE acknowledged = 0",
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("history: count: %w", err)
	}
	return n, nil
}

// Acknowledge 按 ID 标记知悉。
func (s *SQLiteStore) Acknowledge(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE change_history SET acknowledged = 1 WHERE id = ?", id,
	); err != nil {
		return fmt.Errorf("history: acknowledge: %w", err)
	}
	return nil
}

// AcknowledgeAll 标记全部记录为已知悉。
func (s *SQLiteStore) AcknowledgeAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE change_history SET acknowledged = 1 WHERE acknowledged = 0",
	); err != nil {
		return fmt.Errorf("history: acknowledge all: %w", err)
	}
	return nil
}

// PruneOlderThan 删除早于 days 天的记录。
func (s *SQLiteStore) PruneOlderThan(ctx context.Context, days int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -days).Unix()
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM change_history WHERE ts < ?", cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ Store = (*SQLiteStore)(nil)
