package baseline

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"baize/internal/models"
)

// SQLiteStore 把每个类别的条目集序列化为一行 JSON 落入 SQLite。
// 单类别覆盖写在一条 INSERT OR REPLACE 内完成，天然原子。
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite 打开或创建 path 对应的数据库；目录不存在会创建。
// 返回的 *sql.DB 可与 history 包共用同一文件。
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("baseline: create dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("baseline: open db: %w", err)
	}
	return db, nil
}

// NewSQLiteStore 在 db 上建表并返回基线存储。
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS baseline (
			category   TEXT PRIMARY KEY,
			items      TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("baseline: create table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Has 返回是否已有任意类别的基线。
func (s *SQLiteStore) Has(ctx context.Context) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM baseline").Scan(&n); err != nil {
		return false, fmt.Errorf("baseline: count: %w", err)
	}
	return n > 0, nil
}

// Create 按类别分组写入初始基线；已有数据时整体替换。
// 为保证每个被启用的类别都有基线行（即便当前为空），对全部类别各写一行。
func (s *SQLiteStore) Create(ctx context.Context, items []models.PersistenceItem) error {
	grouped := make(map[models.Category][]models.PersistenceItem)
	for _, it := range items {
		grouped[it.Category] = append(grouped[it.Category], it)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("baseline: begin tx: %w", err)
	}
	defer tx.Rollback()
	for _, cat := range models.AllCategories {
		data, err := json.Marshal(grouped[cat])
		if err != nil {
			return fmt.Errorf("baseline: marshal %s: %w", cat, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO baseline (category, items, updated_at) VALUES (?, ?, ?)",
			string(cat), string(data), time.Now().Unix(),
		); err != nil {
			return fmt.Errorf("baseline: insert %s: %w", cat, err)
		}
	}
	return tx.Commit()
}

// Get 读取一个类别的基线。
func (s *SQLiteStore) Get(ctx context.Context, category models.Category) ([]models.PersistenceItem, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT items FROM baseline WHERE category = ?", string(category),
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNoBaseline
	}
	if err != nil {
		return nil, fmt.Errorf("baseline: get %s: %w", category, err)
	}
	var items []models.PersistenceItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("baseline: unmarshal %s: %w", category, err)
	}
	return items, nil
}

// Update 整体覆盖一个类别的基线；单条 INSERT OR REPLACE，原子生效。
func (s *SQLiteStore) Update(ctx context.Context, category models.Category, items []models.PersistenceItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("baseline: marshal %s: %w", category, err)
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO baseline (category, items, updated_at) VALUES (?, ?, ?)",
		string(category), string(data), time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("baseline: update %s: %w", category, err)
	}
	return nil
}

// Reset 清空全部基线。
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM baseline"); err != nil {
		return fmt.Errorf("baseline: reset: %w", err)
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
