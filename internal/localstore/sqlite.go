package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	updated_at DATETIME NOT NULL
);`

// opTimeout はローカルストア操作1回あたりの上限時間。
const opTimeout = 2 * time.Second

// SQLiteStore はSQLiteファイルに保存する永続Store。
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite はpathのSQLiteファイルを開き、kvテーブルを作成する。
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	// 単一ファイルへの書き込みは1接続に直列化する
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, kvSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize local store: %w", err)
	}

	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

// OpenOrMemory はSQLiteストアを開く。開けない場合は警告を出してMemoryStoreを返す。
func OpenOrMemory(path string, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := OpenSQLite(path, logger)
	if err != nil {
		logger.Warn("ローカルストアを開けないためメモリストアで継続します",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return NewMemoryStore()
	}
	return s
}

// Get はkeyの値を返す。値がない場合や読み込みに失敗した場合はfalseを返す。
func (s *SQLiteStore) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("ローカルストアの読み込みに失敗しました",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	return value, true
}

// Set はkeyに値を保存する。失敗はログ出力のみ。
func (s *SQLiteStore) Set(key string, value []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		s.logger.Warn("ローカルストアへの書き込みに失敗しました",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Remove はkeyを削除する。失敗はログ出力のみ。
func (s *SQLiteStore) Remove(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		s.logger.Warn("ローカルストアからの削除に失敗しました",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Close はデータベース接続を閉じる。
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
