package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresSavedPlaceRepo はPostgreSQLを使用した保存済みスポットリポジトリ。
type PostgresSavedPlaceRepo struct {
	db *sql.DB
}

// NewPostgresSavedPlaceRepo はPostgresSavedPlaceRepoを生成する。
func NewPostgresSavedPlaceRepo(db *sql.DB) *PostgresSavedPlaceRepo {
	return &PostgresSavedPlaceRepo{db: db}
}

// ListPlaceIDs はユーザーが保存したスポットIDを返す。
func (r *PostgresSavedPlaceRepo) ListPlaceIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT place_id FROM saved_places WHERE user_id = $1 ORDER BY created_at ASC, place_id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("保存済みスポットの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("保存済みスポットの読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("保存済みスポットの走査に失敗しました: %w", err)
	}
	return ids, nil
}

// Add は保存済みスポットを追加する。既に存在する場合は何もしない。
func (r *PostgresSavedPlaceRepo) Add(ctx context.Context, userID, placeID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO saved_places (user_id, place_id, created_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id, place_id) DO NOTHING`,
		userID, placeID,
	)
	if err != nil {
		return fmt.Errorf("保存済みスポットの追加に失敗しました: %w", err)
	}
	return nil
}

// Remove は保存済みスポットを削除する。
func (r *PostgresSavedPlaceRepo) Remove(ctx context.Context, userID, placeID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM saved_places WHERE user_id = $1 AND place_id = $2`,
		userID, placeID,
	)
	if err != nil {
		return fmt.Errorf("保存済みスポットの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SavedPlaceRepository = (*PostgresSavedPlaceRepo)(nil)
