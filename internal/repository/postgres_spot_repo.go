package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/marga/internal/model"
)

const spotColumns = `id, title, category, description, location, rating, lat, lng, image_url, created_at`

// PostgresSpotRepo はPostgreSQLを使用した観光スポットリポジトリ。
type PostgresSpotRepo struct {
	db *sql.DB
}

// NewPostgresSpotRepo はPostgresSpotRepoを生成する。
func NewPostgresSpotRepo(db *sql.DB) *PostgresSpotRepo {
	return &PostgresSpotRepo{db: db}
}

func scanSpot(row rowScanner) (*model.HeritageSpot, error) {
	s := &model.HeritageSpot{}
	if err := row.Scan(&s.ID, &s.Title, &s.Category, &s.Description, &s.Location,
		&s.Rating, &s.Lat, &s.Lng, &s.ImageURL, &s.CreatedAt); err != nil {
		return nil, err
	}
	return s, nil
}

// FindByID は指定IDのスポットを取得する。見つからない場合はnilを返す。
func (r *PostgresSpotRepo) FindByID(ctx context.Context, id string) (*model.HeritageSpot, error) {
	s, err := scanSpot(r.db.QueryRowContext(ctx,
		`SELECT `+spotColumns+` FROM heritage_spots WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("スポットの取得に失敗しました: %w", err)
	}
	return s, nil
}

// List は全スポットを返す。
func (r *PostgresSpotRepo) List(ctx context.Context) ([]*model.HeritageSpot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+spotColumns+` FROM heritage_spots ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("スポット一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var spots []*model.HeritageSpot
	for rows.Next() {
		s, err := scanSpot(rows)
		if err != nil {
			return nil, fmt.Errorf("スポットの読み取りに失敗しました: %w", err)
		}
		spots = append(spots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("スポット一覧の走査に失敗しました: %w", err)
	}
	return spots, nil
}

// compile-time interface check
var _ SpotRepository = (*PostgresSpotRepo)(nil)
