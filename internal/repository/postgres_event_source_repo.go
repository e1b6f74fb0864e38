package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/marga/internal/model"
)

const eventSourceColumns = `id, feed_url, site_url, title, etag, last_modified, fetch_status,
	consecutive_errors, error_message, next_fetch_at, created_at, updated_at`

// PostgresEventSourceRepo はPostgreSQLを使用したイベント取り込み元リポジトリ。
type PostgresEventSourceRepo struct {
	db *sql.DB
}

// NewPostgresEventSourceRepo はPostgresEventSourceRepoを生成する。
func NewPostgresEventSourceRepo(db *sql.DB) *PostgresEventSourceRepo {
	return &PostgresEventSourceRepo{db: db}
}

func scanEventSource(row rowScanner) (*model.EventSource, error) {
	s := &model.EventSource{}
	if err := row.Scan(&s.ID, &s.FeedURL, &s.SiteURL, &s.Title, &s.ETag, &s.LastModified,
		&s.FetchStatus, &s.ConsecutiveErrors, &s.ErrorMessage, &s.NextFetchAt,
		&s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return s, nil
}

// EnsureByURL はフィードURLに対応するソースを返す。未登録の場合は作成する。
func (r *PostgresEventSourceRepo) EnsureByURL(ctx context.Context, feedURL string) (*model.EventSource, error) {
	s, err := scanEventSource(r.db.QueryRowContext(ctx,
		`INSERT INTO event_sources (id, feed_url)
		 VALUES ($1, $2)
		 ON CONFLICT (feed_url) DO UPDATE SET feed_url = EXCLUDED.feed_url
		 RETURNING `+eventSourceColumns,
		uuid.NewString(), feedURL,
	))
	if err != nil {
		return nil, fmt.Errorf("取り込み元フィードの登録に失敗しました: %w", err)
	}
	return s, nil
}

// ListDueForFetch はフェッチ対象のソースを取得する。
func (r *PostgresEventSourceRepo) ListDueForFetch(ctx context.Context) ([]*model.EventSource, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventSourceColumns+` FROM event_sources
		 WHERE next_fetch_at <= now() AND fetch_status = 'active'
		 ORDER BY next_fetch_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("フェッチ対象フィードの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var sources []*model.EventSource
	for rows.Next() {
		s, err := scanEventSource(rows)
		if err != nil {
			return nil, fmt.Errorf("フェッチ対象フィードの読み取りに失敗しました: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("フェッチ対象フィードの走査に失敗しました: %w", err)
	}
	return sources, nil
}

// UpdateFetchState はソースのフェッチ状態を更新する。
func (r *PostgresEventSourceRepo) UpdateFetchState(ctx context.Context, s *model.EventSource) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE event_sources SET
		    title = $2,
		    site_url = $3,
		    fetch_status = $4,
		    consecutive_errors = $5,
		    error_message = $6,
		    next_fetch_at = $7,
		    etag = $8,
		    last_modified = $9,
		    updated_at = now()
		 WHERE id = $1`,
		s.ID, s.Title, s.SiteURL, s.FetchStatus, s.ConsecutiveErrors,
		s.ErrorMessage, s.NextFetchAt, s.ETag, s.LastModified,
	)
	if err != nil {
		return fmt.Errorf("フェッチ状態の更新に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ EventSourceRepository = (*PostgresEventSourceRepo)(nil)
