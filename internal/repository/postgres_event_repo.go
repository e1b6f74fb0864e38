package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/marga/internal/model"
)

const eventColumns = `id, source_id, guid, partner_email, spot_name, title, description,
	event_type, price, event_date, link, image_url, created_at, updated_at`

// PostgresEventRepo はPostgreSQLを使用したイベントリポジトリ。
type PostgresEventRepo struct {
	db *sql.DB
}

// NewPostgresEventRepo はPostgresEventRepoを生成する。
func NewPostgresEventRepo(db *sql.DB) *PostgresEventRepo {
	return &PostgresEventRepo{db: db}
}

func scanEvent(row rowScanner) (*model.HeritageEvent, error) {
	e := &model.HeritageEvent{}
	var sourceID sql.NullString
	if err := row.Scan(&e.ID, &sourceID, &e.GUID, &e.PartnerEmail, &e.SpotName,
		&e.Title, &e.Description, &e.EventType, &e.Price, &e.EventDate,
		&e.Link, &e.ImageURL, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.SourceID = nullStringValue(sourceID)
	return e, nil
}

func (r *PostgresEventRepo) findOne(ctx context.Context, where string, args ...any) (*model.HeritageEvent, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM heritage_events WHERE `+where+` LIMIT 1`, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	return e, nil
}

// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
func (r *PostgresEventRepo) FindByID(ctx context.Context, id string) (*model.HeritageEvent, error) {
	return r.findOne(ctx, `id = $1`, id)
}

// FindBySourceAndGUID はsource_idとguidでイベントを検索する。
func (r *PostgresEventRepo) FindBySourceAndGUID(ctx context.Context, sourceID, guid string) (*model.HeritageEvent, error) {
	return r.findOne(ctx, `source_id = $1 AND guid = $2`, sourceID, guid)
}

// FindBySourceAndLink はsource_idとlinkでイベントを検索する。
func (r *PostgresEventRepo) FindBySourceAndLink(ctx context.Context, sourceID, link string) (*model.HeritageEvent, error) {
	return r.findOne(ctx, `source_id = $1 AND link = $2`, sourceID, link)
}

// Create は新規イベントを作成する。
func (r *PostgresEventRepo) Create(ctx context.Context, e *model.HeritageEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO heritage_events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.ID, nullString(e.SourceID), e.GUID, e.PartnerEmail, e.SpotName,
		e.Title, e.Description, e.EventType, e.Price, e.EventDate,
		e.Link, e.ImageURL, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("イベントの作成に失敗しました: %w", err)
	}
	return nil
}

// Update は既存イベントを上書き更新する。
func (r *PostgresEventRepo) Update(ctx context.Context, e *model.HeritageEvent) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE heritage_events SET
		    guid = $2, spot_name = $3, title = $4, description = $5,
		    event_type = $6, price = $7, event_date = $8, link = $9,
		    image_url = $10, updated_at = $11
		 WHERE id = $1`,
		e.ID, e.GUID, e.SpotName, e.Title, e.Description,
		e.EventType, e.Price, e.EventDate, e.Link,
		e.ImageURL, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("イベントの更新に失敗しました: %w", err)
	}
	return nil
}

// ListUpcoming はfrom以降のイベントを開催日の昇順で返す。
func (r *PostgresEventRepo) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]*model.HeritageEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM heritage_events
		 WHERE event_date >= $1
		 ORDER BY event_date ASC, id ASC
		 LIMIT $2`,
		from, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	events := []*model.HeritageEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("イベントの読み取りに失敗しました: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("イベント一覧の走査に失敗しました: %w", err)
	}
	return events, nil
}

// DeleteByID は指定IDのイベントを削除する。
func (r *PostgresEventRepo) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM heritage_events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("イベントの削除に失敗しました: %w", err)
	}
	return nil
}

// DeleteOlderThan は開催日がbeforeより前のイベントを削除する。
func (r *PostgresEventRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM heritage_events WHERE event_date < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("古いイベントの削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ EventRepository = (*PostgresEventRepo)(nil)
