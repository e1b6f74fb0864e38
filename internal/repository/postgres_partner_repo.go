package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/marga/internal/model"
)

const applicationColumns = `id, user_id, full_name, email, spot_name, category, status, reviewed_by, created_at, reviewed_at`

// PostgresPartnerRepo はPostgreSQLを使用したパートナー申請リポジトリ。
type PostgresPartnerRepo struct {
	db *sql.DB
}

// NewPostgresPartnerRepo はPostgresPartnerRepoを生成する。
func NewPostgresPartnerRepo(db *sql.DB) *PostgresPartnerRepo {
	return &PostgresPartnerRepo{db: db}
}

func scanApplication(row rowScanner) (*model.PartnerApplication, error) {
	app := &model.PartnerApplication{}
	var reviewedBy sql.NullString
	var reviewedAt sql.NullTime
	err := row.Scan(&app.ID, &app.UserID, &app.FullName, &app.Email, &app.SpotName,
		&app.Category, &app.Status, &reviewedBy, &app.CreatedAt, &reviewedAt)
	if err != nil {
		return nil, err
	}
	app.ReviewedBy = nullStringValue(reviewedBy)
	if reviewedAt.Valid {
		t := reviewedAt.Time
		app.ReviewedAt = &t
	}
	return app, nil
}

func (r *PostgresPartnerRepo) queryApplications(ctx context.Context, query string, args ...any) ([]*model.PartnerApplication, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list partner applications: %w", err)
	}
	defer rows.Close()

	apps := []*model.PartnerApplication{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan partner application: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate partner applications: %w", err)
	}
	return apps, nil
}

// Create は申請を作成する。
func (r *PostgresPartnerRepo) Create(ctx context.Context, app *model.PartnerApplication) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO partner_applications (id, user_id, full_name, email, spot_name, category, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		app.ID, app.UserID, app.FullName, app.Email, app.SpotName, app.Category, app.Status, app.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert partner application: %w", err)
	}
	return nil
}

// FindByID は指定IDの申請を取得する。見つからない場合はnilを返す。
func (r *PostgresPartnerRepo) FindByID(ctx context.Context, id string) (*model.PartnerApplication, error) {
	app, err := scanApplication(r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM partner_applications WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find partner application: %w", err)
	}
	return app, nil
}

// List は申請を作成日時の新しい順で返す。statusが空の場合は全件。
func (r *PostgresPartnerRepo) List(ctx context.Context, status model.ApplicationStatus) ([]*model.PartnerApplication, error) {
	if status == "" {
		return r.queryApplications(ctx,
			`SELECT `+applicationColumns+` FROM partner_applications ORDER BY created_at DESC, id ASC`)
	}
	return r.queryApplications(ctx,
		`SELECT `+applicationColumns+` FROM partner_applications WHERE status = $1 ORDER BY created_at DESC, id ASC`,
		status)
}

// ListByUser は指定ユーザーの申請を作成日時の新しい順で返す。
func (r *PostgresPartnerRepo) ListByUser(ctx context.Context, userID string) ([]*model.PartnerApplication, error) {
	return r.queryApplications(ctx,
		`SELECT `+applicationColumns+` FROM partner_applications WHERE user_id = $1 ORDER BY created_at DESC, id ASC`,
		userID)
}

// Review は審査待ちの申請に審査結果を記録し、承認であれば認定パートナーを登録する。
func (r *PostgresPartnerRepo) Review(ctx context.Context, app *model.PartnerApplication) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE partner_applications SET status = $2, reviewed_by = $3, reviewed_at = $4
		 WHERE id = $1 AND status = 'pending'`,
		app.ID, app.Status, nullString(app.ReviewedBy), app.ReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update partner application: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	// 同時に別の管理者が審査した
	if rowsAffected == 0 {
		return ErrConflict
	}

	if app.Status == model.ApplicationAccepted {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO verified_partners (user_id, name, email, spot_name, category, verified_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (user_id) DO UPDATE SET
			     name = EXCLUDED.name, email = EXCLUDED.email, spot_name = EXCLUDED.spot_name,
			     category = EXCLUDED.category, verified_at = EXCLUDED.verified_at`,
			app.UserID, app.FullName, app.Email, app.SpotName, app.Category, app.ReviewedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert verified partner: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListVerified は認定パートナーを認定日時の新しい順で返す。
func (r *PostgresPartnerRepo) ListVerified(ctx context.Context) ([]*model.VerifiedPartner, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, name, email, spot_name, category, verified_at
		 FROM verified_partners ORDER BY verified_at DESC, user_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list verified partners: %w", err)
	}
	defer rows.Close()

	partners := []*model.VerifiedPartner{}
	for rows.Next() {
		p := &model.VerifiedPartner{}
		if err := rows.Scan(&p.UserID, &p.Name, &p.Email, &p.SpotName, &p.Category, &p.VerifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan verified partner: %w", err)
		}
		partners = append(partners, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate verified partners: %w", err)
	}
	return partners, nil
}

// compile-time interface check
var _ PartnerApplicationRepository = (*PostgresPartnerRepo)(nil)
