// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/marga/internal/model"
)

// ProfileRepository はプロフィールの永続化インターフェース。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// FindByEmail はメールアドレス（大文字小文字を区別しない）で検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Profile, error)

	// Create はプロフィールを作成する。
	// メールアドレスが既に使われている場合はErrDuplicateを返す。
	Create(ctx context.Context, p *model.Profile) error

	// Update は氏名・電話番号・ロールを更新する。
	Update(ctx context.Context, p *model.Profile) error

	// List は全プロフィールを更新日時の新しい順で返す。
	List(ctx context.Context) ([]*model.Profile, error)

	// DeleteByID は指定IDのプロフィールを削除する。
	// 関連するsessions、saved_places、partner_applicationsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// SavedPlaceRepository は保存済みスポットの永続化インターフェース。
// (user_id, place_id)の集合として扱い、追加・削除はいずれも冪等。
type SavedPlaceRepository interface {
	// ListPlaceIDs はユーザーが保存したスポットIDを保存日時の昇順で返す。
	ListPlaceIDs(ctx context.Context, userID string) ([]string, error)
	// Add は保存済みスポットを追加する。既に存在する場合は何もしない。
	Add(ctx context.Context, userID, placeID string) error
	// Remove は保存済みスポットを削除する。存在しない場合も成功とする。
	Remove(ctx context.Context, userID, placeID string) error
}

// SpotRepository は登録済み観光スポットの参照インターフェース。
type SpotRepository interface {
	// FindByID は指定IDのスポットを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.HeritageSpot, error)
	// List は全スポットを登録日時の新しい順で返す。
	List(ctx context.Context) ([]*model.HeritageSpot, error)
}

// EventRepository はイベントの永続化インターフェース。
// フィード取り込み時の同一性判定はGUID、リンクの順で行う。
type EventRepository interface {
	// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.HeritageEvent, error)

	// FindBySourceAndGUID はsource_idとguidでイベントを検索する。見つからない場合はnilを返す。
	FindBySourceAndGUID(ctx context.Context, sourceID, guid string) (*model.HeritageEvent, error)

	// FindBySourceAndLink はsource_idとlinkでイベントを検索する。見つからない場合はnilを返す。
	FindBySourceAndLink(ctx context.Context, sourceID, link string) (*model.HeritageEvent, error)

	// Create は新規イベントを作成する。
	Create(ctx context.Context, event *model.HeritageEvent) error

	// Update は既存イベントを上書き更新する。
	Update(ctx context.Context, event *model.HeritageEvent) error

	// ListUpcoming はfrom以降に開催されるイベントを開催日の昇順で最大limit件返す。
	ListUpcoming(ctx context.Context, from time.Time, limit int) ([]*model.HeritageEvent, error)

	// DeleteByID は指定IDのイベントを削除する。
	DeleteByID(ctx context.Context, id string) error

	// DeleteOlderThan は開催日がbefore より前のイベントを削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// EventSourceRepository はイベント取り込み元フィードの永続化インターフェース。
type EventSourceRepository interface {
	// EnsureByURL はフィードURLに対応するソースを返す。未登録の場合は作成する。
	EnsureByURL(ctx context.Context, feedURL string) (*model.EventSource, error)

	// ListDueForFetch はnext_fetch_at <= now() かつ fetch_status = 'active' のソースを返す。
	ListDueForFetch(ctx context.Context) ([]*model.EventSource, error)

	// UpdateFetchState はフェッチ状態（status、エラー数、次回時刻、ETag等）を更新する。
	UpdateFetchState(ctx context.Context, src *model.EventSource) error
}

// FeedbackRepository はフィードバックの永続化インターフェース。
type FeedbackRepository interface {
	// Create はフィードバックを保存する。
	Create(ctx context.Context, fb *model.Feedback) error
}

// PartnerApplicationRepository はパートナー申請と認定パートナーの永続化インターフェース。
type PartnerApplicationRepository interface {
	// Create は申請を作成する。
	// 同じユーザー・スポットの審査待ち申請が既にある場合はErrDuplicateを返す。
	Create(ctx context.Context, app *model.PartnerApplication) error

	// FindByID は指定IDの申請を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.PartnerApplication, error)

	// List は申請を作成日時の新しい順で返す。statusが空の場合は全件。
	List(ctx context.Context, status model.ApplicationStatus) ([]*model.PartnerApplication, error)

	// ListByUser は指定ユーザーの申請を作成日時の新しい順で返す。
	ListByUser(ctx context.Context, userID string) ([]*model.PartnerApplication, error)

	// Review は審査待ちの申請に審査結果を記録する。
	// 承認の場合は同一トランザクションで認定パートナーを登録（上書き）する。
	// 申請が審査待ちでなくなっていた場合はErrConflictを返す。
	Review(ctx context.Context, app *model.PartnerApplication) error

	// ListVerified は認定パートナーを認定日時の新しい順で返す。
	ListVerified(ctx context.Context) ([]*model.VerifiedPartner, error)
}
