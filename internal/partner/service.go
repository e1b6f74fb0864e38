// Package partner はパートナー申請の受付・審査と認定パートナーの参照を提供する。
package partner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/marga/internal/model"
	"github.com/hitoshi/marga/internal/repository"
	"github.com/hitoshi/marga/internal/security"
)

const (
	maxSpotNameLength = 200
	maxCategoryLength = 100
)

// Input はパートナー申請の入力値。
type Input struct {
	SpotName string `json:"spot_name"`
	Category string `json:"category"`
}

// Decision は審査結果。
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// Service はパートナー申請のサービス層。
type Service struct {
	repo      repository.PartnerApplicationRepository
	sanitizer security.Sanitizer
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.PartnerApplicationRepository, sanitizer security.Sanitizer) *Service {
	return &Service{repo: repo, sanitizer: sanitizer, now: time.Now}
}

// Submit はパートナーからの提携申請を受け付ける。
// 申請者の氏名・メールアドレスはセッションのプロフィールから設定する。
func (s *Service) Submit(ctx context.Context, actor *model.Profile, in Input) (*model.PartnerApplication, error) {
	if actor == nil || actor.Role != model.RolePartner {
		return nil, model.NewForbiddenError()
	}

	app := &model.PartnerApplication{
		ID:        uuid.New().String(),
		UserID:    actor.ID,
		FullName:  actor.FullName,
		Email:     actor.Email,
		SpotName:  s.sanitizer.Text(in.SpotName),
		Category:  s.sanitizer.Text(in.Category),
		Status:    model.ApplicationPending,
		CreatedAt: s.now(),
	}
	if app.Category == "" {
		app.Category = model.DefaultPartnerCategory
	}

	fields := model.FieldErrors{}
	switch n := utf8.RuneCountInString(app.SpotName); {
	case n == 0:
		fields["spot_name"] = "スポット名を入力してください。"
	case n > maxSpotNameLength:
		fields["spot_name"] = fmt.Sprintf("スポット名は%d文字以内で入力してください。", maxSpotNameLength)
	}
	if utf8.RuneCountInString(app.Category) > maxCategoryLength {
		fields["category"] = fmt.Sprintf("カテゴリは%d文字以内で入力してください。", maxCategoryLength)
	}
	if len(fields) > 0 {
		return nil, model.NewValidationError(fields)
	}

	if err := s.repo.Create(ctx, app); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewApplicationPendingError(app.SpotName)
		}
		return nil, fmt.Errorf("パートナー申請の保存に失敗しました: %w", err)
	}

	slog.Info("パートナー申請を受け付けました",
		slog.String("application_id", app.ID),
		slog.String("user_id", app.UserID),
		slog.String("spot_name", app.SpotName),
	)
	return app, nil
}

// List は申請一覧を返す。管理者は全件（statusで絞り込み可）、パートナーは自分の申請のみ参照できる。
func (s *Service) List(ctx context.Context, actor *model.Profile, status model.ApplicationStatus) ([]*model.PartnerApplication, error) {
	if status != "" && !status.Valid() {
		return nil, model.NewValidationError(model.FieldErrors{
			"status": "statusには pending、accepted、rejected のいずれかを指定してください。",
		})
	}

	var (
		apps []*model.PartnerApplication
		err  error
	)
	switch {
	case actor == nil:
		return nil, model.NewForbiddenError()
	case actor.Role == model.RoleAdmin:
		apps, err = s.repo.List(ctx, status)
	case actor.Role == model.RolePartner:
		apps, err = s.repo.ListByUser(ctx, actor.ID)
		if err == nil && status != "" {
			apps = filterStatus(apps, status)
		}
	default:
		return nil, model.NewForbiddenError()
	}
	if err != nil {
		return nil, fmt.Errorf("パートナー申請の取得に失敗しました: %w", err)
	}
	return apps, nil
}

func filterStatus(apps []*model.PartnerApplication, status model.ApplicationStatus) []*model.PartnerApplication {
	out := make([]*model.PartnerApplication, 0, len(apps))
	for _, a := range apps {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out
}

// Review は管理者が審査待ちの申請を承認または却下する。
// 承認した申請の申請者は認定パートナーとして登録される。
func (s *Service) Review(ctx context.Context, actor *model.Profile, id string, decision Decision) (*model.PartnerApplication, error) {
	if actor == nil || actor.Role != model.RoleAdmin {
		return nil, model.NewForbiddenError()
	}

	var status model.ApplicationStatus
	switch decision {
	case DecisionAccept:
		status = model.ApplicationAccepted
	case DecisionReject:
		status = model.ApplicationRejected
	default:
		return nil, model.NewValidationError(model.FieldErrors{
			"decision": "審査結果には accept または reject を指定してください。",
		})
	}

	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("パートナー申請の取得に失敗しました: %w", err)
	}
	if app == nil {
		return nil, model.NewApplicationNotFoundError(id)
	}
	if app.Status != model.ApplicationPending {
		return nil, model.NewAlreadyReviewedError(app.Status)
	}

	reviewedAt := s.now()
	app.Status = status
	app.ReviewedBy = actor.ID
	app.ReviewedAt = &reviewedAt

	if err := s.repo.Review(ctx, app); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, model.NewAlreadyReviewedError(status)
		}
		return nil, fmt.Errorf("パートナー申請の審査結果の保存に失敗しました: %w", err)
	}

	slog.Info("パートナー申請を審査しました",
		slog.String("application_id", app.ID),
		slog.String("status", string(app.Status)),
		slog.String("reviewer_id", actor.ID),
	)
	return app, nil
}

// ListVerified は認定パートナーの一覧を返す。
func (s *Service) ListVerified(ctx context.Context) ([]*model.VerifiedPartner, error) {
	partners, err := s.repo.ListVerified(ctx)
	if err != nil {
		return nil, fmt.Errorf("認定パートナーの取得に失敗しました: %w", err)
	}
	return partners, nil
}
