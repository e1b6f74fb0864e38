// Package event は文化イベントの登録・一覧・削除のドメインロジックを提供する。
package event

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/marga/internal/model"
	"github.com/hitoshi/marga/internal/repository"
	"github.com/hitoshi/marga/internal/security"
)

// DefaultListLimit は一覧の既定件数、MaxListLimitは上限。
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// CreateInput はパートナーが登録するイベントの入力値。
type CreateInput struct {
	SpotName    string    `json:"spot_name"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EventType   string    `json:"event_type"`
	Price       string    `json:"price"`
	EventDate   time.Time `json:"event_date"`
	Link        string    `json:"link"`
	ImageURL    string    `json:"image_url"`
}

// Service はイベントのサービス層。
type Service struct {
	repo      repository.EventRepository
	sanitizer security.Sanitizer
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.EventRepository, sanitizer security.Sanitizer) *Service {
	return &Service{repo: repo, sanitizer: sanitizer, now: time.Now}
}

// ListUpcoming は本日0時（UTC）以降のイベントを開催日順に返す。
// limitが0以下の場合は既定件数、上限を超える場合は上限に丸める。
func (s *Service) ListUpcoming(ctx context.Context, limit int) ([]*model.HeritageEvent, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	from := s.now().UTC().Truncate(24 * time.Hour)
	events, err := s.repo.ListUpcoming(ctx, from, limit)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	return events, nil
}

// Create はイベントを登録する。パートナーまたは管理者のみ実行できる。
func (s *Service) Create(ctx context.Context, actor *model.Profile, in CreateInput) (*model.HeritageEvent, error) {
	if actor == nil || (actor.Role != model.RolePartner && actor.Role != model.RoleAdmin) {
		return nil, model.NewForbiddenError()
	}

	title := s.sanitizer.Text(in.Title)
	fields := model.FieldErrors{}
	if title == "" {
		fields["title"] = "タイトルを入力してください。"
	}
	if in.EventDate.IsZero() {
		fields["event_date"] = "開催日を入力してください。"
	}
	if in.ImageURL != "" && !strings.HasPrefix(in.ImageURL, "https://") {
		fields["image_url"] = "画像URLはhttps://で始まる必要があります。"
	}
	if len(fields) > 0 {
		return nil, model.NewValidationError(fields)
	}

	price := s.sanitizer.Text(in.Price)
	if price == "" {
		price = model.DefaultEventPrice
	}

	now := s.now()
	e := &model.HeritageEvent{
		ID:           uuid.New().String(),
		PartnerEmail: actor.Email,
		SpotName:     s.sanitizer.Text(in.SpotName),
		Title:        title,
		Description:  s.sanitizer.HTML(in.Description),
		EventType:    s.sanitizer.Text(in.EventType),
		Price:        price,
		EventDate:    in.EventDate,
		Link:         strings.TrimSpace(in.Link),
		ImageURL:     in.ImageURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("イベントの登録に失敗しました: %w", err)
	}

	slog.Info("イベントを登録しました",
		slog.String("event_id", e.ID),
		slog.String("user_id", actor.ID),
	)
	return e, nil
}

// Delete はイベントを削除する。登録したパートナー本人または管理者のみ実行できる。
// フィードから取り込んだイベントは管理者のみ削除できる。
func (s *Service) Delete(ctx context.Context, actor *model.Profile, id string) error {
	if actor == nil {
		return model.NewForbiddenError()
	}
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if e == nil {
		return model.NewEventNotFoundError(id)
	}

	owner := e.PartnerEmail != "" && strings.EqualFold(e.PartnerEmail, actor.Email)
	if !owner && actor.Role != model.RoleAdmin {
		return model.NewForbiddenError()
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("イベントの削除に失敗しました: %w", err)
	}
	slog.Info("イベントを削除しました",
		slog.String("event_id", id),
		slog.String("user_id", actor.ID),
	)
	return nil
}
