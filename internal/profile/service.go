// Package profile はプロフィールの参照・更新・退会と、管理者向けの利用者管理を提供する。
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/marga/internal/model"
	"github.com/hitoshi/marga/internal/repository"
)

// Service はプロフィール管理のサービス層。
type Service struct {
	profileRepo repository.ProfileRepository
	sessionRepo repository.SessionRepository
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(profileRepo repository.ProfileRepository, sessionRepo repository.SessionRepository) *Service {
	return &Service{
		profileRepo: profileRepo,
		sessionRepo: sessionRepo,
		now:         time.Now,
	}
}

// canAccess はactorがtargetIDのプロフィールを扱えるかどうかを返す。
func canAccess(actor *model.Profile, targetID string) bool {
	return actor != nil && (actor.ID == targetID || actor.Role == model.RoleAdmin)
}

// Get はプロフィールを取得する。本人または管理者のみ参照できる。
func (s *Service) Get(ctx context.Context, actor *model.Profile, id string) (*model.Profile, error) {
	if !canAccess(actor, id) {
		return nil, model.NewForbiddenError()
	}
	p, err := s.profileRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewUserNotFoundError()
	}
	return p, nil
}

// Update はプロフィールを部分更新する。
// 氏名・電話番号は本人または管理者、ロールは管理者のみ変更できる。
func (s *Service) Update(ctx context.Context, actor *model.Profile, id string, upd model.ProfileUpdate) (*model.Profile, error) {
	p, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if upd.Empty() {
		return p, nil
	}

	fields := model.FieldErrors{}
	if upd.FullName != nil {
		name := strings.TrimSpace(*upd.FullName)
		if name == "" {
			fields["full_name"] = "氏名を入力してください。"
		}
		upd.FullName = &name
	}
	if upd.Phone != nil {
		phone := strings.TrimSpace(*upd.Phone)
		upd.Phone = &phone
	}
	if upd.Role != nil {
		if actor.Role != model.RoleAdmin {
			return nil, model.NewForbiddenError()
		}
		if !upd.Role.Valid() {
			fields["role"] = "ロールには user、partner、admin のいずれかを指定してください。"
		}
	}
	if len(fields) > 0 {
		return nil, model.NewValidationError(fields)
	}

	if upd.FullName != nil {
		p.FullName = *upd.FullName
	}
	if upd.Phone != nil {
		p.Phone = *upd.Phone
	}
	if upd.Role != nil {
		p.Role = *upd.Role
	}
	p.UpdatedAt = s.now()

	if err := s.profileRepo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}

	slog.Info("プロフィールを更新しました",
		slog.String("user_id", p.ID),
		slog.String("actor_id", actor.ID),
	)
	return p, nil
}

// List は全利用者のプロフィールを更新日時の新しい順で返す。管理者のみ。
func (s *Service) List(ctx context.Context, actor *model.Profile) ([]*model.Profile, error) {
	if actor == nil || actor.Role != model.RoleAdmin {
		return nil, model.NewForbiddenError()
	}
	profiles, err := s.profileRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("プロフィール一覧の取得に失敗しました: %w", err)
	}
	return profiles, nil
}

// Withdraw はユーザーの退会処理を実行する。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	p, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if p == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します", slog.String("user_id", userID))
	if err := s.remove(ctx, userID); err != nil {
		return err
	}
	slog.Info("退会処理が完了しました", slog.String("user_id", userID))
	return nil
}

// Delete は管理者が利用者を登録簿から削除する。管理者自身は削除できない。
func (s *Service) Delete(ctx context.Context, actor *model.Profile, id string) error {
	if actor == nil || actor.Role != model.RoleAdmin {
		return model.NewForbiddenError()
	}
	if actor.ID == id {
		return model.NewCannotDeleteSelfError()
	}

	p, err := s.profileRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if p == nil {
		return model.NewUserNotFoundError()
	}

	if err := s.remove(ctx, id); err != nil {
		return err
	}
	slog.Info("管理者が利用者を削除しました",
		slog.String("user_id", id),
		slog.String("role", string(p.Role)),
		slog.String("actor_id", actor.ID),
	)
	return nil
}

// remove はセッションとプロフィールを削除する。
// 削除順序: sessions → profile（+ CASCADE: saved_places, partner_applications, verified_partners）
// パートナーが登録したイベントは公開情報として残す。
func (s *Service) remove(ctx context.Context, userID string) error {
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}
	if err := s.profileRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("プロフィールの削除に失敗しました: %w", err)
	}
	return nil
}
