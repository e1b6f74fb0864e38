// Package savedplace は保存済みスポットのドメインロジックを提供する。
package savedplace

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hitoshi/marga/internal/model"
	"github.com/hitoshi/marga/internal/repository"
)

// Service は保存済みスポットのサービス層。
// 呼び出し元は自分自身の集合のみを操作できる。
type Service struct {
	savedRepo repository.SavedPlaceRepository
	spotRepo  repository.SpotRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(savedRepo repository.SavedPlaceRepository, spotRepo repository.SpotRepository) *Service {
	return &Service{savedRepo: savedRepo, spotRepo: spotRepo}
}

// validPlaceID はサーバーで保存可能なスポットIDかどうかを返す。
// 静的カタログのスラッグIDは対象外。
func validPlaceID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func ensureOwner(actorID, userID string) error {
	if actorID == "" || actorID != userID {
		return model.NewForbiddenError()
	}
	return nil
}

// List はユーザーの保存済みスポットIDを返す。
func (s *Service) List(ctx context.Context, actorID, userID string) ([]string, error) {
	if err := ensureOwner(actorID, userID); err != nil {
		return nil, err
	}
	ids, err := s.savedRepo.ListPlaceIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("保存済みスポットの取得に失敗しました: %w", err)
	}
	return ids, nil
}

// Add はスポットを保存する。既に保存済みの場合も成功とする。
func (s *Service) Add(ctx context.Context, actorID, userID, placeID string) error {
	if err := ensureOwner(actorID, userID); err != nil {
		return err
	}
	if !validPlaceID(placeID) {
		return model.NewInvalidPlaceIDError(placeID)
	}

	spot, err := s.spotRepo.FindByID(ctx, placeID)
	if err != nil {
		return fmt.Errorf("スポットの取得に失敗しました: %w", err)
	}
	if spot == nil {
		return model.NewPlaceNotFoundError(placeID)
	}

	if err := s.savedRepo.Add(ctx, userID, placeID); err != nil {
		return fmt.Errorf("スポットの保存に失敗しました: %w", err)
	}

	slog.Debug("スポットを保存しました",
		slog.String("user_id", userID),
		slog.String("place_id", placeID),
	)
	return nil
}

// Remove は保存を解除する。保存されていない場合も成功とする。
func (s *Service) Remove(ctx context.Context, actorID, userID, placeID string) error {
	if err := ensureOwner(actorID, userID); err != nil {
		return err
	}
	if !validPlaceID(placeID) {
		return model.NewInvalidPlaceIDError(placeID)
	}
	if err := s.savedRepo.Remove(ctx, userID, placeID); err != nil {
		return fmt.Errorf("保存の解除に失敗しました: %w", err)
	}
	return nil
}
