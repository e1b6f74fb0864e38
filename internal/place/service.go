package place

import (
	"context"
	"fmt"

	"github.com/hitoshi/marga/internal/model"
	"github.com/hitoshi/marga/internal/repository"
)

// Service はスポットカタログのサービス層。
type Service struct {
	spotRepo repository.SpotRepository
	static   []model.Place
}

// NewService はServiceを生成する。静的カタログの読み込みに失敗した場合はエラーを返す。
func NewService(spotRepo repository.SpotRepository) (*Service, error) {
	static, err := LoadCatalog()
	if err != nil {
		return nil, err
	}
	return &Service{spotRepo: spotRepo, static: static}, nil
}

// All は登録済みスポットと静的カタログを統合した一覧を返す。
func (s *Service) All(ctx context.Context) ([]model.Place, error) {
	spots, err := s.spotRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("登録済みスポットの取得に失敗しました: %w", err)
	}
	remote := make([]model.Place, 0, len(spots))
	for _, sp := range spots {
		remote = append(remote, sp.Place())
	}
	return Merge(remote, s.static), nil
}

// List は統合済み一覧を条件で絞り込んで返す。
func (s *Service) List(ctx context.Context, q Query) ([]model.Place, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(all, q), nil
}

// Find はIDでスポットを検索する。見つからない場合はPLACE_NOT_FOUNDを返す。
func (s *Service) Find(ctx context.Context, id string) (*model.Place, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, model.NewPlaceNotFoundError(id)
}
