// Package place は観光スポットのカタログ（静的データと登録済みスポットの統合）を提供する。
package place

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hitoshi/marga/internal/model"
)

//go:embed catalog.json
var catalogJSON []byte

// FamousRating は「定番」とみなす評価の下限。
const FamousRating = 4.5

// CategoryAll は全カテゴリを表す選択値。
const CategoryAll = "Explore"

// LoadCatalog は埋め込みの静的カタログを読み込む。
func LoadCatalog() ([]model.Place, error) {
	var places []model.Place
	if err := json.Unmarshal(catalogJSON, &places); err != nil {
		return nil, fmt.Errorf("静的カタログの読み込みに失敗しました: %w", err)
	}
	return places, nil
}

// Merge は登録済みスポットを先頭に、静的カタログを後ろに並べて返す。
// タイトル（大文字小文字を区別しない）またはIDが重複するものは先に現れた方を残す。
func Merge(remote, static []model.Place) []model.Place {
	seenTitle := make(map[string]bool, len(remote)+len(static))
	seenID := make(map[string]bool, len(remote)+len(static))
	merged := make([]model.Place, 0, len(remote)+len(static))

	for _, list := range [][]model.Place{remote, static} {
		for _, p := range list {
			title := strings.ToLower(strings.TrimSpace(p.Title))
			if seenTitle[title] || seenID[p.ID] {
				continue
			}
			seenTitle[title] = true
			seenID[p.ID] = true
			merged = append(merged, p)
		}
	}
	return merged
}

// Query は探索画面の絞り込み条件。
type Query struct {
	Text     string // タイトル・カテゴリ・説明文の部分一致
	Category string // 空文字またはCategoryAllで全件
	Famous   bool   // trueの場合は評価FamousRating以上のみ
}

// Filter は条件に一致するスポットを元の順序のまま返す。
func Filter(places []model.Place, q Query) []model.Place {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	result := []model.Place{}
	for _, p := range places {
		if !matchesText(p, text) || !matchesCategory(p, q.Category) {
			continue
		}
		if q.Famous && p.Rating < FamousRating {
			continue
		}
		result = append(result, p)
	}
	return result
}

func matchesText(p model.Place, text string) bool {
	if text == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), text) ||
		strings.Contains(strings.ToLower(p.Category), text) ||
		strings.Contains(strings.ToLower(p.Description), text)
}

func matchesCategory(p model.Place, category string) bool {
	if category == "" || category == CategoryAll {
		return true
	}
	if strings.Contains(strings.ToLower(p.Category), strings.ToLower(category)) {
		return true
	}
	// 複数形のメニュー名と単数形のカテゴリ名の対応
	return category == "Hidden Gems" && p.Category == "Hidden Gem"
}
