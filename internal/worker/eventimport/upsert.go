package eventimport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/marga/internal/model"
	"github.com/hitoshi/marga/internal/repository"
	"github.com/hitoshi/marga/internal/security"
)

// Upserter はイベント候補の同一性判定と保存を行う。
// 同一性は (source_id, guid)、(source_id, link) の順で判定する。
type Upserter struct {
	repo      repository.EventRepository
	sanitizer security.Sanitizer
	now       func() time.Time
}

// NewUpserter はUpserterを生成する。
func NewUpserter(repo repository.EventRepository, sanitizer security.Sanitizer) *Upserter {
	return &Upserter{repo: repo, sanitizer: sanitizer, now: time.Now}
}

// UpsertEvents はイベント候補を保存し、挿入数と更新数を返す。
// タイトルが空の候補は読み飛ばす。
func (u *Upserter) UpsertEvents(ctx context.Context, sourceID string, parsed []model.ParsedEvent) (inserted, updated int, err error) {
	now := u.now()

	for _, p := range parsed {
		title := u.sanitizer.Text(p.Title)
		if title == "" {
			continue
		}

		existing, err := u.findExisting(ctx, sourceID, p)
		if err != nil {
			return inserted, updated, fmt.Errorf("イベントの同一性判定に失敗: %w", err)
		}

		e := existing
		if e == nil {
			e = &model.HeritageEvent{
				ID:        uuid.New().String(),
				SourceID:  sourceID,
				Price:     model.DefaultEventPrice,
				CreatedAt: now,
			}
		}
		e.GUID = p.GUID
		e.Title = title
		e.Description = u.sanitizer.HTML(p.Content)
		e.EventType = u.sanitizer.Text(p.Category)
		e.Link = p.Link
		e.ImageURL = ""
		if strings.HasPrefix(p.ImageURL, "https://") {
			e.ImageURL = p.ImageURL
		}
		e.EventDate = now
		if p.PublishedAt != nil {
			e.EventDate = *p.PublishedAt
		}
		e.UpdatedAt = now

		if existing != nil {
			if err := u.repo.Update(ctx, e); err != nil {
				return inserted, updated, fmt.Errorf("イベントの更新に失敗: %w", err)
			}
			updated++
			continue
		}
		if err := u.repo.Create(ctx, e); err != nil {
			return inserted, updated, fmt.Errorf("イベントの挿入に失敗: %w", err)
		}
		inserted++
	}
	return inserted, updated, nil
}

func (u *Upserter) findExisting(ctx context.Context, sourceID string, p model.ParsedEvent) (*model.HeritageEvent, error) {
	if p.GUID != "" {
		e, err := u.repo.FindBySourceAndGUID(ctx, sourceID, p.GUID)
		if err != nil || e != nil {
			return e, err
		}
	}
	if p.Link != "" {
		return u.repo.FindBySourceAndLink(ctx, sourceID, p.Link)
	}
	return nil, nil
}
