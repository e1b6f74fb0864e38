package eventimport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/marga/internal/model"
)

// mockSourceRepo はEventSourceRepositoryのテスト用モック。
type mockSourceRepo struct {
	mu                   sync.Mutex
	listDueForFetchFunc  func(ctx context.Context) ([]*model.EventSource, error)
	ensureByURLFunc      func(ctx context.Context, feedURL string) (*model.EventSource, error)
	updateFetchStateFunc func(ctx context.Context, src *model.EventSource) error
	updated              []model.EventSource
}

func (m *mockSourceRepo) EnsureByURL(ctx context.Context, feedURL string) (*model.EventSource, error) {
	if m.ensureByURLFunc != nil {
		return m.ensureByURLFunc(ctx, feedURL)
	}
	return &model.EventSource{FeedURL: feedURL}, nil
}

func (m *mockSourceRepo) ListDueForFetch(ctx context.Context) ([]*model.EventSource, error) {
	if m.listDueForFetchFunc != nil {
		return m.listDueForFetchFunc(ctx)
	}
	return nil, nil
}

func (m *mockSourceRepo) UpdateFetchState(ctx context.Context, src *model.EventSource) error {
	m.mu.Lock()
	m.updated = append(m.updated, *src)
	m.mu.Unlock()
	if m.updateFetchStateFunc != nil {
		return m.updateFetchStateFunc(ctx, src)
	}
	return nil
}

// mockEventRepo はEventRepositoryのインメモリ実装。
type mockEventRepo struct {
	events    map[string]*model.HeritageEvent
	createErr error
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{events: map[string]*model.HeritageEvent{}}
}

func (m *mockEventRepo) FindByID(_ context.Context, id string) (*model.HeritageEvent, error) {
	return m.events[id], nil
}

func (m *mockEventRepo) FindBySourceAndGUID(_ context.Context, sourceID, guid string) (*model.HeritageEvent, error) {
	for _, e := range m.events {
		if e.SourceID == sourceID && e.GUID == guid {
			return e, nil
		}
	}
	return nil, nil
}

func (m *mockEventRepo) FindBySourceAndLink(_ context.Context, sourceID, link string) (*model.HeritageEvent, error) {
	for _, e := range m.events {
		if e.SourceID == sourceID && e.Link == link {
			return e, nil
		}
	}
	return nil, nil
}

func (m *mockEventRepo) Create(_ context.Context, e *model.HeritageEvent) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.events[e.ID] = e
	return nil
}

func (m *mockEventRepo) Update(_ context.Context, e *model.HeritageEvent) error {
	if _, ok := m.events[e.ID]; !ok {
		return errors.New("not found")
	}
	m.events[e.ID] = e
	return nil
}

func (m *mockEventRepo) ListUpcoming(context.Context, time.Time, int) ([]*model.HeritageEvent, error) {
	return nil, nil
}

func (m *mockEventRepo) DeleteByID(_ context.Context, id string) error {
	delete(m.events, id)
	return nil
}

func (m *mockEventRepo) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// stubGuard はループバックへの接続を許可するURLValidator。
type stubGuard struct {
	rejectSubstr string
}

func (g stubGuard) ValidateURL(rawURL string) error {
	if g.rejectSubstr != "" && strings.Contains(rawURL, g.rejectSubstr) {
		return errors.New("blocked")
	}
	return nil
}

func (stubGuard) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// mockUpserter はEventUpserterのテスト用モック。
type mockUpserter struct {
	inserted, updated int
	err               error
	calledWith        []model.ParsedEvent
}

func (m *mockUpserter) UpsertEvents(_ context.Context, _ string, parsed []model.ParsedEvent) (int, int, error) {
	m.calledWith = parsed
	return m.inserted, m.updated, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
