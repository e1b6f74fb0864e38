package eventimport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/hitoshi/marga/internal/model"
)

// mockFetcher はSourceFetcherのテスト用モック。
type mockFetcher struct {
	fetchFunc func(ctx context.Context, src *model.EventSource) error
}

func (m *mockFetcher) Fetch(ctx context.Context, src *model.EventSource) error {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, src)
	}
	return nil
}

func dueSources(n int) []*model.EventSource {
	srcs := make([]*model.EventSource, n)
	for i := range n {
		srcs[i] = &model.EventSource{ID: string(rune('a' + i)), FeedURL: "https://events.example.com/feed", FetchStatus: model.FetchStatusActive}
	}
	return srcs
}

func TestNewScheduler_DefaultConcurrency(t *testing.T) {
	s := NewScheduler(&mockSourceRepo{}, &mockFetcher{}, stubGuard{}, discardLogger(), 0)
	if s.maxConcurrency != defaultMaxConcurrency {
		t.Errorf("maxConcurrency = %d, want %d", s.maxConcurrency, defaultMaxConcurrency)
	}
}

func TestScheduler_RunOnce_FetchesDueSources(t *testing.T) {
	var mu sync.Mutex
	var fetched []string
	repo := &mockSourceRepo{
		listDueForFetchFunc: func(context.Context) ([]*model.EventSource, error) { return dueSources(3), nil },
	}
	fetcher := &mockFetcher{fetchFunc: func(_ context.Context, src *model.EventSource) error {
		mu.Lock()
		fetched = append(fetched, src.ID)
		mu.Unlock()
		if src.ID == "b" {
			return errors.New("fetch failed")
		}
		return nil
	}}

	s := NewScheduler(repo, fetcher, stubGuard{}, discardLogger(), 10)
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(fetched) != 3 {
		t.Errorf("フェッチ件数 = %d, want 3", len(fetched))
	}
}

func TestScheduler_RunOnce_LimitsConcurrency(t *testing.T) {
	var current, peak int32
	repo := &mockSourceRepo{
		listDueForFetchFunc: func(context.Context) ([]*model.EventSource, error) { return dueSources(8), nil },
	}
	fetcher := &mockFetcher{fetchFunc: func(context.Context, *model.EventSource) error {
		n := atomic.AddInt32(&current, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		return nil
	}}

	s := NewScheduler(repo, fetcher, stubGuard{}, discardLogger(), 2)
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if peak > 2 {
		t.Errorf("最大並列数 = %d, want <= 2", peak)
	}
}

func TestScheduler_RunOnce_RepoError(t *testing.T) {
	repo := &mockSourceRepo{
		listDueForFetchFunc: func(context.Context) ([]*model.EventSource, error) { return nil, errors.New("db down") },
	}
	s := NewScheduler(repo, &mockFetcher{}, stubGuard{}, discardLogger(), 2)
	if err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("エラーが返されるべき")
	}
}

func TestScheduler_Seed_SkipsInvalidURLs(t *testing.T) {
	var ensured []string
	repo := &mockSourceRepo{
		ensureByURLFunc: func(_ context.Context, feedURL string) (*model.EventSource, error) {
			ensured = append(ensured, feedURL)
			return &model.EventSource{FeedURL: feedURL}, nil
		},
	}
	s := NewScheduler(repo, &mockFetcher{}, stubGuard{rejectSubstr: "localhost"}, discardLogger(), 2)

	err := s.Seed(context.Background(), []string{
		"https://events.example.com/rss",
		"http://localhost/feed",
	})
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if len(ensured) != 1 || ensured[0] != "https://events.example.com/rss" {
		t.Errorf("登録されたURL = %v", ensured)
	}
}

// stubResolver はページURLを固定のフィードURLへ解決する。
type stubResolver map[string]string

func (r stubResolver) Resolve(_ context.Context, rawURL string) (string, error) {
	if u, ok := r[rawURL]; ok {
		return u, nil
	}
	return "", model.NewFeedNotDetectedError(rawURL)
}

func TestScheduler_Seed_ResolvesPageURLs(t *testing.T) {
	var ensured []string
	repo := &mockSourceRepo{
		ensureByURLFunc: func(_ context.Context, feedURL string) (*model.EventSource, error) {
			ensured = append(ensured, feedURL)
			return &model.EventSource{FeedURL: feedURL}, nil
		},
	}
	s := NewScheduler(repo, &mockFetcher{}, stubGuard{}, discardLogger(), 2).
		WithResolver(stubResolver{"https://heritage.example.com/": "https://heritage.example.com/events.rss"})

	err := s.Seed(context.Background(), []string{
		"https://heritage.example.com/",
		"https://nofeed.example.com/",
	})
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if len(ensured) != 1 || ensured[0] != "https://heritage.example.com/events.rss" {
		t.Errorf("登録されたURL = %v", ensured)
	}
}

func TestScheduler_Start_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	repo := &mockSourceRepo{
		listDueForFetchFunc: func(context.Context) ([]*model.EventSource, error) {
			runs.Add(1)
			return nil, nil
		},
	}
	s := NewScheduler(repo, &mockFetcher{}, stubGuard{}, discardLogger(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx, time.Hour)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("起動直後の取り込みサイクルが実行されない")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Startがキャンセル後に終了しない")
	}
}
