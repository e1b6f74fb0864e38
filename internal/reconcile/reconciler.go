// Package reconcile は保存済みスポット集合をローカルキャッシュとリモートサービスの間で同期する。
//
// トグルはまずローカル集合に即座に反映され（pending）、リモート保存に成功すると確定する。
// リモート呼び出しの失敗は利用者に見せず、未同期として記録するだけにとどめる。
// リモート一覧を取得できた場合は、リモート保存可能なIDの部分をその一覧で置き換える。
package reconcile

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hitoshi/marga/internal/appstate"
	"github.com/hitoshi/marga/internal/localstore"
	"github.com/hitoshi/marga/internal/remote"
)

// Remote はReconcilerが利用するリモートサービスの操作。
type Remote interface {
	ListSaved(ctx context.Context, token, id string) ([]string, error)
	AddSaved(ctx context.Context, token, id, placeID string) error
	RemoveSaved(ctx context.Context, token, id, placeID string) error
}

var _ Remote = (*remote.Client)(nil)

// savedRecord はローカルストアに保存する形式。
type savedRecord struct {
	PlaceIDs []string `json:"place_ids"`
	Unsynced []string `json:"unsynced,omitempty"`
}

// RemoteAddressable はIDがリモートに保存できるスポットID（UUID）かどうかを返す。
// 静的カタログのスラッグIDはローカルにのみ保存する。
func RemoteAddressable(placeID string) bool {
	if len(placeID) != 36 {
		return false
	}
	_, err := uuid.Parse(placeID)
	return err == nil
}

// Reconciler は現在のセッションの保存済みスポット集合を管理する。
type Reconciler struct {
	state  *appstate.AppState
	remote Remote
	logger *slog.Logger

	mu         sync.Mutex
	identity   string
	generation uint64
	ready      bool
	loaded     bool // このセッション世代でリモート一覧を反映済み
	saved      map[string]struct{}
	unsynced   map[string]struct{}
	inflight   map[string]int
}

// New はReconcilerを生成する。remがnilの場合はローカルのみで動作する。
func New(state *appstate.AppState, rem Remote, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		state:  state,
		remote: rem,
		logger: logger,
	}
}

// prepareLocked はTicketのセッションに対応する集合をローカルストアから読み込む。
func (r *Reconciler) prepareLocked(t appstate.Ticket) {
	key := t.Session().IdentityKey()
	if r.ready && r.generation == t.Generation() && r.identity == key {
		return
	}

	r.identity = key
	r.generation = t.Generation()
	r.ready = true
	r.loaded = false
	r.saved = make(map[string]struct{})
	r.unsynced = make(map[string]struct{})
	r.inflight = make(map[string]int)

	var rec savedRecord
	if localstore.GetJSON(r.state.Store(), localstore.SavedPlacesKey(key), &rec) {
		for _, id := range rec.PlaceIDs {
			r.saved[id] = struct{}{}
		}
		for _, id := range rec.Unsynced {
			r.unsynced[id] = struct{}{}
		}
	}
}

func (r *Reconciler) persistLocked() {
	rec := savedRecord{
		PlaceIDs: sortedKeys(r.saved),
		Unsynced: sortedKeys(r.unsynced),
	}
	localstore.SetJSON(r.state.Store(), localstore.SavedPlacesKey(r.identity), rec)
}

func (r *Reconciler) remoteFor(s appstate.Session) bool {
	return r.remote != nil && s.RemoteBacked()
}

// ensureLoaded は必要に応じてリモート一覧を取得し、ローカル集合に反映する。
func (r *Reconciler) ensureLoaded(ctx context.Context) {
	t := r.state.Begin()
	s := t.Session()

	r.mu.Lock()
	r.prepareLocked(t)
	need := !r.loaded && r.remoteFor(s)
	r.mu.Unlock()
	if !need {
		return
	}

	ids, err := r.remote.ListSaved(ctx, s.Token, s.Identity.ID)
	if err != nil {
		r.logger.Warn("保存済みスポットのリモート取得に失敗したためキャッシュを使用します",
			slog.String("identity", s.IdentityKey()),
			slog.String("error", err.Error()),
		)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !t.Current() {
		r.logger.Info("セッションが切り替わったため保存済みスポット一覧を破棄しました")
		return
	}
	r.prepareLocked(t)
	if r.loaded {
		return
	}
	r.replaceRemoteLocked(ids)
	r.loaded = true
	r.persistLocked()
}

// replaceRemoteLocked はリモート保存可能なIDの部分をリモート一覧で置き換える。
// リモート呼び出しが進行中のIDは、その結果を待つため現在の状態を維持する。
func (r *Reconciler) replaceRemoteLocked(ids []string) {
	listed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		listed[id] = struct{}{}
	}

	for id := range r.saved {
		if !RemoteAddressable(id) || r.inflight[id] > 0 {
			continue
		}
		if _, ok := listed[id]; !ok {
			delete(r.saved, id)
		}
	}
	for id := range listed {
		if r.inflight[id] > 0 {
			continue
		}
		r.saved[id] = struct{}{}
	}
	for id := range r.unsynced {
		if r.inflight[id] == 0 {
			delete(r.unsynced, id)
		}
	}
}

// Toggle はスポットの保存状態を反転し、反転後に保存されているかどうかを返す。
// ローカル集合には即座に反映し、リモートの失敗は未同期として記録する。
func (r *Reconciler) Toggle(ctx context.Context, placeID string) bool {
	r.ensureLoaded(ctx)

	r.mu.Lock()
	t := r.state.Begin()
	s := t.Session()
	r.prepareLocked(t)

	_, was := r.saved[placeID]
	now := !was
	if now {
		r.saved[placeID] = struct{}{}
	} else {
		delete(r.saved, placeID)
	}

	useRemote := r.remoteFor(s) && RemoteAddressable(placeID)
	if useRemote {
		r.unsynced[placeID] = struct{}{}
		r.inflight[placeID]++
	}
	r.persistLocked()
	r.mu.Unlock()

	if !useRemote {
		return now
	}

	var err error
	if now {
		err = r.remote.AddSaved(ctx, s.Token, s.Identity.ID, placeID)
	} else {
		err = r.remote.RemoveSaved(ctx, s.Token, s.Identity.ID, placeID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !t.Current() {
		r.logger.Info("セッションが切り替わったため保存結果を破棄しました",
			slog.String("place_id", placeID),
		)
		return now
	}

	if r.inflight[placeID]--; r.inflight[placeID] <= 0 {
		delete(r.inflight, placeID)
	}

	if err != nil {
		r.logger.Warn("保存状態のリモート反映に失敗しました。ローカルのみに反映します",
			slog.String("identity", s.IdentityKey()),
			slog.String("place_id", placeID),
			slog.Bool("saved", now),
			slog.String("error", err.Error()),
		)
		return now
	}

	_, current := r.saved[placeID]
	switch {
	case current != now:
		// 後続のトグルが先に反映された。リモートは最後に完了した呼び出しの状態になる
		r.logger.Info("保存状態のトグルが競合しました",
			slog.String("place_id", placeID),
			slog.Bool("requested", now),
			slog.Bool("current", current),
		)
	case r.inflight[placeID] == 0:
		delete(r.unsynced, placeID)
		r.persistLocked()
	}
	return now
}

// IsSaved はスポットが保存済みかどうかを返す。
func (r *Reconciler) IsSaved(ctx context.Context, placeID string) bool {
	r.ensureLoaded(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prepareLocked(r.state.Begin())
	_, ok := r.saved[placeID]
	return ok
}

// List は保存済みスポットIDをソートして返す。
func (r *Reconciler) List(ctx context.Context) []string {
	r.ensureLoaded(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prepareLocked(r.state.Begin())
	return sortedKeys(r.saved)
}

// Unsynced はリモートに未反映のスポットIDを返す。
func (r *Reconciler) Unsynced() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prepareLocked(r.state.Begin())
	return sortedKeys(r.unsynced)
}

// Reload は次回アクセス時にリモート一覧を取り直すようにし、その場で取得を試みる。
func (r *Reconciler) Reload(ctx context.Context) {
	r.mu.Lock()
	r.loaded = false
	r.mu.Unlock()
	r.ensureLoaded(ctx)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
