// Package appstate はクライアントの状態（セッション・世代・UI設定・ローカルストア）を保持する。
// グローバル変数の代わりにこのオブジェクトを各コンポーネントへ注入する。
package appstate

import (
	"sync"

	"github.com/hitoshi/marga/internal/localstore"
)

// AppState はクライアント全体の可変状態。並行に呼び出しても安全。
type AppState struct {
	store localstore.Store

	mu         sync.RWMutex
	session    Session
	generation uint64
	prefs      Preferences
	view       string // 永続化されない画面を含む現在の画面
}

// New はローカルストアからUI設定を読み込んだAppStateを生成する。セッションはゲストで始まる。
func New(store localstore.Store) *AppState {
	prefs := DefaultPreferences()
	var stored Preferences
	if localstore.GetJSON(store, localstore.KeyPreferences, &stored) {
		prefs = stored.normalize()
	}
	return &AppState{
		store:   store,
		session: Guest(),
		prefs:   prefs,
		view:    prefs.ActiveView,
	}
}

// Store はローカルストアを返す。
func (a *AppState) Store() localstore.Store {
	return a.store
}

// Session は現在のセッションの複製を返す。
func (a *AppState) Session() Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session.Clone()
}

// Generation は現在のセッション世代を返す。
func (a *AppState) Generation() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.generation
}

// Ticket はリモート呼び出しを発行した時点のセッション世代。
// 結果を反映する前にCurrentで有効性を確認する。
type Ticket struct {
	state      *AppState
	generation uint64
	session    Session
}

// Begin は現在のセッションに対するTicketを発行する。
func (a *AppState) Begin() Ticket {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Ticket{state: a, generation: a.generation, session: a.session.Clone()}
}

// Session はTicket発行時のセッションを返す。
func (t Ticket) Session() Session {
	return t.session.Clone()
}

// Generation はTicket発行時の世代を返す。
func (t Ticket) Generation() uint64 {
	return t.generation
}

// Current はTicket発行後にサインイン・サインアウトが起きていないかを返す。
func (t Ticket) Current() bool {
	return t.state.Generation() == t.generation
}

// SetSession はサインインなどで新しいセッションを設定し、世代を進める。
func (a *AppState) SetSession(s Session) Session {
	s = s.Normalize()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = s
	a.generation++
	return s.Clone()
}

// Refresh はTicketが有効な場合のみセッションを置き換える。
// 利用者が変わる場合のみ世代を進める。置き換えた場合はtrueを返す。
func (a *AppState) Refresh(t Ticket, s Session) bool {
	s = s.Normalize()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.generation != t.generation {
		return false
	}
	if a.session.IdentityKey() != s.IdentityKey() {
		a.generation++
	}
	a.session = s
	return true
}

// Reset はサインアウト時にゲストへ戻し、世代を進める。UI設定も初期化する。
func (a *AppState) Reset() {
	a.mu.Lock()
	a.session = Guest()
	a.generation++
	a.prefs = DefaultPreferences()
	a.view = a.prefs.ActiveView
	a.mu.Unlock()
	a.store.Remove(localstore.KeyPreferences)
}

// Preferences は現在のUI設定を返す。
func (a *AppState) Preferences() Preferences {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.prefs
}

// View は現在表示中の画面を返す（詳細画面を含む）。
func (a *AppState) View() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.view
}

// SetTheme はテーマを変更して保存する。
func (a *AppState) SetTheme(theme string) {
	a.mu.Lock()
	a.prefs.Theme = theme
	a.prefs = a.prefs.normalize()
	prefs := a.prefs
	a.mu.Unlock()
	localstore.SetJSON(a.store, localstore.KeyPreferences, prefs)
}

// SetActiveView は表示中の画面を変更する。詳細画面は保存しない。
func (a *AppState) SetActiveView(view string) {
	a.mu.Lock()
	a.view = view
	if view == ViewDetails || view == "" {
		a.mu.Unlock()
		return
	}
	a.prefs.ActiveView = view
	prefs := a.prefs
	a.mu.Unlock()
	localstore.SetJSON(a.store, localstore.KeyPreferences, prefs)
}
