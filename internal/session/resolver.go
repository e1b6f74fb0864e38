// Package session はセッションの復元・サインイン・サインアウトを扱う。
//
// 起動時はローカルキャッシュから暫定セッションを即座に復元し（Restore）、
// その後リモートサービスで本人確認を行って上書きする（Refresh）。
// リモートに到達できない場合は暫定セッションを維持し、強制的にログアウトさせない。
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/marga/internal/appstate"
	"github.com/hitoshi/marga/internal/localstore"
	"github.com/hitoshi/marga/internal/model"
	"github.com/hitoshi/marga/internal/remote"
)

// Remote はResolverが利用するリモートサービスの操作。
type Remote interface {
	Configured() bool
	SignIn(ctx context.Context, identifier, secret string) (*remote.Account, error)
	SignUp(ctx context.Context, fields model.SignUpFields) (*remote.Account, error)
	CurrentIdentity(ctx context.Context, token string) (*model.UserIdentity, error)
	UpdateProfile(ctx context.Context, token, id string, upd model.ProfileUpdate) error
	SignOut(ctx context.Context, token string) error
}

var _ Remote = (*remote.Client)(nil)

// Options はResolverの動作設定。
type Options struct {
	// DemoAccounts が有効な場合、1/1・2/2・3 のデモアカウントでサインインできる。
	DemoAccounts bool
	Logger       *slog.Logger
	Now          func() time.Time
}

// Resolver はセッションを解決し、AppStateとローカルストアに反映する。
type Resolver struct {
	state    *appstate.AppState
	remote   Remote
	registry registry
	demo     bool
	logger   *slog.Logger
	now      func() time.Time
}

// NewResolver はResolverを生成する。remoteがnilの場合はリモート未設定として動作する。
func NewResolver(state *appstate.AppState, rem Remote, opts Options) *Resolver {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Resolver{
		state:    state,
		remote:   rem,
		registry: registry{store: state.Store()},
		demo:     opts.DemoAccounts,
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// cachedSession はuser_dataに保存するセッション記録。トークンは別キーに保存する。
type cachedSession struct {
	Identity model.UserIdentity `json:"identity"`
	Source   appstate.Source    `json:"source"`
}

func (c cachedSession) wellFormed() bool {
	return strings.TrimSpace(c.Identity.Email) != "" || strings.TrimSpace(c.Identity.FullName) != ""
}

func (r *Resolver) remoteReady() bool {
	return r.remote != nil && r.remote.Configured()
}

// Restore はローカルキャッシュから暫定セッションを復元する。ネットワークは使用しない。
func (r *Resolver) Restore() appstate.Session {
	store := r.state.Store()

	var cached cachedSession
	if !localstore.GetJSON(store, localstore.KeyUserData, &cached) || !cached.wellFormed() {
		return r.state.SetSession(appstate.Guest())
	}

	ident := cached.Identity
	s := appstate.Session{
		Identity: &ident,
		Role:     model.ParseRole(string(ident.Role)),
		Source:   cached.Source,
	}
	if s.Source == appstate.SourceRemote {
		if tok, ok := store.Get(localstore.KeyAuthToken); ok {
			s.Token = string(tok)
		}
	}

	s = r.state.SetSession(s)
	r.logger.Debug("キャッシュからセッションを復元しました",
		slog.String("identity", s.IdentityKey()),
		slog.String("role", string(s.Role)),
		slog.String("source", string(s.Source)),
	)
	return s
}

// Refresh はリモートサービスでセッショントークンを検証し、利用者情報を最新化する。
// 失敗した場合は現在のセッションをそのまま返し、エラーは参考情報として返す。
func (r *Resolver) Refresh(ctx context.Context) (appstate.Session, error) {
	ticket := r.state.Begin()
	current := ticket.Session()

	token := current.Token
	if token == "" && current.IsGuest() {
		// user_dataがなくてもトークンが残っていればリモートで解決できる
		if tok, ok := r.state.Store().Get(localstore.KeyAuthToken); ok {
			token = string(tok)
		}
	}
	if token == "" {
		return current, nil
	}
	if !r.remoteReady() {
		return current, fmt.Errorf("%w: remote service is not configured", remote.ErrUnavailable)
	}

	ident, err := r.remote.CurrentIdentity(ctx, token)
	if err != nil {
		r.logger.Warn("リモートでのセッション確認に失敗したためキャッシュを使用します",
			slog.String("identity", current.IdentityKey()),
			slog.String("error", err.Error()),
		)
		return current, err
	}

	refreshed := appstate.Session{
		Identity: ident,
		Role:     ident.Role,
		Source:   appstate.SourceRemote,
		Token:    token,
	}
	if !r.state.Refresh(ticket, refreshed) {
		r.logger.Info("セッション確認中に利用者が切り替わったため結果を破棄しました",
			slog.String("identity", refreshed.IdentityKey()),
		)
		return r.state.Session(), nil
	}

	refreshed = r.state.Session()
	r.persist(refreshed)
	return refreshed, nil
}

// Resolve はRestoreとRefreshを続けて実行する。
func (r *Resolver) Resolve(ctx context.Context) appstate.Session {
	r.Restore()
	s, _ := r.Refresh(ctx)
	return s
}

// Result は非同期Refreshの結果。
type Result struct {
	Session appstate.Session
	Err     error
}

// Start は暫定セッションを即座に返し、Refreshをバックグラウンドで実行する。
// 結果はチャネルに1回だけ送信され、その後チャネルは閉じられる。
func (r *Resolver) Start(ctx context.Context) (appstate.Session, <-chan Result) {
	provisional := r.Restore()
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		s, err := r.Refresh(ctx)
		ch <- Result{Session: s, Err: err}
	}()
	return provisional, ch
}

// SignIn はデモアカウント、ローカル登録、リモートサービスの順に認証する。
func (r *Resolver) SignIn(ctx context.Context, identifier, secret string) (appstate.Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return r.state.Session(), &ValidationError{Fields: model.FieldErrors{"email": "メールアドレスを入力してください。"}}
	}

	if r.demo {
		if ident, ok := findDemo(identifier, secret); ok {
			ident.JoinedAt = r.now()
			return r.establish(appstate.Session{Identity: &ident, Role: ident.Role, Source: appstate.SourceLocal}), nil
		}
	}

	if ident, ok := r.registry.find(identifier); ok {
		return r.establish(appstate.Session{Identity: &ident, Role: ident.Role, Source: appstate.SourceLocal}), nil
	}

	if !r.remoteReady() {
		return r.state.Session(), ErrInvalidCredentials
	}
	if !model.IsEmail(identifier) {
		return r.state.Session(), &ValidationError{Fields: model.FieldErrors{"email": "有効なメールアドレスを入力してください。"}}
	}

	acc, err := r.remote.SignIn(ctx, identifier, secret)
	if err != nil {
		r.logger.Info("サインインに失敗しました",
			slog.String("error", err.Error()),
		)
		return r.state.Session(), fromRemote(err)
	}

	return r.establish(appstate.Session{
		Identity: &acc.Identity,
		Role:     acc.Identity.Role,
		Source:   appstate.SourceRemote,
		Token:    acc.Token,
	}), nil
}

// SignUp は入力を検証してアカウントを作成する。
// リモート未設定の場合はローカルのみのアカウントを作成して登録一覧に追加する。
func (r *Resolver) SignUp(ctx context.Context, form model.SignUpFields) (appstate.Session, error) {
	form.Email = strings.ToLower(strings.TrimSpace(form.Email))
	form.FullName = strings.TrimSpace(form.FullName)
	if form.Role == "" {
		form.Role = model.RoleUser
	}

	if errs := model.ValidateSignUp(form, true); errs != nil {
		return r.state.Session(), &ValidationError{Fields: errs}
	}

	if !r.remoteReady() {
		if r.registry.hasEmail(form.Email) {
			return r.state.Session(), &ValidationError{Fields: model.FieldErrors{"email": "このメールアドレスは既に登録されています。"}}
		}
		ident := model.UserIdentity{
			FullName: form.FullName,
			Email:    form.Email,
			Phone:    form.Phone,
			Role:     form.Role,
			JoinedAt: r.now(),
		}
		r.registry.add(ident)
		return r.establish(appstate.Session{Identity: &ident, Role: ident.Role, Source: appstate.SourceLocal}), nil
	}

	acc, err := r.remote.SignUp(ctx, form)
	if err != nil {
		r.logger.Info("サインアップに失敗しました",
			slog.String("error", err.Error()),
		)
		return r.state.Session(), fromRemote(err)
	}

	return r.establish(appstate.Session{
		Identity: &acc.Identity,
		Role:     acc.Identity.Role,
		Source:   appstate.SourceRemote,
		Token:    acc.Token,
	}), nil
}

// SignOut はセッションを破棄してゲストに戻す。リモートの破棄は失敗しても続行する。
func (r *Resolver) SignOut(ctx context.Context) {
	s := r.state.Session()
	if s.RemoteBacked() && r.remoteReady() {
		if err := r.remote.SignOut(ctx, s.Token); err != nil {
			r.logger.Warn("リモートのサインアウトに失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}

	store := r.state.Store()
	store.Remove(localstore.KeyUserData)
	store.Remove(localstore.KeyAuthToken)
	r.state.Reset()
}

// UpdateProfile はプロフィールを部分更新する。
// リモートアカウントはサービスの更新に成功した場合のみローカルにも反映する。
func (r *Resolver) UpdateProfile(ctx context.Context, upd model.ProfileUpdate) (appstate.Session, error) {
	ticket := r.state.Begin()
	s := ticket.Session()
	if s.IsGuest() {
		return s, ErrGuest
	}
	// ロールの変更は管理画面からのみ
	upd.Role = nil
	if upd.Empty() {
		return s, nil
	}
	if upd.FullName != nil && strings.TrimSpace(*upd.FullName) == "" {
		return s, &ValidationError{Fields: model.FieldErrors{"full_name": "氏名を入力してください。"}}
	}

	if s.RemoteBacked() {
		if !r.remoteReady() {
			return s, fmt.Errorf("%w: remote service is not configured", remote.ErrUnavailable)
		}
		if err := r.remote.UpdateProfile(ctx, s.Token, s.Identity.ID, upd); err != nil {
			return s, fromRemote(err)
		}
	}

	ident := *s.Identity
	upd.Apply(&ident)
	updated := s
	updated.Identity = &ident

	if !r.state.Refresh(ticket, updated) {
		return r.state.Session(), nil
	}
	updated = r.state.Session()
	r.persist(updated)
	if updated.Source == appstate.SourceLocal {
		r.registry.update(ident)
	}
	return updated, nil
}

// establish は新しいセッションを設定し、キャッシュに保存する。
func (r *Resolver) establish(s appstate.Session) appstate.Session {
	s = r.state.SetSession(s)
	r.persist(s)
	r.logger.Info("サインインしました",
		slog.String("identity", s.IdentityKey()),
		slog.String("role", string(s.Role)),
		slog.String("source", string(s.Source)),
	)
	return s
}

func (r *Resolver) persist(s appstate.Session) {
	store := r.state.Store()
	if s.IsGuest() {
		store.Remove(localstore.KeyUserData)
		store.Remove(localstore.KeyAuthToken)
		return
	}
	localstore.SetJSON(store, localstore.KeyUserData, cachedSession{Identity: *s.Identity, Source: s.Source})
	if s.Token != "" {
		store.Set(localstore.KeyAuthToken, []byte(s.Token))
	} else {
		store.Remove(localstore.KeyAuthToken)
	}
}

// IsUnavailable はリモートサービスに到達できなかったことを示すエラーかどうかを返す。
func IsUnavailable(err error) bool {
	return errors.Is(err, remote.ErrUnavailable)
}
