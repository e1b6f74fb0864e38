package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/hitoshi/marga/internal/appstate"
	"github.com/hitoshi/marga/internal/config"
	"github.com/hitoshi/marga/internal/localstore"
	"github.com/hitoshi/marga/internal/logger"
	"github.com/hitoshi/marga/internal/model"
	"github.com/hitoshi/marga/internal/reconcile"
	"github.com/hitoshi/marga/internal/remote"
	"github.com/hitoshi/marga/internal/route"
	"github.com/hitoshi/marga/internal/session"
)

// StatusReport はクライアント系コマンドの出力。
type StatusReport struct {
	SignedIn         bool           `json:"signed_in"`
	FullName         string         `json:"full_name,omitempty"`
	Email            string         `json:"email,omitempty"`
	Role             string         `json:"role"`
	Source           string         `json:"source"`
	View             route.ViewKind `json:"view"`
	RemoteConfigured bool           `json:"remote_configured"`
	SavedPlaces      []string       `json:"saved_places"`
	Unsynced         []string       `json:"unsynced,omitempty"`
}

// clientCore はローカルストア上に組み立てたセッション解決と保存済みスポットの照合。
type clientCore struct {
	log        *slog.Logger
	store      localstore.Store
	client     *remote.Client
	resolver   *session.Resolver
	reconciler *reconcile.Reconciler
}

// openClientCore はクライアントコアを組み立てる。
// ログはコマンド出力と混ざらないよう標準エラーに出す。
func openClientCore(cfg *config.ClientConfig) *clientCore {
	log := logger.Setup(os.Stderr, logger.ParseLevel(cfg.LogLevel))

	store := localstore.OpenOrMemory(cfg.StorePath, log)
	state := appstate.New(store)
	client := remote.NewClient(&http.Client{Timeout: cfg.RemoteTimeout}, cfg.RemoteURL, log)

	return &clientCore{
		log:    log,
		store:  store,
		client: client,
		resolver: session.NewResolver(state, client, session.Options{
			DemoAccounts: cfg.DemoAccounts,
			Logger:       log,
		}),
		reconciler: reconcile.New(state, client, log),
	}
}

func (c *clientCore) Close() {
	if closer, ok := c.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			c.log.Warn("ローカルストアのクローズに失敗しました", slog.String("error", err.Error()))
		}
	}
}

// report はセッションsの表示内容と保存済みスポットをまとめる。
func (c *clientCore) report(ctx context.Context, s appstate.Session) StatusReport {
	r := StatusReport{
		SignedIn:         !s.IsGuest(),
		Role:             string(s.Role),
		Source:           string(s.Source),
		View:             route.Route(s),
		RemoteConfigured: c.client.Configured(),
		SavedPlaces:      c.reconciler.List(ctx),
		Unsynced:         c.reconciler.Unsynced(),
	}
	if s.Identity != nil {
		r.FullName = s.Identity.FullName
		r.Email = s.Identity.Email
	}
	return r
}

func writeReport(w io.Writer, report StatusReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	return nil
}

// authFailure はサインイン・サインアップの失敗を利用者向けの文章にしたエラーを返す。
func authFailure(action string, err error) error {
	return fmt.Errorf("%s failed: %s: %w", action, session.Message(err), err)
}

// runStatus はローカルキャッシュからセッションを復元してリモートで最新化し、
// 表示すべき画面と保存済みスポットをJSONでwに書き出す。
func runStatus(ctx context.Context, w io.Writer, cfg *config.ClientConfig) error {
	core := openClientCore(cfg)
	defer core.Close()

	// 最新化に失敗した場合はキャッシュのセッションで続行する
	s := core.resolver.Resolve(ctx)
	return writeReport(w, core.report(ctx, s))
}

// runSignIn はデモアカウント、ローカル登録、リモートの順に認証し、セッションをキャッシュに保存する。
// args: <identifier> <secret>
func runSignIn(ctx context.Context, w io.Writer, cfg *config.ClientConfig, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: marga signin <identifier> <secret>")
	}
	core := openClientCore(cfg)
	defer core.Close()

	s, err := core.resolver.SignIn(ctx, args[0], args[1])
	if err != nil {
		return authFailure("signin", err)
	}
	return writeReport(w, core.report(ctx, s))
}

// runSignUp はアカウントを作成してサインインする。リモート未設定の場合はローカルのみのアカウントになる。
// コマンドの実行をもって利用規約に同意したものとする。
// args: <full_name> <email> <password> [user|partner]
func runSignUp(ctx context.Context, w io.Writer, cfg *config.ClientConfig, args []string) error {
	if len(args) != 3 && len(args) != 4 {
		return errors.New("usage: marga signup <full_name> <email> <password> [user|partner]")
	}
	form := model.SignUpFields{
		FullName:        args[0],
		Email:           args[1],
		Password:        args[2],
		ConfirmPassword: args[2],
		AgreeToTerms:    true,
	}
	if len(args) == 4 {
		form.Role = model.Role(args[3])
	}

	core := openClientCore(cfg)
	defer core.Close()

	s, err := core.resolver.SignUp(ctx, form)
	if err != nil {
		return authFailure("signup", err)
	}
	return writeReport(w, core.report(ctx, s))
}

// runSignOut はキャッシュしたセッションを破棄してゲストに戻す。
func runSignOut(ctx context.Context, w io.Writer, cfg *config.ClientConfig) error {
	core := openClientCore(cfg)
	defer core.Close()

	core.resolver.Restore()
	core.resolver.SignOut(ctx)
	return writeReport(w, core.report(ctx, appstate.Guest()))
}

// runToggle はキャッシュしたセッションでスポットの保存状態を反転する。
// リモートへの反映に失敗したスポットはunsyncedに出力される。
// args: <placeID>
func runToggle(ctx context.Context, w io.Writer, cfg *config.ClientConfig, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("usage: marga toggle <placeID>")
	}
	core := openClientCore(cfg)
	defer core.Close()

	s := core.resolver.Resolve(ctx)
	if s.IsGuest() {
		return fmt.Errorf("toggle failed: %s", session.Message(session.ErrGuest))
	}
	saved := core.reconciler.Toggle(ctx, args[0])
	core.log.Info("保存状態を切り替えました",
		slog.String("place_id", args[0]),
		slog.Bool("saved", saved),
	)
	return writeReport(w, core.report(ctx, s))
}
