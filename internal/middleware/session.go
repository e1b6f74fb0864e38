// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/marga/internal/model"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	profileContextKey   = contextKey("profile")
	sessionIDContextKey = contextKey("session_id")
)

// ProfileAuthenticator はセッションIDからプロフィールを解決するインターフェース。
type ProfileAuthenticator interface {
	CurrentProfile(ctx context.Context, sessionID string) (*model.Profile, error)
}

// SessionToken はリクエストからセッションIDを取り出す。
// Authorization: Bearer を優先し、なければCookieを読む。
// viaCookieはCookieから取得した場合にtrueとなる。
func SessionToken(r *http.Request) (token string, viaCookie bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		if rest, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(rest), false
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return "", false
}

// NewSessionMiddleware はセッションを検証し、認証済みプロフィールを
// リクエストコンテキストに注入するミドルウェアを返す。
// 未認証リクエストには401を返す。
func NewSessionMiddleware(authenticator ProfileAuthenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _ := SessionToken(r)
			if token == "" {
				WriteAPIError(w, model.NewUnauthorizedError())
				return
			}

			profile, err := authenticator.CurrentProfile(r.Context(), token)
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) {
					WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
					return
				}
				slog.Error("failed to resolve session", slog.String("error", err.Error()))
				WriteInternalServerError(w)
				return
			}

			setRequestUserID(r.Context(), profile.ID)
			ctx := ContextWithProfile(r.Context(), profile)
			ctx = context.WithValue(ctx, sessionIDContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProfileFromContext はリクエストコンテキストから認証済みプロフィールを取得する。
func ProfileFromContext(ctx context.Context) (*model.Profile, bool) {
	p, ok := ctx.Value(profileContextKey).(*model.Profile)
	return p, ok && p != nil
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	p, ok := ProfileFromContext(ctx)
	if !ok || p.ID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return p.ID, nil
}

// SessionIDFromContext はリクエストの認証に使われたセッションIDを返す。
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDContextKey).(string)
	return id
}

// ContextWithProfile はコンテキストにプロフィールを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithProfile(ctx context.Context, p *model.Profile) context.Context {
	return context.WithValue(ctx, profileContextKey, p)
}
