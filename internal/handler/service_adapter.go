package handler

import (
	"context"
	"errors"

	"github.com/hitoshi/marga/internal/auth"
	"github.com/hitoshi/marga/internal/metrics"
	"github.com/hitoshi/marga/internal/model"
)

// AuthServiceAdapter は auth.Service を AuthServiceInterface と
// middleware.ProfileAuthenticator に適合させ、認証結果をメトリクスに記録するアダプタ。
type AuthServiceAdapter struct {
	svc      *auth.Service
	recorder metrics.AuthRecorder
}

// NewAuthServiceAdapter はAuthServiceAdapterを生成する。recorderがnilの場合は記録しない。
func NewAuthServiceAdapter(svc *auth.Service, recorder metrics.AuthRecorder) *AuthServiceAdapter {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &AuthServiceAdapter{svc: svc, recorder: recorder}
}

// SignUp は新規登録し、結果を記録する。
func (a *AuthServiceAdapter) SignUp(ctx context.Context, f model.SignUpFields) (*auth.Result, error) {
	res, err := a.svc.SignUp(ctx, f)
	a.record("signup", err)
	return res, err
}

// SignIn はサインインし、結果を記録する。
func (a *AuthServiceAdapter) SignIn(ctx context.Context, email, password string) (*auth.Result, error) {
	res, err := a.svc.SignIn(ctx, email, password)
	a.record("signin", err)
	return res, err
}

// SignOut はセッションを破棄する。
func (a *AuthServiceAdapter) SignOut(ctx context.Context, sessionID string) error {
	return a.svc.SignOut(ctx, sessionID)
}

// CurrentProfile はセッションIDからプロフィールを解決する。
func (a *AuthServiceAdapter) CurrentProfile(ctx context.Context, sessionID string) (*model.Profile, error) {
	return a.svc.CurrentProfile(ctx, sessionID)
}

// record は業務エラー（認証情報不一致・入力不備）を失敗として記録する。
// 内部エラーは認証の成否ではないため記録しない。
func (a *AuthServiceAdapter) record(action string, err error) {
	if err == nil {
		a.recorder.RecordAuth(action, true)
		return
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		a.recorder.RecordAuth(action, false)
	}
}
