package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/marga/internal/model"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	Get(ctx context.Context, actor *model.Profile, id string) (*model.Profile, error)
	Update(ctx context.Context, actor *model.Profile, id string, upd model.ProfileUpdate) (*model.Profile, error)
	// Withdraw は保存済みスポット、セッション、プロフィールを削除する。
	Withdraw(ctx context.Context, userID string) error
	List(ctx context.Context, actor *model.Profile) ([]*model.Profile, error)
	Delete(ctx context.Context, actor *model.Profile, id string) error
}

// ProfileHandler はプロフィール管理のHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
	auth    *AuthHandler
}

// NewProfileHandler はProfileHandlerを生成する。
// authは退会時のセッションCookie削除に使う。
func NewProfileHandler(service ProfileServiceInterface, auth *AuthHandler) *ProfileHandler {
	return &ProfileHandler{service: service, auth: auth}
}

// Get はプロフィールを返す。
// GET /api/profiles/{id}
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireProfile(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// Update はプロフィールを部分更新する。
// PATCH /api/profiles/{id}
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireProfile(w, r)
	if !ok {
		return
	}
	var upd model.ProfileUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	p, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), upd)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// Withdraw はログイン中のユーザーの退会処理を実行する。
// DELETE /api/profiles/me
func (h *ProfileHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireProfile(w, r)
	if !ok {
		return
	}
	if err := h.service.Withdraw(r.Context(), actor.ID); err != nil {
		handleServiceError(w, err)
		return
	}
	h.auth.setSessionCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

type profilesResponse struct {
	Profiles []profileResponse `json:"profiles"`
}

// List は利用者登録簿を返す。管理者のみ。
// GET /api/profiles
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireProfile(w, r)
	if !ok {
		return
	}
	profiles, err := h.service.List(r.Context(), actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	resp := profilesResponse{Profiles: make([]profileResponse, 0, len(profiles))}
	for _, p := range profiles {
		resp.Profiles = append(resp.Profiles, toProfileResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Delete は利用者を登録簿から削除する。管理者のみ。
// DELETE /api/profiles/{id}
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireProfile(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
