package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SavedPlaceServiceInterface は保存済みスポットハンドラーが必要とするサービスインターフェース。
// actorIDとuserIDが異なる場合、サービスはFORBIDDENを返す。
type SavedPlaceServiceInterface interface {
	List(ctx context.Context, actorID, userID string) ([]string, error)
	Add(ctx context.Context, actorID, userID, placeID string) error
	Remove(ctx context.Context, actorID, userID, placeID string) error
}

// SavedPlaceHandler は保存済みスポットのHTTPハンドラー。
// AddとRemoveは冪等で、成功時は204を返す。
type SavedPlaceHandler struct {
	service SavedPlaceServiceInterface
}

// NewSavedPlaceHandler はSavedPlaceHandlerを生成する。
func NewSavedPlaceHandler(service SavedPlaceServiceInterface) *SavedPlaceHandler {
	return &SavedPlaceHandler{service: service}
}

type savedPlacesResponse struct {
	PlaceIDs []string `json:"place_ids"`
}

// List は保存済みスポットIDの一覧を返す。
// GET /api/profiles/{id}/saved
func (h *SavedPlaceHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireProfile(w, r)
	if !ok {
		return
	}
	ids, err := h.service.List(r.Context(), actor.ID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, savedPlacesResponse{PlaceIDs: ids})
}

// Add はスポットを保存する。
// PUT /api/profiles/{id}/saved/{placeID}
func (h *SavedPlaceHandler) Add(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireProfile(w, r)
	if !ok {
		return
	}
	if err := h.service.Add(r.Context(), actor.ID, chi.URLParam(r, "id"), chi.URLParam(r, "placeID")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Remove は保存を解除する。
// DELETE /api/profiles/{id}/saved/{placeID}
func (h *SavedPlaceHandler) Remove(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireProfile(w, r)
	if !ok {
		return
	}
	if err := h.service.Remove(r.Context(), actor.ID, chi.URLParam(r, "id"), chi.URLParam(r, "placeID")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
