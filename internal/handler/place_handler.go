package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/marga/internal/model"
	"github.com/hitoshi/marga/internal/place"
)

// PlaceServiceInterface はスポットハンドラーが必要とするサービスインターフェース。
type PlaceServiceInterface interface {
	List(ctx context.Context, q place.Query) ([]model.Place, error)
	Find(ctx context.Context, id string) (*model.Place, error)
}

// PlaceHandler はスポットカタログのHTTPハンドラー。
type PlaceHandler struct {
	service PlaceServiceInterface
}

// NewPlaceHandler はPlaceHandlerを生成する。
func NewPlaceHandler(service PlaceServiceInterface) *PlaceHandler {
	return &PlaceHandler{service: service}
}

type placesResponse struct {
	Places []model.Place `json:"places"`
}

// List は条件に一致するスポットを返す。
// GET /api/places?q=&category=&famous=true
func (h *PlaceHandler) List(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	famous, _ := strconv.ParseBool(qs.Get("famous"))

	places, err := h.service.List(r.Context(), place.Query{
		Text:     qs.Get("q"),
		Category: qs.Get("category"),
		Famous:   famous,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if places == nil {
		places = []model.Place{}
	}
	writeJSON(w, http.StatusOK, placesResponse{Places: places})
}

// Get はIDでスポットを返す。
// GET /api/places/{id}
func (h *PlaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Find(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
