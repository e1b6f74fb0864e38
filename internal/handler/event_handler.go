package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/marga/internal/event"
	"github.com/hitoshi/marga/internal/model"
)

// EventServiceInterface はイベントハンドラーが必要とするサービスインターフェース。
type EventServiceInterface interface {
	ListUpcoming(ctx context.Context, limit int) ([]*model.HeritageEvent, error)
	Create(ctx context.Context, actor *model.Profile, in event.CreateInput) (*model.HeritageEvent, error)
	Delete(ctx context.Context, actor *model.Profile, id string) error
}

// EventHandler は文化イベントのHTTPハンドラー。
type EventHandler struct {
	service EventServiceInterface
}

// NewEventHandler はEventHandlerを生成する。
func NewEventHandler(service EventServiceInterface) *EventHandler {
	return &EventHandler{service: service}
}

// eventResponse はイベントのAPIレスポンス。descriptionはサニタイズ済みHTML。
type eventResponse struct {
	ID          string    `json:"id"`
	SpotName    string    `json:"spot_name,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EventType   string    `json:"event_type,omitempty"`
	Price       string    `json:"price"`
	EventDate   time.Time `json:"event_date"`
	Link        string    `json:"link,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Imported    bool      `json:"imported"`
}

func toEventResponse(e *model.HeritageEvent) eventResponse {
	return eventResponse{
		ID:          e.ID,
		SpotName:    e.SpotName,
		Title:       e.Title,
		Description: e.Description,
		EventType:   e.EventType,
		Price:       e.Price,
		EventDate:   e.EventDate,
		Link:        e.Link,
		ImageURL:    e.ImageURL,
		Imported:    e.SourceID != "",
	}
}

type eventsResponse struct {
	Events []eventResponse `json:"events"`
}

// List は今後開催されるイベントを返す。
// GET /api/events?limit=
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.service.ListUpcoming(r.Context(), limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	resp := eventsResponse{Events: make([]eventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, toEventResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create はイベントを登録する。パートナーと管理者のみ。
// POST /api/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireProfile(w, r)
	if !ok {
		return
	}
	var in event.CreateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	e, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventResponse(e))
}

// Delete はイベントを削除する。登録したパートナーまたは管理者のみ。
// DELETE /api/events/{id}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
