package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/marga/internal/feedback"
	"github.com/hitoshi/marga/internal/model"
)

// FeedbackServiceInterface はフィードバックハンドラーが必要とするサービスインターフェース。
type FeedbackServiceInterface interface {
	Submit(ctx context.Context, actor *model.Profile, in feedback.Input) (*model.Feedback, error)
}

// FeedbackHandler はフィードバック受付のHTTPハンドラー。
type FeedbackHandler struct {
	service FeedbackServiceInterface
}

// NewFeedbackHandler はFeedbackHandlerを生成する。
func NewFeedbackHandler(service FeedbackServiceInterface) *FeedbackHandler {
	return &FeedbackHandler{service: service}
}

type feedbackResponse struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

// Submit はフィードバックを受け付ける。
// POST /api/feedback
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireProfile(w, r)
	if !ok {
		return
	}
	var in feedback.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	fb, err := h.service.Submit(r.Context(), actor, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, feedbackResponse{ID: fb.ID, CreatedAt: fb.CreatedAt.UTC().Format(timeLayout)})
}
