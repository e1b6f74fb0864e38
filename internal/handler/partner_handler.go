package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/marga/internal/model"
	"github.com/hitoshi/marga/internal/partner"
)

// PartnerServiceInterface はパートナー申請ハンドラーが必要とするサービスインターフェース。
type PartnerServiceInterface interface {
	Submit(ctx context.Context, actor *model.Profile, in partner.Input) (*model.PartnerApplication, error)
	List(ctx context.Context, actor *model.Profile, status model.ApplicationStatus) ([]*model.PartnerApplication, error)
	Review(ctx context.Context, actor *model.Profile, id string, decision partner.Decision) (*model.PartnerApplication, error)
	ListVerified(ctx context.Context) ([]*model.VerifiedPartner, error)
}

// PartnerHandler はパートナー申請と認定パートナーのHTTPハンドラー。
type PartnerHandler struct {
	service PartnerServiceInterface
}

// NewPartnerHandler はPartnerHandlerを生成する。
func NewPartnerHandler(service PartnerServiceInterface) *PartnerHandler {
	return &PartnerHandler{service: service}
}

type applicationResponse struct {
	ID         string                  `json:"id"`
	UserID     string                  `json:"user_id"`
	FullName   string                  `json:"full_name"`
	Email      string                  `json:"email"`
	SpotName   string                  `json:"spot_name"`
	Category   string                  `json:"category"`
	Status     model.ApplicationStatus `json:"status"`
	ReviewedBy string                  `json:"reviewed_by,omitempty"`
	CreatedAt  string                  `json:"created_at"`
	ReviewedAt string                  `json:"reviewed_at,omitempty"`
}

func toApplicationResponse(a *model.PartnerApplication) applicationResponse {
	resp := applicationResponse{
		ID:         a.ID,
		UserID:     a.UserID,
		FullName:   a.FullName,
		Email:      a.Email,
		SpotName:   a.SpotName,
		Category:   a.Category,
		Status:     a.Status,
		ReviewedBy: a.ReviewedBy,
		CreatedAt:  a.CreatedAt.UTC().Format(timeLayout),
	}
	if a.ReviewedAt != nil {
		resp.ReviewedAt = a.ReviewedAt.UTC().Format(timeLayout)
	}
	return resp
}

type applicationsResponse struct {
	Applications []applicationResponse `json:"applications"`
}

type verifiedPartnerResponse struct {
	Name       string `json:"name"`
	SpotName   string `json:"spot_name"`
	Category   string `json:"category"`
	VerifiedAt string `json:"verified_at"`
}

type verifiedPartnersResponse struct {
	Partners []verifiedPartnerResponse `json:"partners"`
}

// Submit はパートナーからの提携申請を受け付ける。
// POST /api/partner-applications
func (h *PartnerHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireProfile(w, r)
	if !ok {
		return
	}
	var in partner.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	app, err := h.service.Submit(r.Context(), actor, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toApplicationResponse(app))
}

// List は申請一覧を返す。?status= で審査状態を絞り込める。
// GET /api/partner-applications
func (h *PartnerHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireProfile(w, r)
	if !ok {
		return
	}
	status := model.ApplicationStatus(r.URL.Query().Get("status"))
	apps, err := h.service.List(r.Context(), actor, status)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	resp := applicationsResponse{Applications: make([]applicationResponse, 0, len(apps))}
	for _, a := range apps {
		resp.Applications = append(resp.Applications, toApplicationResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Accept は申請を承認する。
// POST /api/partner-applications/{id}/accept
func (h *PartnerHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, partner.DecisionAccept)
}

// Reject は申請を却下する。
// POST /api/partner-applications/{id}/reject
func (h *PartnerHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, partner.DecisionReject)
}

func (h *PartnerHandler) review(w http.ResponseWriter, r *http.Request, decision partner.Decision) {
	actor, ok := requireProfile(w, r)
	if !ok {
		return
	}
	app, err := h.service.Review(r.Context(), actor, chi.URLParam(r, "id"), decision)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplicationResponse(app))
}

// ListVerified は認定パートナーの一覧を返す。メールアドレスは公開しない。
// GET /api/partners
func (h *PartnerHandler) ListVerified(w http.ResponseWriter, r *http.Request) {
	partners, err := h.service.ListVerified(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	resp := verifiedPartnersResponse{Partners: make([]verifiedPartnerResponse, 0, len(partners))}
	for _, p := range partners {
		resp.Partners = append(resp.Partners, verifiedPartnerResponse{
			Name:       p.Name,
			SpotName:   p.SpotName,
			Category:   p.Category,
			VerifiedAt: p.VerifiedAt.UTC().Format(timeLayout),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
