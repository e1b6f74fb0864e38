package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hitoshi/marga/internal/auth"
	"github.com/hitoshi/marga/internal/event"
	"github.com/hitoshi/marga/internal/feedback"
	"github.com/hitoshi/marga/internal/metrics"
	"github.com/hitoshi/marga/internal/middleware"
	"github.com/hitoshi/marga/internal/model"
	"github.com/hitoshi/marga/internal/partner"
	"github.com/hitoshi/marga/internal/place"
)

// --- モック定義 ---

var testProfile = &model.Profile{
	ID:       "11111111-1111-4111-8111-111111111111",
	Email:    "asha@example.com",
	FullName: "Asha Rao",
	Role:     model.RoleUser,
	JoinedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
}

var adminProfile = &model.Profile{
	ID:       "99999999-9999-4999-8999-999999999999",
	Email:    "admin@example.com",
	FullName: "Admin",
	Role:     model.RoleAdmin,
}

var partnerProfile = &model.Profile{
	ID:       "33333333-3333-4333-8333-333333333333",
	Email:    "ravi@example.com",
	FullName: "Ravi Kumar",
	Role:     model.RolePartner,
}

type mockAuthService struct {
	signUpFn  func(ctx context.Context, f model.SignUpFields) (*auth.Result, error)
	signInFn  func(ctx context.Context, email, password string) (*auth.Result, error)
	signedOut []string
}

func (m *mockAuthService) SignUp(ctx context.Context, f model.SignUpFields) (*auth.Result, error) {
	return m.signUpFn(ctx, f)
}

func (m *mockAuthService) SignIn(ctx context.Context, email, password string) (*auth.Result, error) {
	return m.signInFn(ctx, email, password)
}

func (m *mockAuthService) SignOut(_ context.Context, sessionID string) error {
	m.signedOut = append(m.signedOut, sessionID)
	return nil
}

type mockAuthenticator struct{}

func (mockAuthenticator) CurrentProfile(_ context.Context, sessionID string) (*model.Profile, error) {
	switch sessionID {
	case "tok-valid":
		return testProfile, nil
	case "tok-admin":
		return adminProfile, nil
	case "tok-partner":
		return partnerProfile, nil
	}
	return nil, model.NewUnauthorizedError()
}

type mockProfileService struct {
	getFn      func(ctx context.Context, actor *model.Profile, id string) (*model.Profile, error)
	updateFn   func(ctx context.Context, actor *model.Profile, id string, upd model.ProfileUpdate) (*model.Profile, error)
	withdrawID string
	deletedID  string
}

func (m *mockProfileService) Get(ctx context.Context, actor *model.Profile, id string) (*model.Profile, error) {
	return m.getFn(ctx, actor, id)
}

func (m *mockProfileService) Update(ctx context.Context, actor *model.Profile, id string, upd model.ProfileUpdate) (*model.Profile, error) {
	return m.updateFn(ctx, actor, id, upd)
}

func (m *mockProfileService) Withdraw(_ context.Context, userID string) error {
	m.withdrawID = userID
	return nil
}

func (m *mockProfileService) List(_ context.Context, actor *model.Profile) ([]*model.Profile, error) {
	if actor.Role != model.RoleAdmin {
		return nil, model.NewForbiddenError()
	}
	return []*model.Profile{adminProfile, testProfile}, nil
}

func (m *mockProfileService) Delete(_ context.Context, actor *model.Profile, id string) error {
	if actor.Role != model.RoleAdmin {
		return model.NewForbiddenError()
	}
	if actor.ID == id {
		return model.NewCannotDeleteSelfError()
	}
	m.deletedID = id
	return nil
}

type mockSavedService struct {
	listFn func(ctx context.Context, actorID, userID string) ([]string, error)
	added  []string
}

func (m *mockSavedService) List(ctx context.Context, actorID, userID string) ([]string, error) {
	return m.listFn(ctx, actorID, userID)
}

func (m *mockSavedService) Add(_ context.Context, actorID, userID, placeID string) error {
	if actorID != userID {
		return model.NewForbiddenError()
	}
	m.added = append(m.added, placeID)
	return nil
}

func (m *mockSavedService) Remove(_ context.Context, actorID, userID, _ string) error {
	if actorID != userID {
		return model.NewForbiddenError()
	}
	return nil
}

type mockPlaceService struct {
	query place.Query
}

func (m *mockPlaceService) List(_ context.Context, q place.Query) ([]model.Place, error) {
	m.query = q
	return []model.Place{{ID: "mysore-palace", Title: "Mysore Palace", Rating: 4.8}}, nil
}

func (m *mockPlaceService) Find(_ context.Context, id string) (*model.Place, error) {
	if id == "mysore-palace" {
		return &model.Place{ID: id, Title: "Mysore Palace"}, nil
	}
	return nil, model.NewPlaceNotFoundError(id)
}

type mockEventService struct {
	created event.CreateInput
}

func (m *mockEventService) ListUpcoming(context.Context, int) ([]*model.HeritageEvent, error) {
	return nil, nil
}

func (m *mockEventService) Create(_ context.Context, actor *model.Profile, in event.CreateInput) (*model.HeritageEvent, error) {
	if actor.Role == model.RoleUser {
		return nil, model.NewForbiddenError()
	}
	m.created = in
	return &model.HeritageEvent{ID: "e1", Title: in.Title, Price: model.DefaultEventPrice, EventDate: in.EventDate}, nil
}

func (m *mockEventService) Delete(context.Context, *model.Profile, string) error {
	return nil
}

type mockFeedbackService struct {
	input feedback.Input
}

func (m *mockFeedbackService) Submit(_ context.Context, _ *model.Profile, in feedback.Input) (*model.Feedback, error) {
	m.input = in
	return &model.Feedback{ID: "fb-1", CreatedAt: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)}, nil
}

type mockPartnerService struct {
	submitted []partner.Input
	status    model.ApplicationStatus
	decisions []partner.Decision
}

func (m *mockPartnerService) Submit(_ context.Context, actor *model.Profile, in partner.Input) (*model.PartnerApplication, error) {
	if actor.Role != model.RolePartner {
		return nil, model.NewForbiddenError()
	}
	m.submitted = append(m.submitted, in)
	return &model.PartnerApplication{
		ID: "app-1", UserID: actor.ID, FullName: actor.FullName, Email: actor.Email,
		SpotName: in.SpotName, Category: model.DefaultPartnerCategory, Status: model.ApplicationPending,
		CreatedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}, nil
}

func (m *mockPartnerService) List(_ context.Context, _ *model.Profile, status model.ApplicationStatus) ([]*model.PartnerApplication, error) {
	m.status = status
	return nil, nil
}

func (m *mockPartnerService) Review(_ context.Context, actor *model.Profile, id string, decision partner.Decision) (*model.PartnerApplication, error) {
	if actor.Role != model.RoleAdmin {
		return nil, model.NewForbiddenError()
	}
	if id != "app-1" {
		return nil, model.NewApplicationNotFoundError(id)
	}
	m.decisions = append(m.decisions, decision)
	reviewed := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	status := model.ApplicationRejected
	if decision == partner.DecisionAccept {
		status = model.ApplicationAccepted
	}
	return &model.PartnerApplication{
		ID: id, UserID: partnerProfile.ID, SpotName: "Mysore Palace", Status: status,
		ReviewedBy: actor.ID, CreatedAt: reviewed.Add(-time.Hour), ReviewedAt: &reviewed,
	}, nil
}

func (m *mockPartnerService) ListVerified(context.Context) ([]*model.VerifiedPartner, error) {
	return []*model.VerifiedPartner{{
		UserID: partnerProfile.ID, Name: "Ravi Kumar", Email: "ravi@example.com",
		SpotName: "Mysore Palace", Category: "Heritage", VerifiedAt: time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC),
	}}, nil
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

type testEnv struct {
	router   http.Handler
	auth     *mockAuthService
	profiles *mockProfileService
	saved    *mockSavedService
	places   *mockPlaceService
	events   *mockEventService
	feedback *mockFeedbackService
	partners *mockPartnerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	env := &testEnv{
		auth: &mockAuthService{
			signInFn: func(_ context.Context, email, password string) (*auth.Result, error) {
				if email == "asha@example.com" && password == "Secret#123" {
					return &auth.Result{Session: &model.Session{ID: "tok-valid"}, Profile: testProfile}, nil
				}
				return nil, model.NewInvalidCredentialsError()
			},
			signUpFn: func(_ context.Context, f model.SignUpFields) (*auth.Result, error) {
				if errs := model.ValidateSignUp(f, false); errs != nil {
					return nil, model.NewValidationError(errs)
				}
				return &auth.Result{Session: &model.Session{ID: "tok-new"}, Profile: &model.Profile{ID: "new", Email: f.Email, Role: f.Role}}, nil
			},
		},
		profiles: &mockProfileService{
			getFn: func(_ context.Context, actor *model.Profile, id string) (*model.Profile, error) {
				if actor.ID != id {
					return nil, model.NewForbiddenError()
				}
				return actor, nil
			},
			updateFn: func(_ context.Context, actor *model.Profile, _ string, upd model.ProfileUpdate) (*model.Profile, error) {
				p := *actor
				if upd.FullName != nil {
					p.FullName = *upd.FullName
				}
				return &p, nil
			},
		},
		saved: &mockSavedService{listFn: func(context.Context, string, string) ([]string, error) {
			return nil, nil
		}},
		places:   &mockPlaceService{},
		events:   &mockEventService{},
		feedback: &mockFeedbackService{},
		partners: &mockPartnerService{},
	}

	env.router = NewRouter(&RouterDeps{
		Authenticator:     mockAuthenticator{},
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		HealthChecker:     stubPinger{},
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
		AuthService:       env.auth,
		AuthConfig:        AuthHandlerConfig{SessionMaxAge: 3600},
		ProfileService:    env.profiles,
		SavedPlaceService: env.saved,
		PlaceService:      env.places,
		EventService:      env.events,
		FeedbackService:   env.feedback,
		PartnerService:    env.partners,
	})
	return env
}

func (e *testEnv) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("エラーレスポンスのデコードに失敗: %v", err)
	}
	return body
}

// --- 認証 ---

func TestSignIn_Success(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPost, "/auth/signin", `{"email":"asha@example.com","password":"Secret#123"}`, "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var got accountResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := accountResponse{Token: "tok-valid", Profile: profileResponse{
		ID:       testProfile.ID,
		Email:    "asha@example.com",
		FullName: "Asha Rao",
		Role:     model.RoleUser,
		JoinedAt: "2026-01-02T03:04:05Z",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != "tok-valid" || !cookie.HttpOnly || cookie.MaxAge != 3600 {
		t.Errorf("session cookie = %+v", cookie)
	}
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPost, "/auth/signin", `{"email":"asha@example.com","password":"wrong"}`, "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if body := decodeError(t, w); body.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("code = %q", body.Code)
	}
}

func TestSignIn_MalformedBody(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPost, "/auth/signin", `{"email":`, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSignUp_ValidationErrorIncludesFields(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPost, "/auth/signup", `{"full_name":"","email":"bad","password":"short","role":"admin"}`, "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	body := decodeError(t, w)
	for _, f := range []string{"full_name", "email", "password", "role"} {
		if body.Fields[f] == "" {
			t.Errorf("fields[%s] がない: %v", f, body.Fields)
		}
	}
}

func TestSignUp_DefaultsRoleToUser(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPost, "/auth/signup", `{"full_name":"Ravi","email":"ravi@example.com","password":"Secret#123"}`, "")

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var got accountResponse
	_ = json.NewDecoder(w.Body).Decode(&got)
	if got.Token != "tok-new" || got.Profile.Role != model.RoleUser {
		t.Errorf("response = %+v", got)
	}
}

func TestSignOut_ClearsCookieAndSession(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPost, "/auth/signout", "", "tok-valid")

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if len(env.auth.signedOut) != 1 || env.auth.signedOut[0] != "tok-valid" {
		t.Errorf("signedOut = %v", env.auth.signedOut)
	}
	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("セッションCookieが削除されていない")
	}
}

func TestSignOut_CookieSessionRequiresCSRF(t *testing.T) {
	env := newTestEnv(t)

	// 別サイトからのフォーム送信を想定（セッションCookieのみでCSRFヘッダーなし）
	req := httptest.NewRequest(http.MethodPost, "/auth/signout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "tok-valid"})
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if len(env.auth.signedOut) != 0 {
		t.Errorf("CSRF検証失敗時はサインアウトしない: %v", env.auth.signedOut)
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/signout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "tok-valid"})
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "csrf-abc"})
	req.Header.Set("X-CSRF-Token", "csrf-abc")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("トークン一致時 status = %d, want 204", w.Code)
	}
	if len(env.auth.signedOut) != 1 || env.auth.signedOut[0] != "tok-valid" {
		t.Errorf("signedOut = %v", env.auth.signedOut)
	}
}

func TestSignUp_RateLimitedPerIP(t *testing.T) {
	env := newTestEnv(t)
	body := `{"full_name":"Ravi","email":"ravi@example.com","password":"Secret#123"}`

	// DefaultRateLimiterConfigのサインイン系バーストは10
	for i := range 10 {
		if w := env.do(http.MethodPost, "/auth/signup", body, ""); w.Code != http.StatusCreated {
			t.Fatalf("request %d: status = %d, want 201", i+1, w.Code)
		}
	}

	w := env.do(http.MethodPost, "/auth/signup", body, "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-Afterヘッダーがない")
	}

	// 新規登録とサインインは同じ制限を共有する
	w = env.do(http.MethodPost, "/auth/signin", `{"email":"asha@example.com","password":"Secret#123"}`, "")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("signin status = %d, want 429", w.Code)
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(http.MethodGet, "/auth/me", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("未認証 status = %d, want 401", w.Code)
	}

	w := env.do(http.MethodGet, "/auth/me", "", "tok-valid")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got profileResponse
	_ = json.NewDecoder(w.Body).Decode(&got)
	if got.ID != testProfile.ID || got.FullName != "Asha Rao" {
		t.Errorf("profile = %+v", got)
	}
}

// --- プロフィール ---

func TestProfile_GetOtherUserForbidden(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/api/profiles/someone-else", "", "tok-valid")
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestProfile_Update(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPatch, "/api/profiles/"+testProfile.ID, `{"full_name":"Asha R"}`, "tok-valid")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var got profileResponse
	_ = json.NewDecoder(w.Body).Decode(&got)
	if got.FullName != "Asha R" {
		t.Errorf("full_name = %q", got.FullName)
	}
}

func TestProfile_Withdraw(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodDelete, "/api/profiles/me", "", "tok-valid")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if env.profiles.withdrawID != testProfile.ID {
		t.Errorf("withdrawID = %q", env.profiles.withdrawID)
	}
}

func TestProfile_ListRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(http.MethodGet, "/api/profiles", "", "tok-valid"); w.Code != http.StatusForbidden {
		t.Errorf("一般ユーザー status = %d, want 403", w.Code)
	}

	w := env.do(http.MethodGet, "/api/profiles", "", "tok-admin")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var got profilesResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Profiles) != 2 || got.Profiles[1].Email != "asha@example.com" {
		t.Errorf("profiles = %+v", got.Profiles)
	}
}

func TestProfile_DeleteByAdmin(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(http.MethodDelete, "/api/profiles/"+adminProfile.ID, "", "tok-valid"); w.Code != http.StatusForbidden {
		t.Errorf("一般ユーザー status = %d, want 403", w.Code)
	}

	w := env.do(http.MethodDelete, "/api/profiles/"+adminProfile.ID, "", "tok-admin")
	if w.Code != http.StatusBadRequest {
		t.Errorf("自分自身の削除 status = %d, want 400", w.Code)
	}

	w = env.do(http.MethodDelete, "/api/profiles/"+testProfile.ID, "", "tok-admin")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if env.profiles.deletedID != testProfile.ID {
		t.Errorf("deletedID = %q", env.profiles.deletedID)
	}
}

// --- 保存済みスポット ---

func TestSavedPlaces_ListEmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/api/profiles/"+testProfile.ID+"/saved", "", "tok-valid")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"place_ids":[]}` {
		t.Errorf("body = %s", got)
	}
}

func TestSavedPlaces_AddAndForbidden(t *testing.T) {
	env := newTestEnv(t)
	placeID := "22222222-2222-4222-8222-222222222222"

	w := env.do(http.MethodPut, "/api/profiles/"+testProfile.ID+"/saved/"+placeID, "", "tok-valid")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if len(env.saved.added) != 1 || env.saved.added[0] != placeID {
		t.Errorf("added = %v", env.saved.added)
	}

	w = env.do(http.MethodDelete, "/api/profiles/other/saved/"+placeID, "", "tok-valid")
	if w.Code != http.StatusForbidden {
		t.Errorf("他人の保存済み削除 status = %d, want 403", w.Code)
	}
}

func TestSavedPlaces_CookieSessionRequiresCSRF(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPut, "/api/profiles/"+testProfile.ID+"/saved/x", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "tok-valid"})
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	if len(env.saved.added) != 0 {
		t.Error("CSRF検証失敗時はサービスを呼ばない")
	}
}

// --- スポット・イベント・フィードバック ---

func TestPlaces_ListParsesQuery(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/api/places?q=palace&category=Hidden+Gems&famous=true", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	want := place.Query{Text: "palace", Category: "Hidden Gems", Famous: true}
	if diff := cmp.Diff(want, env.places.query); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
	var got placesResponse
	_ = json.NewDecoder(w.Body).Decode(&got)
	if len(got.Places) != 1 || got.Places[0].ID != "mysore-palace" {
		t.Errorf("places = %+v", got.Places)
	}
}

func TestPlaces_GetNotFound(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/api/places/unknown", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if body := decodeError(t, w); body.Code != model.ErrCodePlaceNotFound {
		t.Errorf("code = %q", body.Code)
	}
}

func TestEvents_ListEmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/api/events", "", "")
	if got := strings.TrimSpace(w.Body.String()); got != `{"events":[]}` {
		t.Errorf("body = %s", got)
	}
}

func TestEvents_CreateRequiresPartner(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPost, "/api/events", `{"title":"Dasara","event_date":"2026-10-20T10:00:00Z"}`, "tok-valid")
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestFeedback_Submit(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPost, "/api/feedback", `{"spot_name":"Mysore Palace","rating":5,"comment":"Beautiful"}`, "tok-valid")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	want := feedback.Input{SpotName: "Mysore Palace", Rating: 5, Comment: "Beautiful"}
	if diff := cmp.Diff(want, env.feedback.input); diff != "" {
		t.Errorf("input mismatch (-want +got):\n%s", diff)
	}
}

// --- パートナー申請 ---

func TestPartnerApplications_Submit(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(http.MethodPost, "/api/partner-applications", `{"spot_name":"Mysore Palace"}`, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("未認証 status = %d, want 401", w.Code)
	}

	w := env.do(http.MethodPost, "/api/partner-applications", `{"spot_name":"Mysore Palace"}`, "tok-partner")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var got applicationResponse
	_ = json.NewDecoder(w.Body).Decode(&got)
	want := applicationResponse{
		ID: "app-1", UserID: partnerProfile.ID, FullName: "Ravi Kumar", Email: "ravi@example.com",
		SpotName: "Mysore Palace", Category: "Heritage", Status: model.ApplicationPending,
		CreatedAt: "2026-02-01T09:00:00Z",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}

	if w := env.do(http.MethodPost, "/api/partner-applications", `{"spot_name":"Zoo"}`, "tok-valid"); w.Code != http.StatusForbidden {
		t.Errorf("一般ユーザー status = %d, want 403", w.Code)
	}
}

func TestPartnerApplications_ListPassesStatus(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/api/partner-applications?status=pending", "", "tok-admin")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"applications":[]}` {
		t.Errorf("body = %s", got)
	}
	if env.partners.status != model.ApplicationPending {
		t.Errorf("status = %q", env.partners.status)
	}
}

func TestPartnerApplications_Review(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(http.MethodPost, "/api/partner-applications/app-1/accept", "", "tok-partner"); w.Code != http.StatusForbidden {
		t.Errorf("パートナー status = %d, want 403", w.Code)
	}

	w := env.do(http.MethodPost, "/api/partner-applications/app-1/accept", "", "tok-admin")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var got applicationResponse
	_ = json.NewDecoder(w.Body).Decode(&got)
	if got.Status != model.ApplicationAccepted || got.ReviewedBy != adminProfile.ID || got.ReviewedAt != "2026-02-02T10:00:00Z" {
		t.Errorf("response = %+v", got)
	}

	if w := env.do(http.MethodPost, "/api/partner-applications/app-1/reject", "", "tok-admin"); w.Code != http.StatusOK {
		t.Errorf("reject status = %d", w.Code)
	}
	if w := env.do(http.MethodPost, "/api/partner-applications/missing/accept", "", "tok-admin"); w.Code != http.StatusNotFound {
		t.Errorf("存在しない申請 status = %d, want 404", w.Code)
	}

	want := []partner.Decision{partner.DecisionAccept, partner.DecisionReject}
	if diff := cmp.Diff(want, env.partners.decisions); diff != "" {
		t.Errorf("decisions mismatch (-want +got):\n%s", diff)
	}
}

func TestPartners_ListVerifiedHidesEmail(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/api/partners", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "ravi@example.com") {
		t.Errorf("メールアドレスを公開しない: %s", w.Body.String())
	}
	var got verifiedPartnersResponse
	_ = json.NewDecoder(w.Body).Decode(&got)
	if len(got.Partners) != 1 || got.Partners[0].SpotName != "Mysore Palace" {
		t.Errorf("partners = %+v", got.Partners)
	}
}

// --- 運用エンドポイント ---

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(http.MethodGet, "/health", "", ""); w.Code != http.StatusOK {
		t.Errorf("/health status = %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/metrics", "", ""); w.Code != http.StatusOK || w.Body.String() != "# metrics" {
		t.Errorf("/metrics status = %d body = %q", w.Code, w.Body.String())
	}
}

func TestHealthHandler_Unavailable(t *testing.T) {
	w := httptest.NewRecorder()
	NewHealthHandler(stubPinger{err: errors.New("down")}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

// --- アダプタ ---

type recordingAuthRecorder struct {
	metrics.Nop
	records []string
}

func (r *recordingAuthRecorder) RecordAuth(action string, ok bool) {
	r.records = append(r.records, action+":"+map[bool]string{true: "ok", false: "fail"}[ok])
}

func TestAuthServiceAdapter_Record(t *testing.T) {
	rec := &recordingAuthRecorder{}
	a := NewAuthServiceAdapter(nil, rec)

	a.record("signin", nil)
	a.record("signin", model.NewInvalidCredentialsError())
	a.record("signin", errors.New("db down"))

	want := []string{"signin:ok", "signin:fail"}
	if diff := cmp.Diff(want, rec.records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}
