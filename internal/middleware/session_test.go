package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/marga/internal/model"
)

// --- モック定義 ---

type mockAuthenticator struct {
	currentProfileFn func(ctx context.Context, sessionID string) (*model.Profile, error)
}

func (m *mockAuthenticator) CurrentProfile(ctx context.Context, sessionID string) (*model.Profile, error) {
	if m.currentProfileFn != nil {
		return m.currentProfileFn(ctx, sessionID)
	}
	return nil, model.NewUnauthorizedError()
}

func validAuthenticator() *mockAuthenticator {
	return &mockAuthenticator{
		currentProfileFn: func(_ context.Context, id string) (*model.Profile, error) {
			if id == "valid-session-id" {
				return &model.Profile{ID: "user-123", Email: "asha@example.com", Role: model.RoleUser}, nil
			}
			return nil, model.NewUnauthorizedError()
		},
	}
}

// --- テスト ---

func TestSessionMiddleware_Cookie_InjectsProfile(t *testing.T) {
	var captured *model.Profile
	var capturedSession string
	handler := NewSessionMiddleware(validAuthenticator())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = ProfileFromContext(r.Context())
		capturedSession = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-session-id"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if captured == nil || captured.ID != "user-123" {
		t.Errorf("profile = %+v", captured)
	}
	if capturedSession != "valid-session-id" {
		t.Errorf("session id = %q", capturedSession)
	}
}

func TestSessionMiddleware_Bearer_TakesPrecedence(t *testing.T) {
	var userID string
	handler := NewSessionMiddleware(validAuthenticator())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer valid-session-id")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if userID != "user-123" {
		t.Errorf("userID = %q, want user-123", userID)
	}
}

func TestSessionMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(r *http.Request)
		auth       *mockAuthenticator
		wantStatus int
	}{
		{"no credentials", func(*http.Request) {}, validAuthenticator(), http.StatusUnauthorized},
		{"unknown session", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer nope")
		}, validAuthenticator(), http.StatusUnauthorized},
		{"profile deleted", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer valid-session-id")
		}, &mockAuthenticator{currentProfileFn: func(context.Context, string) (*model.Profile, error) {
			return nil, model.NewUserNotFoundError()
		}}, http.StatusUnauthorized},
		{"repository failure", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer valid-session-id")
		}, &mockAuthenticator{currentProfileFn: func(context.Context, string) (*model.Profile, error) {
			return nil, errors.New("db down")
		}}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := NewSessionMiddleware(tt.auth)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				called = true
			}))
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if called {
				t.Error("次のハンドラーが呼ばれてはならない")
			}
		})
	}
}

func TestSessionToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if tok, _ := SessionToken(req); tok != "" {
		t.Errorf("token = %q, want empty", tok)
	}

	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "c1"})
	if tok, viaCookie := SessionToken(req); tok != "c1" || !viaCookie {
		t.Errorf("token=%q viaCookie=%v", tok, viaCookie)
	}

	req.Header.Set("Authorization", "Bearer  b1 ")
	if tok, viaCookie := SessionToken(req); tok != "b1" || viaCookie {
		t.Errorf("token=%q viaCookie=%v", tok, viaCookie)
	}
}

func TestUserIDFromContext_Missing(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("エラーが返されるべき")
	}
}
