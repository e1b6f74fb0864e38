package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hitoshi/marga/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), srv.URL, discardLogger())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestClient_SignIn_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/signin" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "priya@example.com" || body["password"] != "Secret@123" {
			t.Errorf("unexpected body %v", body)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token": "tok-1",
			"profile": map[string]any{
				"id":        "0b6f3c1e-2f7a-4d5e-9a51-3f0f2c1d4e5a",
				"email":     "priya@example.com",
				"full_name": "Priya N",
				"role":      "partner",
				"joined_at": "2024-01-02T03:04:05Z",
			},
		})
	})

	acc, err := c.SignIn(context.Background(), "priya@example.com", "Secret@123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := &Account{
		Token: "tok-1",
		Identity: model.UserIdentity{
			ID:       "0b6f3c1e-2f7a-4d5e-9a51-3f0f2c1d4e5a",
			Email:    "priya@example.com",
			FullName: "Priya N",
			Role:     model.RolePartner,
			JoinedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}
	if diff := cmp.Diff(want, acc); diff != "" {
		t.Errorf("account mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_SignIn_BadCredentials_ReturnsErrAuth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"code":    "INVALID_CREDENTIALS",
			"message": "アカウントが見つからないか、パスワードが正しくありません。",
		})
	})

	_, err := c.SignIn(context.Background(), "priya@example.com", "wrong")
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != "INVALID_CREDENTIALS" {
		t.Errorf("expected StatusError with code, got %#v", err)
	}
}

func TestClient_SignUp_ValidationError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"code":    "EMAIL_TAKEN",
			"message": "このメールアドレスは既に登録されています。",
			"fields":  map[string]string{"email": "このメールアドレスは既に登録されています。"},
		})
	})

	_, err := c.SignUp(context.Background(), model.SignUpFields{Email: "taken@example.com"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if _, ok := ve.Fields["email"]; !ok {
		t.Errorf("expected email field error, got %v", ve.Fields)
	}
}

func TestClient_CurrentIdentity_NormalizesFieldNames(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-9" {
			t.Errorf("Authorization = %q", got)
		}
		// camelCaseかつroleなしのレスポンス
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"u-1","email":" ravi@example.com ","fullName":"Ravi K","joinedAt":"2023-05-06T00:00:00Z"}`)
	})

	ident, err := c.CurrentIdentity(context.Background(), "tok-9")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ident.FullName != "Ravi K" {
		t.Errorf("FullName = %q, want %q", ident.FullName, "Ravi K")
	}
	if ident.Email != "ravi@example.com" {
		t.Errorf("Email = %q, want trimmed", ident.Email)
	}
	if ident.Role != model.RoleUser {
		t.Errorf("Role = %q, want default user", ident.Role)
	}
	if ident.JoinedAt.IsZero() {
		t.Error("JoinedAt should be taken from joinedAt")
	}
}

func TestClient_FetchProfile_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"code": "USER_NOT_FOUND"})
	})

	_, err := c.FetchProfile(context.Background(), "tok", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_SavedOperations(t *testing.T) {
	const placeID = "6a1c2b4d-1e2f-4a5b-8c9d-0e1f2a3b4c5d"
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{"place_ids": []string{placeID}})
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	ctx := context.Background()
	ids, err := c.ListSaved(ctx, "tok", "u-1")
	if err != nil {
		t.Fatalf("ListSaved: %v", err)
	}
	if diff := cmp.Diff([]string{placeID}, ids); diff != "" {
		t.Errorf("ListSaved mismatch (-want +got):\n%s", diff)
	}
	if err := c.AddSaved(ctx, "tok", "u-1", placeID); err != nil {
		t.Fatalf("AddSaved: %v", err)
	}
	if err := c.RemoveSaved(ctx, "tok", "u-1", placeID); err != nil {
		t.Fatalf("RemoveSaved: %v", err)
	}

	want := []string{
		"GET /api/profiles/u-1/saved",
		"PUT /api/profiles/u-1/saved/" + placeID,
		"DELETE /api/profiles/u-1/saved/" + placeID,
	}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_UpdateProfile_SendsPartialFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s, want PATCH", r.Method)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["phone"]; ok {
			t.Errorf("unset fields must not be sent: %v", body)
		}
		if body["full_name"] != "Asha Rao" {
			t.Errorf("full_name = %v", body["full_name"])
		}
		w.WriteHeader(http.StatusNoContent)
	})

	name := "Asha Rao"
	if err := c.UpdateProfile(context.Background(), "tok", "u-1", model.ProfileUpdate{FullName: &name}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
}

func TestClient_ServerError_ReturnsErrUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.ListSaved(context.Background(), "tok", "u-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestClient_Unreachable_ReturnsErrUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(&http.Client{Timeout: time.Second}, url, discardLogger())
	_, err := c.SignIn(context.Background(), "a@example.com", "x")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestClient_Unconfigured_ReturnsErrUnavailable(t *testing.T) {
	c := NewClient(nil, "", discardLogger())
	if c.Configured() {
		t.Fatal("client without base URL should be unconfigured")
	}
	if err := c.AddSaved(context.Background(), "tok", "u-1", "p"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestClient_IncompleteAccount_ReturnsErrUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"profile": map[string]any{"id": "u-1"}})
	})

	_, err := c.SignIn(context.Background(), "a@example.com", "x")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for response without token, got %v", err)
	}
}
