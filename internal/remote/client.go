// Package remote はプロフィールサービスのHTTPクライアントを提供する。
// レスポンスのフィールド名はこのパッケージで正規化し、
// 失敗はすべて型付きエラー（ErrAuth, ErrNotFound, ErrUnavailable, *ValidationError）で返す。
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/marga/internal/model"
)

// maxResponseSize はレスポンスボディの読み取り上限。
const maxResponseSize = 1 << 20

// Account はサインイン・サインアップの結果。
type Account struct {
	Token    string
	Identity model.UserIdentity
}

// Client はプロフィールサービスのクライアント。
// baseURLが空の場合はリモート未設定として全操作がErrUnavailableを返す。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, baseURL string, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Configured はリモートサービスのURLが設定されているかどうかを返す。
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// SignIn はメールアドレスとパスワードでサインインする。
func (c *Client) SignIn(ctx context.Context, identifier, secret string) (*Account, error) {
	var out accountDTO
	in := map[string]string{"email": identifier, "password": secret}
	if err := c.do(ctx, http.MethodPost, "/auth/signin", "", in, &out); err != nil {
		return nil, err
	}
	return toAccount(out)
}

// SignUp は新規アカウントを登録する。
func (c *Client) SignUp(ctx context.Context, fields model.SignUpFields) (*Account, error) {
	var out accountDTO
	in := map[string]any{
		"full_name": fields.FullName,
		"email":     fields.Email,
		"phone":     fields.Phone,
		"password":  fields.Password,
		"role":      fields.Role,
	}
	if err := c.do(ctx, http.MethodPost, "/auth/signup", "", in, &out); err != nil {
		return nil, err
	}
	return toAccount(out)
}

// CurrentIdentity はセッショントークンを検証し、紐づくユーザー情報を返す。
func (c *Client) CurrentIdentity(ctx context.Context, token string) (*model.UserIdentity, error) {
	var out profileDTO
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &out); err != nil {
		return nil, err
	}
	id := out.identity()
	return &id, nil
}

// SignOut はサービス側のセッションを破棄する。
func (c *Client) SignOut(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/signout", token, nil, nil)
}

// FetchProfile はIDでプロフィールを取得する。
func (c *Client) FetchProfile(ctx context.Context, token, id string) (*model.UserIdentity, error) {
	var out profileDTO
	if err := c.do(ctx, http.MethodGet, "/api/profiles/"+url.PathEscape(id), token, nil, &out); err != nil {
		return nil, err
	}
	ident := out.identity()
	return &ident, nil
}

// UpdateProfile はプロフィールを部分更新する。
func (c *Client) UpdateProfile(ctx context.Context, token, id string, upd model.ProfileUpdate) error {
	return c.do(ctx, http.MethodPatch, "/api/profiles/"+url.PathEscape(id), token, upd, nil)
}

// ListSaved は保存済みスポットIDの一覧を取得する。
func (c *Client) ListSaved(ctx context.Context, token, id string) ([]string, error) {
	var out savedDTO
	if err := c.do(ctx, http.MethodGet, savedPath(id, ""), token, nil, &out); err != nil {
		return nil, err
	}
	if out.PlaceIDs == nil {
		return []string{}, nil
	}
	return out.PlaceIDs, nil
}

// AddSaved はスポットを保存済みに追加する。既に保存済みでも成功する。
func (c *Client) AddSaved(ctx context.Context, token, id, placeID string) error {
	return c.do(ctx, http.MethodPut, savedPath(id, placeID), token, nil, nil)
}

// RemoveSaved はスポットを保存済みから削除する。未保存でも成功する。
func (c *Client) RemoveSaved(ctx context.Context, token, id, placeID string) error {
	return c.do(ctx, http.MethodDelete, savedPath(id, placeID), token, nil, nil)
}

func savedPath(id, placeID string) string {
	p := "/api/profiles/" + url.PathEscape(id) + "/saved"
	if placeID != "" {
		p += "/" + url.PathEscape(placeID)
	}
	return p
}

func toAccount(out accountDTO) (*Account, error) {
	ident := out.Profile.identity()
	if ident.ID == "" || out.Token == "" {
		return nil, fmt.Errorf("%w: incomplete account response", ErrUnavailable)
	}
	return &Account{Token: out.Token, Identity: ident}, nil
}

// do はリクエストを送信し、成功時はレスポンスをoutにデコードする。
func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	if !c.Configured() {
		return fmt.Errorf("%w: remote service is not configured", ErrUnavailable)
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Marga/1.0")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("リモートサービスへの接続に失敗しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		classified := classifyStatus(resp.StatusCode, eb)
		var ve *ValidationError
		if !errors.As(classified, &ve) {
			c.logger.Debug("リモートサービスがエラーを返しました",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("http_status", resp.StatusCode),
				slog.String("code", eb.Code),
			)
		}
		return classified
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}
	return nil
}
