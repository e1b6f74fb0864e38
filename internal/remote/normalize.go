package remote

import (
	"strings"
	"time"

	"github.com/hitoshi/marga/internal/model"
)

// profileDTO はサービスが返すプロフィール。
// フィールド名の揺れ（snake_case / camelCase）をここで吸収する。
type profileDTO struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	FullNameAlt string    `json:"fullName"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
	JoinedAtAlt time.Time `json:"joinedAt"`
	CreatedAt   time.Time `json:"created_at"`
}

// identity はDTOを正規化済みのUserIdentityに変換する。
func (p profileDTO) identity() model.UserIdentity {
	return model.UserIdentity{
		ID:       p.ID,
		Email:    strings.TrimSpace(p.Email),
		FullName: firstNonEmpty(p.FullName, p.FullNameAlt, p.Name),
		Phone:    p.Phone,
		Role:     model.ParseRole(p.Role),
		JoinedAt: firstNonZero(p.JoinedAt, p.JoinedAtAlt, p.CreatedAt),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func firstNonZero(vals ...time.Time) time.Time {
	for _, v := range vals {
		if !v.IsZero() {
			return v
		}
	}
	return time.Time{}
}

// accountDTO はサインイン・サインアップのレスポンス。
type accountDTO struct {
	Token   string     `json:"token"`
	Profile profileDTO `json:"profile"`
}

// savedDTO は保存済みスポット一覧のレスポンス。
type savedDTO struct {
	PlaceIDs []string `json:"place_ids"`
}
