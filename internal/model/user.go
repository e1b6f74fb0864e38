// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// Role はアカウントの役割を表す。
type Role string

const (
	// RoleUser は旅行者（一般ユーザー）。
	RoleUser Role = "user"
	// RolePartner はビジネスパートナー。
	RolePartner Role = "partner"
	// RoleAdmin は管理者。
	RoleAdmin Role = "admin"
)

// Valid はロールが既知の値かどうかを返す。
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RolePartner, RoleAdmin:
		return true
	}
	return false
}

// ParseRole は文字列をRoleに変換する。未知の値や空文字はRoleUserとして扱う。
func ParseRole(s string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r.Valid() {
		return r
	}
	return RoleUser
}

// ProfileStatus はプロフィールの状態を表す。
type ProfileStatus string

const (
	ProfileStatusActive    ProfileStatus = "active"
	ProfileStatusSuspended ProfileStatus = "suspended"
)

// Profile はサービス側で保持するアカウントを表す。
type Profile struct {
	ID           string
	Email        string
	FullName     string
	Phone        string
	Role         Role
	PasswordHash string
	Status       ProfileStatus
	JoinedAt     time.Time
	UpdatedAt    time.Time
}

// Identity はProfileをクライアント向けのUserIdentityに変換する。
func (p *Profile) Identity() UserIdentity {
	return UserIdentity{
		ID:       p.ID,
		FullName: p.FullName,
		Email:    p.Email,
		Phone:    p.Phone,
		Role:     p.Role,
		JoinedAt: p.JoinedAt,
	}
}

// UserIdentity はクライアントが扱う正規化済みのユーザー情報。
// IDはリモートに登録されたアカウントのみが持つ。
type UserIdentity struct {
	ID       string    `json:"id,omitempty"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone,omitempty"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at,omitzero"`
}

// ProfileUpdate はプロフィールの部分更新内容を表す。nilのフィールドは変更しない。
type ProfileUpdate struct {
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Role     *Role   `json:"role,omitempty"`
}

// Empty は更新対象のフィールドが1つもないかどうかを返す。
func (u ProfileUpdate) Empty() bool {
	return u.FullName == nil && u.Phone == nil && u.Role == nil
}

// Apply は部分更新をUserIdentityに適用する。
func (u ProfileUpdate) Apply(id *UserIdentity) {
	if u.FullName != nil {
		id.FullName = *u.FullName
	}
	if u.Phone != nil {
		id.Phone = *u.Phone
	}
	if u.Role != nil {
		id.Role = *u.Role
	}
}

// Session はサービス側のログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
