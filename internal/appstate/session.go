package appstate

import (
	"strings"

	"github.com/hitoshi/marga/internal/model"
)

// Source はセッションの出所を表す。
type Source string

const (
	// SourceLocal はローカルのみで作られたセッション（ゲスト・デモ・ローカル登録）。
	SourceLocal Source = "local"
	// SourceRemote はリモートサービスで認証されたセッション。
	SourceRemote Source = "remote"
)

// guestKey はゲストの保存済みスポット集合を識別するキー。
const guestKey = "guest"

// Session は解決済みの利用者・ロール・出所。
// Identityがnilの場合はゲストで、Roleは常にuser、SourceはLocalになる。
type Session struct {
	Identity *model.UserIdentity
	Role     model.Role
	Source   Source
	Token    string
}

// Guest はゲストセッションを返す。
func Guest() Session {
	return Session{Role: model.RoleUser, Source: SourceLocal}
}

// IsGuest はゲストかどうかを返す。
func (s Session) IsGuest() bool {
	return s.Identity == nil
}

// RemoteBacked はリモートに永続化された操作を行えるセッションかどうかを返す。
func (s Session) RemoteBacked() bool {
	return s.Source == SourceRemote && s.Identity != nil && s.Identity.ID != "" && s.Token != ""
}

// IdentityKey は保存済みスポット集合を識別するキーを返す。
// リモートアカウントはID、ローカルアカウントはメールアドレス、ゲストは固定値。
func (s Session) IdentityKey() string {
	if s.Identity == nil {
		return guestKey
	}
	if s.Identity.ID != "" {
		return s.Identity.ID
	}
	return "local:" + strings.ToLower(strings.TrimSpace(s.Identity.Email))
}

// Normalize はロールとゲストの不変条件を満たすように値を補正する。
func (s Session) Normalize() Session {
	if s.Identity == nil {
		return Guest()
	}
	if !s.Role.Valid() {
		s.Role = model.ParseRole(string(s.Identity.Role))
	}
	if s.Source != SourceRemote {
		s.Source = SourceLocal
	}
	ident := *s.Identity
	ident.Role = s.Role
	s.Identity = &ident
	return s
}

// Clone はIdentityを複製したセッションを返す。
func (s Session) Clone() Session {
	if s.Identity != nil {
		ident := *s.Identity
		s.Identity = &ident
	}
	return s
}
