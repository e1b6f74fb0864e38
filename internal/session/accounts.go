package session

import (
	"strings"

	"github.com/hitoshi/marga/internal/localstore"
	"github.com/hitoshi/marga/internal/model"
)

// demoAccount はネットワークを使わないデモ用アカウント。
type demoAccount struct {
	identifier string
	secret     string // 空の場合はどのパスワードでも可
	identity   model.UserIdentity
}

var demoAccounts = []demoAccount{
	{identifier: "1", secret: "1", identity: model.UserIdentity{FullName: "Demo User", Email: "user@test.com", Role: model.RoleUser}},
	{identifier: "2", secret: "2", identity: model.UserIdentity{FullName: "Demo Partner", Email: "partner@test.com", Role: model.RolePartner}},
	{identifier: "3", identity: model.UserIdentity{FullName: "Demo Admin", Email: "admin@test.com", Role: model.RoleAdmin}},
}

func findDemo(identifier, secret string) (model.UserIdentity, bool) {
	for _, d := range demoAccounts {
		if d.identifier == identifier && (d.secret == "" || d.secret == secret) {
			return d.identity, true
		}
	}
	return model.UserIdentity{}, false
}

// registry はローカルのみで作成したアカウントの一覧（users_db）。
// パスワードは保存しない。
type registry struct {
	store localstore.Store
}

func (r registry) load() []model.UserIdentity {
	var users []model.UserIdentity
	localstore.GetJSON(r.store, localstore.KeyUsersDB, &users)
	return users
}

// find はメールアドレスまたは氏名（大文字小文字を区別しない）で検索する。
func (r registry) find(identifier string) (model.UserIdentity, bool) {
	id := strings.ToLower(strings.TrimSpace(identifier))
	if id == "" {
		return model.UserIdentity{}, false
	}
	for _, u := range r.load() {
		if strings.ToLower(u.Email) == id || strings.ToLower(u.FullName) == id {
			return u, true
		}
	}
	return model.UserIdentity{}, false
}

func (r registry) hasEmail(email string) bool {
	e := strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.load() {
		if strings.ToLower(u.Email) == e {
			return true
		}
	}
	return false
}

func (r registry) add(u model.UserIdentity) {
	users := append(r.load(), u)
	localstore.SetJSON(r.store, localstore.KeyUsersDB, users)
}

// update はメールアドレスが一致する登録を置き換える。
func (r registry) update(u model.UserIdentity) {
	users := r.load()
	for i := range users {
		if strings.EqualFold(users[i].Email, u.Email) {
			users[i] = u
			localstore.SetJSON(r.store, localstore.KeyUsersDB, users)
			return
		}
	}
}
