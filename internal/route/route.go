// Package route はセッションから表示するトップレベル画面を決定する。
package route

import (
	"github.com/hitoshi/marga/internal/appstate"
	"github.com/hitoshi/marga/internal/model"
)

// ViewKind はトップレベル画面の種類。
type ViewKind string

const (
	TouristApp       ViewKind = "tourist_app"
	PartnerDashboard ViewKind = "partner_dashboard"
	AdminDashboard   ViewKind = "admin_dashboard"
	AuthScreen       ViewKind = "auth_screen"
)

// Route はセッションに対応する画面を返す。副作用はなく、すべての入力に対して値を返す。
// ゲストは認証画面、それ以外はロールで決まる。未知のロールは旅行者向け画面とする。
func Route(s appstate.Session) ViewKind {
	if s.IsGuest() {
		return AuthScreen
	}
	switch s.Role {
	case model.RolePartner:
		return PartnerDashboard
	case model.RoleAdmin:
		return AdminDashboard
	default:
		return TouristApp
	}
}
