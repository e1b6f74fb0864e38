package appstate

// 表示モード
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// ViewDetails はスポット詳細画面。一時的な画面のため永続化しない。
const ViewDetails = "details"

// DefaultView は最初に表示する画面。
const DefaultView = "home"

// Preferences はUI設定（テーマ・最後に開いていた画面）。
type Preferences struct {
	Theme      string `json:"theme"`
	ActiveView string `json:"active_view"`
}

// DefaultPreferences は初回起動時のUI設定を返す。
func DefaultPreferences() Preferences {
	return Preferences{Theme: ThemeLight, ActiveView: DefaultView}
}

func (p Preferences) normalize() Preferences {
	if p.Theme != ThemeDark {
		p.Theme = ThemeLight
	}
	if p.ActiveView == "" || p.ActiveView == ViewDetails {
		p.ActiveView = DefaultView
	}
	return p
}
