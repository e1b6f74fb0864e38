// Package localstore は端末ローカルの永続キーバリューストアを提供する。
// ローカルストアはキャッシュであり、基盤の障害は呼び出し元に返さない。
// 読み込み失敗は「値なし」、書き込み失敗はログ出力のみとする。
package localstore

import (
	"encoding/json"
	"log/slog"
)

// 保存キー
const (
	KeyUserData    = "user_data"
	KeyAuthToken   = "auth_token"
	KeyPreferences = "preferences"
	KeyUsersDB     = "users_db"

	savedPlacesPrefix = "saved_places:"
)

// SavedPlacesKey は識別子ごとの保存済みスポット集合のキーを返す。
func SavedPlacesKey(identityKey string) string {
	return savedPlacesPrefix + identityKey
}

// Store はローカル永続ストアの契約。どのメソッドもエラーを返さない。
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Remove(key string)
}

// GetJSON はkeyの値をvにデコードする。値がない・壊れている場合はfalseを返す。
func GetJSON(s Store, key string, v any) bool {
	raw, ok := s.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		slog.Warn("ローカルストアの値が不正なため無視します",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// SetJSON はvをJSONとしてkeyに保存する。
func SetJSON(s Store, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		slog.Warn("ローカルストアへの保存値をエンコードできませんでした",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return
	}
	s.Set(key, raw)
}
