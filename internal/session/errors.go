package session

import (
	"errors"
	"sort"

	"github.com/hitoshi/marga/internal/model"
	"github.com/hitoshi/marga/internal/remote"
)

var (
	// ErrInvalidCredentials はアカウントが見つからない、またはパスワードが一致しないことを表す。
	ErrInvalidCredentials = errors.New("session: no account found or incorrect credentials")
	// ErrGuest はサインインが必要な操作をゲストが呼び出したことを表す。
	ErrGuest = errors.New("session: not signed in")
)

// ValidationError はサインイン・サインアップ入力の検証エラー。
type ValidationError struct {
	Fields model.FieldErrors
}

func (e *ValidationError) Error() string {
	return "session: validation failed: " + e.firstMessage()
}

func (e *ValidationError) firstMessage() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return "入力内容に誤りがあります。"
	}
	return e.Fields[keys[0]]
}

// Message はサインイン・サインアップの失敗を利用者向けの短い文章に変換する。
func Message(err error) string {
	if err == nil {
		return ""
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.firstMessage()
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "アカウントが見つからないか、パスワードが正しくありません。"
	case errors.Is(err, ErrGuest):
		return "ログインしてください。"
	case errors.Is(err, remote.ErrUnavailable):
		return "サービスに接続できません。しばらくしてから再度お試しください。"
	case errors.Is(err, remote.ErrForbidden):
		return "この操作を行う権限がありません。"
	default:
		return "エラーが発生しました。再度お試しください。"
	}
}

// fromRemote はリモートの型付きエラーをセッション層のエラーに変換する。
func fromRemote(err error) error {
	var rve *remote.ValidationError
	if errors.As(err, &rve) {
		fields := model.FieldErrors{}
		for k, v := range rve.Fields {
			fields[k] = v
		}
		if len(fields) == 0 && rve.Message != "" {
			fields["form"] = rve.Message
		}
		return &ValidationError{Fields: fields}
	}
	if errors.Is(err, remote.ErrAuth) {
		return errors.Join(ErrInvalidCredentials, err)
	}
	return err
}
