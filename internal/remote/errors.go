package remote

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// 呼び出し元がフォールバック方針を決めるための型付きエラー。
var (
	// ErrAuth は認証情報の不一致、またはセッショントークンの失効を表す。
	ErrAuth = errors.New("remote: authentication failed")
	// ErrNotFound は対象リソースが存在しないことを表す。
	ErrNotFound = errors.New("remote: not found")
	// ErrUnavailable はサービスに到達できない・未設定・5xxを表す。
	ErrUnavailable = errors.New("remote: service unavailable")
	// ErrForbidden は権限不足を表す。
	ErrForbidden = errors.New("remote: forbidden")
)

// ValidationError は入力値の検証エラー。Fieldsはフィールド名ごとのメッセージ。
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "remote: validation failed: " + e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "remote: validation failed: " + strings.Join(keys, ", ")
}

// StatusError はサービスのエラーレスポンスの詳細を保持する。
// Kindに上記のセンチネルエラーを持ち、errors.Isで判定できる。
type StatusError struct {
	Kind    error
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: status %d [%s] %s", e.Kind, e.Status, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.Kind
}

// errorBody はサービスの統一エラーフォーマット。
type errorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Category string            `json:"category"`
	Fields   map[string]string `json:"fields"`
}

// classifyStatus はHTTPステータスとエラーボディを型付きエラーに変換する。
func classifyStatus(status int, body errorBody) error {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity || status == http.StatusConflict:
		return &ValidationError{Message: body.Message, Fields: body.Fields}
	case status == http.StatusUnauthorized:
		return &StatusError{Kind: ErrAuth, Status: status, Code: body.Code, Message: body.Message}
	case status == http.StatusForbidden:
		return &StatusError{Kind: ErrForbidden, Status: status, Code: body.Code, Message: body.Message}
	case status == http.StatusNotFound:
		return &StatusError{Kind: ErrNotFound, Status: status, Code: body.Code, Message: body.Message}
	default:
		// 429と5xx、その他の想定外ステータスは一時的な利用不可として扱う
		return &StatusError{Kind: ErrUnavailable, Status: status, Code: body.Code, Message: body.Message}
	}
}
