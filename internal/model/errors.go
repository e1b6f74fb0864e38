// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string      // エラーコード
	Message  string      // エラーメッセージ
	Category string      // カテゴリ: auth, forbidden, validation, not_found, conflict, rate_limit, event, system
	Action   string      // ユーザー向け対処方法
	Fields   FieldErrors // 入力検証エラーの詳細（validationのみ）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken          = "EMAIL_TAKEN"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodePlaceNotFound       = "PLACE_NOT_FOUND"
	ErrCodeInvalidPlaceID      = "INVALID_PLACE_ID"
	ErrCodeEventNotFound       = "EVENT_NOT_FOUND"
	ErrCodeApplicationNotFound = "APPLICATION_NOT_FOUND"
	ErrCodeApplicationPending  = "APPLICATION_PENDING"
	ErrCodeAlreadyReviewed     = "APPLICATION_ALREADY_REVIEWED"
	ErrCodeCannotDeleteSelf    = "CANNOT_DELETE_SELF"
	ErrCodeFeedNotDetected     = "FEED_NOT_DETECTED"
	ErrCodeInvalidURL          = "INVALID_URL"
	ErrCodeSSRFBlocked         = "SSRF_BLOCKED"
	ErrCodeFetchFailed         = "FETCH_FAILED"
	ErrCodeParseFailed         = "PARSE_FAILED"
)

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(fields FieldErrors) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "入力内容に誤りがあります。",
		Category: "validation",
		Action:   "各項目のエラーを確認して再度送信してください。",
		Fields:   fields,
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// メールアドレスの存在有無は区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "アカウントが見つからないか、パスワードが正しくありません。",
		Category: "auth",
		Action:   "メールアドレスとパスワードを確認してください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "ログインするか、別のメールアドレスを使用してください。",
		Fields:   FieldErrors{"email": "このメールアドレスは既に登録されています。"},
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "forbidden",
		Action:   "権限を持つアカウントでログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "not_found",
		Action:   "ログインし直してください。",
	}
}

// NewPlaceNotFoundError はスポット未検出エラーを生成する。
func NewPlaceNotFoundError(placeID string) *APIError {
	return &APIError{
		Code:     ErrCodePlaceNotFound,
		Message:  fmt.Sprintf("指定されたスポットが見つかりません: %s", placeID),
		Category: "not_found",
		Action:   "スポットIDを確認してください。",
	}
}

// NewInvalidPlaceIDError はリモート保存できないスポットIDのエラーを生成する。
func NewInvalidPlaceIDError(placeID string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPlaceID,
		Message:  fmt.Sprintf("このスポットはサーバーに保存できません: %s", placeID),
		Category: "validation",
		Action:   "登録済みスポットのIDを指定してください。",
	}
}

// NewEventNotFoundError はイベント未検出エラーを生成する。
func NewEventNotFoundError(eventID string) *APIError {
	return &APIError{
		Code:     ErrCodeEventNotFound,
		Message:  fmt.Sprintf("指定されたイベントが見つかりません: %s", eventID),
		Category: "not_found",
		Action:   "イベントIDを確認してください。",
	}
}

// NewApplicationNotFoundError はパートナー申請未検出エラーを生成する。
func NewApplicationNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeApplicationNotFound,
		Message:  fmt.Sprintf("指定された申請が見つかりません: %s", id),
		Category: "not_found",
		Action:   "申請IDを確認してください。",
	}
}

// NewApplicationPendingError は同じスポットへの審査待ち申請が既にある場合のエラーを生成する。
func NewApplicationPendingError(spotName string) *APIError {
	return &APIError{
		Code:     ErrCodeApplicationPending,
		Message:  fmt.Sprintf("このスポットへの申請は審査中です: %s", spotName),
		Category: "conflict",
		Action:   "審査結果をお待ちください。",
	}
}

// NewAlreadyReviewedError は審査済みの申請を再審査しようとした場合のエラーを生成する。
func NewAlreadyReviewedError(status ApplicationStatus) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyReviewed,
		Message:  fmt.Sprintf("この申請は審査済みです: %s", status),
		Category: "conflict",
		Action:   "申請一覧を再読み込みしてください。",
	}
}

// NewCannotDeleteSelfError は管理者が自分自身を削除しようとした場合のエラーを生成する。
func NewCannotDeleteSelfError() *APIError {
	return &APIError{
		Code:     ErrCodeCannotDeleteSelf,
		Message:  "自分自身のアカウントは管理画面から削除できません。",
		Category: "validation",
		Action:   "退会する場合はプロフィール画面から手続きしてください。",
	}
}

// NewFeedNotDetectedError はイベントフィード未検出エラーを生成する。
func NewFeedNotDetectedError(url string) *APIError {
	return &APIError{
		Code:     ErrCodeFeedNotDetected,
		Message:  fmt.Sprintf("指定されたURLからイベントフィードを検出できませんでした: %s", url),
		Category: "event",
		Action:   "RSS/AtomフィードのURLを直接指定するか、フィードを公開しているページのURLを確認してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを指定してください。",
	}
}

// NewFetchFailedError はフェッチ失敗エラーを生成する。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("URLの取得に失敗しました: %s", reason),
		Category: "event",
		Action:   "URLが正しいか確認し、しばらく待ってから再度お試しください。",
	}
}

// NewParseFailedError はパース失敗エラーを生成する。
func NewParseFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeParseFailed,
		Message:  "フィードの解析に失敗しました。",
		Category: "event",
		Action:   "有効なRSS/Atomフィードかどうか確認してください。",
	}
}

// ErrCodeRateLimited はリクエスト数超過のエラーコード。
const ErrCodeRateLimited = "RATE_LIMITED"

// NewRateLimitedError はリクエスト数超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "rate_limit",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewCSRFError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFError() *APIError {
	return &APIError{
		Code:     "CSRF_INVALID",
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "forbidden",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}
