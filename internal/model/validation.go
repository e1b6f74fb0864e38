package model

import (
	"regexp"
	"strings"
	"unicode"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	// passwordSpecials はパスワードに1文字以上必要な記号。
	passwordSpecials = "@$!%*?&#"
	// MaxPasswordBytes はbcryptがハッシュ化できるパスワードの最大バイト数。
	MaxPasswordBytes = 72
)

// SignUpFields は新規登録フォームの入力値。
type SignUpFields struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone,omitempty"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password,omitempty"`
	Role            Role   `json:"role"`
	AgreeToTerms    bool   `json:"agree_to_terms"`
}

// FieldErrors はフィールド名からエラーメッセージへの対応。
type FieldErrors map[string]string

// IsEmail はメールアドレス形式かどうかを返す。
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidateSignUp は新規登録フォームを検証する。
// requireConfirm=falseの場合、確認用パスワードと利用規約の同意は検証しない（API経由の登録）。
func ValidateSignUp(f SignUpFields, requireConfirm bool) FieldErrors {
	errs := FieldErrors{}

	if strings.TrimSpace(f.FullName) == "" {
		errs["full_name"] = "氏名を入力してください。"
	}

	if !IsEmail(strings.TrimSpace(f.Email)) {
		errs["email"] = "有効なメールアドレスを入力してください。"
	}

	if msg := validatePassword(f.Password); msg != "" {
		errs["password"] = msg
	}

	if requireConfirm {
		if f.Password != f.ConfirmPassword {
			errs["confirm_password"] = "パスワードが一致しません。"
		}
		if !f.AgreeToTerms {
			errs["agree_to_terms"] = "利用規約に同意してください。"
		}
	}

	// 管理者は登録フォームから作成できない
	if f.Role != RoleUser && f.Role != RolePartner {
		errs["role"] = "ロールには user または partner を指定してください。"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validatePassword(p string) string {
	if len(p) < 8 {
		return "パスワードは8文字以上にしてください。"
	}
	if len(p) > MaxPasswordBytes {
		return "パスワードは72バイト以内にしてください。"
	}
	var lower, upper, digit, special bool
	for _, r := range p {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !lower || !upper || !digit || !special {
		return "パスワードには大文字・小文字・数字・記号(@$!%*?&#)をそれぞれ含めてください。"
	}
	return ""
}
