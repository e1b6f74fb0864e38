// Package security はアプリケーションのセキュリティ機能を提供する。
//
// Sanitizer はイベント説明文などのHTMLとフィードバック等のプレーンテキストを
// bluemondayの許可リストポリシーで無害化する。
package security

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer はユーザー入力・外部フィード由来の文字列を無害化する。
type Sanitizer interface {
	// HTML はイベント説明文向けにHTMLをサニタイズする。
	// 許可タグ（p, br, a, ul, ol, li, strong, em, img）のみを通過させ、
	// imgのsrcはhttpsのみ、aにはtarget="_blank"とrel="noopener noreferrer"を付与する。
	HTML(raw string) string

	// Text は全てのタグを除去したプレーンテキストを返す。前後の空白は除去する。
	Text(raw string) string
}

type sanitizer struct {
	rich   *bluemonday.Policy
	strict *bluemonday.Policy
}

// NewSanitizer はSanitizerを生成する。ポリシーは生成時に1回だけ構築する。
func NewSanitizer() Sanitizer {
	rich := bluemonday.NewPolicy()
	rich.AllowElements("p", "br", "ul", "ol", "li", "strong", "em")

	rich.AllowAttrs("href").OnElements("a")
	rich.AllowRelativeURLs(false)
	rich.AddTargetBlankToFullyQualifiedLinks(true)
	rich.RequireNoReferrerOnLinks(true)

	rich.AllowAttrs("src", "alt").OnElements("img")
	rich.AllowURLSchemeWithCustomPolicy("https", func(*url.URL) bool { return true })

	return &sanitizer{
		rich:   rich,
		strict: bluemonday.StrictPolicy(),
	}
}

func (s *sanitizer) HTML(raw string) string {
	return strings.TrimSpace(s.rich.Sanitize(raw))
}

func (s *sanitizer) Text(raw string) string {
	// StrictPolicyは実体参照にエスケープするため、保存用に元の文字へ戻す
	return strings.TrimSpace(html.UnescapeString(s.strict.Sanitize(raw)))
}
