package eventimport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hitoshi/marga/internal/model"
)

// FeedResolver は設定されたURLを取り込み用のフィードURLに解決する。
type FeedResolver interface {
	Resolve(ctx context.Context, rawURL string) (string, error)
}

// feedKind は検出したフィードの種類。
type feedKind int

const (
	kindRSS feedKind = iota + 1
	kindAtom
)

// feedLink はHTMLのlink rel="alternate"から得たフィード候補。
type feedLink struct {
	href string
	kind feedKind
}

// Discoverer はイベント掲載ページからフィードURLを自動検出する。
// URLがフィードそのものであればそのまま返す。
type Discoverer struct {
	guard       URLValidator
	timeout     time.Duration
	maxBodySize int64
}

var _ FeedResolver = (*Discoverer)(nil)

// NewDiscoverer はDiscovererを生成する。
func NewDiscoverer(guard URLValidator, timeout time.Duration, maxBodySize int64) *Discoverer {
	return &Discoverer{guard: guard, timeout: timeout, maxBodySize: maxBodySize}
}

// Resolve はrawURLを取得し、フィードであればrawURLを、HTMLであればページ内のフィードURLを返す。
func (d *Discoverer) Resolve(ctx context.Context, rawURL string) (string, error) {
	if err := d.guard.ValidateURL(rawURL); err != nil {
		return "", model.NewSSRFBlockedError()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", model.NewInvalidURLError(err.Error())
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html;q=0.9, */*;q=0.1")

	resp, err := d.guard.NewSafeClient(d.timeout).Do(req)
	if err != nil {
		return "", model.NewFetchFailedError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", model.NewFetchFailedError(fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBodySize))
	if err != nil {
		return "", model.NewFetchFailedError(err.Error())
	}

	contentType := resp.Header.Get("Content-Type")
	if isFeedDocument(contentType, body) {
		return rawURL, nil
	}
	if !strings.Contains(mediaType(contentType), "html") {
		return "", model.NewFeedNotDetectedError(rawURL)
	}

	best := pickFeed(feedLinks(body, rawURL), rawURL)
	if best == "" {
		return "", model.NewFeedNotDetectedError(rawURL)
	}
	return best, nil
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// isFeedDocument はContent-Typeと本文の先頭からRSS/Atom文書かどうかを判定する。
// text/xmlのような汎用XMLは先頭4KBのルート要素で判定する。
func isFeedDocument(contentType string, body []byte) bool {
	switch mediaType(contentType) {
	case "application/rss+xml", "application/atom+xml":
		return true
	case "text/xml", "application/xml":
	default:
		return false
	}

	head := strings.ToLower(string(body[:min(len(body), 4096)]))
	if strings.Contains(head, "<rss") || strings.Contains(head, "<rdf:rdf") {
		return true
	}
	return strings.Contains(head, "<feed") && strings.Contains(head, "http://www.w3.org/2005/atom")
}

// feedLinks はHTMLのhead内にあるRSS/Atomのalternateリンクを出現順に返す。
// 相対URLはbaseURLを基準に解決する。
func feedLinks(body []byte, baseURL string) []feedLink {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var links []feedLink
	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return links
		case html.EndTagToken:
			if name, _ := z.TagName(); atom.Lookup(name) == atom.Head {
				return links
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch atom.Lookup(name) {
			case atom.Body:
				return links
			case atom.Link:
				if !hasAttr {
					continue
				}
				if l, ok := parseFeedLink(z, base); ok {
					links = append(links, l)
				}
			}
		}
	}
}

func parseFeedLink(z *html.Tokenizer, base *url.URL) (feedLink, bool) {
	var rel, typ, href string
	for {
		key, val, more := z.TagAttr()
		switch string(key) {
		case "rel":
			rel = strings.ToLower(string(val))
		case "type":
			typ = strings.ToLower(string(val))
		case "href":
			href = strings.TrimSpace(string(val))
		}
		if !more {
			break
		}
	}

	if href == "" || !strings.Contains(" "+rel+" ", " alternate ") {
		return feedLink{}, false
	}

	var kind feedKind
	switch typ {
	case "application/rss+xml":
		kind = kindRSS
	case "application/atom+xml":
		kind = kindAtom
	default:
		return feedLink{}, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return feedLink{}, false
	}
	return feedLink{href: base.ResolveReference(ref).String(), kind: kind}, true
}

// pickFeed は同一ホストのリンクを優先し、次にAtomを優先して1件選ぶ。
// 同順位の場合は先に現れたリンクを返す。
func pickFeed(links []feedLink, pageURL string) string {
	host := hostOf(pageURL)
	best, bestScore := "", -1
	for _, l := range links {
		score := 0
		if hostOf(l.href) == host {
			score += 2
		}
		if l.kind == kindAtom {
			score++
		}
		if score > bestScore {
			best, bestScore = l.href, score
		}
	}
	return best
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
