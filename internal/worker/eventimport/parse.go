package eventimport

import (
	"bytes"
	"strings"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hitoshi/marga/internal/model"
)

// convertItems はgofeedのアイテムをイベント候補に変換する。
func convertItems(items []*gofeed.Item) []model.ParsedEvent {
	events := make([]model.ParsedEvent, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		ev := model.ParsedEvent{
			GUID:    item.GUID,
			Title:   strings.TrimSpace(item.Title),
			Link:    item.Link,
			Content: item.Content,
		}
		if ev.Content == "" {
			ev.Content = item.Description
		}
		if len(item.Categories) > 0 {
			ev.Category = strings.TrimSpace(item.Categories[0])
		}

		switch {
		case item.PublishedParsed != nil:
			t := *item.PublishedParsed
			ev.PublishedAt = &t
		case item.UpdatedParsed != nil:
			t := *item.UpdatedParsed
			ev.PublishedAt = &t
		}

		// LinkがなくGUIDがURL形式の場合はGUIDをLinkとして使う
		if ev.Link == "" && isHTTPURL(ev.GUID) {
			ev.Link = ev.GUID
		}

		ev.ImageURL = itemImage(item, ev.Content)
		events = append(events, ev)
	}
	return events
}

// itemImage はフィード上の画像指定、画像エンクロージャ、本文中の最初のimgの順に画像URLを探す。
func itemImage(item *gofeed.Item, content string) string {
	if item.Image != nil && isHTTPURL(item.Image.URL) {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && isHTTPURL(enc.URL) {
			return enc.URL
		}
	}
	return firstImageSrc(content)
}

// firstImageSrc はHTML断片から最初のimg要素のsrcを返す。
func firstImageSrc(fragment string) string {
	if !strings.Contains(fragment, "<img") && !strings.Contains(fragment, "<IMG") {
		return ""
	}
	z := html.NewTokenizer(bytes.NewReader([]byte(fragment)))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.DataAtom != atom.Img {
				continue
			}
			for _, a := range tok.Attr {
				if a.Key == "src" && isHTTPURL(a.Val) {
					return a.Val
				}
			}
		}
	}
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
