package eventimport

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/marga/internal/model"
)

func TestConvertItems(t *testing.T) {
	published := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	updated := time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC)

	items := []*gofeed.Item{
		{
			GUID:            "dasara-2026",
			Title:           "  Dasara Procession ",
			Link:            "https://events.example.com/dasara",
			Description:     `<p>Jamboo Savari</p><img src="https://img.example.com/d.jpg">`,
			Categories:      []string{" Festival ", "Mysuru"},
			PublishedParsed: &published,
		},
		nil,
		{
			GUID:          "https://events.example.com/yoga",
			Title:         "Yoga at the Palace",
			Content:       "<p>Morning session</p>",
			Description:   "ignored",
			UpdatedParsed: &updated,
			Enclosures: []*gofeed.Enclosure{
				{URL: "https://img.example.com/a.mp3", Type: "audio/mpeg"},
				{URL: "https://img.example.com/y.png", Type: "image/png"},
			},
		},
	}

	got := convertItems(items)

	want := []model.ParsedEvent{
		{
			GUID:        "dasara-2026",
			Title:       "Dasara Procession",
			Link:        "https://events.example.com/dasara",
			Content:     `<p>Jamboo Savari</p><img src="https://img.example.com/d.jpg">`,
			Category:    "Festival",
			ImageURL:    "https://img.example.com/d.jpg",
			PublishedAt: &published,
		},
		{
			GUID:        "https://events.example.com/yoga",
			Title:       "Yoga at the Palace",
			Link:        "https://events.example.com/yoga",
			Content:     "<p>Morning session</p>",
			ImageURL:    "https://img.example.com/y.png",
			PublishedAt: &updated,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("convertItems() mismatch (-want +got):\n%s", diff)
	}
}

func TestItemImage_PrefersFeedImage(t *testing.T) {
	item := &gofeed.Item{Image: &gofeed.Image{URL: "https://img.example.com/cover.jpg"}}
	if got := itemImage(item, `<img src="https://img.example.com/other.jpg">`); got != "https://img.example.com/cover.jpg" {
		t.Errorf("itemImage() = %q", got)
	}
}

func TestFirstImageSrc(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		want     string
	}{
		{"no image", "<p>text</p>", ""},
		{"first image", `<p>a</p><IMG SRC="https://x.example/1.jpg"><img src="https://x.example/2.jpg">`, "https://x.example/1.jpg"},
		{"skips non http", `<img src="data:image/png;base64,AAA"><img src="https://x.example/2.jpg"/>`, "https://x.example/2.jpg"},
		{"img without src", `<p><img alt="x"></p>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstImageSrc(tt.fragment); got != tt.want {
				t.Errorf("firstImageSrc() = %q, want %q", got, tt.want)
			}
		})
	}
}
