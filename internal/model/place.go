package model

import "time"

// Coordinates は緯度経度を表す。
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place は観光スポットの参照データ。静的カタログまたはheritage_spotsから供給される。
type Place struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Location    string      `json:"location"`
	Rating      float64     `json:"rating"`
	Coordinates Coordinates `json:"coordinates"`
	Image       string      `json:"image,omitempty"`
	Featured    bool        `json:"featured,omitempty"`
	Remote      bool        `json:"remote,omitempty"`
}

// HeritageSpot は管理者・パートナーが登録したスポット（heritage_spotsテーブル）。
type HeritageSpot struct {
	ID          string
	Title       string
	Category    string
	Description string
	Location    string
	Rating      float64
	Lat         float64
	Lng         float64
	ImageURL    string
	CreatedAt   time.Time
}

// Place はHeritageSpotをカタログ上のPlaceに変換する。
func (s *HeritageSpot) Place() Place {
	return Place{
		ID:          s.ID,
		Title:       s.Title,
		Category:    s.Category,
		Description: s.Description,
		Location:    s.Location,
		Rating:      s.Rating,
		Coordinates: Coordinates{Lat: s.Lat, Lng: s.Lng},
		Image:       s.ImageURL,
		Remote:      true,
	}
}

// SavedPlace はユーザーが保存したスポットを表す。(user_id, place_id)で一意。
type SavedPlace struct {
	UserID    string
	PlaceID   string
	CreatedAt time.Time
}
