package model

import "time"

// EventSource はイベント情報を取り込むRSS/Atomフィードを表す。
type EventSource struct {
	ID                string
	FeedURL           string
	SiteURL           string
	Title             string
	ETag              string
	LastModified      string
	FetchStatus       FetchStatus
	ConsecutiveErrors int
	ErrorMessage      string
	NextFetchAt       time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FetchStatus はフィードのフェッチ状態を表す。
type FetchStatus string

const (
	// FetchStatusActive はアクティブなフェッチ状態。
	FetchStatusActive FetchStatus = "active"
	// FetchStatusStopped は停止されたフェッチ状態。
	FetchStatusStopped FetchStatus = "stopped"
	// FetchStatusError はエラーによるフェッチ停止状態。
	FetchStatusError FetchStatus = "error"
)

// DefaultEventPrice は価格未指定のイベントに設定される値。
const DefaultEventPrice = "Free"

// HeritageEvent は文化イベントを表す。
// フィードから取り込んだものはSourceIDとGUIDを持ち、パートナー登録分はPartnerEmailを持つ。
type HeritageEvent struct {
	ID           string
	SourceID     string
	GUID         string
	PartnerEmail string
	SpotName     string
	Title        string
	Description  string // サニタイズ済みHTML
	EventType    string
	Price        string
	EventDate    time.Time
	Link         string
	ImageURL     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ParsedEvent はフィードから抽出したイベント候補。
type ParsedEvent struct {
	GUID        string
	Title       string
	Link        string
	Content     string
	Category    string
	ImageURL    string
	PublishedAt *time.Time
}
