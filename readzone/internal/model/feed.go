package model

import "time"

type FeedTab string

const (
	TabRecommended FeedTab = "recommended"
	TabLatest      FeedTab = "latest"
	TabFollowing   FeedTab = "following"
)

type FeedRequest struct {
	Tab    FeedTab
	Cursor string
	// Limit 0 means default.
	Limit int
}

// FeedKey is the keyset position of a review within a tab.
type FeedKey struct {
	Score       int64
	PublishedAt time.Time
	ID          int64
}

type FeedPage struct {
	Items      []ReviewView `json:"items"`
	HasMore    bool         `json:"hasMore"`
	NextCursor *string      `json:"nextCursor"`
}
