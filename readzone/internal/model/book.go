package model

import (
	"time"

	"github.com/zerodice0/readzone/readzone/internal/errs"
)

type Source string

const (
	SourceDatabase Source = "DATABASE"
	SourceKakao    Source = "KAKAO_API"
	SourceManual   Source = "MANUAL"
)

type Book struct {
	ID          int64      `json:"id,string,omitempty" db:"id"`
	ISBN        string     `json:"isbn" db:"isbn"`
	Title       string     `json:"title" db:"title"`
	Authors     []string   `json:"authors" db:"authors"`
	Publisher   string     `json:"publisher" db:"publisher"`
	Thumbnail   string     `json:"thumbnail" db:"thumbnail"`
	Description string     `json:"description,omitempty" db:"description"`
	PublishedAt *time.Time `json:"publishedAt,omitempty" db:"published_at"`
	Source      Source     `json:"source" db:"source"`
	ExternalID  string     `json:"externalId,omitempty" db:"external_id"`
	CreatedAt   time.Time  `json:"-" db:"created_at"`
}

type SearchQuery struct {
	Query string
	Page  int
	Limit int
}

// ErrorMarker reports a degraded answer or a per-item failure.
type ErrorMarker struct {
	ErrorType errs.ErrorType `json:"errorType"`
	Message   string         `json:"message"`
}

type SearchResult struct {
	Books      []Book       `json:"books"`
	Source     Source       `json:"source"`
	TotalCount int          `json:"totalCount"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	HasMore    bool         `json:"hasMore"`
	NoResults  bool         `json:"noResults"`
	Error      *ErrorMarker `json:"error,omitempty"`
}

// ExternalPage is one provider page as cached under the search key.
type ExternalPage struct {
	Books      []Book `json:"books"`
	TotalCount int    `json:"totalCount"`
	IsEnd      bool   `json:"isEnd"`
}

type ISBNResult struct {
	ISBN   string `json:"isbn"`
	Found  bool   `json:"found"`
	Book   *Book  `json:"book,omitempty"`
	Source Source `json:"source,omitempty"`
}

type BatchRequest struct {
	Queries    []string `json:"queries"`
	MaxResults int      `json:"maxResults"`
}

type BatchItem struct {
	Query  string        `json:"query"`
	Result *SearchResult `json:"result,omitempty"`
	Error  *ErrorMarker  `json:"error,omitempty"`
}

type BatchResult struct {
	Results []BatchItem `json:"results"`
}

type CreateBookRequest struct {
	ISBN        string     `json:"isbn"`
	Title       string     `json:"title" validate:"required,max=500"`
	Authors     []string   `json:"authors" validate:"max=20,dive,max=200"`
	Publisher   string     `json:"publisher" validate:"max=200"`
	Thumbnail   string     `json:"thumbnail" validate:"omitempty,url"`
	Description string     `json:"description" validate:"max=5000"`
	PublishedAt *time.Time `json:"publishedAt"`
	Source      Source     `json:"source" validate:"required,oneof=KAKAO_API MANUAL"`
	ExternalID  string     `json:"externalId" validate:"max=200"`
}

type CacheStats struct {
	Backend string  `json:"backend"`
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hitRate"`
}

type ClearCacheResult struct {
	Pattern string `json:"pattern,omitempty"`
	Deleted int    `json:"deleted"`
}
