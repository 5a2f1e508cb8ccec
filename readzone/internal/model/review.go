package model

import "time"

type ReviewStatus string

const (
	StatusDraft     ReviewStatus = "DRAFT"
	StatusPublished ReviewStatus = "PUBLISHED"
	StatusArchived  ReviewStatus = "ARCHIVED"
	StatusDeleted   ReviewStatus = "DELETED"
)

type Review struct {
	ID            int64        `json:"id,string" db:"id"`
	UserID        int64        `json:"userId,string" db:"user_id"`
	BookID        int64        `json:"bookId,string" db:"book_id"`
	Content       string       `json:"content" db:"content"`
	IsRecommended bool         `json:"isRecommended" db:"is_recommended"`
	Rating        *int         `json:"rating,omitempty" db:"rating"`
	Tags          []string     `json:"tags" db:"tags"`
	Status        ReviewStatus `json:"status" db:"status"`
	LikeCount     int          `json:"likesCount" db:"like_count"`
	BookmarkCount int          `json:"bookmarksCount" db:"bookmark_count"`
	ViewCount     int          `json:"viewCount" db:"view_count"`
	CommentCount  int          `json:"commentsCount" db:"comment_count"`
	PublishedAt   *time.Time   `json:"publishedAt,omitempty" db:"published_at"`
	CreatedAt     time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time    `json:"updatedAt" db:"updated_at"`
}

type CreateReviewRequest struct {
	BookID        int64    `json:"bookId,string" validate:"required"`
	Content       string   `json:"content" validate:"required,min=1,max=10000"`
	IsRecommended bool     `json:"isRecommended"`
	Rating        *int     `json:"rating" validate:"omitempty,min=1,max=5"`
	Tags          []string `json:"tags" validate:"max=10,dive,required,max=30"`
	Draft         bool     `json:"draft"`
}

type BookSummary struct {
	ID        int64    `json:"id,string"`
	Title     string   `json:"title"`
	Authors   []string `json:"authors"`
	Thumbnail string   `json:"thumbnail"`
}

type UserSummary struct {
	ID        int64  `json:"id,string"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatarUrl"`
}

// ReviewView is a review as shown to a viewer. IsLiked and IsBookmarked stay nil for anonymous viewers.
type ReviewView struct {
	Review
	Book         BookSummary `json:"book"`
	Author       UserSummary `json:"author"`
	IsLiked      *bool       `json:"isLiked"`
	IsBookmarked *bool       `json:"isBookmarked"`
}
