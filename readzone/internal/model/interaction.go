package model

import "time"

type LikeAction string

const (
	ActionLike   LikeAction = "like"
	ActionUnlike LikeAction = "unlike"
)

type BookmarkAction string

const (
	ActionBookmark   BookmarkAction = "bookmark"
	ActionUnbookmark BookmarkAction = "unbookmark"
)

type FollowAction string

const (
	ActionFollow   FollowAction = "follow"
	ActionUnfollow FollowAction = "unfollow"
)

type LikeResult struct {
	IsLiked    bool `json:"isLiked"`
	LikesCount int  `json:"likesCount"`
}

type BookmarkResult struct {
	IsBookmarked   bool `json:"isBookmarked"`
	BookmarksCount int  `json:"bookmarksCount"`
}

type FollowResult struct {
	IsFollowing    bool `json:"isFollowing"`
	FollowersCount int  `json:"followersCount"`
}

// ToggleResult is the outcome of a like or bookmark mutation inside one transaction.
type ToggleResult struct {
	Active  bool
	Count   int
	Changed bool
}

type EventType string

const (
	EventLiked        EventType = "LIKED"
	EventUnliked      EventType = "UNLIKED"
	EventBookmarked   EventType = "BOOKMARKED"
	EventUnbookmarked EventType = "UNBOOKMARKED"
	EventFollowed     EventType = "FOLLOWED"
	EventUnfollowed   EventType = "UNFOLLOWED"
)

type InteractionEvent struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	UserID       int64     `json:"userId"`
	ReviewID     int64     `json:"reviewId,omitempty"`
	TargetUserID int64     `json:"targetUserId,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}
