package models

import "time"

// InteractionType is a user engagement action on a content item.
type InteractionType string

const (
	InteractionLike     InteractionType = "like"
	InteractionBookmark InteractionType = "bookmark"
	InteractionShare    InteractionType = "share"
)

// Valid reports whether t is a known interaction type.
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionLike, InteractionBookmark, InteractionShare:
		return true
	}
	return false
}

// Points returns the gamification reward for activating the interaction.
func (t InteractionType) Points() int {
	switch t {
	case InteractionLike:
		return 1
	case InteractionBookmark:
		return 2
	case InteractionShare:
		return 5
	}
	return 0
}

// CounterColumn returns the content_items column aggregating this interaction.
func (t InteractionType) CounterColumn() string {
	switch t {
	case InteractionLike:
		return "likes"
	case InteractionBookmark:
		return "bookmarks"
	case InteractionShare:
		return "shares"
	}
	return ""
}

// Interaction records that a user activated an interaction on a content item.
type Interaction struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    string          `gorm:"size:64;not null;uniqueIndex:idx_interaction_unique,priority:1" json:"user_id"`
	TargetID  string          `gorm:"size:36;not null;uniqueIndex:idx_interaction_unique,priority:2;index" json:"target_id"`
	Type      InteractionType `gorm:"size:16;not null;uniqueIndex:idx_interaction_unique,priority:3" json:"type"`
	CreatedAt time.Time       `json:"created_at"`
}

// PointsAward records that points were granted once for (user, target, type).
// Awards are never revoked, so re-activating an interaction earns nothing.
type PointsAward struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    string          `gorm:"size:64;not null;uniqueIndex:idx_award_unique,priority:1" json:"user_id"`
	TargetID  string          `gorm:"size:36;not null;uniqueIndex:idx_award_unique,priority:2" json:"target_id"`
	Type      InteractionType `gorm:"size:16;not null;uniqueIndex:idx_award_unique,priority:3" json:"type"`
	Points    int             `gorm:"not null" json:"points"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListVersion is the optimistic-concurrency token for one content list.
type ListVersion struct {
	Kind      ContentKind `gorm:"primaryKey;size:16" json:"kind"`
	Version   int64       `gorm:"not null;default:0" json:"version"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// InteractionResult is the canonical server state after an interaction.
type InteractionResult struct {
	PointsEarned int  `json:"pointsEarned"`
	TotalPoints  int  `json:"totalPoints"`
	IsLiked      bool `json:"isLiked"`
	IsBookmarked bool `json:"isBookmarked"`
	IsShared     bool `json:"isShared"`
	Likes        int  `json:"likes"`
	Bookmarks    int  `json:"bookmarks"`
	Shares       int  `json:"shares"`
}
