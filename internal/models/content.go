// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"
)

// ContentKind identifies which managed list a content item belongs to.
type ContentKind string

const (
	KindBlock    ContentKind = "block"
	KindBulletin ContentKind = "bulletin"
	KindArticle  ContentKind = "article"
)

// ContentStatus represents the publishing state of a content item.
type ContentStatus string

const (
	StatusDraft     ContentStatus = "draft"
	StatusScheduled ContentStatus = "scheduled"
	StatusPublished ContentStatus = "published"
	StatusArchived  ContentStatus = "archived"
)

// resourceKinds maps URL resource names to content kinds.
var resourceKinds = map[string]ContentKind{
	"blocks":    KindBlock,
	"bulletins": KindBulletin,
	"articles":  KindArticle,
}

// KindForResource resolves a URL resource segment ("blocks", "bulletins",
// "articles") to its content kind.
func KindForResource(resource string) (ContentKind, bool) {
	k, ok := resourceKinds[strings.ToLower(strings.TrimSpace(resource))]
	return k, ok
}

// Resource returns the URL resource segment for the kind.
func (k ContentKind) Resource() string {
	return string(k) + "s"
}

// Valid reports whether k is a known kind.
func (k ContentKind) Valid() bool {
	switch k {
	case KindBlock, KindBulletin, KindArticle:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s ContentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// ContentItem is a smart block, audio bulletin or article managed by the desk.
type ContentItem struct {
	ID              string        `gorm:"primaryKey;size:36" json:"id"`
	Kind            ContentKind   `gorm:"size:16;not null;index:idx_content_kind_order,priority:1" json:"kind"`
	Title           string        `gorm:"not null" json:"title"`
	Content         string        `gorm:"type:text" json:"content"`
	AuthorName      string        `json:"author_name"`
	Category        string        `gorm:"index" json:"category"`
	Status          ContentStatus `gorm:"size:16;not null;default:draft" json:"status"`
	Order           int           `gorm:"column:sort_order;index:idx_content_kind_order,priority:2" json:"order"`
	Views           int           `gorm:"not null;default:0" json:"views"`
	Comments        int           `gorm:"not null;default:0" json:"comments"`
	Likes           int           `gorm:"not null;default:0" json:"likes"`
	Bookmarks       int           `gorm:"not null;default:0" json:"bookmarks"`
	Shares          int           `gorm:"not null;default:0" json:"shares"`
	Featured        bool          `gorm:"not null;default:false" json:"featured"`
	AudioURL        string        `json:"audio_url,omitempty"`
	DurationSeconds int           `json:"duration_seconds,omitempty"`
	// Per-viewer flags; never persisted on the item row.
	Liked      bool      `gorm:"-" json:"liked"`
	Bookmarked bool      `gorm:"-" json:"bookmarked"`
	Shared     bool      `gorm:"-" json:"shared"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName pins the table name used by gorm.
func (ContentItem) TableName() string {
	return "content_items"
}

// IsPublished returns true if the content item is in published status.
func (c *ContentItem) IsPublished() bool {
	return c.Status == StatusPublished
}

// CloneItems returns a shallow copy of items. ContentItem has no reference
// fields, so the copy is fully independent of the source slice.
func CloneItems(items []ContentItem) []ContentItem {
	if items == nil {
		return nil
	}
	out := make([]ContentItem, len(items))
	copy(out, items)
	return out
}

// IndexOf returns the position of the item with the given id, or -1.
func IndexOf(items []ContentItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
