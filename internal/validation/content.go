// Package validation holds input rules shared by the content handlers.
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLen   = 300
	MaxContentLen = 50000
	MaxAuthorLen  = 120
)

var categorySlugRegex = regexp.MustCompile(`^[a-z0-9-]{2,32}$`)

// reservedCategories collide with list query values.
var reservedCategories = map[string]struct{}{
	"all":   {},
	"none":  {},
	"new":   {},
	"admin": {},
}

// ValidateTitle requires a non-blank title within MaxTitleLen characters.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return fmt.Errorf("title too long (max %d characters)", MaxTitleLen)
	}
	return nil
}

func ValidateContent(content string) error {
	if utf8.RuneCountInString(content) > MaxContentLen {
		return fmt.Errorf("content too long (max %d characters)", MaxContentLen)
	}
	return nil
}

func ValidateAuthor(name string) error {
	if utf8.RuneCountInString(name) > MaxAuthorLen {
		return fmt.Errorf("author_name too long (max %d characters)", MaxAuthorLen)
	}
	return nil
}

// ValidateCategory accepts an empty category or a lowercase slug.
func ValidateCategory(slug string) error {
	if slug == "" {
		return nil
	}
	if !categorySlugRegex.MatchString(slug) {
		return fmt.Errorf("category must be 2-32 characters and contain only lowercase letters, numbers, and hyphens")
	}
	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return fmt.Errorf("category cannot start or end with a hyphen")
	}
	if _, exists := reservedCategories[slug]; exists {
		return fmt.Errorf("category is reserved")
	}
	return nil
}

// ValidateAudioURL accepts an empty value or an absolute http(s) URL.
func ValidateAudioURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("audio_url must be an absolute http(s) URL")
	}
	return nil
}
