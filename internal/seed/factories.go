// Package seed provides helpers to create demo content for development and
// tests. Nothing here runs in production.
package seed

import (
	"fmt"
	"strings"
	"time"

	"newsdesk/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

var categories = []string{
	"local-news", "politics", "business", "weather", "sport",
	"culture", "science", "traffic", "health", "opinion",
}

var statuses = []models.ContentStatus{
	models.StatusDraft, models.StatusScheduled, models.StatusPublished,
	models.StatusPublished, models.StatusPublished, models.StatusArchived,
}

// Factory builds content items with realistic fake fields. A fixed seed
// gives reproducible output.
type Factory struct {
	faker   *gofakeit.Faker
	maxDays int
}

// NewFactory creates a Factory. seed 0 picks a random seed.
func NewFactory(seed int64, maxDays int) *Factory {
	if maxDays <= 0 {
		maxDays = 30
	}
	return &Factory{faker: gofakeit.New(seed), maxDays: maxDays}
}

// BuildItem returns an unsaved item of kind. Overrides run last.
func (f *Factory) BuildItem(kind models.ContentKind, overrides ...func(*models.ContentItem)) models.ContentItem {
	item := models.ContentItem{
		Kind:       kind,
		Title:      strings.TrimSuffix(f.faker.Sentence(6), "."),
		Content:    f.faker.Paragraph(1, 3, 12, "\n"),
		AuthorName: f.faker.Name(),
		Category:   categories[f.faker.Number(0, len(categories)-1)],
		Status:     statuses[f.faker.Number(0, len(statuses)-1)],
		Featured:   f.faker.Number(1, 10) == 1,
		Views:      f.faker.Number(0, 5000),
		Comments:   f.faker.Number(0, 120),
	}

	daysBack := f.faker.Number(0, f.maxDays-1)
	minsBack := f.faker.Number(0, 24*60-1)
	item.CreatedAt = time.Now().UTC().
		Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(minsBack)*time.Minute)

	switch kind {
	case models.KindBulletin:
		item.Title = fmt.Sprintf("%s bulletin: %s", f.faker.WeekDay(), item.Title)
		item.AudioURL = fmt.Sprintf("https://cdn.example.com/bulletins/%s.mp3", f.faker.UUID())
		item.DurationSeconds = f.faker.Number(60, 600)
	case models.KindBlock:
		item.Content = f.faker.Sentence(12)
	}

	for _, override := range overrides {
		override(&item)
	}
	return item
}

// ViewerID returns a fake viewer id for engagement seeding.
func (f *Factory) ViewerID() string {
	return "viewer-" + f.faker.Username()
}
