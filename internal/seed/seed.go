package seed

import (
	"context"
	"fmt"
	"log/slog"

	"newsdesk/internal/cache"
	"newsdesk/internal/middleware"
	"newsdesk/internal/models"
	"newsdesk/internal/repository"
	"newsdesk/internal/service"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var kinds = []models.ContentKind{models.KindBlock, models.KindBulletin, models.KindArticle}

// Options configures the seeder.
type Options struct {
	PerKind      int
	Viewers      int
	Interactions int
	ShouldClean  bool
	// Seed fixes the fake data; 0 is random.
	Seed int64
}

// Summary reports what a run created.
type Summary struct {
	Items        map[models.ContentKind]int
	Interactions int
}

// Seeder fills the content lists with demo data through the repositories,
// so orders and counters follow the same rules as the API.
type Seeder struct {
	db           *gorm.DB
	opts         Options
	factory      *Factory
	content      repository.ContentRepository
	interactions *service.InteractionService
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.PerKind <= 0 {
		opts.PerKind = 12
	}
	if opts.Viewers <= 0 {
		opts.Viewers = 8
	}
	return &Seeder{
		db:           db,
		opts:         opts,
		factory:      NewFactory(opts.Seed, 30),
		content:      repository.NewContentRepository(db),
		interactions: service.NewInteractionService(repository.NewInteractionRepository(db), nil),
	}
}

// ClearAll removes every content row, interaction, award and list version.
func (s *Seeder) ClearAll(ctx context.Context) error {
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{
		&models.Interaction{},
		&models.PointsAward{},
		&models.ContentItem{},
		&models.ListVersion{},
	} {
		if err := db.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	for _, kind := range kinds {
		cache.InvalidateContent(ctx, string(kind))
	}
	middleware.Logger.InfoContext(ctx, "cleared content tables")
	return nil
}

// Run optionally clears the database, then seeds content and engagement.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	if s.opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return Summary{}, err
		}
	}

	lists, err := s.SeedContent(ctx)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Items: make(map[models.ContentKind]int, len(lists))}
	var all []models.ContentItem
	for _, kind := range kinds {
		summary.Items[kind] = len(lists[kind])
		all = append(all, lists[kind]...)
	}

	summary.Interactions, err = s.SeedEngagement(ctx, all)
	if err != nil {
		return summary, err
	}
	return summary, nil
}

// SeedContent creates PerKind items in every list. Lists are filled
// concurrently; items within a list are created in order.
func (s *Seeder) SeedContent(ctx context.Context) (map[models.ContentKind][]models.ContentItem, error) {
	// The factory is not safe for concurrent use, so build everything first.
	drafts := make(map[models.ContentKind][]models.ContentItem, len(kinds))
	for _, kind := range kinds {
		for i := 0; i < s.opts.PerKind; i++ {
			drafts[kind] = append(drafts[kind], s.factory.BuildItem(kind))
		}
	}

	out := make(map[models.ContentKind][]models.ContentItem, len(kinds))
	results := make([][]models.ContentItem, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			created := make([]models.ContentItem, 0, len(drafts[kind]))
			for _, draft := range drafts[kind] {
				item := draft
				if err := s.content.Create(gctx, &item); err != nil {
					return fmt.Errorf("seed %s: %w", kind.Resource(), err)
				}
				created = append(created, item)
			}
			results[i] = created
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, kind := range kinds {
		out[kind] = results[i]
		middleware.Logger.InfoContext(ctx, "seeded content list",
			slog.String("resource", kind.Resource()),
			slog.Int("count", len(results[i])),
		)
	}
	return out, nil
}

// SeedEngagement has a pool of fake viewers like, bookmark and share random
// items. It returns how many interactions changed state.
func (s *Seeder) SeedEngagement(ctx context.Context, items []models.ContentItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	viewers := make([]string, s.opts.Viewers)
	for i := range viewers {
		viewers[i] = fmt.Sprintf("%s-%d", s.factory.ViewerID(), i)
	}

	count := s.opts.Interactions
	if count <= 0 {
		count = len(items) * 2
	}
	types := []models.InteractionType{models.InteractionLike, models.InteractionBookmark, models.InteractionShare}

	changed := 0
	for i := 0; i < count; i++ {
		in := service.InteractionInput{
			UserID:   viewers[s.factory.faker.Number(0, len(viewers)-1)],
			TargetID: items[s.factory.faker.Number(0, len(items)-1)].ID,
			Type:     types[s.factory.faker.Number(0, len(types)-1)],
			Active:   true,
		}
		outcome, err := s.interactions.Interact(ctx, in)
		if err != nil {
			return changed, fmt.Errorf("seed interaction: %w", err)
		}
		if outcome.Changed {
			changed++
		}
	}
	middleware.Logger.InfoContext(ctx, "seeded engagement", slog.Int("interactions", changed))
	return changed, nil
}
