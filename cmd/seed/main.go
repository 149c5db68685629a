// Command seed fills the content lists with demo data.
package main

import (
	"context"
	"flag"
	"log"

	"newsdesk/internal/cache"
	"newsdesk/internal/config"
	"newsdesk/internal/database"
	"newsdesk/internal/seed"
)

func main() {
	perKind := flag.Int("items", 12, "Number of items to create per list")
	viewers := flag.Int("viewers", 8, "Number of fake viewers")
	interactions := flag.Int("interactions", 0, "Number of random interactions (0 = twice the item count)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	seedValue := flag.Int64("seed", 0, "Fix the fake data (0 = random)")
	flag.Parse()

	log.Println("🌱 Content Seeder")
	log.Printf("Target: %d items per list, %d viewers, clean=%v\n", *perKind, *viewers, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Cached lists would go stale behind the seeder's back.
	cache.InitRedis(cfg.RedisURL)

	s := seed.NewSeeder(db, seed.Options{
		PerKind:      *perKind,
		Viewers:      *viewers,
		Interactions: *interactions,
		ShouldClean:  *shouldClean,
		Seed:         *seedValue,
	})
	summary, err := s.Run(context.Background())
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	for kind, n := range summary.Items {
		log.Printf("  %s: %d", kind.Resource(), n)
	}
	log.Printf("  interactions: %d", summary.Interactions)
	log.Println("✨ All done!")
}
