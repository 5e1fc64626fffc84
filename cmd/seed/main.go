// Command seed populates the database with demo data.
package main

import (
	"context"
	"flag"
	"log"

	"accessdesk/internal/cache"
	"accessdesk/internal/config"
	"accessdesk/internal/database"
	"accessdesk/internal/seed"
)

func main() {
	numEmployees := flag.Int("employees", 20, "Number of employees to create")
	numRequests := flag.Int("requests", 60, "Number of access requests to attempt")
	shouldClean := flag.Bool("clean", false, "Remove all data before seeding")
	catalogOnly := flag.Bool("catalog-only", false, "Only upsert the built-in software catalog")
	fakerSeed := flag.Int64("seed", 0, "Random seed for fake data (0 = random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	ctx := context.Background()
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	cache.InitRedis(cfg.RedisURL)

	if *catalogOnly {
		sw, err := seed.Catalog(ctx, db)
		if err != nil {
			log.Fatalf("Catalog seeding failed: %v", err)
		}
		log.Printf("Catalog seeded: %d entries", len(sw))
		return
	}

	s := seed.NewSeeder(db)
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	sum, err := s.Run(ctx, seed.Options{
		Employees: *numEmployees,
		Requests:  *numRequests,
		Seed:      *fakerSeed,
		FastHash:  true,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d software, %d employees, %d requests (%d pending, %d approved, %d rejected), %d skipped",
		sum.Software, sum.Employees, sum.Requests.Total,
		sum.Requests.Pending, sum.Requests.Approved, sum.Requests.Rejected, sum.Skipped)
	log.Printf("All seeded accounts use the password %q; the reviewer is %q", seed.DefaultPassword, seed.ReviewerUsername)
}
