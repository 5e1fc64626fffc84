// Package bootstrap wires the process-wide runtime shared by the binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"accessdesk/internal/cache"
	"accessdesk/internal/config"
	"accessdesk/internal/database"
	"accessdesk/internal/models"
	"accessdesk/internal/repository"
	"accessdesk/internal/seed"
	"accessdesk/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedCatalog upserts the built-in software catalog at startup.
	SeedCatalog bool
}

// InitRuntime connects to the database, applies the schema, connects to
// Redis and optionally seeds the catalog. The Redis client is nil when Redis
// is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return nil, nil, fmt.Errorf("schema apply failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := ensureDevRootAdmin(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if opts.SeedCatalog {
		if _, err := seed.Catalog(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed built-in catalog: %w", err)
		}
	}

	return db, r, nil
}

// ensureDevRootAdmin creates an Admin account in development when
// DEV_BOOTSTRAP_ROOT is set. An existing account with that username is left
// as is since roles cannot change.
func ensureDevRootAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "root"
	}
	if cfg.DevRootPassword == "" {
		return errors.New("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	users := repository.NewUserRepository(db)
	existing, err := users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.Role != models.RoleAdmin {
			slog.WarnContext(ctx, "development root account exists without Admin role",
				slog.String("username", username), slog.String("role", string(existing.Role)))
		}
		return nil
	case !models.IsCode(err, models.CodeNotFound):
		return err
	}

	root, err := service.NewUserService(users).Provision(ctx, username, cfg.DevRootPassword, models.RoleAdmin)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "development root admin created",
		slog.String("username", root.Username), slog.Uint64("user_id", uint64(root.ID)))
	return nil
}
