// Package seed populates a database with demo data for development: the
// built-in software catalog, a reviewer, fake employees and a spread of
// requests in every status. Requests go through the request service so the
// one-pending-per-pair rule holds for seeded data too.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"accessdesk/internal/cache"
	"accessdesk/internal/models"
	"accessdesk/internal/repository"
	"accessdesk/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is set on every seeded account.
const DefaultPassword = "password123"

// ReviewerUsername is the manager account that decides seeded requests.
const ReviewerUsername = "reviewer"

// Options configures a seeding run.
type Options struct {
	Employees int
	Requests  int
	// Seed makes fake data reproducible. Zero picks a random seed.
	Seed int64
	// FastHash uses the minimum bcrypt cost for seeded passwords.
	FastHash bool
}

// Summary reports what a run created.
type Summary struct {
	Software  int
	Employees int
	Requests  models.RequestStats
	Skipped   int
}

// Seeder creates demo data through the service layer.
type Seeder struct {
	db       *gorm.DB
	userRepo repository.UserRepository
	users    *service.UserService
	requests *service.RequestService
}

func NewSeeder(db *gorm.DB) *Seeder {
	userRepo := repository.NewUserRepository(db)
	swRepo := repository.NewSoftwareRepository(db)
	reqRepo := repository.NewAccessRequestRepository(db)
	return &Seeder{
		db:       db,
		userRepo: userRepo,
		users:    service.NewUserService(userRepo),
		requests: service.NewRequestService(reqRepo, swRepo, userRepo),
	}
}

// ClearAll removes every request, catalog entry and user.
func (s *Seeder) ClearAll(ctx context.Context) error {
	var userIDs []uint
	if err := s.db.WithContext(ctx).Model(&models.User{}).Pluck("id", &userIDs).Error; err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&models.AccessRequest{}, &models.Software{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear data: %w", err)
	}

	for _, id := range userIDs {
		cache.InvalidateUser(ctx, id)
	}
	cache.Invalidate(ctx, cache.CatalogKey)
	slog.InfoContext(ctx, "seed data cleared", slog.Int("users", len(userIDs)))
	return nil
}

// Run seeds the catalog, the reviewer, opts.Employees employees and up to
// opts.Requests requests. Duplicate usernames and pending pairs are skipped.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	faker := gofakeit.New(opts.Seed)
	sum := &Summary{}
	if opts.FastHash {
		s.users.WithHashCost(bcrypt.MinCost)
	}

	catalog, err := Catalog(ctx, s.db)
	if err != nil {
		return nil, err
	}
	sum.Software = len(catalog)

	reviewer, err := s.ensureUser(ctx, ReviewerUsername, models.RoleManager)
	if err != nil {
		return nil, err
	}
	reviewerActor := models.Actor{ID: reviewer.ID, Role: reviewer.Role}

	employees := make([]*models.User, 0, opts.Employees)
	for range opts.Employees {
		name := faker.Username() + strconv.Itoa(faker.Number(100, 999))
		u, err := s.users.Provision(ctx, name, DefaultPassword, models.RoleEmployee)
		if models.IsCode(err, models.CodeConflict) || models.IsCode(err, models.CodeValidation) {
			sum.Skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("seed employee: %w", err)
		}
		employees = append(employees, u)
	}
	sum.Employees = len(employees)

	if len(employees) == 0 || len(catalog) == 0 {
		return sum, nil
	}

	for range opts.Requests {
		emp := employees[faker.Number(0, len(employees)-1)]
		sw := catalog[faker.Number(0, len(catalog)-1)]
		level := sw.AccessLevels[faker.Number(0, len(sw.AccessLevels)-1)]

		owner := models.Actor{ID: emp.ID, Role: emp.Role}
		view, err := s.requests.Create(ctx, owner, service.CreateAccessRequestInput{
			SoftwareID: sw.ID,
			AccessType: string(level),
			Reason:     faker.Sentence(8),
		})
		if models.IsCode(err, models.CodeConflict) {
			sum.Skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("seed request: %w", err)
		}
		sum.Requests.Total++

		var decision models.RequestStatus
		switch faker.Number(0, 2) {
		case 1:
			decision = models.StatusApproved
		case 2:
			decision = models.StatusRejected
		default:
			sum.Requests.Pending++
			continue
		}
		if _, err := s.requests.UpdateStatus(ctx, reviewerActor, service.UpdateStatusInput{
			ID:       view.ID,
			Status:   string(decision),
			Comments: faker.Sentence(5),
		}); err != nil {
			return nil, fmt.Errorf("seed review: %w", err)
		}
		if decision == models.StatusApproved {
			sum.Requests.Approved++
		} else {
			sum.Requests.Rejected++
		}
	}

	slog.InfoContext(ctx, "seed complete",
		slog.Int("software", sum.Software),
		slog.Int("employees", sum.Employees),
		slog.Int64("requests", sum.Requests.Total),
		slog.Int("skipped", sum.Skipped),
	)
	return sum, nil
}

func (s *Seeder) ensureUser(ctx context.Context, username string, role models.Role) (*models.User, error) {
	u, err := s.userRepo.GetByUsername(ctx, username)
	if err == nil {
		return u, nil
	}
	if !models.IsCode(err, models.CodeNotFound) {
		return nil, err
	}
	return s.users.Provision(ctx, username, DefaultPassword, role)
}
