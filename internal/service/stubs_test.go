package service

import (
	"context"

	"accessdesk/internal/models"
	"accessdesk/internal/repository"
)

// requestRepoStub is a stub for repository.AccessRequestRepository.
type requestRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.AccessRequest, error)
	listFn          func(context.Context, repository.AccessRequestFilter) ([]*models.AccessRequest, error)
	statsFn         func(context.Context, repository.AccessRequestFilter) (models.RequestStats, error)
	createPendingFn func(context.Context, *models.AccessRequest) error
	reviewFn        func(context.Context, uint, models.ReviewDecision) (*models.AccessRequest, error)
	deletePendingFn func(context.Context, uint) error
}

func (s *requestRepoStub) GetByID(ctx context.Context, id uint) (*models.AccessRequest, error) {
	return s.getByIDFn(ctx, id)
}
func (s *requestRepoStub) List(ctx context.Context, f repository.AccessRequestFilter) ([]*models.AccessRequest, error) {
	return s.listFn(ctx, f)
}
func (s *requestRepoStub) Stats(ctx context.Context, f repository.AccessRequestFilter) (models.RequestStats, error) {
	return s.statsFn(ctx, f)
}
func (s *requestRepoStub) CreatePending(ctx context.Context, req *models.AccessRequest) error {
	return s.createPendingFn(ctx, req)
}
func (s *requestRepoStub) Review(ctx context.Context, id uint, d models.ReviewDecision) (*models.AccessRequest, error) {
	return s.reviewFn(ctx, id, d)
}
func (s *requestRepoStub) DeletePending(ctx context.Context, id uint) error {
	return s.deletePendingFn(ctx, id)
}

func noopRequestRepo() *requestRepoStub {
	return &requestRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.AccessRequest, error) {
			return &models.AccessRequest{ID: id, UserID: 1, SoftwareID: 2, Status: models.StatusPending}, nil
		},
		listFn: func(_ context.Context, _ repository.AccessRequestFilter) ([]*models.AccessRequest, error) {
			return nil, nil
		},
		statsFn: func(_ context.Context, _ repository.AccessRequestFilter) (models.RequestStats, error) {
			return models.RequestStats{}, nil
		},
		createPendingFn: func(_ context.Context, _ *models.AccessRequest) error { return nil },
		reviewFn: func(_ context.Context, id uint, d models.ReviewDecision) (*models.AccessRequest, error) {
			at := d.ReviewedAt
			return &models.AccessRequest{ID: id, UserID: 1, SoftwareID: 2, Status: d.Status, ReviewedBy: &d.ReviewerID, ReviewedAt: &at}, nil
		},
		deletePendingFn: func(_ context.Context, _ uint) error { return nil },
	}
}

// softwareRepoStub is a stub for repository.SoftwareRepository.
type softwareRepoStub struct {
	getByIDFn   func(context.Context, uint) (*models.Software, error)
	getByIDsFn  func(context.Context, []uint) ([]*models.Software, error)
	getByNameFn func(context.Context, string) (*models.Software, error)
	listFn      func(context.Context) ([]*models.Software, error)
	createFn    func(context.Context, *models.Software) error
	updateFn    func(context.Context, *models.Software) error
	deleteFn    func(context.Context, uint, []models.RequestStatus) error
}

func (s *softwareRepoStub) GetByID(ctx context.Context, id uint) (*models.Software, error) {
	return s.getByIDFn(ctx, id)
}
func (s *softwareRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]*models.Software, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *softwareRepoStub) GetByName(ctx context.Context, name string) (*models.Software, error) {
	return s.getByNameFn(ctx, name)
}
func (s *softwareRepoStub) List(ctx context.Context) ([]*models.Software, error) {
	return s.listFn(ctx)
}
func (s *softwareRepoStub) Create(ctx context.Context, sw *models.Software) error {
	return s.createFn(ctx, sw)
}
func (s *softwareRepoStub) Update(ctx context.Context, sw *models.Software) error {
	return s.updateFn(ctx, sw)
}
func (s *softwareRepoStub) Delete(ctx context.Context, id uint, blocking []models.RequestStatus) error {
	return s.deleteFn(ctx, id, blocking)
}

func noopSoftwareRepo() *softwareRepoStub {
	return &softwareRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.Software, error) {
			return &models.Software{ID: id, Name: "Reports", AccessLevels: []models.AccessLevel{models.AccessLevelRead}}, nil
		},
		getByIDsFn:  func(_ context.Context, _ []uint) ([]*models.Software, error) { return nil, nil },
		getByNameFn: func(_ context.Context, name string) (*models.Software, error) { return nil, models.NewNotFoundError("Software", name) },
		listFn:      func(_ context.Context) ([]*models.Software, error) { return nil, nil },
		createFn:    func(_ context.Context, _ *models.Software) error { return nil },
		updateFn:    func(_ context.Context, _ *models.Software) error { return nil },
		deleteFn:    func(_ context.Context, _ uint, _ []models.RequestStatus) error { return nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByIDsFn      func(context.Context, []uint) ([]*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	listFn          func(context.Context) ([]*models.User, error)
	createFn        func(context.Context, *models.User) error
	updatePassFn    func(context.Context, uint, string) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]*models.User, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) List(ctx context.Context) ([]*models.User, error) {
	return s.listFn(ctx)
}
func (s *userRepoStub) Create(ctx context.Context, u *models.User) error {
	return s.createFn(ctx, u)
}
func (s *userRepoStub) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return s.updatePassFn(ctx, id, hash)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Username: "user", Role: models.RoleEmployee}, nil
		},
		getByIDsFn:      func(_ context.Context, _ []uint) ([]*models.User, error) { return nil, nil },
		getByUsernameFn: func(_ context.Context, name string) (*models.User, error) { return nil, models.NewNotFoundError("User", name) },
		listFn:          func(_ context.Context) ([]*models.User, error) { return nil, nil },
		createFn:        func(_ context.Context, _ *models.User) error { return nil },
		updatePassFn:    func(_ context.Context, _ uint, _ string) error { return nil },
	}
}
