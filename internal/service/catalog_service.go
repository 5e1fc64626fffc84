package service

import (
	"context"
	"log/slog"
	"strings"

	"accessdesk/internal/authz"
	"accessdesk/internal/featureflags"
	"accessdesk/internal/models"
	"accessdesk/internal/observability"
	"accessdesk/internal/repository"
)

type CatalogService struct {
	software repository.SoftwareRepository
	requests repository.AccessRequestRepository
	flags    *featureflags.Manager
}

type CreateSoftwareInput struct {
	Name         string
	Description  string
	AccessLevels []string
}

// UpdateSoftwareInput carries a partial update. Nil fields are left unchanged.
type UpdateSoftwareInput struct {
	ID           uint
	Name         *string
	Description  *string
	AccessLevels []string
}

func NewCatalogService(
	software repository.SoftwareRepository,
	requests repository.AccessRequestRepository,
	flags *featureflags.Manager,
) *CatalogService {
	return &CatalogService{software: software, requests: requests, flags: flags}
}

func (s *CatalogService) List(ctx context.Context, actor models.Actor) ([]*models.Software, error) {
	if _, err := authz.Authorize(actor, 0, authz.ActionViewSoftware); err != nil {
		return nil, err
	}
	return s.software.List(ctx)
}

func (s *CatalogService) GetByID(ctx context.Context, actor models.Actor, id uint) (*models.Software, error) {
	if _, err := authz.Authorize(actor, 0, authz.ActionViewSoftware); err != nil {
		return nil, err
	}
	return s.software.GetByID(ctx, id)
}

// GetByName looks up an entry by its exact, case-sensitive name.
func (s *CatalogService) GetByName(ctx context.Context, actor models.Actor, name string) (*models.Software, error) {
	if _, err := authz.Authorize(actor, 0, authz.ActionViewSoftware); err != nil {
		return nil, err
	}
	return s.software.GetByName(ctx, name)
}

func (s *CatalogService) FindByAccessLevel(ctx context.Context, actor models.Actor, rawLevel string) ([]*models.Software, error) {
	level, err := models.ParseAccessLevel(rawLevel)
	if err != nil {
		return nil, err
	}
	all, err := s.List(ctx, actor)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Software, 0, len(all))
	for _, sw := range all {
		if sw.Supports(level) {
			out = append(out, sw)
		}
	}
	return out, nil
}

// Search matches query as a case-insensitive substring of name or description.
// A blank query returns the whole catalog.
func (s *CatalogService) Search(ctx context.Context, actor models.Actor, query string) ([]*models.Software, error) {
	all, err := s.List(ctx, actor)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}
	out := make([]*models.Software, 0, len(all))
	for _, sw := range all {
		if strings.Contains(strings.ToLower(sw.Name), q) || strings.Contains(strings.ToLower(sw.Description), q) {
			out = append(out, sw)
		}
	}
	return out, nil
}

// SoftwareStats counts the requests referencing one entry by status.
func (s *CatalogService) SoftwareStats(ctx context.Context, actor models.Actor, id uint) (models.RequestStats, error) {
	if _, err := authz.Authorize(actor, 0, authz.ActionViewSoftwareStats); err != nil {
		return models.RequestStats{}, err
	}
	if _, err := s.software.GetByID(ctx, id); err != nil {
		return models.RequestStats{}, err
	}
	return s.requests.Stats(ctx, repository.AccessRequestFilter{SoftwareID: &id})
}

func (s *CatalogService) Create(ctx context.Context, actor models.Actor, in CreateSoftwareInput) (*models.Software, error) {
	if _, err := authz.Authorize(actor, 0, authz.ActionCreateSoftware); err != nil {
		return nil, err
	}
	name, err := cleanName(in.Name)
	if err != nil {
		return nil, err
	}
	levels, err := parseLevels(in.AccessLevels)
	if err != nil {
		return nil, err
	}

	sw := &models.Software{
		Name:         name,
		Description:  strings.TrimSpace(in.Description),
		AccessLevels: levels,
	}
	if err := s.software.Create(ctx, sw); err != nil {
		s.rejected(ctx, "create", err)
		return nil, err
	}

	observability.CatalogMutations.WithLabelValues("create").Inc()
	slog.InfoContext(ctx, "software created", slog.Uint64("software_id", uint64(sw.ID)), slog.String("name", sw.Name))
	return sw, nil
}

func (s *CatalogService) Update(ctx context.Context, actor models.Actor, in UpdateSoftwareInput) (*models.Software, error) {
	if _, err := authz.Authorize(actor, 0, authz.ActionUpdateSoftware); err != nil {
		return nil, err
	}
	sw, err := s.software.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name, err := cleanName(*in.Name)
		if err != nil {
			return nil, err
		}
		sw.Name = name
	}
	if in.Description != nil {
		sw.Description = strings.TrimSpace(*in.Description)
	}
	if in.AccessLevels != nil {
		levels, err := parseLevels(in.AccessLevels)
		if err != nil {
			return nil, err
		}
		sw.AccessLevels = levels
	}

	if err := s.software.Update(ctx, sw); err != nil {
		s.rejected(ctx, "update", err)
		return nil, err
	}

	observability.CatalogMutations.WithLabelValues("update").Inc()
	slog.InfoContext(ctx, "software updated", slog.Uint64("software_id", uint64(sw.ID)))
	return sw, nil
}

// Delete removes an entry while no Pending request references it. With
// catalog_delete_blocks_approved on, Approved requests block it too. The flag
// is evaluated for no particular user, so a partial rollout leaves it off.
func (s *CatalogService) Delete(ctx context.Context, actor models.Actor, id uint) error {
	if _, err := authz.Authorize(actor, 0, authz.ActionDeleteSoftware); err != nil {
		return err
	}

	blocking := []models.RequestStatus{models.StatusPending}
	if s.flags.Enabled(featureflags.CatalogDeleteBlocksApproved, 0) {
		blocking = append(blocking, models.StatusApproved)
	}

	if err := s.software.Delete(ctx, id, blocking); err != nil {
		s.rejected(ctx, "delete", err)
		return err
	}

	observability.CatalogMutations.WithLabelValues("delete").Inc()
	slog.InfoContext(ctx, "software deleted", slog.Uint64("software_id", uint64(id)))
	return nil
}

func (s *CatalogService) rejected(ctx context.Context, operation string, err error) {
	if models.IsCode(err, models.CodeConflict) {
		observability.DomainRejections.WithLabelValues(models.CodeConflict, "software_"+operation).Inc()
		slog.WarnContext(ctx, "software "+operation+" refused", slog.String("reason", err.Error()))
	}
}

func cleanName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", models.NewValidationError("name is required")
	}
	if len(name) > 120 {
		return "", models.NewValidationError("name must not exceed 120 characters")
	}
	return name, nil
}

func parseLevels(raw []string) ([]models.AccessLevel, error) {
	levels := make([]models.AccessLevel, 0, len(raw))
	for _, r := range raw {
		l, err := models.ParseAccessLevel(r)
		if err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return models.NormalizeAccessLevels(levels)
}
