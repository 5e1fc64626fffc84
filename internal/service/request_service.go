// Package service holds the access request, catalog and user workflows.
// Every operation takes the acting user explicitly and re-evaluates the
// authorization policy on each call.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"accessdesk/internal/authz"
	"accessdesk/internal/models"
	"accessdesk/internal/observability"
	"accessdesk/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

type RequestService struct {
	requests repository.AccessRequestRepository
	software repository.SoftwareRepository
	users    repository.UserRepository
	now      func() time.Time
}

type CreateAccessRequestInput struct {
	SoftwareID uint
	AccessType string
	Reason     string
}

type UpdateStatusInput struct {
	ID     uint
	Status string
	// ReviewerID defaults to the acting user. Any other value is refused.
	ReviewerID uint
	Comments   string
}

func NewRequestService(
	requests repository.AccessRequestRepository,
	software repository.SoftwareRepository,
	users repository.UserRepository,
) *RequestService {
	return &RequestService{
		requests: requests,
		software: software,
		users:    users,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListRequests returns every request for managerial actors and only the
// actor's own for employees, newest first.
func (s *RequestService) ListRequests(ctx context.Context, actor models.Actor) ([]*models.AccessRequestView, error) {
	filter, err := s.scopedFilter(actor, authz.ActionListRequests)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, filter)
}

func (s *RequestService) ListPending(ctx context.Context, actor models.Actor) ([]*models.AccessRequestView, error) {
	if _, err := authz.Authorize(actor, 0, authz.ActionListPending); err != nil {
		return nil, err
	}
	status := models.StatusPending
	return s.list(ctx, repository.AccessRequestFilter{Status: &status})
}

func (s *RequestService) ListByStatus(ctx context.Context, actor models.Actor, rawStatus string) ([]*models.AccessRequestView, error) {
	filter, err := s.scopedFilter(actor, authz.ActionListRequestsByStatus)
	if err != nil {
		return nil, err
	}
	status, err := models.ParseRequestStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	filter.Status = &status
	return s.list(ctx, filter)
}

func (s *RequestService) ListByUser(ctx context.Context, actor models.Actor, userID uint) ([]*models.AccessRequestView, error) {
	if _, err := authz.Authorize(actor, userID, authz.ActionListUserRequests); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.list(ctx, repository.AccessRequestFilter{UserID: &userID})
}

func (s *RequestService) ListBySoftware(ctx context.Context, actor models.Actor, softwareID uint) ([]*models.AccessRequestView, error) {
	if _, err := authz.Authorize(actor, 0, authz.ActionListSoftwareRequests); err != nil {
		return nil, err
	}
	if _, err := s.software.GetByID(ctx, softwareID); err != nil {
		return nil, err
	}
	return s.list(ctx, repository.AccessRequestFilter{SoftwareID: &softwareID})
}

// FindByDateRange filters on creation time with inclusive bounds. Bounds are
// YYYY-MM-DD dates or RFC 3339 timestamps; a date-only end covers that whole day.
func (s *RequestService) FindByDateRange(ctx context.Context, actor models.Actor, rawStart, rawEnd string) ([]*models.AccessRequestView, error) {
	filter, err := s.scopedFilter(actor, authz.ActionListRequestsByDateRange)
	if err != nil {
		return nil, err
	}
	start, end, err := ParseDateRange(rawStart, rawEnd)
	if err != nil {
		return nil, err
	}
	filter.CreatedFrom = &start
	filter.CreatedTo = &end
	return s.list(ctx, filter)
}

func (s *RequestService) GetByID(ctx context.Context, actor models.Actor, id uint) (*models.AccessRequestView, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := authz.Authorize(actor, req.UserID, authz.ActionViewRequest); err != nil {
		return nil, err
	}
	return s.enrichOne(ctx, req)
}

// Create files a Pending request owned by the actor.
func (s *RequestService) Create(ctx context.Context, actor models.Actor, in CreateAccessRequestInput) (view *models.AccessRequestView, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "RequestService", "Create",
		attribute.Int64("user.id", int64(actor.ID)),
		attribute.Int64("software.id", int64(in.SoftwareID)),
	)
	defer func() { finish(err) }()

	if _, err = authz.Authorize(actor, actor.ID, authz.ActionCreateRequest); err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, models.NewValidationError("reason is required")
	}
	level, err := models.ParseAccessLevel(in.AccessType)
	if err != nil {
		return nil, err
	}
	sw, err := s.software.GetByID(ctx, in.SoftwareID)
	if err != nil {
		return nil, err
	}
	if !sw.Supports(level) {
		return nil, models.NewValidationError(fmt.Sprintf("%s does not offer %s access", sw.Name, level))
	}

	req := &models.AccessRequest{
		UserID:     actor.ID,
		SoftwareID: sw.ID,
		AccessType: level,
		Reason:     reason,
	}
	if err = s.requests.CreatePending(ctx, req); err != nil {
		s.rejected(ctx, "create", err)
		return nil, err
	}

	observability.AccessRequestsCreated.Inc()
	slog.InfoContext(ctx, "access request created",
		slog.Uint64("request_id", uint64(req.ID)),
		slog.Uint64("software_id", uint64(sw.ID)),
		slog.String("access_type", string(level)),
	)

	return s.enrichOne(ctx, req)
}

// UpdateStatus decides a Pending request. The status check and the write
// happen atomically in the repository, so concurrent reviewers cannot both win.
func (s *RequestService) UpdateStatus(ctx context.Context, actor models.Actor, in UpdateStatusInput) (view *models.AccessRequestView, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "RequestService", "UpdateStatus",
		attribute.Int64("request.id", int64(in.ID)),
		attribute.String("request.status", in.Status),
	)
	defer func() { finish(err) }()

	if _, err = authz.Authorize(actor, 0, authz.ActionReviewRequest); err != nil {
		return nil, err
	}
	if in.ReviewerID != 0 && in.ReviewerID != actor.ID {
		return nil, models.NewForbiddenError("reviews are recorded under the acting user")
	}

	req, err := s.requests.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if !req.CanBeReviewed() {
		err = models.NewInvalidTransitionError(repository.MsgOnlyPendingUpdated)
		s.rejected(ctx, "review", err)
		return nil, err
	}

	next, err := models.ParseRequestStatus(in.Status)
	if err != nil {
		return nil, err
	}
	if !req.Status.CanTransitionTo(next) {
		return nil, models.NewValidationError("status must be Approved or Rejected")
	}

	updated, err := s.requests.Review(ctx, req.ID, models.ReviewDecision{
		Status:     next,
		ReviewerID: actor.ID,
		Comments:   strings.TrimSpace(in.Comments),
		ReviewedAt: s.now(),
	})
	if err != nil {
		s.rejected(ctx, "review", err)
		return nil, err
	}

	observability.AccessRequestsReviewed.WithLabelValues(string(updated.Status)).Inc()
	slog.InfoContext(ctx, "access request reviewed",
		slog.Uint64("request_id", uint64(updated.ID)),
		slog.String("status", string(updated.Status)),
		slog.Uint64("reviewer_id", uint64(actor.ID)),
	)

	return s.enrichOne(ctx, updated)
}

// Delete withdraws a request. Only Pending requests can be deleted, even by their owner.
func (s *RequestService) Delete(ctx context.Context, actor models.Actor, id uint) error {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := authz.Authorize(actor, req.UserID, authz.ActionDeleteRequest); err != nil {
		return err
	}
	if !req.CanBeDeleted() {
		err := models.NewInvalidTransitionError(repository.MsgOnlyPendingDeleted)
		s.rejected(ctx, "delete", err)
		return err
	}
	if err := s.requests.DeletePending(ctx, id); err != nil {
		s.rejected(ctx, "delete", err)
		return err
	}
	slog.InfoContext(ctx, "access request deleted", slog.Uint64("request_id", uint64(id)))
	return nil
}

func (s *RequestService) StatsGlobal(ctx context.Context, actor models.Actor) (models.RequestStats, error) {
	if _, err := authz.Authorize(actor, 0, authz.ActionViewStatsGlobal); err != nil {
		return models.RequestStats{}, err
	}
	return s.requests.Stats(ctx, repository.AccessRequestFilter{})
}

func (s *RequestService) StatsForUser(ctx context.Context, actor models.Actor, userID uint) (models.RequestStats, error) {
	if _, err := authz.Authorize(actor, userID, authz.ActionViewUserStats); err != nil {
		return models.RequestStats{}, err
	}
	return s.requests.Stats(ctx, repository.AccessRequestFilter{UserID: &userID})
}

func (s *RequestService) scopedFilter(actor models.Actor, action authz.Action) (repository.AccessRequestFilter, error) {
	d, err := authz.Authorize(actor, 0, action)
	if err != nil {
		return repository.AccessRequestFilter{}, err
	}
	var filter repository.AccessRequestFilter
	if d == authz.AllowScoped {
		owner := actor.ID
		filter.UserID = &owner
	}
	return filter, nil
}

func (s *RequestService) rejected(ctx context.Context, operation string, err error) {
	code := models.ErrorCode(err)
	switch code {
	case models.CodeConflict, models.CodeInvalidTransition:
		observability.DomainRejections.WithLabelValues(code, operation).Inc()
		slog.WarnContext(ctx, "access request "+operation+" refused",
			slog.String("code", code),
			slog.String("reason", err.Error()),
		)
	}
}

func (s *RequestService) list(ctx context.Context, filter repository.AccessRequestFilter) ([]*models.AccessRequestView, error) {
	reqs, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, reqs)
}

func (s *RequestService) enrichOne(ctx context.Context, req *models.AccessRequest) (*models.AccessRequestView, error) {
	views, err := s.enrich(ctx, []*models.AccessRequest{req})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// enrich attaches owner, software and reviewer summaries using one batched
// lookup per table. Summaries are copies; a missing row leaves the field nil.
func (s *RequestService) enrich(ctx context.Context, reqs []*models.AccessRequest) ([]*models.AccessRequestView, error) {
	views := make([]*models.AccessRequestView, 0, len(reqs))
	if len(reqs) == 0 {
		return views, nil
	}

	userIDs := make([]uint, 0, len(reqs))
	softwareIDs := make([]uint, 0, len(reqs))
	for _, r := range reqs {
		userIDs = append(userIDs, r.UserID)
		if r.ReviewedBy != nil {
			userIDs = append(userIDs, *r.ReviewedBy)
		}
		softwareIDs = append(softwareIDs, r.SoftwareID)
	}

	users, err := s.users.GetByIDs(ctx, uniqueIDs(userIDs))
	if err != nil {
		return nil, err
	}
	software, err := s.software.GetByIDs(ctx, uniqueIDs(softwareIDs))
	if err != nil {
		return nil, err
	}

	userByID := make(map[uint]models.UserSummary, len(users))
	for _, u := range users {
		userByID[u.ID] = u.Summary()
	}
	softwareByID := make(map[uint]models.SoftwareSummary, len(software))
	for _, sw := range software {
		softwareByID[sw.ID] = sw.Summary()
	}

	for _, r := range reqs {
		v := &models.AccessRequestView{AccessRequest: *r}
		if u, ok := userByID[r.UserID]; ok {
			v.User = &u
		}
		if sw, ok := softwareByID[r.SoftwareID]; ok {
			v.Software = &sw
		}
		if r.ReviewedBy != nil {
			if u, ok := userByID[*r.ReviewedBy]; ok {
				v.Reviewer = &u
			}
		}
		views = append(views, v)
	}
	return views, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
