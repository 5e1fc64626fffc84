package repository

import (
	"context"
	"errors"
	"time"

	"accessdesk/internal/models"
	"accessdesk/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Messages used by the request lifecycle errors.
const (
	MsgPendingExists      = "you already have a pending request for this software"
	MsgAlreadyApproved    = "you already have approved access to this software"
	MsgOnlyPendingUpdated = "Only pending requests can be updated"
	MsgOnlyPendingDeleted = "Only pending requests can be deleted"
)

// AccessRequestFilter narrows list and stats queries. Nil fields do not filter.
// CreatedFrom and CreatedTo are inclusive.
type AccessRequestFilter struct {
	UserID      *uint
	SoftwareID  *uint
	Status      *models.RequestStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

func (f AccessRequestFilter) apply(q *gorm.DB) *gorm.DB {
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.SoftwareID != nil {
		q = q.Where("software_id = ?", *f.SoftwareID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		q = q.Where("created_at <= ?", *f.CreatedTo)
	}
	return q
}

// AccessRequestRepository defines persistence operations for access requests.
type AccessRequestRepository interface {
	GetByID(ctx context.Context, id uint) (*models.AccessRequest, error)
	// List returns matching requests, newest first.
	List(ctx context.Context, filter AccessRequestFilter) ([]*models.AccessRequest, error)
	// Stats counts matching requests by status in a single query.
	Stats(ctx context.Context, filter AccessRequestFilter) (models.RequestStats, error)
	// CreatePending checks for an open or granted request on the same
	// (user, software) pair and inserts req as Pending, atomically.
	CreatePending(ctx context.Context, req *models.AccessRequest) error
	// Review applies the decision only if the request is still Pending.
	Review(ctx context.Context, id uint, decision models.ReviewDecision) (*models.AccessRequest, error)
	// DeletePending removes the request only if it is still Pending.
	DeletePending(ctx context.Context, id uint) error
}

type accessRequestRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

func NewAccessRequestRepository(db *gorm.DB) AccessRequestRepository {
	return &accessRequestRepository{db: db, log: observability.NewRepoLogger("access_requests")}
}

func (r *accessRequestRepository) GetByID(ctx context.Context, id uint) (*models.AccessRequest, error) {
	var req models.AccessRequest
	if err := r.db.WithContext(ctx).First(&req, id).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Access request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &req, nil
}

func (r *accessRequestRepository) List(ctx context.Context, filter AccessRequestFilter) ([]*models.AccessRequest, error) {
	defer observability.TrackQuery("list", "access_requests")()
	var reqs []*models.AccessRequest
	q := filter.apply(r.db.WithContext(ctx).Model(&models.AccessRequest{}))
	if err := q.Order("created_at DESC").Order("id DESC").Find(&reqs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reqs, nil
}

type statusCount struct {
	Status models.RequestStatus
	Count  int64
}

func (r *accessRequestRepository) Stats(ctx context.Context, filter AccessRequestFilter) (models.RequestStats, error) {
	defer observability.TrackQuery("stats", "access_requests")()
	var rows []statusCount
	q := filter.apply(r.db.WithContext(ctx).Model(&models.AccessRequest{}))
	if err := q.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return models.RequestStats{}, models.NewInternalError(err)
	}

	var stats models.RequestStats
	for _, row := range rows {
		stats.Add(row.Status, row.Count)
	}
	return stats, nil
}

func (r *accessRequestRepository) CreatePending(ctx context.Context, req *models.AccessRequest) error {
	defer observability.TrackQuery("create", "access_requests")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serializes against a concurrent catalog delete of the same entry.
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Select("id").First(&models.Software{}, req.SoftwareID).Error; err != nil {
			if isNotFound(err) {
				return models.NewNotFoundError("Software", req.SoftwareID)
			}
			return err
		}

		for _, check := range []struct {
			status models.RequestStatus
			msg    string
		}{
			{models.StatusPending, MsgPendingExists},
			{models.StatusApproved, MsgAlreadyApproved},
		} {
			var n int64
			if err := tx.Model(&models.AccessRequest{}).
				Where("user_id = ? AND software_id = ? AND status = ?", req.UserID, req.SoftwareID, check.status).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return models.NewConflictError(check.msg)
			}
		}

		req.ID = 0
		req.Status = models.StatusPending
		req.ReviewedBy = nil
		req.ReviewedAt = nil
		req.ReviewComments = ""
		return tx.Create(req).Error
	})
	if err != nil {
		var appErr *models.AppError
		switch {
		case errors.As(err, &appErr):
			return err
		case isUniqueConstraintError(err):
			// A concurrent create for the same pair won the partial unique index.
			return models.NewConflictError(MsgPendingExists)
		default:
			r.log.LogError(ctx, err, "create")
			return models.NewInternalError(err)
		}
	}

	r.log.LogCreate(ctx, "id", req.ID, "user_id", req.UserID, "software_id", req.SoftwareID)
	return nil
}

func (r *accessRequestRepository) Review(ctx context.Context, id uint, decision models.ReviewDecision) (*models.AccessRequest, error) {
	defer observability.TrackQuery("review", "access_requests")()
	var out models.AccessRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&out, id).Error; err != nil {
			if isNotFound(err) {
				return models.NewNotFoundError("Access request", id)
			}
			return err
		}
		if !out.CanBeReviewed() {
			return models.NewInvalidTransitionError(MsgOnlyPendingUpdated)
		}

		reviewer := decision.ReviewerID
		reviewedAt := decision.ReviewedAt
		res := tx.Model(&models.AccessRequest{}).
			Where("id = ? AND status = ?", id, models.StatusPending).
			Updates(map[string]any{
				"status":          decision.Status,
				"reviewed_by":     &reviewer,
				"reviewed_at":     &reviewedAt,
				"review_comments": decision.Comments,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewInvalidTransitionError(MsgOnlyPendingUpdated)
		}
		return tx.First(&out, id).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		r.log.LogError(ctx, err, "review")
		return nil, models.NewInternalError(err)
	}

	r.log.LogUpdate(ctx, "id", id, "status", out.Status, "reviewed_by", decision.ReviewerID)
	return &out, nil
}

func (r *accessRequestRepository) DeletePending(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Delete(&models.AccessRequest{})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "delete")
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return models.NewInvalidTransitionError(MsgOnlyPendingDeleted)
	}
	r.log.LogDelete(ctx, "id", id)
	return nil
}
