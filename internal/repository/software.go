package repository

import (
	"context"
	"errors"

	"accessdesk/internal/cache"
	"accessdesk/internal/models"
	"accessdesk/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Conflict messages for a catalog delete blocked by live requests.
const (
	MsgDeleteBlockedPending  = "software has pending requests"
	MsgDeleteBlockedApproved = "software has approved access grants"
)

// SoftwareRepository defines persistence operations for the software catalog.
type SoftwareRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Software, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Software, error)
	GetByName(ctx context.Context, name string) (*models.Software, error)
	List(ctx context.Context) ([]*models.Software, error)
	Create(ctx context.Context, sw *models.Software) error
	Update(ctx context.Context, sw *models.Software) error
	// Delete removes the entry and its decided requests in one transaction.
	// It fails with Conflict if any request referencing it is in a blocking status.
	Delete(ctx context.Context, id uint, blocking []models.RequestStatus) error
}

type softwareRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

func NewSoftwareRepository(db *gorm.DB) SoftwareRepository {
	return &softwareRepository{db: db, log: observability.NewRepoLogger("software")}
}

func (r *softwareRepository) GetByID(ctx context.Context, id uint) (*models.Software, error) {
	var sw models.Software
	err := cache.Aside(ctx, cache.SoftwareKey(id), &sw, cache.SoftwareTTL, func() error {
		if err := r.db.WithContext(ctx).First(&sw, id).Error; err != nil {
			if isNotFound(err) {
				return models.NewNotFoundError("Software", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sw, nil
}

func (r *softwareRepository) GetByIDs(ctx context.Context, ids []uint) ([]*models.Software, error) {
	var list []*models.Software
	if len(ids) == 0 {
		return list, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return list, nil
}

func (r *softwareRepository) GetByName(ctx context.Context, name string) (*models.Software, error) {
	var sw models.Software
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&sw).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Software", name)
		}
		return nil, models.NewInternalError(err)
	}
	return &sw, nil
}

func (r *softwareRepository) List(ctx context.Context) ([]*models.Software, error) {
	var list []*models.Software
	err := cache.Aside(ctx, cache.CatalogKey, &list, cache.CatalogTTL, func() error {
		if err := r.db.WithContext(ctx).Order("name ASC").Find(&list).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *softwareRepository) Create(ctx context.Context, sw *models.Software) error {
	defer observability.TrackQuery("create", "software")()
	if err := r.db.WithContext(ctx).Create(sw).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("software with this name already exists")
		}
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.CatalogKey)
	r.log.LogCreate(ctx, "id", sw.ID, "name", sw.Name)
	return nil
}

func (r *softwareRepository) Update(ctx context.Context, sw *models.Software) error {
	defer observability.TrackQuery("update", "software")()
	res := r.db.WithContext(ctx).Model(sw).
		Select("name", "description", "access_levels", "updated_at").
		Updates(sw)
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return models.NewConflictError("software with this name already exists")
		}
		r.log.LogError(ctx, res.Error, "update")
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Software", sw.ID)
	}
	cache.InvalidateSoftware(ctx, sw.ID)
	r.log.LogUpdate(ctx, "id", sw.ID, "name", sw.Name)
	return nil
}

func (r *softwareRepository) Delete(ctx context.Context, id uint, blocking []models.RequestStatus) error {
	defer observability.TrackQuery("delete", "software")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sw models.Software
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sw, id).Error; err != nil {
			if isNotFound(err) {
				return models.NewNotFoundError("Software", id)
			}
			return err
		}

		for _, status := range blocking {
			var n int64
			if err := tx.Model(&models.AccessRequest{}).
				Where("software_id = ? AND status = ?", id, status).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return models.NewConflictError(blockedMessage(status))
			}
		}

		if err := tx.Where("software_id = ?", id).Delete(&models.AccessRequest{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Software{}, id).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return err
		}
		r.log.LogError(ctx, err, "delete")
		return models.NewInternalError(err)
	}

	cache.InvalidateSoftware(ctx, id)
	r.log.LogDelete(ctx, "id", id)
	return nil
}

func blockedMessage(status models.RequestStatus) string {
	if status == models.StatusApproved {
		return MsgDeleteBlockedApproved
	}
	return MsgDeleteBlockedPending
}
