package service

import (
	"context"
	"testing"

	"accessdesk/internal/featureflags"
	"accessdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var catalogAdmin = models.Actor{ID: 20, Role: models.RoleAdmin}

func TestCatalogService_DeleteBlockingStatuses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		flags string
		want  []models.RequestStatus
	}{
		{"default", "", []models.RequestStatus{models.StatusPending}},
		{"flag on", featureflags.CatalogDeleteBlocksApproved + "=on", []models.RequestStatus{models.StatusPending, models.StatusApproved}},
		{"flag off", featureflags.CatalogDeleteBlocksApproved + "=off", []models.RequestStatus{models.StatusPending}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got []models.RequestStatus
			sw := noopSoftwareRepo()
			sw.deleteFn = func(_ context.Context, _ uint, blocking []models.RequestStatus) error {
				got = blocking
				return nil
			}
			svc := NewCatalogService(sw, noopRequestRepo(), featureflags.NewManager(tt.flags))
			require.NoError(t, svc.Delete(context.Background(), catalogAdmin, 3))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalogService_DeletePolicyIsSameForEveryAdmin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		flags string
		want  []models.RequestStatus
	}{
		{"partial rollout", featureflags.CatalogDeleteBlocksApproved + "=50%", []models.RequestStatus{models.StatusPending}},
		{"full rollout", featureflags.CatalogDeleteBlocksApproved + "=100%", []models.RequestStatus{models.StatusPending, models.StatusApproved}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for id := uint(1); id <= 50; id++ {
				var got []models.RequestStatus
				sw := noopSoftwareRepo()
				sw.deleteFn = func(_ context.Context, _ uint, blocking []models.RequestStatus) error {
					got = blocking
					return nil
				}
				svc := NewCatalogService(sw, noopRequestRepo(), featureflags.NewManager(tt.flags))
				require.NoError(t, svc.Delete(context.Background(), models.Actor{ID: id, Role: models.RoleAdmin}, 3))
				assert.Equal(t, tt.want, got, "admin %d", id)
			}
		})
	}
}

func TestCatalogService_UpdateLeavesNilFieldsAlone(t *testing.T) {
	t.Parallel()

	var saved *models.Software
	sw := noopSoftwareRepo()
	sw.getByIDFn = func(_ context.Context, id uint) (*models.Software, error) {
		return &models.Software{ID: id, Name: "Jira", Description: "tracker", AccessLevels: []models.AccessLevel{models.AccessLevelRead}}, nil
	}
	sw.updateFn = func(_ context.Context, s *models.Software) error {
		saved = s
		return nil
	}
	svc := NewCatalogService(sw, noopRequestRepo(), nil)

	desc := "issue tracker"
	_, err := svc.Update(context.Background(), catalogAdmin, UpdateSoftwareInput{ID: 1, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Jira", saved.Name)
	assert.Equal(t, "issue tracker", saved.Description)
	assert.Equal(t, []models.AccessLevel{models.AccessLevelRead}, []models.AccessLevel(saved.AccessLevels))

	blank := "   "
	_, err = svc.Update(context.Background(), catalogAdmin, UpdateSoftwareInput{ID: 1, Name: &blank})
	assertCode(t, err, models.CodeValidation)
}

func TestCatalogService_SearchIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	sw := noopSoftwareRepo()
	sw.listFn = func(_ context.Context) ([]*models.Software, error) {
		return []*models.Software{
			{ID: 1, Name: "GitLab", Description: "source control"},
			{ID: 2, Name: "Jira", Description: "Issue Tracker"},
			{ID: 3, Name: "Payroll", Description: "HR"},
		}, nil
	}
	svc := NewCatalogService(sw, noopRequestRepo(), nil)

	got, err := svc.Search(context.Background(), employee, "git")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "GitLab", got[0].Name)

	got, err = svc.Search(context.Background(), employee, "tracker")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Jira", got[0].Name)

	got, err = svc.Search(context.Background(), employee, "")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
