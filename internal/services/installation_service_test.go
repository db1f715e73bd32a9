package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/dcinstall-api/internal/audit"
	"github.com/fieldops/dcinstall-api/internal/models"
	"github.com/fieldops/dcinstall-api/internal/repository"
)

type mockInstallationRepo struct {
	repository.InstallationRepository
	mockFindByID func(ctx context.Context, id uint) (*models.DCInstallation, error)
	mockCreate   func(ctx context.Context, installation *models.DCInstallation) error
	mockUpdate   func(ctx context.Context, installation *models.DCInstallation) error
}

func (m *mockInstallationRepo) FindByID(ctx context.Context, id uint) (*models.DCInstallation, error) {
	return m.mockFindByID(ctx, id)
}

func (m *mockInstallationRepo) Create(ctx context.Context, installation *models.DCInstallation) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, installation)
	}
	return nil
}

func (m *mockInstallationRepo) Update(ctx context.Context, installation *models.DCInstallation) error {
	if m.mockUpdate != nil {
		return m.mockUpdate(ctx, installation)
	}
	return nil
}

func adminContext() context.Context {
	return audit.WithActor(context.Background(), &audit.Actor{
		ID:    42,
		Name:  "Jane Admin",
		Email: "jane@example.com",
		Role:  models.RoleAdmin,
	})
}

func pendingInstallation() *models.DCInstallation {
	notes := "call reception first"
	return &models.DCInstallation{
		ID:           1,
		SerialNumber: "DC-2026-0001",
		ClientID:     7,
		Status:       models.InstallationStatusPending,
		Priority:     models.PriorityNormal,
		Datacenter:   "FRA-1",
		City:         "Frankfurt",
		Notes:        &notes,
	}
}

func TestInstallationService_Create_UnknownClient(t *testing.T) {
	userRepo := &mockUserRepo{}
	store := &fakeAuditStore{}
	service := NewInstallationService(&mockInstallationRepo{}, userRepo, nil, nil, audit.NewRecorder(store))

	userRepo.mockFindByID = func(ctx context.Context, id uint) (*models.User, error) {
		return nil, ErrNotFound
	}

	err := service.Create(adminContext(), &models.DCInstallation{SerialNumber: "DC-1", ClientID: 99})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, store.entries)
}

func TestInstallationService_Create_AuditsSnapshot(t *testing.T) {
	repo := &mockInstallationRepo{}
	userRepo := &mockUserRepo{}
	store := &fakeAuditStore{}
	service := NewInstallationService(repo, userRepo, nil, nil, audit.NewRecorder(store))

	userRepo.mockFindByID = func(ctx context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Role: models.RoleClient, Status: models.StatusActive}, nil
	}

	installation := &models.DCInstallation{SerialNumber: "DC-2026-0002", ClientID: 7, Datacenter: "FRA-1"}
	err := service.Create(adminContext(), installation)
	require.NoError(t, err)

	assert.Equal(t, models.InstallationStatusPending, installation.Status)
	assert.Equal(t, models.PriorityNormal, installation.Priority)

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, audit.ActionCreate, entry.Action)
	assert.Equal(t, "DCInstallation", entry.ResourceType)
	assert.Equal(t, "DC-2026-0002", entry.ResourceID)
	assert.Equal(t, "pending", entry.NewValues["installation_status"])
	assert.Nil(t, entry.OldValues)
}

func TestInstallationService_Update_NotesOnlyChangeNotAudited(t *testing.T) {
	repo := &mockInstallationRepo{}
	store := &fakeAuditStore{}
	service := NewInstallationService(repo, &mockUserRepo{}, nil, nil, audit.NewRecorder(store))

	repo.mockFindByID = func(ctx context.Context, id uint) (*models.DCInstallation, error) {
		return pendingInstallation(), nil
	}

	newNotes := "updated notes"
	_, err := service.Update(adminContext(), 1, &models.DCInstallation{Notes: &newNotes})
	require.NoError(t, err)
	assert.Empty(t, store.entries)
}

func TestInstallationService_Update_PriorityChangeAudited(t *testing.T) {
	repo := &mockInstallationRepo{}
	store := &fakeAuditStore{}
	service := NewInstallationService(repo, &mockUserRepo{}, nil, nil, audit.NewRecorder(store))

	repo.mockFindByID = func(ctx context.Context, id uint) (*models.DCInstallation, error) {
		return pendingInstallation(), nil
	}

	_, err := service.Update(adminContext(), 1, &models.DCInstallation{Priority: models.PriorityUrgent})
	require.NoError(t, err)

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, audit.ActionUpdate, entry.Action)
	assert.Equal(t, "normal", entry.OldValues["priority"])
	assert.Equal(t, "urgent", entry.NewValues["priority"])
}

func TestInstallationService_Update_VacuousUpdateNotAudited(t *testing.T) {
	repo := &mockInstallationRepo{}
	store := &fakeAuditStore{}
	service := NewInstallationService(repo, &mockUserRepo{}, nil, nil, audit.NewRecorder(store))

	repo.mockFindByID = func(ctx context.Context, id uint) (*models.DCInstallation, error) {
		return pendingInstallation(), nil
	}

	// Same priority it already has
	_, err := service.Update(adminContext(), 1, &models.DCInstallation{Priority: models.PriorityNormal})
	require.NoError(t, err)
	assert.Empty(t, store.entries)
}

func TestInstallationService_Transition_AuditsStatusChange(t *testing.T) {
	repo := &mockInstallationRepo{}
	store := &fakeAuditStore{}
	service := NewInstallationService(repo, &mockUserRepo{}, nil, nil, audit.NewRecorder(store))

	repo.mockFindByID = func(ctx context.Context, id uint) (*models.DCInstallation, error) {
		return pendingInstallation(), nil
	}

	installation, err := service.Transition(adminContext(), 1, "schedule")
	require.NoError(t, err)
	assert.Equal(t, models.InstallationStatusScheduled, installation.Status)

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, audit.ActionUpdate, entry.Action)
	assert.Equal(t, "pending", entry.OldValues["installation_status"])
	assert.Equal(t, "scheduled", entry.NewValues["installation_status"])
}

func TestInstallationService_Transition_StampsDates(t *testing.T) {
	repo := &mockInstallationRepo{}
	store := &fakeAuditStore{}
	service := NewInstallationService(repo, &mockUserRepo{}, nil, nil, audit.NewRecorder(store))

	record := pendingInstallation()
	record.Status = models.InstallationStatusDelivered
	repo.mockFindByID = func(ctx context.Context, id uint) (*models.DCInstallation, error) {
		return record, nil
	}

	installation, err := service.Transition(adminContext(), 1, "install")
	require.NoError(t, err)
	assert.Equal(t, models.InstallationStatusInstalled, installation.Status)
	require.NotNil(t, installation.InstallationDate)
	assert.WithinDuration(t, time.Now(), *installation.InstallationDate, time.Minute)
}

func TestInstallationService_Transition_InvalidState(t *testing.T) {
	repo := &mockInstallationRepo{}
	store := &fakeAuditStore{}
	service := NewInstallationService(repo, &mockUserRepo{}, nil, nil, audit.NewRecorder(store))

	repo.mockFindByID = func(ctx context.Context, id uint) (*models.DCInstallation, error) {
		return pendingInstallation(), nil
	}

	// Cannot verify a pending installation
	_, err := service.Transition(adminContext(), 1, "verify")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Empty(t, store.entries)
}

func TestInstallationService_Transition_UnknownEvent(t *testing.T) {
	repo := &mockInstallationRepo{}
	service := NewInstallationService(repo, &mockUserRepo{}, nil, nil, audit.NewRecorder(&fakeAuditStore{}))

	repo.mockFindByID = func(ctx context.Context, id uint) (*models.DCInstallation, error) {
		return pendingInstallation(), nil
	}

	_, err := service.Transition(adminContext(), 1, "explode")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidState)
}

func TestInstallationService_Assign_RejectsNonTechnician(t *testing.T) {
	repo := &mockInstallationRepo{}
	userRepo := &mockUserRepo{}
	store := &fakeAuditStore{}
	service := NewInstallationService(repo, userRepo, nil, nil, audit.NewRecorder(store))

	repo.mockFindByID = func(ctx context.Context, id uint) (*models.DCInstallation, error) {
		return pendingInstallation(), nil
	}
	userRepo.mockFindByID = func(ctx context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Role: models.RoleClient}, nil
	}

	_, err := service.Assign(adminContext(), 1, 5)
	assert.Error(t, err)
	assert.Empty(t, store.entries)
}

func TestInstallationService_Assign_AuditsTechnicianChange(t *testing.T) {
	repo := &mockInstallationRepo{}
	userRepo := &mockUserRepo{}
	store := &fakeAuditStore{}
	service := NewInstallationService(repo, userRepo, nil, nil, audit.NewRecorder(store))

	repo.mockFindByID = func(ctx context.Context, id uint) (*models.DCInstallation, error) {
		return pendingInstallation(), nil
	}
	userRepo.mockFindByID = func(ctx context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Role: models.RoleUser, Status: models.StatusActive}, nil
	}

	installation, err := service.Assign(adminContext(), 1, 5)
	require.NoError(t, err)
	require.NotNil(t, installation.TechnicianID)
	assert.Equal(t, uint(5), *installation.TechnicianID)

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, nil, entry.OldValues["technician_id"])
	assert.Equal(t, uint(5), entry.NewValues["technician_id"])
}

func TestInstallationService_Delete_AuditsSnapshot(t *testing.T) {
	repo := &mockInstallationRepo{}
	store := &fakeAuditStore{}
	service := NewInstallationService(repo, &mockUserRepo{}, nil, nil, audit.NewRecorder(store))

	deleted := false
	repo.mockFindByID = func(ctx context.Context, id uint) (*models.DCInstallation, error) {
		return pendingInstallation(), nil
	}
	repo.InstallationRepository = &softDeleteSpy{deleted: &deleted}

	err := service.Delete(adminContext(), 1)
	require.NoError(t, err)
	assert.True(t, deleted)

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, audit.ActionDelete, entry.Action)
	assert.Equal(t, audit.SeverityHigh, entry.Severity)
	assert.Equal(t, "pending", entry.OldValues["installation_status"])
	assert.Nil(t, entry.NewValues)
}

type softDeleteSpy struct {
	repository.InstallationRepository
	deleted *bool
}

func (s *softDeleteSpy) SoftDelete(ctx context.Context, id uint) error {
	*s.deleted = true
	return nil
}
