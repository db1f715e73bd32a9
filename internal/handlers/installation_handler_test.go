package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/fieldops/dcinstall-api/internal/models"
	"github.com/fieldops/dcinstall-api/internal/repository"
	"github.com/fieldops/dcinstall-api/internal/services"
)

type mockInstallationRepo struct {
	repository.InstallationRepository
	mockList   func(ctx context.Context, query *repository.ListQuery) ([]models.DCInstallation, int64, error)
	mockCreate func(ctx context.Context, installation *models.DCInstallation) error
}

func (m *mockInstallationRepo) List(ctx context.Context, query *repository.ListQuery) ([]models.DCInstallation, int64, error) {
	return m.mockList(ctx, query)
}

func (m *mockInstallationRepo) Create(ctx context.Context, installation *models.DCInstallation) error {
	return m.mockCreate(ctx, installation)
}

// stubUserRepo resolves every lookup to an active client.
type stubUserRepo struct {
	repository.UserRepository
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	return &models.User{ID: id, Role: models.RoleClient, Status: models.StatusActive}, nil
}

func TestInstallationHandler_Index_RoleScoping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockRepo := &mockInstallationRepo{}
	installationService := services.NewInstallationService(mockRepo, nil, nil, nil, nil)
	handler := NewInstallationHandler(installationService)

	var captured map[string]string
	mockRepo.mockList = func(ctx context.Context, query *repository.ListQuery) ([]models.DCInstallation, int64, error) {
		captured = query.Filters
		return []models.DCInstallation{}, 0, nil
	}

	// Clients are pinned to their own records even when they ask for others
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/installations?client_id=999", nil)
	c.Set("userID", uint(7))
	c.Set("userRole", models.RoleClient)
	handler.Index(c)
	assert.Equal(t, "7", captured["client_id"])

	// Technicians are pinned to their assignments
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/installations", nil)
	c.Set("userID", uint(3))
	c.Set("userRole", models.RoleUser)
	handler.Index(c)
	assert.Equal(t, "3", captured["technician_id"])
	assert.Equal(t, "", captured["client_id"])

	// Admins can filter freely
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/installations?client_id=999&status=delivered", nil)
	c.Set("userID", uint(1))
	c.Set("userRole", models.RoleAdmin)
	handler.Index(c)
	assert.Equal(t, "999", captured["client_id"])
	assert.Equal(t, "delivered", captured["status"])
}

func TestInstallationHandler_Create_DuplicateSerialNumber(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockRepo := &mockInstallationRepo{
		mockCreate: func(ctx context.Context, installation *models.DCInstallation) error {
			return fmt.Errorf("an installation with this serial number already exists: %w", repository.ErrDuplicate)
		},
	}
	installationService := services.NewInstallationService(mockRepo, &stubUserRepo{}, nil, nil, nil)
	handler := NewInstallationHandler(installationService)

	body := `{"serial_number":"DC-2026-001","client_id":4,"datacenter":"AMS-1"}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("POST", "/installations", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("userID", uint(1))
	c.Set("userRole", models.RoleAdmin)
	handler.Create(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Serial number is already registered")
}
