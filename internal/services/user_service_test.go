package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/dcinstall-api/internal/audit"
	"github.com/fieldops/dcinstall-api/internal/models"
	"github.com/fieldops/dcinstall-api/internal/repository"
)

func TestUserService_Create_DuplicateEmail(t *testing.T) {
	mockRepo := &mockUserRepo{}
	store := &fakeAuditStore{}
	service := NewUserService(mockRepo, nil, nil, nil, audit.NewRecorder(store))

	mockRepo.mockCreate = func(ctx context.Context, user *models.User) error {
		return fmt.Errorf("a user with this email already exists: %w", repository.ErrDuplicate)
	}

	err := service.Create(context.Background(), &models.User{Email: "Jane@Example.com"}, "secret123")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicate)
	// A failed insert must not leave an audit entry behind
	assert.Empty(t, store.entries)
}
