package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/dcinstall-api/internal/audit"
	"github.com/fieldops/dcinstall-api/internal/config"
	"github.com/fieldops/dcinstall-api/internal/models"
	"github.com/fieldops/dcinstall-api/internal/repository"
)

type mockUserRepo struct {
	repository.UserRepository
	mockFindByEmail func(ctx context.Context, email string) (*models.User, error)
	mockFindByID    func(ctx context.Context, id uint) (*models.User, error)
	mockCreate      func(ctx context.Context, user *models.User) error
	mockUpdate      func(ctx context.Context, user *models.User) error
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.mockFindByEmail(ctx, email)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	return m.mockFindByID(ctx, id)
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	if m.mockUpdate != nil {
		return m.mockUpdate(ctx, user)
	}
	return nil
}

type mockRTRepo struct {
	repository.RefreshTokenRepository
	mockFindByToken func(ctx context.Context, token string) (*models.RefreshToken, error)
	mockCreate      func(ctx context.Context, rt *models.RefreshToken) error
	mockDelete      func(ctx context.Context, token string) error
}

func (m *mockRTRepo) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	return m.mockFindByToken(ctx, token)
}

func (m *mockRTRepo) Create(ctx context.Context, rt *models.RefreshToken) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, rt)
	}
	return nil
}

func (m *mockRTRepo) Delete(ctx context.Context, token string) error {
	if m.mockDelete != nil {
		return m.mockDelete(ctx, token)
	}
	return nil
}

// fakeAuditStore captures the entries the recorder writes during a test.
type fakeAuditStore struct {
	entries []*audit.Entry
}

func (s *fakeAuditStore) Insert(ctx context.Context, entry *audit.Entry) error {
	s.entries = append(s.entries, entry)
	return nil
}

// blockedLimiter reports every key as blocked.
type blockedLimiter struct{}

func (blockedLimiter) IsBlocked(ctx context.Context, key string) (bool, error) { return true, nil }
func (blockedLimiter) RecordFailure(ctx context.Context, key string) error     { return nil }
func (blockedLimiter) Reset(ctx context.Context, key string) error             { return nil }

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:          "test-secret",
		JWTExpirationHours: 1,
	}
}

func activeUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	return &models.User{
		ID:                1,
		Email:             email,
		FullName:          "Jane Admin",
		Role:              models.RoleAdmin,
		Status:            models.StatusActive,
		EncryptedPassword: hash,
	}
}

func TestAuthService_Login_InactiveUser(t *testing.T) {
	mockRepo := &mockUserRepo{}
	store := &fakeAuditStore{}
	service := NewAuthService(mockRepo, nil, testConfig(), audit.NewRecorder(store), noopRateLimiter{})

	mockRepo.mockFindByEmail = func(ctx context.Context, email string) (*models.User, error) {
		return &models.User{
			Email:  email,
			Status: models.StatusInactive,
		}, nil
	}

	result, err := service.Login(context.Background(), "inactive@example.com", "password", "10.0.0.1", "test-agent")
	assert.Nil(t, result)
	assert.Error(t, err)
	assert.Equal(t, "account inactive or suspended", err.Error())
}

func TestAuthService_Login_WrongPasswordAuditsFailedAttempt(t *testing.T) {
	mockRepo := &mockUserRepo{}
	store := &fakeAuditStore{}
	service := NewAuthService(mockRepo, nil, testConfig(), audit.NewRecorder(store), noopRateLimiter{})

	user := activeUser(t, "jane@example.com", "correct-password")
	mockRepo.mockFindByEmail = func(ctx context.Context, email string) (*models.User, error) {
		return user, nil
	}

	result, err := service.Login(context.Background(), "jane@example.com", "wrong-password", "203.0.113.9", "test-agent")
	assert.Nil(t, result)
	assert.Error(t, err)

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, audit.ActionLoginFailed, entry.Action)
	assert.Equal(t, "jane@example.com", entry.ResourceID)
	assert.Equal(t, audit.SeverityMedium, entry.Severity)
	assert.Nil(t, entry.ActorID)
	assert.Equal(t, "203.0.113.9", *entry.IPAddress)
	assert.Equal(t, "test-agent", *entry.UserAgent)
}

func TestAuthService_Login_UnknownEmailAuditsFailedAttempt(t *testing.T) {
	mockRepo := &mockUserRepo{}
	store := &fakeAuditStore{}
	service := NewAuthService(mockRepo, nil, testConfig(), audit.NewRecorder(store), noopRateLimiter{})

	mockRepo.mockFindByEmail = func(ctx context.Context, email string) (*models.User, error) {
		return nil, ErrNotFound
	}

	_, err := service.Login(context.Background(), "ghost@example.com", "whatever", "10.0.0.1", "test-agent")
	assert.Error(t, err)

	require.Len(t, store.entries, 1)
	assert.Equal(t, audit.ActionLoginFailed, store.entries[0].Action)
	assert.Equal(t, "ghost@example.com", store.entries[0].ResourceID)
}

func TestAuthService_Login_Success(t *testing.T) {
	mockRepo := &mockUserRepo{}
	mockRT := &mockRTRepo{}
	store := &fakeAuditStore{}
	service := NewAuthService(mockRepo, mockRT, testConfig(), audit.NewRecorder(store), noopRateLimiter{})

	user := activeUser(t, "jane@example.com", "correct-password")
	mockRepo.mockFindByEmail = func(ctx context.Context, email string) (*models.User, error) {
		return user, nil
	}

	result, err := service.Login(context.Background(), "jane@example.com", "correct-password", "10.0.0.1", "test-agent")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "jane@example.com", result.User.Email)

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, audit.ActionLogin, entry.Action)
	assert.Equal(t, audit.SeverityLow, entry.Severity)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, uint(1), *entry.ActorID)
	assert.Equal(t, "10.0.0.1", *entry.IPAddress)
}

func TestAuthService_Login_BlockedByRateLimiter(t *testing.T) {
	mockRepo := &mockUserRepo{}
	store := &fakeAuditStore{}
	service := NewAuthService(mockRepo, nil, testConfig(), audit.NewRecorder(store), blockedLimiter{})

	result, err := service.Login(context.Background(), "jane@example.com", "password", "10.0.0.1", "test-agent")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	assert.Empty(t, store.entries)
}

func TestAuthService_RefreshToken_InactiveUser(t *testing.T) {
	mockRepo := &mockUserRepo{}
	mockRT := &mockRTRepo{}
	store := &fakeAuditStore{}
	service := NewAuthService(mockRepo, mockRT, testConfig(), audit.NewRecorder(store), noopRateLimiter{})

	expires := time.Now().Add(time.Hour)
	mockRT.mockFindByToken = func(ctx context.Context, token string) (*models.RefreshToken, error) {
		return &models.RefreshToken{UserID: 1, ExpiresAt: &expires}, nil
	}
	mockRepo.mockFindByID = func(ctx context.Context, id uint) (*models.User, error) {
		return &models.User{
			ID:     id,
			Status: models.StatusInactive,
		}, nil
	}

	result, err := service.RefreshToken(context.Background(), "token")
	assert.Nil(t, result)
	assert.Error(t, err)
	assert.Equal(t, "account inactive or suspended", err.Error())
}

func TestAuthService_RefreshToken_Expired(t *testing.T) {
	mockRT := &mockRTRepo{}
	store := &fakeAuditStore{}
	service := NewAuthService(&mockUserRepo{}, mockRT, testConfig(), audit.NewRecorder(store), noopRateLimiter{})

	expired := time.Now().Add(-time.Hour)
	mockRT.mockFindByToken = func(ctx context.Context, token string) (*models.RefreshToken, error) {
		return &models.RefreshToken{UserID: 1, ExpiresAt: &expired}, nil
	}

	result, err := service.RefreshToken(context.Background(), "token")
	assert.Nil(t, result)
	assert.Error(t, err)
	assert.Equal(t, "token expired", err.Error())
}

func TestAuthService_ConfirmPassword(t *testing.T) {
	mockRepo := &mockUserRepo{}
	store := &fakeAuditStore{}
	service := NewAuthService(mockRepo, nil, testConfig(), audit.NewRecorder(store), noopRateLimiter{})

	user := activeUser(t, "jane@example.com", "correct-password")
	mockRepo.mockFindByID = func(ctx context.Context, id uint) (*models.User, error) {
		return user, nil
	}

	err := service.ConfirmPassword(context.Background(), 1, "correct-password")
	require.NoError(t, err)
	require.Len(t, store.entries, 1)
	assert.Equal(t, audit.ActionPasswordConfirmed, store.entries[0].Action)
	assert.Equal(t, audit.SeverityLow, store.entries[0].Severity)

	err = service.ConfirmPassword(context.Background(), 1, "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidPassword)
	require.Len(t, store.entries, 2)
	assert.Equal(t, audit.ActionPasswordConfirmFailed, store.entries[1].Action)
	assert.Equal(t, audit.SeverityHigh, store.entries[1].Severity)
}

func TestAuthService_Logout_AuditsWithActorEmail(t *testing.T) {
	mockRT := &mockRTRepo{}
	store := &fakeAuditStore{}
	service := NewAuthService(&mockUserRepo{}, mockRT, testConfig(), audit.NewRecorder(store), noopRateLimiter{})

	ctx := audit.WithActor(context.Background(), &audit.Actor{ID: 1, Email: "jane@example.com", Role: models.RoleAdmin})
	err := service.Logout(ctx, "some-token", "10.0.0.1", "test-agent")
	require.NoError(t, err)

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, audit.ActionLogout, entry.Action)
	assert.Equal(t, "jane@example.com", entry.ResourceID)
	assert.Equal(t, "10.0.0.1", *entry.IPAddress)
}
