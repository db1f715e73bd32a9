package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/fieldops/dcinstall-api/internal/audit"
	"github.com/fieldops/dcinstall-api/internal/jobs"
	"github.com/fieldops/dcinstall-api/internal/models"
	"github.com/fieldops/dcinstall-api/internal/repository"
)

// UserService handles user-related business logic. Every mutation goes
// through the audit recorder's lifecycle hooks.
type UserService struct {
	repo         repository.UserRepository
	rtRepo       repository.RefreshTokenRepository
	worker       *jobs.Worker
	emailService *EmailService
	recorder     *audit.Recorder
}

func NewUserService(repo repository.UserRepository, rtRepo repository.RefreshTokenRepository, worker *jobs.Worker, emailService *EmailService, recorder *audit.Recorder) *UserService {
	return &UserService{
		repo:         repo,
		rtRepo:       rtRepo,
		worker:       worker,
		emailService: emailService,
		recorder:     recorder,
	}
}

func (s *UserService) FindByID(ctx context.Context, id uint) (*models.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.FindByEmail(ctx, email)
}

func (s *UserService) List(ctx context.Context, query *repository.ListQuery) ([]models.User, int64, error) {
	return s.repo.List(ctx, query)
}

func (s *UserService) FindTechnicians(ctx context.Context) ([]models.User, error) {
	return s.repo.FindTechnicians(ctx)
}

func (s *UserService) Create(ctx context.Context, user *models.User, password string) error {
	user.Email = strings.ToLower(user.Email)
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	user.EncryptedPassword = hashedPassword
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("%v: %w", err, ErrDuplicate)
		}
		return err
	}

	s.recorder.EntityCreated(ctx, user)

	// Welcome email is best-effort and must not block the request.
	u := *user
	s.worker.EnqueueAsync(func(jobCtx context.Context) error {
		return s.emailService.SendAccountCreated(jobCtx, &u)
	})
	return nil
}

// Update applies the allowed profile changes and audits the field diff.
func (s *UserService) Update(ctx context.Context, id uint, updates *models.User) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	before := user.AuditableAttributes()

	if updates.Email != "" {
		user.Email = strings.ToLower(updates.Email)
	}
	if updates.FullName != "" {
		user.FullName = updates.FullName
	}
	if updates.Phone != "" {
		user.Phone = updates.Phone
	}
	if updates.Role != "" {
		user.Role = updates.Role
	}
	if updates.Company != nil {
		user.Company = updates.Company
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	s.recorder.EntityUpdated(ctx, user, before)
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id uint) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	// Invalidate outstanding sessions for the removed account.
	s.rtRepo.DeleteByUser(ctx, id)
	s.recorder.EntityDeleted(ctx, user)
	return nil
}

func (s *UserService) Restore(ctx context.Context, id uint) error {
	if err := s.repo.Restore(ctx, id); err != nil {
		return err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	s.recorder.LogUpdate(ctx, user.ResourceType(), user.AuditIdentifier(), fmt.Sprintf("Restore User #%s", user.AuditIdentifier()))
	return nil
}

func (s *UserService) ToggleStatus(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	before := user.AuditableAttributes()
	if user.Status == models.StatusActive {
		user.Status = models.StatusInactive
	} else {
		user.Status = models.StatusActive
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	s.recorder.EntityUpdated(ctx, user, before)
	return user, nil
}

// ChangePassword verifies the current password and sets a new one. The
// password hash is excluded from audit diffs, so no UPDATE entry appears
// for this operation; the confirmation itself is what gets audited.
func (s *UserService) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return ErrNotFound
	}
	if !VerifyPassword(currentPassword, user.EncryptedPassword) {
		return ErrInvalidPassword
	}
	hashedPassword, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.EncryptedPassword = hashedPassword
	return s.repo.Update(ctx, user)
}

// SendRecoveryCode generates a short-lived numeric code and emails it.
func (s *UserService) SendRecoveryCode(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		// Do not reveal whether the email exists.
		return nil
	}

	code, err := generateRecoveryCode()
	if err != nil {
		return err
	}
	if err := s.repo.SetRecoveryCode(ctx, user.ID, code, time.Now()); err != nil {
		return err
	}

	u := *user
	s.worker.EnqueueAsync(func(jobCtx context.Context) error {
		return s.emailService.SendRecoveryCode(jobCtx, &u, code)
	})
	return nil
}

// UpdatePasswordWithCode resets the password when the recovery code matches
// and is at most 15 minutes old.
func (s *UserService) UpdatePasswordWithCode(ctx context.Context, email, code, newPassword string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return ErrInvalidRecoveryCode
	}
	if user.RecoveryCode == nil || user.RecoveryCodeSentAt == nil {
		return ErrInvalidRecoveryCode
	}
	if *user.RecoveryCode != code || time.Since(*user.RecoveryCodeSentAt) > 15*time.Minute {
		return ErrInvalidRecoveryCode
	}

	hashedPassword, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.EncryptedPassword = hashedPassword
	user.RecoveryCode = nil
	user.RecoveryCodeSentAt = nil
	return s.repo.Update(ctx, user)
}

func generateRecoveryCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
