package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fieldops/dcinstall-api/internal/audit"
	"github.com/fieldops/dcinstall-api/internal/jobs"
	"github.com/fieldops/dcinstall-api/internal/models"
	"github.com/fieldops/dcinstall-api/internal/repository"
	"github.com/fieldops/dcinstall-api/internal/statemachine"
	"github.com/fieldops/dcinstall-api/pkg/logger"
)

// InstallationService handles DC installation records: CRUD, lifecycle
// transitions and sharing. All mutations flow through the audit recorder.
type InstallationService struct {
	repo         repository.InstallationRepository
	userRepo     repository.UserRepository
	worker       *jobs.Worker
	emailService *EmailService
	recorder     *audit.Recorder
}

func NewInstallationService(repo repository.InstallationRepository, userRepo repository.UserRepository, worker *jobs.Worker, emailService *EmailService, recorder *audit.Recorder) *InstallationService {
	return &InstallationService{
		repo:         repo,
		userRepo:     userRepo,
		worker:       worker,
		emailService: emailService,
		recorder:     recorder,
	}
}

func (s *InstallationService) FindByID(ctx context.Context, id uint) (*models.DCInstallation, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *InstallationService) List(ctx context.Context, query *repository.ListQuery) ([]models.DCInstallation, int64, error) {
	return s.repo.List(ctx, query)
}

func (s *InstallationService) Create(ctx context.Context, installation *models.DCInstallation) error {
	if _, err := s.userRepo.FindByID(ctx, installation.ClientID); err != nil {
		return fmt.Errorf("client not found: %w", ErrNotFound)
	}
	if installation.Status == "" {
		installation.Status = models.InstallationStatusPending
	}
	if installation.Priority == "" {
		installation.Priority = models.PriorityNormal
	}

	if err := s.repo.Create(ctx, installation); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("%v: %w", err, ErrDuplicate)
		}
		return err
	}
	s.recorder.EntityCreated(ctx, installation)
	return nil
}

// Update applies editable fields and audits the resulting diff. Changes
// limited to cosmetic fields (notes, equipment description) pass the
// generic filter but are dropped by the installation's important-fields
// narrowing, so they produce no entry.
func (s *InstallationService) Update(ctx context.Context, id uint, updates *models.DCInstallation) (*models.DCInstallation, error) {
	installation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	before := installation.AuditableAttributes()

	if updates.Priority != "" {
		installation.Priority = updates.Priority
	}
	if updates.EquipmentVendor != "" {
		installation.EquipmentVendor = updates.EquipmentVendor
	}
	if updates.EquipmentModel != "" {
		installation.EquipmentModel = updates.EquipmentModel
	}
	if updates.Datacenter != "" {
		installation.Datacenter = updates.Datacenter
	}
	if updates.RackLocation != "" {
		installation.RackLocation = updates.RackLocation
	}
	if updates.Address != "" {
		installation.Address = updates.Address
	}
	if updates.City != "" {
		installation.City = updates.City
	}
	if updates.DeliveryDate != nil {
		installation.DeliveryDate = updates.DeliveryDate
	}
	if updates.Notes != nil {
		installation.Notes = updates.Notes
	}

	if err := s.repo.Update(ctx, installation); err != nil {
		return nil, err
	}
	s.recorder.EntityUpdated(ctx, installation, before)
	return installation, nil
}

func (s *InstallationService) Delete(ctx context.Context, id uint) error {
	installation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.recorder.EntityDeleted(ctx, installation)
	return nil
}

// Transition fires a lifecycle event (schedule, deliver, install, verify,
// cancel, reopen), stamps the matching date and audits the status change.
func (s *InstallationService) Transition(ctx context.Context, id uint, event string) (*models.DCInstallation, error) {
	installation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	before := installation.AuditableAttributes()

	machine := statemachine.NewInstallationFSM(installation)
	switch event {
	case "schedule":
		err = machine.Schedule(ctx)
	case "deliver":
		err = machine.Deliver(ctx)
	case "install":
		err = machine.Install(ctx)
	case "verify":
		err = machine.Verify(ctx)
	case "cancel":
		err = machine.Cancel(ctx)
	case "reopen":
		err = machine.Reopen(ctx)
	default:
		return nil, fmt.Errorf("unknown lifecycle event: %s", event)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	now := time.Now()
	switch installation.Status {
	case models.InstallationStatusDelivered:
		if installation.DeliveryDate == nil {
			installation.DeliveryDate = &now
		}
	case models.InstallationStatusInstalled:
		if installation.InstallationDate == nil {
			installation.InstallationDate = &now
		}
	case models.InstallationStatusVerified:
		if installation.VerificationDate == nil {
			installation.VerificationDate = &now
		}
	}

	if err := s.repo.Update(ctx, installation); err != nil {
		return nil, err
	}
	s.recorder.EntityUpdated(ctx, installation, before)
	return installation, nil
}

// Assign puts an installation in the hands of a technician.
func (s *InstallationService) Assign(ctx context.Context, id, technicianID uint) (*models.DCInstallation, error) {
	installation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	technician, err := s.userRepo.FindByID(ctx, technicianID)
	if err != nil {
		return nil, fmt.Errorf("technician not found: %w", ErrNotFound)
	}
	if technician.Role != models.RoleUser {
		return nil, fmt.Errorf("user %d is not a technician", technicianID)
	}

	before := installation.AuditableAttributes()
	installation.TechnicianID = &technician.ID
	if err := s.repo.Update(ctx, installation); err != nil {
		return nil, err
	}
	s.recorder.EntityUpdated(ctx, installation, before)
	return installation, nil
}

// Share records a SHARE entry with the recipient in the metadata and sends
// the record summary by email, best-effort.
func (s *InstallationService) Share(ctx context.Context, id uint, recipientEmail string) error {
	installation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}

	s.recorder.CreateEntry(ctx, audit.Fields{
		Action:       audit.ActionShare,
		ResourceType: installation.ResourceType(),
		ResourceID:   installation.AuditIdentifier(),
		Severity:     audit.SeverityMedium,
		Description:  fmt.Sprintf("Share %s with %s", installation.Summary(), recipientEmail),
		Metadata:     map[string]any{"recipient": recipientEmail},
	})

	inst := *installation
	s.worker.EnqueueAsync(func(jobCtx context.Context) error {
		return s.emailService.SendInstallationShared(jobCtx, &inst, recipientEmail)
	})
	return nil
}

// RecordView writes a VIEW entry for the detail page of a record.
func (s *InstallationService) RecordView(ctx context.Context, installation *models.DCInstallation) {
	s.recorder.EntityViewed(ctx, installation, "")
}

// CheckOverdue logs installations whose delivery date passed without the
// equipment being installed. Runs on the background worker.
func (s *InstallationService) CheckOverdue(ctx context.Context) error {
	overdue, err := s.repo.FindOverdue(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, installation := range overdue {
		logger.Warn("Installation overdue",
			"serial_number", installation.SerialNumber,
			"status", installation.Status,
			"delivery_date", installation.DeliveryDate)
	}
	if len(overdue) > 0 {
		logger.Info("Overdue installation sweep finished", "count", len(overdue))
	}
	return nil
}
