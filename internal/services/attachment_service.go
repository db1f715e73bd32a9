package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"

	"github.com/fieldops/dcinstall-api/internal/audit"
	"github.com/fieldops/dcinstall-api/internal/jobs"
	"github.com/fieldops/dcinstall-api/internal/models"
	"github.com/fieldops/dcinstall-api/internal/repository"
	"github.com/fieldops/dcinstall-api/internal/storage"
	"github.com/fieldops/dcinstall-api/pkg/logger"
)

// AttachmentService handles file attachments on installation records.
type AttachmentService struct {
	repo             repository.AttachmentRepository
	installationRepo repository.InstallationRepository
	store            *storage.LocalStorage
	worker           *jobs.Worker
	recorder         *audit.Recorder
}

func NewAttachmentService(repo repository.AttachmentRepository, installationRepo repository.InstallationRepository, store *storage.LocalStorage, worker *jobs.Worker, recorder *audit.Recorder) *AttachmentService {
	return &AttachmentService{
		repo:             repo,
		installationRepo: installationRepo,
		store:            store,
		worker:           worker,
		recorder:         recorder,
	}
}

func (s *AttachmentService) FindByInstallation(ctx context.Context, installationID uint) ([]models.Attachment, error) {
	return s.repo.FindByInstallation(ctx, installationID)
}

// Upload stores the file and creates the attachment record.
func (s *AttachmentService) Upload(ctx context.Context, installationID uint, file multipart.File, header *multipart.FileHeader, uploadedBy uint) (*models.Attachment, error) {
	if _, err := s.installationRepo.FindByID(ctx, installationID); err != nil {
		return nil, ErrNotFound
	}

	contentType := header.Header.Get("Content-Type")
	if !storage.IsValidContentType(contentType) {
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
	if header.Size > storage.MaxFileSize() {
		return nil, fmt.Errorf("file exceeds the %d byte limit", storage.MaxFileSize())
	}

	path, err := s.store.Store(file, header, "attachments")
	if err != nil {
		return nil, err
	}

	attachment := &models.Attachment{
		InstallationID: installationID,
		FileName:       header.Filename,
		StoragePath:    path,
		ContentType:    contentType,
		ByteSize:       header.Size,
		UploadedBy:     &uploadedBy,
	}
	if err := s.repo.Create(ctx, attachment); err != nil {
		// The record failed, drop the orphaned blob.
		s.store.Delete(path)
		return nil, err
	}

	s.recorder.EntityCreated(ctx, attachment)
	return attachment, nil
}

// Download opens the stored file and records a DOWNLOAD entry.
func (s *AttachmentService) Download(ctx context.Context, id uint) (*models.Attachment, *os.File, error) {
	attachment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, ErrNotFound
	}

	f, err := s.store.Open(attachment.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open stored file: %w", err)
	}

	s.recorder.EntityDownloaded(ctx, attachment, fmt.Sprintf("Download Attachment #%d (%s)", attachment.ID, attachment.FileName))
	return attachment, f, nil
}

func (s *AttachmentService) Delete(ctx context.Context, id uint) error {
	attachment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recorder.EntityDeleted(ctx, attachment)

	// Blob removal is best-effort once the record is gone.
	path := attachment.StoragePath
	s.worker.EnqueueAsync(func(jobCtx context.Context) error {
		if err := s.store.Delete(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove stored file", "path", path, "error", err)
		}
		return nil
	})
	return nil
}
