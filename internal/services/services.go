package services

import (
	"github.com/fieldops/dcinstall-api/internal/audit"
	"github.com/fieldops/dcinstall-api/internal/config"
	"github.com/fieldops/dcinstall-api/internal/jobs"
	"github.com/fieldops/dcinstall-api/internal/repository"
	"github.com/fieldops/dcinstall-api/internal/storage"
)

// Services holds all service instances
type Services struct {
	Auth         *AuthService
	User         *UserService
	Installation *InstallationService
	Attachment   *AttachmentService
	Audit        *AuditService
	Email        *EmailService
	Recorder     *audit.Recorder
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, store *storage.LocalStorage, cfg *config.Config, limiter RateLimiter) *Services {
	recorder := audit.NewRecorder(repos.Audit)
	emailSvc := NewEmailService(cfg)

	return &Services{
		Auth:         NewAuthService(repos.User, repos.RefreshToken, cfg, recorder, limiter),
		User:         NewUserService(repos.User, repos.RefreshToken, worker, emailSvc, recorder),
		Installation: NewInstallationService(repos.Installation, repos.User, worker, emailSvc, recorder),
		Attachment:   NewAttachmentService(repos.Attachment, repos.Installation, store, worker, recorder),
		Audit:        NewAuditService(repos.Audit, recorder),
		Email:        emailSvc,
		Recorder:     recorder,
	}
}
