package services

import (
	"context"

	"github.com/fieldops/dcinstall-api/internal/audit"
	"github.com/fieldops/dcinstall-api/internal/repository"
	"github.com/fieldops/dcinstall-api/pkg/logger"
)

// AuditService is the read side of the audit trail plus the administrative
// clear operation.
type AuditService struct {
	repo     repository.AuditRepository
	recorder *audit.Recorder
}

func NewAuditService(repo repository.AuditRepository, recorder *audit.Recorder) *AuditService {
	return &AuditService{repo: repo, recorder: recorder}
}

// List retrieves audit entries newest-first with compositional filters.
func (s *AuditService) List(ctx context.Context, filter repository.AuditFilter, query *repository.ListQuery) ([]audit.Entry, int64, error) {
	return s.repo.List(ctx, filter, query)
}

// SeveritySummary returns entry counts grouped by severity.
func (s *AuditService) SeveritySummary(ctx context.Context) (map[string]int64, error) {
	return s.repo.CountBySeverity(ctx)
}

// Clear wipes the audit trail. This is the one sanctioned exception to the
// append-only rule; the clear itself is recorded as the first entry of the
// fresh trail.
func (s *AuditService) Clear(ctx context.Context) (int64, error) {
	count, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	logger.Warn("Audit trail cleared", "deleted", count)

	s.recorder.CreateEntry(ctx, audit.Fields{
		Action:       audit.ActionDelete,
		ResourceType: "AuditEntry",
		ResourceID:   "all",
		Severity:     audit.SeverityCritical,
		Description:  "Audit trail cleared by administrator",
		Metadata:     map[string]any{"deleted_entries": count},
	})
	return count, nil
}
