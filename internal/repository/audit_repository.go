package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/fieldops/dcinstall-api/internal/audit"
	"gorm.io/gorm"
)

// AuditFilter holds the optional, independently composable filters for
// browsing the audit trail. Empty or "all" means no filter; malformed
// values are treated as no filter.
type AuditFilter struct {
	Action       string
	ResourceType string
	Severity     string
	ActorID      string
	From         *time.Time
	To           *time.Time
	Search       string
}

// AuditRepository is the persistence side of the audit subsystem: an
// append-only store with a filtered query surface and the administrative
// clear escape hatch. It satisfies audit.Store.
type AuditRepository interface {
	Insert(ctx context.Context, entry *audit.Entry) error
	List(ctx context.Context, filter AuditFilter, query *ListQuery) ([]audit.Entry, int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	CountBySeverity(ctx context.Context) (map[string]int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Insert(ctx context.Context, entry *audit.Entry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter, query *ListQuery) ([]audit.Entry, int64, error) {
	var entries []audit.Entry
	var total int64

	db := r.db.WithContext(ctx).Model(&audit.Entry{})

	if hasFilter(filter.Action) {
		db = db.Where("action = ?", filter.Action)
	}
	if hasFilter(filter.ResourceType) {
		db = db.Where("resource_type = ?", filter.ResourceType)
	}
	if hasFilter(filter.Severity) {
		db = db.Where("severity = ?", filter.Severity)
	}
	if hasFilter(filter.ActorID) {
		// A non-numeric actor id cannot match anything; treat it as no filter.
		if actorID, err := strconv.ParseUint(filter.ActorID, 10, 32); err == nil {
			db = db.Where("actor_id = ?", uint(actorID))
		}
	}
	if filter.From != nil {
		db = db.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("created_at <= ?", *filter.To)
	}
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		db = db.Where("description ILIKE ? OR resource_id ILIKE ? OR actor_name ILIKE ? OR actor_email ILIKE ?",
			search, search, search, search)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = db.Order("created_at DESC")
	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.Find(&entries).Error
	return entries, total, err
}

// DeleteAll wipes the whole trail. Deliberate administrative escape hatch;
// everything else treats the table as append-only.
func (r *auditRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&audit.Entry{})
	return result.RowsAffected, result.Error
}

func (r *auditRepository) CountBySeverity(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Severity string
		Count    int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&audit.Entry{}).
		Select("severity, COUNT(*) as count").
		Group("severity").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Severity] = r.Count
	}
	return counts, nil
}

func hasFilter(value string) bool {
	return value != "" && value != "all"
}
