package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldops/dcinstall-api/internal/models"
	"gorm.io/gorm"
)

// InstallationRepository defines the interface for installation data access
type InstallationRepository interface {
	FindByID(ctx context.Context, id uint) (*models.DCInstallation, error)
	FindBySerialNumber(ctx context.Context, serial string) (*models.DCInstallation, error)
	Create(ctx context.Context, installation *models.DCInstallation) error
	Update(ctx context.Context, installation *models.DCInstallation) error
	SoftDelete(ctx context.Context, id uint) error
	List(ctx context.Context, query *ListQuery) ([]models.DCInstallation, int64, error)
	FindOverdue(ctx context.Context, now time.Time) ([]models.DCInstallation, error)
}

type installationRepository struct {
	db *gorm.DB
}

// NewInstallationRepository creates a new installation repository
func NewInstallationRepository(db *gorm.DB) InstallationRepository {
	return &installationRepository{db: db}
}

func (r *installationRepository) FindByID(ctx context.Context, id uint) (*models.DCInstallation, error) {
	var installation models.DCInstallation
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Technician").
		Preload("Attachments").
		Where("discarded_at IS NULL").
		First(&installation, id).Error
	if err != nil {
		return nil, err
	}
	return &installation, nil
}

func (r *installationRepository) FindBySerialNumber(ctx context.Context, serial string) (*models.DCInstallation, error) {
	var installation models.DCInstallation
	err := r.db.WithContext(ctx).
		Where("serial_number = ? AND discarded_at IS NULL", serial).
		First(&installation).Error
	if err != nil {
		return nil, err
	}
	return &installation, nil
}

func (r *installationRepository) Create(ctx context.Context, installation *models.DCInstallation) error {
	if err := r.db.WithContext(ctx).Create(installation).Error; err != nil {
		if isDuplicateKeyError(err, "dc_installations_serial_number_key") {
			return fmt.Errorf("an installation with this serial number already exists: %w", ErrDuplicate)
		}
		return err
	}
	return nil
}

func (r *installationRepository) Update(ctx context.Context, installation *models.DCInstallation) error {
	return r.db.WithContext(ctx).Save(installation).Error
}

func (r *installationRepository) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.DCInstallation{}).
		Where("id = ?", id).
		Update("discarded_at", gorm.Expr("NOW()")).Error
}

func (r *installationRepository) List(ctx context.Context, query *ListQuery) ([]models.DCInstallation, int64, error) {
	var installations []models.DCInstallation
	var total int64

	db := r.db.WithContext(ctx).Model(&models.DCInstallation{}).Where("discarded_at IS NULL")

	// Apply search
	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Where("serial_number ILIKE ? OR datacenter ILIKE ? OR city ILIKE ? OR equipment_model ILIKE ?",
			search, search, search, search)
	}

	if query.Filters["status"] != "" {
		db = db.Where("installation_status = ?", query.Filters["status"])
	}

	if query.Filters["priority"] != "" {
		db = db.Where("priority = ?", query.Filters["priority"])
	}

	// Clients only ever see their own records; handlers set this filter.
	if query.Filters["client_id"] != "" {
		db = db.Where("client_id = ?", query.Filters["client_id"])
	}

	if query.Filters["technician_id"] != "" {
		db = db.Where("technician_id = ?", query.Filters["technician_id"])
	}

	// Count total
	db.Count(&total)

	// Apply sorting
	if query.SortBy != "" {
		order := query.SortBy
		if query.SortDir == "desc" {
			order += " DESC"
		}
		db = db.Order(order)
	} else {
		db = db.Order("created_at DESC")
	}

	// Apply pagination
	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.Preload("Client").Preload("Technician").Find(&installations).Error
	return installations, total, err
}

func (r *installationRepository) FindOverdue(ctx context.Context, now time.Time) ([]models.DCInstallation, error) {
	var installations []models.DCInstallation
	err := r.db.WithContext(ctx).
		Where("delivery_date < ? AND installation_status NOT IN ? AND discarded_at IS NULL",
			now,
			[]string{models.InstallationStatusInstalled, models.InstallationStatusVerified, models.InstallationStatusCancelled}).
		Find(&installations).Error
	return installations, err
}
