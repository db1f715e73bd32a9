package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// Repositories holds all repository instances
type Repositories struct {
	User         UserRepository
	Installation InstallationRepository
	Attachment   AttachmentRepository
	Audit        AuditRepository
	RefreshToken RefreshTokenRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Installation: NewInstallationRepository(db),
		Attachment:   NewAttachmentRepository(db),
		Audit:        NewAuditRepository(db),
		RefreshToken: NewRefreshTokenRepository(db),
	}
}

// ListQuery represents common query parameters
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
	Filters map[string]string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}
