package models

import (
	"strconv"
	"time"

	"github.com/fieldops/dcinstall-api/internal/audit"
	"gorm.io/gorm"
)

// User represents an account in the system: an administrator, a client
// whose equipment is being installed, or a field technician.
type User struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Email              string     `gorm:"uniqueIndex;not null" json:"email"`
	EncryptedPassword  string     `gorm:"column:encrypted_password;not null" json:"-"`
	FullName           string     `json:"full_name"`
	Phone              string     `json:"phone"`
	Role               string     `gorm:"default:user" json:"role"`
	Status             string     `gorm:"default:active" json:"status"`
	Company            *string    `json:"company"`
	RecoveryCode       *string    `json:"-"`
	RecoveryCodeSentAt *time.Time `json:"-"`
	DiscardedAt        *time.Time `gorm:"index" json:"-"`
	CreatedBy          *uint      `json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	// Associations
	Creator       *User            `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Installations []DCInstallation `gorm:"foreignKey:ClientID" json:"installations,omitempty"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// BeforeCreate hook for setting defaults
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Status == "" {
		u.Status = StatusActive
	}
	return nil
}

// IsAdmin returns true if user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsClient returns true if user has client role
func (u *User) IsClient() bool {
	return u.Role == RoleClient
}

// IsActive returns true if user status is active
func (u *User) IsActive() bool {
	return u.Status == StatusActive && u.DiscardedAt == nil
}

// IsDiscarded returns true if user is soft-deleted
func (u *User) IsDiscarded() bool {
	return u.DiscardedAt != nil
}

// ResourceType implements audit.Auditable.
func (u *User) ResourceType() string {
	return "User"
}

// AuditIdentifier implements audit.Auditable. The email is the business
// identifier; the surrogate key is the fallback.
func (u *User) AuditIdentifier() string {
	if u.Email != "" {
		return u.Email
	}
	return strconv.FormatUint(uint64(u.ID), 10)
}

// AuditableAttributes implements audit.Auditable. Credential and token
// fields never appear here.
func (u *User) AuditableAttributes() map[string]any {
	return map[string]any{
		"email":     u.Email,
		"full_name": u.FullName,
		"phone":     u.Phone,
		"role":      u.Role,
		"status":    u.Status,
		"company":   derefString(u.Company),
	}
}

// ExcludedAuditFields implements audit.FieldExcluder.
func (u *User) ExcludedAuditFields() []string {
	return []string{"encrypted_password", "recovery_code", "recovery_code_sent_at", "discarded_at"}
}

// AuditSeverity implements audit.SeverityMapper: removing an account is
// critical, everything else uses the defaults.
func (u *User) AuditSeverity(action audit.Action) audit.Severity {
	if action == audit.ActionDelete {
		return audit.SeverityCritical
	}
	return ""
}

func derefString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// Role constants
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
	RoleUser   = "user"
)

// Status constants
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// UserResponse is the JSON response format for users
type UserResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	Company   *string   `json:"company"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Phone:     u.Phone,
		Role:      u.Role,
		Status:    u.Status,
		Company:   u.Company,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
