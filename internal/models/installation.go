package models

import (
	"fmt"
	"strconv"
	"time"
)

// DCInstallation is a field-service record tracking the delivery and
// installation lifecycle of a piece of datacenter equipment for a client.
type DCInstallation struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	SerialNumber     string     `gorm:"uniqueIndex;not null" json:"serial_number"`
	ClientID         uint       `gorm:"not null;index" json:"client_id"`
	TechnicianID     *uint      `gorm:"index" json:"technician_id"`
	Status           string     `gorm:"column:installation_status;default:pending;index" json:"installation_status"`
	Priority         string     `gorm:"default:normal" json:"priority"`
	EquipmentVendor  string     `json:"equipment_vendor"`
	EquipmentModel   string     `json:"equipment_model"`
	Datacenter       string     `json:"datacenter"`
	RackLocation     string     `json:"rack_location"`
	Address          string     `json:"address"`
	City             string     `json:"city"`
	DeliveryDate     *time.Time `json:"delivery_date"`
	InstallationDate *time.Time `json:"installation_date"`
	VerificationDate *time.Time `json:"verification_date"`
	Notes            *string    `json:"notes"`
	CreatedBy        *uint      `json:"created_by"`
	DiscardedAt      *time.Time `gorm:"index" json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Associations
	Client      *User        `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Technician  *User        `gorm:"foreignKey:TechnicianID" json:"technician,omitempty"`
	Attachments []Attachment `gorm:"foreignKey:InstallationID" json:"attachments,omitempty"`
}

// TableName specifies the table name for DCInstallation
func (DCInstallation) TableName() string {
	return "dc_installations"
}

// Installation status constants
const (
	InstallationStatusPending   = "pending"
	InstallationStatusScheduled = "scheduled"
	InstallationStatusDelivered = "delivered"
	InstallationStatusInstalled = "installed"
	InstallationStatusVerified  = "verified"
	InstallationStatusCancelled = "cancelled"
)

// Priority constants
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// MaySchedule returns true if the installation can be scheduled
func (i *DCInstallation) MaySchedule() bool {
	return i.Status == InstallationStatusPending
}

// MayDeliver returns true if the equipment can be marked delivered
func (i *DCInstallation) MayDeliver() bool {
	return i.Status == InstallationStatusScheduled || i.Status == InstallationStatusPending
}

// MayInstall returns true if the equipment can be marked installed
func (i *DCInstallation) MayInstall() bool {
	return i.Status == InstallationStatusDelivered
}

// MayVerify returns true if the installation can be verified
func (i *DCInstallation) MayVerify() bool {
	return i.Status == InstallationStatusInstalled
}

// MayCancel returns true if the record can still be cancelled
func (i *DCInstallation) MayCancel() bool {
	switch i.Status {
	case InstallationStatusPending, InstallationStatusScheduled, InstallationStatusDelivered:
		return true
	}
	return false
}

// MayReopen returns true if a cancelled record can be reopened
func (i *DCInstallation) MayReopen() bool {
	return i.Status == InstallationStatusCancelled
}

// IsOverdue returns true if delivery was due in the past and the equipment
// is still not installed.
func (i *DCInstallation) IsOverdue(now time.Time) bool {
	if i.DeliveryDate == nil {
		return false
	}
	switch i.Status {
	case InstallationStatusInstalled, InstallationStatusVerified, InstallationStatusCancelled:
		return false
	}
	return i.DeliveryDate.Before(now)
}

// ResourceType implements audit.Auditable.
func (i *DCInstallation) ResourceType() string {
	return "DCInstallation"
}

// AuditIdentifier implements audit.Auditable, preferring the serial number
// over the surrogate key.
func (i *DCInstallation) AuditIdentifier() string {
	if i.SerialNumber != "" {
		return i.SerialNumber
	}
	return strconv.FormatUint(uint64(i.ID), 10)
}

// AuditableAttributes implements audit.Auditable.
func (i *DCInstallation) AuditableAttributes() map[string]any {
	return map[string]any{
		"serial_number":       i.SerialNumber,
		"client_id":           i.ClientID,
		"technician_id":       derefUint(i.TechnicianID),
		"installation_status": i.Status,
		"priority":            i.Priority,
		"equipment_vendor":    i.EquipmentVendor,
		"equipment_model":     i.EquipmentModel,
		"datacenter":          i.Datacenter,
		"rack_location":       i.RackLocation,
		"address":             i.Address,
		"city":                i.City,
		"delivery_date":       derefTime(i.DeliveryDate),
		"installation_date":   derefTime(i.InstallationDate),
		"verification_date":   derefTime(i.VerificationDate),
		"notes":               derefString(i.Notes),
	}
}

// importantAuditFields is the allow-list that keeps cosmetic edits (notes,
// equipment descriptions) out of the audit trail. An update is only
// recorded when at least one of these changed.
var importantAuditFields = map[string]struct{}{
	"installation_status": {},
	"priority":            {},
	"technician_id":       {},
	"client_id":           {},
	"delivery_date":       {},
	"installation_date":   {},
	"verification_date":   {},
	"datacenter":          {},
	"rack_location":       {},
	"address":             {},
	"city":                {},
}

// ShouldAuditUpdate implements audit.UpdateSelector.
func (i *DCInstallation) ShouldAuditUpdate(changed []string) bool {
	for _, field := range changed {
		if _, important := importantAuditFields[field]; important {
			return true
		}
	}
	return false
}

func derefUint(v *uint) any {
	if v == nil {
		return nil
	}
	return *v
}

func derefTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// InstallationResponse is the JSON response format for installations
type InstallationResponse struct {
	ID               uint          `json:"id"`
	SerialNumber     string        `json:"serial_number"`
	ClientID         uint          `json:"client_id"`
	TechnicianID     *uint         `json:"technician_id"`
	Status           string        `json:"installation_status"`
	Priority         string        `json:"priority"`
	EquipmentVendor  string        `json:"equipment_vendor"`
	EquipmentModel   string        `json:"equipment_model"`
	Datacenter       string        `json:"datacenter"`
	RackLocation     string        `json:"rack_location"`
	Address          string        `json:"address"`
	City             string        `json:"city"`
	DeliveryDate     *time.Time    `json:"delivery_date"`
	InstallationDate *time.Time    `json:"installation_date"`
	VerificationDate *time.Time    `json:"verification_date"`
	Notes            *string       `json:"notes"`
	Client           *UserResponse `json:"client,omitempty"`
	Technician       *UserResponse `json:"technician,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// ToResponse converts DCInstallation to InstallationResponse
func (i *DCInstallation) ToResponse() InstallationResponse {
	resp := InstallationResponse{
		ID:               i.ID,
		SerialNumber:     i.SerialNumber,
		ClientID:         i.ClientID,
		TechnicianID:     i.TechnicianID,
		Status:           i.Status,
		Priority:         i.Priority,
		EquipmentVendor:  i.EquipmentVendor,
		EquipmentModel:   i.EquipmentModel,
		Datacenter:       i.Datacenter,
		RackLocation:     i.RackLocation,
		Address:          i.Address,
		City:             i.City,
		DeliveryDate:     i.DeliveryDate,
		InstallationDate: i.InstallationDate,
		VerificationDate: i.VerificationDate,
		Notes:            i.Notes,
		CreatedAt:        i.CreatedAt,
		UpdatedAt:        i.UpdatedAt,
	}
	if i.Client != nil {
		client := i.Client.ToResponse()
		resp.Client = &client
	}
	if i.Technician != nil {
		technician := i.Technician.ToResponse()
		resp.Technician = &technician
	}
	return resp
}

// Summary returns the short human label used in notifications and share
// emails, e.g. "DCInstallation #DC-2026-0001 (installed)".
func (i *DCInstallation) Summary() string {
	return fmt.Sprintf("DCInstallation #%s (%s)", i.AuditIdentifier(), i.Status)
}
