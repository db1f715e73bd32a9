package models

import (
	"strconv"
	"time"
)

// Attachment is a file (delivery note, photo, signed acceptance form)
// attached to an installation record. The binary lives in blob storage;
// this row only keeps the metadata and the storage path.
type Attachment struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	InstallationID uint      `gorm:"not null;index" json:"installation_id"`
	FileName       string    `gorm:"not null" json:"file_name"`
	StoragePath    string    `gorm:"not null" json:"-"`
	ContentType    string    `gorm:"size:100" json:"content_type"`
	ByteSize       int64     `json:"byte_size"`
	UploadedBy     *uint     `json:"uploaded_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Associations
	Installation *DCInstallation `gorm:"foreignKey:InstallationID" json:"-"`
}

// TableName specifies the table name for Attachment
func (Attachment) TableName() string {
	return "attachments"
}

// ResourceType implements audit.Auditable.
func (a *Attachment) ResourceType() string {
	return "Attachment"
}

// AuditIdentifier implements audit.Auditable.
func (a *Attachment) AuditIdentifier() string {
	return strconv.FormatUint(uint64(a.ID), 10)
}

// AuditableAttributes implements audit.Auditable. The storage path is an
// internal detail and stays out of the trail.
func (a *Attachment) AuditableAttributes() map[string]any {
	return map[string]any{
		"installation_id": a.InstallationID,
		"file_name":       a.FileName,
		"content_type":    a.ContentType,
		"byte_size":       a.ByteSize,
		"uploaded_by":     derefUint(a.UploadedBy),
	}
}

// ExcludedAuditFields implements audit.FieldExcluder.
func (a *Attachment) ExcludedAuditFields() []string {
	return []string{"storage_path"}
}

// AttachmentResponse is the JSON response format for attachments
type AttachmentResponse struct {
	ID             uint      `json:"id"`
	InstallationID uint      `json:"installation_id"`
	FileName       string    `json:"file_name"`
	ContentType    string    `json:"content_type"`
	ByteSize       int64     `json:"byte_size"`
	UploadedBy     *uint     `json:"uploaded_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// ToResponse converts Attachment to AttachmentResponse
func (a *Attachment) ToResponse() AttachmentResponse {
	return AttachmentResponse{
		ID:             a.ID,
		InstallationID: a.InstallationID,
		FileName:       a.FileName,
		ContentType:    a.ContentType,
		ByteSize:       a.ByteSize,
		UploadedBy:     a.UploadedBy,
		CreatedAt:      a.CreatedAt,
	}
}
