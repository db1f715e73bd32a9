package audit

import (
	"time"

	"gorm.io/datatypes"
)

// Entry is a persisted audit record. Entries are append-only: nothing in
// the application mutates or deletes them except the administrative clear
// operation on the store.
type Entry struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Actor snapshot; all nil for anonymous or system actions.
	ActorID    *uint   `gorm:"index" json:"actor_id"`
	ActorName  *string `json:"actor_name"`
	ActorEmail *string `json:"actor_email"`
	ActorRole  *string `json:"actor_role"`

	Action       Action `gorm:"size:40;not null;index" json:"action"`
	ResourceType string `gorm:"size:80;not null;index" json:"resource_type"`
	ResourceID   string `gorm:"size:120;not null;index" json:"resource_id"`

	// Field-level diff, only present for mutating actions. NULL columns,
	// not empty objects, when absent.
	OldValues datatypes.JSONMap `json:"old_values,omitempty"`
	NewValues datatypes.JSONMap `json:"new_values,omitempty"`

	// Ambient request context.
	IPAddress  *string `gorm:"size:45" json:"ip_address"`
	UserAgent  *string `gorm:"size:512" json:"user_agent"`
	RequestURL *string `gorm:"size:2048" json:"request_url"`
	HTTPMethod *string `gorm:"size:10" json:"http_method"`

	Severity    Severity          `gorm:"size:10;not null;index" json:"severity"`
	Description string            `gorm:"type:text" json:"description"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Entry
func (Entry) TableName() string {
	return "audit_entries"
}
