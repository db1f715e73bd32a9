package audit

import "fmt"

// Auditable is implemented by domain entities that opt into audit logging.
// The three methods cover what every entry needs; the optional interfaces
// below let an entity customize the rest per action.
type Auditable interface {
	// ResourceType returns the stable entity-kind label, e.g. "User".
	ResourceType() string
	// AuditIdentifier returns the per-instance identifier. Entities with a
	// business identifier (serial number, email) should prefer it over the
	// surrogate key.
	AuditIdentifier() string
	// AuditableAttributes returns the entity's current field values minus
	// excluded fields. Used as the full snapshot for create/delete entries
	// and as the "after" side of update diffs.
	AuditableAttributes() map[string]any
}

// ActionSelector narrows which lifecycle actions an entity audits.
// Without it the default set is create, update and delete.
type ActionSelector interface {
	AuditActions() []Action
}

// UpdateSelector narrows update auditing based on which fields changed.
// Entities with noisy cosmetic fields implement this with an allow-list of
// fields that matter; changed holds the already-filtered changed field names.
type UpdateSelector interface {
	ShouldAuditUpdate(changed []string) bool
}

// Describer overrides the default "{Verb} {ResourceType} #{identifier}"
// description per action.
type Describer interface {
	AuditDescription(action Action) string
}

// SeverityMapper overrides the default action→severity mapping.
type SeverityMapper interface {
	AuditSeverity(action Action) Severity
}

// FieldExcluder adds entity-specific field names that must never appear in
// diffs, on top of the always-excluded set.
type FieldExcluder interface {
	ExcludedAuditFields() []string
}

// alwaysExcluded fields never appear in audit diffs or snapshots regardless
// of entity configuration.
var alwaysExcluded = []string{"id", "created_at", "updated_at", "deleted_at"}

func auditsAction(e Auditable, action Action) bool {
	actions := defaultActions
	if sel, ok := e.(ActionSelector); ok {
		actions = sel.AuditActions()
	}
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

func describe(e Auditable, action Action) string {
	if d, ok := e.(Describer); ok {
		if desc := d.AuditDescription(action); desc != "" {
			return desc
		}
	}
	return fmt.Sprintf("%s %s #%s", action.Verb(), e.ResourceType(), e.AuditIdentifier())
}

func severityFor(e Auditable, action Action) Severity {
	if m, ok := e.(SeverityMapper); ok {
		if sev := m.AuditSeverity(action); sev != "" {
			return sev
		}
	}
	if sev, ok := defaultSeverities[action]; ok {
		return sev
	}
	return SeverityLow
}

func excludedFields(e Auditable) map[string]struct{} {
	excluded := make(map[string]struct{}, len(alwaysExcluded))
	for _, f := range alwaysExcluded {
		excluded[f] = struct{}{}
	}
	if ex, ok := e.(FieldExcluder); ok {
		for _, f := range ex.ExcludedAuditFields() {
			excluded[f] = struct{}{}
		}
	}
	return excluded
}
