package audit

import (
	"context"
	"fmt"

	"github.com/fieldops/dcinstall-api/pkg/logger"
)

// Store is the persistence collaborator the recorder writes entries to.
type Store interface {
	Insert(ctx context.Context, entry *Entry) error
}

// Recorder is the single funnel through which audit entries are created.
// It enriches caller-supplied fields with the actor and request metadata
// carried on the context and persists exactly one entry per call.
//
// Writes are best-effort: lifecycle hooks never propagate a storage error
// back to the business operation that triggered them, they log it instead.
type Recorder struct {
	store Store
}

// NewRecorder creates a recorder writing to the given store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Fields is the caller-supplied part of an audit entry. Action,
// ResourceType, ResourceID and Description are expected; everything else
// is optional.
type Fields struct {
	Action       Action
	ResourceType string
	ResourceID   string
	OldValues    map[string]any
	NewValues    map[string]any
	IPAddress    string
	UserAgent    string
	Severity     Severity
	Description  string
	Metadata     map[string]any
}

// CreateEntry builds and persists an entry from fields, filling the actor
// snapshot and request metadata from the context. Caller-supplied IP and
// user agent win over ambient request values; login/logout flows pass them
// explicitly because the session may already be gone when the entry is
// written. Severity defaults to low.
func (r *Recorder) CreateEntry(ctx context.Context, fields Fields) (*Entry, error) {
	entry := &Entry{
		Action:       fields.Action,
		ResourceType: fields.ResourceType,
		ResourceID:   fields.ResourceID,
		Severity:     fields.Severity,
		Description:  fields.Description,
	}
	if entry.Severity == "" {
		entry.Severity = SeverityLow
	}
	if fields.OldValues != nil {
		entry.OldValues = fields.OldValues
	}
	if fields.NewValues != nil {
		entry.NewValues = fields.NewValues
	}
	if fields.Metadata != nil {
		entry.Metadata = fields.Metadata
	}

	if actor := ActorFrom(ctx); actor != nil {
		id := actor.ID
		name, email, role := actor.Name, actor.Email, actor.Role
		entry.ActorID = &id
		entry.ActorName = &name
		entry.ActorEmail = &email
		entry.ActorRole = &role
	}

	ip, userAgent := fields.IPAddress, fields.UserAgent
	if info := RequestInfoFrom(ctx); info != nil {
		if ip == "" {
			ip = info.IP
		}
		if userAgent == "" {
			userAgent = info.UserAgent
		}
		if info.URL != "" {
			url := info.URL
			entry.RequestURL = &url
		}
		if info.Method != "" {
			method := info.Method
			entry.HTTPMethod = &method
		}
	}
	if ip != "" {
		entry.IPAddress = &ip
	}
	if userAgent != "" {
		entry.UserAgent = &userAgent
	}

	if err := r.store.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to write audit entry: %w", err)
	}
	return entry, nil
}

// LogCreate records a CREATE entry. Pass an empty description to get the
// conventional default.
func (r *Recorder) LogCreate(ctx context.Context, resourceType, resourceID, description string) (*Entry, error) {
	return r.log(ctx, ActionCreate, resourceType, resourceID, description, SeverityLow)
}

// LogUpdate records an UPDATE entry.
func (r *Recorder) LogUpdate(ctx context.Context, resourceType, resourceID, description string) (*Entry, error) {
	return r.log(ctx, ActionUpdate, resourceType, resourceID, description, SeverityLow)
}

// LogDelete records a DELETE entry at high severity.
func (r *Recorder) LogDelete(ctx context.Context, resourceType, resourceID, description string) (*Entry, error) {
	return r.log(ctx, ActionDelete, resourceType, resourceID, description, SeverityHigh)
}

// LogView records a VIEW entry.
func (r *Recorder) LogView(ctx context.Context, resourceType, resourceID, description string) (*Entry, error) {
	return r.log(ctx, ActionView, resourceType, resourceID, description, SeverityLow)
}

// LogDownload records a DOWNLOAD entry at medium severity.
func (r *Recorder) LogDownload(ctx context.Context, resourceType, resourceID, description string) (*Entry, error) {
	return r.log(ctx, ActionDownload, resourceType, resourceID, description, SeverityMedium)
}

// LogLogin records a LOGIN entry.
func (r *Recorder) LogLogin(ctx context.Context, resourceType, resourceID, description string) (*Entry, error) {
	return r.log(ctx, ActionLogin, resourceType, resourceID, description, SeverityLow)
}

// LogLogout records a LOGOUT entry.
func (r *Recorder) LogLogout(ctx context.Context, resourceType, resourceID, description string) (*Entry, error) {
	return r.log(ctx, ActionLogout, resourceType, resourceID, description, SeverityLow)
}

func (r *Recorder) log(ctx context.Context, action Action, resourceType, resourceID, description string, severity Severity) (*Entry, error) {
	if description == "" {
		description = fmt.Sprintf("%s %s #%s", action.Verb(), resourceType, resourceID)
	}
	return r.CreateEntry(ctx, Fields{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Severity:     severity,
		Description:  description,
	})
}

// EntityCreated records the creation of an auditable entity, capturing the
// full attribute snapshot as new values.
func (r *Recorder) EntityCreated(ctx context.Context, e Auditable) {
	if !r.shouldAudit(ctx, e, ActionCreate) {
		return
	}
	snapshot := filterSnapshot(e.AuditableAttributes(), excludedFields(e))
	r.emit(ctx, Fields{
		Action:       ActionCreate,
		ResourceType: e.ResourceType(),
		ResourceID:   e.AuditIdentifier(),
		NewValues:    snapshot,
		Severity:     severityFor(e, ActionCreate),
		Description:  describe(e, ActionCreate),
	})
}

// EntityUpdated records an update given the attribute snapshot captured
// before the mutation. Updates that only touched excluded fields produce no
// entry; entities implementing UpdateSelector can narrow further to the
// fields that matter.
func (r *Recorder) EntityUpdated(ctx context.Context, e Auditable, before map[string]any) {
	excluded := excludedFields(e)
	oldValues, newValues := Diff(before, e.AuditableAttributes(), excluded)
	if len(oldValues) == 0 && len(newValues) == 0 {
		return
	}
	if !r.shouldAudit(ctx, e, ActionUpdate) {
		return
	}
	if sel, ok := e.(UpdateSelector); ok {
		changed := make([]string, 0, len(newValues))
		for field := range newValues {
			changed = append(changed, field)
		}
		if !sel.ShouldAuditUpdate(changed) {
			return
		}
	}
	r.emit(ctx, Fields{
		Action:       ActionUpdate,
		ResourceType: e.ResourceType(),
		ResourceID:   e.AuditIdentifier(),
		OldValues:    oldValues,
		NewValues:    newValues,
		Severity:     severityFor(e, ActionUpdate),
		Description:  describe(e, ActionUpdate),
	})
}

// EntityDeleted records the removal of an auditable entity, capturing the
// full attribute snapshot as old values. Call before the row is gone.
func (r *Recorder) EntityDeleted(ctx context.Context, e Auditable) {
	if !r.shouldAudit(ctx, e, ActionDelete) {
		return
	}
	snapshot := filterSnapshot(e.AuditableAttributes(), excludedFields(e))
	r.emit(ctx, Fields{
		Action:       ActionDelete,
		ResourceType: e.ResourceType(),
		ResourceID:   e.AuditIdentifier(),
		OldValues:    snapshot,
		Severity:     severityFor(e, ActionDelete),
		Description:  describe(e, ActionDelete),
	})
}

// EntityViewed records a manual VIEW entry for an auditable entity.
func (r *Recorder) EntityViewed(ctx context.Context, e Auditable, description string) {
	if description == "" {
		description = describe(e, ActionView)
	}
	r.emit(ctx, Fields{
		Action:       ActionView,
		ResourceType: e.ResourceType(),
		ResourceID:   e.AuditIdentifier(),
		Severity:     severityFor(e, ActionView),
		Description:  description,
	})
}

// EntityDownloaded records a manual DOWNLOAD entry for an auditable entity.
func (r *Recorder) EntityDownloaded(ctx context.Context, e Auditable, description string) {
	if description == "" {
		description = describe(e, ActionDownload)
	}
	r.emit(ctx, Fields{
		Action:       ActionDownload,
		ResourceType: e.ResourceType(),
		ResourceID:   e.AuditIdentifier(),
		Severity:     severityFor(e, ActionDownload),
		Description:  description,
	})
}

// shouldAudit implements the default gate for lifecycle actions: an
// authenticated actor must be present and the action must be in the
// entity's configured set.
func (r *Recorder) shouldAudit(ctx context.Context, e Auditable, action Action) bool {
	if ActorFrom(ctx) == nil {
		return false
	}
	return auditsAction(e, action)
}

// emit persists an entry and swallows failures. The audit trail observes
// the business operation, it must not fail it.
func (r *Recorder) emit(ctx context.Context, fields Fields) {
	if _, err := r.CreateEntry(ctx, fields); err != nil {
		logger.Error("Audit write failed",
			"action", string(fields.Action),
			"resource_type", fields.ResourceType,
			"resource_id", fields.ResourceID,
			"error", err)
	}
}
