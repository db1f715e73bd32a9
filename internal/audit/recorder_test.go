package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	entries []*Entry
	err     error
}

func (s *fakeStore) Insert(ctx context.Context, entry *Entry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

type testRecord struct {
	id    string
	attrs map[string]any
}

func (r *testRecord) ResourceType() string              { return "TestRecord" }
func (r *testRecord) AuditIdentifier() string           { return r.id }
func (r *testRecord) AuditableAttributes() map[string]any { return r.attrs }

// selectiveRecord narrows update auditing to the status field and excludes
// a secret field from snapshots.
type selectiveRecord struct {
	testRecord
}

func (r *selectiveRecord) ShouldAuditUpdate(changed []string) bool {
	for _, field := range changed {
		if field == "status" {
			return true
		}
	}
	return false
}

func (r *selectiveRecord) ExcludedAuditFields() []string {
	return []string{"secret"}
}

// criticalRecord escalates deletes to critical severity.
type criticalRecord struct {
	testRecord
}

func (r *criticalRecord) AuditSeverity(action Action) Severity {
	if action == ActionDelete {
		return SeverityCritical
	}
	return ""
}

// createOnlyRecord audits nothing but creation.
type createOnlyRecord struct {
	testRecord
}

func (r *createOnlyRecord) AuditActions() []Action {
	return []Action{ActionCreate}
}

func actorContext() context.Context {
	return WithActor(context.Background(), &Actor{ID: 42, Name: "Jane Admin", Email: "jane@example.com", Role: "admin"})
}

func TestCreateEntry_ActorSnapshotFromContext(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store)

	entry, err := recorder.CreateEntry(actorContext(), Fields{
		Action:       ActionCreate,
		ResourceType: "TestRecord",
		ResourceID:   "1",
	})
	require.NoError(t, err)

	require.NotNil(t, entry.ActorID)
	assert.Equal(t, uint(42), *entry.ActorID)
	assert.Equal(t, "Jane Admin", *entry.ActorName)
	assert.Equal(t, "jane@example.com", *entry.ActorEmail)
	assert.Equal(t, "admin", *entry.ActorRole)
}

func TestCreateEntry_AnonymousActor(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store)

	entry, err := recorder.CreateEntry(context.Background(), Fields{
		Action:       ActionLoginFailed,
		ResourceType: "User",
		ResourceID:   "ghost@example.com",
	})
	require.NoError(t, err)

	assert.Nil(t, entry.ActorID)
	assert.Nil(t, entry.ActorName)
	assert.Nil(t, entry.ActorEmail)
}

func TestCreateEntry_CallerRequestInfoWins(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store)

	ctx := WithRequestInfo(context.Background(), &RequestInfo{
		IP:        "10.0.0.1",
		UserAgent: "ambient-agent",
		URL:       "/api/v1/auth/login",
		Method:    "POST",
	})

	entry, err := recorder.CreateEntry(ctx, Fields{
		Action:       ActionLogin,
		ResourceType: "User",
		ResourceID:   "jane@example.com",
		IPAddress:    "203.0.113.9",
		UserAgent:    "explicit-agent",
	})
	require.NoError(t, err)

	assert.Equal(t, "203.0.113.9", *entry.IPAddress)
	assert.Equal(t, "explicit-agent", *entry.UserAgent)
	// URL and method still come from the ambient request
	assert.Equal(t, "/api/v1/auth/login", *entry.RequestURL)
	assert.Equal(t, "POST", *entry.HTTPMethod)
}

func TestCreateEntry_AmbientRequestInfoFallback(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store)

	ctx := WithRequestInfo(context.Background(), &RequestInfo{IP: "10.0.0.1", UserAgent: "ambient-agent"})

	entry, err := recorder.CreateEntry(ctx, Fields{
		Action:       ActionView,
		ResourceType: "TestRecord",
		ResourceID:   "1",
	})
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", *entry.IPAddress)
	assert.Equal(t, "ambient-agent", *entry.UserAgent)
}

func TestCreateEntry_SeverityDefaultsToLow(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store)

	entry, err := recorder.CreateEntry(context.Background(), Fields{
		Action:       ActionView,
		ResourceType: "TestRecord",
		ResourceID:   "1",
	})
	require.NoError(t, err)
	assert.Equal(t, SeverityLow, entry.Severity)
}

func TestCreateEntry_StoreFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	recorder := NewRecorder(store)

	entry, err := recorder.CreateEntry(context.Background(), Fields{
		Action:       ActionCreate,
		ResourceType: "TestRecord",
		ResourceID:   "1",
	})
	assert.Nil(t, entry)
	assert.ErrorContains(t, err, "failed to write audit entry")
}

func TestLogWrappers_Severities(t *testing.T) {
	tests := []struct {
		name     string
		log      func(r *Recorder, ctx context.Context) (*Entry, error)
		action   Action
		severity Severity
	}{
		{
			name: "create is low",
			log: func(r *Recorder, ctx context.Context) (*Entry, error) {
				return r.LogCreate(ctx, "TestRecord", "1", "")
			},
			action:   ActionCreate,
			severity: SeverityLow,
		},
		{
			name: "delete is high",
			log: func(r *Recorder, ctx context.Context) (*Entry, error) {
				return r.LogDelete(ctx, "TestRecord", "1", "")
			},
			action:   ActionDelete,
			severity: SeverityHigh,
		},
		{
			name: "download is medium",
			log: func(r *Recorder, ctx context.Context) (*Entry, error) {
				return r.LogDownload(ctx, "TestRecord", "1", "")
			},
			action:   ActionDownload,
			severity: SeverityMedium,
		},
		{
			name: "view is low",
			log: func(r *Recorder, ctx context.Context) (*Entry, error) {
				return r.LogView(ctx, "TestRecord", "1", "")
			},
			action:   ActionView,
			severity: SeverityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			recorder := NewRecorder(store)

			entry, err := tt.log(recorder, actorContext())
			require.NoError(t, err)
			assert.Equal(t, tt.action, entry.Action)
			assert.Equal(t, tt.severity, entry.Severity)
		})
	}
}

func TestLogWrappers_DefaultDescription(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store)

	entry, err := recorder.LogDelete(actorContext(), "TestRecord", "7", "")
	require.NoError(t, err)
	assert.Equal(t, "Delete TestRecord #7", entry.Description)
}

func TestEntityCreated_RequiresActor(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store)

	record := &testRecord{id: "1", attrs: map[string]any{"status": "pending"}}
	recorder.EntityCreated(context.Background(), record)

	assert.Empty(t, store.entries)
}

func TestEntityCreated_SnapshotAsNewValues(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store)

	record := &selectiveRecord{testRecord{id: "1", attrs: map[string]any{
		"status": "pending",
		"secret": "hidden",
		"id":     1,
	}}}
	recorder.EntityCreated(actorContext(), record)

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, ActionCreate, entry.Action)
	assert.Equal(t, "TestRecord", entry.ResourceType)
	assert.Equal(t, map[string]any{"status": "pending"}, map[string]any(entry.NewValues))
	assert.Nil(t, entry.OldValues)
}

func TestEntityUpdated_VacuousUpdateSkipped(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store)

	record := &testRecord{id: "1", attrs: map[string]any{"status": "pending"}}
	before := map[string]any{"status": "pending"}
	recorder.EntityUpdated(actorContext(), record, before)

	assert.Empty(t, store.entries)
}

func TestEntityUpdated_ExcludedOnlyChangeSkipped(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store)

	record := &selectiveRecord{testRecord{id: "1", attrs: map[string]any{
		"status": "pending",
		"secret": "new",
	}}}
	before := map[string]any{"status": "pending", "secret": "old"}
	recorder.EntityUpdated(actorContext(), record, before)

	assert.Empty(t, store.entries)
}

func TestEntityUpdated_PreciseDiff(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store)

	record := &testRecord{id: "1", attrs: map[string]any{
		"status": "scheduled",
		"city":   "Berlin",
	}}
	before := map[string]any{"status": "pending", "city": "Berlin"}
	recorder.EntityUpdated(actorContext(), record, before)

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, ActionUpdate, entry.Action)
	assert.Equal(t, map[string]any{"status": "pending"}, map[string]any(entry.OldValues))
	assert.Equal(t, map[string]any{"status": "scheduled"}, map[string]any(entry.NewValues))
}

func TestEntityUpdated_SelectorDropsUnimportantChange(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store)

	record := &selectiveRecord{testRecord{id: "1", attrs: map[string]any{
		"status": "pending",
		"notes":  "changed notes",
	}}}
	before := map[string]any{"status": "pending", "notes": "old notes"}
	recorder.EntityUpdated(actorContext(), record, before)

	assert.Empty(t, store.entries)
}

func TestEntityUpdated_SelectorKeepsImportantChange(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store)

	record := &selectiveRecord{testRecord{id: "1", attrs: map[string]any{
		"status": "scheduled",
		"notes":  "also changed",
	}}}
	before := map[string]any{"status": "pending", "notes": "old notes"}
	recorder.EntityUpdated(actorContext(), record, before)

	require.Len(t, store.entries, 1)
	// The entry still carries every changed field, narrowing only gates
	// whether it is written at all.
	assert.Equal(t, map[string]any{"status": "scheduled", "notes": "also changed"}, map[string]any(store.entries[0].NewValues))
}

func TestEntityDeleted_SnapshotAsOldValues(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store)

	record := &testRecord{id: "9", attrs: map[string]any{"status": "cancelled"}}
	recorder.EntityDeleted(actorContext(), record)

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, ActionDelete, entry.Action)
	assert.Equal(t, SeverityHigh, entry.Severity)
	assert.Equal(t, map[string]any{"status": "cancelled"}, map[string]any(entry.OldValues))
	assert.Nil(t, entry.NewValues)
}

func TestEntityDeleted_SeverityOverride(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store)

	record := &criticalRecord{testRecord{id: "9", attrs: map[string]any{"email": "jane@example.com"}}}
	recorder.EntityDeleted(actorContext(), record)

	require.Len(t, store.entries, 1)
	assert.Equal(t, SeverityCritical, store.entries[0].Severity)
}

func TestActionSelector_NarrowsLifecycleActions(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store)

	record := &createOnlyRecord{testRecord{id: "1", attrs: map[string]any{"status": "pending"}}}
	ctx := actorContext()

	recorder.EntityCreated(ctx, record)
	recorder.EntityDeleted(ctx, record)

	require.Len(t, store.entries, 1)
	assert.Equal(t, ActionCreate, store.entries[0].Action)
}

func TestEntityViewed_WorksWithoutActorGate(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store)

	record := &testRecord{id: "3", attrs: map[string]any{"status": "pending"}}
	recorder.EntityViewed(actorContext(), record, "")

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, ActionView, entry.Action)
	assert.Equal(t, "View TestRecord #3", entry.Description)
	assert.Nil(t, entry.OldValues)
	assert.Nil(t, entry.NewValues)
}

func TestEntityHooks_SwallowStoreFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("disk full")}
	recorder := NewRecorder(store)

	record := &testRecord{id: "1", attrs: map[string]any{"status": "pending"}}

	// None of these may panic or surface the error.
	recorder.EntityCreated(actorContext(), record)
	recorder.EntityUpdated(actorContext(), record, map[string]any{"status": "old"})
	recorder.EntityDeleted(actorContext(), record)

	assert.Empty(t, store.entries)
}
