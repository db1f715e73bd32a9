package audit

import "reflect"

// Diff compares two plain field snapshots and returns the before/after
// values of fields that changed, skipping excluded field names. Fields
// present on only one side count as changed. Both returned maps are nil
// when nothing changed, which callers use to detect vacuous updates.
func Diff(before, after map[string]any, excluded map[string]struct{}) (oldValues, newValues map[string]any) {
	for field, afterVal := range after {
		if _, skip := excluded[field]; skip {
			continue
		}
		beforeVal, existed := before[field]
		if existed && reflect.DeepEqual(beforeVal, afterVal) {
			continue
		}
		if oldValues == nil {
			oldValues = make(map[string]any)
			newValues = make(map[string]any)
		}
		if existed {
			oldValues[field] = beforeVal
		} else {
			oldValues[field] = nil
		}
		newValues[field] = afterVal
	}

	// Fields removed between snapshots.
	for field, beforeVal := range before {
		if _, skip := excluded[field]; skip {
			continue
		}
		if _, stillThere := after[field]; stillThere {
			continue
		}
		if oldValues == nil {
			oldValues = make(map[string]any)
			newValues = make(map[string]any)
		}
		oldValues[field] = beforeVal
		newValues[field] = nil
	}

	return oldValues, newValues
}

// filterSnapshot returns a copy of snapshot without excluded fields.
func filterSnapshot(snapshot map[string]any, excluded map[string]struct{}) map[string]any {
	filtered := make(map[string]any, len(snapshot))
	for field, value := range snapshot {
		if _, skip := excluded[field]; skip {
			continue
		}
		filtered[field] = value
	}
	return filtered
}
