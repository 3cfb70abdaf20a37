package domain

// Logical field names recorded by the change tracker. The repository
// folds these into a minimal column-level update.
const (
	FieldDepartureTime = "departure_time"
	FieldDescription   = "description"
	FieldIsCancelled   = "is_cancelled"
	FieldPrice         = "price"
	FieldSeatsNumber   = "seats_number"

	// Passenger changes are not scalar columns, so they get synthetic markers.
	FieldPassengersAdded   = "passengers_added"
	FieldPassengersRemoved = "passengers_removed"
)

// Entity tracks which logical fields of an aggregate changed since the
// last successful persistence. Aggregates embed it and mark changes from
// their mutators; the repository clears it after a successful write.
type Entity struct {
	changed map[string]struct{}
}

func (e *Entity) markChanged(field string) {
	if e.changed == nil {
		e.changed = make(map[string]struct{})
	}
	e.changed[field] = struct{}{}
}

// HasChanged reports whether the given field was marked since the last
// successful persistence.
func (e *Entity) HasChanged(field string) bool {
	_, ok := e.changed[field]
	return ok
}

// ChangedFields returns the set of changed field names.
func (e *Entity) ChangedFields() []string {
	fields := make([]string, 0, len(e.changed))
	for f := range e.changed {
		fields = append(fields, f)
	}
	return fields
}

// ClearChangedFields resets the tracker. Called by the repository only
// after the changes have been persisted.
func (e *Entity) ClearChangedFields() {
	e.changed = nil
}
