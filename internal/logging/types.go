package logging

import "time"

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table: one attempted
// action or advance, whatever its outcome.
type ProvenanceEntry struct {
	VersionID  string // version current after the attempt
	RunID      string
	Step       int
	Action     string // verb name, "advance", "reset" or "rollback"
	Outcome    string // success | error | blocked | info
	Message    string
	FieldsJSON string
	CreatedAt  time.Time
}

// #endregion provenance-entry
