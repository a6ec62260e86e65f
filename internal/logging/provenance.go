package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-decision
// LogDecision writes a provenance entry to the provenance_log table.
func LogDecision(db *sql.DB, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (version_id, run_id, step, action, outcome, message, fields_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.VersionID,
		entry.RunID,
		entry.Step,
		entry.Action,
		entry.Outcome,
		nullIfEmpty(entry.Message),
		nullIfEmpty(entry.FieldsJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// ListDecisions returns the provenance rows of a run in insertion order.
func ListDecisions(db *sql.DB, runID string) ([]ProvenanceEntry, error) {
	rows, err := db.Query(
		`SELECT version_id, run_id, step, action, outcome, message, fields_json, created_at
		 FROM provenance_log WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []ProvenanceEntry
	for rows.Next() {
		var e ProvenanceEntry
		var message, fields sql.NullString
		var created string
		if err := rows.Scan(&e.VersionID, &e.RunID, &e.Step, &e.Action, &e.Outcome, &message, &fields, &created); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Message = message.String
		e.FieldsJSON = fields.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion log-decision

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
