package state

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/ethics-harness/internal/snapshot"
)

// ErrNoActiveRun is returned by GetCurrent before any run was created.
var ErrNoActiveRun = errors.New("no active run")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	domain       TEXT NOT NULL,
	seed         TEXT NOT NULL,
	total_steps  INTEGER NOT NULL,
	variant      TEXT NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_versions (
	version_id   TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL,
	parent_id    TEXT,
	step         INTEGER NOT NULL,
	snapshot     BLOB NOT NULL,
	summary_json TEXT,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id),
	FOREIGN KEY (parent_id) REFERENCES snapshot_versions(version_id)
);

CREATE TABLE IF NOT EXISTS provenance_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id   TEXT NOT NULL,
	run_id       TEXT NOT NULL,
	step         INTEGER NOT NULL,
	action       TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	message      TEXT,
	fields_json  TEXT,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES snapshot_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_run (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	run_id       TEXT NOT NULL,
	version_id   TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id),
	FOREIGN KEY (version_id) REFERENCES snapshot_versions(version_id)
);
`

// #endregion schema

// #region store-struct
// Store keeps runs and their snapshot versions in SQLite. One row of
// active_run points at the version commands operate on.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for the provenance logger.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region create-run
// CreateRun stores a new run with snap as its first version and makes it
// the active run.
func (s *Store) CreateRun(snap snapshot.Snapshot, summary string) (Run, Version, error) {
	data, err := snapshot.Marshal(snap)
	if err != nil {
		return Run{}, Version{}, err
	}
	now := time.Now().UTC()
	run := Run{
		RunID:      uuid.New().String(),
		Domain:     snap.Config.Domain,
		Seed:       snap.Config.Seed,
		TotalSteps: snap.Config.TotalSteps,
		Variant:    string(snap.Config.Variant),
		CreatedAt:  now,
	}
	ver := Version{
		VersionID: uuid.New().String(),
		RunID:     run.RunID,
		Step:      snap.Header.Step,
		Data:      data,
		Summary:   summary,
		CreatedAt: now,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Run{}, Version{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, domain, seed, total_steps, variant, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Domain, strconv.FormatUint(run.Seed, 10), run.TotalSteps, run.Variant,
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, Version{}, fmt.Errorf("insert run: %w", err)
	}
	if err := insertVersion(tx, ver); err != nil {
		return Run{}, Version{}, err
	}
	_, err = tx.Exec(
		`INSERT INTO active_run (id, run_id, version_id) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET run_id = excluded.run_id, version_id = excluded.version_id`,
		run.RunID, ver.VersionID,
	)
	if err != nil {
		return Run{}, Version{}, fmt.Errorf("set active: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Run{}, Version{}, fmt.Errorf("commit: %w", err)
	}
	return run, ver, nil
}

// #endregion create-run

// #region get-current
// GetCurrent returns the active run and version.
func (s *Store) GetCurrent() (Run, Version, error) {
	var runID, versionID string
	err := s.db.QueryRow(`SELECT run_id, version_id FROM active_run WHERE id = 1`).Scan(&runID, &versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, Version{}, ErrNoActiveRun
	}
	if err != nil {
		return Run{}, Version{}, fmt.Errorf("get active: %w", err)
	}
	run, err := s.GetRun(runID)
	if err != nil {
		return Run{}, Version{}, err
	}
	ver, err := s.GetVersion(versionID)
	if err != nil {
		return Run{}, Version{}, err
	}
	return run, ver, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (Run, error) {
	var run Run
	var seed, created string
	err := s.db.QueryRow(
		`SELECT run_id, domain, seed, total_steps, variant, created_at FROM runs WHERE run_id = ?`, id,
	).Scan(&run.RunID, &run.Domain, &seed, &run.TotalSteps, &run.Variant, &created)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	run.Seed, err = strconv.ParseUint(seed, 10, 64)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: seed: %w", id, err)
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return run, nil
}

// #endregion get-current

// #region get-version
const versionColumns = `version_id, run_id, parent_id, step, snapshot, summary_json, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(row scanner) (Version, error) {
	var v Version
	var parentID, summary sql.NullString
	var created string
	if err := row.Scan(&v.VersionID, &v.RunID, &parentID, &v.Step, &v.Data, &summary, &created); err != nil {
		return Version{}, err
	}
	v.ParentID = parentID.String
	v.Summary = summary.String
	v.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return v, nil
}

// GetVersion retrieves a version by ID.
func (s *Store) GetVersion(id string) (Version, error) {
	v, err := scanVersion(s.db.QueryRow(
		`SELECT `+versionColumns+` FROM snapshot_versions WHERE version_id = ?`, id))
	if err != nil {
		return Version{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return v, nil
}

// #endregion get-version

// #region commit-version
// CommitVersion stores snap as the child of the active version and moves the
// active pointer to it.
func (s *Store) CommitVersion(snap snapshot.Snapshot, summary string) (Version, error) {
	run, cur, err := s.GetCurrent()
	if err != nil {
		return Version{}, err
	}
	if snap.Config.Domain != run.Domain || snap.Config.Seed != run.Seed {
		return Version{}, fmt.Errorf("snapshot does not belong to run %s", run.RunID)
	}
	data, err := snapshot.Marshal(snap)
	if err != nil {
		return Version{}, err
	}
	ver := Version{
		VersionID: uuid.New().String(),
		RunID:     run.RunID,
		ParentID:  cur.VersionID,
		Step:      snap.Header.Step,
		Data:      data,
		Summary:   summary,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Version{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertVersion(tx, ver); err != nil {
		return Version{}, err
	}
	if _, err := tx.Exec(`UPDATE active_run SET version_id = ? WHERE id = 1`, ver.VersionID); err != nil {
		return Version{}, fmt.Errorf("update active: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Version{}, fmt.Errorf("commit: %w", err)
	}
	return ver, nil
}

func insertVersion(tx *sql.Tx, v Version) error {
	var parent, summary any
	if v.ParentID != "" {
		parent = v.ParentID
	}
	if v.Summary != "" {
		summary = v.Summary
	}
	_, err := tx.Exec(
		`INSERT INTO snapshot_versions (`+versionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.VersionID, v.RunID, parent, v.Step, v.Data, summary, v.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

// #endregion commit-version

// #region rollback
// Rollback makes a previous version active. The target may belong to any
// run; its run becomes the active run. Later versions are kept.
func (s *Store) Rollback(targetVersionID string) (Version, error) {
	v, err := s.GetVersion(targetVersionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Version{}, fmt.Errorf("version %s not found", targetVersionID)
		}
		return Version{}, err
	}
	_, err = s.db.Exec(
		`INSERT INTO active_run (id, run_id, version_id) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET run_id = excluded.run_id, version_id = excluded.version_id`,
		v.RunID, v.VersionID,
	)
	if err != nil {
		return Version{}, fmt.Errorf("rollback: %w", err)
	}
	return v, nil
}

// ResolveVersion expands a unique version-ID prefix within a run.
func (s *Store) ResolveVersion(runID, prefix string) (string, error) {
	rows, err := s.db.Query(
		`SELECT version_id FROM snapshot_versions WHERE run_id = ? AND version_id LIKE ? || '%'`,
		runID, prefix,
	)
	if err != nil {
		return "", fmt.Errorf("resolve version: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("version %s not found", prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("version prefix %s is ambiguous (%d matches)", prefix, len(ids))
	}
}

// #endregion rollback

// #region list-versions
// ListVersions returns the most recent versions of a run, newest first.
func (s *Store) ListVersions(runID string, limit int) ([]Version, error) {
	rows, err := s.db.Query(
		`SELECT `+versionColumns+` FROM snapshot_versions
		 WHERE run_id = ? ORDER BY rowid DESC LIMIT ?`, runID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListVersionsWithProvenance is ListVersions joined with the latest
// provenance row written against each version.
func (s *Store) ListVersionsWithProvenance(runID string, limit int) ([]VersionWithProvenance, error) {
	rows, err := s.db.Query(
		`SELECT v.version_id, v.run_id, v.parent_id, v.step, v.snapshot, v.summary_json, v.created_at,
		        p.action, p.outcome, p.message
		 FROM snapshot_versions v
		 LEFT JOIN provenance_log p
		   ON p.id = (SELECT MAX(id) FROM provenance_log WHERE version_id = v.version_id)
		 WHERE v.run_id = ?
		 ORDER BY v.rowid DESC LIMIT ?`, runID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []VersionWithProvenance
	for rows.Next() {
		var vp VersionWithProvenance
		var parentID, summary, action, outcome, message sql.NullString
		var created string
		if err := rows.Scan(&vp.VersionID, &vp.RunID, &parentID, &vp.Step, &vp.Data, &summary, &created,
			&action, &outcome, &message); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		vp.ParentID = parentID.String
		vp.Summary = summary.String
		vp.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		vp.Action = action.String
		vp.Outcome = outcome.String
		vp.Message = message.String
		out = append(out, vp)
	}
	return out, rows.Err()
}

// #endregion list-versions
