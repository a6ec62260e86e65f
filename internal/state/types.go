package state

import (
	"time"

	"github.com/danielpatrickdp/ethics-harness/internal/snapshot"
)

// #region run
// Run is one scenario configuration. A run owns a chain of versions.
type Run struct {
	RunID      string
	Domain     string
	Seed       uint64
	TotalSteps int
	Variant    string
	CreatedAt  time.Time
}

// #endregion run

// #region version
// Version is one stored snapshot of a run. Data is the zstd-framed snapshot
// exactly as snapshot.Marshal wrote it.
type Version struct {
	VersionID string
	RunID     string
	ParentID  string
	Step      int
	Data      []byte
	Summary   string // JSON, display only
	CreatedAt time.Time
}

// Decode unpacks the stored snapshot.
func (v Version) Decode() (snapshot.Snapshot, error) {
	return snapshot.Unmarshal(v.Data)
}

// #endregion version

// #region version-with-provenance
// VersionWithProvenance pairs a version with the action that produced it.
// Action is empty for the initial version of a run.
type VersionWithProvenance struct {
	Version
	Action  string
	Outcome string
	Message string
}

// #endregion version-with-provenance
