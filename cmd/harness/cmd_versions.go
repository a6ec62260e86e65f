package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/ethics-harness/internal/engine"
	"github.com/danielpatrickdp/ethics-harness/internal/snapshot"
)

// #region versions
func newVersionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List stored versions of the active run, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			last, _ := cmd.Flags().GetInt("last")
			return withSession(cmd, func(s *session) error {
				run, cur, err := s.store.GetCurrent()
				if err != nil {
					return err
				}
				versions, err := s.store.ListVersionsWithProvenance(run.RunID, last)
				if err != nil {
					return err
				}
				type row struct {
					VersionID string  `json:"version_id"`
					Step      int     `json:"step"`
					Action    string  `json:"action"`
					Outcome   string  `json:"outcome"`
					Active    bool    `json:"active"`
					CreatedAt string  `json:"created_at"`
				}
				rows := make([]row, 0, len(versions))
				for _, v := range versions {
					rows = append(rows, row{
						VersionID: v.VersionID,
						Step:      v.Step,
						Action:    v.Action,
						Outcome:   v.Outcome,
						Active:    v.VersionID == cur.VersionID,
						CreatedAt: v.CreatedAt.Format("2006-01-02T15:04:05Z"),
					})
				}
				if s.json {
					return printJSON(s.out, rows)
				}
				fmt.Fprintf(s.out, "%-10s  %4s  %-12s  %-8s  %s\n", "Version", "Step", "Action", "Outcome", "Time")
				for _, r := range rows {
					mark := " "
					if r.Active {
						mark = "*"
					}
					fmt.Fprintf(s.out, "%s%-9s  %4d  %-12s  %-8s  %s\n",
						mark, shortID(r.VersionID), r.Step, r.Action, r.Outcome, r.CreatedAt)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int("last", 20, "Show N most recent versions")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion versions

// #region rollback
func newRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <version>",
		Short: "Make an earlier version of the active run active again (ID prefix accepted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				run, _, err := s.store.GetCurrent()
				if err != nil {
					return err
				}
				id, err := s.store.ResolveVersion(run.RunID, args[0])
				if err != nil {
					return err
				}
				if _, err := s.store.Rollback(id); err != nil {
					return err
				}
				ar, err := s.active()
				if err != nil {
					return err
				}
				if err := s.record(ar, "rollback", false, "success", "", map[string]string{"version": id}); err != nil {
					return err
				}
				return printView(s, ar.sim.State())
			})
		},
	}
}

// #endregion rollback

// #region export-import
func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the active version as a compressed snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				ar, err := s.active()
				if err != nil {
					return err
				}
				snap, err := ar.sim.Snapshot()
				if err != nil {
					return err
				}
				if err := snapshot.WriteFile(args[0], snap); err != nil {
					return err
				}
				fmt.Fprintf(s.out, "exported %s step %d to %s\n", snap.Header.Domain, snap.Header.Step, args[0])
				return nil
			})
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load a snapshot file as a new active run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				snap, err := snapshot.ReadFile(args[0])
				if err != nil {
					return err
				}
				d, err := s.domain(snap.Config.Domain)
				if err != nil {
					return err
				}
				sim, err := engine.Restore(d, snap, s.log)
				if err != nil {
					return err
				}
				run, ver, err := s.store.CreateRun(snap, summarize(sim))
				if err != nil {
					return err
				}
				ar := &activeRun{sim: sim, run: run, ver: ver}
				if err := s.record(ar, "import", false, "success", "", map[string]string{"file": args[0]}); err != nil {
					return err
				}
				return printView(s, sim.State())
			})
		},
	}
}

// #endregion export-import
