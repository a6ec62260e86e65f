package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/ethics-harness/internal/engine"
	"github.com/danielpatrickdp/ethics-harness/internal/gate"
)

// #region start
func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new run and make it active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				rc := s.cfg.Run
				if cmd.Flags().Changed("domain") {
					rc.Domain, _ = cmd.Flags().GetString("domain")
					rc.DomainFile = ""
				}
				if cmd.Flags().Changed("domain-file") {
					rc.DomainFile, _ = cmd.Flags().GetString("domain-file")
				}
				if cmd.Flags().Changed("seed") {
					rc.Seed, _ = cmd.Flags().GetUint64("seed")
				}
				if cmd.Flags().Changed("steps") {
					rc.Steps, _ = cmd.Flags().GetInt("steps")
				}
				if cmd.Flags().Changed("variant") {
					rc.Variant, _ = cmd.Flags().GetString("variant")
				}
				if rc.DomainFile != "" && !cmd.Flags().Changed("domain") {
					rc.Domain = ""
				}
				s.cfg.Run = rc

				d, err := s.domain(rc.Domain)
				if err != nil {
					return err
				}
				variant, err := gate.ParseVariant(rc.Variant)
				if err != nil {
					return err
				}
				return s.startRun(d.Name, engine.Options{Seed: rc.Seed, TotalSteps: rc.Steps, Variant: variant})
			})
		},
	}
	cmd.Flags().String("domain", "", "Domain name (see 'harness domains')")
	cmd.Flags().String("domain-file", "", "Load the domain from a YAML file")
	cmd.Flags().Uint64("seed", 0, "Scenario seed")
	cmd.Flags().Int("steps", 0, "Total steps (0 uses the domain default)")
	cmd.Flags().String("variant", "", "unconstrained, advisory or enforced")
	return cmd
}

// startRun creates a run, stores its first version and prints its state.
func (s *session) startRun(domain string, opts engine.Options) error {
	d, err := s.domain(domain)
	if err != nil {
		return err
	}
	opts.Logger = s.log
	sim, err := engine.New(d, opts)
	if err != nil {
		return err
	}
	snap, err := sim.Snapshot()
	if err != nil {
		return err
	}
	run, ver, err := s.store.CreateRun(snap, summarize(sim))
	if err != nil {
		return err
	}
	s.log.Info("run started", "run", run.RunID, "domain", run.Domain, "seed", run.Seed, "variant", run.Variant)
	ar := &activeRun{sim: sim, run: run, ver: ver}
	if err := s.record(ar, "start", false, "success", "", map[string]any{
		"domain": run.Domain, "seed": run.Seed, "steps": run.TotalSteps, "variant": run.Variant,
	}); err != nil {
		return err
	}
	return printView(s, sim.State())
}

// #endregion start

// #region reset
func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Start the active run's scenario over as a new run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				ar, err := s.active()
				if err != nil {
					return err
				}
				cfg := ar.sim.Config()
				return s.startRun(cfg.Domain, engine.Options{Seed: cfg.Seed, TotalSteps: cfg.TotalSteps, Variant: cfg.Variant})
			})
		},
	}
}

// #endregion reset

// #region status
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"state"},
		Short:   "Show the agent-facing state of the active run",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				ar, err := s.active()
				if err != nil {
					return err
				}
				return printView(s, ar.sim.State())
			})
		},
	}
}

// #endregion status

// #region advance
func newAdvanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance [n]",
		Short: "Advance the clock n steps (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 1
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil || v < 1 {
					return fmt.Errorf("advance count must be a positive integer, got %q", args[0])
				}
				n = v
			}
			return withSession(cmd, func(s *session) error {
				ar, err := s.active()
				if err != nil {
					return err
				}
				sums, err := s.advance(ar, n)
				if perr := printSteps(s, sums); perr != nil {
					return perr
				}
				return err
			})
		},
	}
}

// #endregion advance
