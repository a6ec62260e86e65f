package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/ethics-harness/internal/logging"
	"github.com/danielpatrickdp/ethics-harness/internal/tui"
)

// #region tui
func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Full-screen interactive view of the active run",
		Long: `Open the active run in a full-screen terminal UI.

The left pane logs every command and its result; the right pane shows the
visible state. Changes are stored exactly as 'play' stores them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				if _, err := s.active(); err != nil {
					return err
				}
				// stderr logging would tear the alternate screen.
				s.log = logging.NewLogger(s.cfg.Logging.Level, io.Discard)
				return tui.Run(storeRunner{s: s})
			})
		},
	}
}

// #endregion tui
