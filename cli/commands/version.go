package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/loom/cli/internal/ui"
	"github.com/satishbabariya/loom/cli/internal/version"
	"github.com/satishbabariya/loom/schema"
)

func newVersionCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Skip configuration loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get(schema.SupportedVersions)
			if full {
				fmt.Fprintln(ui.Output, info.FullString())
				return
			}
			fmt.Fprintln(ui.Output, info.String())
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Print build details")
	return cmd
}
