package cmd

import (
	"os"

	"github.com/huangsam/covmap/internal/contract"
	"github.com/huangsam/covmap/internal/outwriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// resolveCmd shows which test script each directory name maps to.
var resolveCmd = &cobra.Command{
	Use:   "resolve <dir-name>...",
	Short: "Print the test script each directory name resolves to",
	Long: `Resolve test directory names to test script paths without reading any coverage.

Names that do not follow <framework>_<suite>_<case> print "skip"; covmap ignores
such directories during a mapping run.

Examples:
  # Check a naming convention
  covmap resolve unit_mathlib_add integ_net-io_tcp-reset

  # See what the full match policy rejects
  covmap resolve --match full unit_mathlib_add.v2`,
	Args: cobra.MinimumNArgs(1),
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return loadConfigFile()
	},
	RunE: func(_ *cobra.Command, args []string) error {
		policy, err := contract.ProcessMatchPolicy(viper.GetString("match"))
		if err != nil {
			return err
		}
		return outwriter.WriteResolutions(os.Stdout, args, policy)
	},
}
