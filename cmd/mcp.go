package cmd

import (
	"github.com/huangsam/covmap/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the covmap MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents map coverage and
resolve test identities via standard tools.

Tools:
  map_coverage          - Map a coverage directory to function/test records
  resolve_test_identity - Resolve a test directory name to its script path`,
	Args:    cobra.NoArgs,
	PreRunE: optionsSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager)
	},
}
