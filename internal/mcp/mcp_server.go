// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/covmap/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the covmap MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"covmap Coverage Mapping Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: map_coverage ---
	s.AddTool(mcp.NewTool("map_coverage",
		mcp.WithDescription("Map every function covered by a test to the test script that exercised it, from a directory of per-test gcov JSON reports."),
		mcp.WithString("input_dir", mcp.Description("Root directory holding one subdirectory per test."), mcp.Required()),
		mcp.WithString("match", mcp.Description("How test directory names are matched. Defaults to 'prefix'."), mcp.Enum("prefix", "full")),
		mcp.WithBoolean("include_gz", mcp.Description("Also read gzip-compressed .gcov.json.gz documents.")),
	), h.handleMapCoverage)

	// --- 2. Tool: resolve_test_identity ---
	s.AddTool(mcp.NewTool("resolve_test_identity",
		mcp.WithDescription("Derive the framework, suite, case and test script path from a test directory name."),
		mcp.WithString("dir_name", mcp.Description("Test directory name, e.g. unit_mathlib_add."), mcp.Required()),
		mcp.WithString("match", mcp.Description("How the name is matched. Defaults to 'prefix'."), mcp.Enum("prefix", "full")),
	), h.handleResolveTestIdentity)

	return s
}

// StartMCPServer starts the covmap MCP server over stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
