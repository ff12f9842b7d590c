package mcp

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/huangsam/covmap/core"
	"github.com/huangsam/covmap/core/identity"
	"github.com/huangsam/covmap/internal/contract"
	"github.com/huangsam/covmap/internal/outwriter"
	"github.com/huangsam/covmap/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

// identityResult is the payload of resolve_test_identity.
type identityResult struct {
	DirName    string `json:"dir_name"`
	Matched    bool   `json:"matched"`
	Framework  string `json:"framework,omitempty"`
	Suite      string `json:"suite,omitempty"`
	Case       string `json:"case,omitempty"`
	TestScript string `json:"test_script,omitempty"`
}

// matchPolicy reads the optional match argument, falling back to the base config.
func (h *toolHandler) matchPolicy(request mcp.CallToolRequest) (schema.MatchPolicy, error) {
	m := request.GetString("match", "")
	if m == "" {
		if h.baseCfg.MatchPolicy != "" {
			return h.baseCfg.MatchPolicy, nil
		}
		return schema.PrefixMatch, nil
	}
	return contract.ProcessMatchPolicy(m)
}

func (h *toolHandler) handleMapCoverage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	cfg.InputRoot = request.GetString("input_dir", "")
	if cfg.InputRoot == "" {
		return mcp.NewToolResultError("input_dir is required"), nil
	}

	policy, err := h.matchPolicy(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid match policy: %v", err)), nil
	}
	cfg.MatchPolicy = policy
	cfg.IncludeGzip = request.GetBool("include_gz", cfg.IncludeGzip)
	if cfg.DocumentSuffix == "" {
		cfg.DocumentSuffix = schema.DefaultDocumentSuffix
	}
	if cfg.Workers <= 0 {
		cfg.Workers = contract.DefaultWorkers
	}

	start := time.Now()
	records, report, err := core.MapCoverage(ctx, cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("coverage mapping failed: %v", err)), nil
	}

	var buf bytes.Buffer
	if err := outwriter.WriteJSON(&buf, records); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode records: %v", err)), nil
	}
	core.RecordRun(h.mgr, cfg, start, records, report)
	return mcp.NewToolResultText(buf.String()), nil
}

func (h *toolHandler) handleResolveTestIdentity(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("dir_name", "")
	if name == "" {
		return mcp.NewToolResultError("dir_name is required"), nil
	}

	policy, err := h.matchPolicy(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid match policy: %v", err)), nil
	}

	result := identityResult{DirName: name}
	if id, ok := identity.Resolve(name, policy); ok {
		result.Matched = true
		result.Framework = id.Framework
		result.Suite = id.Suite
		result.Case = id.Case
		result.TestScript = id.Script()
	}

	var buf bytes.Buffer
	if err := outwriter.WriteJSON(&buf, result); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode identity: %v", err)), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}
