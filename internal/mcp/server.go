package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pkt0401/kanasub/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"subtitle_correct": {
		def:     correctToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCorrect },
	},
	"subtitle_restore": {
		def:     restoreToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRestore },
	},
	"rules_add_term": {
		def:     addTermToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAddTerm },
	},
	"rules_add_hint": {
		def:     addHintToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAddHint },
	},
	"rules_add_custom_rule": {
		def:     addCustomRuleToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAddCustomRule },
	},
	"rules_add_reading": {
		def:     addReadingToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAddReading },
	},
	"rules_remove_term": {
		def:     removeTermToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRemoveTerm },
	},
	"rules_remove_reading": {
		def:     removeReadingToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRemoveReading },
	},
	"rules_list": {
		def:     listRulesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListRules },
	},
	"rules_import": {
		def:     importRulesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImportRules },
	},
	"history_runs": {
		def:     historyRunsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRuns },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// NewServer creates a new MCP server with kanasub tools registered.
func NewServer(deps ops.Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"kanasub",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(deps)
	for _, entry := range toolRegistry {
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(deps ops.Deps, version string) error {
	s := NewServer(deps, version)
	return server.ServeStdio(s)
}
