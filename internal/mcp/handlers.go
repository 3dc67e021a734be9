package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pkt0401/kanasub/internal/errors"
	"github.com/pkt0401/kanasub/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	deps ops.Deps
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps ops.Deps) *Handlers {
	return &Handlers{deps: deps}
}

// decode round-trips the tool call arguments through JSON into one of the
// request types below, so handlers never type-assert raw argument maps.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("unmarshal args: %w", err)
	}
	return result, nil
}

// Request types for each tool

// RunRequest represents the arguments for subtitle_correct and subtitle_restore.
type RunRequest struct {
	InputPath  string `json:"input_path"`
	OutputPath string `json:"output_path,omitempty"`
	BatchSize  int    `json:"batch_size,omitempty"`
	Strict     bool   `json:"strict,omitempty"`
}

// PairRequest represents the arguments for the pair-valued rule tools.
type PairRequest struct {
	Wrong    string `json:"wrong,omitempty"`
	Correct  string `json:"correct,omitempty"`
	Original string `json:"original,omitempty"`
	Reading  string `json:"reading,omitempty"`
}

// TextRequest represents the arguments for the free-text rule tools.
type TextRequest struct {
	Text string `json:"text"`
}

// PathRequest represents the arguments for rules_import.
type PathRequest struct {
	Path string `json:"path"`
}

// RunsRequest represents the arguments for history_runs.
type RunsRequest struct {
	Limit int `json:"limit,omitempty"`
}

// Handler implementations

// HandleCorrect handles the subtitle_correct tool call.
func (h *Handlers) HandleCorrect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RunRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Correct(ctx, h.deps, ops.RunInput{
		InputPath:  input.InputPath,
		OutputPath: input.OutputPath,
		BatchSize:  input.BatchSize,
		Strict:     input.Strict,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRestore handles the subtitle_restore tool call.
func (h *Handlers) HandleRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RunRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Restore(ctx, h.deps, ops.RunInput{
		InputPath:  input.InputPath,
		OutputPath: input.OutputPath,
		BatchSize:  input.BatchSize,
		Strict:     input.Strict,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleAddTerm handles the rules_add_term tool call.
func (h *Handlers) HandleAddTerm(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PairRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.AddTerm(h.deps, input.Wrong, input.Correct)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAddHint handles the rules_add_hint tool call.
func (h *Handlers) HandleAddHint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TextRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.AddHint(h.deps, input.Text)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAddCustomRule handles the rules_add_custom_rule tool call.
func (h *Handlers) HandleAddCustomRule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TextRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.AddCustomRule(h.deps, input.Text)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAddReading handles the rules_add_reading tool call.
func (h *Handlers) HandleAddReading(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PairRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.AddReading(h.deps, input.Original, input.Reading)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRemoveTerm handles the rules_remove_term tool call.
func (h *Handlers) HandleRemoveTerm(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PairRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.RemoveTerm(h.deps, input.Wrong)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRemoveReading handles the rules_remove_reading tool call.
func (h *Handlers) HandleRemoveReading(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PairRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.RemoveReading(h.deps, input.Original)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleListRules handles the rules_list tool call.
func (h *Handlers) HandleListRules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(ops.ListRules(h.deps))
}

// HandleImportRules handles the rules_import tool call.
func (h *Handlers) HandleImportRules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ImportRules(h.deps, input.Path)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRuns handles the history_runs tool call.
func (h *Handlers) HandleRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RunsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Runs(h.deps, ops.RunsInput{Limit: input.Limit})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if kErr, ok := err.(*errors.Error); ok {
		errorObj := map[string]any{
			"code":    kErr.Code,
			"message": kErr.Message,
			"status":  kErr.Status,
		}
		if kErr.Code != errors.ErrInternal && kErr.Details != nil {
			errorObj["details"] = kErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
