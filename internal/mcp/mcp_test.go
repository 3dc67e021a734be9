package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pkt0401/kanasub/internal/config"
	"github.com/pkt0401/kanasub/internal/history"
	"github.com/pkt0401/kanasub/internal/oracle/mock"
	"github.com/pkt0401/kanasub/internal/ops"
	"github.com/pkt0401/kanasub/internal/rules"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:03,000
7日に3090を使って学習しました
`

// testSetup creates handlers backed by a temp dir, a mock oracle, and a
// history database.
func testSetup(t *testing.T) (*Handlers, ops.Deps) {
	t.Helper()
	dir := t.TempDir()

	store, err := rules.Load(filepath.Join(dir, "correction_rules.json"))
	if err != nil {
		t.Fatalf("failed to load store: %v", err)
	}
	if _, err := store.AddReading("3090", "さんまるきゅうまる"); err != nil {
		t.Fatalf("failed to add reading: %v", err)
	}

	db, err := history.Init(dir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.DefaultConfig()
	cfg.InputDir = filepath.Join(dir, "srt_file")
	cfg.CorrectedDir = filepath.Join(dir, "srt_corrected")
	cfg.RestoredDir = filepath.Join(dir, "srt_restored")

	deps := ops.Deps{
		Store:  store,
		Oracle: &mock.Oracle{},
		DB:     db,
		Cfg:    cfg,
		Model:  "mock-model",
	}
	return NewHandlers(deps), deps
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// resultPayload unmarshals a successful tool result into out.
func resultPayload(t *testing.T, result *mcp.CallToolResult, out any) {
	t.Helper()
	if result.IsError {
		t.Fatalf("unexpected error result: %+v", result.Content)
	}
	text := result.Content[0].(mcp.TextContent).Text
	if err := json.Unmarshal([]byte(text), out); err != nil {
		t.Fatalf("failed to unmarshal result: %v\n%s", err, text)
	}
}

// TestToolRegistry tests that every advertised tool is registered.
func TestToolRegistry(t *testing.T) {
	names := AllToolNames()
	expected := []string{
		"subtitle_correct", "subtitle_restore",
		"rules_add_term", "rules_add_hint", "rules_add_custom_rule", "rules_add_reading",
		"rules_remove_term", "rules_remove_reading",
		"rules_list", "rules_import", "history_runs",
	}
	if len(names) != len(expected) {
		t.Fatalf("expected %d tools, got %d: %v", len(expected), len(names), names)
	}
	set := map[string]bool{}
	for _, n := range names {
		set[n] = true
	}
	for _, want := range expected {
		if !set[want] {
			t.Errorf("missing tool %q", want)
		}
	}
	for name, entry := range toolRegistry {
		if entry.def.Name != name {
			t.Errorf("tool %q registered under def name %q", name, entry.def.Name)
		}
	}
}

// TestHandleCorrect tests a correction run through the MCP surface.
func TestHandleCorrect(t *testing.T) {
	h, deps := testSetup(t)

	if err := os.MkdirAll(deps.Cfg.InputDir, 0755); err != nil {
		t.Fatalf("failed to create input dir: %v", err)
	}
	inputPath := filepath.Join(deps.Cfg.InputDir, "lecture.srt")
	if err := os.WriteFile(inputPath, []byte(sampleSRT), 0644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}

	result, err := h.HandleCorrect(context.Background(), makeRequest(map[string]any{
		"input_path": "lecture.srt",
		"batch_size": float64(2),
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	var output ops.RunOutput
	resultPayload(t, result, &output)
	if output.RunID == "" {
		t.Error("expected run id")
	}
	if output.Changed != 1 {
		t.Errorf("expected 1 changed cue, got %d", output.Changed)
	}

	data, err := os.ReadFile(output.OutputPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if string(data) == sampleSRT {
		t.Error("expected corrected output to differ from input")
	}
}

// TestHandleCorrectMissingInput tests the structured error payload.
func TestHandleCorrectMissingInput(t *testing.T) {
	h, _ := testSetup(t)

	result, err := h.HandleCorrect(context.Background(), makeRequest(map[string]any{
		"input_path": "nope.srt",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}

	var payload map[string]map[string]any
	text := result.Content[0].(mcp.TextContent).Text
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v\n%s", err, text)
	}
	if payload["error"]["code"] != "NOT_FOUND" {
		t.Errorf("unexpected error payload %+v", payload)
	}
}

// TestHandleRuleMutations tests the rule tools end to end.
func TestHandleRuleMutations(t *testing.T) {
	h, _ := testSetup(t)
	ctx := context.Background()

	result, err := h.HandleAddTerm(ctx, makeRequest(map[string]any{
		"wrong": "整体", "correct": "声帯",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	var ruleOut ops.RuleOutput
	resultPayload(t, result, &ruleOut)
	if !ruleOut.Added || ruleOut.Kind != "term" {
		t.Errorf("unexpected output %+v", ruleOut)
	}

	result, err = h.HandleAddReading(ctx, makeRequest(map[string]any{
		"original": "3月", "reading": "さんがつ",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	resultPayload(t, result, &ruleOut)
	if !ruleOut.Added || ruleOut.Kind != "reading" {
		t.Errorf("unexpected output %+v", ruleOut)
	}

	result, err = h.HandleListRules(ctx, makeRequest(nil))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	var listOut ops.ListRulesOutput
	resultPayload(t, result, &listOut)
	if listOut.Counts["terms"] != 1 {
		t.Errorf("unexpected counts %+v", listOut.Counts)
	}

	result, err = h.HandleRemoveTerm(ctx, makeRequest(map[string]any{"wrong": "整体"}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	resultPayload(t, result, &ruleOut)
	if !ruleOut.Removed {
		t.Errorf("unexpected output %+v", ruleOut)
	}
}

// TestHandleAddTermValidation tests that validation errors come back as
// error results, not transport errors.
func TestHandleAddTermValidation(t *testing.T) {
	h, _ := testSetup(t)
	result, err := h.HandleAddTerm(context.Background(), makeRequest(map[string]any{
		"wrong": "", "correct": "声帯",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
}

// TestHandleImportRules tests the glossary import tool.
func TestHandleImportRules(t *testing.T) {
	h, deps := testSetup(t)

	glossary := "## Terms\n\n- 整体 → 声帯\n"
	path := filepath.Join(filepath.Dir(deps.Store.Path()), "glossary.md")
	if err := os.WriteFile(path, []byte(glossary), 0644); err != nil {
		t.Fatalf("failed to write glossary: %v", err)
	}

	result, err := h.HandleImportRules(context.Background(), makeRequest(map[string]any{
		"path": path,
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	var out ops.ImportRulesOutput
	resultPayload(t, result, &out)
	if out.TermsAdded != 1 {
		t.Errorf("unexpected result %+v", out.ImportResult)
	}
}

// TestHandleRuns tests history listing after a run.
func TestHandleRuns(t *testing.T) {
	h, deps := testSetup(t)
	ctx := context.Background()

	if err := os.MkdirAll(deps.Cfg.InputDir, 0755); err != nil {
		t.Fatalf("failed to create input dir: %v", err)
	}
	inputPath := filepath.Join(deps.Cfg.InputDir, "lecture.srt")
	if err := os.WriteFile(inputPath, []byte(sampleSRT), 0644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}
	if result, err := h.HandleCorrect(ctx, makeRequest(map[string]any{"input_path": "lecture.srt"})); err != nil || result.IsError {
		t.Fatalf("correct failed: %v %+v", err, result)
	}

	result, err := h.HandleRuns(ctx, makeRequest(map[string]any{"limit": float64(5)}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	var out ops.RunsOutput
	resultPayload(t, result, &out)
	if len(out.Runs) != 1 {
		t.Errorf("expected 1 run, got %d", len(out.Runs))
	}
}

// TestNewServer tests server construction with all tools registered.
func TestNewServer(t *testing.T) {
	_, deps := testSetup(t)
	s := NewServer(deps, "test")
	if s == nil {
		t.Fatal("expected server")
	}
}
