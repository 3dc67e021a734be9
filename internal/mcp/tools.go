package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the kanasub MCP surface.

var correctToolDef = mcp.NewTool("subtitle_correct",
	mcp.WithDescription("Rewrite ambiguous kanji/numeral spans of a Japanese SRT file into unambiguous kana readings. Writes the corrected file and returns the run report."),
	mcp.WithString("input_path", mcp.Required(), mcp.Description("SRT file to correct; bare names resolve against the input folder")),
	mcp.WithString("output_path", mcp.Description("Output file path; defaults into the corrected folder")),
	mcp.WithNumber("batch_size", mcp.Description("Cues per rewrite request (default from config)")),
	mcp.WithBoolean("strict", mcp.Description("Fail the whole file when any batch fails instead of writing partial output")),
)

var restoreToolDef = mcp.NewTool("subtitle_restore",
	mcp.WithDescription("Map kana spans of a corrected SRT file back to their original kanji/numeral/technical-term forms."),
	mcp.WithString("input_path", mcp.Required(), mcp.Description("Corrected SRT file; bare names resolve against the corrected folder")),
	mcp.WithString("output_path", mcp.Description("Output file path; defaults into the restored folder")),
	mcp.WithNumber("batch_size", mcp.Description("Cues per rewrite request (default from config)")),
	mcp.WithBoolean("strict", mcp.Description("Fail the whole file when any batch fails instead of writing partial output")),
)

var addTermToolDef = mcp.NewTool("rules_add_term",
	mcp.WithDescription("Record a term correction: a misrecognized form and its correct form."),
	mcp.WithString("wrong", mcp.Required(), mcp.Description("Misrecognized form")),
	mcp.WithString("correct", mcp.Required(), mcp.Description("Correct form")),
)

var addHintToolDef = mcp.NewTool("rules_add_hint",
	mcp.WithDescription("Record a free-text context hint passed to the rewrite model."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Hint text")),
)

var addCustomRuleToolDef = mcp.NewTool("rules_add_custom_rule",
	mcp.WithDescription("Record a free-text directive constraining how the rewrite model treats certain token classes."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Rule text")),
)

var addReadingToolDef = mcp.NewTool("rules_add_reading",
	mcp.WithDescription("Record a reading example: an original form and its canonical kana reading."),
	mcp.WithString("original", mcp.Required(), mcp.Description("Original orthography")),
	mcp.WithString("reading", mcp.Required(), mcp.Description("Canonical kana reading")),
)

var removeTermToolDef = mcp.NewTool("rules_remove_term",
	mcp.WithDescription("Delete a term correction by its misrecognized form."),
	mcp.WithString("wrong", mcp.Required(), mcp.Description("Misrecognized form to delete")),
)

var removeReadingToolDef = mcp.NewTool("rules_remove_reading",
	mcp.WithDescription("Delete a reading example by its original form."),
	mcp.WithString("original", mcp.Required(), mcp.Description("Original form to delete")),
)

var listRulesToolDef = mcp.NewTool("rules_list",
	mcp.WithDescription("List all rule tables: term corrections, context hints, custom rules, and reading examples."),
)

var importRulesToolDef = mcp.NewTool("rules_import",
	mcp.WithDescription("Import rule entries from a markdown glossary file (headings: Terms, Readings, Hints, Rules; pair items as 'A → B')."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Markdown glossary file path")),
)

var historyRunsToolDef = mcp.NewTool("history_runs",
	mcp.WithDescription("List recent correction/restoration runs with their batch failure manifests."),
	mcp.WithNumber("limit", mcp.Description("Maximum runs to return (default 20, max 100)")),
)
