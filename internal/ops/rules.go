package ops

import (
	"fmt"
	"os"

	"github.com/pkt0401/kanasub/internal/errors"
	"github.com/pkt0401/kanasub/internal/rules"
)

// RuleOutput is the result of a single rule mutation.
type RuleOutput struct {
	Added   bool   `json:"added,omitempty"`
	Removed bool   `json:"removed,omitempty"`
	Kind    string `json:"kind"`
	Entry   string `json:"entry"`
}

// AddTerm records a term correction pair.
func AddTerm(deps Deps, wrong, correct string) (*RuleOutput, error) {
	added, err := deps.Store.AddTerm(wrong, correct)
	if err != nil {
		return nil, err
	}
	return &RuleOutput{Added: added, Kind: "term", Entry: fmt.Sprintf("%s → %s", wrong, correct)}, nil
}

// AddHint records a context hint.
func AddHint(deps Deps, text string) (*RuleOutput, error) {
	added, err := deps.Store.AddHint(text)
	if err != nil {
		return nil, err
	}
	return &RuleOutput{Added: added, Kind: "hint", Entry: text}, nil
}

// AddCustomRule records a free-form rewrite directive.
func AddCustomRule(deps Deps, text string) (*RuleOutput, error) {
	added, err := deps.Store.AddCustomRule(text)
	if err != nil {
		return nil, err
	}
	return &RuleOutput{Added: added, Kind: "rule", Entry: text}, nil
}

// AddReading records a reading example pair.
func AddReading(deps Deps, original, reading string) (*RuleOutput, error) {
	added, err := deps.Store.AddReading(original, reading)
	if err != nil {
		return nil, err
	}
	return &RuleOutput{Added: added, Kind: "reading", Entry: fmt.Sprintf("%s → %s", original, reading)}, nil
}

// RemoveTerm deletes a term correction by its wrong form.
func RemoveTerm(deps Deps, wrong string) (*RuleOutput, error) {
	removed, err := deps.Store.RemoveTerm(wrong)
	if err != nil {
		return nil, err
	}
	return &RuleOutput{Removed: removed, Kind: "term", Entry: wrong}, nil
}

// RemoveReading deletes a reading example by its original form.
func RemoveReading(deps Deps, original string) (*RuleOutput, error) {
	removed, err := deps.Store.RemoveReading(original)
	if err != nil {
		return nil, err
	}
	return &RuleOutput{Removed: removed, Kind: "reading", Entry: original}, nil
}

// RemoveHint deletes a context hint by exact text.
func RemoveHint(deps Deps, text string) (*RuleOutput, error) {
	removed, err := deps.Store.RemoveHint(text)
	if err != nil {
		return nil, err
	}
	return &RuleOutput{Removed: removed, Kind: "hint", Entry: text}, nil
}

// RemoveCustomRule deletes a custom rule by exact text.
func RemoveCustomRule(deps Deps, text string) (*RuleOutput, error) {
	removed, err := deps.Store.RemoveCustomRule(text)
	if err != nil {
		return nil, err
	}
	return &RuleOutput{Removed: removed, Kind: "rule", Entry: text}, nil
}

// ListRulesOutput contains the full rule tables plus per-table counts.
type ListRulesOutput struct {
	Path            string                 `json:"path"`
	TermCorrections []rules.TermCorrection `json:"term_corrections"`
	ContextHints    []string               `json:"context_hints"`
	CustomRules     []string               `json:"custom_rules"`
	ReadingExamples []rules.ReadingExample `json:"reading_examples"`
	Counts          map[string]int         `json:"counts"`
}

// ListRules returns the current rule tables in insertion order.
func ListRules(deps Deps) *ListRulesOutput {
	snapshot := deps.Store.Snapshot()
	return &ListRulesOutput{
		Path:            deps.Store.Path(),
		TermCorrections: snapshot.TermCorrections,
		ContextHints:    snapshot.ContextHints,
		CustomRules:     snapshot.CustomRules,
		ReadingExamples: snapshot.ReadingExamples,
		Counts: map[string]int{
			"terms":    len(snapshot.TermCorrections),
			"hints":    len(snapshot.ContextHints),
			"rules":    len(snapshot.CustomRules),
			"readings": len(snapshot.ReadingExamples),
		},
	}
}

// ImportRulesOutput contains the result of a markdown glossary import.
type ImportRulesOutput struct {
	Path string             `json:"path"`
	*rules.ImportResult
}

// ImportRules merges rule entries from a markdown glossary file.
func ImportRules(deps Deps, path string) (*ImportRulesOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(path)
		}
		return nil, errors.NewInternal(err)
	}

	result, err := deps.Store.ImportMarkdown(data)
	if err != nil {
		return nil, err
	}
	return &ImportRulesOutput{Path: path, ImportResult: result}, nil
}
