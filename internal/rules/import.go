package rules

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ImportResult reports what a markdown glossary import changed.
type ImportResult struct {
	TermsAdded    int `json:"terms_added"`
	ReadingsAdded int `json:"readings_added"`
	HintsAdded    int `json:"hints_added"`
	RulesAdded    int `json:"rules_added"`
	Skipped       int `json:"skipped"`
}

// Total returns the number of entries added across all tables.
func (r ImportResult) Total() int {
	return r.TermsAdded + r.ReadingsAdded + r.HintsAdded + r.RulesAdded
}

// glossary sections, matched against heading text (case-insensitive).
var sectionAliases = map[string]string{
	"terms":            "terms",
	"term corrections": "terms",
	"readings":         "readings",
	"reading examples": "readings",
	"hints":            "hints",
	"context hints":    "hints",
	"rules":            "rules",
	"custom rules":     "rules",
}

// ImportMarkdown merges rule entries from a markdown glossary document into
// the store. Headings select the target table; list items under "Terms" and
// "Readings" must be "A → B" pairs (also accepts "->"), items under "Hints"
// and "Rules" are taken verbatim. Items outside a known section, and pair
// items without a separator, are counted as skipped. Adds are idempotent like
// the individual add operations.
func (s *Store) ImportMarkdown(source []byte) (*ImportResult, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	result := &ImportResult{}
	section := ""

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			heading := strings.ToLower(strings.TrimSpace(nodeText(node, source)))
			section = sectionAliases[heading]
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			item := strings.TrimSpace(nodeText(node, source))
			if item == "" {
				return ast.WalkSkipChildren, nil
			}
			if err := s.importItem(section, item, result); err != nil {
				return ast.WalkStop, err
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Store) importItem(section, item string, result *ImportResult) error {
	switch section {
	case "terms":
		from, to, ok := splitPair(item)
		if !ok {
			result.Skipped++
			return nil
		}
		added, err := s.AddTerm(from, to)
		if err != nil {
			return err
		}
		if added {
			result.TermsAdded++
		}
	case "readings":
		from, to, ok := splitPair(item)
		if !ok {
			result.Skipped++
			return nil
		}
		added, err := s.AddReading(from, to)
		if err != nil {
			return err
		}
		if added {
			result.ReadingsAdded++
		}
	case "hints":
		added, err := s.AddHint(item)
		if err != nil {
			return err
		}
		if added {
			result.HintsAdded++
		}
	case "rules":
		added, err := s.AddCustomRule(item)
		if err != nil {
			return err
		}
		if added {
			result.RulesAdded++
		}
	default:
		result.Skipped++
	}
	return nil
}

// splitPair splits "A → B" (or "A -> B") into its two sides.
func splitPair(item string) (string, string, bool) {
	for _, sep := range []string{"→", "->"} {
		if from, to, ok := strings.Cut(item, sep); ok {
			from, to = strings.TrimSpace(from), strings.TrimSpace(to)
			if from != "" && to != "" {
				return from, to, true
			}
			return "", "", false
		}
	}
	return "", "", false
}

// nodeText collects the raw text of all text descendants of n.
func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := child.(*ast.Text); ok {
			b.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
