// Package oracle defines the rewrite boundary: an external capability that,
// given a batch of cue texts plus applicable rules and hints, returns one
// rewritten text per cue.
//
// Implementations wrap a remote model API (see the openai and ollama
// subpackages) and must be safe for concurrent use; the pipeline may issue
// sibling batch calls in parallel. The mock subpackage is a deterministic
// substitute for tests.
package oracle

import (
	"context"

	"github.com/pkt0401/kanasub/internal/rules"
)

// Direction selects the transformation the oracle performs.
type Direction string

const (
	// DirectionCorrect rewrites ambiguous kanji/numeral spans into kana.
	DirectionCorrect Direction = "correct"

	// DirectionRestore maps kana spans back to their original orthography.
	DirectionRestore Direction = "restore"
)

// Request carries one batch of cue texts with everything the oracle needs to
// rewrite them.
type Request struct {
	// Direction selects correction or restoration.
	Direction Direction

	// Texts are the cue texts, in document order within the batch.
	Texts []string

	// Hints are the context hints, in insertion order.
	Hints []string

	// CustomRules are the free-form rewrite directives, in insertion order.
	CustomRules []string

	// Candidates holds the rule-table lookups per text: Candidates[i] are
	// the substitutions applicable to Texts[i]. Always len(Texts) entries.
	Candidates [][]rules.Candidate

	// Context is a document-level context string (concatenated cue texts).
	Context string
}

// Oracle is the external text-rewrite capability.
type Oracle interface {
	// Rewrite returns exactly one rewritten text per input text, preserving
	// order. Spans the oracle chooses not to touch come back unchanged.
	Rewrite(ctx context.Context, req Request) ([]string, error)
}
