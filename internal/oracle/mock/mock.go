// Package mock provides a test double for the oracle.Oracle interface.
//
// The zero value applies every candidate substitution mechanically, which
// makes correction/restoration round-trip tests deterministic without a live
// model. Set RewriteFunc or Err to override behavior per test.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/pkt0401/kanasub/internal/oracle"
)

// Oracle is a mock implementation of oracle.Oracle.
type Oracle struct {
	mu sync.Mutex

	// RewriteFunc, if non-nil, handles every Rewrite call.
	RewriteFunc func(ctx context.Context, req oracle.Request) ([]string, error)

	// Err, if non-nil, is returned from every Rewrite call.
	Err error

	// Calls records every request in order. Read after the test.
	Calls []oracle.Request
}

// Rewrite implements oracle.Oracle. Without RewriteFunc or Err it returns
// Substitute(req): each text with its candidates applied left to right.
func (o *Oracle) Rewrite(ctx context.Context, req oracle.Request) ([]string, error) {
	o.mu.Lock()
	o.Calls = append(o.Calls, req)
	o.mu.Unlock()

	if o.Err != nil {
		return nil, o.Err
	}
	if o.RewriteFunc != nil {
		return o.RewriteFunc(ctx, req)
	}
	return Substitute(req), nil
}

// CallCount returns the number of Rewrite invocations so far.
func (o *Oracle) CallCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.Calls)
}

// Substitute applies each text's candidate substitutions verbatim, in
// candidate order. This mirrors an oracle that always follows the rule table.
func Substitute(req oracle.Request) []string {
	out := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		for _, c := range req.Candidates[i] {
			text = strings.ReplaceAll(text, c.From, c.To)
		}
		out[i] = text
	}
	return out
}
