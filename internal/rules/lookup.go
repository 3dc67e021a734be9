package rules

import "strings"

// CandidateKind distinguishes which table a lookup candidate came from.
type CandidateKind string

const (
	KindTerm    CandidateKind = "term"
	KindReading CandidateKind = "reading"
)

// Candidate is a substitution surfaced to the rewrite oracle. From is the
// span found in the text, To the suggested replacement. The final decision is
// the oracle's, since context determines the correct reading.
type Candidate struct {
	Kind CandidateKind `json:"kind"`
	From string        `json:"from"`
	To   string        `json:"to"`
}

// ForwardLookup returns the term corrections and reading examples whose
// original form occurs as a substring of text, in table order.
func (s *Store) ForwardLookup(text string) []Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Candidate
	for _, t := range s.file.TermCorrections {
		if strings.Contains(text, t.Wrong) {
			out = append(out, Candidate{Kind: KindTerm, From: t.Wrong, To: t.Correct})
		}
	}
	for _, r := range s.file.ReadingExamples {
		if strings.Contains(text, r.Original) {
			out = append(out, Candidate{Kind: KindReading, From: r.Original, To: r.Reading})
		}
	}
	return out
}

// ReverseLookup returns the reading examples whose reading occurs as a
// substring of text, keyed by the reading form. When several original forms
// share a reading, all are returned; disambiguation is left to the oracle.
func (s *Store) ReverseLookup(text string) []Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Candidate
	for _, r := range s.file.ReadingExamples {
		if strings.Contains(text, r.Reading) {
			out = append(out, Candidate{Kind: KindReading, From: r.Reading, To: r.Original})
		}
	}
	return out
}

// ApplyTermCorrections replaces every known wrong form in text with its
// correct form, in table order. Runs after the oracle pass during correction.
func (s *Store) ApplyTermCorrections(text string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.file.TermCorrections {
		text = strings.ReplaceAll(text, t.Wrong, t.Correct)
	}
	return text
}
