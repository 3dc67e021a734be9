// Package rules owns the correction rule tables: term corrections, context
// hints, custom rules, and reading examples. The store is the sole mutator of
// the backing JSON file; pipelines only read from it.
package rules

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkt0401/kanasub/internal/errors"
)

// TermCorrection maps a misrecognized form to its correct form.
// Many wrong forms may map to the same correct form.
type TermCorrection struct {
	Wrong   string `json:"wrong"`
	Correct string `json:"correct"`
}

// ReadingExample teaches how a specific original form is read in kana.
// Used forward (original→reading) during correction and backward
// (reading→original) during restoration.
type ReadingExample struct {
	Original string `json:"original"`
	Reading  string `json:"reading"`
}

// File is the on-disk rule file layout. All four collections keep insertion
// order so prompt construction stays stable across runs.
type File struct {
	TermCorrections []TermCorrection `json:"term_corrections"`
	ContextHints    []string         `json:"context_hints"`
	CustomRules     []string         `json:"custom_rules"`
	ReadingExamples []ReadingExample `json:"reading_examples"`
}

// Defaults returns the built-in rule tables seeded when no rule file exists.
func Defaults() File {
	return File{
		ContextHints: []string{
			"この講義はRAG（Retrieval-Augmented Generation）に関する内容です。",
			"AI、機械学習、自然言語処理関連の用語が頻繁に登場します。",
		},
		CustomRules: []string{
			"数字に複数の読み方がある場合は、実際に発音されるひらがなに変換する",
			"漢字に複数の読み方がある場合は、文脈に合ったひらがなに変換する",
		},
		ReadingExamples: []ReadingExample{
			{Original: "42", Reading: "よんじゅうに"},
			{Original: "7日", Reading: "なのか"},
			{Original: "1人", Reading: "ひとり"},
		},
	}
}

// Store holds the rule tables and persists mutations to the backing file.
// Reads are safe for concurrent use; mutations serialize on the write lock.
type Store struct {
	path string

	mu   sync.RWMutex
	file File
}

// Load reads the rule file at path. A missing file is not an error: the store
// starts from the built-in defaults. A present-but-malformed file is a
// RULE_FILE_ERROR; it never silently falls back to defaults.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Store{path: path, file: Defaults()}, nil
		}
		return nil, errors.NewRuleFile(path, err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.NewRuleFile(path, err)
	}
	return &Store{path: path, file: f}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns a deep copy of the current rule tables.
func (s *Store) Snapshot() File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return File{
		TermCorrections: append([]TermCorrection{}, s.file.TermCorrections...),
		ContextHints:    append([]string{}, s.file.ContextHints...),
		CustomRules:     append([]string{}, s.file.CustomRules...),
		ReadingExamples: append([]ReadingExample{}, s.file.ReadingExamples...),
	}
}

// Hints returns the context hints in insertion order.
func (s *Store) Hints() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.file.ContextHints...)
}

// CustomRules returns the custom rules in insertion order.
func (s *Store) CustomRules() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.file.CustomRules...)
}

// AddTerm records a term correction and persists immediately.
// Re-adding an identical pair is a no-op; a new correct form for an existing
// wrong form replaces it in place. Returns true if the tables changed.
func (s *Store) AddTerm(wrong, correct string) (bool, error) {
	wrong, correct = strings.TrimSpace(wrong), strings.TrimSpace(correct)
	if wrong == "" || correct == "" {
		return false, errors.NewInvalidRequest("term correction requires both wrong and correct forms")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.file.TermCorrections {
		if t.Wrong == wrong {
			if t.Correct == correct {
				return false, nil
			}
			s.file.TermCorrections[i].Correct = correct
			return true, s.saveLocked()
		}
	}
	s.file.TermCorrections = append(s.file.TermCorrections, TermCorrection{Wrong: wrong, Correct: correct})
	return true, s.saveLocked()
}

// AddHint records a context hint and persists immediately. Idempotent.
func (s *Store) AddHint(text string) (bool, error) {
	return s.addString(&s.file.ContextHints, text, "context hint")
}

// AddCustomRule records a custom rule and persists immediately. Idempotent.
func (s *Store) AddCustomRule(text string) (bool, error) {
	return s.addString(&s.file.CustomRules, text, "custom rule")
}

func (s *Store) addString(list *[]string, text, what string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, errors.NewInvalidRequest(what + " must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range *list {
		if existing == text {
			return false, nil
		}
	}
	*list = append(*list, text)
	return true, s.saveLocked()
}

// AddReading records a reading example and persists immediately.
// Each original form has exactly one canonical reading: re-adding the same
// pair is a no-op, a different reading for an existing original replaces it.
func (s *Store) AddReading(original, reading string) (bool, error) {
	original, reading = strings.TrimSpace(original), strings.TrimSpace(reading)
	if original == "" || reading == "" {
		return false, errors.NewInvalidRequest("reading example requires both original form and reading")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.file.ReadingExamples {
		if r.Original == original {
			if r.Reading == reading {
				return false, nil
			}
			s.file.ReadingExamples[i].Reading = reading
			return true, s.saveLocked()
		}
	}
	s.file.ReadingExamples = append(s.file.ReadingExamples, ReadingExample{Original: original, Reading: reading})
	return true, s.saveLocked()
}

// RemoveTerm deletes a term correction by its wrong form.
func (s *Store) RemoveTerm(wrong string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.file.TermCorrections {
		if t.Wrong == wrong {
			s.file.TermCorrections = append(s.file.TermCorrections[:i], s.file.TermCorrections[i+1:]...)
			return true, s.saveLocked()
		}
	}
	return false, nil
}

// RemoveReading deletes a reading example by its original form.
func (s *Store) RemoveReading(original string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.file.ReadingExamples {
		if r.Original == original {
			s.file.ReadingExamples = append(s.file.ReadingExamples[:i], s.file.ReadingExamples[i+1:]...)
			return true, s.saveLocked()
		}
	}
	return false, nil
}

// RemoveHint deletes a context hint by exact text.
func (s *Store) RemoveHint(text string) (bool, error) {
	return s.removeString(&s.file.ContextHints, text)
}

// RemoveCustomRule deletes a custom rule by exact text.
func (s *Store) RemoveCustomRule(text string) (bool, error) {
	return s.removeString(&s.file.CustomRules, text)
}

func (s *Store) removeString(list *[]string, text string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range *list {
		if existing == text {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true, s.saveLocked()
		}
	}
	return false, nil
}

// Save persists the current tables to the backing file.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// saveLocked writes to a temp file then renames into place, so a crash
// mid-write never leaves a truncated rule file. Caller holds the write lock.
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.file, "", "  ")
	if err != nil {
		return errors.NewInternal(err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("create rules directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(err)
	}
	tempPath := s.path + "." + hex.EncodeToString(randBytes) + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return errors.NewInternal(fmt.Errorf("write rules temp file: %w", err))
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return errors.NewInternal(fmt.Errorf("rename rules file: %w", err))
	}
	return nil
}
