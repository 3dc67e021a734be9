package oracle

import (
	"strings"
	"testing"

	"github.com/pkt0401/kanasub/internal/rules"
)

// TestBuildSystemPrompt tests template selection and slot filling.
func TestBuildSystemPrompt(t *testing.T) {
	req := Request{
		Direction:   DirectionCorrect,
		Context:     "GPUの講義",
		Hints:       []string{"ヒント1", "ヒント2"},
		CustomRules: []string{"ルール1"},
	}
	prompt := BuildSystemPrompt(req)
	if !strings.Contains(prompt, "校正専門家") {
		t.Error("expected correction template")
	}
	for _, want := range []string{"GPUの講義", "ヒント1\nヒント2", "ルール1"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected prompt to contain %q", want)
		}
	}

	req.Direction = DirectionRestore
	prompt = BuildSystemPrompt(req)
	if !strings.Contains(prompt, "復元専門家") {
		t.Error("expected restoration template")
	}
	if strings.Contains(prompt, "ルール1") {
		t.Error("restoration template has no rules slot")
	}
}

// TestBuildUserPrompt tests the batch payload layout.
func TestBuildUserPrompt(t *testing.T) {
	req := Request{
		Direction: DirectionCorrect,
		Texts:     []string{"7日に学習", "42を計算"},
		Candidates: [][]rules.Candidate{
			{{Kind: rules.KindReading, From: "7日", To: "なのか"}},
			nil,
		},
	}
	prompt, err := BuildUserPrompt(req)
	if err != nil {
		t.Fatalf("failed to build prompt: %v", err)
	}
	for _, want := range []string{`"1": "7日に学習"`, `"2": "42を計算"`, "変換候補:", "1: 7日 → なのか"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected prompt to contain %q, got:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "2: ") {
		t.Error("expected no candidate line for text 2")
	}
}

// TestBuildUserPromptNoCandidates tests that the candidates section is
// omitted entirely when no text has candidates.
func TestBuildUserPromptNoCandidates(t *testing.T) {
	req := Request{
		Direction:  DirectionRestore,
		Texts:      []string{"なのかに学習"},
		Candidates: [][]rules.Candidate{nil},
	}
	prompt, err := BuildUserPrompt(req)
	if err != nil {
		t.Fatalf("failed to build prompt: %v", err)
	}
	if strings.Contains(prompt, "変換候補") {
		t.Error("expected no candidates section")
	}
	if !strings.Contains(prompt, "復元") {
		t.Error("expected restoration instructions")
	}
}

// TestParseBatchResponse tests response decoding.
func TestParseBatchResponse(t *testing.T) {
	originals := []string{"7日に学習", "42を計算", "そのまま"}

	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{
			name:     "all keys",
			content:  `{"1": "なのかに学習", "2": "よんじゅうにを計算", "3": "そのまま"}`,
			expected: []string{"なのかに学習", "よんじゅうにを計算", "そのまま"},
		},
		{
			name:     "missing key keeps original",
			content:  `{"1": "なのかに学習"}`,
			expected: []string{"なのかに学習", "42を計算", "そのまま"},
		},
		{
			name:     "json code fence",
			content:  "```json\n{\"2\": \"よんじゅうにを計算\"}\n```",
			expected: []string{"7日に学習", "よんじゅうにを計算", "そのまま"},
		},
		{
			name:     "bare code fence",
			content:  "```\n{\"1\": \"なのかに学習\"}\n```",
			expected: []string{"なのかに学習", "42を計算", "そのまま"},
		},
		{
			name:     "extra keys ignored",
			content:  `{"1": "なのかに学習", "2": "よんじゅうにを計算", "3": "そのまま", "4": "余分"}`,
			expected: []string{"なのかに学習", "よんじゅうにを計算", "そのまま"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBatchResponse(tt.content, originals)
			if err != nil {
				t.Fatalf("failed to parse: %v", err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d texts, got %d", len(tt.expected), len(got))
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("text %d: got %q, want %q", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

// TestParseBatchResponseInvalid tests non-JSON content.
func TestParseBatchResponseInvalid(t *testing.T) {
	if _, err := ParseBatchResponse("すみません、できません。", []string{"a"}); err == nil {
		t.Fatal("expected error for non-JSON response")
	}
}
