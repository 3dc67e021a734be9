package rules

import "testing"

const sampleGlossary = `# 用語集

## Terms

- 整体 → 声帯
- ラグ → RAG
- separator missing here

## Readings

- 3090 -> さんまるきゅうまる
- 7日 → なのか

## Hints

- GPUベンチマークの講義です

## Rules

- 英語の略語はそのまま残す

## Notes

- this section is unknown
`

// TestImportMarkdown tests a full glossary import.
func TestImportMarkdown(t *testing.T) {
	store := newTestStore(t)

	result, err := store.ImportMarkdown([]byte(sampleGlossary))
	if err != nil {
		t.Fatalf("failed to import: %v", err)
	}

	if result.TermsAdded != 2 {
		t.Errorf("expected 2 terms added, got %d", result.TermsAdded)
	}
	// "7日 → なのか" duplicates a default reading, so only 3090 counts.
	if result.ReadingsAdded != 1 {
		t.Errorf("expected 1 reading added, got %d", result.ReadingsAdded)
	}
	if result.HintsAdded != 1 {
		t.Errorf("expected 1 hint added, got %d", result.HintsAdded)
	}
	if result.RulesAdded != 1 {
		t.Errorf("expected 1 rule added, got %d", result.RulesAdded)
	}
	// One malformed pair plus one item in an unknown section.
	if result.Skipped != 2 {
		t.Errorf("expected 2 skipped, got %d", result.Skipped)
	}
	if result.Total() != 5 {
		t.Errorf("expected total 5, got %d", result.Total())
	}

	snap := store.Snapshot()
	if len(snap.TermCorrections) != 2 {
		t.Errorf("expected 2 term corrections, got %+v", snap.TermCorrections)
	}
	candidates := store.ForwardLookup("3090を使いました")
	if len(candidates) != 1 || candidates[0].To != "さんまるきゅうまる" {
		t.Errorf("imported reading not usable: %+v", candidates)
	}
}

// TestImportMarkdownIdempotent tests that re-importing adds nothing.
func TestImportMarkdownIdempotent(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.ImportMarkdown([]byte(sampleGlossary)); err != nil {
		t.Fatalf("failed to import: %v", err)
	}
	result, err := store.ImportMarkdown([]byte(sampleGlossary))
	if err != nil {
		t.Fatalf("failed to re-import: %v", err)
	}
	if result.Total() != 0 {
		t.Errorf("expected idempotent re-import, got %+v", result)
	}
}

// TestImportMarkdownNoSections tests that list items outside any known
// heading are skipped.
func TestImportMarkdownNoSections(t *testing.T) {
	store := newTestStore(t)
	result, err := store.ImportMarkdown([]byte("- 整体 → 声帯\n"))
	if err != nil {
		t.Fatalf("failed to import: %v", err)
	}
	if result.Total() != 0 || result.Skipped != 1 {
		t.Errorf("expected 1 skipped and nothing added, got %+v", result)
	}
}
