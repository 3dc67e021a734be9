package oracle

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// correctSystemTemplate instructs the model to rewrite only ambiguous
// kanji/numeral spans into kana. Slots: document context, hints, rules.
const correctSystemTemplate = `あなたは日本語字幕の校正専門家です。

## 作業目標
日本語テキストをそのまま維持しつつ、**複数の読み方（発音）が可能な数字や漢字**のみを
実際の音声で発音される**ひらがなまたはカタカナ**に変換します。

## 全体の文脈
%s

## 文脈ヒント
%s

## 変換ルール
%s

## 詳細指示
1. **日本語はそのまま維持**: 翻訳しないでください。日本語テキストをそのまま出力します。
2. **複数の読み方がある場合のみ変換**: 数字・日付・人数・多音の漢字を文脈に合った読み方で。
3. **読み方が明確なものはそのまま維持**: 無理にひらがなに変換する必要なし。
4. **変換候補がある場合はそれに従う**: 各テキストに付く候補は規則表からの参考です。
5. **技術用語は正確に**: AI/ML関連の専門用語は正しい表記に修正。

## 応答形式
JSON形式: {"1": "校正されたテキスト1", "2": "校正されたテキスト2", ...}`

// restoreSystemTemplate is the inverse: kana spans back to kanji/numerals.
const restoreSystemTemplate = `あなたは日本語字幕の復元専門家です。

## 作業目標
ひらがなやカタカナで表記されている部分を、**適切な漢字や数字**に戻します。

## 全体の文脈
%s

## 文脈ヒント
%s

## 詳細指示
1. **ひらがな→漢字**: 文脈に合った適切な漢字に変換。
2. **ひらがな→数字**: 数字で表記すべき部分は数字に戻す。
3. **カタカナ→英数字**: 技術用語は元の表記に戻す。
4. **候補が複数ある場合**: 文脈から最も適切な元表記を選ぶ。
5. **そのまま維持**: すでに適切な表記は変更しない。翻訳はしない。

## 応答形式
JSON形式: {"1": "復元されたテキスト1", "2": "復元されたテキスト2", ...}`

// BuildSystemPrompt renders the system prompt for a request.
func BuildSystemPrompt(req Request) string {
	hints := strings.Join(req.Hints, "\n")
	switch req.Direction {
	case DirectionRestore:
		return fmt.Sprintf(restoreSystemTemplate, req.Context, hints)
	default:
		rules := strings.Join(req.CustomRules, "\n")
		return fmt.Sprintf(correctSystemTemplate, req.Context, hints, rules)
	}
}

// BuildUserPrompt renders the batch payload: a JSON object of texts keyed by
// 1-based position, followed by the per-text candidate substitutions.
func BuildUserPrompt(req Request) (string, error) {
	payload := make(map[string]string, len(req.Texts))
	for i, t := range req.Texts {
		payload[strconv.Itoa(i+1)] = t
	}
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal batch payload: %w", err)
	}

	var b strings.Builder
	if req.Direction == DirectionRestore {
		b.WriteString("以下の日本語字幕を元の表記に復元してください。\nひらがな/カタカナを適切な漢字/数字/英字に戻してください。\n\n")
	} else {
		b.WriteString("以下の日本語字幕を校正してください。\n複数の発音が可能な数字/漢字のみひらがな/カタカナに変換し、その他はそのまま維持してください。\n\n")
	}
	b.Write(body)

	if candidates := formatCandidates(req); candidates != "" {
		b.WriteString("\n\n変換候補:\n")
		b.WriteString(candidates)
	}

	b.WriteString("\n\nJSON形式で結果のテキストのみ応答してください。")
	return b.String(), nil
}

func formatCandidates(req Request) string {
	var b strings.Builder
	for i, cands := range req.Candidates {
		if len(cands) == 0 {
			continue
		}
		pairs := make([]string, 0, len(cands))
		for _, c := range cands {
			pairs = append(pairs, fmt.Sprintf("%s → %s", c.From, c.To))
		}
		fmt.Fprintf(&b, "%d: %s\n", i+1, strings.Join(pairs, "; "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// ParseBatchResponse unmarshals the model's JSON object response into one
// text per input, in order. Keys are 1-based positions within the batch; a
// missing key leaves that position's original text unchanged. Markdown code
// fences around the JSON are tolerated.
func ParseBatchResponse(content string, originals []string) ([]string, error) {
	cleaned := stripMarkdown(content)

	var m map[string]string
	if err := json.Unmarshal([]byte(cleaned), &m); err != nil {
		return nil, fmt.Errorf("parse batch response: %w", err)
	}

	out := make([]string, len(originals))
	for i, orig := range originals {
		if rewritten, ok := m[strconv.Itoa(i+1)]; ok {
			out[i] = rewritten
		} else {
			out[i] = orig
		}
	}
	return out, nil
}

// stripMarkdown removes optional markdown code fences (```json ... ```) that
// some models prepend and append to JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
