// Pure question/answer matching logic
// No playwright dependency so it stays unit-testable without a browser

package apply

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"go-easyapply-automation/internal/models"
)

// foldText strips diacritics and lowercases for fuzzy comparison
func foldText(str string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, str)
	return strings.ToLower(result)
}

// NormalizeQuestionText cleans a raw form label into a canonical question:
// collapse whitespace, strip a literal "Required" suffix, collapse a label
// whose first half exactly repeats its second half (an upstream rendering
// quirk), and trim trailing required-marker punctuation.
func NormalizeQuestionText(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")

	//strip the literal "Required" suffix screen readers get
	for _, suffix := range []string{" Required", "Required"} {
		if strings.HasSuffix(s, suffix) && len(s) > len(suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}

	s = collapseDuplicateHalves(s)

	//trailing required markers, but keep sentence punctuation
	s = strings.TrimRight(s, " \t*:")

	return s
}

// collapseDuplicateHalves detects labels rendered twice in a row
// ("Question? Question?") and keeps a single copy.
func collapseDuplicateHalves(s string) string {
	n := len(s)
	if n < 2 {
		return s
	}
	half := strings.TrimSpace(s[:n/2])
	rest := strings.TrimSpace(s[n/2:])
	if half != "" && half == rest {
		return half
	}
	//odd-length splits can land one rune off
	if n > 2 {
		half = strings.TrimSpace(s[:n/2+1])
		rest = strings.TrimSpace(s[n/2+1:])
		if half != "" && half == rest {
			return half
		}
	}
	return s
}

// MatchAnswer finds the answer whose stored question contains, or is
// contained by, the field's question text (case and diacritic
// insensitive). Returns nil when nothing matches.
func MatchAnswer(answers []models.Answer, question string) *models.Answer {
	q := foldText(strings.TrimSpace(question))
	if q == "" {
		return nil
	}

	for i := range answers {
		stored := foldText(strings.TrimSpace(answers[i].Question))
		if stored == "" {
			continue
		}
		if strings.Contains(stored, q) || strings.Contains(q, stored) {
			return &answers[i]
		}
	}
	return nil
}

// MatchOption reports whether a configured answer value names the given
// choice option.
func MatchOption(answerText, optionText string) bool {
	return foldText(strings.TrimSpace(answerText)) == foldText(strings.TrimSpace(optionText))
}
