package story

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
)

// CutTrailingSentence trims generated text back to its last complete
// sentence. Unless allowAction is set, the text is also cut at the
// first action marker (">"), since the model sometimes continues the
// story with an action of its own.
func CutTrailingSentence(text string, allowAction bool) string {
	if !allowAction {
		if i := strings.Index(text, ">"); i >= 0 {
			text = text[:i]
		}
	}

	last := -1
	for _, end := range []string{".", "!", "?", "\""} {
		if i := strings.LastIndex(text, end); i > last {
			last = i
		}
	}
	if last < 0 {
		return ""
	}

	return text[:last+1]
}

// CleanResult applies the output cleanup pass to a raw generated
// passage: trailing-sentence cut, quote punctuation fix, markup
// stripping, and blank-line collapsing.
func CleanResult(text string, allowAction bool) string {
	result := CutTrailingSentence(text, allowAction)
	if len(result) == 0 {
		return ""
	}

	firstUpper := unicode.IsUpper(rune(result[0]))

	result = strings.ReplaceAll(result, ".\"", "\".")
	result = strings.ReplaceAll(result, "#", "")
	result = strings.ReplaceAll(result, "*", "")
	result = strings.ReplaceAll(result, "\n\n", "\n")

	if !firstUpper {
		result = strings.ToLower(result[:1]) + result[1:]
	}

	return result
}

var pronounSwaps = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`\bI'm\b`), "you're"},
	{regexp.MustCompile(`\bIm\b`), "you're"},
	{regexp.MustCompile(`\bI\b`), "you"},
	{regexp.MustCompile(`\bme\b`), "you"},
	{regexp.MustCompile(`\bmy\b`), "your"},
	{regexp.MustCompile(`\bmine\b`), "yours"},
	{regexp.MustCompile(`\bmyself\b`), "yourself"},
}

// FirstToSecondPerson rewrites first-person pronouns into second
// person, so typed actions read as story narration.
func FirstToSecondPerson(text string) string {
	for _, swap := range pronounSwaps {
		text = swap.pattern.ReplaceAllString(text, swap.repl)
	}
	return text
}

// NormalizeAction massages raw player input into the action form the
// story model was trained on: speech becomes `You say "..."`, bare
// verbs get a You prefix, punctuation is completed, and the action is
// framed as a "> " line.
func NormalizeAction(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	if strings.HasPrefix(input, "\"") {
		input = "You say " + input
	} else {
		input = strings.ToLower(input[:1]) + input[1:]

		head := input
		if len(head) > 6 {
			head = head[:6]
		}
		if !strings.Contains(head, "you") && !strings.Contains(head, "I") {
			input = "You " + input
		}

		switch input[len(input)-1] {
		case '.', '?', '!':
		default:
			input += "."
		}

		input = FirstToSecondPerson(input)
	}

	return "\n> " + input + "\n"
}

// Similarity measures how close two passages are, in [0, 1]. Values
// near 1 mean the model has started looping.
func Similarity(a, b string) float64 {
	return levenshtein.Similarity(a, b, levenshtein.NewParams())
}
