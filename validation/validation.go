package validation

import (
	"strings"
	"unicode"
)

// MaxPromptLength bounds what is forwarded to the model.
const MaxPromptLength = 4000

// IsValidPrompt rejects input that is empty, oversized or obviously not a
// question (keyboard mashing, symbol soup, one repeated character).
func IsValidPrompt(prompt string) bool {
	trimmed := strings.TrimSpace(prompt)
	if len([]rune(trimmed)) < 2 || len(trimmed) > MaxPromptLength {
		return false
	}

	// Order numbers and ISBNs are legitimate one-token questions.
	if isIdentifier(trimmed) {
		return true
	}

	letters, visible := 0, 0
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			continue
		}
		visible++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if visible == 0 || float64(letters)/float64(visible) < 0.3 {
		return false
	}

	if isRepeatedCharacters(trimmed) || hasLongRun(trimmed, 5) {
		return false
	}
	return !hasKeyboardMashing(strings.ToLower(trimmed))
}

func isIdentifier(s string) bool {
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '-' || r == '#' || unicode.IsLetter(r):
		default:
			return false
		}
	}
	return digits >= 3
}

func isRepeatedCharacters(s string) bool {
	var first rune
	for i, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		if i == 0 {
			first = r
			continue
		}
		if r != first {
			return false
		}
	}
	return true
}

// hasLongRun reports a single non-digit character repeated n or more times.
func hasLongRun(s string, n int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev && !unicode.IsDigit(r) {
			run++
			if run >= n {
				return true
			}
			continue
		}
		prev = r
		run = 1
	}
	return false
}

var mashingRows = []string{"qwertyuiop", "asdfghjkl", "zxcvbnm"}

// hasKeyboardMashing spots 5+ consecutive letters from one keyboard row,
// e.g. "asdfgh".
func hasKeyboardMashing(s string) bool {
	for _, word := range strings.Fields(s) {
		if len(word) < 5 {
			continue
		}
		for _, row := range mashingRows {
			for i := 0; i+5 <= len(word); i++ {
				if strings.Contains(row, word[i:i+5]) {
					return true
				}
			}
		}
	}
	return false
}
