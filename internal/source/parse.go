package source

import "strings"

// ParseEntry splits a raw entry into its target text and hint using the
// "text (hint)" convention. The hint is the last balanced parenthetical
// suffix; entries without one get the HintNone sentinel. Parentheses that
// are part of the text itself ("ir(se)" mid-sentence) are left alone.
func ParseEntry(raw string) (text, hint string) {
	raw = strings.TrimSpace(raw)
	if !strings.HasSuffix(raw, ")") {
		return raw, HintNone
	}

	// Scan backwards for the matching open paren of the trailing ")".
	depth := 0
	open := -1
	for i := len(raw) - 1; i >= 0; i-- {
		switch raw[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				open = i
			}
		}
		if open >= 0 {
			break
		}
	}
	if open < 0 {
		// Unbalanced, treat the whole line as text.
		return raw, HintNone
	}

	text = strings.TrimSpace(raw[:open])
	hint = strings.TrimSpace(raw[open+1 : len(raw)-1])
	if text == "" {
		// A bare "(hint)" line has nothing to learn from.
		return raw, HintNone
	}
	if hint == "" {
		hint = HintNone
	}
	return text, hint
}
