package classify

import "strings"

// Normalizer maps trimmed completion text to a label.
type Normalizer func(text string) Label

// YesNo checks for "yes" first, then "no", case-insensitively and as plain
// substrings. Anything else, including an empty response, is Uncertain.
func YesNo(text string) Label {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "yes"):
		return LabelYes
	case strings.Contains(lower, "no"):
		return LabelNo
	default:
		return LabelUncertain
	}
}

// Verbatim returns the model text unchanged.
func Verbatim(text string) Label {
	return Label(text)
}
