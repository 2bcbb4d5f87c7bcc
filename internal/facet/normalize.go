package facet

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/starford/propindex/internal/models"
)

// fold lower-cases s with Unicode-aware rules. A Caser is stateful, so a
// fresh one is taken per call.
func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

// NormalizeKey trims and case-folds a property key.
func NormalizeKey(key string) string {
	return fold(strings.TrimSpace(key))
}

// NormalizeValuePath case-folds and trims every '/'-separated segment,
// drops empty segments, and rejoins with '/'.
func NormalizeValuePath(value string) string {
	return joinSegments(value, true)
}

// displayValuePath cleans segments like NormalizeValuePath but keeps casing.
func displayValuePath(value string) string {
	return joinSegments(value, false)
}

func joinSegments(value string, foldCase bool) string {
	if value == "" {
		return ""
	}
	parts := strings.Split(value, "/")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if foldCase {
			p = fold(p)
		}
		out = append(out, p)
	}
	return strings.Join(out, "/")
}

// isKeyOnly reports whether a normalized value folds into its key: empty
// values, and boolean literals unless the source explicitly tagged them
// with a non-boolean kind.
func isKeyOnly(normalizedValue string, kind models.ValueKind) bool {
	if normalizedValue == "" {
		return true
	}
	if normalizedValue != "true" && normalizedValue != "false" {
		return false
	}
	return kind == models.KindBoolean || kind == models.KindUnknown
}

// isDescendantPath reports whether candidate equals prefix or lies beneath it.
func isDescendantPath(candidate, prefix string) bool {
	if candidate == prefix {
		return true
	}
	return strings.HasPrefix(candidate, prefix+"/")
}

// ancestorPaths returns every proper prefix of a value path, shortest first:
// "a/b/c" yields "a", "a/b".
func ancestorPaths(valuePath string) []string {
	var out []string
	for i := 0; i < len(valuePath); i++ {
		if valuePath[i] == '/' {
			out = append(out, valuePath[:i])
		}
	}
	return out
}
