package textutil

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	// Vietnamese đ/Đ is a distinct letter rather than d with a combining mark.
	stroke = strings.NewReplacer("đ", "d", "Đ", "D")
)

// Normalize returns value in Unicode NFC with surrounding whitespace removed.
func Normalize(value string) string {
	return strings.TrimSpace(norm.NFC.String(value))
}

// Sanitize strips markup from operator supplied free text and normalises the result.
func Sanitize(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	cleaned := strictPolicy.Sanitize(value)
	// bluemonday escapes entities in text nodes; free text is stored unescaped.
	return Normalize(html.UnescapeString(cleaned))
}

// SanitizeAll applies Sanitize to each entry, dropping entries that become empty.
func SanitizeAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if cleaned := Sanitize(v); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

// Fold produces a case and accent insensitive search key: "Hà Nội" and "ha noi" fold equally.
func Fold(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, stroke.Replace(value))
	if err != nil {
		stripped = value
	}
	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}

// ContainsFold reports whether needle occurs in any haystack after folding. An empty needle
// matches everything.
func ContainsFold(needle string, haystack ...string) bool {
	key := Fold(needle)
	if key == "" {
		return true
	}
	for _, h := range haystack {
		if strings.Contains(Fold(h), key) {
			return true
		}
	}
	return false
}
