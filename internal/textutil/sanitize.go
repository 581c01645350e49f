package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"#", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// Fold returns the Unicode case-folded form of value, used as a
// case-insensitive comparison key.
func Fold(value string) string {
	return cases.Fold().String(norm.NFC.String(value))
}

// Slug converts a string to the lowercase, hyphen-separated anchor form
// Markdown renderers generate for headings. Accented letters keep their
// base letter; everything that is not a letter or digit collapses into a
// single hyphen. Returns "untitled" for input without letters or digits.
func Slug(value string) string {
	decomposed := norm.NFD.String(strings.TrimSpace(value))
	var b strings.Builder
	pendingHyphen := false
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(unicode.ToLower(r))
		default:
			pendingHyphen = true
		}
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}
