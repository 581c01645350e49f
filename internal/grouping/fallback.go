package grouping

import (
	"fmt"
	"regexp"
	"strings"
)

// FallbackPatternV1 parses "<title> (<year>)[ <audio types>]" from a record's
// file name when the record carries no title. Audio types are separated by '+'.
const FallbackPatternV1 = `^(?P<title>.+?) \((?P<year>\d{4})\)(?: (?P<audio>.+))?$`

var fallbackV1 = regexp.MustCompile(FallbackPatternV1)

// Fallback is the result of parsing a title-less record's file name.
type Fallback struct {
	Title      string
	Year       string
	AudioTypes []string
}

// ParseFallbackTitle extracts title, year and audio types from name using
// FallbackPatternV1.
func ParseFallbackTitle(name string) (Fallback, error) {
	trimmed := strings.TrimSpace(name)
	m := fallbackV1.FindStringSubmatch(trimmed)
	if m == nil {
		return Fallback{}, fmt.Errorf("file name %q does not match \"title (year) audio\"", trimmed)
	}
	out := Fallback{
		Title: strings.TrimSpace(m[fallbackV1.SubexpIndex("title")]),
		Year:  m[fallbackV1.SubexpIndex("year")],
	}
	if out.Title == "" {
		return Fallback{}, fmt.Errorf("file name %q has an empty title", trimmed)
	}
	for _, audio := range strings.Split(m[fallbackV1.SubexpIndex("audio")], "+") {
		if audio = strings.TrimSpace(audio); audio != "" {
			out.AudioTypes = append(out.AudioTypes, audio)
		}
	}
	return out, nil
}
