package language

import (
	"strings"

	"golang.org/x/text/cases"
	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type entry struct {
	code2   string   // ISO 639-1 (2-letter)
	code3   string   // ISO 639-2 primary (3-letter)
	alt3    string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string   // Human-readable name
	words   []string // Full word forms, lowercased
}

// Audio languages seen on BEQ releases. Anything else resolves through x/text.
var languages = []entry{
	{"en", "eng", "", "English", []string{"english", "eng"}},
	{"es", "spa", "", "Spanish", []string{"spanish", "castilian", "español"}},
	{"fr", "fra", "fre", "French", []string{"french", "français"}},
	{"de", "deu", "ger", "German", []string{"german", "deutsch"}},
	{"it", "ita", "", "Italian", []string{"italian"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "Korean", []string{"korean"}},
	{"zh", "zho", "chi", "Chinese", []string{"chinese", "mandarin"}},
	{"ru", "rus", "", "Russian", []string{"russian"}},
	{"hi", "hin", "", "Hindi", []string{"hindi"}},
	{"ta", "tam", "", "Tamil", []string{"tamil"}},
	{"te", "tel", "", "Telugu", []string{"telugu"}},
	{"nl", "nld", "dut", "Dutch", []string{"dutch"}},
	{"sv", "swe", "", "Swedish", []string{"swedish"}},
	{"da", "dan", "", "Danish", []string{"danish"}},
	{"no", "nor", "", "Norwegian", []string{"norwegian"}},
	{"th", "tha", "", "Thai", []string{"thai"}},
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
	titler  = cases.Title(xlanguage.English)
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages)*2)
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	return byWord[code]
}

// ToISO2 converts any recognized language code or word to ISO 639-1 (2-letter).
// Returns empty string for unrecognized input.
func ToISO2(code string) string {
	if e := lookup(code); e != nil {
		return e.code2
	}
	if tag, ok := parseTag(code); ok {
		base, _ := tag.Base()
		if s := base.String(); len(s) == 2 {
			return s
		}
	}
	return ""
}

// DisplayName returns a human-readable language name for a code or word.
// Unrecognized input is returned title-cased so author spellings survive.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return ""
	}
	if e := lookup(trimmed); e != nil {
		return e.display
	}
	if tag, ok := parseTag(trimmed); ok {
		if name := display.English.Languages().Name(tag); name != "" {
			return name
		}
	}
	return titler.String(trimmed)
}

// Normalize rewrites a free-text language field ("eng/spa", "English, french")
// into a deduplicated, comma-separated list of display names in input order.
func Normalize(value string) string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == '/' || r == '&' || r == '+' || r == ';'
	})
	seen := make(map[string]struct{}, len(fields))
	names := make([]string, 0, len(fields))
	for _, field := range fields {
		name := DisplayName(field)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

// parseTag only accepts bare 2- and 3-letter codes; free-text words are
// handled by the table so "french" is never read as a BCP 47 tag.
func parseTag(code string) (xlanguage.Tag, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if len(code) < 2 || len(code) > 3 {
		return xlanguage.Und, false
	}
	tag, err := xlanguage.Parse(code)
	if err != nil || tag == xlanguage.Und {
		return xlanguage.Und, false
	}
	return tag, true
}
