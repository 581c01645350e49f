package filterdecode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"beqcat/internal/record"
)

// RawFilter is one filter element as found in a source file.
type RawFilter struct {
	Name   string
	Type   string
	Freq   string
	Q      string
	Gain   string
	Bypass bool
}

// Decoder turns raw filter elements into the record's filter payload.
type Decoder interface {
	Decode(filters []RawFilter) (record.Filters, error)
}

// Biquad decodes minidsp-style biquad filter lists. Filters are usually
// repeated once per output channel; only the lowest numbered channel is kept
// so the display describes one channel's curve.
type Biquad struct{}

var channelPattern = regexp.MustCompile(`_ch(\d+)_`)

var typeAliases = map[string]string{
	"LS":        "LS",
	"SC":        "LS",
	"LSC":       "LS",
	"LOWSHELF":  "LS",
	"HS":        "HS",
	"SH":        "HS",
	"HSC":       "HS",
	"HIGHSHELF": "HS",
	"PK":        "PK",
	"PEQ":       "PK",
	"PEAK":      "PK",
	"LP":        "LP",
	"HP":        "HP",
}

// Decode implements Decoder.
func (Biquad) Decode(filters []RawFilter) (record.Filters, error) {
	active := make([]RawFilter, 0, len(filters))
	for _, f := range filters {
		if !f.Bypass {
			active = append(active, f)
		}
	}
	active = firstChannel(active)
	if len(active) == 0 {
		return record.Filters{}, nil
	}

	parts := make([]string, 0, len(active))
	structured := make([]map[string]string, 0, len(active))
	for i, f := range active {
		kind := normalizeType(f.Type)
		if kind == "" {
			return record.Filters{}, fmt.Errorf("filter %d (%s): missing type", i+1, f.Name)
		}
		freq, err := parseNumber(f.Freq)
		if err != nil {
			return record.Filters{}, fmt.Errorf("filter %d (%s): freq: %w", i+1, f.Name, err)
		}
		q, err := parseNumber(f.Q)
		if err != nil {
			return record.Filters{}, fmt.Errorf("filter %d (%s): q: %w", i+1, f.Name, err)
		}
		gain, err := parseNumber(f.Gain)
		if err != nil {
			return record.Filters{}, fmt.Errorf("filter %d (%s): gain: %w", i+1, f.Name, err)
		}
		freqText := formatNumber(freq)
		qText := formatNumber(q)
		gainText := strconv.FormatFloat(gain, 'f', 1, 64)
		if gain >= 0 {
			gainText = "+" + gainText
		}
		parts = append(parts, fmt.Sprintf("%s %sHz Q%s %sdB", kind, freqText, qText, gainText))
		structured = append(structured, map[string]string{
			"type": kind,
			"freq": freqText,
			"q":    qText,
			"gain": formatNumber(gain),
		})
	}
	return record.Filters{Display: strings.Join(parts, ", "), Structured: structured}, nil
}

func firstChannel(filters []RawFilter) []RawFilter {
	lowest := -1
	for _, f := range filters {
		if m := channelPattern.FindStringSubmatch(f.Name); m != nil {
			if ch, err := strconv.Atoi(m[1]); err == nil && (lowest < 0 || ch < lowest) {
				lowest = ch
			}
		}
	}
	if lowest < 0 {
		return filters
	}
	out := filters[:0:0]
	for _, f := range filters {
		m := channelPattern.FindStringSubmatch(f.Name)
		if m == nil {
			out = append(out, f)
			continue
		}
		if ch, _ := strconv.Atoi(m[1]); ch == lowest {
			out = append(out, f)
		}
	}
	return out
}

func normalizeType(value string) string {
	key := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(value), " ", ""))
	if key == "" {
		return ""
	}
	if alias, ok := typeAliases[key]; ok {
		return alias
	}
	return key
}

func parseNumber(value string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", value)
	}
	return v, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
