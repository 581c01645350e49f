package grouping

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	titleEpisodeSuffix = regexp.MustCompile(`^(.*\S)\s+E(\d+)$`)
	noteSingle         = regexp.MustCompile(`^E(\d+)$`)
	noteRange          = regexp.MustCompile(`^E(\d+)-(\d+)$`)
	noteSeasonEpisode  = regexp.MustCompile(`^S(\d+)-E(\d+)$`)
	noteLooksEpisodic  = regexp.MustCompile(`^[SE]\d`)
)

// EpisodeInfo is the outcome of extracting episode markers from a TV record.
type EpisodeInfo struct {
	Title   string
	Episode string
	Note    string
	// Unparsed is set when the note looked like an episode marker but did not
	// match a known form; the note is kept as-is.
	Unparsed bool
}

// ExtractEpisode pulls episode information from a TV title or note. A title
// ending in " E<n>" wins; otherwise the note may be "E<n>", "E<n>-<m>" (an
// inclusive range, expanded to "n,...,m") or "S<n>-E<m>". A consumed note is
// cleared.
func ExtractEpisode(title, note string) EpisodeInfo {
	info := EpisodeInfo{Title: strings.TrimSpace(title), Note: strings.TrimSpace(note)}
	if m := titleEpisodeSuffix.FindStringSubmatch(info.Title); m != nil {
		info.Title = strings.TrimSpace(m[1])
		info.Episode = trimLeadingZeros(m[2])
		return info
	}

	switch {
	case info.Note == "":
	case noteSingle.MatchString(info.Note):
		info.Episode = trimLeadingZeros(noteSingle.FindStringSubmatch(info.Note)[1])
		info.Note = ""
	case noteRange.MatchString(info.Note):
		m := noteRange.FindStringSubmatch(info.Note)
		start, _ := strconv.Atoi(m[1])
		end, _ := strconv.Atoi(m[2])
		if end < start {
			info.Unparsed = true
			break
		}
		eps := make([]string, 0, end-start+1)
		for ep := start; ep <= end; ep++ {
			eps = append(eps, strconv.Itoa(ep))
		}
		info.Episode = strings.Join(eps, ",")
		info.Note = ""
	case noteSeasonEpisode.MatchString(info.Note):
		info.Episode = trimLeadingZeros(noteSeasonEpisode.FindStringSubmatch(info.Note)[2])
		info.Note = ""
	case noteLooksEpisodic.MatchString(info.Note):
		info.Unparsed = true
	}
	return info
}

// EpisodeNumbers parses an Episode string ("3" or "1,2,3") into numbers.
func EpisodeNumbers(episode string) []int {
	var out []int
	for _, part := range strings.Split(episode, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// FormatEpisodes compresses episode numbers into runs ("1-3, 5, 7-8") and
// reports whether the label should be plural.
func FormatEpisodes(episodes []int) (string, bool) {
	if len(episodes) == 0 {
		return "", false
	}
	eps := slices.Clone(episodes)
	slices.Sort(eps)
	eps = slices.Compact(eps)

	var runs []string
	start, prev := eps[0], eps[0]
	flush := func() {
		if start == prev {
			runs = append(runs, strconv.Itoa(start))
		} else {
			runs = append(runs, strconv.Itoa(start)+"-"+strconv.Itoa(prev))
		}
	}
	for _, ep := range eps[1:] {
		if ep == prev+1 {
			prev = ep
			continue
		}
		flush()
		start, prev = ep, ep
	}
	flush()
	return strings.Join(runs, ", "), len(eps) > 1
}

// EpisodeLabel renders "Episode 4" or "Episodes 1-3, 5".
func EpisodeLabel(episodes []int) string {
	text, plural := FormatEpisodes(episodes)
	if text == "" {
		return ""
	}
	if plural {
		return "Episodes " + text
	}
	return "Episode " + text
}

func trimLeadingZeros(s string) string {
	if n, err := strconv.Atoi(s); err == nil {
		return strconv.Itoa(n)
	}
	return s
}
