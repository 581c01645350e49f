package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// MkdirAll creates dir or fails the test.
func MkdirAll(t testing.TB, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	MkdirAll(t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Touch sets the modification time of path.
func Touch(t testing.TB, path string, mtime time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

// BEQ describes the metadata of a fixture BEQ file.
type BEQ struct {
	Title      string
	NoTitle    bool
	Year       string
	Gain       string
	TMDB       string
	AudioTypes []string
	Season     string
	Note       string
	// Filters are (type, freq, q, gain) tuples rendered on channel 1.
	Filters [][4]string
}

// XML renders the fixture as a minidsp settings export.
func (b BEQ) XML() string {
	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\"?>\n<setting>\n  <beq_metadata>\n")
	if !b.NoTitle {
		fmt.Fprintf(&sb, "    <beq_title>%s</beq_title>\n", b.Title)
	}
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "    <%s>%s</%s>\n", name, value, name)
		}
	}
	field("beq_year", b.Year)
	field("beq_gain", b.Gain)
	field("beq_theMovieDB", b.TMDB)
	field("beq_note", b.Note)
	if b.Season != "" {
		sb.WriteString("    " + b.Season + "\n")
	}
	if len(b.AudioTypes) > 0 {
		sb.WriteString("    <beq_audioTypes>")
		for _, a := range b.AudioTypes {
			fmt.Fprintf(&sb, "<audioType>%s</audioType>", a)
		}
		sb.WriteString("</beq_audioTypes>\n")
	}
	sb.WriteString("  </beq_metadata>\n")
	for i, f := range b.Filters {
		fmt.Fprintf(&sb, "  <filter name=\"EQ_ch1_%d\"><type>%s</type><freq>%s</freq><q>%s</q><boost>%s</boost><bypass>0</bypass></filter>\n",
			i+1, f[0], f[1], f[2], f[3])
	}
	sb.WriteString("</setting>\n")
	return sb.String()
}

// WriteBEQ writes fixture b to root/rel.
func WriteBEQ(t testing.TB, root, rel string, b BEQ) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	WriteFile(t, path, b.XML())
	return path
}
