package errreport

import (
	"errors"
	"io/fs"
	"os"
	"strings"
)

// Entry is one parsed line of an error list.
type Entry struct {
	Path    string
	Message string
}

// Read loads the error list written for sourceID. A missing file has no
// entries.
func Read(dir, sourceID string) ([]Entry, error) {
	data, err := os.ReadFile(File(dir, sourceID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []Entry
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		path, message, _ := strings.Cut(line, "|")
		out = append(out, Entry{Path: path, Message: message})
	}
	return out, nil
}
