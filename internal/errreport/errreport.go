package errreport

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"beqcat/internal/fileutil"
	"beqcat/internal/record"
)

// Collector accumulates "path|message" lines per source in insertion order.
// It is safe for concurrent use by per-source workers.
type Collector struct {
	mu    sync.Mutex
	lines map[string][]string
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{lines: make(map[string][]string)}
}

// Add appends one error for sourceID. Newlines in message are flattened so
// each error stays on one line.
func (c *Collector) Add(sourceID, path, message string) {
	message = strings.Join(strings.Fields(message), " ")
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines[sourceID] = append(c.lines[sourceID], path+"|"+message)
}

// AddRecordErrors appends record errors in order.
func (c *Collector) AddRecordErrors(errs []record.RecordError) {
	for _, e := range errs {
		c.Add(e.SourceID, e.Path, e.Message)
	}
}

// Lines returns a copy of the lines for sourceID.
func (c *Collector) Lines(sourceID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines[sourceID]...)
}

// Count returns the number of errors recorded for sourceID.
func (c *Collector) Count(sourceID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines[sourceID])
}

// File names the error list for sourceID inside dir.
func File(dir, sourceID string) string {
	return filepath.Join(dir, sourceID+".errors")
}

// Write writes <source>.errors for every id in sourceIDs. Sources without
// errors get an empty file so downstream issue sync can close stale reports.
func (c *Collector) Write(dir string, sourceIDs []string) error {
	for _, id := range sourceIDs {
		var buf bytes.Buffer
		for _, line := range c.Lines(id) {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
		if err := fileutil.WriteFileAtomic(File(dir, id), buf.Bytes()); err != nil {
			return fmt.Errorf("write error list for %s: %w", id, err)
		}
	}
	return nil
}
