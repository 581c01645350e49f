package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
)

// Identity is the set of entry fields that determine its digest. A nil field
// is absent and hashes differently from an empty string.
type Identity struct {
	Title   *string `json:"title,omitempty"`
	Filters *string `json:"filters,omitempty"`
	MV      *string `json:"mv,omitempty"`
	Season  *string `json:"season,omitempty"`
	Episode *string `json:"episode,omitempty"`
}

// Compute returns the lowercase SHA-256 hex digest of the canonical JSON
// encoding of id. Field order is fixed by the struct, so the encoding is
// stable across runs and platforms.
func Compute(id Identity) string {
	payload, err := json.Marshal(id)
	if err != nil {
		// Identity only holds strings; Marshal cannot fail.
		panic(err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// MV renders a gain value the way the catalogue shows master volume offsets:
// numeric values lose redundant zeros and a leading '+', anything else is
// kept verbatim.
func MV(gain string) string {
	trimmed := strings.TrimSpace(gain)
	if trimmed == "" {
		return ""
	}
	v, err := strconv.ParseFloat(strings.TrimPrefix(trimmed, "+"), 64)
	if err != nil {
		return trimmed
	}
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Optional returns nil for "" and a pointer otherwise, the convention used
// when building an Identity from optional record fields.
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Present always returns a pointer, so "" is hashed as an empty value.
func Present(s string) *string {
	return &s
}
