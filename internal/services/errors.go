package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRecord marks a failure confined to a single record.
	ErrRecord = errors.New("record error")
	// ErrSource marks a failure that invalidates one source for the run.
	ErrSource = errors.New("source error")
	// ErrProvenanceGap marks a record without prior or diff timestamps.
	ErrProvenanceGap = errors.New("provenance gap")
	// ErrIdentityCollision marks two distinct entries sharing a digest.
	ErrIdentityCollision = errors.New("identity collision")
	// ErrConfiguration marks a fatal misconfiguration; the run aborts.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks an unclassified failure.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// Kind names the marker carried by err for run reports.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrSource):
		return "source"
	case errors.Is(err, ErrRecord):
		return "record"
	case errors.Is(err, ErrProvenanceGap):
		return "provenance_gap"
	case errors.Is(err, ErrIdentityCollision):
		return "identity_collision"
	default:
		return "transient"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "catalogue failure"
	}
	return strings.Join(parts, ": ")
}
