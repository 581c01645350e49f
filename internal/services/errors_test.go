package services_test

import (
	"errors"
	"strings"
	"testing"

	"beqcat/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrSource, "extract", "aron7awol", "walk failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrSource) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"extract", "aron7awol", "walk failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutMarkerIsTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "catalogue failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestKindAndFatal(t *testing.T) {
	tests := []struct {
		err   error
		kind  string
		fatal bool
	}{
		{services.Wrap(services.ErrConfiguration, "publish", "", "output not writable", nil), "configuration", true},
		{services.Wrap(services.ErrSource, "extract", "", "", nil), "source", false},
		{services.Wrap(services.ErrRecord, "group", "", "", nil), "record", false},
		{services.Wrap(services.ErrProvenanceGap, "", "", "", nil), "provenance_gap", false},
		{services.Wrap(services.ErrIdentityCollision, "", "", "", nil), "identity_collision", false},
		{errors.New("plain"), "transient", false},
		{nil, "", false},
	}
	for _, tc := range tests {
		if got := services.Kind(tc.err); got != tc.kind {
			t.Errorf("Kind(%v) = %q, want %q", tc.err, got, tc.kind)
		}
		if got := services.IsFatal(tc.err); got != tc.fatal {
			t.Errorf("IsFatal(%v) = %v, want %v", tc.err, got, tc.fatal)
		}
	}
}
