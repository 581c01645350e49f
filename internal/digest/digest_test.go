package digest

import (
	"errors"
	"strings"
	"testing"

	"beqcat/internal/services"
)

func TestComputeIsStableAndHex(t *testing.T) {
	id := Identity{Title: Present("Alpha"), Filters: Present("f1"), MV: Present("-2")}
	a := Compute(id)
	b := Compute(Identity{Title: Present("Alpha"), Filters: Present("f1"), MV: Present("-2")})
	if a != b {
		t.Fatalf("digest not stable: %s vs %s", a, b)
	}
	if len(a) != 64 || strings.ToLower(a) != a {
		t.Fatalf("expected 64 lowercase hex chars, got %q", a)
	}
}

func TestComputeDistinguishesAbsentFromEmpty(t *testing.T) {
	absent := Compute(Identity{Title: Present("Alpha")})
	empty := Compute(Identity{Title: Present("Alpha"), Season: Present("")})
	if absent == empty {
		t.Fatal("absent and empty season must hash differently")
	}
}

func TestComputeChangesWithEachField(t *testing.T) {
	base := Identity{Title: Present("Alpha"), Filters: Present("f1"), MV: Present("-2"), Season: Present("S1"), Episode: Present("3")}
	seen := map[string]string{"base": Compute(base)}
	variants := map[string]Identity{
		"title":   {Title: Present("Beta"), Filters: base.Filters, MV: base.MV, Season: base.Season, Episode: base.Episode},
		"filters": {Title: base.Title, Filters: Present("f2"), MV: base.MV, Season: base.Season, Episode: base.Episode},
		"mv":      {Title: base.Title, Filters: base.Filters, MV: Present("-3"), Season: base.Season, Episode: base.Episode},
		"season":  {Title: base.Title, Filters: base.Filters, MV: base.MV, Season: Present("S2"), Episode: base.Episode},
		"episode": {Title: base.Title, Filters: base.Filters, MV: base.MV, Season: base.Season, Episode: Present("4")},
	}
	for name, id := range variants {
		d := Compute(id)
		for other, prev := range seen {
			if d == prev {
				t.Fatalf("variant %s collides with %s", name, other)
			}
		}
		seen[name] = d
	}
}

func TestMV(t *testing.T) {
	tests := map[string]string{
		"-2":    "-2",
		"-2.0":  "-2",
		"+1.50": "1.5",
		"0.0":   "0",
		"-0":    "0",
		" 3 ":   "3",
		"n/a":   "n/a",
		"":      "",
	}
	for in, want := range tests {
		if got := MV(in); got != want {
			t.Errorf("MV(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOptional(t *testing.T) {
	if Optional("") != nil {
		t.Fatal("empty string should be absent")
	}
	if p := Optional("x"); p == nil || *p != "x" {
		t.Fatal("non-empty string should be present")
	}
}

func TestDetectorReportsCrossEntryCollisions(t *testing.T) {
	d := NewDetector()
	if _, hit := d.Observe("abc", Owner{Author: "a", Title: "Alpha", Path: "1.xml"}); hit {
		t.Fatal("first observation cannot collide")
	}
	if _, hit := d.Observe("abc", Owner{Author: "a", Title: "Alpha", Path: "1.xml"}); hit {
		t.Fatal("same owner repeating is not a collision")
	}
	c, hit := d.Observe("abc", Owner{Author: "b", Title: "Alpha", Path: "2.xml"})
	if !hit {
		t.Fatal("expected collision for a different author")
	}
	if c.First.Author != "a" || c.Second.Author != "b" {
		t.Fatalf("unexpected collision %+v", c)
	}
	if !errors.Is(c.Err(), services.ErrIdentityCollision) {
		t.Fatalf("expected identity collision marker, got %v", c.Err())
	}
}
