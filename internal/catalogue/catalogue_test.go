package catalogue

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"beqcat/internal/record"
)

func sampleEntry() Entry {
	return Entry{
		Title:       "Alpha",
		Year:        "2001",
		ContentType: record.ContentFilm,
		Format:      "DTS-HD MA 5.1",
		AudioTypes:  []string{"DTS-HD MA 5.1"},
		Author:      "aron7awol",
		Filters:     record.Filters{Display: "LS 20Hz"},
		Images:      []string{"https://img/1.jpg", "https://img/2.jpg"},
		Links:       Links{Discussion: "https://forum/1", Catalogue: "https://cat/alpha", Search: "https://search?q=Alpha"},
		Digest:      "abc",
	}
}

func TestEntryRowOrderAndImages(t *testing.T) {
	row := sampleEntry().Row()
	want := Row{"Alpha", "2001", "DTS-HD MA 5.1", "aron7awol", "https://forum/1", "https://cat/alpha", "https://search?q=Alpha", "LS 20Hz", "https://img/1.jpg", "https://img/2.jpg"}
	if !reflect.DeepEqual(row, want) {
		t.Fatalf("got %v want %v", row, want)
	}
	if row.Author() != "aron7awol" {
		t.Fatalf("unexpected author %q", row.Author())
	}
}

func TestCSVRoundTripKeepsRaggedRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalogue.csv")
	rows := []Row{sampleEntry().Row(), {"Beta", "", "", "mobe1969", "", "", "", ""}}
	data, err := EncodeCSV(rows)
	if err != nil {
		t.Fatalf("EncodeCSV: %v", err)
	}
	if !strings.HasPrefix(string(data), "Title,Year,Format,Author,DiscussionLink,CatalogueURL,ExternalSearchURL,Filters\n") {
		t.Fatalf("unexpected header in %q", data)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Fatalf("got %v want %v", got, rows)
	}
}

func TestReadMissingFiles(t *testing.T) {
	dir := t.TempDir()
	rows, err := ReadCSV(filepath.Join(dir, "none.csv"))
	if err != nil || rows != nil {
		t.Fatalf("expected nil rows, got %v %v", rows, err)
	}
	entries, err := ReadJSON(filepath.Join(dir, "none.json"))
	if err != nil || entries != nil {
		t.Fatalf("expected nil entries, got %v %v", entries, err)
	}
}

func TestReadCSVRejectsForeignHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadCSV(path); err == nil {
		t.Fatal("expected header error")
	}
}

func TestJSONEncodesEmptyArray(t *testing.T) {
	data, err := EncodeJSON(nil)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Fatalf("expected empty array, got %q", data)
	}
}

func TestSearchRanksAndLimits(t *testing.T) {
	entries := []Entry{
		{Title: "The Batman", Year: "2022"},
		{Title: "Batman Begins", Year: "2005"},
		{Title: "Alpha", Year: "2001"},
	}
	matches := Search(entries, "batman", 0)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	for _, m := range matches {
		if !strings.Contains(strings.ToLower(m.Entry.Title), "batman") {
			t.Fatalf("unexpected match %q", m.Entry.Title)
		}
	}
	if got := Search(entries, "batman", 1); len(got) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(got))
	}
	if got := Search(entries, "  ", 0); got != nil {
		t.Fatalf("blank query should return nil, got %v", got)
	}
}

func TestSuggestOrdersByDistance(t *testing.T) {
	entries := []Entry{{Title: "Alpha"}, {Title: "Alpha"}, {Title: "Zeta"}, {Title: "Alpine"}}
	got := Suggest(entries, "alpah", 2)
	if len(got) != 2 || got[0] != "Alpha" {
		t.Fatalf("unexpected suggestions %v", got)
	}
}
