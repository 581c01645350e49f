package staging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"beqcat/internal/logging"
)

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	oldDir := filepath.Join(tmpDir, "run-old")
	if err := os.Mkdir(oldDir, 0o755); err != nil {
		t.Fatalf("create old dir: %v", err)
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldDir, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	recentDir := filepath.Join(tmpDir, "run-recent")
	if err := os.Mkdir(recentDir, 0o755); err != nil {
		t.Fatalf("create recent dir: %v", err)
	}

	oldFile := filepath.Join(tmpDir, "old-file.txt")
	if err := os.WriteFile(oldFile, []byte("test"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	if err := os.Chtimes(oldFile, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("expected only %s removed, got %v", oldDir, result.Removed)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old directory should have been removed")
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Error("recent directory should still exist")
	}
	if _, err := os.Stat(oldFile); err != nil {
		t.Error("file should not have been removed")
	}
}

func TestStagePublishMovesFilesAndKeepsOthers(t *testing.T) {
	out := t.TempDir()
	target := filepath.Join(out, "docs")
	if err := os.MkdirAll(filepath.Join(target, "a"), 0o755); err != nil {
		t.Fatal(err)
	}
	untouched := filepath.Join(target, "a", "old.md")
	if err := os.WriteFile(untouched, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "index.md"), []byte("previous"), 0o644); err != nil {
		t.Fatal(err)
	}

	stage, err := New(out)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if filepath.Dir(stage.Dir()) != Root(out) {
		t.Fatalf("stage %s not under %s", stage.Dir(), Root(out))
	}
	if err := stage.Write(map[string][]byte{"index.md": []byte("new"), "b/page.md": []byte("page")}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	published, err := stage.Publish(target)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !reflect.DeepEqual(published, []string{"b/page.md", "index.md"}) {
		t.Fatalf("unexpected published list %v", published)
	}
	data, err := os.ReadFile(filepath.Join(target, "index.md"))
	if err != nil || string(data) != "new" {
		t.Fatalf("index not replaced: %q %v", data, err)
	}
	if _, err := os.Stat(untouched); err != nil {
		t.Fatal("unrelated file should survive publish")
	}
	if _, err := os.Stat(stage.Dir()); !os.IsNotExist(err) {
		t.Fatal("stage should be removed after publish")
	}
}

func TestStageDiscardLeavesTargetUntouched(t *testing.T) {
	out := t.TempDir()
	stage, err := New(out)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := stage.Write(map[string][]byte{"index.md": []byte("new")}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := stage.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "docs", "index.md")); !os.IsNotExist(err) {
		t.Fatal("discarded stage must not publish")
	}
}

func writeTarget(t *testing.T, target string, files map[string]string) {
	t.Helper()
	for rel, data := range files {
		path := filepath.Join(target, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func requireTarget(t *testing.T, target string, want map[string]string) {
	t.Helper()
	got := make(map[string]string)
	err := filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(target, path)
		got[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("walk target: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("target = %v, want %v", got, want)
	}
}

func TestStagePublishRestoresTargetWhenMoveFails(t *testing.T) {
	out := t.TempDir()
	target := filepath.Join(out, "docs")
	previous := map[string]string{"catalogue.csv": "old csv", "index.md": "old index"}
	writeTarget(t, target, previous)

	stage, err := New(out)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := stage.Write(map[string][]byte{
		"a/page.md":     []byte("page"),
		"catalogue.csv": []byte("new csv"),
		"index.md":      []byte("new index"),
	}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	orig := moveFile
	t.Cleanup(func() { moveFile = orig })
	moveFile = func(src, dst string) error {
		if strings.HasPrefix(src, stage.Dir()+string(filepath.Separator)) && filepath.Base(dst) == "index.md" {
			return errors.New("disk full")
		}
		return orig(src, dst)
	}

	if _, err := stage.Publish(target); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected publish failure, got %v", err)
	}
	requireTarget(t, target, previous)
	if _, err := os.Stat(stage.Dir() + BackupSuffix); !os.IsNotExist(err) {
		t.Fatalf("backup should be removed after restore: %v", err)
	}
}

func TestStagePublishRejectsDirectoryTarget(t *testing.T) {
	out := t.TempDir()
	target := filepath.Join(out, "docs")
	previous := map[string]string{"catalogue.csv": "old csv", "index.md/keep.txt": "blocker"}
	writeTarget(t, target, previous)

	stage, err := New(out)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := stage.Write(map[string][]byte{
		"catalogue.csv": []byte("new csv"),
		"index.md":      []byte("new index"),
	}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := stage.Publish(target); err == nil {
		t.Fatal("expected publish failure")
	}
	requireTarget(t, target, previous)
}
