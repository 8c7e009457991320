package results

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedSaver(t *testing.T) *Saver {
	t.Helper()
	s := NewSaver(t.TempDir())
	s.now = func() time.Time {
		return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	}
	return s
}

func TestPathLayout(t *testing.T) {
	s := fixedSaver(t)

	got, err := s.Path("client", "json")
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	want := filepath.Join(s.Base, "2026-03-14", "iperf_client_20260314_150926.json")
	if got != want {
		t.Fatalf("path = %q, want %q", got, want)
	}
	if fi, err := os.Stat(filepath.Dir(got)); err != nil || !fi.IsDir() {
		t.Fatalf("day directory was not created: %v", err)
	}
}

func TestPathWithoutKind(t *testing.T) {
	s := fixedSaver(t)
	got, err := s.Path("", "txt")
	if err != nil {
		t.Fatal(err)
	}
	if base := filepath.Base(got); base != "iperf_20260314_150926.txt" {
		t.Fatalf("basename = %q", base)
	}
}

func TestSaveText(t *testing.T) {
	s := fixedSaver(t)
	path, err := s.SaveText("server", []string{"line one", "line two"})
	if err != nil {
		t.Fatalf("SaveText: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "line one\nline two\n" {
		t.Fatalf("unexpected body %q", b)
	}
	if !strings.HasSuffix(path, ".txt") {
		t.Fatalf("path %q should end in .txt", path)
	}
}

func TestSaveJSON(t *testing.T) {
	s := fixedSaver(t)
	body := []byte(`{"intervals":[]}`)
	path, err := s.SaveJSON("client", body)
	if err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != string(body) {
		t.Fatalf("body altered: %q", b)
	}
}
