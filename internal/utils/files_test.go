package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSafeWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.svg")
	if err := SafeWriteFile(path, []byte("<svg/>")); err != nil {
		t.Fatalf("SafeWriteFile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "<svg/>" {
		t.Fatalf("unexpected content: %q", b)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	first := UniquePath(dir, "chart.png")
	if first != filepath.Join(dir, "chart.png") {
		t.Fatalf("unexpected first path: %s", first)
	}
	for _, name := range []string{"chart.png", "chart-2.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if got := UniquePath(dir, "chart.png"); got != filepath.Join(dir, "chart-3.png") {
		t.Fatalf("expected chart-3.png, got %s", got)
	}
}

func TestPrettyJSONAndYAML(t *testing.T) {
	v := map[string]int{"rows": 3}
	j, err := PrettyJSON(v)
	if err != nil || !strings.Contains(string(j), "\n  \"rows\": 3") {
		t.Fatalf("PrettyJSON: %q %v", j, err)
	}
	y, err := YAML(v)
	if err != nil || string(y) != "rows: 3\n" {
		t.Fatalf("YAML: %q %v", y, err)
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Fatalf("dir not created")
	}
}
