package jsonfile

import (
	"os"
	"path/filepath"
	"testing"
)

type record struct {
	Name  string `json:"name"`
	Value uint64 `json:"value"`
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	var missing record
	ok, err := Read(path, &missing)
	if err != nil || ok {
		t.Fatalf("expected missing file, got ok=%v err=%v", ok, err)
	}

	if err := Write(path, record{Name: "pool", Value: 42}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := Write(path, record{Name: "pool", Value: 43}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file left behind: %v", err)
	}

	var got record
	ok, err = Read(path, &got)
	if err != nil || !ok {
		t.Fatalf("read: ok=%v err=%v", ok, err)
	}
	if got != (record{Name: "pool", Value: 43}) {
		t.Fatalf("record mismatch: %+v", got)
	}
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()
	var r record
	if _, err := Read(dir, &r); err == nil {
		t.Fatalf("expected error for directory")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Read(bad, &r); err == nil {
		t.Fatalf("expected parse error")
	}
}
