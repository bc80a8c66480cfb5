package rangemeta

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `grammatical-info:
  label: Grammatical Info
  description: Parts of speech
  type: fieldworks
my-tags:
  label: My Tags
  type: custom
`

func writeMetaFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lift-ranges.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndLookup(t *testing.T) {
	f, err := Load(writeMetaFile(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	entry, ok := f.Lookup("grammatical-info")
	if !ok || entry.Label != "Grammatical Info" || entry.Type != TypeFieldworks {
		t.Errorf("entry = %+v ok = %v", entry, ok)
	}
	if _, ok := f.Lookup("nope"); ok {
		t.Error("unexpected hit for unknown range")
	}
	if len(f.All()) != 2 {
		t.Errorf("All() = %v", f.All())
	}
}

func TestLoadMissingFile(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.All()) != 0 {
		t.Errorf("All() = %v", f.All())
	}
}

func TestLoadEmptyPath(t *testing.T) {
	f, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.All()) != 0 {
		t.Errorf("All() = %v", f.All())
	}
	if err := f.Reload(); err != nil {
		t.Errorf("Reload: %v", err)
	}
}

func TestReloadKeepsSnapshotOnParseFailure(t *testing.T) {
	path := writeMetaFile(t, sampleYAML)
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := os.WriteFile(path, []byte("{not yaml: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := f.Reload(); err == nil {
		t.Fatal("expected parse error")
	}
	if _, ok := f.Lookup("my-tags"); !ok {
		t.Error("previous snapshot was discarded on parse failure")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	f, err := Load(writeMetaFile(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	all := f.All()
	delete(all, "my-tags")
	if _, ok := f.Lookup("my-tags"); !ok {
		t.Error("mutating the returned map changed the snapshot")
	}
}
