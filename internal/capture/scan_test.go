package capture

import (
	"os"
	"path/filepath"
	"testing"
)

func TestListFilesNaturalOrder(t *testing.T) {
	dir := t.TempDir()
	names := []string{"cap10.pcap", "cap2.pcap", "cap1.pcap", "capA.pcap"}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatalf("failed to write fixture %s: %v", n, err)
		}
	}

	files, err := ListFiles(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"cap1.pcap", "cap2.pcap", "cap10.pcap", "capA.pcap"}
	if len(files) != len(want) {
		t.Fatalf("expected %d files, got %d", len(want), len(files))
	}
	for i, w := range want {
		if filepath.Base(files[i]) != w {
			t.Errorf("position %d: got %s, want %s", i, filepath.Base(files[i]), w)
		}
	}
}

func TestNaturalLessDigitRuns(t *testing.T) {
	if !naturalLess("cap2", "cap10") {
		t.Errorf("expected cap2 < cap10 under natural ordering")
	}
	if naturalLess("cap10", "cap2") {
		t.Errorf("expected cap10 to not sort before cap2")
	}
	if naturalLess("cap2", "cap2") {
		t.Errorf("expected equal names to not be less than each other")
	}
}
