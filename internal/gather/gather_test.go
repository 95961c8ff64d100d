package gather

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestProgressMarkDone(t *testing.T) {
	dir := t.TempDir()

	p, err := OpenProgress(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.MarkDone("600000.SH", "000001.SZ", "600000.SH"); err != nil {
		t.Fatal(err)
	}
	p.Close()

	// Reload and verify.
	p2, err := OpenProgress(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer p2.Close()

	for _, sym := range []string{"600000.SH", "000001.SZ"} {
		if !p2.IsDone(sym) {
			t.Errorf("expected %q to be done after reload", sym)
		}
	}
	if p2.IsDone("300750.SZ") {
		t.Error("300750.SZ should not be done")
	}

	data, err := os.ReadFile(filepath.Join(dir, ".done"))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != "600000.SH\n000001.SZ\n" {
		t.Errorf(".done = %q, want each symbol once", got)
	}
}

func TestProgressBegin(t *testing.T) {
	dir := t.TempDir()

	p, err := OpenProgress(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	fresh, err := p.Begin("2025-02-10")
	if err != nil || !fresh {
		t.Fatalf("first Begin = %v, %v; want true", fresh, err)
	}
	if err := p.MarkDone("AAPL"); err != nil {
		t.Fatal(err)
	}

	// Crash mid-run: the same date resumes with progress intact.
	fresh, err = p.Begin("2025-02-10")
	if err != nil || !fresh || !p.IsDone("AAPL") {
		t.Fatalf("resumed Begin = %v, %v, done=%v", fresh, err, p.IsDone("AAPL"))
	}

	if err := p.MarkCompleted("2025-02-10"); err != nil {
		t.Fatal(err)
	}
	fresh, err = p.Begin("2025-02-10")
	if err != nil || fresh {
		t.Errorf("Begin after completion = %v, %v; want false", fresh, err)
	}

	// A new day starts over.
	fresh, err = p.Begin("2025-02-11")
	if err != nil || !fresh {
		t.Fatalf("next-day Begin = %v, %v; want true", fresh, err)
	}
	if p.IsDone("AAPL") {
		t.Error("AAPL should not be done after a new day begins")
	}
}

func TestParseRange(t *testing.T) {
	now := time.Date(2024, 3, 17, 12, 0, 0, 0, time.UTC) // Sunday

	r, err := ParseRange("2024-01-02", "", now)
	if err != nil {
		t.Fatalf("ParseRange: %v", err)
	}
	if want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC); !r.End.Equal(want) {
		t.Errorf("End = %v, want %v", r.End, want)
	}

	if _, err := ParseRange("20240301", "20240201", now); err == nil {
		t.Error("ParseRange with start after end succeeded, want error")
	}
	if _, err := ParseRange("yesterday", "", now); err == nil {
		t.Error("ParseRange with bad start succeeded, want error")
	}
}
