package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type fakeTarget struct {
	present map[string]bool
	putErr  map[string]error
	puts    []string
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		present: map[string]bool{},
		putErr:  map[string]error{},
	}
}

func (f *fakeTarget) Has(ctx context.Context, filename string) (bool, error) {
	return f.present[filename], nil
}

func (f *fakeTarget) Put(ctx context.Context, path string) error {
	name := filepath.Base(path)
	if err := f.putErr[name]; err != nil {
		return err
	}
	f.puts = append(f.puts, name)
	f.present[name] = true
	return nil
}

func writeRuleFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestRunIngestsNewFiles(t *testing.T) {
	t.Parallel()

	dir := writeRuleFiles(t, "b_claims.pdf", "a_logos.pdf", "notes.txt")
	target := newFakeTarget()

	summary, err := Run(context.Background(), dir, target)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Ingested != 2 || summary.Skipped != 0 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(target.puts) != 2 || target.puts[0] != "a_logos.pdf" || target.puts[1] != "b_claims.pdf" {
		t.Fatalf("files must be ingested in sorted order, pdf only: %v", target.puts)
	}
}

func TestRunSkipsExistingFiles(t *testing.T) {
	t.Parallel()

	dir := writeRuleFiles(t, "a.pdf", "b.pdf")
	target := newFakeTarget()
	target.present["a.pdf"] = true

	summary, err := Run(context.Background(), dir, target)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Ingested != 1 || summary.Skipped != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	// Re-running against the same target is a no-op.
	summary, err = Run(context.Background(), dir, target)
	if err != nil {
		t.Fatalf("Run (second): %v", err)
	}
	if summary.Ingested != 0 || summary.Skipped != 2 {
		t.Fatalf("second run must skip everything: %+v", summary)
	}
}

func TestRunCountsFailuresAndContinues(t *testing.T) {
	t.Parallel()

	dir := writeRuleFiles(t, "a.pdf", "b.pdf")
	target := newFakeTarget()
	target.putErr["a.pdf"] = errors.New("corrupt file")

	summary, err := Run(context.Background(), dir, target)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Ingested != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(target.puts) != 1 || target.puts[0] != "b.pdf" {
		t.Fatalf("remaining files must still be ingested: %v", target.puts)
	}
}

func TestRunEmptyDirectory(t *testing.T) {
	t.Parallel()

	summary, err := Run(context.Background(), t.TempDir(), newFakeTarget())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary != (Summary{}) {
		t.Fatalf("empty dir must yield zero summary: %+v", summary)
	}
}
