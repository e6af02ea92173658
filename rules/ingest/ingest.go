package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
)

// Target is a rules document store that can be filled idempotently.
type Target interface {
	Has(ctx context.Context, filename string) (bool, error)
	Put(ctx context.Context, path string) error
}

// Summary counts the outcome of one ingestion run.
type Summary struct {
	Ingested int
	Skipped  int
	Failed   int
}

// Run scans a directory for PDF files and ingests every file not already
// present in the target. Existing files are skipped, so re-running against
// the same directory is a no-op.
func Run(ctx context.Context, dir string, target Target) (Summary, error) {
	pattern := filepath.Join(dir, "*.pdf")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return Summary{}, fmt.Errorf("ingest: scan %q: %w", pattern, err)
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		log.Warn().Str("dir", dir).Msg("no PDF files found")
		return Summary{}, nil
	}
	log.Info().Int("files", len(paths)).Str("dir", dir).Msg("starting rules ingestion")

	var summary Summary
	for _, path := range paths {
		filename := filepath.Base(path)

		exists, err := target.Has(ctx, filename)
		if err != nil {
			return summary, fmt.Errorf("ingest: check %q: %w", filename, err)
		}
		if exists {
			log.Info().Str("file", filename).Msg("skipping, already present")
			summary.Skipped++
			continue
		}

		log.Info().Str("file", filename).Msg("ingesting")
		if err := target.Put(ctx, path); err != nil {
			log.Error().Err(err).Str("file", filename).Msg("ingestion failed")
			summary.Failed++
			continue
		}
		summary.Ingested++
	}

	log.Info().
		Int("ingested", summary.Ingested).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("rules ingestion complete")
	return summary, nil
}
