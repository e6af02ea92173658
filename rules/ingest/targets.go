package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	gcsx "github.com/brandguard-ai/brandguard/pkg/gcs"
	localstorex "github.com/brandguard-ai/brandguard/rules/localstore"
)

// GCSTarget uploads raw PDFs to the bucket a managed search engine syncs
// from. Files land at the bucket root so the sync picks them up unchanged.
type GCSTarget struct {
	store *gcsx.Client
}

func NewGCSTarget(store *gcsx.Client) *GCSTarget {
	return &GCSTarget{store: store}
}

func (t *GCSTarget) Has(ctx context.Context, filename string) (bool, error) {
	return t.store.Exists(ctx, filename)
}

func (t *GCSTarget) Put(ctx context.Context, path string) error {
	_, err := t.store.Upload(ctx, path, filepath.Base(path))
	return err
}

// LocalTarget parses, chunks, and embeds PDFs into the local vector store.
type LocalTarget struct {
	store *localstorex.Store
}

func NewLocalTarget(store *localstorex.Store) *LocalTarget {
	return &LocalTarget{store: store}
}

func (t *LocalTarget) Has(ctx context.Context, filename string) (bool, error) {
	return t.store.HasDocument(ctx, filename)
}

func (t *LocalTarget) Put(ctx context.Context, path string) error {
	chunks, pages, err := extractPDFChunks(path)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no extractable text in %q", path)
	}

	hash, err := hashFile(path)
	if err != nil {
		return err
	}

	return t.store.IndexDocument(ctx, localstorex.Document{
		Filename:    filepath.Base(path),
		ContentHash: hash,
		Pages:       pages,
	}, chunks)
}

// extractPDFChunks pulls plain text per page; each non-empty page becomes
// one chunk.
func extractPDFChunks(path string) ([]localstorex.Chunk, int, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open pdf %q: %w", path, err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	chunks := make([]localstorex.Chunk, 0, totalPages)
	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Pages that fail to extract are skipped, not fatal.
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		chunks = append(chunks, localstorex.Chunk{
			Content:    text,
			PageNumber: i,
		})
	}
	return chunks, totalPages, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %q: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
