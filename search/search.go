// Package search keeps a full-text index of evidence files (exports,
// collector logs, notes) so observables can be pulled back out by keyword.
package search

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
)

const maxBatchSize = 100

// Hit is one matching document.
type Hit struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

type document struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Index is an on-disk bleve index of text files.
type Index struct {
	idx  bleve.Index
	path string
}

// Open opens the index at path, creating it when missing and recreating it
// when it cannot be opened.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		slog.Debug("creating index", slog.String("path", path))
		idx, err = bleve.New(path, bleve.NewIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("error creating new index: %w", err)
		}
	} else if err != nil {
		slog.Warn("error opening index, recreating", slog.String("path", path), slog.String("error", err.Error()))
		if err := Remove(path); err != nil {
			return nil, err
		}
		idx, err = bleve.New(path, bleve.NewIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("error creating new index after deletion: %w", err)
		}
	}
	return &Index{idx: idx, path: path}, nil
}

// Remove deletes the index directory at path.
func Remove(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("error deleting index directory: %w", err)
	}
	return nil
}

func (i *Index) Close() error { return i.idx.Close() }

// Count returns the number of indexed documents.
func (i *Index) Count() (uint64, error) { return i.idx.DocCount() }

// IndexDir adds every text file under dir, keyed by path, skipping .git and
// the index itself. It returns the number of files indexed. Unreadable files
// are logged and skipped.
func (i *Index) IndexDir(dir string) (int, error) {
	indexAbs, _ := filepath.Abs(i.path)

	batch := i.idx.NewBatch()
	total := 0
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			abs, _ := filepath.Abs(path)
			if info.Name() == ".git" || abs == indexAbs {
				return filepath.SkipDir
			}
			return nil
		}
		if !isTextFile(path) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable file", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if err := batch.Index(path, document{Path: path, Content: string(content)}); err != nil {
			slog.Warn("skipping file", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		total++

		if batch.Size() >= maxBatchSize {
			if err := i.idx.Batch(batch); err != nil {
				return fmt.Errorf("error indexing batch: %w", err)
			}
			batch = i.idx.NewBatch()
		}
		return nil
	})
	if err != nil {
		return total, fmt.Errorf("error walking %s: %w", dir, err)
	}

	if batch.Size() > 0 {
		if err := i.idx.Batch(batch); err != nil {
			return total, fmt.Errorf("error indexing final batch: %w", err)
		}
	}
	slog.Debug("indexing complete", slog.String("dir", dir), slog.Int("files", total))
	return total, nil
}

var unmark = strings.NewReplacer("<mark>", "", "</mark>", "")

// Search runs a match query and returns up to limit hits, best first.
func (i *Index) Search(query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), limit, 0, false)
	req.Fields = []string{"content"}
	req.Highlight = bleve.NewHighlight()

	res, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("error performing search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if frags := h.Fragments["content"]; len(frags) > 0 {
			hit.Snippet = strings.TrimSpace(unmark.Replace(frags[0]))
		} else if content, ok := h.Fields["content"].(string); ok {
			hit.Snippet = truncate(strings.TrimSpace(content), 200)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func isTextFile(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	buffer := make([]byte, 512)
	n, err := io.ReadFull(file, buffer)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false
	}
	return strings.HasPrefix(http.DetectContentType(buffer[:n]), "text/")
}
