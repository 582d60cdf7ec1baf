package sink

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"booru-dl/internal/helpers"
	"booru-dl/internal/model"
)

// Archive is the CBZ Sink variant (spec.md §4.5): every post in a run is
// written into one zip file, store-only, grouped by rating subdirectory,
// with a 00_summary.json manifest appended at Close. Concurrent Commit
// calls from the Downloader's worker pool are serialized through mu,
// since archive/zip.Writer is not safe for concurrent use.
type Archive struct {
	mu       sync.Mutex
	f        *os.File
	zw       *zip.Writer
	manifest []manifestEntry
}

type manifestEntry struct {
	ID     uint64 `json:"id"`
	Rating string `json:"rating"`
	Name   string `json:"name"`
	Size   int64  `json:"size"`
}

type archiveSummary struct {
	Site            string          `json:"site"`
	Tags            []string        `json:"tags"`
	HighestID       uint64          `json:"highest_id"`
	Timestamp       uint64          `json:"timestamp"`
	DownloadedCount uint64          `json:"downloaded_count"`
	Posts           []manifestEntry `json:"posts"`
}

// NewArchive creates (or truncates) <outputDir>/<site>/<tagQuery>.cbz and
// opens it for writing.
func NewArchive(outputDir string, site model.Site, tagQuery string) (*Archive, error) {
	dir := filepath.Join(outputDir, site.String())
	if !helpers.CheckAndMakeDir(dir) {
		return nil, fmt.Errorf("create directory %s", dir)
	}

	path := filepath.Join(dir, tagQuery+".cbz")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create archive %s: %w", path, err)
	}

	return &Archive{f: f, zw: zip.NewWriter(f)}, nil
}

// Exists always reports false: a zip writer has no cheap random-access
// existence probe, so the Archive sink cannot be paired with the Updater
// (spec.md §4.5) and always re-downloads and re-writes every post.
func (a *Archive) Exists(context.Context, model.Post, string, string) (bool, error) {
	return false, nil
}

// Commit writes r as a new, uncompressed (Store) entry under
// <rating>/<name> inside the archive.
func (a *Archive) Commit(_ context.Context, post model.Post, _ string, name string, r io.Reader) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entryName := post.Rating.String() + "/" + name
	w, err := a.zw.CreateHeader(&zip.FileHeader{Name: entryName, Method: zip.Store})
	if err != nil {
		return 0, fmt.Errorf("create archive entry %s: %w", entryName, err)
	}

	size, err := io.Copy(w, r)
	if err != nil {
		return 0, fmt.Errorf("write archive entry %s: %w", entryName, err)
	}

	a.manifest = append(a.manifest, manifestEntry{
		ID:     post.ID,
		Rating: post.Rating.String(),
		Name:   name,
		Size:   size,
	})
	return size, nil
}

// Close writes the 00_summary.json manifest entry and finalizes the zip.
// Should only be called once the full pipeline run has succeeded; an
// aborted run should discard the partial archive instead.
func (a *Archive) Close(summary model.DownloadSummary) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	payload := archiveSummary{
		Site:            summary.Site.String(),
		Tags:            summary.Tags,
		HighestID:       summary.HighestID,
		Timestamp:       summary.Timestamp,
		DownloadedCount: summary.DownloadedCount,
		Posts:           a.manifest,
	}
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal archive summary: %w", err)
	}

	w, err := a.zw.CreateHeader(&zip.FileHeader{Name: "00_summary.json", Method: zip.Store})
	if err != nil {
		return fmt.Errorf("create summary entry: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write summary entry: %w", err)
	}

	if err := a.zw.Close(); err != nil {
		return fmt.Errorf("close zip writer: %w", err)
	}
	return a.f.Close()
}

// Abort discards the archive without writing a summary, closing and
// removing the partial file. Used when the pipeline run fails or is
// cancelled before completion.
func (a *Archive) Abort() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	name := a.f.Name()
	a.zw.Close()
	a.f.Close()
	return os.Remove(name)
}
