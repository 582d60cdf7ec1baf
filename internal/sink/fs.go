// Package sink implements the two Sink variants spec.md §4.4/§4.5
// describe: a filesystem sink with temp-file-then-atomic-rename placement
// and content-addressed collision handling, and a CBZ archive sink that
// writes every post into a single zip. Grounded on the teacher's
// DownloadFile (internal/downloader/downloader.go) temp-file/rename
// mechanics, generalized from a single destination path into a
// site/tag-query/rating bucket shared by every post in a run.
package sink

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"booru-dl/internal/helpers"
	"booru-dl/internal/model"
)

// FS is the filesystem Sink variant. Layout:
// <outputDir>/<site>/<tag-query-sanitized>/<rating>/<name>.<ext>
type FS struct {
	outputDir string
}

// NewFS builds a filesystem Sink rooted at outputDir.
func NewFS(outputDir string) *FS {
	return &FS{outputDir: outputDir}
}

func (s *FS) dir(post model.Post, tagQuery string) string {
	return filepath.Join(s.outputDir, post.Site.String(), tagQuery, post.Rating.String())
}

// Path returns the final on-disk path a committed post resolves to,
// without the collision-suffix resolution Commit performs — callers that
// need the definitive path (e.g. the search index) should use it only
// after Commit has returned successfully for that exact (post, name).
func (s *FS) Path(post model.Post, tagQuery, name string) string {
	return filepath.Join(s.dir(post, tagQuery), name)
}

// Exists reports whether a file is already committed for this exact
// content-addressed name. Only meaningful when the name is MD5-derived
// (post.MD5 non-empty); an ID-derived name proves nothing about content,
// so Exists always returns false and Commit's collision handling decides.
func (s *FS) Exists(_ context.Context, post model.Post, tagQuery, name string) (bool, error) {
	if post.MD5 == "" {
		return false, nil
	}
	path := filepath.Join(s.dir(post, tagQuery), name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Commit streams r into a temp file in the final directory, fsyncs it,
// resolves any filename collision, and renames it atomically into place.
// Returns model.ErrDuplicate if an existing file with identical
// size and MD5 was found, which callers should treat as a skip rather
// than a write.
func (s *FS) Commit(_ context.Context, post model.Post, tagQuery, name string, r io.Reader) (int64, error) {
	dir := s.dir(post, tagQuery)
	if !helpers.CheckAndMakeDir(dir) {
		return 0, fmt.Errorf("create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		tmp.Close()
		if cleanup {
			os.Remove(tmpPath)
		}
	}()

	size, err := io.Copy(tmp, r)
	if err != nil {
		return 0, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp file: %w", err)
	}

	final := filepath.Join(dir, name)
	resolved, duplicate, err := resolveCollision(final, tmpPath, size)
	if err != nil {
		return 0, err
	}
	if duplicate {
		return 0, model.ErrDuplicate
	}

	if err := os.Rename(tmpPath, resolved); err != nil {
		return 0, fmt.Errorf("rename into place: %w", err)
	}
	cleanup = false
	return size, nil
}

// resolveCollision implements spec.md §4.4's collision rule: a same-sized,
// same-MD5 existing file is a duplicate (caller should skip); otherwise
// the new content gets a <name>.1.<ext>, <name>.2.<ext>, ... suffix.
func resolveCollision(final, tmpPath string, size int64) (path string, duplicate bool, err error) {
	info, statErr := os.Stat(final)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return final, false, nil
		}
		return "", false, statErr
	}

	if info.Size() == size {
		existingSum, sumErr := fileMD5(final)
		if sumErr == nil {
			newSum, sumErr2 := fileMD5(tmpPath)
			if sumErr2 == nil && existingSum == newSum {
				return final, true, nil
			}
		}
	}

	ext := filepath.Ext(final)
	base := strings.TrimSuffix(final, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s.%d%s", base, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, false, nil
		}
	}
}

func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
