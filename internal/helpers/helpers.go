// Package helpers holds small filesystem and string utilities shared
// across the pipeline, sink and CLI layers. Grounded on the teacher's
// internal/helpers/helpers.go; hash verification moved into the
// downloader's streaming hashingReader, since media integrity is now
// checked by MD5 against Post.MD5 while the body streams rather than by
// re-reading a completed file from disk.
package helpers

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
)

// BytesToSize converts a byte count into a human-readable string (KB, MB, GB, etc.).
func BytesToSize(bytes uint64) string {
	sizes := []string{"B", "KB", "MB", "GB", "TB"}
	if bytes == 0 {
		return "0B"
	}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}
	return fmt.Sprintf("%.2f%s", float64(bytes)/math.Pow(1024, float64(i)), sizes[i])
}

// ConvertToSlug converts a string into a filesystem-friendly slug.
func ConvertToSlug(str string) string {
	str = strings.ReplaceAll(str, " ", "_")
	str = strings.ReplaceAll(str, ":", "-")
	str = strings.ToLower(str)

	allowedChars := "0123456789abcdefghijklmnopqrstuvwxyz._-"

	var filteredDescription strings.Builder
	for _, ch := range str {
		if strings.ContainsRune(allowedChars, ch) {
			filteredDescription.WriteRune(ch)
		}
	}
	str = filteredDescription.String()

	for strings.Contains(str, "--") {
		str = strings.ReplaceAll(str, "--", "-")
	}
	for strings.Contains(str, "__") {
		str = strings.ReplaceAll(str, "__", "_")
	}
	str = strings.ReplaceAll(str, "-_", "-")
	str = strings.ReplaceAll(str, "_-", "-")
	for strings.Contains(str, "--") {
		str = strings.ReplaceAll(str, "--", "-")
	}

	str = strings.Trim(str, "_-")

	return str
}

// CheckAndMakeDir ensures a directory exists, creating it if necessary.
func CheckAndMakeDir(dir string) bool {
	err := os.MkdirAll(dir, 0700)
	if err != nil {
		log.WithError(err).Errorf("Error creating directory %s", dir)
		return false
	}
	return true
}

var (
	tagQueryForbidden = regexp.MustCompile(`[/\\:*?"<>|]`)
	whitespaceRun     = regexp.MustCompile(`\s+`)
)

// SanitizeTagQuery implements spec.md §4.4's tag-query sanitization: forbidden
// path characters become underscores, whitespace runs collapse to a single
// space, and the result is trimmed. Callers join the user's tags in input
// order with single spaces before calling this.
func SanitizeTagQuery(tagQuery string) string {
	s := tagQueryForbidden.ReplaceAllString(tagQuery, "_")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// JoinTagQuery joins tags in their original order with single spaces and
// sanitizes the result, producing the directory name a Sink groups a
// search's posts under.
func JoinTagQuery(tags []string) string {
	return SanitizeTagQuery(strings.Join(tags, " "))
}
