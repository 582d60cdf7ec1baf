// Package updater implements the checkpoint file spec.md §4.6/§6 names:
// a zstd-compressed, little-endian binary serialization of
// model.DownloadSummary at <output>/<site>/<tag-query>/.00_download_summary.bin.
// The binary framing and zstd layer are an interoperability boundary, so
// the encoding here matches spec.md §6 exactly rather than using a
// convenience format like JSON or gob. Grounded on the teacher's
// internal/database/bitcask.go gzip-compress-then-write pattern, adapted
// to zstd (github.com/klauspost/compress/zstd) since the spec's wire
// format names zstd specifically.
package updater

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"booru-dl/internal/helpers"
	"booru-dl/internal/model"
)

const summaryFileName = ".00_download_summary.bin"

// Path returns the checkpoint file location for a given output directory,
// site and tag query.
func Path(outputDir string, site model.Site, tagQuery string) string {
	return filepath.Join(outputDir, site.String(), tagQuery, summaryFileName)
}

// Load reads and decodes the checkpoint at Path(outputDir, site, tagQuery).
// A missing or unreadable file is "no prior run": ok is false and err is
// nil, never an error condition by itself.
func Load(outputDir string, site model.Site, tagQuery string) (summary model.DownloadSummary, ok bool, err error) {
	path := Path(outputDir, site, tagQuery)
	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		return model.DownloadSummary{}, false, nil
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return model.DownloadSummary{}, false, nil
	}
	defer decoder.Close()

	plain, err := decoder.DecodeAll(raw, nil)
	if err != nil {
		return model.DownloadSummary{}, false, nil
	}

	summary, err = decode(plain)
	if err != nil {
		return model.DownloadSummary{}, false, nil
	}
	return summary, true, nil
}

// Save encodes summary and atomically writes it to
// Path(outputDir, summary.Site, tagQuery). Callers must only invoke Save
// after a pipeline run completes successfully; it must never be called on
// a cancelled or errored run.
func Save(outputDir, tagQuery string, summary model.DownloadSummary) error {
	path := Path(outputDir, summary.Site, tagQuery)
	dir := filepath.Dir(path)
	if !helpers.CheckAndMakeDir(dir) {
		return fmt.Errorf("create directory %s", dir)
	}

	plain := encode(summary)

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	defer encoder.Close()
	compressed := encoder.EncodeAll(plain, nil)

	tmp, err := os.CreateTemp(dir, summaryFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		tmp.Close()
		if cleanup {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(compressed); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close checkpoint: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename checkpoint into place: %w", err)
	}
	cleanup = false
	return nil
}

// NewSummary builds the checkpoint for a completed run, stamping the
// current time as spec.md §6's timestamp field.
func NewSummary(site model.Site, tags []string, highestID, downloadedCount uint64) model.DownloadSummary {
	return model.DownloadSummary{
		Site:            site,
		Tags:            tags,
		HighestID:       highestID,
		Timestamp:       uint64(time.Now().Unix()),
		DownloadedCount: downloadedCount,
	}
}

// encode produces the exact byte layout spec.md §6 names:
// {site:u8, tags:Vec<String>, highest_id:u64, timestamp:u64, downloaded_count:u64},
// little-endian, strings length-prefixed as u64.
func encode(s model.DownloadSummary) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(s.Site))

	writeU64(&buf, uint64(len(s.Tags)))
	for _, tag := range s.Tags {
		writeU64(&buf, uint64(len(tag)))
		buf.WriteString(tag)
	}

	var tail [24]byte
	binary.LittleEndian.PutUint64(tail[0:8], s.HighestID)
	binary.LittleEndian.PutUint64(tail[8:16], s.Timestamp)
	binary.LittleEndian.PutUint64(tail[16:24], s.DownloadedCount)
	buf.Write(tail[:])

	return buf.Bytes()
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func decode(raw []byte) (model.DownloadSummary, error) {
	if len(raw) < 1+8 {
		return model.DownloadSummary{}, fmt.Errorf("%w: checkpoint too short", model.ErrCorrupt)
	}

	site := model.Site(raw[0])
	off := 1

	tagCount, err := readU64(raw, &off)
	if err != nil {
		return model.DownloadSummary{}, err
	}

	tags := make([]string, 0, tagCount)
	for i := uint64(0); i < tagCount; i++ {
		tagLen, err := readU64(raw, &off)
		if err != nil {
			return model.DownloadSummary{}, err
		}
		if uint64(off)+tagLen > uint64(len(raw)) {
			return model.DownloadSummary{}, fmt.Errorf("%w: tag string overruns buffer", model.ErrCorrupt)
		}
		tags = append(tags, string(raw[off:off+int(tagLen)]))
		off += int(tagLen)
	}

	highestID, err := readU64(raw, &off)
	if err != nil {
		return model.DownloadSummary{}, err
	}
	timestamp, err := readU64(raw, &off)
	if err != nil {
		return model.DownloadSummary{}, err
	}
	downloadedCount, err := readU64(raw, &off)
	if err != nil {
		return model.DownloadSummary{}, err
	}

	return model.DownloadSummary{
		Site:            site,
		Tags:            tags,
		HighestID:       highestID,
		Timestamp:       timestamp,
		DownloadedCount: downloadedCount,
	}, nil
}

func readU64(raw []byte, off *int) (uint64, error) {
	if *off+8 > len(raw) {
		return 0, fmt.Errorf("%w: checkpoint truncated", model.ErrCorrupt)
	}
	v := binary.LittleEndian.Uint64(raw[*off : *off+8])
	*off += 8
	return v, nil
}
