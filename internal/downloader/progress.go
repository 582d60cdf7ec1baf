package downloader

import (
	"fmt"
	"sync/atomic"

	"github.com/gosuri/uilive"
)

// Progress tracks the global counters spec.md §4.3 names — total_accepted,
// downloaded, skipped, failed — as atomics shared lock-free across the
// worker pool, and renders them in place via uilive, exactly the
// teacher's cmd_download_worker.go writer.Newline() pattern generalized
// from per-model lines to per-post lines.
type Progress struct {
	totalAccepted int64
	downloaded    int64
	skipped       int64
	failed        int64
	writer        *uilive.Writer
}

// NewProgress starts a uilive writer for in-place terminal updates. Pass
// false to disable rendering (e.g. non-interactive CI output).
func NewProgress(render bool) *Progress {
	p := &Progress{}
	if render {
		p.writer = uilive.New()
		p.writer.Start()
	}
	return p
}

// IncrementTotalAccepted bumps the accepted count by one. Called by the
// Downloader as each item is pulled off the Post Queue, since a search
// run's total isn't known up front — the Extractor streams accepted
// posts rather than enqueuing a precomputed count.
func (p *Progress) IncrementTotalAccepted() {
	atomic.AddInt64(&p.totalAccepted, 1)
}

// ReportDownloaded records one successful write and renders a progress line.
func (p *Progress) ReportDownloaded(post PostRef, size int64) {
	atomic.AddInt64(&p.downloaded, 1)
	p.printf("downloaded %s/%d (%d bytes)", post.Site, post.ID, size)
}

// ReportSkipped records one pre-existing file.
func (p *Progress) ReportSkipped(post PostRef) {
	atomic.AddInt64(&p.skipped, 1)
	p.printf("skipped %s/%d (already present)", post.Site, post.ID)
}

// ReportFailed records one per-post non-fatal failure.
func (p *Progress) ReportFailed(post PostRef, err error) {
	atomic.AddInt64(&p.failed, 1)
	p.printf("failed %s/%d: %v", post.Site, post.ID, err)
}

func (p *Progress) printf(format string, args ...any) {
	if p.writer == nil {
		return
	}
	fmt.Fprintf(p.writer.Newline(), format+"\n", args...)
	snap := p.Snapshot()
	fmt.Fprintf(p.writer, "progress: %d/%d downloaded, %d skipped, %d failed\n",
		snap.Downloaded, snap.TotalAccepted, snap.Skipped, snap.Failed)
}

// Stop flushes and stops the uilive writer. No-op if rendering is disabled.
func (p *Progress) Stop() {
	if p.writer != nil {
		p.writer.Stop()
	}
}

// Snapshot is a point-in-time read of every counter.
type Snapshot struct {
	TotalAccepted uint64
	Downloaded    uint64
	Skipped       uint64
	Failed        uint64
}

// Snapshot returns the current counter values.
func (p *Progress) Snapshot() Snapshot {
	return Snapshot{
		TotalAccepted: uint64(atomic.LoadInt64(&p.totalAccepted)),
		Downloaded:    uint64(atomic.LoadInt64(&p.downloaded)),
		Skipped:       uint64(atomic.LoadInt64(&p.skipped)),
		Failed:        uint64(atomic.LoadInt64(&p.failed)),
	}
}

// PostRef is the minimal identifying information a progress line needs,
// kept separate from model.Post to avoid this package importing the full
// Post shape just to print two fields.
type PostRef struct {
	Site string
	ID   uint64
}
