// Package downloader implements the concurrent Downloader stage of the
// extract-filter-fetch pipeline (spec.md §4.3): a fixed-size worker pool
// drains the Post Queue, streams each post's media through an MD5 check
// before it ever reaches a Sink, retries transient failures, and reports
// per-post outcomes to a Progress tracker. Grounded on the teacher's
// DownloadFile (temp-file-then-rename, CounterWriter streaming, hash
// verification) generalized from a single-shot call into a worker-pool
// consumer of a streaming queue.Queue, with final placement delegated to
// the Sink implementations once a download is verified.
package downloader

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"booru-dl/internal/model"
	"booru-dl/internal/queue"
)

const (
	maxAttempts = 3
	backoffBase = 2 * time.Second
	backoffCap  = 30 * time.Second
)

func backoffDuration(attempt int) time.Duration {
	d := backoffBase << attempt
	if d > backoffCap || d <= 0 {
		return backoffCap
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sink is the storage backend a Downloader commits verified media to.
// Implemented by internal/sink's filesystem and archive sinks.
type Sink interface {
	// Exists reports whether name already has committed content for this
	// post's site/tagQuery/rating bucket. Archive sinks that cannot probe
	// cheaply may always return false.
	Exists(ctx context.Context, post model.Post, tagQuery, name string) (bool, error)
	// Commit streams r to final storage under name and returns the bytes written.
	Commit(ctx context.Context, post model.Post, tagQuery, name string, r io.Reader) (int64, error)
}

// Downloader owns a fixed worker pool draining a single queue.Queue.
type Downloader struct {
	client      *http.Client
	sink        Sink
	concurrency int
	progress    *Progress
}

// New builds a Downloader with the given HTTP client, storage Sink,
// worker count and progress tracker. progress may be nil to disable
// reporting.
func New(client *http.Client, sink Sink, concurrency int, progress *Progress) *Downloader {
	if concurrency <= 0 {
		concurrency = 1
	}
	if progress == nil {
		progress = NewProgress(false)
	}
	return &Downloader{client: client, sink: sink, concurrency: concurrency, progress: progress}
}

// Run drains q with d.concurrency workers until the terminator sentinel
// has propagated through all of them, or ctx is cancelled. It returns the
// first fatal error encountered by any worker, if any; per-post failures
// are reported through Progress and do not abort the run.
func (d *Downloader) Run(ctx context.Context, q *queue.Queue, tagQuery string) error {
	var wg sync.WaitGroup
	errs := make(chan error, d.concurrency)

	for i := 0; i < d.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- d.worker(ctx, q, tagQuery)
		}()
	}

	wg.Wait()
	close(errs)

	var first error
	for err := range errs {
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

// worker pulls items until it sees the terminator or ctx is done. The
// queue carries a single sentinel value rather than relying on channel
// close (spec.md §4.2's "single sentinel" wording), so a worker that
// receives it reposts it before exiting, cascading termination through
// the remaining workers in the pool like a poison pill.
func (d *Downloader) worker(ctx context.Context, q *queue.Queue, tagQuery string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		item, ok := q.Recv()
		if !ok {
			return nil
		}
		if item.Terminator {
			q.Close()
			return nil
		}

		d.progress.IncrementTotalAccepted()
		if err := d.handle(ctx, item.Post, tagQuery); err != nil {
			if model.Fatal(err) {
				return err
			}
			d.progress.ReportFailed(ref(item.Post), err)
		}
	}
}

func ref(p model.Post) PostRef {
	return PostRef{Site: p.Site.String(), ID: p.ID}
}

func destinationName(p model.Post) string {
	base := p.MD5
	if base == "" {
		base = strconv.FormatUint(p.ID, 10)
	}
	if p.Extension == "" {
		return base
	}
	return base + "." + p.Extension
}

// handle runs the full per-post procedure from spec.md §4.3: existence
// probe, streaming fetch with MD5 verification before commit, retry on
// transient or corrupt-download failure, commit to the Sink.
func (d *Downloader) handle(ctx context.Context, post model.Post, tagQuery string) error {
	name := destinationName(post)

	exists, err := d.sink.Exists(ctx, post, tagQuery, name)
	if err != nil {
		return fmt.Errorf("probe existing file: %w", err)
	}
	if exists {
		d.progress.ReportSkipped(ref(post))
		return nil
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			wait := backoffDuration(attempt - 1)
			log.WithError(lastErr).Warnf("%s/%d: retrying (%d/%d) after %s", post.Site, post.ID, attempt+1, maxAttempts, wait)
			if err := sleep(ctx, wait); err != nil {
				return err
			}
		}

		size, err := d.attempt(ctx, post, tagQuery)
		if err == nil {
			d.progress.ReportDownloaded(ref(post), size)
			return nil
		}
		if errors.Is(err, model.ErrDuplicate) {
			d.progress.ReportSkipped(ref(post))
			return nil
		}
		lastErr = err
		retryable := errors.Is(err, model.ErrNetwork) || errors.Is(err, model.ErrRateLimited) || errors.Is(err, model.ErrCorrupt)
		if model.Fatal(err) && !retryable {
			log.WithError(err).Errorf("%s/%d: fatal error, aborting run", post.Site, post.ID)
			return err
		}
		if !retryable {
			return fmt.Errorf("%s/%d: %w", post.Site, post.ID, err)
		}
	}
	log.WithError(lastErr).Errorf("%s/%d: giving up after %d attempts", post.Site, post.ID, maxAttempts)
	return fmt.Errorf("%s/%d: %w", post.Site, post.ID, lastErr)
}

// attempt performs one streaming GET into a scratch temp file, hashing the
// body as it flows, and only hands the verified file to the Sink once the
// digest matches — spec.md §4.3 orders compute-MD5 -> check -> commit, so
// a corrupt download must never reach the Sink's atomic rename under its
// content-addressed name (destinationName uses the *expected* MD5, so a
// premature Commit would permanently bless bad content as that name).
// Mirrors the teacher's CounterWriter-wrapped io.Copy, staged through a
// local temp file the way sink/fs.go itself stages a Commit.
func (d *Downloader) attempt(ctx context.Context, post model.Post, tagQuery string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, post.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrNetwork, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return 0, fmt.Errorf("%w: status %d", model.ErrAuthFailed, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return 0, fmt.Errorf("%w: status %d", model.ErrNotFound, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return 0, fmt.Errorf("%w: status %d", model.ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return 0, fmt.Errorf("%w: status %d", model.ErrNetwork, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return 0, fmt.Errorf("%w: status %d", model.ErrApiShape, resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "booru-dl-*.download")
	if err != nil {
		return 0, fmt.Errorf("%w: scratch file: %v", model.ErrIoFailed, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	hr := &hashingReader{r: resp.Body, h: md5.New()}
	if _, err := io.Copy(tmp, hr); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("%w: %v", model.ErrIoFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrIoFailed, err)
	}

	if post.MD5 != "" {
		if got := hr.sum(); got != post.MD5 {
			return 0, fmt.Errorf("%w: expected md5 %s, got %s", model.ErrCorrupt, post.MD5, got)
		}
	}

	verified, err := os.Open(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrIoFailed, err)
	}
	defer verified.Close()

	size, err := d.sink.Commit(ctx, post, tagQuery, destinationName(post), verified)
	if err != nil {
		if errors.Is(err, model.ErrDuplicate) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", model.ErrIoFailed, err)
	}

	return size, nil
}

// hashingReader wraps an io.Reader, feeding every byte read through h so
// the MD5 digest is available once the stream has been fully copied to
// the scratch file, avoiding a second pass over the data.
type hashingReader struct {
	r io.Reader
	h hash.Hash
}

func (hr *hashingReader) Read(p []byte) (int, error) {
	n, err := hr.r.Read(p)
	if n > 0 {
		hr.h.Write(p[:n])
	}
	return n, err
}

func (hr *hashingReader) sum() string {
	return fmt.Sprintf("%x", hr.h.Sum(nil))
}
