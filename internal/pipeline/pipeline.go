// Package pipeline wires the Extractor, Post Queue, Downloader, Sink and
// Updater into the single top-level driver spec.md §2 describes: spawn
// the extractor task and the downloader pool as concurrent tasks
// connected by the queue, await both, propagate the first error, and on
// success write the summary. Grounded on the teacher's cmd/.../cmd's
// download-command orchestration, generalized from a flat job list to
// the extract-filter-fetch pipeline's two-role concurrency model.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/blevesearch/bleve/v2"
	log "github.com/sirupsen/logrus"

	"booru-dl/internal/booru"
	"booru-dl/internal/downloader"
	"booru-dl/internal/helpers"
	"booru-dl/internal/model"
	"booru-dl/internal/poolcache"
	"booru-dl/internal/queue"
	"booru-dl/internal/searchindex"
	"booru-dl/internal/sink"
	"booru-dl/internal/updater"
)

// Mode selects which ingest mode drives the Extractor side of the
// pipeline: a tag search, a direct post-id fetch, or a pool resolution.
type Mode int

const (
	ModeSearch Mode = iota
	ModePost
	ModePool
)

// Options configures one pipeline run.
type Options struct {
	Site    model.Site
	Mode    Mode
	Tags    []string // ModeSearch
	PostIDs []uint64 // ModePost
	PoolID  uint64   // ModePool

	OutputDir   string
	Concurrency int
	Limit       int
	StartPage   int

	SafeMode         bool
	DisableBlacklist bool
	Update           bool
	CBZ              bool
	Annotate         bool

	Credential model.Credential
	Blacklist  model.Blacklist
	PoolCache  *poolcache.Cache
	Progress   bool
}

// Result summarizes a completed run.
type Result struct {
	Summary  model.DownloadSummary
	Accepted uint64
}

// Run executes one full pipeline: extractor + downloader concurrently,
// filtered by opts, committed to the selected Sink, checkpointed on
// success. Returns the first fatal error from either role; per-post
// failures are reported through Progress and never abort the run.
func Run(ctx context.Context, client *http.Client, opts Options) (Result, error) {
	if opts.CBZ && opts.Update {
		return Result{}, fmt.Errorf("%w: --cbz and --update are mutually exclusive (archive sink has no existence probe)", model.ErrConfig)
	}

	ext, ok := booru.For(opts.Site)
	if !ok {
		return Result{}, fmt.Errorf("%w: unsupported site %s", model.ErrConfig, opts.Site)
	}

	tagQuery := queryLabel(opts)

	filter := booru.FilterOptions{SafeMode: opts.SafeMode}
	if !opts.DisableBlacklist {
		filter.Blacklist = opts.Blacklist
	} else {
		filter.Blacklist = model.NewBlacklist()
	}

	if opts.Update && !opts.CBZ {
		if prior, ok, err := updater.Load(opts.OutputDir, opts.Site, tagQuery); err == nil && ok {
			filter.HasHighestIDPrev = true
			filter.HighestIDPrev = prior.HighestID
		}
	}

	var archive *sink.Archive
	var storage downloader.Sink
	if opts.CBZ {
		a, err := sink.NewArchive(opts.OutputDir, opts.Site, tagQuery)
		if err != nil {
			return Result{}, err
		}
		archive = a
		storage = a
	} else {
		storage = sink.NewFS(opts.OutputDir)
	}

	var idx bleve.Index
	if opts.Annotate && !opts.CBZ {
		opened, err := searchindex.OpenOrCreate(opts.OutputDir + "/" + opts.Site.String() + ".bleve")
		if err != nil {
			log.WithError(err).Warn("pipeline: could not open search index, proceeding unannotated")
		} else {
			idx = opened
			storage = &indexingSink{Sink: storage, idx: idx, fs: storage.(*sink.FS)}
		}
	}
	if idx != nil {
		defer idx.Close()
	}

	q := queue.New(opts.Concurrency)
	progress := downloader.NewProgress(opts.Progress)
	dl := downloader.New(client, storage, opts.Concurrency, progress)

	errs := make(chan error, 2)
	var result booru.SearchResult

	go func() {
		var err error
		result, err = extract(ctx, client, ext, opts, filter, q)
		errs <- err
	}()
	go func() {
		errs <- dl.Run(ctx, q, tagQuery)
	}()

	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	progress.Stop()

	if firstErr != nil {
		if archive != nil {
			archive.Abort()
		}
		return Result{}, firstErr
	}
	if ctx.Err() != nil {
		if archive != nil {
			archive.Abort()
		}
		return Result{}, ctx.Err()
	}

	highestID := result.HighestID
	if filter.HasHighestIDPrev && filter.HighestIDPrev > highestID {
		highestID = filter.HighestIDPrev
	}
	summary := updater.NewSummary(opts.Site, opts.Tags, highestID, progress.Snapshot().Downloaded)

	if archive != nil {
		if err := archive.Close(summary); err != nil {
			return Result{}, err
		}
	} else {
		if err := updater.Save(opts.OutputDir, tagQuery, summary); err != nil {
			return Result{}, err
		}
	}

	return Result{Summary: summary, Accepted: result.Count}, nil
}

func extract(ctx context.Context, client *http.Client, ext booru.Extractor, opts Options, filter booru.FilterOptions, q *queue.Queue) (booru.SearchResult, error) {
	switch opts.Mode {
	case ModePost:
		return booru.FetchPosts(ctx, client, ext, opts.PostIDs, opts.Credential, filter, q)
	case ModePool:
		return booru.FetchPool(ctx, client, ext, opts.PoolID, opts.Credential, filter, opts.PoolCache, q)
	default:
		return booru.Search(ctx, client, ext, booru.SearchOptions{
			Tags:       opts.Tags,
			Limit:      opts.Limit,
			StartPage:  opts.StartPage,
			Credential: opts.Credential,
			Filter:     filter,
		}, q)
	}
}

// queryLabel produces the directory/archive-name label a Sink and the
// Updater group a run's posts under: the sanitized tag query for search
// runs, or a stable synthetic label for post/pool ingest modes (which
// have no tag query of their own).
func queryLabel(opts Options) string {
	switch opts.Mode {
	case ModePost:
		return "posts"
	case ModePool:
		return fmt.Sprintf("pool_%d", opts.PoolID)
	default:
		return helpers.JoinTagQuery(opts.Tags)
	}
}

// indexingSink decorates a filesystem Sink so every successful Commit
// also projects the post into the local search index, keeping annotation
// a wrapping concern rather than something the Sink variants know about.
// Only valid over *sink.FS: the archive sink's entries live inside a zip,
// so there is no meaningful on-disk Path to index against (and Annotate
// is disabled whenever --cbz is set).
type indexingSink struct {
	downloader.Sink
	idx bleve.Index
	fs  *sink.FS
}

func (s *indexingSink) Commit(ctx context.Context, post model.Post, tagQuery, name string, r io.Reader) (int64, error) {
	size, err := s.Sink.Commit(ctx, post, tagQuery, name, r)
	if err != nil {
		return size, err
	}
	if indexErr := searchindex.IndexPost(s.idx, post, s.fs.Path(post, tagQuery, name)); indexErr != nil {
		log.WithError(indexErr).Warn("pipeline: failed to index committed post")
	}
	return size, nil
}
