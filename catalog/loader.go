package catalog

import (
	"context"
	"errors"

	"postershelf/fetcher"

	"github.com/sirupsen/logrus"
)

// ErrSuperseded is reported when the target catalog was cleared by a newer
// selection before this load could publish its entries.
var ErrSuperseded = errors.New("catalog load superseded")

type Getter interface {
	GetAsync(ctx context.Context, url string, done func(*fetcher.Response, error))
}

// PosterFetcher dispatches poster downloads bound to a cache generation.
type PosterFetcher interface {
	Generation() uint64
	FetchAt(ctx context.Context, gen uint64, key string, onComplete func(fetcher.Result))
}

type Progress struct {
	URL string
	// Entry is the entry just appended; nil on the terminal event.
	Entry  *Entry
	Loaded int
	Total  int
	Done   bool
	Err    error
}

type Loader struct {
	getter  Getter
	posters PosterFetcher
}

func NewLoader(getter Getter, posters PosterFetcher) *Loader {
	return &Loader{getter: getter, posters: posters}
}

// Load fetches and parses url in the background, then appends every entry
// to target and dispatches its poster fetch. onProgress, which may be nil,
// sees one event per appended entry and exactly one terminal event with
// Done set. A transport, status or parse failure publishes nothing.
//
// Load does not clear target; callers that switch catalogs clear it and the
// poster cache first, so a failed load leaves the catalog empty. Both
// generations are captured here, before Load returns: posters of this load
// are never cached once either has moved on.
func (l *Loader) Load(ctx context.Context, url string, target *Catalog, onProgress func(Progress)) {
	if onProgress == nil {
		onProgress = func(Progress) {}
	}
	gen := target.Generation()
	posterGen := l.posters.Generation()

	l.getter.GetAsync(ctx, url, func(resp *fetcher.Response, err error) {
		entries, err := l.parse(resp, err)
		if err != nil {
			logrus.WithError(err).WithField("url", url).Warn("catalog load failed")
			onProgress(Progress{URL: url, Done: true, Err: err})
			return
		}

		for i := range entries {
			e := entries[i]
			if !target.AppendAt(gen, e) {
				logrus.WithField("url", url).Debug("catalog cleared during load, dropping remaining entries")
				onProgress(Progress{URL: url, Loaded: i, Total: len(entries), Done: true, Err: ErrSuperseded})
				return
			}
			l.posters.FetchAt(ctx, posterGen, e.Poster, nil)
			onProgress(Progress{URL: url, Entry: &e, Loaded: i + 1, Total: len(entries)})
		}

		logrus.WithFields(logrus.Fields{"url": url, "entries": len(entries)}).Info("catalog loaded")
		onProgress(Progress{URL: url, Loaded: len(entries), Total: len(entries), Done: true})
	})
}

// LoadSync is Load for callers that can block: it returns once the catalog
// is published (or failed). Poster fetches may still be in flight.
func (l *Loader) LoadSync(ctx context.Context, url string, target *Catalog) (int, error) {
	type outcome struct {
		n   int
		err error
	}
	done := make(chan outcome, 1)
	l.Load(ctx, url, target, func(p Progress) {
		if p.Done {
			done <- outcome{n: p.Loaded, err: p.Err}
		}
	})

	select {
	case o := <-done:
		return o.n, o.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (l *Loader) parse(resp *fetcher.Response, err error) ([]Entry, error) {
	if err != nil {
		return nil, err
	}
	if err := resp.CheckStatus(); err != nil {
		return nil, err
	}
	return Parse(resp.Bytes)
}
