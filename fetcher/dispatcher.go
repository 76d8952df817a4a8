package fetcher

import (
	"context"
	"errors"
	"sync"

	"postershelf/cache"
	"postershelf/imaging"

	"github.com/sirupsen/logrus"
)

type Result struct {
	Key    string
	Image  *imaging.Image
	Cached bool
	// Stale is set when the image decoded fine but the cache was cleared
	// while the request was in flight.
	Stale bool
	Err   error
}

type DispatcherOptions struct {
	// KeepStale restores the plain first-writer-wins behaviour: a fetch
	// that completes after Cache.Clear still populates the cache.
	KeepStale bool
	// MaxPixels caps decoded poster size; zero means imaging.DefaultMaxPixels.
	MaxPixels int64
}

// Dispatcher turns resource keys into cached images with fire-and-forget
// requests. Fetches are never retried or cancelled.
type Dispatcher struct {
	client    *Client
	cache     *cache.Cache
	redrawer  Redrawer
	keepStale bool
	maxPixels int64

	mu      sync.Mutex
	idle    *sync.Cond
	active  int
	pending map[string]int
}

func NewDispatcher(client *Client, c *cache.Cache, redrawer Redrawer, opts DispatcherOptions) *Dispatcher {
	if redrawer == nil {
		redrawer = NopRedrawer
	}
	if opts.MaxPixels == 0 {
		opts.MaxPixels = imaging.DefaultMaxPixels
	}
	d := &Dispatcher{
		client:    client,
		cache:     c,
		redrawer:  redrawer,
		keepStale: opts.KeepStale,
		maxPixels: opts.MaxPixels,
		pending:   make(map[string]int),
	}
	d.idle = sync.NewCond(&d.mu)
	return d
}

// Generation is the cache generation new fetches would be bound to.
func (d *Dispatcher) Generation() uint64 {
	return d.cache.Generation()
}

// Fetch starts a background request for key bound to the current cache
// generation and returns immediately. See FetchAt.
func (d *Dispatcher) Fetch(ctx context.Context, key string, onComplete func(Result)) {
	d.FetchAt(ctx, d.cache.Generation(), key, onComplete)
}

// FetchAt starts a background request for key and returns immediately. The
// decoded image is only cached if the cache is still at generation gen, so
// callers that capture gen when their catalog was created never write into
// a cache cleared for a later one. When it completes the image, if any, is
// in the cache before the redraw is requested, and onComplete (which may be
// nil) runs last.
func (d *Dispatcher) FetchAt(ctx context.Context, gen uint64, key string, onComplete func(Result)) {
	d.mu.Lock()
	d.active++
	d.pending[key]++
	d.mu.Unlock()

	d.client.GetAsync(ctx, key, func(resp *Response, err error) {
		res := d.complete(gen, key, resp, err)
		d.track(key, -1)
		d.redrawer.RequestRedraw()
		if onComplete != nil {
			onComplete(res)
		}

		d.mu.Lock()
		d.active--
		if d.active == 0 {
			d.idle.Broadcast()
		}
		d.mu.Unlock()
	})
}

// Wait blocks until no fetch is in flight. It may be called while other
// goroutines are still starting fetches; it then also waits for those that
// start before the count reaches zero.
func (d *Dispatcher) Wait() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.active > 0 {
		d.idle.Wait()
	}
}

// Pending reports whether a fetch for key is still in flight.
func (d *Dispatcher) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending[key] > 0
}

func (d *Dispatcher) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.pending {
		n += c
	}
	return n
}

func (d *Dispatcher) track(key string, delta int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[key] += delta
	if d.pending[key] <= 0 {
		delete(d.pending, key)
	}
}

func (d *Dispatcher) complete(gen uint64, key string, resp *Response, err error) Result {
	res := Result{Key: key}
	log := logrus.WithField("url", key)

	if err != nil {
		log.WithError(err).Warn("poster fetch failed")
		res.Err = err
		return res
	}
	if err := resp.CheckStatus(); err != nil {
		log.WithError(err).Warn("poster fetch failed")
		res.Err = err
		return res
	}

	img, err := imaging.DecodeLimit(resp.Bytes, resp.ContentType(), d.maxPixels)
	if err != nil {
		if errors.Is(err, imaging.ErrNotImage) {
			log.WithField("content_type", resp.ContentType()).Debug("not an image, skipping cache")
		} else {
			log.WithError(err).Debug("poster decode failed")
		}
		res.Err = err
		return res
	}
	res.Image = img

	if d.keepStale {
		res.Cached = d.cache.InsertIfAbsent(key, img)
	} else {
		res.Cached = d.cache.InsertIfAbsentAt(gen, key, img)
		res.Stale = !res.Cached && d.cache.Generation() != gen
	}

	log.WithFields(logrus.Fields{
		"width":  img.Width,
		"height": img.Height,
		"cached": res.Cached,
	}).Debug("poster decoded")

	return res
}
