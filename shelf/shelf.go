package shelf

import (
	"context"
	"sync"

	"postershelf/cache"
	"postershelf/catalog"
	"postershelf/config"
	"postershelf/fetcher"
	"postershelf/imaging"

	"github.com/sirupsen/logrus"
)

// Shelf is the application context: the poster cache, the catalog on
// display and the machinery that fills them. One Shelf lives for the whole
// process and is handed to the UI and commands.
type Shelf struct {
	cfg *config.Config

	Cache      *cache.Cache
	Catalog    *catalog.Catalog
	Client     *fetcher.Client
	Dispatcher *fetcher.Dispatcher
	Loader     *catalog.Loader

	mu       sync.RWMutex
	selected string
}

func New(cfg *config.Config, redrawer fetcher.Redrawer) *Shelf {
	client := fetcher.NewClient(fetcher.ClientOptions{
		Timeout:     cfg.Timeout(),
		UserAgent:   cfg.UserAgent,
		MaxInFlight: cfg.MaxInFlight,
	})
	c := cache.New()
	dispatcher := fetcher.NewDispatcher(client, c, redrawer, fetcher.DispatcherOptions{
		KeepStale: cfg.KeepStalePosters,
		MaxPixels: cfg.MaxPosterPixels,
	})

	return &Shelf{
		cfg:        cfg,
		Cache:      c,
		Catalog:    catalog.New(),
		Client:     client,
		Dispatcher: dispatcher,
		Loader:     catalog.NewLoader(client, dispatcher),
	}
}

func (s *Shelf) Config() *config.Config {
	return s.cfg
}

func (s *Shelf) Categories() []string {
	return s.cfg.CategoryNames()
}

func (s *Shelf) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Select switches to category (a configured name or an absolute URL). The
// catalog and the poster cache are cleared before the new load starts, so
// nothing from the previous selection lingers and a failed load leaves an
// empty catalog. Fetches still in flight for the old selection are not
// cancelled.
func (s *Shelf) Select(ctx context.Context, category string, onProgress func(catalog.Progress)) error {
	url, err := s.cfg.CategoryURL(category)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.selected = category
	s.mu.Unlock()

	s.Catalog.Clear()
	s.Cache.Clear()

	logrus.WithFields(logrus.Fields{"category": category, "url": url}).Info("loading catalog")
	s.Loader.Load(ctx, url, s.Catalog, onProgress)
	return nil
}

// SelectSync is Select for the CLI: it blocks until the catalog is published
// and, when waitPosters is set, until every poster fetch has finished.
func (s *Shelf) SelectSync(ctx context.Context, category string, waitPosters bool) (int, error) {
	done := make(chan catalog.Progress, 1)
	if err := s.Select(ctx, category, func(p catalog.Progress) {
		if p.Done {
			done <- p
		}
	}); err != nil {
		return 0, err
	}

	var p catalog.Progress
	select {
	case p = <-done:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	if p.Err != nil {
		return 0, p.Err
	}
	if waitPosters {
		s.Dispatcher.Wait()
	}
	return p.Loaded, nil
}

func (s *Shelf) Poster(e catalog.Entry) (*imaging.Image, bool) {
	return s.Cache.Get(e.Poster)
}

// Fetch retrieves a single URL and describes it, for the fetch command.
func (s *Shelf) Fetch(ctx context.Context, url string) (fetcher.Resource, error) {
	resp, err := s.Client.Get(ctx, url)
	if err != nil {
		return fetcher.Resource{}, err
	}
	return fetcher.Inspect(resp), nil
}
