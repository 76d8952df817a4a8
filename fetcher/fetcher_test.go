package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"postershelf/cache"
	"postershelf/imaging"

	"github.com/google/go-cmp/cmp"
)

func pngBytes(t *testing.T, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

// newPosterServer serves /good/N as PNGs, /bad/N as corrupt image bodies,
// /text/N as HTML and anything else as 404.
func newPosterServer(t *testing.T) *httptest.Server {
	t.Helper()
	good := pngBytes(t, color.NRGBA{R: 50, G: 60, B: 70, A: 255})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/good/"):
			w.Header().Set("Content-Type", "image/png")
			w.Write(good)
		case strings.HasPrefix(r.URL.Path, "/bad/"):
			w.Header().Set("Content-Type", "image/png")
			w.Write(good[:len(good)/3])
		case strings.HasPrefix(r.URL.Path, "/text/"):
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<html>not a poster</html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Get(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("X-Test", "yes")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{UserAgent: "shelf-test"})
	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if gotUA != "shelf-test" {
		t.Errorf("User-Agent = %q, want %q", gotUA, "shelf-test")
	}
	if !resp.OK() || resp.CheckStatus() != nil {
		t.Errorf("status %d should be OK", resp.StatusCode)
	}
	if string(resp.Bytes) != "hello" || resp.ContentType() != "text/plain" {
		t.Errorf("response = %q (%s)", resp.Bytes, resp.ContentType())
	}
}

func TestClient_GetTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(ClientOptions{Timeout: time.Second}).Get(context.Background(), url)
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Get() error = %v, want *TransportError", err)
	}
	if transportErr.URL != url {
		t.Errorf("TransportError.URL = %q, want %q", transportErr.URL, url)
	}
}

func TestResponse_CheckStatus(t *testing.T) {
	resp := &Response{URL: "http://x", StatusCode: 404, Status: "404 Not Found"}
	var statusErr *StatusError
	if err := resp.CheckStatus(); !errors.As(err, &statusErr) || statusErr.StatusCode != 404 {
		t.Errorf("CheckStatus() = %v, want *StatusError 404", err)
	}
}

func TestClient_GetAsyncRespectsMaxInFlight(t *testing.T) {
	var current, peak int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&current, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&current, -1)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{MaxInFlight: 2})
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		c.GetAsync(context.Background(), fmt.Sprintf("%s/%d", srv.URL, i), func(*Response, error) {
			wg.Done()
		})
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if p := atomic.LoadInt32(&peak); p > 2 {
		t.Errorf("peak in-flight = %d, want <= 2", p)
	}
}

func TestDispatcher_CachesOnlyDecodedImages(t *testing.T) {
	srv := newPosterServer(t)
	c := cache.New()
	var redraws int32
	d := NewDispatcher(NewClient(ClientOptions{}), c, RedrawFunc(func() {
		atomic.AddInt32(&redraws, 1)
	}), DispatcherOptions{})

	var keys, want []string
	for i := 0; i < 8; i++ {
		for _, kind := range []string{"good", "bad", "text", "missing"} {
			key := fmt.Sprintf("%s/%s/%d", srv.URL, kind, i)
			keys = append(keys, key)
			if kind == "good" {
				want = append(want, key)
			}
		}
	}

	var mu sync.Mutex
	results := map[string]Result{}
	for _, key := range keys {
		d.Fetch(context.Background(), key, func(res Result) {
			mu.Lock()
			results[res.Key] = res
			mu.Unlock()
		})
	}

	stop := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			for _, key := range keys {
				if img, ok := c.Get(key); ok && len(img.Pix) != 4*img.Width*img.Height {
					t.Errorf("torn cache entry for %s", key)
				}
			}
		}
	}()

	d.Wait()
	close(stop)
	<-readerDone

	if diff := cmp.Diff(sortedCopy(want), c.Keys()); diff != "" {
		t.Errorf("cached keys mismatch (-want +got):\n%s", diff)
	}
	if got := atomic.LoadInt32(&redraws); int(got) != len(keys) {
		t.Errorf("redraws = %d, want one per completion (%d)", got, len(keys))
	}
	if len(results) != len(keys) {
		t.Fatalf("onComplete ran for %d keys, want %d", len(results), len(keys))
	}

	for key, res := range results {
		switch {
		case strings.Contains(key, "/good/"):
			if !res.Cached || res.Err != nil {
				t.Errorf("%s: Cached=%v Err=%v, want cached", key, res.Cached, res.Err)
			}
		case strings.Contains(key, "/bad/"):
			var decodeErr *imaging.DecodeError
			if !errors.As(res.Err, &decodeErr) {
				t.Errorf("%s: Err = %v, want *imaging.DecodeError", key, res.Err)
			}
		case strings.Contains(key, "/text/"):
			if !errors.Is(res.Err, imaging.ErrNotImage) {
				t.Errorf("%s: Err = %v, want ErrNotImage", key, res.Err)
			}
		default:
			var statusErr *StatusError
			if !errors.As(res.Err, &statusErr) {
				t.Errorf("%s: Err = %v, want *StatusError", key, res.Err)
			}
		}
	}
}

func TestDispatcher_CacheWriteHappensBeforeRedraw(t *testing.T) {
	srv := newPosterServer(t)
	c := cache.New()
	key := srv.URL + "/good/1"

	seen := make(chan bool, 1)
	d := NewDispatcher(NewClient(ClientOptions{}), c, RedrawFunc(func() {
		_, ok := c.Get(key)
		seen <- ok
	}), DispatcherOptions{})

	d.Fetch(context.Background(), key, nil)
	d.Wait()

	if !<-seen {
		t.Error("redraw was requested before the image reached the cache")
	}
}

func TestDispatcher_TransportFailureStillRedraws(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/gone.png"
	srv.Close()

	c := cache.New()
	var redraws int32
	d := NewDispatcher(NewClient(ClientOptions{Timeout: time.Second}), c, RedrawFunc(func() {
		atomic.AddInt32(&redraws, 1)
	}), DispatcherOptions{})

	var got Result
	d.Fetch(context.Background(), url, func(res Result) { got = res })
	d.Wait()

	var transportErr *TransportError
	if !errors.As(got.Err, &transportErr) {
		t.Errorf("Err = %v, want *TransportError", got.Err)
	}
	if c.Len() != 0 {
		t.Errorf("cache has %d entries after transport failure", c.Len())
	}
	if atomic.LoadInt32(&redraws) != 1 {
		t.Errorf("redraws = %d, want 1", redraws)
	}
}

func TestDispatcher_StaleCompletionAfterClear(t *testing.T) {
	good := pngBytes(t, color.NRGBA{A: 255})

	tests := []struct {
		name       string
		keepStale  bool
		wantCached bool
	}{
		{"generation guarded", false, false},
		{"accepted race", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := make(chan struct{})
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				<-gate
				w.Header().Set("Content-Type", "image/png")
				w.Write(good)
			}))
			defer srv.Close()

			c := cache.New()
			d := NewDispatcher(NewClient(ClientOptions{}), c, nil, DispatcherOptions{KeepStale: tt.keepStale})
			key := srv.URL + "/slow.png"

			var got Result
			d.Fetch(context.Background(), key, func(res Result) { got = res })
			c.Clear()
			close(gate)
			d.Wait()

			if got.Cached != tt.wantCached {
				t.Errorf("Cached = %v, want %v", got.Cached, tt.wantCached)
			}
			if _, ok := c.Get(key); ok != tt.wantCached {
				t.Errorf("cache entry present = %v, want %v", ok, tt.wantCached)
			}
			if !tt.keepStale && !got.Stale {
				t.Error("Stale should be reported for a dropped write")
			}
		})
	}
}

func TestInspect(t *testing.T) {
	pngData := pngBytes(t, color.NRGBA{R: 1, A: 255})

	tests := []struct {
		name      string
		resp      *Response
		wantText  bool
		wantImage bool
	}{
		{
			name: "text",
			resp: &Response{URL: "u", StatusCode: 200, Status: "200 OK",
				Headers: http.Header{"Content-Type": {"text/markdown"}, "X-B": {"1", "2"}},
				Bytes:   []byte("# readme")},
			wantText: true,
		},
		{
			name: "image",
			resp: &Response{URL: "u", StatusCode: 200, Status: "200 OK",
				Headers: http.Header{"Content-Type": {"image/png"}}, Bytes: pngData},
			wantImage: true,
		},
		{
			name: "binary",
			resp: &Response{URL: "u", StatusCode: 200, Status: "200 OK",
				Headers: http.Header{"Content-Type": {"application/octet-stream"}}, Bytes: []byte{0xff, 0xfe, 0x00}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Inspect(tt.resp)
			if r.IsText != tt.wantText {
				t.Errorf("IsText = %v, want %v", r.IsText, tt.wantText)
			}
			if (r.Image != nil) != tt.wantImage {
				t.Errorf("Image present = %v, want %v (err %v)", r.Image != nil, tt.wantImage, r.DecodeErr)
			}
			if r.Size != len(tt.resp.Bytes) {
				t.Errorf("Size = %d, want %d", r.Size, len(tt.resp.Bytes))
			}
		})
	}

	r := Inspect(tests[0].resp)
	want := []Header{{Name: "Content-Type", Value: "text/markdown"}, {Name: "X-B", Value: "1, 2"}}
	if diff := cmp.Diff(want, r.Headers); diff != "" {
		t.Errorf("Headers mismatch (-want +got):\n%s", diff)
	}
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func TestDispatcher_PendingTracksInFlightFetches(t *testing.T) {
	gate := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-gate
		http.NotFound(w, r)
	}))
	defer srv.Close()

	d := NewDispatcher(NewClient(ClientOptions{}), cache.New(), nil, DispatcherOptions{})
	key := srv.URL + "/slow.png"
	d.Fetch(context.Background(), key, nil)

	if !d.Pending(key) || d.InFlight() != 1 {
		t.Errorf("Pending=%v InFlight=%d while the request is blocked", d.Pending(key), d.InFlight())
	}

	close(gate)
	d.Wait()

	if d.Pending(key) || d.InFlight() != 0 {
		t.Errorf("Pending=%v InFlight=%d after completion", d.Pending(key), d.InFlight())
	}
}

func TestDispatcher_FetchAtOldGenerationNeverCaches(t *testing.T) {
	good := pngBytes(t, color.NRGBA{G: 255, A: 255})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(good)
	}))
	defer srv.Close()

	c := cache.New()
	d := NewDispatcher(NewClient(ClientOptions{}), c, nil, DispatcherOptions{})
	gen := d.Generation()
	c.Clear()

	var got Result
	d.FetchAt(context.Background(), gen, srv.URL+"/old.png", func(res Result) { got = res })
	d.Wait()

	if got.Cached || !got.Stale {
		t.Errorf("Cached=%v Stale=%v, want a dropped stale write", got.Cached, got.Stale)
	}
	if keys := c.Keys(); len(keys) != 0 {
		t.Errorf("cache keys = %v, want none", keys)
	}
}

func TestDispatcher_WaitOverlapsNewFetches(t *testing.T) {
	gate := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-gate
		http.NotFound(w, r)
	}))
	defer srv.Close()

	d := NewDispatcher(NewClient(ClientOptions{}), cache.New(), nil, DispatcherOptions{})
	var completed atomic.Int32
	onComplete := func(Result) { completed.Add(1) }

	d.Fetch(context.Background(), srv.URL+"/a.png", onComplete)

	waited := make(chan struct{})
	go func() {
		d.Wait()
		close(waited)
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d.Fetch(context.Background(), fmt.Sprintf("%s/%d.png", srv.URL, i), onComplete)
		}(i)
	}
	wg.Wait()

	select {
	case <-waited:
		t.Fatal("Wait returned while fetches were blocked")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after the fetches completed")
	}
	if got := completed.Load(); got != 9 {
		t.Errorf("completed = %d, want 9", got)
	}
}

func TestDispatcher_MaxPixelsRejectsLargePosters(t *testing.T) {
	good := pngBytes(t, color.NRGBA{B: 255, A: 255})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(good)
	}))
	defer srv.Close()

	c := cache.New()
	d := NewDispatcher(NewClient(ClientOptions{}), c, nil, DispatcherOptions{MaxPixels: 3})

	var got Result
	d.Fetch(context.Background(), srv.URL+"/big.png", func(res Result) { got = res })
	d.Wait()

	if !errors.Is(got.Err, imaging.ErrTooLarge) {
		t.Errorf("Err = %v, want ErrTooLarge", got.Err)
	}
	if c.Len() != 0 {
		t.Errorf("cache holds %d entries, want 0", c.Len())
	}
}
