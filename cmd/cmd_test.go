package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"postershelf/catalog"
	"postershelf/config"
	"postershelf/fetcher"
	"postershelf/imaging"
	"postershelf/shelf"

	"github.com/google/go-cmp/cmp"
)

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 2, 3))); err != nil {
		t.Fatal(err)
	}
	poster := buf.Bytes()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movies/action":
			fmt.Fprintf(w, `[
				{"title":"Heat","poster":"%[1]s/posters/heat.png","release_date":818035200},
				{"title":"Ronin","poster":"%[1]s/posters/missing.png","release_date":906681599}
			]`, srv.URL)
		case "/movies/comedy":
			fmt.Fprint(w, `{"not":"an array"}`)
		case "/posters/heat.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(poster)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(srv *httptest.Server) *config.Config {
	cfg := config.DefaultConfig()
	cfg.CatalogBaseURL = srv.URL
	return cfg
}

func TestCatalogRows(t *testing.T) {
	srv := newCatalogServer(t)
	s := shelf.New(testConfig(srv), nil)

	if _, err := s.SelectSync(context.Background(), "action", true); err != nil {
		t.Fatalf("SelectSync: %v", err)
	}

	got := catalogRows(s)
	want := []catalogRow{
		{Title: "Heat", IssueDate: "1995-12-04", Poster: srv.URL + "/posters/heat.png", Cached: true, Width: 2, Height: 3},
		{Title: "Ronin", IssueDate: "1998-09-24", Poster: srv.URL + "/posters/missing.png"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCatalogTable(t *testing.T) {
	rows := []catalogRow{
		{Title: "Heat", IssueDate: "1995-12-04", Cached: true, Width: 2, Height: 3},
		{Title: "Ronin", IssueDate: "1998-09-24"},
	}

	var buf bytes.Buffer
	writeCatalogTable(&buf, rows, false)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "TITLE") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "1995-12-04") || !strings.HasSuffix(lines[1], "2x3") {
		t.Errorf("cached row = %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "missing") {
		t.Errorf("missing row = %q", lines[2])
	}
}

func TestWriteCatalog_KeysMatchEntry(t *testing.T) {
	rows := []catalogRow{{Title: "Heat", IssueDate: "1995-12-04", Poster: "p"}}
	entry, err := json.Marshal(catalog.Entry{Title: "Heat", IssueDate: "1995-12-04", Poster: "p"})
	if err != nil {
		t.Fatal(err)
	}
	var entryKeys map[string]any
	if err := json.Unmarshal(entry, &entryKeys); err != nil {
		t.Fatal(err)
	}

	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeCatalog(&buf, rows, format, false); err != nil {
				t.Fatalf("writeCatalog() error = %v", err)
			}
			for key := range entryKeys {
				if !strings.Contains(buf.String(), key) {
					t.Errorf("%s output lacks entry key %q:\n%s", format, key, buf.String())
				}
			}
			if strings.Contains(buf.String(), "issueDate") {
				t.Errorf("%s output uses issueDate:\n%s", format, buf.String())
			}
		})
	}
}

func TestRunCheck(t *testing.T) {
	srv := newCatalogServer(t)
	cfg := testConfig(srv)

	got := runCheck(context.Background(), cfg, []string{"action", "comedy", "nope"})
	want := checkSummary{categories: 3, entries: 2, posters: 1, errors: 2}
	if got != want {
		t.Errorf("runCheck = %+v, want %+v", got, want)
	}
}

func TestWriteResource(t *testing.T) {
	res := fetcher.Resource{
		URL:         "http://example.test/readme",
		StatusCode:  200,
		Status:      "200 OK",
		ContentType: "text/plain",
		Size:        11,
		Headers:     []fetcher.Header{{Name: "Content-Type", Value: "text/plain"}},
		Text:        "hello world",
		IsText:      true,
	}

	var buf bytes.Buffer
	writeResource(&buf, res, true, true)
	out := buf.String()

	for _, want := range []string{"http://example.test/readme", "200 OK", "text/plain", "11 B", "Content-Type:", "hello world"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "[binary]") {
		t.Errorf("text body reported as binary:\n%s", out)
	}
}

func TestWriteResource_Image(t *testing.T) {
	res := fetcher.Resource{
		Status: "200 OK",
		Size:   68,
		Image:  &imaging.Image{Width: 2, Height: 3, Pix: make([]byte, 24)},
	}

	var buf bytes.Buffer
	writeResource(&buf, res, false, true)
	if !strings.Contains(buf.String(), "2x3 RGBA") {
		t.Errorf("image line missing:\n%s", buf.String())
	}
}

func TestWriteResourceJSON(t *testing.T) {
	res := fetcher.Resource{
		URL:        "http://example.test/poster.png",
		StatusCode: 200,
		Size:       4,
		Headers:    []fetcher.Header{{Name: "Content-Type", Value: "image/png"}},
		DecodeErr:  errors.New("truncated"),
	}

	var buf bytes.Buffer
	if err := writeResourceJSON(&buf, res); err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, buf.String())
	}
	want := map[string]any{
		"url":         "http://example.test/poster.png",
		"status":      float64(200),
		"contentType": "",
		"size":        float64(4),
		"headers":     map[string]any{"Content-Type": "image/png"},
		"decodeError": "truncated",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("json mismatch (-want +got):\n%s", diff)
	}
}
