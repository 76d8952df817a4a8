package fetcher

import (
	"sort"
	"strings"
	"unicode/utf8"

	"postershelf/imaging"
)

type Header struct {
	Name  string
	Value string
}

// Resource describes an arbitrary fetched URL: its response metadata plus
// the body as text or as a decoded image, whichever applies.
type Resource struct {
	URL         string
	StatusCode  int
	Status      string
	ContentType string
	Size        int
	Headers     []Header
	Text        string
	IsText      bool
	Image       *imaging.Image
	DecodeErr   error
}

func Inspect(resp *Response) Resource {
	r := Resource{
		URL:         resp.URL,
		StatusCode:  resp.StatusCode,
		Status:      resp.Status,
		ContentType: resp.ContentType(),
		Size:        len(resp.Bytes),
	}

	names := make([]string, 0, len(resp.Headers))
	for name := range resp.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.Headers = append(r.Headers, Header{Name: name, Value: strings.Join(resp.Headers[name], ", ")})
	}

	if imaging.IsImageContentType(r.ContentType) {
		r.Image, r.DecodeErr = imaging.Decode(resp.Bytes, r.ContentType)
		return r
	}

	if utf8.Valid(resp.Bytes) {
		r.Text = string(resp.Bytes)
		r.IsText = true
	}
	return r
}
