package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"strings"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrNotImage is returned when the content type hint or the payload's magic
// number says the body is not an image. No decoding is attempted.
var ErrNotImage = errors.New("payload is not an image")

// ErrTooLarge is wrapped in a *DecodeError when an image header declares
// more pixels than the decoder is allowed to allocate.
var ErrTooLarge = errors.New("image dimensions exceed limit")

// DefaultMaxPixels bounds Decode. 40 megapixels is roughly 160 MiB of RGBA.
const DefaultMaxPixels = 40_000_000

type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("decode %s image: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Image is a decoded bitmap in straight (non-premultiplied) 8-bit RGBA,
// row major, with no padding between rows.
type Image struct {
	Width  int
	Height int
	Pix    []byte
}

// At returns the pixel at (x, y). Coordinates outside the bitmap are clamped
// to the nearest edge.
func (img *Image) At(x, y int) color.NRGBA {
	x = min(max(x, 0), img.Width-1)
	y = min(max(y, 0), img.Height-1)
	i := (y*img.Width + x) * 4
	return color.NRGBA{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2], A: img.Pix[i+3]}
}

// NRGBA exposes the bitmap as an image.Image without copying the pixels.
func (img *Image) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    img.Pix,
		Stride: img.Width * 4,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}
}

func (img *Image) Bytes() int {
	return len(img.Pix)
}

// IsImageContentType reports whether a Content-Type header value names an
// image media type. Parameters such as charset are ignored.
func IsImageContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	return strings.HasPrefix(strings.ToLower(mediaType), "image/")
}

func Decode(data []byte, contentType string) (*Image, error) {
	return DecodeLimit(data, contentType, DefaultMaxPixels)
}

// DecodeLimit is Decode with an explicit pixel budget. The header is read
// first and images above maxPixels fail before any pixel is allocated.
// maxPixels <= 0 disables the check.
func DecodeLimit(data []byte, contentType string, maxPixels int64) (*Image, error) {
	if contentType != "" && !IsImageContentType(contentType) {
		return nil, ErrNotImage
	}
	if len(data) == 0 {
		return nil, &DecodeError{Err: errors.New("empty payload")}
	}

	// Without a hint, only a positively identified non-image payload is
	// rejected early; unknown data still goes through the decoders.
	kind, _ := filetype.Match(data)
	if contentType == "" && kind != filetype.Unknown && !filetype.IsImage(data) {
		return nil, ErrNotImage
	}

	failed := func(err error) error {
		decodeErr := &DecodeError{Err: err}
		if kind != filetype.Unknown {
			decodeErr.Format = kind.Extension
		}
		return decodeErr
	}

	if maxPixels > 0 {
		cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, failed(err)
		}
		if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
			return nil, &DecodeError{Format: format, Err: fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)}
		}
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, failed(err)
	}

	bounds := src.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, &DecodeError{Format: format, Err: fmt.Errorf("invalid dimensions %dx%d", bounds.Dx(), bounds.Dy())}
	}

	return fromImage(src), nil
}

func fromImage(src image.Image) *Image {
	bounds := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	return &Image{Width: dst.Rect.Dx(), Height: dst.Rect.Dy(), Pix: dst.Pix}
}
