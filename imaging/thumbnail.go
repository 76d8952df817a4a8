package imaging

import (
	"image"

	"golang.org/x/image/draw"
)

// Thumbnail scales img to fit inside maxWidth x maxHeight, keeping the aspect
// ratio. Images that already fit are returned unchanged.
func Thumbnail(img *Image, maxWidth, maxHeight int) *Image {
	if img == nil || maxWidth <= 0 || maxHeight <= 0 {
		return img
	}
	if img.Width <= maxWidth && img.Height <= maxHeight {
		return img
	}

	w, h := fit(img.Width, img.Height, maxWidth, maxHeight)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img.NRGBA(), image.Rect(0, 0, img.Width, img.Height), draw.Src, nil)

	return &Image{Width: w, Height: h, Pix: dst.Pix}
}

func fit(width, height, maxWidth, maxHeight int) (int, int) {
	w, h := maxWidth, height*maxWidth/width
	if h > maxHeight {
		w, h = width*maxHeight/height, maxHeight
	}
	return max(w, 1), max(h, 1)
}
