package tui

import (
	"fmt"
	"strings"

	"postershelf/imaging"

	"github.com/charmbracelet/lipgloss"
)

// halfBlock draws two vertically stacked pixels in one cell: the glyph
// takes the top colour, the cell background the bottom one.
const halfBlock = "▀"

type posterKey struct {
	url           string
	width, height int
}

// PosterRenderer turns decoded posters into terminal art. It is only used
// from the render loop, so its memo needs no locking.
type PosterRenderer struct {
	rendered   map[posterKey]string
	generation uint64
}

func NewPosterRenderer() *PosterRenderer {
	return &PosterRenderer{rendered: make(map[posterKey]string)}
}

// Render draws img in at most width x height cells. generation is the
// poster cache generation; a change drops every memoized rendering.
func (pr *PosterRenderer) Render(url string, img *imaging.Image, width, height int, generation uint64) string {
	if generation != pr.generation {
		pr.rendered = make(map[posterKey]string)
		pr.generation = generation
	}

	key := posterKey{url: url, width: width, height: height}
	if out, ok := pr.rendered[key]; ok {
		return out
	}

	out := renderHalfBlocks(imaging.Thumbnail(img, width, height*2))
	pr.rendered[key] = out
	return out
}

func renderHalfBlocks(img *imaging.Image) string {
	var b strings.Builder
	for y := 0; y < img.Height; y += 2 {
		for x := 0; x < img.Width; x++ {
			top := hexColor(img, x, y)
			style := lipgloss.NewStyle().Foreground(top)
			if y+1 < img.Height {
				style = style.Background(hexColor(img, x, y+1))
			}
			b.WriteString(style.Render(halfBlock))
		}
		if y+2 < img.Height {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// hexColor flattens a pixel onto the panel background.
func hexColor(img *imaging.Image, x, y int) lipgloss.Color {
	px := img.At(x, y)
	a := uint32(px.A)
	blend := func(c, bg uint8) uint8 {
		return uint8((uint32(c)*a + uint32(bg)*(255-a)) / 255)
	}
	return lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", blend(px.R, 0x1F), blend(px.G, 0x29), blend(px.B, 0x37)))
}

func PosterPlaceholder(theme *Theme, width, height int, loading bool) string {
	text := IconImage + " No poster"
	if loading {
		text = IconPending + " Loading poster"
	}
	return theme.PlaceholderStyle.
		Width(max(width-2, 1)).
		Height(max(height-2, 1)).
		Render(text)
}
