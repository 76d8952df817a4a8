package fetcher

// Redrawer is told that the render loop should repaint at its next
// opportunity. Implementations must be safe to call from any goroutine.
type Redrawer interface {
	RequestRedraw()
}

type RedrawFunc func()

func (f RedrawFunc) RequestRedraw() {
	f()
}

type nopRedrawer struct{}

func (nopRedrawer) RequestRedraw() {}

var NopRedrawer Redrawer = nopRedrawer{}
