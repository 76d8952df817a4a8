package tui

type Layout struct {
	WindowWidth  int
	WindowHeight int
	Breakpoints  LayoutBreakpoints
}

type LayoutBreakpoints struct {
	MinWidth       int
	MinHeight      int
	StandardWidth  int
	StandardHeight int
}

type AdaptiveLayout struct {
	LeftPanelWidth   int
	MiddlePanelWidth int
	RightPanelWidth  int
	ContentHeight    int
	PosterMaxWidth   int
	PosterMaxHeight  int
	ShowPoster       bool
}

func NewLayout() *Layout {
	return &Layout{
		Breakpoints: LayoutBreakpoints{
			MinWidth:       60,
			MinHeight:      20,
			StandardWidth:  120,
			StandardHeight: 35,
		},
	}
}

func (l *Layout) Update(width, height int) {
	l.WindowWidth = width
	l.WindowHeight = height
}

// Calculate splits the window into the category, catalog and poster panels.
// posterWidth and posterHeight are the preferred poster size in cells.
func (l *Layout) Calculate(posterWidth, posterHeight int) AdaptiveLayout {
	leftPanelWidth := min(max(l.WindowWidth/5, 18), 30)

	posterPanelWidth := 0
	posterMaxWidth := 0
	posterMaxHeight := 0

	if l.WindowWidth >= 90 {
		posterPanelWidth = min(posterWidth+6, l.WindowWidth/3)
		posterMaxWidth = posterPanelWidth - 6
		posterMaxHeight = min(posterHeight, l.WindowHeight-8)

		if posterMaxWidth < 8 || posterMaxHeight < 4 {
			posterPanelWidth = 0
			posterMaxWidth = 0
			posterMaxHeight = 0
		}
	}

	middlePanelWidth := l.WindowWidth - leftPanelWidth - posterPanelWidth - 2
	if middlePanelWidth < 30 {
		posterPanelWidth = 0
		posterMaxWidth = 0
		posterMaxHeight = 0
		middlePanelWidth = l.WindowWidth - leftPanelWidth - 2
	}

	return AdaptiveLayout{
		LeftPanelWidth:   leftPanelWidth,
		MiddlePanelWidth: middlePanelWidth,
		RightPanelWidth:  posterPanelWidth,
		ContentHeight:    l.WindowHeight - 3,
		PosterMaxWidth:   posterMaxWidth,
		PosterMaxHeight:  posterMaxHeight,
		ShowPoster:       posterMaxWidth > 0 && posterMaxHeight > 0,
	}
}

func (l *Layout) IsMinimumSize() bool {
	return l.WindowWidth >= l.Breakpoints.MinWidth &&
		l.WindowHeight >= l.Breakpoints.MinHeight
}
