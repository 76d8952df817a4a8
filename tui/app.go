package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"postershelf/catalog"
	"postershelf/config"
	"postershelf/shelf"
	"postershelf/utils"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

type App struct {
	shelf    *shelf.Shelf
	sender   *programSender
	layout   *Layout
	theme    *Theme
	posters  *PosterRenderer
	spinner  spinner.Model
	ctx      context.Context
	quitting bool

	currentMode  Mode
	previousMode Mode

	categoryIndex int
	entryIndex    int

	isLoading     bool
	loadSeq       int
	loadProgress  catalog.Progress
	statusMessage string
	statusID      int
}

// NewApp builds the model together with the Shelf it drives. Poster
// completions reach the program through Attach.
func NewApp(ctx context.Context, cfg *config.Config) *App {
	sender := &programSender{}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	return &App{
		shelf:       shelf.New(cfg, sender),
		sender:      sender,
		layout:      NewLayout(),
		theme:       DefaultTheme(),
		posters:     NewPosterRenderer(),
		spinner:     s,
		ctx:         ctx,
		currentMode: CategoryMode,
	}
}

// Attach connects background completions to a running program.
func (a *App) Attach(send func(tea.Msg)) {
	a.sender.attach(send)
}

func (a *App) Shelf() *shelf.Shelf {
	return a.shelf
}

func (a *App) Init() tea.Cmd {
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.layout.Update(msg.Width, msg.Height)

	case tea.KeyMsg:
		if cmd := a.handleKeyPress(msg.String()); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case RedrawMsg:
		// A poster landed in the cache; returning is enough to repaint.

	case CatalogProgressMsg:
		// Events from a load that a newer selection replaced are ignored.
		if msg.seq == a.loadSeq {
			if cmd := a.handleProgress(msg.Progress); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}

	case loadCategoryMsg:
		if cmd := a.selectCategory(); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case StatusTickMsg:
		if msg.id == a.statusID {
			a.statusMessage = ""
		}

	case spinner.TickMsg:
		if a.isLoading {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return a, tea.Batch(cmds...)
}

func (a *App) handleProgress(p catalog.Progress) tea.Cmd {
	a.loadProgress = p
	if !p.Done {
		return nil
	}

	a.isLoading = false
	if p.Err != nil {
		a.setError("Failed to load catalog", p.Err.Error())
		return nil
	}
	if a.entryIndex >= p.Loaded {
		a.entryIndex = 0
	}
	return a.setStatus(fmt.Sprintf("%s Loaded %d titles", IconCheck, p.Loaded), 3)
}

func (a *App) selectCategory() tea.Cmd {
	categories := a.shelf.Categories()
	if a.categoryIndex < 0 || a.categoryIndex >= len(categories) {
		return nil
	}
	return a.loadCategory(categories[a.categoryIndex])
}

// loadCategory switches the shelf to name. Shelf.Select only clears state
// and queues the request, so this never blocks the render loop.
func (a *App) loadCategory(name string) tea.Cmd {
	a.loadSeq++
	seq := a.loadSeq
	err := a.shelf.Select(a.ctx, name, func(p catalog.Progress) {
		a.sender.Send(CatalogProgressMsg{Progress: p, seq: seq})
	})
	if err != nil {
		a.setError("Cannot load "+name, err.Error())
		return nil
	}

	a.entryIndex = 0
	a.isLoading = true
	a.loadProgress = catalog.Progress{}
	a.currentMode = CatalogMode
	return tea.Batch(a.spinner.Tick, a.setStatus("Loading "+name+"...", 2))
}

func (a *App) setStatus(message string, seconds int) tea.Cmd {
	a.statusID++
	id := a.statusID
	a.statusMessage = message
	return tea.Tick(time.Duration(seconds)*time.Second, func(time.Time) tea.Msg {
		return StatusTickMsg{id: id}
	})
}

func (a *App) setError(message, details string) {
	errorMsg := message
	if details != "" {
		errorMsg += ": " + details
	}
	a.statusID++
	a.statusMessage = IconCross + " " + errorMsg
}

func (a *App) View() string {
	if a.quitting {
		return ""
	}
	if !a.layout.IsMinimumSize() {
		return "Terminal too small. Minimum size: 60x20"
	}

	if a.currentMode == HelpMode {
		return a.renderHelp()
	}

	cfg := a.shelf.Config()
	return a.renderMainView(a.layout.Calculate(cfg.PosterWidth, cfg.PosterHeight))
}

func (a *App) renderMainView(layout AdaptiveLayout) string {
	panels := []string{
		a.renderCategories(layout.LeftPanelWidth, layout.ContentHeight),
		a.renderCatalog(layout.MiddlePanelWidth, layout.ContentHeight),
	}
	if layout.ShowPoster && layout.RightPanelWidth > 0 {
		panels = append(panels, a.renderPosterPanel(layout))
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, panels...),
		a.renderStatusBar(),
	)
}

func (a *App) panelStyle(active bool, width, height int) lipgloss.Style {
	style := lipgloss.NewStyle().
		Border(a.theme.PanelBorder).
		BorderForeground(a.theme.PanelBorderColor).
		Padding(a.theme.PanelPadding...)
	if active {
		style = a.theme.ActivePanelStyle
	}
	return style.Width(max(width-2, 1)).Height(max(height-2, 1))
}

func (a *App) renderCategories(width, height int) string {
	theme := a.theme
	lines := []string{theme.HeaderStyle.Width(max(width-4, 1)).Render(IconCategory + " Movies")}

	selected := a.shelf.Selected()
	for i, name := range a.shelf.Categories() {
		prefix := "  "
		if i == a.categoryIndex {
			prefix = IconArrowRight + " "
		}
		line := prefix + utils.Truncate(name, width-8)
		switch {
		case i == a.categoryIndex && a.currentMode == CategoryMode:
			line = theme.SelectedItemStyle.Render(line)
		case strings.EqualFold(name, selected):
			line = theme.HighlightStyle.Render(line)
		default:
			line = theme.NormalTextStyle.Render(line)
		}
		lines = append(lines, line)
	}

	return a.panelStyle(a.currentMode == CategoryMode, width, height).Render(strings.Join(lines, "\n"))
}

func (a *App) renderCatalog(width, height int) string {
	theme := a.theme
	header := IconFilm + " Catalog"
	if selected := a.shelf.Selected(); selected != "" {
		header += " · " + selected
	}
	if a.isLoading {
		header += " " + a.spinner.View()
	}

	lines := []string{
		theme.HeaderStyle.Width(max(width-4, 1)).Render(header),
		Separator(width-6, "─", ColorBorderLight),
	}

	entries := a.shelf.Catalog.Entries()
	switch {
	case len(entries) == 0 && a.isLoading:
		lines = append(lines, theme.MutedTextStyle.Render("Fetching catalog..."))
	case len(entries) == 0 && a.shelf.Selected() == "":
		lines = append(lines, theme.MutedTextStyle.Render("Pick a category and press Enter"))
	case len(entries) == 0:
		lines = append(lines, theme.MutedTextStyle.Render("No titles"))
	}

	contentHeight := max(height-5, 1)
	startIdx := 0
	if a.entryIndex >= contentHeight {
		startIdx = a.entryIndex - contentHeight + 1
	}
	endIdx := min(startIdx+contentHeight, len(entries))

	for i := startIdx; i < endIdx; i++ {
		e := entries[i]
		marker := theme.MutedTextStyle.Render(IconCross)
		if _, ok := a.shelf.Poster(e); ok {
			marker = theme.SuccessStyle.Render(IconCheck)
		} else if a.shelf.Dispatcher.Pending(e.Poster) {
			marker = theme.WarningStyle.Render(IconPending)
		}

		prefix := "  "
		if i == a.entryIndex {
			prefix = IconArrowRight + " "
		}
		title := utils.Truncate(e.Title, max(width-22, 8))
		line := fmt.Sprintf("%s%s %s  %s", prefix, marker, title, theme.MutedTextStyle.Render(e.IssueDate))
		if i == a.entryIndex && a.currentMode == CatalogMode {
			line = theme.SelectedItemStyle.Render(line)
		}
		lines = append(lines, line)
	}

	return a.panelStyle(a.currentMode == CatalogMode, width, height).Render(strings.Join(lines, "\n"))
}

func (a *App) renderPosterPanel(layout AdaptiveLayout) string {
	theme := a.theme
	lines := []string{theme.HeaderStyle.Width(max(layout.RightPanelWidth-4, 1)).Render(IconImage + " Poster")}

	e, ok := a.shelf.Catalog.At(a.entryIndex)
	switch {
	case !ok:
		lines = append(lines, PosterPlaceholder(theme, layout.PosterMaxWidth, layout.PosterMaxHeight, a.isLoading))
	default:
		if img, cached := a.shelf.Poster(e); cached {
			lines = append(lines, a.posters.Render(e.Poster, img, layout.PosterMaxWidth, layout.PosterMaxHeight, a.shelf.Cache.Generation()))
			lines = append(lines, theme.MutedTextStyle.Render(fmt.Sprintf("%dx%d", img.Width, img.Height)))
		} else {
			lines = append(lines, PosterPlaceholder(theme, layout.PosterMaxWidth, layout.PosterMaxHeight, a.shelf.Dispatcher.Pending(e.Poster)))
		}
		lines = append(lines,
			theme.TitleStyle.Render(utils.Truncate(e.Title, layout.PosterMaxWidth)),
			theme.MutedTextStyle.Render("Released "+e.IssueDate),
		)
	}

	return a.panelStyle(false, layout.RightPanelWidth, layout.ContentHeight).Render(strings.Join(lines, "\n"))
}

func (a *App) renderStatusBar() string {
	theme := a.theme
	separator := theme.MutedTextStyle.Render(" │ ")

	if a.statusMessage != "" {
		if strings.HasPrefix(a.statusMessage, IconCross) {
			dismissHelp := theme.MutedTextStyle.Render(" │ Press ESC to dismiss")
			return ErrorText(strings.TrimPrefix(a.statusMessage, IconCross+" "), theme) + dismissHelp
		}
		if strings.HasPrefix(a.statusMessage, IconCheck) {
			return theme.SuccessStyle.Render(a.statusMessage)
		}
		return theme.StatusBarStyle.Render(a.statusMessage)
	}

	cache := a.shelf.Cache
	stats := StatusBadge(fmt.Sprintf("%d posters · %s", cache.Len(), utils.FormatSize(int64(cache.Bytes()))), "info", theme)
	if n := a.shelf.Dispatcher.InFlight(); n > 0 {
		stats += " " + StatusBadge(fmt.Sprintf("%d loading", n), "warning", theme)
	}

	var hints []string
	switch a.currentMode {
	case CategoryMode:
		hints = []string{
			KeyHelp("↑↓", "navigate", theme),
			KeyHelp("Enter", "load", theme),
			KeyHelp("Tab", "catalog", theme),
			KeyHelp("?", "help", theme),
			KeyHelp("q", "quit", theme),
		}
	case CatalogMode:
		hints = []string{
			KeyHelp("↑↓", "browse", theme),
			KeyHelp("r", "reload", theme),
			KeyHelp("Tab", "categories", theme),
			KeyHelp("?", "help", theme),
			KeyHelp("q", "quit", theme),
		}
	}

	return stats + separator + strings.Join(hints, separator)
}

func (a *App) renderHelp() string {
	return `╔══════════════════════════════════════════════════════════════╗
║                      postershelf TUI Help                    ║
╠══════════════════════════════════════════════════════════════╣
║ Categories:                                                  ║
║   ↑/↓, k/j    Move between categories                        ║
║   Enter       Load the category's catalog                    ║
║   Tab         Switch to the catalog                          ║
║                                                              ║
║ Catalog:                                                     ║
║   ↑/↓, k/j    Browse titles                                  ║
║   PgUp/PgDn   Page up/down                                   ║
║   Home/End    First/last title                               ║
║   r           Reload the current category                    ║
║   Tab         Switch to categories                           ║
║                                                              ║
║ Global:                                                      ║
║   ?           Show/hide this help                            ║
║   Esc         Dismiss errors / close help                    ║
║   q, Ctrl+C   Quit application                               ║
╚══════════════════════════════════════════════════════════════╝

` + a.theme.HelpStyle.Render("Press esc to return...")
}

func initLogging(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := tea.LogToFile(path, "")
	if err != nil {
		return nil, err
	}
	logrus.SetOutput(f)
	logrus.WithField("ts", time.Now().Format(time.RFC3339)).Info("tui session start")
	return f, nil
}

func Run(ctx context.Context, cfg *config.Config, initial string) error {
	f, err := initLogging(cfg.LogFile)
	if err != nil {
		return err
	}
	defer f.Close()

	app := NewApp(ctx, cfg)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	app.Attach(p.Send)

	if initial != "" {
		for i, name := range cfg.CategoryNames() {
			if strings.EqualFold(name, initial) {
				app.categoryIndex = i
				go p.Send(loadCategoryMsg{})
				break
			}
		}
	}

	_, err = p.Run()
	return err
}
