package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (a *App) handleKeyPress(key string) tea.Cmd {
	// Global
	switch key {
	case "ctrl+c", "q":
		a.quitting = true
		return tea.Quit
	case "?":
		return a.toggleHelp()
	case "esc":
		return a.handleEscape()
	}

	switch a.currentMode {
	case CategoryMode:
		return a.handleCategoryKeys(key)
	case CatalogMode:
		return a.handleCatalogKeys(key)
	}

	return nil
}

func (a *App) handleCategoryKeys(key string) tea.Cmd {
	count := len(a.shelf.Categories())

	switch key {
	case "up", "k":
		if a.categoryIndex > 0 {
			a.categoryIndex--
		}
	case "down", "j":
		if a.categoryIndex < count-1 {
			a.categoryIndex++
		}
	case "enter", " ":
		return a.selectCategory()
	case "tab", "right", "l":
		a.currentMode = CatalogMode
	}

	return nil
}

func (a *App) handleCatalogKeys(key string) tea.Cmd {
	count := a.shelf.Catalog.Len()

	switch key {
	case "up", "k":
		if a.entryIndex > 0 {
			a.entryIndex--
		}
	case "down", "j":
		if a.entryIndex < count-1 {
			a.entryIndex++
		}
	case "pgup":
		a.entryIndex = max(a.entryIndex-10, 0)
	case "pgdown", "pgdn":
		a.entryIndex = max(min(a.entryIndex+10, count-1), 0)
	case "home", "g":
		a.entryIndex = 0
	case "end", "G":
		a.entryIndex = max(count-1, 0)
	case "r":
		if selected := a.shelf.Selected(); selected != "" {
			return a.loadCategory(selected)
		}
	case "tab", "left", "h":
		a.currentMode = CategoryMode
	}

	return nil
}

func (a *App) toggleHelp() tea.Cmd {
	if a.currentMode == HelpMode {
		a.currentMode = a.previousMode
	} else {
		a.previousMode = a.currentMode
		a.currentMode = HelpMode
	}
	return nil
}

func (a *App) handleEscape() tea.Cmd {
	if a.statusMessage != "" && strings.HasPrefix(a.statusMessage, IconCross) {
		a.statusMessage = ""
		return nil
	}

	if a.currentMode == HelpMode {
		a.currentMode = a.previousMode
	}

	return nil
}
