package tui

import (
	"sync"

	"postershelf/catalog"

	tea "github.com/charmbracelet/bubbletea"
)

type Mode int

const (
	CategoryMode Mode = iota
	CatalogMode
	HelpMode
)

// RedrawMsg is sent whenever a background poster fetch completes. It
// carries nothing; receiving it is enough to make Bubble Tea repaint.
type RedrawMsg struct{}

type CatalogProgressMsg struct {
	Progress catalog.Progress
	seq      int
}

type loadCategoryMsg struct{}

type StatusTickMsg struct {
	id int
}

// programSender forwards messages from background goroutines into the
// running program. Messages sent before a program is attached are dropped.
type programSender struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

func (s *programSender) attach(send func(tea.Msg)) {
	s.mu.Lock()
	s.send = send
	s.mu.Unlock()
}

func (s *programSender) Send(msg tea.Msg) {
	s.mu.RLock()
	send := s.send
	s.mu.RUnlock()
	if send != nil {
		send(msg)
	}
}

func (s *programSender) RequestRedraw() {
	s.Send(RedrawMsg{})
}
