package ui

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lastscouser/configman-cli/internal/gateway"
)

// Toaster forwards gateway notices into the Bubble Tea program.
// Add is safe to call from the goroutines running tea.Cmds.
type Toaster struct {
	ch chan gateway.Notice
}

// NewToaster returns a Toaster buffering up to size notices.
func NewToaster(size int) *Toaster {
	return &Toaster{ch: make(chan gateway.Notice, size)}
}

// Add implements gateway.Notifier. Notices are dropped when the buffer is
// full or t is nil.
func (t *Toaster) Add(n gateway.Notice) {
	if t == nil {
		return
	}
	select {
	case t.ch <- n:
	default:
		slog.Warn("toast buffer full, dropping notice", "summary", n.Summary)
	}
}

// Router forwards navigation requests into the Bubble Tea program.
type Router struct {
	ch chan string
}

// NewRouter returns a Router buffering up to size pending routes.
func NewRouter(size int) *Router {
	return &Router{ch: make(chan string, size)}
}

// Push implements gateway.Navigator. A nil Router ignores the request.
func (r *Router) Push(path string) {
	if r == nil {
		return
	}
	select {
	case r.ch <- path:
	default:
		slog.Warn("route buffer full, dropping navigation", "path", path)
	}
}

type noticeMsg gateway.Notice

type routeMsg string

func waitForNotice(t *Toaster) tea.Cmd {
	return func() tea.Msg {
		return noticeMsg(<-t.ch)
	}
}

func waitForRoute(r *Router) tea.Cmd {
	return func() tea.Msg {
		return routeMsg(<-r.ch)
	}
}

// Compile-time assertions: the UI collaborators satisfy the gateway contracts.
var (
	_ gateway.Notifier  = (*Toaster)(nil)
	_ gateway.Navigator = (*Router)(nil)
)
