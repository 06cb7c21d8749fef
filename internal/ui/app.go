// Package ui implements the configman terminal user interface.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lastscouser/configman-cli/internal/gateway"
)

// Backend is the subset of *gateway.Gateway the UI drives.
type Backend interface {
	BindNotifier(gateway.Notifier)
	BindNavigator(gateway.Navigator)
	Credential() (string, bool)
	Login(ctx context.Context, req gateway.LoginRequest) (gateway.LoginResponse, error)
	Logout() error
	ListParameters(ctx context.Context, group string) ([]gateway.Parameter, error)
	GetParameter(ctx context.Context, id string) (gateway.Parameter, error)
	CreateParameter(ctx context.Context, fields gateway.ParameterCreationFields) (gateway.Parameter, error)
	UpdateParameter(ctx context.Context, id string, fields gateway.ParameterUpdateFields) (gateway.Parameter, error)
	DeleteParameter(ctx context.Context, id string) (gateway.BaseResponse, error)
}

var _ Backend = (*gateway.Gateway)(nil)

// ── Routes ────────────────────────────────────────────────────────────────────

const (
	routeSignin     = gateway.SignInPath
	routeParameters = "/parameters"
	routeNew        = "/parameters/new"
)

type view int

const (
	viewSignin view = iota
	viewList
	viewDetail
	viewForm
)

// parseRoute maps a path to a view and, for detail/edit, the parameter id.
func parseRoute(path string) (v view, id string, edit bool) {
	switch {
	case path == routeSignin:
		return viewSignin, "", false
	case path == routeParameters || path == routeParameters+"/":
		return viewList, "", false
	case path == routeNew:
		return viewForm, "", false
	case strings.HasPrefix(path, routeParameters+"/"):
		rest := strings.TrimPrefix(path, routeParameters+"/")
		if id, ok := strings.CutSuffix(rest, "/edit"); ok && id != "" {
			return viewForm, id, true
		}
		if rest != "" && !strings.Contains(rest, "/") {
			return viewDetail, rest, false
		}
	}
	return viewList, "", false
}

func parameterRoute(id string) string { return routeParameters + "/" + id }

// ── Tea messages ──────────────────────────────────────────────────────────────

type loginDoneMsg struct{ err error }

type paramsLoadedMsg struct {
	group  string
	params []gateway.Parameter
	err    error
}

type paramLoadedMsg struct {
	param gateway.Parameter
	edit  bool
	err   error
}

type paramSavedMsg struct {
	param gateway.Parameter
	err   error
}

type paramDeletedMsg struct {
	id  string
	err error
}

type toastExpiredMsg struct{ id int }

// ── App ───────────────────────────────────────────────────────────────────────

type toast struct {
	id     int
	notice gateway.Notice
}

const maxToasts = 5

// App is the top-level Bubble Tea model.
type App struct {
	gw     Backend
	apiURL string
	ctx    context.Context

	route string
	view  view
	busy  bool

	// Collaborators bound into the gateway
	toaster *Toaster
	router  *Router

	toasts   []toast
	toastSeq int

	// Sign-in
	email    textinput.Model
	password textinput.Model
	focus    int

	// Parameter list
	table         table.Model
	params        []gateway.Parameter
	groups        []string
	groupIdx      int // -1 means all groups
	confirmDelete string

	// Detail
	detail  viewport.Model
	current gateway.Parameter

	// Create / edit form
	fields    []textinput.Model
	formFocus int
	editingID string

	spin spinner.Model

	// Layout
	width  int
	height int
}

// New creates the App model and binds its toaster and router into gw.
func New(ctx context.Context, gw Backend, apiURL string) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleBadgeSignedOut

	a := &App{
		gw:       gw,
		apiURL:   apiURL,
		ctx:      ctx,
		toaster:  NewToaster(64),
		router:   NewRouter(64),
		spin:     sp,
		groupIdx: -1,
		table: table.New(
			table.WithColumns(tableColumns(80)),
			table.WithFocused(true),
			table.WithHeight(10),
			table.WithStyles(tableStyles()),
		),
		detail: viewport.New(80, 10),
	}
	a.email, a.password = newSigninInputs()
	a.fields = newFormInputs()

	gw.BindNotifier(a.toaster)
	gw.BindNavigator(a.router)
	return a
}

// ── Init ──────────────────────────────────────────────────────────────────────

func (a *App) Init() tea.Cmd {
	start := routeSignin
	if _, ok := a.gw.Credential(); ok {
		start = routeParameters
	}
	return tea.Batch(
		a.spin.Tick,
		waitForNotice(a.toaster),
		waitForRoute(a.router),
		a.navigate(start),
	)
}

// ── Update ────────────────────────────────────────────────────────────────────

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.rebuildLayout()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if msg.String() == "esc" && a.dismissToasts() {
			return a, nil
		}
		return a, a.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		cmds = append(cmds, cmd)

	case noticeMsg:
		cmds = append(cmds, a.addToast(gateway.Notice(msg)), waitForNotice(a.toaster))

	case routeMsg:
		cmds = append(cmds, a.navigate(string(msg)), waitForRoute(a.router))

	case toastExpiredMsg:
		a.removeToast(msg.id)

	case loginDoneMsg:
		a.busy = false
		if msg.err == nil {
			cmds = append(cmds, a.navigate(routeParameters))
		}

	case paramsLoadedMsg:
		a.busy = false
		if msg.err == nil {
			a.setParameters(msg.group, msg.params)
		}

	case paramLoadedMsg:
		a.busy = false
		if msg.err == nil {
			if msg.edit {
				cmds = append(cmds, a.fillForm(msg.param))
			} else {
				a.showDetail(msg.param)
			}
		}

	case paramSavedMsg:
		a.busy = false
		if msg.err == nil {
			a.toaster.Add(gateway.Notice{
				Severity: gateway.SeveritySuccess,
				Summary:  "Saved",
				Detail:   fmt.Sprintf("%s/%s", msg.param.Group, msg.param.Key),
				Life:     3 * time.Second,
			})
			a.replaceParameter(msg.param)
			cmds = append(cmds, a.navigate(parameterRoute(msg.param.ID)))
		}

	case paramDeletedMsg:
		a.busy = false
		if msg.err == nil {
			a.toaster.Add(gateway.Notice{
				Severity: gateway.SeveritySuccess,
				Summary:  "Deleted",
				Detail:   "Parameter removed.",
				Life:     3 * time.Second,
			})
			cmds = append(cmds, a.loadCmd())
		}

	case nil:
		// no-op

	}

	return a, tea.Batch(cmds...)
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch a.view {
	case viewSignin:
		return a.handleSigninKey(msg)
	case viewList:
		return a.handleListKey(msg)
	case viewDetail:
		return a.handleDetailKey(msg)
	case viewForm:
		return a.handleFormKey(msg)
	}
	return nil
}

// navigate switches to path and returns the command loading its data.
func (a *App) navigate(path string) tea.Cmd {
	v, id, edit := parseRoute(path)
	a.route = path
	a.view = v
	a.confirmDelete = ""

	switch v {
	case viewSignin:
		a.busy = false
		a.resetSignin()
		return a.email.Focus()
	case viewList:
		return a.loadCmd()
	case viewDetail:
		if p, ok := a.lookup(id); ok {
			a.showDetail(p)
			return nil
		}
		return a.fetchCmd(id, false)
	case viewForm:
		a.editingID = id
		if !edit {
			return a.fillForm(gateway.Parameter{})
		}
		if p, ok := a.lookup(id); ok {
			return a.fillForm(p)
		}
		return a.fetchCmd(id, true)
	}
	return nil
}

// ── Commands ──────────────────────────────────────────────────────────────────

func (a *App) loadCmd() tea.Cmd {
	a.busy = true
	gw, ctx := a.gw, a.ctx
	group := a.currentGroup()
	return func() tea.Msg {
		params, err := gw.ListParameters(ctx, group)
		return paramsLoadedMsg{group: group, params: params, err: err}
	}
}

func (a *App) fetchCmd(id string, edit bool) tea.Cmd {
	a.busy = true
	gw, ctx := a.gw, a.ctx
	return func() tea.Msg {
		p, err := gw.GetParameter(ctx, id)
		return paramLoadedMsg{param: p, edit: edit, err: err}
	}
}

// ── Toasts ────────────────────────────────────────────────────────────────────

func (a *App) addToast(n gateway.Notice) tea.Cmd {
	a.toastSeq++
	id := a.toastSeq
	a.toasts = append(a.toasts, toast{id: id, notice: n})
	if len(a.toasts) > maxToasts {
		a.toasts = a.toasts[len(a.toasts)-maxToasts:]
	}
	if n.Life <= 0 {
		return nil
	}
	return tea.Tick(n.Life, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

func (a *App) removeToast(id int) {
	for i, t := range a.toasts {
		if t.id == id {
			a.toasts = append(a.toasts[:i], a.toasts[i+1:]...)
			return
		}
	}
}

// dismissToasts drops every toast and reports whether any were shown.
func (a *App) dismissToasts() bool {
	if len(a.toasts) == 0 {
		return false
	}
	a.toasts = nil
	return true
}

// ── View ──────────────────────────────────────────────────────────────────────

func (a *App) View() string {
	if a.width == 0 {
		return ""
	}

	var body, help string
	switch a.view {
	case viewSignin:
		return a.overlayToasts(a.viewSignin())
	case viewList:
		body, help = a.viewList()
	case viewDetail:
		body, help = a.viewDetail()
	case viewForm:
		body, help = a.viewForm()
	}

	main := styleMainBox.Width(a.width - 2).Render(body)
	return a.overlayToasts(strings.Join([]string{a.renderHeaderBar(), main, styleHelp.Render(help)}, "\n"))
}

func (a *App) renderHeaderBar() string {
	left := styleAppTitle.Render("⚙ configman")
	if a.busy {
		left += " " + a.spin.View()
	}

	var badges []string
	if g := a.currentGroup(); g != "" && a.view == viewList {
		badges = append(badges, styleBadgeFilter.Render(g))
	}
	badges = append(badges, styleHelp.Render(a.apiURL))
	if _, ok := a.gw.Credential(); ok {
		badges = append(badges, styleBadgeSignedIn.Render("● signed in"))
	} else {
		badges = append(badges, styleBadgeSignedOut.Render("○ signed out"))
	}
	right := strings.Join(badges, "  ")

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 4 // 4 for padding
	if gap < 1 {
		gap = 1
	}
	line := left + strings.Repeat(" ", gap) + right
	return styleHeaderBar.Width(a.width).Render(line)
}

// overlayToasts stacks the toasts in the top-right corner above content.
func (a *App) overlayToasts(content string) string {
	if len(a.toasts) == 0 {
		return content
	}
	rendered := make([]string, 0, len(a.toasts))
	for _, t := range a.toasts {
		c := toastColor(t.notice.Severity)
		summary := styleToastSummary.Foreground(c).Render(t.notice.Summary)
		rendered = append(rendered, styleToast.BorderForeground(c).Render(summary+"\n"+t.notice.Detail))
	}
	stack := lipgloss.JoinVertical(lipgloss.Right, rendered...)
	stack = lipgloss.PlaceHorizontal(a.width, lipgloss.Right, stack)
	return stack + "\n" + content
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (a *App) rebuildLayout() {
	if a.width == 0 || a.height == 0 {
		return
	}

	// Layout: header(1) + main box(border=2 + content) + help(1)
	contentHeight := a.height - 4
	if contentHeight < 3 {
		contentHeight = 3
	}
	contentWidth := a.contentWidth()

	a.table.SetColumns(tableColumns(contentWidth))
	a.table.SetWidth(contentWidth)
	a.table.SetHeight(contentHeight - 2)

	a.detail.Width = contentWidth
	a.detail.Height = contentHeight
	if a.view == viewDetail {
		a.showDetail(a.current)
	}

	for i := range a.fields {
		a.fields[i].Width = contentWidth - 16
	}
}

func (a *App) contentWidth() int {
	if a.width == 0 {
		return 80
	}
	return max(a.width-4, 20)
}

// replaceParameter swaps the saved p into the loaded list so views opened
// from it show the stored values. Parameters not in the list are fetched.
func (a *App) replaceParameter(p gateway.Parameter) {
	for i := range a.params {
		if a.params[i].ID == p.ID {
			a.params[i] = p
			a.setParameters(a.currentGroup(), a.params)
			return
		}
	}
}

func (a *App) lookup(id string) (gateway.Parameter, bool) {
	for _, p := range a.params {
		if p.ID == id {
			return p, true
		}
	}
	return gateway.Parameter{}, false
}

// truncate shortens s to width runes, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
