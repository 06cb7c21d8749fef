package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/lastscouser/configman-cli/internal/gateway"
)

// ── List ──────────────────────────────────────────────────────────────────────

func tableColumns(width int) []table.Column {
	// group | key | value | description | created
	fixed := 16 + 24 + 16 + 8 // group, key, created, cell padding
	rest := width - fixed
	if rest < 20 {
		rest = 20
	}
	return []table.Column{
		{Title: "Group", Width: 16},
		{Title: "Key", Width: 24},
		{Title: "Value", Width: rest / 2},
		{Title: "Description", Width: rest - rest/2},
		{Title: "Created", Width: 16},
	}
}

func (a *App) currentGroup() string {
	if a.groupIdx < 0 || a.groupIdx >= len(a.groups) {
		return ""
	}
	return a.groups[a.groupIdx]
}

// setParameters installs a loaded list. Only unfiltered loads refresh the
// set of known groups.
func (a *App) setParameters(group string, params []gateway.Parameter) {
	if group != a.currentGroup() {
		return // stale response for a previous filter
	}
	a.params = params
	if group == "" {
		a.groups = gateway.Groups(params)
	}

	cols := tableColumns(a.contentWidth())
	rows := make([]table.Row, len(params))
	for i, p := range params {
		rows[i] = table.Row{
			truncate(p.Group, cols[0].Width),
			truncate(p.Key, cols[1].Width),
			truncate(p.Value, cols[2].Width),
			truncate(p.Description, cols[3].Width),
			p.CreatedAt.Local().Format("2006-01-02 15:04"),
		}
	}
	a.table.SetRows(rows)
	if a.table.Cursor() >= len(rows) {
		a.table.SetCursor(max(len(rows)-1, 0))
	}
}

func (a *App) selected() (gateway.Parameter, bool) {
	i := a.table.Cursor()
	if i < 0 || i >= len(a.params) {
		return gateway.Parameter{}, false
	}
	return a.params[i], true
}

func (a *App) handleListKey(msg tea.KeyMsg) tea.Cmd {
	if a.confirmDelete != "" {
		id := a.confirmDelete
		a.confirmDelete = ""
		if msg.String() == "y" {
			return a.deleteCmd(id)
		}
		return nil
	}

	switch msg.String() {
	case "q":
		return tea.Quit
	case "r":
		return a.loadCmd()
	case "/":
		a.groupIdx++
		if a.groupIdx >= len(a.groups) {
			a.groupIdx = -1
		}
		return a.loadCmd()
	case "n":
		return a.navigate(routeNew)
	case "enter":
		if p, ok := a.selected(); ok {
			return a.navigate(parameterRoute(p.ID))
		}
		return nil
	case "e":
		if p, ok := a.selected(); ok {
			return a.navigate(parameterRoute(p.ID) + "/edit")
		}
		return nil
	case "d":
		if p, ok := a.selected(); ok {
			a.confirmDelete = p.ID
		}
		return nil
	case "L":
		return a.logout()
	}

	var cmd tea.Cmd
	a.table, cmd = a.table.Update(msg)
	return cmd
}

func (a *App) deleteCmd(id string) tea.Cmd {
	a.busy = true
	gw, ctx := a.gw, a.ctx
	return func() tea.Msg {
		_, err := gw.DeleteParameter(ctx, id)
		return paramDeletedMsg{id: id, err: err}
	}
}

func (a *App) logout() tea.Cmd {
	if err := a.gw.Logout(); err != nil {
		a.toaster.Add(gateway.Notice{Severity: gateway.SeverityError, Summary: "Error", Detail: err.Error()})
		return nil
	}
	a.params = nil
	a.groups = nil
	a.groupIdx = -1
	a.table.SetRows(nil)
	return a.navigate(routeSignin)
}

func (a *App) viewList() (body, help string) {
	help = "  enter: open   n: new   e: edit   d: delete   /: filter group   r: reload   L: sign out   q: quit"

	if len(a.params) == 0 && !a.busy {
		body = styleSystemMsg.Render("No parameters. Press n to create one.")
	} else {
		body = a.table.View()
	}

	if a.confirmDelete != "" {
		name := a.confirmDelete
		if p, ok := a.lookup(a.confirmDelete); ok {
			name = p.Group + "/" + p.Key
		}
		help = styleError.Render(fmt.Sprintf("  Delete %s? y: confirm   any other key: cancel", name))
	}
	return body, help
}

// ── Detail ────────────────────────────────────────────────────────────────────

// parameterMarkdown renders p as the markdown document shown in the detail view.
func parameterMarkdown(p gateway.Parameter) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s / %s\n\n", p.Group, p.Key)
	fmt.Fprintf(&sb, "**Value**\n\n```\n%s\n```\n\n", p.Value)
	if d := strings.TrimSpace(p.Description); d != "" {
		fmt.Fprintf(&sb, "%s\n\n", d)
	}
	fmt.Fprintf(&sb, "---\n\n_id `%s`, created %s_\n", p.ID, p.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	return sb.String()
}

func (a *App) showDetail(p gateway.Parameter) {
	a.current = p
	md := parameterMarkdown(p)

	content := md
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(a.detail.Width-2, 20)),
	)
	if err == nil {
		if out, err := r.Render(md); err == nil {
			content = out
		}
	}
	a.detail.SetContent(content)
	a.detail.GotoTop()
}

func (a *App) handleDetailKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "backspace", "q":
		return a.navigate(routeParameters)
	case "e":
		return a.navigate(parameterRoute(a.current.ID) + "/edit")
	}
	var cmd tea.Cmd
	a.detail, cmd = a.detail.Update(msg)
	return cmd
}

func (a *App) viewDetail() (body, help string) {
	return a.detail.View(), "  e: edit   esc: back   ↑↓: scroll"
}
