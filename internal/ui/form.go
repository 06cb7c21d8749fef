package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lastscouser/configman-cli/internal/gateway"
)

const (
	fieldGroup = iota
	fieldKey
	fieldValue
	fieldDescription
)

func newFormInputs() []textinput.Model {
	labels := []string{"Group", "Key", "Value", "Description"}
	fields := make([]textinput.Model, len(labels))
	for i, l := range labels {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = strings.ToLower(l)
		ti.CharLimit = 4096
		ti.Width = 60
		fields[i] = ti
	}
	return fields
}

func (a *App) editing() bool { return a.editingID != "" }

// fillForm loads p into the form. An empty p starts a new parameter.
func (a *App) fillForm(p gateway.Parameter) tea.Cmd {
	if p.ID != "" {
		a.editingID = p.ID
		a.current = p
	}
	a.fields[fieldGroup].SetValue(p.Group)
	a.fields[fieldKey].SetValue(p.Key)
	a.fields[fieldValue].SetValue(p.Value)
	a.fields[fieldDescription].SetValue(p.Description)
	return a.focusField(fieldGroup)
}

// focusField moves focus to field i, skipping the immutable key while editing.
func (a *App) focusField(i int) tea.Cmd {
	if a.editing() && i == fieldKey {
		i = fieldValue
	}
	a.formFocus = i
	var cmd tea.Cmd
	for j := range a.fields {
		if j == i {
			cmd = a.fields[j].Focus()
		} else {
			a.fields[j].Blur()
		}
	}
	return cmd
}

func (a *App) handleFormKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		if a.editing() {
			return a.navigate(parameterRoute(a.editingID))
		}
		return a.navigate(routeParameters)
	case "tab", "down":
		return a.focusField(a.nextField(1))
	case "shift+tab", "up":
		return a.focusField(a.nextField(-1))
	case "enter":
		if a.formFocus == fieldDescription {
			return a.submitForm()
		}
		return a.focusField(a.nextField(1))
	}

	var cmd tea.Cmd
	a.fields[a.formFocus], cmd = a.fields[a.formFocus].Update(msg)
	return cmd
}

func (a *App) nextField(dir int) int {
	n := len(a.fields)
	i := (a.formFocus + dir + n) % n
	if a.editing() && i == fieldKey {
		i = (i + dir + n) % n
	}
	return i
}

func (a *App) submitForm() tea.Cmd {
	if a.busy {
		return nil
	}
	group := strings.TrimSpace(a.fields[fieldGroup].Value())
	key := strings.TrimSpace(a.fields[fieldKey].Value())
	value := a.fields[fieldValue].Value()
	description := a.fields[fieldDescription].Value()

	gw, ctx := a.gw, a.ctx
	if a.editing() {
		id := a.editingID
		a.busy = true
		return func() tea.Msg {
			p, err := gw.UpdateParameter(ctx, id, gateway.ParameterUpdateFields{
				Group:       group,
				Value:       value,
				Description: description,
			})
			return paramSavedMsg{param: p, err: err}
		}
	}

	if key == "" {
		a.toaster.Add(gateway.Notice{
			Severity: gateway.SeverityWarn,
			Summary:  "Missing key",
			Detail:   "A parameter needs a key.",
			Life:     3 * time.Second,
		})
		return a.focusField(fieldKey)
	}
	a.busy = true
	return func() tea.Msg {
		p, err := gw.CreateParameter(ctx, gateway.ParameterCreationFields{
			Group:       group,
			Key:         key,
			Value:       value,
			Description: description,
		})
		return paramSavedMsg{param: p, err: err}
	}
}

func (a *App) viewForm() (body, help string) {
	title := "New parameter"
	if a.editing() {
		title = "Edit " + a.current.Group + "/" + a.current.Key
	}

	labels := []string{"Group", "Key", "Value", "Description"}
	lines := []string{styleLabel.Render(title), ""}
	for i, l := range labels {
		label := styleHelp.Width(14).Render(l)
		if i == a.formFocus {
			label = styleLabel.Width(14).Render(l)
		}
		field := a.fields[i].View()
		if a.editing() && i == fieldKey {
			field = styleTimestamp.Render(a.fields[i].Value() + " (immutable)")
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, label, field))
	}
	return strings.Join(lines, "\n"), "  tab: next field   enter on description: save   esc: cancel"
}
