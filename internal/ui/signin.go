package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lastscouser/configman-cli/internal/gateway"
)

func newSigninInputs() (email, password textinput.Model) {
	email = textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = "Email    "
	email.CharLimit = 256
	email.Width = 32

	password = textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password "
	password.CharLimit = 256
	password.Width = 32
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	return email, password
}

func (a *App) resetSignin() {
	a.password.SetValue("")
	a.password.Blur()
	a.focus = 0
}

func (a *App) handleSigninKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		return a.toggleSigninFocus()
	case "enter":
		if a.focus == 0 {
			return a.toggleSigninFocus()
		}
		return a.submitSignin()
	}

	var cmd tea.Cmd
	if a.focus == 0 {
		a.email, cmd = a.email.Update(msg)
	} else {
		a.password, cmd = a.password.Update(msg)
	}
	return cmd
}

func (a *App) toggleSigninFocus() tea.Cmd {
	if a.focus == 0 {
		a.focus = 1
		a.email.Blur()
		return a.password.Focus()
	}
	a.focus = 0
	a.password.Blur()
	return a.email.Focus()
}

func (a *App) submitSignin() tea.Cmd {
	email := strings.TrimSpace(a.email.Value())
	password := a.password.Value()
	if email == "" || password == "" || a.busy {
		return nil
	}
	a.busy = true
	gw, ctx := a.gw, a.ctx
	return func() tea.Msg {
		_, err := gw.Login(ctx, gateway.LoginRequest{Email: email, Password: password})
		return loginDoneMsg{err: err}
	}
}

func (a *App) viewSignin() string {
	status := styleHelp.Render("enter: next / sign in   tab: switch field   ctrl+c: quit")
	if a.busy {
		status = a.spin.View() + " Signing in to " + a.apiURL + "…"
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		styleSigninTitle.Render("⚙ configman — sign in"),
		a.email.View(),
		a.password.View(),
		"",
		status,
	)

	box := styleSigninBox.Render(content)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, box)
}
