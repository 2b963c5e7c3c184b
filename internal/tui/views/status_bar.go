package views

import (
	"fmt"

	"github.com/rivo/tview"
)

// StatusBar displays the profile, listener state and send progress.
type StatusBar struct {
	*tview.TextView
	profile string
	state   string
	sending bool
}

func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv}
}

func (sb *StatusBar) SetProfile(name string) {
	sb.profile = name
	sb.render()
}

func (sb *StatusBar) SetState(state string) {
	sb.state = state
	sb.render()
}

func (sb *StatusBar) SetSending(sending bool) {
	sb.sending = sending
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()
	_, _ = fmt.Fprint(sb, sb.line())
}

func (sb *StatusBar) line() string {
	state := sb.state
	switch state {
	case "STREAMING":
		state = "[green]" + state + "[-]"
	case "DEGRADED", "FAILED":
		state = "[red]" + state + "[-]"
	case "":
		state = "-"
	}
	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s", sb.profile, state)
	if sb.sending {
		line += " | [yellow]sending...[-]"
	}
	return line
}
