package views

import (
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/HornetGeek/petow-frontend-sub000/internal/tui/ui"
)

// Composer is the multi-line message editor. Enter sends; Shift+Enter or
// Alt+Enter inserts a newline.
type Composer struct {
	*tview.TextArea
	theme  *ui.Theme
	onSend func(text string)
}

func NewComposer(theme *ui.Theme) *Composer {
	ta := tview.NewTextArea().
		SetPlaceholder("Write a message...")
	ta.SetBorder(true).SetTitle(" Message ")
	ta.SetBorderColor(theme.BorderColor)
	ta.SetTitleColor(theme.TitleColor)

	c := &Composer{TextArea: ta, theme: theme}
	ta.SetInputCapture(c.capture)
	return c
}

func (c *Composer) capture(ev *tcell.EventKey) *tcell.EventKey {
	if ev.Key() != tcell.KeyEnter || ev.Modifiers()&(tcell.ModShift|tcell.ModAlt) != 0 {
		return ev
	}
	if c.onSend != nil {
		c.onSend(c.GetText())
	}
	return nil
}

// SetOnSend sets the callback for Enter. The composer keeps its text; the
// caller clears it once the send succeeded.
func (c *Composer) SetOnSend(fn func(text string)) {
	c.onSend = fn
}

// Reset empties the editor.
func (c *Composer) Reset() {
	c.SetText("", false)
}

// ResetIfUnchanged empties the editor only if it still holds sent, so text
// typed while a send was in flight survives. It reports whether it cleared.
func (c *Composer) ResetIfUnchanged(sent string) bool {
	if c.GetText() != sent {
		return false
	}
	c.Reset()
	return true
}

// SetAttachment shows the attached image in the title.
func (c *Composer) SetAttachment(path string) {
	if path == "" {
		c.SetTitle(" Message ")
		return
	}
	c.SetTitle(" Message + " + tview.Escape(filepath.Base(path)) + " ")
}

// SetSending dims the border while a send is in flight.
func (c *Composer) SetSending(sending bool) {
	if sending {
		c.SetBorderColor(c.theme.SystemColor)
		return
	}
	c.SetBorderColor(c.theme.BorderColor)
}
