package ui

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/HornetGeek/petow-frontend-sub000/internal/tui/keys"
)

// Menu shows the key hints of the focused area on one line.
type Menu struct {
	*tview.TextView
	theme *Theme
}

func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignRight)
	tv.SetBackgroundColor(theme.BgColor)

	return &Menu{TextView: tv, theme: theme}
}

func (m *Menu) Update(hints []keys.Hint) {
	m.Clear()
	kc := Tag(m.theme.MenuKeyColor)
	for _, h := range hints {
		_, _ = fmt.Fprintf(m, "[%s::b]<%s>[-:-:-] %s  ", kc, tview.Escape(h.Key), h.Description)
	}
}
