package ui

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/HornetGeek/petow-frontend-sub000/internal/tui/model"
)

// FlashBar shows the current transient notice.
type FlashBar struct {
	*tview.TextView
	theme *Theme
}

func NewFlashBar(theme *Theme) *FlashBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &FlashBar{TextView: tv, theme: theme}
}

// Update renders msg, clearing the bar when it is nil.
func (fb *FlashBar) Update(msg *model.FlashMessage) {
	fb.Clear()
	if msg == nil {
		return
	}

	var color string
	switch msg.Level {
	case model.FlashWarn:
		color = Tag(fb.theme.FlashWarnColor)
	case model.FlashErr:
		color = Tag(fb.theme.FlashErrColor)
	default:
		color = Tag(fb.theme.FlashInfoColor)
	}
	_, _ = fmt.Fprintf(fb, " [%s]%s[-]", color, tview.Escape(msg.Text))
}
