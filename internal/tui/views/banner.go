package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/HornetGeek/petow-frontend-sub000/internal/tui/ui"
)

// Banner is the dismissible error line above the messages.
type Banner struct {
	*tview.TextView
	text string
}

func NewBanner(theme *ui.Theme) *Banner {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BannerBgColor)
	return &Banner{TextView: tv}
}

// Update shows msg; an empty msg hides the banner's content.
func (b *Banner) Update(msg string) {
	b.text = msg
	b.Clear()
	if msg != "" {
		_, _ = fmt.Fprintf(b, " [white::b]%s[-:-:-] [::d](Esc to dismiss)[-:-:-]", displayText(msg))
	}
}

// Visible reports whether a message is shown.
func (b *Banner) Visible() bool {
	return b.text != ""
}
