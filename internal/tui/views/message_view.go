package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"

	"github.com/HornetGeek/petow-frontend-sub000/internal/feed"
	"github.com/HornetGeek/petow-frontend-sub000/internal/tui/ui"
)

// MessageView displays the feed of the open room, oldest first.
type MessageView struct {
	*tview.TextView
	theme *ui.Theme
	now   func() time.Time
}

func NewMessageView(theme *ui.Theme) *MessageView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true).SetTitle(" Messages ")
	tv.SetBorderColor(theme.BorderColor)
	tv.SetTitleColor(theme.TitleColor)

	return &MessageView{TextView: tv, theme: theme, now: time.Now}
}

// Update replaces the content with msgs. myID marks the local user's
// messages.
func (mv *MessageView) Update(msgs []feed.Message, myID int64) {
	mv.Clear()
	_, _ = fmt.Fprint(mv, mv.render(msgs, myID))
	mv.ScrollToEnd()
}

func (mv *MessageView) render(msgs []feed.Message, myID int64) string {
	var b strings.Builder
	for _, m := range msgs {
		ts := formatTimestamp(m.Timestamp, mv.now())
		if m.Kind == feed.KindSystem || m.SenderID == feed.SystemSenderID {
			fmt.Fprintf(&b, "[%s::i]%s[-:-:-]\n\n", ui.Tag(mv.theme.SystemColor), displayText(m.Text))
			continue
		}

		sender, color := displayText(m.SenderName), mv.theme.TheirsColor
		if sender == "" {
			sender = fmt.Sprintf("#%d", m.SenderID)
		}
		if m.SenderID == myID {
			sender, color = "You", mv.theme.MineColor
		}
		fmt.Fprintf(&b, "[%s::b]%s[-:-:-] [::d]%s[-:-:-]\n", ui.Tag(color), sender, ts)
		if m.ImageURL != "" {
			fmt.Fprintf(&b, "[::u]%s[-:-:-]\n", displayText(m.ImageURL))
		}
		if m.Text != "" {
			fmt.Fprintf(&b, "%s\n", displayText(m.Text))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// formatTimestamp shows the clock time for today and the date otherwise.
func formatTimestamp(ms int64, now time.Time) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms).In(now.Location())
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02 15:04")
}
