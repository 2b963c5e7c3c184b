package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/HornetGeek/petow-frontend-sub000/internal/api"
	"github.com/HornetGeek/petow-frontend-sub000/internal/tui/ui"
)

// RoomHeader names the counterpart and the pet the room is about.
type RoomHeader struct {
	*tview.TextView
	theme *ui.Theme
}

func NewRoomHeader(theme *ui.Theme) *RoomHeader {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return &RoomHeader{TextView: tv, theme: theme}
}

func (h *RoomHeader) Update(info *api.RoomInfo) {
	h.Clear()
	_, _ = fmt.Fprint(h, h.line(info))
}

func (h *RoomHeader) line(info *api.RoomInfo) string {
	if info == nil {
		return " [::d]no room open[-:-:-]"
	}
	name := displayText(info.Counterpart.Name)
	if name == "" {
		name = fmt.Sprintf("#%d", info.Counterpart.ID)
	}
	parts := []string{fmt.Sprintf("[%s::b]%s[-:-:-]", ui.Tag(h.theme.TitleColor), name)}
	if info.PetName != "" {
		parts = append(parts, displayText(info.PetName))
	}
	if info.RequestKind != "" {
		req := displayText(info.RequestKind)
		if info.RequestStatus != "" {
			req += " (" + displayText(info.RequestStatus) + ")"
		}
		parts = append(parts, req)
	}
	if !info.Active {
		parts = append(parts, "[::d]inactive[-:-:-]")
	}
	return " " + strings.Join(parts, " | ")
}
