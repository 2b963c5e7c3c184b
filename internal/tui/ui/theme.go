// Package ui holds the shared widgets and colors of the room view.
package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme holds the room view colors.
type Theme struct {
	BgColor           tcell.Color
	FgColor           tcell.Color
	BorderColor       tcell.Color
	BorderFocusColor  tcell.Color
	TitleColor        tcell.Color
	MineColor         tcell.Color
	TheirsColor       tcell.Color
	SystemColor       tcell.Color
	BannerBgColor     tcell.Color
	MenuKeyColor      tcell.Color
	FlashInfoColor    tcell.Color
	FlashWarnColor    tcell.Color
	FlashErrColor     tcell.Color
	PromptBorderColor tcell.Color
}

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:           tcell.ColorBlack,
		FgColor:           tcell.ColorCadetBlue,
		BorderColor:       tcell.ColorDodgerBlue,
		BorderFocusColor:  tcell.ColorLightSkyBlue,
		TitleColor:        tcell.ColorFuchsia,
		MineColor:         tcell.ColorAqua,
		TheirsColor:       tcell.ColorOrange,
		SystemColor:       tcell.ColorGray,
		BannerBgColor:     tcell.ColorDarkRed,
		MenuKeyColor:      tcell.ColorDodgerBlue,
		FlashInfoColor:    tcell.ColorNavajoWhite,
		FlashWarnColor:    tcell.ColorOrange,
		FlashErrColor:     tcell.ColorOrangeRed,
		PromptBorderColor: tcell.ColorDodgerBlue,
	}
}

// Tag returns c as a tview color tag value.
func Tag(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}
