// Package tui is the terminal room view of a running daemon.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/HornetGeek/petow-frontend-sub000/internal/api"
	"github.com/HornetGeek/petow-frontend-sub000/internal/tui/keys"
	"github.com/HornetGeek/petow-frontend-sub000/internal/tui/model"
	"github.com/HornetGeek/petow-frontend-sub000/internal/tui/ui"
	"github.com/HornetGeek/petow-frontend-sub000/internal/tui/views"
)

const (
	scopeRoom     = "room"
	scopeComposer = "composer"
)

// Watcher opens the daemon event stream.
type Watcher interface {
	Watch(ctx context.Context) (*api.Watcher, error)
}

// Client is what the app needs from the daemon connection.
type Client interface {
	model.RoomClient
	Watcher
}

// App is the room view shell.
type App struct {
	app      *tview.Application
	pages    *tview.Pages
	layout   *tview.Flex
	theme    *ui.Theme
	room     *model.Room
	watcher  Watcher
	registry *keys.Registry
	feedID   string

	header    *views.RoomHeader
	banner    *views.Banner
	msgView   *views.MessageView
	composer  *views.Composer
	prompt    *ui.Prompt
	flashBar  *ui.FlashBar
	menu      *ui.Menu
	statusBar *views.StatusBar

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the room view for feedID. An empty feedID shows the room
// the daemon already has open.
func NewApp(c Client, profileName, feedID string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		theme:     theme,
		room:      model.NewRoom(c),
		watcher:   c,
		registry:  keys.NewRegistry(),
		feedID:    feedID,
		header:    views.NewRoomHeader(theme),
		banner:    views.NewBanner(theme),
		msgView:   views.NewMessageView(theme),
		composer:  views.NewComposer(theme),
		prompt:    ui.NewPrompt(theme),
		flashBar:  ui.NewFlashBar(theme),
		menu:      ui.NewMenu(theme),
		statusBar: views.NewStatusBar(),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.statusBar.SetProfile(profileName)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.Add(scopeRoom, &keys.Action{
		Name: "compose", Key: tcell.KeyRune, Rune: 'i', Label: "i",
		Description: "write", Visible: true,
		Handler: a.focusComposer,
	})
	a.registry.Add(scopeRoom, &keys.Action{
		Name: "image", Key: tcell.KeyRune, Rune: 'p', Label: "p",
		Description: "attach image", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptImage, a.room.Image()) },
	})
	a.registry.Add(scopeRoom, &keys.Action{
		Name: "archive", Key: tcell.KeyRune, Rune: 'a', Label: "a",
		Description: "archive", Visible: true,
		Handler: a.confirmArchive,
	})
	a.registry.Add(scopeRoom, &keys.Action{
		Name: "command", Key: tcell.KeyRune, Rune: ':', Label: ":",
		Description: "command", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptCommand, "") },
	})
	a.registry.Add(scopeRoom, &keys.Action{
		Name: "quit", Key: tcell.KeyRune, Rune: 'q', Label: "q",
		Description: "quit", Visible: true,
		Handler: a.Stop,
	})

	a.registry.Add(scopeComposer, &keys.Action{
		Name: "send", Key: tcell.KeyEnter, Label: "Enter",
		Description: "send", Visible: true,
	})
	a.registry.Add(scopeComposer, &keys.Action{
		Name: "leave", Key: tcell.KeyEscape, Label: "Esc",
		Description: "back", Visible: true,
		Handler: func() { a.app.SetFocus(a.msgView) },
	})
}

func (a *App) setupCallbacks() {
	a.composer.SetOnSend(a.send)

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptImage:
			a.attachImage(text)
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)
}

func (a *App) setupLayout() {
	a.layout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.header, 1, 0, false).
		AddItem(a.banner, 0, 0, false).
		AddItem(a.msgView, 0, 1, true).
		AddItem(a.composer, 5, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.flashBar, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.pages.AddPage("room", a.layout, true, true)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.menu, 1, 0, false)

	a.app.SetRoot(root, true)
	a.app.SetFocus(a.msgView)
	a.app.SetInputCapture(a.capture)
}

func (a *App) capture(event *tcell.EventKey) *tcell.EventKey {
	if page, _ := a.pages.GetFrontPage(); page != "room" {
		return event
	}
	if a.prompt.HasFocus() {
		return event
	}

	if event.Key() == tcell.KeyEscape && a.banner.Visible() {
		a.dismissError()
		return nil
	}

	if a.composer.HasFocus() {
		if event.Key() == tcell.KeyEscape {
			a.registry.HandleEvent(scopeComposer, event)
			a.refreshMenu()
			return nil
		}
		return event
	}

	if a.registry.HandleEvent(scopeRoom, event) {
		return nil
	}
	return event
}

func (a *App) focusComposer() {
	a.app.SetFocus(a.composer)
	a.refreshMenu()
}

func (a *App) showPrompt(mode ui.PromptMode, initial string) {
	a.prompt.Activate(mode, initial)
	a.layout.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.layout.ResizeItem(a.prompt, 0, 0)
	a.app.SetFocus(a.msgView)
	a.refreshMenu()
}

func (a *App) send(text string) {
	if a.room.Sending() {
		a.room.Flash.Warn("a message is already being sent")
		a.render()
		return
	}
	go func() {
		_, err := a.room.Send(a.ctx, text)
		a.app.QueueUpdateDraw(func() {
			if err == nil {
				a.composer.ResetIfUnchanged(text)
			} else {
				a.room.Flash.Warn(model.ErrorText(err))
			}
			a.render()
		})
	}()
}

func (a *App) attachImage(path string) {
	if err := a.room.AttachImage(path); err != nil {
		a.room.Flash.Err(err.Error())
	}
	a.render()
}

func (a *App) confirmArchive() {
	modal := tview.NewModal().
		SetText("Archive this chat? It will disappear from your list.").
		AddButtons([]string{"Archive", "Cancel"}).
		SetDoneFunc(func(_ int, label string) {
			a.pages.RemovePage("confirm")
			a.app.SetFocus(a.msgView)
			if label == "Archive" {
				a.archive()
			}
		})
	a.pages.AddPage("confirm", modal, true, true)
	a.app.SetFocus(modal)
}

func (a *App) archive() {
	go func() {
		err := a.room.Archive(a.ctx)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.room.Flash.Err("archive failed")
			}
			a.render()
		})
	}()
}

func (a *App) dismissError() {
	go func() {
		_ = a.room.DismissError(a.ctx)
		a.app.QueueUpdateDraw(a.render)
	}()
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "":
	case "archive":
		a.confirmArchive()
	case "image":
		a.attachImage(cmd.Args)
	case "dismiss":
		a.dismissError()
	case "quit":
		a.Stop()
	default:
		a.room.Flash.Warn(fmt.Sprintf("unknown command %q", cmd.Name))
		a.render()
	}
}

// render copies the model into the widgets. Call on the UI goroutine.
func (a *App) render() {
	a.header.Update(a.room.Info())
	a.banner.Update(a.room.Banner())
	if a.banner.Visible() {
		a.layout.ResizeItem(a.banner, 1, 0)
	} else {
		a.layout.ResizeItem(a.banner, 0, 0)
	}
	a.msgView.Update(a.room.Messages(), a.room.MyID())
	a.composer.SetAttachment(a.room.Image())
	a.composer.SetSending(a.room.Sending())
	a.statusBar.SetState(a.room.State())
	a.statusBar.SetSending(a.room.Sending())
	a.flashBar.Update(a.room.Flash.Get())
	a.refreshMenu()
}

func (a *App) refreshMenu() {
	scope := scopeRoom
	if a.composer.HasFocus() {
		scope = scopeComposer
	}
	a.menu.Update(a.registry.Hints(scope))
}

// Run opens the room and blocks until the user quits or the room is
// archived.
func (a *App) Run() error {
	go a.start()
	return a.app.Run()
}

func (a *App) start() {
	w, err := a.watcher.Watch(a.ctx)
	if err != nil {
		a.fatal(fmt.Errorf("watch daemon: %w", err))
		return
	}
	go a.watch(w)
	go a.refreshLoop()

	if err := a.room.Open(a.ctx, a.feedID); err != nil {
		a.room.Flash.Err(err.Error())
	}
	a.app.QueueUpdateDraw(a.render)
}

func (a *App) watch(w *api.Watcher) {
	for {
		evt, err := w.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			if a.ctx.Err() == nil {
				a.fatal(fmt.Errorf("event stream: %w", err))
			}
			return
		}
		if a.room.Apply(evt) {
			a.room.Flash.Info("chat archived")
			a.app.QueueUpdateDraw(a.render)
			time.AfterFunc(time.Second, a.Stop)
			return
		}
	}
}

// refreshLoop redraws on model changes and every second for flash expiry.
func (a *App) refreshLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-a.room.RefreshCh():
		case <-ticker.C:
		case <-a.ctx.Done():
			return
		}
		a.app.QueueUpdateDraw(a.render)
	}
}

func (a *App) fatal(err error) {
	a.app.QueueUpdateDraw(func() {
		modal := tview.NewModal().
			SetText(err.Error()).
			AddButtons([]string{"Quit"}).
			SetDoneFunc(func(int, string) { a.Stop() })
		a.pages.AddPage("fatal", modal, true, true)
		a.app.SetFocus(modal)
	})
}

// Stop shuts the view down.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
