// Package keys maps key events to room view actions.
package keys

import "github.com/gdamore/tcell/v2"

// Action is one key binding.
type Action struct {
	Name        string
	Key         tcell.Key
	Rune        rune
	Label       string // key as shown in hints, e.g. "a" or "Esc"
	Description string
	Handler     func()
	Visible     bool
}

// Matches reports whether ev triggers this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Hint is a visible binding rendered by the menu.
type Hint struct {
	Key         string
	Description string
}

// Registry holds bindings per focus scope in registration order.
type Registry struct {
	scopes map[string][]*Action
}

func NewRegistry() *Registry {
	return &Registry{scopes: make(map[string][]*Action)}
}

// Add registers an action in scope, replacing one with the same name.
func (r *Registry) Add(scope string, action *Action) {
	list := r.scopes[scope]
	for i, a := range list {
		if a.Name == action.Name {
			list[i] = action
			return
		}
	}
	r.scopes[scope] = append(list, action)
}

// Hints returns the visible bindings of scope in registration order.
func (r *Registry) Hints(scope string) []Hint {
	var hints []Hint
	for _, a := range r.scopes[scope] {
		if a.Visible {
			hints = append(hints, Hint{Key: a.Label, Description: a.Description})
		}
	}
	return hints
}

// HandleEvent runs the first action of scope matching ev and reports
// whether one matched.
func (r *Registry) HandleEvent(scope string, ev *tcell.EventKey) bool {
	for _, a := range r.scopes[scope] {
		if a.Matches(ev) {
			if a.Handler != nil {
				a.Handler()
			}
			return true
		}
	}
	return false
}
