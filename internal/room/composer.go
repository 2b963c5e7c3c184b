package room

import (
	"strings"
	"sync"

	"github.com/HornetGeek/petow-frontend-sub000/internal/backend"
)

// Draft is the content of one send.
type Draft struct {
	Text  string
	Image *backend.Image
}

// Empty reports whether there is neither trimmed text nor an image.
func (d Draft) Empty() bool {
	return strings.TrimSpace(d.Text) == "" && d.Image == nil
}

// Composer holds the local, unsent input of a room view.
type Composer struct {
	mu    sync.Mutex
	text  string
	image *backend.Image
}

func (c *Composer) SetText(text string) {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
}

// SetImage selects img for the next send; nil deselects.
func (c *Composer) SetImage(img *backend.Image) {
	c.mu.Lock()
	c.image = img
	c.mu.Unlock()
}

// Draft returns the current content.
func (c *Composer) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Draft{Text: c.text, Image: c.image}
}

// Clear drops text and image.
func (c *Composer) Clear() {
	c.mu.Lock()
	c.text = ""
	c.image = nil
	c.mu.Unlock()
}
