// Package slideshow cycles through the ready photos. It is a pure
// read-and-derive layer over the library stores: it never calls the network
// and has no error states of its own.
package slideshow

import (
	"sync"

	"github.com/NetoRibeiro/photodisplay/internal/photo"
)

// Controller is the playback cursor. The view is the ready subset in store
// order; the index always normalizes into [0, len) with wraparound in both
// directions.
type Controller struct {
	mu     sync.Mutex
	photos []photo.Record
	index  int
}

func NewController() *Controller {
	return &Controller{}
}

// SetPhotos replaces the ready view. When the set size changes the index
// resets to 0 rather than clamping, so it can never point at a removed or
// shifted entry.
func (c *Controller) SetPhotos(ready []photo.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(ready) != len(c.photos) {
		c.index = 0
	}
	c.photos = ready
	if len(c.photos) == 0 {
		c.index = 0
	}
}

func (c *Controller) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.photos) == 0 {
		return
	}
	c.index = (c.index + 1) % len(c.photos)
}

func (c *Controller) Prev() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.photos) == 0 {
		return
	}
	c.index = (c.index - 1 + len(c.photos)) % len(c.photos)
}

// Current returns the photo under the cursor; ok is false when the ready set
// is empty and playback produces no frame.
func (c *Controller) Current() (photo.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.photos) == 0 {
		return photo.Record{}, false
	}
	return c.photos[c.index].Clone(), true
}

func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.photos)
}
