package desktop

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidApp   = errors.New("invalid application descriptor")
	ErrDuplicateApp = errors.New("duplicate application id")
)

// AppID identifies a hosted mini-application. Valid ids are positive.
type AppID int

// Descriptor is the static metadata for one hosted mini-application.
// Icon and Surface are opaque handles the shell never interprets.
type Descriptor struct {
	ID      AppID  `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Icon    string `json:"icon" yaml:"icon"`
	Surface string `json:"surface" yaml:"surface"`
}

// Catalog is the immutable, ordered set of descriptors a desktop is built from.
type Catalog struct {
	apps  []Descriptor
	index map[AppID]int
}

// NewCatalog validates the descriptors and freezes their order
func NewCatalog(apps []Descriptor) (*Catalog, error) {
	c := &Catalog{
		apps:  make([]Descriptor, 0, len(apps)),
		index: make(map[AppID]int, len(apps)),
	}

	for _, app := range apps {
		if app.ID <= 0 {
			return nil, fmt.Errorf("%w: id %d must be positive", ErrInvalidApp, app.ID)
		}
		if app.Name == "" {
			return nil, fmt.Errorf("%w: id %d has no name", ErrInvalidApp, app.ID)
		}
		if _, exists := c.index[app.ID]; exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateApp, app.ID)
		}
		c.index[app.ID] = len(c.apps)
		c.apps = append(c.apps, app)
	}

	return c, nil
}

// Lookup returns the descriptor for id
func (c *Catalog) Lookup(id AppID) (Descriptor, bool) {
	i, ok := c.index[id]
	if !ok {
		return Descriptor{}, false
	}
	return c.apps[i], true
}

// Contains reports whether id belongs to the catalog
func (c *Catalog) Contains(id AppID) bool {
	_, ok := c.index[id]
	return ok
}

// All returns a copy of the descriptors in catalog order
func (c *Catalog) All() []Descriptor {
	out := make([]Descriptor, len(c.apps))
	copy(out, c.apps)
	return out
}

// Len returns the number of descriptors
func (c *Catalog) Len() int {
	return len(c.apps)
}

// FindBySurface returns the first descriptor hosting the named surface
func (c *Catalog) FindBySurface(surface string) (Descriptor, bool) {
	for _, app := range c.apps {
		if app.Surface == surface {
			return app, true
		}
	}
	return Descriptor{}, false
}
