package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownCategory is returned when a category name is missing from the
// destination catalog.
var ErrUnknownCategory = errors.New("unknown category")

// Catalog is the destination's category tree, scoped by direction.
type Catalog struct {
	Income  []LargeCategory `json:"income"`
	Expense []LargeCategory `json:"expense"`
}

type LargeCategory struct {
	ID     int              `json:"id"`
	Name   string           `json:"name"`
	Medium []MediumCategory `json:"medium"`
}

type MediumCategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CategoryTree names a large category and its medium children, without ids.
type CategoryTree struct {
	Large  string   `yaml:"large"`
	Medium []string `yaml:"medium"`
}

// NewCatalog numbers the given trees, handing out ids from 1 upwards across
// both scopes so that no two categories share an id.
func NewCatalog(income, expense []CategoryTree) *Catalog {
	next := 0
	id := func() int {
		next++
		return next
	}
	build := func(trees []CategoryTree) []LargeCategory {
		out := make([]LargeCategory, 0, len(trees))
		for _, t := range trees {
			large := LargeCategory{ID: id(), Name: t.Large}
			for _, m := range t.Medium {
				large.Medium = append(large.Medium, MediumCategory{ID: id(), Name: m})
			}
			out = append(out, large)
		}
		return out
	}
	return &Catalog{Income: build(income), Expense: build(expense)}
}

// Scope returns the large categories valid for the given direction.
func (c *Catalog) Scope(d Direction) []LargeCategory {
	if d == Income {
		return c.Income
	}
	return c.Expense
}

// Resolve maps a (large, medium) name pair to ids. The medium category must
// be a child of the large one.
func (c *Catalog) Resolve(d Direction, large, medium string) (int, int, error) {
	for _, l := range c.Scope(d) {
		if l.Name != large {
			continue
		}
		for _, m := range l.Medium {
			if m.Name == medium {
				return l.ID, m.ID, nil
			}
		}
		return 0, 0, fmt.Errorf("%w: invalid %s category, medium_category: %s not found", ErrUnknownCategory, d, medium)
	}
	return 0, 0, fmt.Errorf("%w: invalid %s category, large_category: %s not found", ErrUnknownCategory, d, large)
}

// Names is the inverse of Resolve.
func (c *Catalog) Names(d Direction, largeID, mediumID int) (Category, error) {
	for _, l := range c.Scope(d) {
		if l.ID != largeID {
			continue
		}
		for _, m := range l.Medium {
			if m.ID == mediumID {
				return Category{Large: l.Name, Medium: m.Name}, nil
			}
		}
		return Category{}, fmt.Errorf("%w: %s medium category id %d", ErrUnknownCategory, d, mediumID)
	}
	return Category{}, fmt.Errorf("%w: %s large category id %d", ErrUnknownCategory, d, largeID)
}
