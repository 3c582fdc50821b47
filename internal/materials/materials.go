// Package materials maps classified symbols to material categories and
// aggregates them into per-checkpoint counts.
package materials

import (
	"fmt"

	"github.com/ironsheep/logistics-bot/internal/detection"
)

// Category is a material category reported to the dashboard.
type Category string

const (
	DispatchReady Category = "dispatchReady"
	Damaged       Category = "damaged"
	EWaste        Category = "eWaste"
	RawMaterials  Category = "rawMaterials"
)

// Categories lists every category in reporting order.
var Categories = []Category{DispatchReady, Damaged, EWaste, RawMaterials}

// ForShape returns the category a shape label stands for. The second result
// is false for Unclassified and unknown labels.
func ForShape(s detection.Shape) (Category, bool) {
	switch s {
	case detection.Circle:
		return DispatchReady, true
	case detection.Square:
		return Damaged, true
	case detection.Triangle:
		return EWaste, true
	case detection.X:
		return RawMaterials, true
	}
	return "", false
}

// Counts holds the number of symbols seen per category in one classification
// pass. The zero value is an empty tally.
type Counts struct {
	DispatchReady int `json:"dispatchReady"`
	Damaged       int `json:"damaged"`
	EWaste        int `json:"eWaste"`
	RawMaterials  int `json:"rawMaterials"`
}

// Tally counts shape labels into a fresh Counts.
func Tally(shapes []detection.Shape) Counts {
	var c Counts
	for _, s := range shapes {
		if cat, ok := ForShape(s); ok {
			c.Add(cat)
		}
	}
	return c
}

// Add increments the count for cat. Unknown categories are ignored.
func (c *Counts) Add(cat Category) {
	switch cat {
	case DispatchReady:
		c.DispatchReady++
	case Damaged:
		c.Damaged++
	case EWaste:
		c.EWaste++
	case RawMaterials:
		c.RawMaterials++
	}
}

// Get returns the count for cat, or 0 for an unknown category.
func (c Counts) Get(cat Category) int {
	switch cat {
	case DispatchReady:
		return c.DispatchReady
	case Damaged:
		return c.Damaged
	case EWaste:
		return c.EWaste
	case RawMaterials:
		return c.RawMaterials
	}
	return 0
}

// Total returns the sum over all categories.
func (c Counts) Total() int {
	return c.DispatchReady + c.Damaged + c.EWaste + c.RawMaterials
}

// Map returns the counts keyed by category name.
func (c Counts) Map() map[string]int {
	m := make(map[string]int, len(Categories))
	for _, cat := range Categories {
		m[string(cat)] = c.Get(cat)
	}
	return m
}

// String renders the counts in the form used by the local record, e.g.
// {dispatchReady: 1, damaged: 0, eWaste: 2, rawMaterials: 0}.
func (c Counts) String() string {
	return fmt.Sprintf("{dispatchReady: %d, damaged: %d, eWaste: %d, rawMaterials: %d}",
		c.DispatchReady, c.Damaged, c.EWaste, c.RawMaterials)
}
