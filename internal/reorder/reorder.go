// Package reorder moves items within a manually ordered list and keeps the
// order index contiguous and 1-based.
package reorder

import (
	"fmt"
	"strings"

	"newsdesk/internal/models"
)

// Direction is a single-step move.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection validates a raw direction.
func ParseDirection(raw string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(raw))); d {
	case Up, Down:
		return d, nil
	default:
		return "", fmt.Errorf("unknown direction %q", raw)
	}
}

// Move swaps the item with id and its neighbour in direction d, then
// renumbers every item. items must already be sorted by order. Moving the
// first item up, the last item down or an unknown id is a no-op: the result
// is an unchanged copy and moved is false.
func Move(items []models.ContentItem, id string, d Direction) (out []models.ContentItem, moved bool) {
	out = models.CloneItems(items)
	idx := models.IndexOf(out, id)
	if idx < 0 {
		return out, false
	}

	target := idx
	switch d {
	case Up:
		target = idx - 1
	case Down:
		target = idx + 1
	}
	if target == idx || target < 0 || target >= len(out) {
		return out, false
	}

	out[idx], out[target] = out[target], out[idx]
	Renumber(out)
	return out, true
}

// MoveTo relocates the item with id to the 1-based position, shifting the
// items in between, then renumbers. Positions are clamped to the list bounds.
func MoveTo(items []models.ContentItem, id string, position int) (out []models.ContentItem, moved bool) {
	out = models.CloneItems(items)
	idx := models.IndexOf(out, id)
	if idx < 0 {
		return out, false
	}

	target := min(max(position-1, 0), len(out)-1)
	if target == idx {
		return out, false
	}

	item := out[idx]
	if target < idx {
		copy(out[target+1:idx+1], out[target:idx])
	} else {
		copy(out[idx:target], out[idx+1:target+1])
	}
	out[target] = item
	Renumber(out)
	return out, true
}

// Arrange returns items ordered by the ids in order, then renumbered. Items
// not named in order keep their relative position after the named ones; ids
// in order that match no item are ignored.
func Arrange(items []models.ContentItem, order []string) []models.ContentItem {
	rank := make(map[string]int, len(order))
	for i, id := range order {
		if _, dup := rank[id]; !dup {
			rank[id] = i
		}
	}
	placed := make([]models.ContentItem, len(order))
	present := make([]bool, len(order))
	rest := make([]models.ContentItem, 0)
	for _, it := range items {
		if r, ok := rank[it.ID]; ok && !present[r] {
			placed[r] = it
			present[r] = true
			continue
		}
		rest = append(rest, it)
	}

	out := make([]models.ContentItem, 0, len(items))
	for i, ok := range present {
		if ok {
			out = append(out, placed[i])
		}
	}
	out = append(out, rest...)
	Renumber(out)
	return out
}

// Renumber assigns order = index+1 to every item in place.
func Renumber(items []models.ContentItem) {
	for i := range items {
		items[i].Order = i + 1
	}
}

// Contiguous reports whether the order fields are exactly 1..N in slice order.
func Contiguous(items []models.ContentItem) bool {
	for i := range items {
		if items[i].Order != i+1 {
			return false
		}
	}
	return true
}
