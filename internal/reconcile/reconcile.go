// Package reconcile applies toggles to local state before the server confirms
// them and settles each one against the server's answer.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"newsdesk/internal/models"
)

var (
	// ErrSuperseded is returned when a newer toggle of the same entity field
	// was issued while this one was in flight. The response is not applied.
	ErrSuperseded = errors.New("superseded by a newer change")
	// ErrUnknownItem is returned when the entity is not in local state.
	ErrUnknownItem = errors.New("item not in local state")
)

// Field is a toggleable attribute of a content item.
type Field string

const (
	FieldLiked      Field = "liked"
	FieldBookmarked Field = "bookmarked"
	FieldShared     Field = "shared"
	FieldFeatured   Field = "featured"
	// FieldPublished flips status between published and draft.
	FieldPublished Field = "published"
)

// ParseField validates a raw field name.
func ParseField(raw string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(raw))); f {
	case FieldLiked, FieldBookmarked, FieldShared, FieldFeatured, FieldPublished:
		return f, nil
	default:
		return "", fmt.Errorf("unknown field %q", raw)
	}
}

// Interaction returns the interaction type backing f, if f is an engagement
// toggle persisted through the interactions endpoint.
func (f Field) Interaction() (models.InteractionType, bool) {
	switch f {
	case FieldLiked:
		return models.InteractionLike, true
	case FieldBookmarked:
		return models.InteractionBookmark, true
	case FieldShared:
		return models.InteractionShare, true
	}
	return "", false
}

// State is the local list the reconciler reads and writes. Implementations
// must be safe for concurrent use.
type State interface {
	Get(id string) (models.ContentItem, bool)
	Put(item models.ContentItem) bool
}

// Canonical carries the server's answer for a successful persist. Nil fields
// leave the optimistic value in place.
type Canonical struct {
	Value        *bool
	Counter      *int
	Item         *models.ContentItem
	PointsEarned int
}

// PersistFunc sends one toggle to the server.
type PersistFunc func(ctx context.Context) (Canonical, error)

// Outcome describes how a toggle settled.
type Outcome struct {
	Item         models.ContentItem
	PointsEarned int
	Stale        bool
	RolledBack   bool
}

// Command is one optimistic mutation.
type Command interface {
	Execute(ctx context.Context) error
	Rollback()
}

type key struct {
	id    string
	field Field
}

// fieldState is the slice of an item a toggle touches.
type fieldState struct {
	value   bool
	counter int
	status  models.ContentStatus
}

type entry struct {
	gen      uint64
	inflight int
	settled  fieldState
}

// Reconciler tracks in-flight toggles per entity field. Each toggle gets a
// generation number; only the newest generation may change visible state
// when it settles.
type Reconciler struct {
	mu      sync.Mutex
	state   State
	entries map[key]*entry
}

// New creates a Reconciler over state.
func New(state State) *Reconciler {
	return &Reconciler{state: state, entries: make(map[key]*entry)}
}

// InFlight reports how many toggles of id/field are awaiting the server.
func (r *Reconciler) InFlight(id string, f Field) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key{id, f}]; ok {
		return e.inflight
	}
	return 0
}

// Toggle sets field f of item id to value, persists it and settles the result.
func (r *Reconciler) Toggle(ctx context.Context, id string, f Field, value bool, persist PersistFunc) (Outcome, error) {
	cmd := r.NewToggle(id, f, value, persist)
	err := cmd.Execute(ctx)
	return cmd.Outcome(), err
}

// NewToggle builds a toggle command without running it.
func (r *Reconciler) NewToggle(id string, f Field, value bool, persist PersistFunc) *ToggleCommand {
	return &ToggleCommand{r: r, id: id, field: f, value: value, persist: persist}
}

var _ Command = (*ToggleCommand)(nil)

// ToggleCommand is the Command for a single boolean toggle.
type ToggleCommand struct {
	r       *Reconciler
	id      string
	field   Field
	value   bool
	persist PersistFunc

	entry   *entry
	gen     uint64
	outcome Outcome
}

// Outcome returns how the command settled. Valid after Execute returns.
func (c *ToggleCommand) Outcome() Outcome {
	return c.outcome
}

// Execute applies the toggle locally, calls persist and settles.
func (c *ToggleCommand) Execute(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	canon, err := c.persist(ctx)
	return c.settle(canon, err)
}

func (c *ToggleCommand) begin() error {
	r := c.r
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.state.Get(c.id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, c.id)
	}
	k := key{c.id, c.field}
	e, ok := r.entries[k]
	if !ok {
		e = &entry{}
		r.entries[k] = e
	}
	if e.inflight == 0 {
		e.settled = capture(item, c.field)
	}
	e.gen++
	e.inflight++
	c.entry, c.gen = e, e.gen

	r.state.Put(Apply(item, c.field, c.value))
	return nil
}

func (c *ToggleCommand) settle(canon Canonical, persistErr error) error {
	r := c.r
	r.mu.Lock()
	defer r.mu.Unlock()

	e := c.entry
	e.inflight--
	defer func() {
		if e.inflight == 0 {
			delete(r.entries, key{c.id, c.field})
		}
	}()

	if c.gen != e.gen {
		// A newer toggle owns the visible value. A successful older write
		// still moves the baseline a later rollback restores to.
		if persistErr == nil {
			e.settled = settledAfter(e.settled, c.field, c.value, canon)
		}
		item, _ := r.state.Get(c.id)
		c.outcome = Outcome{Item: item, Stale: true}
		return ErrSuperseded
	}

	if persistErr != nil {
		c.rollbackLocked()
		return persistErr
	}

	item, ok := r.state.Get(c.id)
	if !ok {
		// Deleted while in flight; nothing left to merge into.
		c.outcome = Outcome{PointsEarned: canon.PointsEarned}
		return nil
	}
	merged := mergeCanonical(item, c.field, canon)
	r.state.Put(merged)
	e.settled = capture(merged, c.field)
	c.outcome = Outcome{Item: merged, PointsEarned: canon.PointsEarned}
	return nil
}

// Rollback restores the field and its counter to the last settled state.
func (c *ToggleCommand) Rollback() {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	c.rollbackLocked()
}

func (c *ToggleCommand) rollbackLocked() {
	if c.entry == nil {
		return
	}
	item, ok := c.r.state.Get(c.id)
	if !ok {
		c.outcome = Outcome{RolledBack: true}
		return
	}
	restored := restore(item, c.field, c.entry.settled)
	c.r.state.Put(restored)
	c.outcome = Outcome{Item: restored, RolledBack: true}
}

// Value reads field f from item.
func Value(item models.ContentItem, f Field) bool {
	switch f {
	case FieldLiked:
		return item.Liked
	case FieldBookmarked:
		return item.Bookmarked
	case FieldShared:
		return item.Shared
	case FieldFeatured:
		return item.Featured
	case FieldPublished:
		return item.Status == models.StatusPublished
	}
	return false
}

func counterPtr(item *models.ContentItem, f Field) *int {
	switch f {
	case FieldLiked:
		return &item.Likes
	case FieldBookmarked:
		return &item.Bookmarks
	case FieldShared:
		return &item.Shares
	}
	return nil
}

// Apply returns item with field f set to v. When the flag actually changes,
// the dependent counter moves by one and never drops below zero.
func Apply(item models.ContentItem, f Field, v bool) models.ContentItem {
	if Value(item, f) == v {
		return item
	}
	item = setFlag(item, f, v)
	if p := counterPtr(&item, f); p != nil {
		*p = adjust(*p, v)
	}
	return item
}

func setFlag(item models.ContentItem, f Field, v bool) models.ContentItem {
	switch f {
	case FieldLiked:
		item.Liked = v
	case FieldBookmarked:
		item.Bookmarked = v
	case FieldShared:
		item.Shared = v
	case FieldFeatured:
		item.Featured = v
	case FieldPublished:
		if v {
			item.Status = models.StatusPublished
		} else {
			item.Status = models.StatusDraft
		}
	}
	return item
}

func adjust(counter int, on bool) int {
	if on {
		return counter + 1
	}
	return max(counter-1, 0)
}

func capture(item models.ContentItem, f Field) fieldState {
	s := fieldState{value: Value(item, f), status: item.Status}
	if p := counterPtr(&item, f); p != nil {
		s.counter = *p
	}
	return s
}

func restore(item models.ContentItem, f Field, s fieldState) models.ContentItem {
	switch f {
	case FieldLiked:
		item.Liked = s.value
	case FieldBookmarked:
		item.Bookmarked = s.value
	case FieldShared:
		item.Shared = s.value
	case FieldFeatured:
		item.Featured = s.value
	case FieldPublished:
		item.Status = s.status
	}
	if p := counterPtr(&item, f); p != nil {
		*p = s.counter
	}
	return item
}

func settledAfter(prev fieldState, f Field, v bool, canon Canonical) fieldState {
	next := prev
	if prev.value != v {
		next.value = v
		next.counter = adjust(prev.counter, v)
		if f == FieldPublished {
			next.status = setFlag(models.ContentItem{}, f, v).Status
		}
	}
	if canon.Item != nil {
		return capture(*canon.Item, f)
	}
	if canon.Value != nil {
		next.value = *canon.Value
	}
	if canon.Counter != nil {
		next.counter = max(*canon.Counter, 0)
	}
	return next
}

func mergeCanonical(item models.ContentItem, f Field, canon Canonical) models.ContentItem {
	if canon.Item != nil {
		merged := *canon.Item
		// Per-viewer flags are not part of the persisted entity.
		merged.Liked, merged.Bookmarked, merged.Shared = item.Liked, item.Bookmarked, item.Shared
		return merged
	}
	if canon.Value != nil && Value(item, f) != *canon.Value {
		item = setFlag(item, f, *canon.Value)
	}
	if canon.Counter != nil {
		if p := counterPtr(&item, f); p != nil {
			*p = max(*canon.Counter, 0)
		}
	}
	return item
}
