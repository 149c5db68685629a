// Package desk is the typed local state container for one content list. It
// combines the listing pipeline, the reorder engine, the optimistic
// reconciler and merge-on-sync over the content API, and turns every
// failure into a notification instead of letting it escape.
package desk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"newsdesk/internal/apiclient"
	"newsdesk/internal/listing"
	"newsdesk/internal/models"
	"newsdesk/internal/observability"
	"newsdesk/internal/reconcile"
	"newsdesk/internal/reorder"
	"newsdesk/internal/snapshot"
	"newsdesk/internal/syncmerge"

	"golang.org/x/sync/singleflight"
)

// API is the subset of the content API the desk needs. *apiclient.Client
// implements it.
type API interface {
	List(ctx context.Context, kind models.ContentKind, q apiclient.ListQuery) (apiclient.ListResult, error)
	Create(ctx context.Context, kind models.ContentKind, draft models.ContentItem) (models.ContentItem, error)
	Update(ctx context.Context, kind models.ContentKind, id string, patch map[string]any) (models.ContentItem, error)
	Delete(ctx context.Context, kind models.ContentKind, id string) (int64, error)
	Reorder(ctx context.Context, kind models.ContentKind, items []models.ContentItem, version int64) (int64, error)
	Move(ctx context.Context, kind models.ContentKind, id string, position int, version int64) (int64, error)
	Interact(ctx context.Context, in apiclient.InteractionRequest) (models.InteractionResult, error)
	Subscribe(ctx context.Context) (<-chan models.ContentEvent, error)
}

var _ API = (*apiclient.Client)(nil)

// Policy decides what happens to the local order when a reorder fails.
type Policy string

const (
	// PolicyRollback restores the last order the server confirmed.
	PolicyRollback Policy = "rollback"
	// PolicySticky keeps the optimistic order and marks the list dirty
	// until RetryReorder succeeds.
	PolicySticky Policy = "sticky"
)

// ParsePolicy validates a raw policy name. Empty means rollback.
func ParsePolicy(raw string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PolicyRollback, nil
	case PolicyRollback, PolicySticky:
		return p, nil
	default:
		return "", fmt.Errorf("unknown reorder failure policy %q", raw)
	}
}

// Options configures a Desk.
type Options struct {
	Kind     models.ContentKind
	API      API
	Store    snapshot.Store
	Notifier Notifier
	Policy   Policy
	// UserID identifies the viewer for interaction toggles.
	UserID string
	Logger *slog.Logger
}

// Desk holds one list's local state. All methods are safe for concurrent
// use; state only changes through them.
type Desk struct {
	kind     models.ContentKind
	api      API
	store    snapshot.Store
	notifier Notifier
	policy   Policy
	userID   string
	logger   *slog.Logger

	mu        sync.RWMutex
	items     []models.ContentItem
	confirmed []string            // ids in the last order the server acknowledged
	known     map[string]struct{} // ids the server has; the rest are local-only
	moveGen   uint64
	dirty     bool

	seq    *reorder.Sequencer
	rec    *reconcile.Reconciler
	syncer *syncmerge.Syncer
	loads  singleflight.Group
}

// New creates a Desk. Kind and API are required.
func New(opts Options) (*Desk, error) {
	if !opts.Kind.Valid() {
		return nil, fmt.Errorf("unknown content kind %q", opts.Kind)
	}
	if opts.API == nil {
		return nil, errors.New("desk: API is required")
	}
	if opts.Store == nil {
		opts.Store = snapshot.NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{Logger: opts.Logger}
	}
	if opts.Policy == "" {
		opts.Policy = PolicyRollback
	}

	d := &Desk{
		kind:     opts.Kind,
		api:      opts.API,
		store:    opts.Store,
		notifier: opts.Notifier,
		policy:   opts.Policy,
		userID:   opts.UserID,
		logger:   opts.Logger.With(slog.String("list", opts.Kind.Resource())),
		items:    []models.ContentItem{},
		known:    map[string]struct{}{},
		seq:      reorder.NewSequencer(),
	}
	d.rec = reconcile.New(d)
	d.syncer = &syncmerge.Syncer{
		List:   d.list(),
		Store:  opts.Store,
		Fetch:  d.fetchRemote,
		Logger: d.logger,
	}
	return d, nil
}

func (d *Desk) list() string { return d.kind.Resource() }

// Kind returns the content kind this desk manages.
func (d *Desk) Kind() models.ContentKind { return d.kind }

// Version returns the last list version seen from the server.
func (d *Desk) Version() int64 { return d.seq.Version(d.list()) }

// Dirty reports whether the local order has changes the server rejected
// under the sticky policy.
func (d *Desk) Dirty() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dirty
}

// Items returns a copy of the local list in manual order.
func (d *Desk) Items() []models.ContentItem {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return models.CloneItems(d.items)
}

// View returns the filtered and sorted visible subset.
func (d *Desk) View(c listing.Criteria, key listing.SortKey) []models.ContentItem {
	return listing.Apply(d.Items(), c, key)
}

// Get implements reconcile.State.
func (d *Desk) Get(id string) (models.ContentItem, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i := models.IndexOf(d.items, id); i >= 0 {
		return d.items[i], true
	}
	return models.ContentItem{}, false
}

// Put implements reconcile.State. It only replaces existing items.
func (d *Desk) Put(item models.ContentItem) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := models.IndexOf(d.items, item.ID)
	if i < 0 {
		return false
	}
	d.items[i] = item
	return true
}

func (d *Desk) fetchRemote(ctx context.Context) ([]models.ContentItem, error) {
	res, err := d.api.List(ctx, d.kind, apiclient.ListQuery{})
	if err != nil {
		return nil, err
	}
	d.seq.ResetVersion(d.list(), res.Version)

	known := make(map[string]struct{}, len(res.Items))
	for _, it := range res.Items {
		known[it.ID] = struct{}{}
	}
	d.mu.Lock()
	d.known = known
	d.mu.Unlock()
	return res.Items, nil
}

// Load runs merge-on-sync: the server list wins, local-only snapshot items
// are kept after it. Concurrent calls share one fetch.
func (d *Desk) Load(ctx context.Context) ([]models.ContentItem, error) {
	v, err, _ := d.loads.Do("load", func() (any, error) {
		merged, err := d.syncer.Sync(ctx)
		if merged == nil {
			merged = []models.ContentItem{}
		}
		d.mu.Lock()
		if err == nil || len(d.items) == 0 {
			d.items = models.CloneItems(merged)
		}
		if err == nil {
			d.confirmed = ids(d.items)
			d.dirty = false
		}
		d.mu.Unlock()
		return merged, err
	})
	if err != nil {
		d.fail(ctx, "load", "", err)
	}
	items, _ := v.([]models.ContentItem)
	return models.CloneItems(items), err
}

// Create validates draft locally, posts it and mirrors the server's entity
// into local state. Validation failures return before any request and are
// not notified; they belong inline with the form.
func (d *Desk) Create(ctx context.Context, draft models.ContentItem) (models.ContentItem, error) {
	if err := apiclient.ValidateDraft(draft); err != nil {
		return models.ContentItem{}, err
	}
	created, err := d.api.Create(ctx, d.kind, draft)
	if err != nil {
		d.fail(ctx, "create", "", err)
		return models.ContentItem{}, err
	}

	d.mu.Lock()
	if i := models.IndexOf(d.items, created.ID); i >= 0 {
		d.items[i] = created
	} else {
		d.items = append(d.items, created)
		d.confirmed = append(d.confirmed, created.ID)
	}
	d.known[created.ID] = struct{}{}
	d.mu.Unlock()

	d.saveSnapshot(ctx)
	return created, nil
}

// Update applies patch locally, sends it and reconciles with the server's
// entity. On failure the item is restored exactly.
func (d *Desk) Update(ctx context.Context, id string, patch map[string]any) (models.ContentItem, error) {
	prev, ok := d.Get(id)
	if !ok {
		return models.ContentItem{}, &apiclient.ValidationError{Field: "id", Message: "unknown item " + id}
	}
	optimistic, err := applyPatch(prev, patch)
	if err != nil {
		return models.ContentItem{}, err
	}
	d.Put(optimistic)

	updated, err := d.api.Update(ctx, d.kind, id, patch)
	if err != nil {
		d.restoreIf(optimistic, prev)
		observability.OptimisticRollbacks.WithLabelValues("update").Inc()
		d.fail(ctx, "update", id, err)
		return models.ContentItem{}, err
	}

	d.Put(d.keepInFlight(updated))
	d.saveSnapshot(ctx)
	return updated, nil
}

// keepInFlight carries the viewer flags over from local state, plus the
// local value of every field a toggle is still persisting; that toggle
// settles it.
func (d *Desk) keepInFlight(updated models.ContentItem) models.ContentItem {
	current, ok := d.Get(updated.ID)
	if !ok {
		return updated
	}
	updated.Liked, updated.Bookmarked, updated.Shared = current.Liked, current.Bookmarked, current.Shared
	for _, f := range []reconcile.Field{
		reconcile.FieldLiked, reconcile.FieldBookmarked, reconcile.FieldShared,
		reconcile.FieldFeatured, reconcile.FieldPublished,
	} {
		if d.rec.InFlight(updated.ID, f) == 0 {
			continue
		}
		switch f {
		case reconcile.FieldLiked:
			updated.Likes = current.Likes
		case reconcile.FieldBookmarked:
			updated.Bookmarks = current.Bookmarks
		case reconcile.FieldShared:
			updated.Shares = current.Shares
		case reconcile.FieldFeatured:
			updated.Featured = current.Featured
		case reconcile.FieldPublished:
			updated.Status = current.Status
		}
	}
	return updated
}

// restoreIf puts prev back unless the item changed again since optimistic
// was applied.
func (d *Desk) restoreIf(optimistic, prev models.ContentItem) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i := models.IndexOf(d.items, prev.ID); i >= 0 && d.items[i] == optimistic {
		d.items[i] = prev
	}
}

// Delete removes the item from local state only after the server confirms.
func (d *Desk) Delete(ctx context.Context, id string) error {
	if _, ok := d.Get(id); !ok {
		return &apiclient.ValidationError{Field: "id", Message: "unknown item " + id}
	}
	version, err := d.api.Delete(ctx, d.kind, id)
	if err != nil {
		d.fail(ctx, "delete", id, err)
		return err
	}
	d.seq.SetVersion(d.list(), version)

	d.mu.Lock()
	if i := models.IndexOf(d.items, id); i >= 0 {
		d.items = append(d.items[:i:i], d.items[i+1:]...)
		reorder.Renumber(d.items)
	}
	d.confirmed = removeID(d.confirmed, id)
	delete(d.known, id)
	d.mu.Unlock()

	d.saveSnapshot(ctx)
	return nil
}

func (d *Desk) saveSnapshot(ctx context.Context) {
	if err := d.store.Save(ctx, d.list(), d.Items()); err != nil {
		d.logger.WarnContext(ctx, "snapshot save failed", slog.String("error", err.Error()))
	}
}

// fail logs and notifies a failed operation. Superseded toggles are only
// logged; the newer change already owns the visible state.
func (d *Desk) fail(ctx context.Context, op, id string, err error) {
	level := LevelError
	var stale *apiclient.StaleStateError
	if errors.As(err, &stale) {
		level = LevelWarning
	}
	d.notifier.Notify(ctx, Notification{
		Level:   level,
		Op:      op,
		ItemID:  id,
		Message: apiclient.UserMessage(err),
		Err:     err,
	})
}

func ids(items []models.ContentItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func removeID(list []string, id string) []string {
	out := list[:0:0]
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// applyPatch applies the editable fields of patch to item.
func applyPatch(item models.ContentItem, patch map[string]any) (models.ContentItem, error) {
	for k, v := range patch {
		switch k {
		case "title", "content", "author_name", "category", "audio_url":
			s, ok := v.(string)
			if !ok {
				return item, &apiclient.ValidationError{Field: k, Message: "must be a string"}
			}
			switch k {
			case "title":
				if strings.TrimSpace(s) == "" {
					return item, &apiclient.ValidationError{Field: k, Message: "title is required"}
				}
				item.Title = s
			case "content":
				item.Content = s
			case "author_name":
				item.AuthorName = s
			case "category":
				item.Category = s
			case "audio_url":
				item.AudioURL = s
			}
		case "status":
			s, _ := v.(string)
			status := models.ContentStatus(s)
			if !status.Valid() {
				return item, &apiclient.ValidationError{Field: k, Message: fmt.Sprintf("unknown status %q", s)}
			}
			item.Status = status
		case "featured":
			b, ok := v.(bool)
			if !ok {
				return item, &apiclient.ValidationError{Field: k, Message: "must be a boolean"}
			}
			item.Featured = b
		default:
			return item, &apiclient.ValidationError{Field: k, Message: "field cannot be updated"}
		}
	}
	return item, nil
}
