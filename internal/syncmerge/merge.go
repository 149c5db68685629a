// Package syncmerge reconciles a locally cached list with the authoritative
// list fetched from the server.
package syncmerge

import (
	"context"
	"fmt"
	"log/slog"

	"newsdesk/internal/models"
	"newsdesk/internal/snapshot"
)

// Merge returns remote, in remote order, followed by every local item whose
// id the server does not know, in local order. Remote wins on conflicts.
func Merge(remote, local []models.ContentItem) []models.ContentItem {
	seen := make(map[string]struct{}, len(remote))
	out := make([]models.ContentItem, 0, len(remote)+len(local))
	for _, it := range remote {
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	for _, it := range local {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}

// LocalOnly returns the local items the server does not know about.
func LocalOnly(remote, local []models.ContentItem) []models.ContentItem {
	known := make(map[string]struct{}, len(remote))
	for _, it := range remote {
		known[it.ID] = struct{}{}
	}
	out := []models.ContentItem{}
	for _, it := range local {
		if _, ok := known[it.ID]; !ok {
			out = append(out, it)
		}
	}
	return out
}

// FetchFunc returns the server's current list.
type FetchFunc func(ctx context.Context) ([]models.ContentItem, error)

// Syncer loads a list's snapshot, merges it with the server list and writes
// the merged result back as the new snapshot.
type Syncer struct {
	List   string
	Store  snapshot.Store
	Fetch  FetchFunc
	Logger *slog.Logger
}

// Sync performs one merge-on-sync round. When the fetch fails the local
// snapshot is returned along with the error so callers can keep working
// offline.
func (s *Syncer) Sync(ctx context.Context) ([]models.ContentItem, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	local, err := s.Store.Load(ctx, s.List)
	if err != nil {
		// A broken snapshot must not block fetching fresh data.
		logger.WarnContext(ctx, "snapshot load failed, continuing with remote only",
			slog.String("list", s.List), slog.String("error", err.Error()))
		local = nil
	}

	remote, err := s.Fetch(ctx)
	if err != nil {
		return models.CloneItems(local), fmt.Errorf("fetch %s: %w", s.List, err)
	}

	merged := Merge(remote, local)
	if err := s.Store.Save(ctx, s.List, merged); err != nil {
		logger.ErrorContext(ctx, "snapshot save failed",
			slog.String("list", s.List), slog.String("error", err.Error()))
		return merged, fmt.Errorf("save snapshot %s: %w", s.List, err)
	}

	logger.DebugContext(ctx, "list synced",
		slog.String("list", s.List),
		slog.Int("remote", len(remote)),
		slog.Int("local_only", len(merged)-len(remote)))
	return merged, nil
}
