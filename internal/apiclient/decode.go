package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"newsdesk/internal/models"
)

// ValidateDraft checks the fields a create or full update requires.
func ValidateDraft(item models.ContentItem) error {
	if strings.TrimSpace(item.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if item.Status != "" && !item.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", item.Status)}
	}
	return nil
}

// decodeList accepts {"items": [...], "version": n} or a bare array.
func decodeList(op string, kind models.ContentKind, body []byte) (ListResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ListResult{}, &SchemaError{Op: op, Reason: "empty body"}
	}

	var (
		raw     []models.ContentItem
		version int64
	)
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return ListResult{}, &SchemaError{Op: op, Reason: "invalid item array", Err: err}
		}
	case '{':
		var env struct {
			Items   *[]models.ContentItem `json:"items"`
			Version int64                 `json:"version"`
		}
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return ListResult{}, &SchemaError{Op: op, Reason: "invalid list envelope", Err: err}
		}
		if env.Items == nil {
			return ListResult{}, &SchemaError{Op: op, Reason: "missing items"}
		}
		raw, version = *env.Items, env.Version
	default:
		return ListResult{}, &SchemaError{Op: op, Reason: "expected object or array"}
	}

	items := make([]models.ContentItem, 0, len(raw))
	for i := range raw {
		it, err := normalizeItem(kind, raw[i])
		if err != nil {
			return ListResult{}, &SchemaError{Op: op, Reason: fmt.Sprintf("item %d", i), Err: err}
		}
		items = append(items, it)
	}
	return ListResult{Items: items, Version: version}, nil
}

func decodeItem(op string, kind models.ContentKind, body []byte) (models.ContentItem, error) {
	var it models.ContentItem
	if err := json.Unmarshal(body, &it); err != nil {
		return models.ContentItem{}, &SchemaError{Op: op, Reason: "invalid item", Err: err}
	}
	it, err := normalizeItem(kind, it)
	if err != nil {
		return models.ContentItem{}, &SchemaError{Op: op, Reason: "invalid item", Err: err}
	}
	return it, nil
}

// normalizeItem fills defaults and rejects items the engine cannot hold.
func normalizeItem(kind models.ContentKind, it models.ContentItem) (models.ContentItem, error) {
	if strings.TrimSpace(it.ID) == "" {
		return it, fmt.Errorf("missing id")
	}
	if it.Kind == "" {
		it.Kind = kind
	}
	if it.Kind != kind {
		return it, fmt.Errorf("item %s has kind %q, want %q", it.ID, it.Kind, kind)
	}
	if it.Status == "" {
		it.Status = models.StatusDraft
	}
	if !it.Status.Valid() {
		return it, fmt.Errorf("item %s has unknown status %q", it.ID, it.Status)
	}
	if it.Order < 0 {
		return it, fmt.Errorf("item %s has negative order", it.ID)
	}
	for name, v := range map[string]int{
		"views": it.Views, "comments": it.Comments, "likes": it.Likes,
		"bookmarks": it.Bookmarks, "shares": it.Shares,
	} {
		if v < 0 {
			return it, fmt.Errorf("item %s has negative %s", it.ID, name)
		}
	}
	return it, nil
}

type ack struct {
	Success bool  `json:"success"`
	Version int64 `json:"version"`
}

func decodeAck(op string, body []byte) (ack, error) {
	var a ack
	if err := json.Unmarshal(body, &a); err != nil {
		return ack{}, &SchemaError{Op: op, Reason: "invalid acknowledgement", Err: err}
	}
	return a, nil
}

func ackVersion(op string, body []byte) (int64, error) {
	a, err := decodeAck(op, body)
	if err != nil {
		return 0, err
	}
	if !a.Success {
		return 0, &SchemaError{Op: op, Reason: "change not confirmed"}
	}
	return a.Version, nil
}
