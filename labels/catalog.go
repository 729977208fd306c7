package labels

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"taskdeck/domain"
)

// Source supplies the label catalog, usually through the Redis cache.
type Source interface {
	FetchLabels(ctx context.Context) ([]domain.Label, error)
}

type evicter interface {
	Evict(ctx context.Context)
}

// Catalog answers name lookups against the global label list.
type Catalog struct {
	src Source
}

// NewCatalog wraps src.
func NewCatalog(src Source) *Catalog {
	return &Catalog{src: src}
}

// List returns every label ordered by name.
func (c *Catalog) List(ctx context.Context) ([]domain.Label, error) {
	labels, err := c.src.FetchLabels(ctx)
	if err != nil {
		return nil, err
	}
	out := append([]domain.Label(nil), labels...)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// Resolve maps label names (case-insensitive) or numeric ids to ids. Unknown
// entries are reported together in a ValidationError.
func (c *Catalog) Resolve(ctx context.Context, refs []string) ([]int64, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	labels, err := c.src.FetchLabels(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]int64, len(labels))
	byID := make(map[int64]struct{}, len(labels))
	for _, l := range labels {
		byName[strings.ToLower(strings.TrimSpace(l.Name))] = l.ID
		byID[l.ID] = struct{}{}
	}

	var ids []int64
	var unknown []string
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if id, ok := byName[strings.ToLower(ref)]; ok {
			ids = append(ids, id)
			continue
		}
		if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
			if _, ok := byID[id]; ok {
				ids = append(ids, id)
				continue
			}
		}
		unknown = append(unknown, "label "+strconv.Quote(ref))
	}
	if len(unknown) > 0 {
		return nil, &domain.ValidationError{Fields: unknown}
	}
	return unique(ids), nil
}

// Invalidate drops cached catalog entries when the source caches.
func (c *Catalog) Invalidate(ctx context.Context) {
	if e, ok := c.src.(evicter); ok {
		e.Evict(ctx)
	}
}
