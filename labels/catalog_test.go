package labels

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"taskdeck/domain"
	"taskdeck/storage"
)

type stubSource struct {
	labels []domain.Label
	calls  int
}

func (s *stubSource) FetchLabels(ctx context.Context) ([]domain.Label, error) {
	s.calls++
	return s.labels, nil
}

func (s *stubSource) FetchUsers(ctx context.Context) ([]domain.User, error) {
	return nil, nil
}

var catalogFixture = []domain.Label{
	{ID: 3, Name: "urgent-fix"},
	{ID: 1, Name: "Bug"},
	{ID: 2, Name: "frontend"},
}

func TestCatalogListSortedByName(t *testing.T) {
	cat := NewCatalog(&stubSource{labels: catalogFixture})
	labels, err := cat.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	names := []string{labels[0].Name, labels[1].Name, labels[2].Name}
	if !slices.Equal(names, []string{"Bug", "frontend", "urgent-fix"}) {
		t.Fatalf("unexpected order: %v", names)
	}
}

func TestCatalogResolve(t *testing.T) {
	cat := NewCatalog(&stubSource{labels: catalogFixture})
	ids, err := cat.Resolve(context.Background(), []string{"bug", "2", "BUG", " "})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !slices.Equal(ids, []int64{1, 2}) {
		t.Fatalf("unexpected ids: %v", ids)
	}

	_, err = cat.Resolve(context.Background(), []string{"bug", "missing", "99"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) != 2 {
		t.Fatalf("expected validation error for unknown labels, got %v", err)
	}
}

func TestCatalogThroughRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	src := &stubSource{labels: catalogFixture}
	cat := NewCatalog(storage.NewCache(src, rc, time.Minute, ""))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := cat.List(ctx); err != nil {
			t.Fatalf("list: %v", err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected cached catalog, backend called %d times", src.calls)
	}

	cat.Invalidate(ctx)
	if _, err := cat.Resolve(ctx, []string{"frontend"}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("expected refetch after invalidate, got %d calls", src.calls)
	}
}
