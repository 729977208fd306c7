package notifications

import (
	"context"
	"errors"
	"testing"

	"taskdeck/domain"
)

type stubAPI struct {
	pages       map[int][]domain.Notification
	totalPages  int
	unread      int64
	marked      []int64
	markErr     error
	countCalls  int
	pageCalls   int
	requestSize []int
}

func (s *stubAPI) Notifications(ctx context.Context, userID int64, page, size int) (domain.Page[domain.Notification], error) {
	s.pageCalls++
	s.requestSize = append(s.requestSize, size)
	items := append([]domain.Notification(nil), s.pages[page]...)
	return domain.Page[domain.Notification]{Content: items, TotalPages: s.totalPages}, nil
}

func (s *stubAPI) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	s.countCalls++
	return s.unread, nil
}

func (s *stubAPI) MarkRead(ctx context.Context, id int64) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.marked = append(s.marked, id)
	return nil
}

func n(id int64, read bool) domain.Notification {
	return domain.Notification{ID: id, UserID: 7, Message: "task assigned", Read: read}
}

func TestFetchPageHasMore(t *testing.T) {
	tests := []struct {
		name       string
		index      int
		totalPages int
		want       bool
	}{
		{"first of three", 0, 3, true},
		{"last of three", 2, 3, false},
		{"single page", 0, 1, false},
		{"empty", 0, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api := &stubAPI{totalPages: tc.totalPages}
			page, err := NewTracker(api, 7, 5, nil).FetchPage(context.Background(), tc.index, 0)
			if err != nil {
				t.Fatalf("fetch: %v", err)
			}
			if page.HasMore != tc.want {
				t.Fatalf("HasMore = %v, want %v", page.HasMore, tc.want)
			}
			if api.requestSize[0] != 5 {
				t.Fatalf("expected default size 5, got %d", api.requestSize[0])
			}
		})
	}
}

func TestReadStateIsMonotonic(t *testing.T) {
	api := &stubAPI{pages: map[int][]domain.Notification{0: {n(1, true), n(2, false)}}, totalPages: 1}
	tr := NewTracker(api, 7, 10, nil)
	ctx := context.Background()

	if _, err := tr.FetchPage(ctx, 0, 0); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	// The service regresses both entries to unread.
	api.pages[0] = []domain.Notification{n(1, false), n(2, false)}
	page, err := tr.FetchPage(ctx, 0, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !page.Items[0].Read {
		t.Fatalf("notification 1 was seen read and must stay read")
	}
	if page.Items[1].Read {
		t.Fatalf("notification 2 was never read")
	}
}

func TestMarkReadRefetchesPageAndCount(t *testing.T) {
	api := &stubAPI{pages: map[int][]domain.Notification{0: {n(1, false), n(2, false)}}, totalPages: 1, unread: 2}
	tr := NewTracker(api, 7, 10, nil)
	ctx := context.Background()
	if _, err := tr.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// The service has not caught up yet: the page and counter are unchanged.
	snap, err := tr.MarkRead(ctx, 2)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if len(api.marked) != 1 || api.marked[0] != 2 {
		t.Fatalf("unexpected mark calls: %v", api.marked)
	}
	if api.pageCalls != 2 || api.countCalls != 2 {
		t.Fatalf("expected refetch of page and count, got pages=%d counts=%d", api.pageCalls, api.countCalls)
	}
	if !snap.Page.Items[1].Read || snap.Page.Items[0].Read {
		t.Fatalf("unexpected read flags: %#v", snap.Page.Items)
	}
	if snap.Unread != 2 {
		t.Fatalf("counter must come from the service, got %d", snap.Unread)
	}
	if !tr.IsRead(2) || tr.IsRead(1) {
		t.Fatalf("unexpected session read set")
	}
}

func TestMarkReadFailureLeavesState(t *testing.T) {
	api := &stubAPI{pages: map[int][]domain.Notification{0: {n(1, false)}}, totalPages: 1, unread: 1, markErr: &domain.NotFoundError{Resource: "notification", ID: 1}}
	tr := NewTracker(api, 7, 10, nil)
	ctx := context.Background()
	if _, err := tr.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	snap, err := tr.MarkRead(ctx, 1)
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if tr.IsRead(1) || snap.Page.Items[0].Read || snap.Unread != 1 {
		t.Fatalf("failed mark must not change read state")
	}
	if api.pageCalls != 1 {
		t.Fatalf("failed mark must not refetch")
	}
}

func TestRefreshKeepsCurrentPage(t *testing.T) {
	api := &stubAPI{pages: map[int][]domain.Notification{0: {n(1, false)}, 1: {n(9, false)}}, totalPages: 2}
	tr := NewTracker(api, 7, 1, nil)
	ctx := context.Background()
	if _, err := tr.FetchPage(ctx, 1, 1); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	snap, err := tr.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if snap.Page.Index != 1 || snap.Page.Items[0].ID != 9 || snap.Page.HasMore {
		t.Fatalf("unexpected snapshot: %#v", snap.Page)
	}
}
