package notifications

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"taskdeck/domain"
)

// API is the subset of the service client the tracker needs.
type API interface {
	Notifications(ctx context.Context, userID int64, page, size int) (domain.Page[domain.Notification], error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, id int64) error
}

// Page is one page of notifications with the session read state applied.
type Page struct {
	Items      []domain.Notification
	Index      int
	Size       int
	TotalPages int
	HasMore    bool
}

// Snapshot is the last state fetched by the tracker.
type Snapshot struct {
	Page   Page
	Unread int64
}

// Tracker follows the notifications of one user. A notification observed as
// read, or acknowledged through MarkRead, stays read for the tracker's lifetime
// even if a later page reports otherwise. The unread counter always comes from
// the service.
type Tracker struct {
	api      API
	userID   int64
	pageSize int
	logger   *log.Logger

	mu   sync.Mutex
	read map[int64]struct{}
	last Snapshot
}

// NewTracker creates a tracker for userID.
func NewTracker(api API, userID int64, pageSize int, logger *log.Logger) *Tracker {
	if pageSize <= 0 {
		pageSize = 10
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Tracker{
		api:      api,
		userID:   userID,
		pageSize: pageSize,
		logger:   logger,
		read:     make(map[int64]struct{}),
	}
}

// FetchPage loads page index with size entries (0 uses the tracker default).
func (t *Tracker) FetchPage(ctx context.Context, index, size int) (Page, error) {
	if index < 0 {
		index = 0
	}
	if size <= 0 {
		size = t.pageSize
	}
	raw, err := t.api.Notifications(ctx, t.userID, index, size)
	if err != nil {
		return Page{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	items := make([]domain.Notification, len(raw.Content))
	for i, n := range raw.Content {
		if n.Read {
			t.read[n.ID] = struct{}{}
		} else if _, ok := t.read[n.ID]; ok {
			n.Read = true
		}
		items[i] = n
	}
	page := Page{
		Items:      items,
		Index:      index,
		Size:       size,
		TotalPages: raw.TotalPages,
		HasMore:    index+1 < raw.TotalPages,
	}
	t.last.Page = page
	return page, nil
}

// FetchUnreadCount returns the service's unread counter.
func (t *Tracker) FetchUnreadCount(ctx context.Context) (int64, error) {
	n, err := t.api.UnreadCount(ctx, t.userID)
	if err != nil {
		return 0, err
	}
	t.mu.Lock()
	t.last.Unread = n
	t.mu.Unlock()
	return n, nil
}

// Refresh reloads the current page and the unread counter.
func (t *Tracker) Refresh(ctx context.Context) (Snapshot, error) {
	t.mu.Lock()
	index, size := t.last.Page.Index, t.last.Page.Size
	t.mu.Unlock()

	if _, err := t.FetchPage(ctx, index, size); err != nil {
		return t.Snapshot(), err
	}
	if _, err := t.FetchUnreadCount(ctx); err != nil {
		return t.Snapshot(), err
	}
	return t.Snapshot(), nil
}

// MarkRead acknowledges notification id, then refetches the current page and
// the counter. The counter is never adjusted locally.
func (t *Tracker) MarkRead(ctx context.Context, id int64) (Snapshot, error) {
	if err := t.api.MarkRead(ctx, id); err != nil {
		return t.Snapshot(), fmt.Errorf("mark notification %d read: %w", id, err)
	}
	t.mu.Lock()
	t.read[id] = struct{}{}
	t.mu.Unlock()
	t.logger.WithFields(log.Fields{"notification_id": id, "user_id": t.userID}).Debug("notifications.mark_read")

	return t.Refresh(ctx)
}

// IsRead reports whether id is known to be read in this session.
func (t *Tracker) IsRead(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.read[id]
	return ok
}

// Snapshot returns the last fetched state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.last
	s.Page.Items = append([]domain.Notification(nil), s.Page.Items...)
	return s
}
