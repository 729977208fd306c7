package comments

import (
	"context"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"taskdeck/domain"
)

// API is the subset of the service client a thread needs.
type API interface {
	Comments(ctx context.Context, taskID int64, page, size int) (domain.Page[domain.Comment], error)
	PostComment(ctx context.Context, c domain.NewComment) (domain.Comment, error)
}

// Thread is the comment view of one task. The forest is rebuilt from the
// service list on every refresh; the reply target and draft survive refreshes.
type Thread struct {
	api      API
	taskID   int64
	pageSize int
	logger   *log.Logger

	mu     sync.Mutex
	flat   []domain.Comment
	forest Forest
	target *int64
	draft  string
}

// maxPages stops a refresh against a service that never reports the last page.
const maxPages = 1000

// NewThread creates the thread of taskID. pageSize caps how many comments are
// fetched in one request; Refresh follows totalPages until the list is complete.
func NewThread(api API, taskID int64, pageSize int, logger *log.Logger) *Thread {
	if pageSize <= 0 {
		pageSize = 100
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Thread{api: api, taskID: taskID, pageSize: pageSize, logger: logger}
}

// TaskID is the task the thread belongs to.
func (t *Thread) TaskID() int64 { return t.taskID }

// Refresh refetches every page of the flat list and rebuilds the forest.
func (t *Thread) Refresh(ctx context.Context) (Forest, error) {
	var flat []domain.Comment
	for index := 0; ; index++ {
		if index == maxPages {
			t.logger.WithFields(log.Fields{"task_id": t.taskID, "pages": index}).Warn("comments.pages.capped")
			break
		}
		page, err := t.api.Comments(ctx, t.taskID, index, t.pageSize)
		if err != nil {
			return Forest{}, err
		}
		for _, c := range page.Content {
			// A parent always belongs to the same task; foreign entries are dropped.
			if c.TaskID != 0 && c.TaskID != t.taskID {
				continue
			}
			flat = append(flat, c)
		}
		if index+1 >= page.TotalPages || len(page.Content) == 0 {
			break
		}
	}
	forest := BuildForest(flat)
	if len(forest.Omitted) > 0 {
		t.logger.WithFields(log.Fields{"task_id": t.taskID, "omitted": forest.Omitted}).Warn("comments.forest.omitted")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.flat = flat
	t.forest = forest
	if t.target != nil {
		if _, ok := forest.Find(*t.target); !ok {
			t.target = nil
		}
	}
	return forest, nil
}

// Forest returns the forest built by the last refresh.
func (t *Thread) Forest() Forest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.forest
}

// SetReplyTarget selects the comment whose inline composer is open. nil closes
// it and targets a new root comment.
func (t *Thread) SetReplyTarget(id *int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id == nil {
		t.target = nil
		return
	}
	v := *id
	t.target = &v
}

// ReplyTarget returns the open composer's parent id, or nil.
func (t *Thread) ReplyTarget() *int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.target == nil {
		return nil
	}
	v := *t.target
	return &v
}

// SetDraft stores the composer text.
func (t *Thread) SetDraft(text string) {
	t.mu.Lock()
	t.draft = text
	t.mu.Unlock()
}

// Draft returns the composer text.
func (t *Thread) Draft() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.draft
}

// Lines renders the current forest with the composer under the reply target.
func (t *Thread) Lines() []Line {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Render(t.forest, t.target)
}

// SubmitReply posts text as a reply to parentID, or as a root comment when
// parentID is nil, then refetches the whole thread. Blank text is rejected
// without a request. On success the draft and reply target are cleared; on
// failure they are kept so the user can retry.
func (t *Thread) SubmitReply(ctx context.Context, parentID *int64, text string) (Forest, error) {
	if strings.TrimSpace(text) == "" {
		return t.Forest(), &domain.ValidationError{Fields: []string{"content"}, Err: domain.ErrEmptyComment}
	}
	if _, err := t.api.PostComment(ctx, domain.NewComment{Content: text, TaskID: t.taskID, ParentID: parentID}); err != nil {
		return t.Forest(), err
	}

	t.mu.Lock()
	t.draft = ""
	t.target = nil
	t.mu.Unlock()

	return t.Refresh(ctx)
}
