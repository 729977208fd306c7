package comments

import (
	"context"
	"errors"
	"testing"

	"taskdeck/domain"
)

type mockAPI struct {
	comments []domain.Comment
	posted   []domain.NewComment
	fetches  int
	postErr  error
	nextID   int64
}

func (m *mockAPI) Comments(ctx context.Context, taskID int64, page, size int) (domain.Page[domain.Comment], error) {
	m.fetches++
	total := (len(m.comments) + size - 1) / size
	if total == 0 {
		total = 1
	}
	lo, hi := page*size, (page+1)*size
	if lo > len(m.comments) {
		lo = len(m.comments)
	}
	if hi > len(m.comments) {
		hi = len(m.comments)
	}
	return domain.Page[domain.Comment]{Content: append([]domain.Comment(nil), m.comments[lo:hi]...), Number: page, TotalPages: total}, nil
}

func (m *mockAPI) PostComment(ctx context.Context, nc domain.NewComment) (domain.Comment, error) {
	if m.postErr != nil {
		return domain.Comment{}, m.postErr
	}
	m.posted = append(m.posted, nc)
	m.nextID++
	created := domain.Comment{ID: m.nextID, TaskID: nc.TaskID, ParentID: nc.ParentID, Content: nc.Content}
	m.comments = append(m.comments, created)
	return created, nil
}

func TestSubmitReplyRejectsBlankWithoutCall(t *testing.T) {
	api := &mockAPI{}
	th := NewThread(api, 1, 20, nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := th.SubmitReply(context.Background(), nil, text)
		if !errors.Is(err, domain.ErrEmptyComment) || !domain.IsValidation(err) {
			t.Fatalf("expected empty comment validation error for %q, got %v", text, err)
		}
	}
	if len(api.posted) != 0 || api.fetches != 0 {
		t.Fatalf("expected no requests, got posts=%d fetches=%d", len(api.posted), api.fetches)
	}
}

func TestSubmitReplyPostsThenRefetches(t *testing.T) {
	api := &mockAPI{comments: []domain.Comment{c(1, 0)}, nextID: 1}
	th := NewThread(api, 1, 20, nil)
	ctx := context.Background()

	if _, err := th.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	th.SetReplyTarget(domain.ID(1))
	th.SetDraft("a reply")

	forest, err := th.SubmitReply(ctx, th.ReplyTarget(), th.Draft())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(api.posted) != 1 || api.posted[0].ParentID == nil || *api.posted[0].ParentID != 1 || api.posted[0].TaskID != 1 {
		t.Fatalf("unexpected post: %#v", api.posted)
	}
	if api.fetches != 2 {
		t.Fatalf("expected a refetch after posting, got %d fetches", api.fetches)
	}
	root, _ := forest.Find(1)
	if len(root.Children) != 1 || root.Children[0].Comment.ID != 2 {
		t.Fatalf("reply not present after refetch: %#v", root.Children)
	}
	if th.ReplyTarget() != nil || th.Draft() != "" {
		t.Fatalf("expected composer state to reset after success")
	}
}

func TestSubmitReplyFailureKeepsComposerState(t *testing.T) {
	api := &mockAPI{comments: []domain.Comment{c(1, 0)}, postErr: &domain.AuthorizationError{Status: 403}}
	th := NewThread(api, 1, 20, nil)
	ctx := context.Background()
	if _, err := th.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	th.SetReplyTarget(domain.ID(1))
	th.SetDraft("keep me")

	if _, err := th.SubmitReply(ctx, th.ReplyTarget(), th.Draft()); !domain.IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if target := th.ReplyTarget(); target == nil || *target != 1 || th.Draft() != "keep me" {
		t.Fatalf("composer state lost after failure")
	}
	if api.fetches != 1 {
		t.Fatalf("failed post must not refetch, got %d fetches", api.fetches)
	}
}

func TestRefreshClearsVanishedTarget(t *testing.T) {
	api := &mockAPI{comments: []domain.Comment{c(1, 0), c(2, 1)}}
	th := NewThread(api, 1, 20, nil)
	ctx := context.Background()
	if _, err := th.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	th.SetReplyTarget(domain.ID(2))
	lines := th.Lines()
	if len(lines) != 3 || !lines[2].Composer {
		t.Fatalf("expected composer under comment 2, got %#v", lines)
	}

	api.comments = api.comments[:1]
	if _, err := th.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if th.ReplyTarget() != nil {
		t.Fatalf("expected target to be cleared when comment disappears")
	}
}

func TestRefreshDropsForeignTaskComments(t *testing.T) {
	foreign := c(3, 1)
	foreign.TaskID = 2
	api := &mockAPI{comments: []domain.Comment{c(1, 0), foreign}}
	th := NewThread(api, 1, 20, nil)
	forest, err := th.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if forest.Len() != 1 {
		t.Fatalf("expected foreign comment to be dropped, got %d", forest.Len())
	}
}

func TestRefreshFollowsEveryPage(t *testing.T) {
	api := &mockAPI{comments: []domain.Comment{c(1, 0), c(2, 0), c(3, 1), c(4, 3), c(5, 2)}}
	th := NewThread(api, 1, 2, nil)

	forest, err := th.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if api.fetches != 3 {
		t.Fatalf("expected 3 page fetches, got %d", api.fetches)
	}
	if forest.Len() != 5 || len(forest.Omitted) != 0 {
		t.Fatalf("expected all 5 comments reachable, got %d omitted %v", forest.Len(), forest.Omitted)
	}
	if n, ok := forest.Find(4); !ok || n.Comment.ParentID == nil || *n.Comment.ParentID != 3 {
		t.Fatalf("reply from a later page should hang under its parent")
	}
}
