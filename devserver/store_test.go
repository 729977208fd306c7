package devserver

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"taskdeck/domain"
)

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(bcrypt.MinCost)
	if err := Seed(s); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func TestKanbanKeepsExtraColumns(t *testing.T) {
	s := seededStore(t)
	s.mu.Lock()
	s.tasks[50] = domain.Task{ID: 50, Title: "legacy", Status: "BLOQUÉ", Priority: domain.PriorityLow}
	s.mu.Unlock()

	board := s.Kanban()
	if len(board) != len(domain.Statuses)+1 {
		t.Fatalf("expected workflow columns plus one extra, got %d", len(board))
	}
	if got := board["BLOQUÉ"]; len(got) != 1 || got[0].ID != 50 {
		t.Fatalf("unexpected extra column: %#v", got)
	}
	for _, st := range domain.Statuses {
		if _, ok := board[string(st)]; !ok {
			t.Fatalf("missing column %q", st)
		}
	}
}

func TestContributorCreateRules(t *testing.T) {
	s := seededStore(t)
	alice := Principal{UserID: 2, Role: domain.RoleContributor}
	body := domain.TaskBody{
		Title:       "mine",
		Description: "d",
		Priority:    domain.PriorityLow,
		DueDate:     domain.NewLocalTime(time.Now()),
	}

	body.AssignedToID = domain.ID(3)
	if _, err := s.CreateTask(alice, body); !domain.IsAuthorization(err) {
		t.Fatalf("assigning someone else must be refused, got %v", err)
	}
	body.AssignedToID = nil
	if _, err := s.CreateTask(alice, body); !domain.IsAuthorization(err) {
		t.Fatalf("unassigned task must be refused for a contributor, got %v", err)
	}
	body.AssignedToID = domain.ID(2)
	created, err := s.CreateTask(alice, body)
	if err != nil {
		t.Fatalf("create own task: %v", err)
	}
	if created.Status != domain.StatusTodo || *created.CreatedByID != 2 {
		t.Fatalf("unexpected task: %#v", created)
	}
}

func TestContributorCompletionNotifiesAdmins(t *testing.T) {
	s := seededStore(t)
	alice := Principal{UserID: 2, Role: domain.RoleContributor}
	admin := Principal{UserID: 1, Role: domain.RoleAdmin}
	task, err := s.Task(alice, 1)
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	before, _ := s.UnreadCount(admin, 1)

	in := domain.InputFrom(task)
	in.Status = domain.StatusDone
	if _, err := s.UpdateTask(alice, 1, in.Body()); err != nil {
		t.Fatalf("update: %v", err)
	}
	after, _ := s.UnreadCount(admin, 1)
	if after != before+1 {
		t.Fatalf("expected one admin notification, unread %d -> %d", before, after)
	}

	hist, err := s.History(1)
	if err != nil || len(hist) != 1 || hist[0].Field != "status" || hist[0].ModifierName != "Alice Martin" {
		t.Fatalf("unexpected history: %v %#v", err, hist)
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		page, size int
		want       []int
		pages      int
	}{
		{0, 2, []int{1, 2}, 3},
		{2, 2, []int{5}, 3},
		{3, 2, []int{}, 3},
		{0, 10, []int{1, 2, 3, 4, 5}, 1},
	}
	for _, tc := range tests {
		p := paginate(items, tc.page, tc.size)
		if len(p.Content) != len(tc.want) || p.TotalPages != tc.pages || p.TotalElements != 5 {
			t.Fatalf("page %d size %d: got %#v", tc.page, tc.size, p)
		}
		for i := range tc.want {
			if p.Content[i] != tc.want[i] {
				t.Fatalf("page %d size %d: got %v", tc.page, tc.size, p.Content)
			}
		}
	}
	if p := paginate([]int{}, 0, 10); p.TotalPages != 0 || p.Content == nil {
		t.Fatalf("empty page should carry an empty slice")
	}
}

func TestSignupCreatesContributor(t *testing.T) {
	s := seededStore(t)
	u, err := s.Signup(domain.UserForm{FirstName: " Carol ", Email: "Carol@Taskdeck.dev", Password: "carol123"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if u.Role != domain.RoleContributor || u.Email != "carol@taskdeck.dev" || u.FirstName != "Carol" {
		t.Fatalf("unexpected account: %#v", u)
	}
	if _, err := s.Authenticate("carol@taskdeck.dev", "carol123"); err != nil {
		t.Fatalf("new account should log in: %v", err)
	}
	if _, err := s.Signup(domain.UserForm{FirstName: "Again", Email: "carol@taskdeck.dev", Password: "x"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("duplicate email should be refused, got %v", err)
	}
	if _, err := s.Signup(domain.UserForm{Email: "nobody"}); !domain.IsValidation(err) {
		t.Fatalf("incomplete form should fail validation, got %v", err)
	}
}

func TestUserManagementIsAdminOnly(t *testing.T) {
	s := seededStore(t)
	alice := Principal{UserID: 2, Role: domain.RoleContributor}
	form := domain.UserForm{FirstName: "Dan", Email: "dan@taskdeck.dev", Password: "dan123"}

	if _, err := s.CreateUser(alice, form); !domain.IsAuthorization(err) {
		t.Fatalf("contributor create should be refused, got %v", err)
	}
	if _, err := s.UpdateUser(alice, 3, form); !domain.IsAuthorization(err) {
		t.Fatalf("contributor update should be refused, got %v", err)
	}
	if _, err := s.SetRole(alice, 2, domain.RoleAdmin); !domain.IsAuthorization(err) {
		t.Fatalf("contributor promotion should be refused, got %v", err)
	}
	if err := s.DeleteUser(alice, 3); !domain.IsAuthorization(err) {
		t.Fatalf("contributor delete should be refused, got %v", err)
	}
}

func TestUpdateUserKeepsPasswordWhenBlank(t *testing.T) {
	s := seededStore(t)
	admin := Principal{UserID: 1, Role: domain.RoleAdmin}

	u, err := s.UpdateUser(admin, 3, domain.UserForm{FirstName: "Robert", LastName: "Durand", Email: "robert@taskdeck.dev"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if u.Name() != "Robert Durand" || u.Email != "robert@taskdeck.dev" {
		t.Fatalf("unexpected account: %#v", u)
	}
	if _, err := s.Authenticate("robert@taskdeck.dev", "bob123"); err != nil {
		t.Fatalf("blank password should keep the old one: %v", err)
	}
	if _, err := s.Authenticate("bob@taskdeck.dev", "bob123"); err == nil {
		t.Fatalf("old email should no longer log in")
	}
	if _, err := s.UpdateUser(admin, 3, domain.UserForm{FirstName: "Robert", Email: "alice@taskdeck.dev"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("taking another account's email should be refused, got %v", err)
	}
	if _, err := s.UpdateUser(admin, 99, domain.UserForm{FirstName: "x", Email: "x@taskdeck.dev"}); !domain.IsNotFound(err) {
		t.Fatalf("missing account should be not found, got %v", err)
	}
}

func TestLastAdminIsProtected(t *testing.T) {
	s := seededStore(t)
	admin := Principal{UserID: 1, Role: domain.RoleAdmin}

	if _, err := s.SetRole(admin, 1, domain.RoleContributor); !errors.Is(err, domain.ErrLastAdmin) {
		t.Fatalf("demoting the only admin should be refused, got %v", err)
	}
	if err := s.DeleteUser(admin, 1); !errors.Is(err, domain.ErrLastAdmin) {
		t.Fatalf("deleting the only admin should be refused, got %v", err)
	}
	if _, err := s.SetRole(admin, 2, domain.RoleAdmin); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if u, err := s.SetRole(admin, 1, domain.RoleContributor); err != nil || u.Role != domain.RoleContributor {
		t.Fatalf("demotion with a second admin should pass, got %v %v", u, err)
	}
}

func TestDeleteUserUnassignsTasks(t *testing.T) {
	s := seededStore(t)
	admin := Principal{UserID: 1, Role: domain.RoleAdmin}

	if err := s.DeleteUser(admin, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.User(2); !domain.IsNotFound(err) {
		t.Fatalf("deleted account should be gone, got %v", err)
	}
	for _, tk := range s.sortedTasks() {
		if tk.AssignedTo(2) {
			t.Fatalf("task %d still assigned to the deleted account", tk.ID)
		}
	}
	if _, err := s.Authenticate("alice@taskdeck.dev", "alice123"); err == nil {
		t.Fatalf("deleted account should not log in")
	}
}
