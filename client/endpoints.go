package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"taskdeck/domain"
)

// Login exchanges credentials for a token. It does not require a bearer.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.LoginResponse, error) {
	var resp domain.LoginResponse
	err := c.PostJSON(ctx, "/auth/login", "/auth/login", creds, &resp)
	return resp, err
}

// Signup creates a contributor account. It does not require a bearer.
func (c *Client) Signup(ctx context.Context, form domain.UserForm) (domain.User, error) {
	var u domain.User
	err := c.PostJSON(ctx, "/auth/signup", "/auth/signup", form, &u)
	return u, err
}

// Kanban returns the service's column → tasks mapping.
func (c *Client) Kanban(ctx context.Context) (map[string][]domain.Task, error) {
	board := map[string][]domain.Task{}
	err := c.GetJSON(ctx, "/tasks/kanban", "/tasks/kanban", &board)
	return board, err
}

// Task fetches a single task.
func (c *Client) Task(ctx context.Context, id int64) (domain.Task, error) {
	var task domain.Task
	err := c.GetJSON(ctx, "/tasks/{id}", taskPath(id), &task)
	return task, tagNotFound(err, "task", id)
}

// CreateTask persists a new task and returns the stored copy.
func (c *Client) CreateTask(ctx context.Context, body domain.TaskBody) (domain.Task, error) {
	var task domain.Task
	err := c.PostJSON(ctx, "/tasks", "/tasks", body, &task)
	return task, err
}

// UpdateTask replaces every editable field of the task.
func (c *Client) UpdateTask(ctx context.Context, id int64, body domain.TaskBody) (domain.Task, error) {
	var task domain.Task
	err := c.PutJSON(ctx, "/tasks/{id}", taskPath(id), body, &task)
	return task, tagNotFound(err, "task", id)
}

// DeleteTask removes the task.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return tagNotFound(c.Delete(ctx, "/tasks/{id}", taskPath(id)), "task", id)
}

// TaskHistory returns one page of field changes.
func (c *Client) TaskHistory(ctx context.Context, id int64, page, size int) (domain.Page[domain.HistoryEntry], error) {
	var out domain.Page[domain.HistoryEntry]
	path := taskPath(id) + "/history?" + pageQuery(page, size).Encode()
	err := c.GetJSON(ctx, "/tasks/{id}/history", path, &out)
	return out, tagNotFound(err, "task", id)
}

// SearchCriteria narrows GET /tasks/search. Zero values are omitted.
type SearchCriteria struct {
	Title       string
	Description string
	Status      domain.Status
	Priority    domain.Priority
	LabelIDs    []int64
	Page        int
	Size        int
}

// SearchTasks returns one page of matching tasks.
func (c *Client) SearchTasks(ctx context.Context, crit SearchCriteria) (domain.Page[domain.Task], error) {
	q := pageQuery(crit.Page, crit.Size)
	if crit.Title != "" {
		q.Set("title", crit.Title)
	}
	if crit.Description != "" {
		q.Set("description", crit.Description)
	}
	if crit.Status != "" {
		q.Set("status", string(crit.Status))
	}
	if crit.Priority != "" {
		q.Set("priority", string(crit.Priority))
	}
	for _, id := range crit.LabelIDs {
		q.Add("labelIds", strconv.FormatInt(id, 10))
	}
	var out domain.Page[domain.Task]
	err := c.GetJSON(ctx, "/tasks/search", "/tasks/search?"+q.Encode(), &out)
	return out, err
}

// Analytics returns the administrator aggregate for timeFrame (week, month,
// quarter or empty for all time).
func (c *Client) Analytics(ctx context.Context, timeFrame string) (domain.Analytics, error) {
	path := "/tasks/analytics"
	if timeFrame != "" {
		path += "?" + url.Values{"timeFrame": {timeFrame}}.Encode()
	}
	var out domain.Analytics
	err := c.GetJSON(ctx, "/tasks/analytics", path, &out)
	return out, err
}

// Labels returns one page of the label catalog.
func (c *Client) Labels(ctx context.Context, page, size int) (domain.Page[domain.Label], error) {
	var out domain.Page[domain.Label]
	err := c.GetJSON(ctx, "/labels", "/labels?"+pageQuery(page, size).Encode(), &out)
	return out, err
}

// TaskLabels returns the labels currently attached to a task.
func (c *Client) TaskLabels(ctx context.Context, taskID int64) ([]domain.Label, error) {
	var out []domain.Label
	err := c.GetJSON(ctx, "/labels/task/{taskId}", fmt.Sprintf("/labels/task/%d", taskID), &out)
	return out, tagNotFound(err, "task", taskID)
}

// AttachLabel adds one label to a task.
func (c *Client) AttachLabel(ctx context.Context, taskID, labelID int64) error {
	return c.PostJSON(ctx, "/labels/task/{taskId}/label/{labelId}", taskLabelPath(taskID, labelID), nil, nil)
}

// DetachLabel removes one label from a task.
func (c *Client) DetachLabel(ctx context.Context, taskID, labelID int64) error {
	return c.Delete(ctx, "/labels/task/{taskId}/label/{labelId}", taskLabelPath(taskID, labelID))
}

// Comments returns one page of a task's comments as a flat list.
func (c *Client) Comments(ctx context.Context, taskID int64, page, size int) (domain.Page[domain.Comment], error) {
	var out domain.Page[domain.Comment]
	path := fmt.Sprintf("/comments/task/%d?%s", taskID, pageQuery(page, size).Encode())
	err := c.GetJSON(ctx, "/comments/task/{taskId}", path, &out)
	return out, tagNotFound(err, "task", taskID)
}

// PostComment creates a root comment or a reply.
func (c *Client) PostComment(ctx context.Context, comment domain.NewComment) (domain.Comment, error) {
	var out domain.Comment
	err := c.PostJSON(ctx, "/comments", "/comments", comment, &out)
	return out, err
}

// Notifications returns one page of a user's notifications.
func (c *Client) Notifications(ctx context.Context, userID int64, page, size int) (domain.Page[domain.Notification], error) {
	var out domain.Page[domain.Notification]
	path := fmt.Sprintf("/notifications/user/%d?%s", userID, pageQuery(page, size).Encode())
	err := c.GetJSON(ctx, "/notifications/user/{userId}", path, &out)
	return out, err
}

// UnreadCount returns the server-maintained unread counter.
func (c *Client) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := c.GetJSON(ctx, "/notifications/user/{userId}/count-unread", fmt.Sprintf("/notifications/user/%d/count-unread", userID), &n)
	return n, err
}

// MarkRead acknowledges a notification.
func (c *Client) MarkRead(ctx context.Context, id int64) error {
	err := c.PutJSON(ctx, "/notifications/{id}/mark-read", fmt.Sprintf("/notifications/%d/mark-read", id), nil, nil)
	return tagNotFound(err, "notification", id)
}

// UserQuery narrows the administrator user directory.
type UserQuery struct {
	Search string
	Role   domain.Role
	Page   int
	Size   int
}

// Users returns one page of the user directory. Administrators only.
func (c *Client) Users(ctx context.Context, q UserQuery) (domain.Page[domain.User], error) {
	v := pageQuery(q.Page, q.Size)
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	if q.Role != "" {
		v.Set("role", string(q.Role))
	}
	var out domain.Page[domain.User]
	err := c.GetJSON(ctx, "/admin/users", "/admin/users?"+v.Encode(), &out)
	return out, err
}

// User fetches one account. Administrators only.
func (c *Client) User(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	err := c.GetJSON(ctx, "/admin/users/{id}", userPath(id), &u)
	return u, tagNotFound(err, "user", id)
}

// CreateUser adds a contributor account. Administrators only.
func (c *Client) CreateUser(ctx context.Context, form domain.UserForm) (domain.User, error) {
	var u domain.User
	err := c.PostJSON(ctx, "/admin/users", "/admin/users", form, &u)
	return u, err
}

// UpdateUser replaces the names and email of an account. A blank password
// keeps the current one.
func (c *Client) UpdateUser(ctx context.Context, id int64, form domain.UserForm) (domain.User, error) {
	var u domain.User
	err := c.PutJSON(ctx, "/admin/users/{id}", userPath(id), form, &u)
	return u, tagNotFound(err, "user", id)
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return tagNotFound(c.Delete(ctx, "/admin/users/{id}", userPath(id)), "user", id)
}

// SetUserRole changes the role of an account. The body is the bare role name.
func (c *Client) SetUserRole(ctx context.Context, id int64, role domain.Role) (domain.User, error) {
	var u domain.User
	err := c.PutJSON(ctx, "/admin/users/{id}/role", userPath(id)+"/role", string(role), &u)
	return u, tagNotFound(err, "user", id)
}

func userPath(id int64) string {
	return "/admin/users/" + strconv.FormatInt(id, 10)
}

func taskPath(id int64) string {
	return "/tasks/" + strconv.FormatInt(id, 10)
}

func taskLabelPath(taskID, labelID int64) string {
	return fmt.Sprintf("/labels/task/%d/label/%d", taskID, labelID)
}

func pageQuery(page, size int) url.Values {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 10
	}
	return url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
	}
}
