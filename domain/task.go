package domain

import (
	"strings"

	"github.com/bytedance/sonic"
)

// Status is a workflow column of the board.
type Status string

const (
	StatusTodo       Status = "À FAIRE"
	StatusInProgress Status = "EN COURS"
	StatusInReview   Status = "EN REVUE"
	StatusDone       Status = "TERMINÉ"
)

// Statuses lists the workflow columns in display order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusInReview, StatusDone}

// Valid reports whether s is one of the workflow columns.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus accepts the exact column name or a case-insensitive alias
// (todo, in-progress, review, done).
func ParseStatus(raw string) (Status, bool) {
	v := strings.TrimSpace(raw)
	if s := Status(v); s.Valid() {
		return s, true
	}
	switch strings.ToLower(strings.ReplaceAll(v, "_", "-")) {
	case "todo", "to-do", "à faire", "a faire":
		return StatusTodo, true
	case "in-progress", "doing", "en cours":
		return StatusInProgress, true
	case "review", "in-review", "en revue":
		return StatusInReview, true
	case "done", "terminé", "termine":
		return StatusDone, true
	}
	return "", false
}

// Priority orders tasks by severity.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Priorities lists priorities from least to most severe.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p.Rank() >= 0
}

// Rank returns the severity index of p, or -1 when p is unknown.
func (p Priority) Rank() int {
	for i, known := range Priorities {
		if p == known {
			return i
		}
	}
	return -1
}

// ParsePriority is case-insensitive.
func ParsePriority(raw string) (Priority, bool) {
	p := Priority(strings.ToUpper(strings.TrimSpace(raw)))
	return p, p.Valid()
}

// Label is an entry of the global label catalog.
type Label struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Task is the client copy of a task held by the service.
type Task struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       Status     `json:"status"`
	Priority     Priority   `json:"priority"`
	DueDate      *LocalTime `json:"dueDate,omitempty"`
	AssignedToID *int64     `json:"assignedToId,omitempty"`
	CreatedByID  *int64     `json:"createdById,omitempty"`
	CreatedAt    *LocalTime `json:"createdAt,omitempty"`
	UpdatedAt    *LocalTime `json:"updatedAt,omitempty"`
	Labels       []Label    `json:"labels,omitempty"`
}

// LabelIDs returns the ids of the task's labels without duplicates.
func (t Task) LabelIDs() []int64 {
	ids := make([]int64, 0, len(t.Labels))
	seen := make(map[int64]struct{}, len(t.Labels))
	for _, l := range t.Labels {
		if _, ok := seen[l.ID]; ok {
			continue
		}
		seen[l.ID] = struct{}{}
		ids = append(ids, l.ID)
	}
	return ids
}

// AssignedTo reports whether the task is assigned to userID.
func (t Task) AssignedTo(userID int64) bool {
	return t.AssignedToID != nil && *t.AssignedToID == userID
}

// TaskInput carries the editable fields of a task. Labels are applied through
// the label endpoints, never as part of the task body.
type TaskInput struct {
	Title        string
	Description  string
	Status       Status
	Priority     Priority
	DueDate      *LocalTime
	AssignedToID *int64
	LabelIDs     []int64
}

// Validate checks the fields required by create and update.
func (in TaskInput) Validate() error {
	var fields []string
	if strings.TrimSpace(in.Title) == "" {
		fields = append(fields, "title")
	}
	if strings.TrimSpace(in.Description) == "" {
		fields = append(fields, "description")
	}
	if in.DueDate == nil || in.DueDate.IsZero() {
		fields = append(fields, "dueDate")
	}
	if !in.Priority.Valid() {
		fields = append(fields, "priority")
	}
	if in.Status != "" && !in.Status.Valid() {
		fields = append(fields, "status")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Body converts the input into the wire representation sent on create and update.
func (in TaskInput) Body() TaskBody {
	status := in.Status
	if status == "" {
		status = StatusTodo
	}
	return TaskBody{
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		Status:       status,
		Priority:     in.Priority,
		DueDate:      in.DueDate,
		AssignedToID: in.AssignedToID,
	}
}

// InputFrom copies the editable fields of t.
func InputFrom(t Task) TaskInput {
	return TaskInput{
		Title:        t.Title,
		Description:  t.Description,
		Status:       t.Status,
		Priority:     t.Priority,
		DueDate:      t.DueDate,
		AssignedToID: t.AssignedToID,
		LabelIDs:     t.LabelIDs(),
	}
}

// TaskBody is the JSON payload of POST /tasks and PUT /tasks/{id}.
type TaskBody struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       Status     `json:"status"`
	Priority     Priority   `json:"priority"`
	DueDate      *LocalTime `json:"dueDate,omitempty"`
	AssignedToID *int64     `json:"assignedToId"`
}

// MarshalJSON sends the due date with zeroed seconds.
func (b TaskBody) MarshalJSON() ([]byte, error) {
	var due *string
	if b.DueDate != nil && !b.DueDate.IsZero() {
		s := FormatDueDate(b.DueDate.Time)
		due = &s
	}
	return sonic.Marshal(struct {
		Title        string   `json:"title"`
		Description  string   `json:"description"`
		Status       Status   `json:"status"`
		Priority     Priority `json:"priority"`
		DueDate      *string  `json:"dueDate,omitempty"`
		AssignedToID *int64   `json:"assignedToId"`
	}{b.Title, b.Description, b.Status, b.Priority, due, b.AssignedToID})
}

// HistoryEntry records one field change made to a task.
type HistoryEntry struct {
	ID           int64      `json:"id"`
	TaskID       int64      `json:"taskId"`
	ModifiedByID int64      `json:"modifiedById"`
	ModifierName string     `json:"modifierName,omitempty"`
	Field        string     `json:"field"`
	OldValue     string     `json:"oldValue"`
	NewValue     string     `json:"newValue"`
	ModifiedAt   *LocalTime `json:"modifiedAt,omitempty"`
}

// Page is the paginated envelope returned by list endpoints.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalPages    int   `json:"totalPages"`
	TotalElements int64 `json:"totalElements,omitempty"`
	Number        int   `json:"number,omitempty"`
	Size          int   `json:"size,omitempty"`
}

// Analytics is the aggregate returned to administrators.
type Analytics struct {
	TotalTasks      int64            `json:"totalTasks"`
	TasksByStatus   map[string]int64 `json:"tasksByStatus"`
	TasksByPriority map[string]int64 `json:"tasksByPriority"`
	TasksByUser     map[string]int64 `json:"tasksByUser,omitempty"`
	TasksByDate     map[string]int64 `json:"tasksByDate,omitempty"`
	CompletedTasks  int64            `json:"completedTasks,omitempty"`
	OverdueTasks    int64            `json:"overdueTasks,omitempty"`
	CompletionRate  float64          `json:"completionRate,omitempty"`
	TimeFrame       string           `json:"timeFrame,omitempty"`
}

// ID returns a pointer to id, for optional id fields.
func ID(id int64) *int64 {
	return &id
}
