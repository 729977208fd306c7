package board

import (
	"context"
	"fmt"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"

	"taskdeck/client"
	"taskdeck/domain"
	"taskdeck/labels"
	"taskdeck/session"
)

// API is the subset of the service client the board needs.
type API interface {
	Kanban(ctx context.Context) (map[string][]domain.Task, error)
	Task(ctx context.Context, id int64) (domain.Task, error)
	CreateTask(ctx context.Context, body domain.TaskBody) (domain.Task, error)
	UpdateTask(ctx context.Context, id int64, body domain.TaskBody) (domain.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	TaskHistory(ctx context.Context, id int64, page, size int) (domain.Page[domain.HistoryEntry], error)
	SearchTasks(ctx context.Context, crit client.SearchCriteria) (domain.Page[domain.Task], error)
	TaskLabels(ctx context.Context, taskID int64) ([]domain.Label, error)
}

// Reconciler applies label set changes to a task.
type Reconciler interface {
	Reconcile(ctx context.Context, taskID int64, previous, desired []int64) labels.Result
}

// Mutation is the outcome of a board write.
type Mutation struct {
	Task   domain.Task
	Board  Board
	Labels labels.Result
}

// Manager holds the caller's view of the board. The flat task list is the only
// state; columns are derived from it on every read.
type Manager struct {
	api        API
	reconciler Reconciler
	identity   session.Identity
	logger     *log.Logger

	mu    sync.Mutex
	tasks []domain.Task
}

// NewManager creates a board manager acting as identity.
func NewManager(api API, reconciler Reconciler, identity session.Identity, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Manager{api: api, reconciler: reconciler, identity: identity, logger: logger}
}

// LoadBoard fetches the kanban view and replaces the held task list.
func (m *Manager) LoadBoard(ctx context.Context) (Board, error) {
	kanban, err := m.api.Kanban(ctx)
	if err != nil {
		return m.Board(), err
	}

	all := flatten(kanban)
	kept := make([]domain.Task, 0, len(all))
	for _, t := range all {
		if !t.Status.Valid() {
			m.logger.WithFields(log.Fields{"task_id": t.ID, "status": t.Status}).Warn("board.status.unknown")
			continue
		}
		kept = append(kept, t)
	}
	visible := domain.FilterVisible(m.identity.Role, m.identity.UserID, kept)

	m.mu.Lock()
	m.tasks = visible
	m.mu.Unlock()

	m.logger.WithFields(log.Fields{
		"user_id":  m.identity.UserID,
		"received": len(all),
		"visible":  len(visible),
	}).Debug("board.loaded")
	return Group(visible), nil
}

// Board returns the grouping of the held tasks without a request.
func (m *Manager) Board() Board {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Group(m.tasks)
}

// Column returns the held tasks with status s.
func (m *Manager) Column(s domain.Status) []domain.Task {
	return m.Board().Column(s)
}

// CreateTask validates in, creates the task, applies its labels and reloads
// the board. A contributor always creates tasks assigned to themself.
func (m *Manager) CreateTask(ctx context.Context, in domain.TaskInput) (Mutation, error) {
	if err := in.Validate(); err != nil {
		return Mutation{Board: m.Board()}, err
	}
	m.forceAssignee(&in)

	created, err := m.api.CreateTask(ctx, in.Body())
	if err != nil {
		return Mutation{Board: m.Board()}, err
	}
	m.logger.WithFields(log.Fields{"task_id": created.ID, "user_id": m.identity.UserID}).Info("board.task.created")

	res := m.reconciler.Reconcile(ctx, created.ID, nil, in.LabelIDs)
	return m.finish(ctx, created, res)
}

// UpdateTask replaces every editable field of task id, moves its label set to
// in.LabelIDs and reloads the board.
func (m *Manager) UpdateTask(ctx context.Context, id int64, in domain.TaskInput) (Mutation, error) {
	if err := in.Validate(); err != nil {
		return Mutation{Board: m.Board()}, err
	}

	current, held := m.held(id)
	if !held {
		fetched, err := m.api.Task(ctx, id)
		if err != nil {
			return Mutation{Board: m.Board()}, err
		}
		current = fetched
	}
	if !m.identity.Can(current) {
		return Mutation{Board: m.Board()}, &domain.AuthorizationError{Status: 403}
	}
	m.forceAssignee(&in)

	previous, err := m.previousLabels(ctx, id, current, held)
	if err != nil {
		return Mutation{Board: m.Board()}, err
	}

	updated, err := m.api.UpdateTask(ctx, id, in.Body())
	if err != nil {
		return Mutation{Board: m.Board()}, err
	}
	m.logger.WithFields(log.Fields{
		"task_id": id,
		"user_id": m.identity.UserID,
		"from":    current.Status,
		"to":      updated.Status,
	}).Info("board.task.updated")

	res := m.reconciler.Reconcile(ctx, id, previous, in.LabelIDs)
	return m.finish(ctx, updated, res)
}

// DeleteTask removes task id. The board is re-derived locally without a
// refetch.
func (m *Manager) DeleteTask(ctx context.Context, id int64) (Board, error) {
	if err := m.api.DeleteTask(ctx, id); err != nil {
		return m.Board(), err
	}
	m.mu.Lock()
	m.tasks = slices.DeleteFunc(m.tasks, func(t domain.Task) bool { return t.ID == id })
	b := Group(m.tasks)
	m.mu.Unlock()

	m.logger.WithFields(log.Fields{"task_id": id, "user_id": m.identity.UserID}).Info("board.task.deleted")
	return b, nil
}

// CompleteTask moves task id to the done column. A contributor may only
// complete tasks assigned to them.
func (m *Manager) CompleteTask(ctx context.Context, id int64) (Mutation, error) {
	task, held := m.held(id)
	if !held {
		fetched, err := m.api.Task(ctx, id)
		if err != nil {
			return Mutation{Board: m.Board()}, err
		}
		task = fetched
	}
	if !m.identity.IsAdmin() && !task.AssignedTo(m.identity.UserID) {
		return Mutation{Board: m.Board()}, &domain.AuthorizationError{Status: 403}
	}

	in := domain.InputFrom(task)
	in.Status = domain.StatusDone
	updated, err := m.api.UpdateTask(ctx, id, in.Body())
	if err != nil {
		return Mutation{Board: m.Board()}, err
	}
	m.logger.WithFields(log.Fields{"task_id": id, "user_id": m.identity.UserID}).Info("board.task.completed")
	return m.finish(ctx, updated, labels.Result{TaskID: id})
}

// Task fetches a single task. A task outside the caller's view is reported as
// an authorization failure.
func (m *Manager) Task(ctx context.Context, id int64) (domain.Task, error) {
	task, err := m.api.Task(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if !m.identity.Can(task) {
		return domain.Task{}, &domain.AuthorizationError{Status: 403}
	}
	return task, nil
}

// History returns one page of the change log of task id.
func (m *Manager) History(ctx context.Context, id int64, page, size int) (domain.Page[domain.HistoryEntry], error) {
	return m.api.TaskHistory(ctx, id, page, size)
}

// Search runs a task search and keeps the results visible to the caller.
func (m *Manager) Search(ctx context.Context, crit client.SearchCriteria) (domain.Page[domain.Task], error) {
	page, err := m.api.SearchTasks(ctx, crit)
	if err != nil {
		return page, err
	}
	page.Content = domain.FilterVisible(m.identity.Role, m.identity.UserID, page.Content)
	return page, nil
}

// finish reloads the board after a write. Label failures are reported after
// the reload so the caller still sees the fresh board.
func (m *Manager) finish(ctx context.Context, task domain.Task, res labels.Result) (Mutation, error) {
	b, err := m.LoadBoard(ctx)
	mut := Mutation{Task: task, Board: b, Labels: res}
	if err != nil {
		return mut, fmt.Errorf("reload board after task %d: %w", task.ID, err)
	}
	if fresh, ok := b.Find(task.ID); ok {
		mut.Task = fresh
	}
	if err := res.Err(); err != nil {
		return mut, err
	}
	return mut, nil
}

func (m *Manager) forceAssignee(in *domain.TaskInput) {
	if m.identity.Role == domain.RoleContributor {
		in.AssignedToID = domain.ID(m.identity.UserID)
	}
}

func (m *Manager) held(id int64) (domain.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Task{}, false
}

func (m *Manager) previousLabels(ctx context.Context, id int64, current domain.Task, held bool) ([]int64, error) {
	if held && current.Labels != nil {
		return current.LabelIDs(), nil
	}
	attached, err := m.api.TaskLabels(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(attached))
	for _, l := range attached {
		ids = append(ids, l.ID)
	}
	return ids, nil
}
