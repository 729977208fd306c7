package devserver

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"taskdeck/domain"
)

const (
	msgCommentOwnTasks = "Vous ne pouvez commenter que vos propres tâches"
	msgTaskAccess      = "You are not allowed to access this task"
	msgBadCredentials  = "Identifiants invalides"
)

type account struct {
	user domain.User
	hash []byte
}

// Store is the in-memory state of the development server. Every method is
// safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	now  func() time.Time
	cost int

	accounts      map[int64]*account
	byEmail       map[string]int64
	tasks         map[int64]domain.Task
	labels        map[int64]domain.Label
	comments      []domain.Comment
	notifications []domain.Notification
	history       []domain.HistoryEntry

	nextUser, nextTask, nextLabel, nextComment, nextNotification, nextHistory int64
}

// NewStore creates an empty store. cost is the bcrypt cost used for passwords;
// zero selects bcrypt.DefaultCost.
func NewStore(cost int) *Store {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Store{
		now:      time.Now,
		cost:     cost,
		accounts: map[int64]*account{},
		byEmail:  map[string]int64{},
		tasks:    map[int64]domain.Task{},
		labels:   map[int64]domain.Label{},
	}
}

func (s *Store) stamp() *domain.LocalTime {
	return domain.NewLocalTime(s.now().Truncate(time.Second))
}

// AddUser registers an account.
func (s *Store) AddUser(first, last, email, password string, role domain.Role) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byEmail[email]; dup {
		return domain.User{}, &domain.ValidationError{Fields: []string{"email"}, Err: domain.ErrEmailTaken}
	}
	s.nextUser++
	u := domain.User{ID: s.nextUser, FirstName: first, LastName: last, Email: email, Role: role}
	s.accounts[u.ID] = &account{user: u, hash: hash}
	s.byEmail[email] = u.ID
	return u, nil
}

// Authenticate checks credentials.
func (s *Store) Authenticate(email, password string) (domain.User, error) {
	s.mu.Lock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	var acc *account
	if ok {
		acc = s.accounts[id]
	}
	s.mu.Unlock()
	if acc == nil || bcrypt.CompareHashAndPassword(acc.hash, []byte(password)) != nil {
		return domain.User{}, &domain.AuthorizationError{Status: 401, Message: msgBadCredentials}
	}
	return acc.user, nil
}

// Users lists accounts matching search (name or email) and role, ordered by id.
func (s *Store) Users(search string, role domain.Role) []domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]domain.User, 0, len(s.accounts))
	for _, acc := range s.accounts {
		u := acc.user
		if role != "" && u.Role != role {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(u.Name()+" "+u.Email), needle) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Signup registers a contributor account from a self-service form.
func (s *Store) Signup(form domain.UserForm) (domain.User, error) {
	if err := form.Validate(true); err != nil {
		return domain.User{}, err
	}
	f := form.Normalize()
	return s.AddUser(f.FirstName, f.LastName, f.Email, f.Password, domain.RoleContributor)
}

// CreateUser adds a contributor account. Administrators only; roles change
// through SetRole.
func (s *Store) CreateUser(p Principal, form domain.UserForm) (domain.User, error) {
	if !p.IsAdmin() {
		return domain.User{}, &domain.AuthorizationError{Status: 403}
	}
	return s.Signup(form)
}

// User returns account id.
func (s *Store) User(id int64) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return domain.User{}, userNotFound(id)
	}
	return acc.user, nil
}

// UpdateUser replaces the names and email of account id. A blank password
// keeps the current hash. Administrators only.
func (s *Store) UpdateUser(p Principal, id int64, form domain.UserForm) (domain.User, error) {
	if !p.IsAdmin() {
		return domain.User{}, &domain.AuthorizationError{Status: 403}
	}
	if err := form.Validate(false); err != nil {
		return domain.User{}, err
	}
	f := form.Normalize()
	var hash []byte
	if strings.TrimSpace(f.Password) != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(f.Password), s.cost)
		if err != nil {
			return domain.User{}, fmt.Errorf("hash password: %w", err)
		}
		hash = h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return domain.User{}, userNotFound(id)
	}
	if owner, taken := s.byEmail[f.Email]; taken && owner != id {
		return domain.User{}, &domain.ValidationError{Fields: []string{"email"}, Err: domain.ErrEmailTaken}
	}
	delete(s.byEmail, acc.user.Email)
	acc.user.FirstName, acc.user.LastName, acc.user.Email = f.FirstName, f.LastName, f.Email
	s.byEmail[f.Email] = id
	if hash != nil {
		acc.hash = hash
	}
	return acc.user, nil
}

// SetRole changes the role of account id. The last administrator cannot be
// demoted. Administrators only.
func (s *Store) SetRole(p Principal, id int64, role domain.Role) (domain.User, error) {
	if !p.IsAdmin() {
		return domain.User{}, &domain.AuthorizationError{Status: 403}
	}
	if role != domain.RoleAdmin && role != domain.RoleContributor {
		return domain.User{}, &domain.ValidationError{Fields: []string{"role"}}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return domain.User{}, userNotFound(id)
	}
	if acc.user.Role == domain.RoleAdmin && role != domain.RoleAdmin && s.adminCount() <= 1 {
		return domain.User{}, &domain.ValidationError{Fields: []string{"role"}, Err: domain.ErrLastAdmin}
	}
	acc.user.Role = role
	return acc.user, nil
}

// DeleteUser removes account id. Its tasks become unassigned and its
// notifications are dropped. The last administrator cannot be deleted.
// Administrators only.
func (s *Store) DeleteUser(p Principal, id int64) error {
	if !p.IsAdmin() {
		return &domain.AuthorizationError{Status: 403}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return userNotFound(id)
	}
	if acc.user.Role == domain.RoleAdmin && s.adminCount() <= 1 {
		return &domain.ValidationError{Fields: []string{"id"}, Err: domain.ErrLastAdmin}
	}
	delete(s.accounts, id)
	delete(s.byEmail, acc.user.Email)
	for tid, t := range s.tasks {
		if t.AssignedToID != nil && *t.AssignedToID == id {
			t.AssignedToID = nil
			s.tasks[tid] = t
		}
	}
	s.notifications = filter(s.notifications, func(n domain.Notification) bool { return n.UserID != id })
	return nil
}

func (s *Store) adminCount() int {
	n := 0
	for _, acc := range s.accounts {
		if acc.user.Role == domain.RoleAdmin {
			n++
		}
	}
	return n
}

// AddLabel registers a label.
func (s *Store) AddLabel(name, color string) domain.Label {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLabel++
	l := domain.Label{ID: s.nextLabel, Name: name, Color: color}
	s.labels[l.ID] = l
	return l
}

// Labels lists the catalog ordered by id.
func (s *Store) Labels() []domain.Label {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Label, 0, len(s.labels))
	for _, l := range s.labels {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Kanban groups every task by its status. The workflow columns are always
// present; any other status gets a column of its own.
func (s *Store) Kanban() map[string][]domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	board := make(map[string][]domain.Task, len(domain.Statuses))
	for _, st := range domain.Statuses {
		board[string(st)] = []domain.Task{}
	}
	for _, t := range s.sortedTasks() {
		board[string(t.Status)] = append(board[string(t.Status)], t)
	}
	return board
}

// Task returns task id. A contributor may only read tasks assigned to them.
func (s *Store) Task(p Principal, id int64) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, taskNotFound(id)
	}
	if !p.IsAdmin() && !t.AssignedTo(p.UserID) {
		return domain.Task{}, &domain.AuthorizationError{Status: 403, Message: msgTaskAccess}
	}
	return t, nil
}

// CreateTask stores a new task created by p.
func (s *Store) CreateTask(p Principal, body domain.TaskBody) (domain.Task, error) {
	if err := validateBody(body); err != nil {
		return domain.Task{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAssignee(p, body.AssignedToID); err != nil {
		return domain.Task{}, err
	}

	s.nextTask++
	now := s.stamp()
	t := domain.Task{
		ID:           s.nextTask,
		Title:        body.Title,
		Description:  body.Description,
		Status:       body.Status,
		Priority:     body.Priority,
		DueDate:      body.DueDate,
		AssignedToID: body.AssignedToID,
		CreatedByID:  domain.ID(p.UserID),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if t.Status == "" {
		t.Status = domain.StatusTodo
	}
	s.tasks[t.ID] = t
	if t.AssignedToID != nil {
		s.notify(*t.AssignedToID, t, "Vous avez été assigné à la tâche: "+t.Title)
	}
	return t, nil
}

// UpdateTask replaces the editable fields of task id, recording one history
// entry per changed field.
func (s *Store) UpdateTask(p Principal, id int64, body domain.TaskBody) (domain.Task, error) {
	if err := validateBody(body); err != nil {
		return domain.Task{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, taskNotFound(id)
	}
	if !p.IsAdmin() && !t.AssignedTo(p.UserID) {
		return domain.Task{}, &domain.AuthorizationError{Status: 403, Message: domain.RightsMessage}
	}
	if err := s.checkAssignee(p, body.AssignedToID); err != nil {
		return domain.Task{}, err
	}
	if body.Status == "" {
		body.Status = t.Status
	}

	changes := []struct{ field, from, to string }{
		{"title", t.Title, body.Title},
		{"description", t.Description, body.Description},
		{"status", string(t.Status), string(body.Status)},
		{"priority", string(t.Priority), string(body.Priority)},
		{"dueDate", timeValue(t.DueDate), timeValue(body.DueDate)},
		{"assignedTo", idValue(t.AssignedToID), idValue(body.AssignedToID)},
	}
	oldAssignee := t.AssignedToID

	t.Title, t.Description, t.Status, t.Priority = body.Title, body.Description, body.Status, body.Priority
	t.DueDate, t.AssignedToID = body.DueDate, body.AssignedToID
	t.UpdatedAt = s.stamp()
	s.tasks[id] = t

	for _, ch := range changes {
		if ch.from == ch.to {
			continue
		}
		s.record(p, t, ch.field, ch.from, ch.to)
		if ch.field != "assignedTo" && t.AssignedToID != nil {
			s.notify(*t.AssignedToID, t, fmt.Sprintf("La tâche %s a été mise à jour: %s a changé de '%s' à '%s'", t.Title, fieldName(ch.field), ch.from, ch.to))
		}
	}
	if t.AssignedToID != nil && (oldAssignee == nil || *oldAssignee != *t.AssignedToID) {
		s.notify(*t.AssignedToID, t, "Vous avez été assigné à la tâche: "+t.Title)
	}
	if !p.IsAdmin() && t.Status == domain.StatusDone && changes[2].from != changes[2].to {
		for _, acc := range s.accounts {
			if acc.user.Role.IsAdmin() {
				s.notify(acc.user.ID, t, "L'employé a terminé la tâche: "+t.Title)
			}
		}
	}
	return t, nil
}

// DeleteTask removes task id with its comments and history. Administrators only.
func (s *Store) DeleteTask(p Principal, id int64) error {
	if !p.IsAdmin() {
		return &domain.AuthorizationError{Status: 403, Message: domain.RightsMessage}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return taskNotFound(id)
	}
	delete(s.tasks, id)
	s.comments = filter(s.comments, func(c domain.Comment) bool { return c.TaskID != id })
	s.history = filter(s.history, func(h domain.HistoryEntry) bool { return h.TaskID != id })
	return nil
}

// History returns the change log of task id, newest first.
func (s *Store) History(id int64) ([]domain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return nil, taskNotFound(id)
	}
	var out []domain.HistoryEntry
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].TaskID == id {
			out = append(out, s.history[i])
		}
	}
	return out, nil
}

// SearchQuery filters tasks. Text fields match case-insensitive substrings;
// LabelIDs match tasks carrying any of the labels.
type SearchQuery struct {
	Title       string
	Description string
	Status      domain.Status
	Priority    domain.Priority
	LabelIDs    []int64
}

// Search returns the tasks matching q ordered by id.
func (s *Store) Search(q SearchQuery) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	title := strings.ToLower(q.Title)
	desc := strings.ToLower(q.Description)
	var out []domain.Task
	for _, t := range s.sortedTasks() {
		if title != "" && !strings.Contains(strings.ToLower(t.Title), title) {
			continue
		}
		if desc != "" && !strings.Contains(strings.ToLower(t.Description), desc) {
			continue
		}
		if q.Status != "" && t.Status != q.Status {
			continue
		}
		if q.Priority != "" && t.Priority != q.Priority {
			continue
		}
		if len(q.LabelIDs) > 0 && !hasAnyLabel(t, q.LabelIDs) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Analytics aggregates every task. timeFrame (week, month, quarter) restricts
// the creation histogram.
func (s *Store) Analytics(p Principal, timeFrame string) (domain.Analytics, error) {
	if !p.IsAdmin() {
		return domain.Analytics{}, &domain.AuthorizationError{Status: 403, Message: domain.RightsMessage}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var since time.Time
	layout := "2006-01"
	switch timeFrame {
	case "week":
		since, layout = now.AddDate(0, 0, -7), "2006-01-02"
	case "month":
		since, layout = now.AddDate(0, -1, 0), "2006-01-02"
	case "quarter":
		since = now.AddDate(0, -3, 0)
	default:
		timeFrame = "all"
	}

	a := domain.Analytics{
		TasksByStatus:   map[string]int64{},
		TasksByPriority: map[string]int64{},
		TasksByUser:     map[string]int64{},
		TasksByDate:     map[string]int64{},
		TimeFrame:       timeFrame,
	}
	for _, t := range s.tasks {
		a.TotalTasks++
		a.TasksByStatus[string(t.Status)]++
		a.TasksByPriority[string(t.Priority)]++
		if t.Status == domain.StatusDone {
			a.CompletedTasks++
		} else if t.DueDate != nil && t.DueDate.Before(now) {
			a.OverdueTasks++
		}
		if t.AssignedToID != nil {
			if acc, ok := s.accounts[*t.AssignedToID]; ok {
				a.TasksByUser[acc.user.Name()]++
			}
		}
		if t.CreatedAt != nil && t.CreatedAt.After(since) {
			a.TasksByDate[t.CreatedAt.Format(layout)]++
		}
	}
	if a.TotalTasks > 0 {
		a.CompletionRate = float64(a.CompletedTasks) / float64(a.TotalTasks)
	}
	return a, nil
}

// TaskLabels returns the labels attached to task id.
func (s *Store) TaskLabels(id int64) ([]domain.Label, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, taskNotFound(id)
	}
	return append([]domain.Label{}, t.Labels...), nil
}

// AttachLabel adds labelID to task taskID. Attaching twice is a no-op.
func (s *Store) AttachLabel(taskID, labelID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, l, err := s.taskAndLabel(taskID, labelID)
	if err != nil {
		return err
	}
	if hasAnyLabel(t, []int64{labelID}) {
		return nil
	}
	t.Labels = append(append([]domain.Label{}, t.Labels...), l)
	s.tasks[taskID] = t
	if t.AssignedToID != nil {
		s.notify(*t.AssignedToID, t, fmt.Sprintf("L'étiquette '%s' a été ajoutée à la tâche: %s", l.Name, t.Title))
	}
	return nil
}

// DetachLabel removes labelID from task taskID.
func (s *Store) DetachLabel(taskID, labelID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, l, err := s.taskAndLabel(taskID, labelID)
	if err != nil {
		return err
	}
	if !hasAnyLabel(t, []int64{labelID}) {
		return nil
	}
	t.Labels = filter(append([]domain.Label{}, t.Labels...), func(x domain.Label) bool { return x.ID != labelID })
	s.tasks[taskID] = t
	if t.AssignedToID != nil {
		s.notify(*t.AssignedToID, t, fmt.Sprintf("L'étiquette '%s' a été retirée de la tâche: %s", l.Name, t.Title))
	}
	return nil
}

// Comments returns the comments of task id in creation order.
func (s *Store) Comments(id int64) ([]domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return nil, taskNotFound(id)
	}
	return filter(append([]domain.Comment{}, s.comments...), func(c domain.Comment) bool { return c.TaskID == id }), nil
}

// PostComment stores a comment by p. A contributor may only comment on tasks
// assigned to them; a reply's parent must belong to the same task.
func (s *Store) PostComment(p Principal, nc domain.NewComment) (domain.Comment, error) {
	if strings.TrimSpace(nc.Content) == "" {
		return domain.Comment{}, &domain.ValidationError{Fields: []string{"content"}, Err: domain.ErrEmptyComment}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[nc.TaskID]
	if !ok {
		return domain.Comment{}, taskNotFound(nc.TaskID)
	}
	if !p.IsAdmin() && !t.AssignedTo(p.UserID) {
		return domain.Comment{}, &domain.AuthorizationError{Status: 403, Message: msgCommentOwnTasks}
	}
	var parent *domain.Comment
	if nc.ParentID != nil {
		for i := range s.comments {
			if s.comments[i].ID == *nc.ParentID {
				parent = &s.comments[i]
				break
			}
		}
		if parent == nil {
			return domain.Comment{}, &domain.NotFoundError{Resource: "comment", ID: *nc.ParentID, Message: "Commentaire parent non trouvé"}
		}
		if parent.TaskID != nc.TaskID {
			return domain.Comment{}, &domain.ValidationError{Fields: []string{"parentId"}}
		}
	}

	author := s.accounts[p.UserID]
	s.nextComment++
	c := domain.Comment{
		ID:          s.nextComment,
		TaskID:      nc.TaskID,
		ParentID:    nc.ParentID,
		Content:     strings.TrimSpace(nc.Content),
		CreatedByID: p.UserID,
		CreatedAt:   s.stamp(),
	}
	if author != nil {
		c.CreatedByName = author.user.Name()
	}
	var parentAuthor int64
	if parent != nil {
		parentAuthor = parent.CreatedByID
	}
	s.comments = append(s.comments, c)

	if !p.IsAdmin() {
		for _, acc := range s.accounts {
			if acc.user.Role.IsAdmin() {
				s.notify(acc.user.ID, t, fmt.Sprintf("Nouveau commentaire de %s sur la tâche: %s", c.CreatedByName, t.Title))
			}
		}
	} else if t.AssignedToID != nil && *t.AssignedToID != p.UserID {
		s.notify(*t.AssignedToID, t, "Un admin a commenté votre tâche: "+t.Title)
	}
	if parentAuthor != 0 && parentAuthor != p.UserID {
		s.notify(parentAuthor, t, "Réponse à votre commentaire sur la tâche: "+t.Title)
	}
	return c, nil
}

// Notifications returns the notifications of userID, newest first. Only the
// owner or an administrator may read them.
func (s *Store) Notifications(p Principal, userID int64) ([]domain.Notification, error) {
	if !p.IsAdmin() && p.UserID != userID {
		return nil, &domain.AuthorizationError{Status: 403, Message: domain.RightsMessage}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if s.notifications[i].UserID == userID {
			out = append(out, s.notifications[i])
		}
	}
	return out, nil
}

// UnreadCount counts the unread notifications of userID.
func (s *Store) UnreadCount(p Principal, userID int64) (int64, error) {
	all, err := s.Notifications(p, userID)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, x := range all {
		if !x.Read {
			n++
		}
	}
	return n, nil
}

// MarkRead flags notification id as read.
func (s *Store) MarkRead(p Principal, id int64) (domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.ID != id {
			continue
		}
		if !p.IsAdmin() && n.UserID != p.UserID {
			return domain.Notification{}, &domain.AuthorizationError{Status: 403, Message: domain.RightsMessage}
		}
		n.Read = true
		return *n, nil
	}
	return domain.Notification{}, &domain.NotFoundError{Resource: "notification", ID: id, Message: "Notification non trouvée avec l'id: " + strconv.FormatInt(id, 10)}
}

// notify must be called with s.mu held.
func (s *Store) notify(userID int64, t domain.Task, message string) {
	s.nextNotification++
	s.notifications = append(s.notifications, domain.Notification{
		ID:        s.nextNotification,
		UserID:    userID,
		Message:   message,
		TaskID:    domain.ID(t.ID),
		TaskTitle: t.Title,
		CreatedAt: s.stamp(),
	})
}

// record must be called with s.mu held.
func (s *Store) record(p Principal, t domain.Task, field, from, to string) {
	s.nextHistory++
	h := domain.HistoryEntry{
		ID:           s.nextHistory,
		TaskID:       t.ID,
		ModifiedByID: p.UserID,
		Field:        field,
		OldValue:     from,
		NewValue:     to,
		ModifiedAt:   s.stamp(),
	}
	if acc, ok := s.accounts[p.UserID]; ok {
		h.ModifierName = acc.user.Name()
	}
	s.history = append(s.history, h)
}

// checkAssignee must be called with s.mu held.
func (s *Store) checkAssignee(p Principal, assignee *int64) error {
	if assignee != nil {
		if _, ok := s.accounts[*assignee]; !ok {
			return &domain.AuthorizationError{Status: 403, Message: domain.RightsMessage}
		}
	}
	if !p.IsAdmin() && (assignee == nil || *assignee != p.UserID) {
		return &domain.AuthorizationError{Status: 403, Message: domain.RightsMessage}
	}
	return nil
}

func (s *Store) taskAndLabel(taskID, labelID int64) (domain.Task, domain.Label, error) {
	t, ok := s.tasks[taskID]
	if !ok {
		return domain.Task{}, domain.Label{}, taskNotFound(taskID)
	}
	l, ok := s.labels[labelID]
	if !ok {
		return domain.Task{}, domain.Label{}, &domain.NotFoundError{Resource: "label", ID: labelID, Message: "Étiquette non trouvée avec l'id: " + strconv.FormatInt(labelID, 10)}
	}
	return t, l, nil
}

func (s *Store) sortedTasks() []domain.Task {
	out := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func validateBody(b domain.TaskBody) error {
	in := domain.TaskInput{
		Title:       b.Title,
		Description: b.Description,
		Status:      b.Status,
		Priority:    b.Priority,
		DueDate:     b.DueDate,
	}
	return in.Validate()
}

func taskNotFound(id int64) error {
	return &domain.NotFoundError{Resource: "task", ID: id, Message: "Tâche non trouvée avec l'id: " + strconv.FormatInt(id, 10)}
}

func userNotFound(id int64) error {
	return &domain.NotFoundError{Resource: "user", ID: id, Message: "User not found"}
}

func hasAnyLabel(t domain.Task, ids []int64) bool {
	for _, l := range t.Labels {
		for _, id := range ids {
			if l.ID == id {
				return true
			}
		}
	}
	return false
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := items[:0]
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func timeValue(t *domain.LocalTime) string {
	if t == nil {
		return ""
	}
	return t.String()
}

func idValue(id *int64) string {
	if id == nil {
		return "non assigné"
	}
	return strconv.FormatInt(*id, 10)
}

func fieldName(field string) string {
	switch field {
	case "title":
		return "le titre"
	case "description":
		return "la description"
	case "status":
		return "le statut"
	case "priority":
		return "la priorité"
	case "dueDate":
		return "la date d'échéance"
	}
	return field
}
