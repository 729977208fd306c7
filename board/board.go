package board

import (
	"sort"

	"taskdeck/domain"
)

// Column is one workflow status with the tasks currently in it.
type Column struct {
	Status domain.Status
	Tasks  []domain.Task
}

// Board is the per-status view derived from the flat task list. Columns always
// follow domain.Statuses, including empty ones.
type Board struct {
	Columns []Column
}

// Group derives a board from tasks. Each task lands in the column of its own
// status; tasks with a status outside the workflow are skipped.
func Group(tasks []domain.Task) Board {
	byStatus := make(map[domain.Status][]domain.Task, len(domain.Statuses))
	for _, t := range tasks {
		if !t.Status.Valid() {
			continue
		}
		byStatus[t.Status] = append(byStatus[t.Status], t)
	}
	b := Board{Columns: make([]Column, 0, len(domain.Statuses))}
	for _, s := range domain.Statuses {
		b.Columns = append(b.Columns, Column{Status: s, Tasks: byStatus[s]})
	}
	return b
}

// Column returns the tasks with status s.
func (b Board) Column(s domain.Status) []domain.Task {
	for _, c := range b.Columns {
		if c.Status == s {
			return c.Tasks
		}
	}
	return nil
}

// Len is the number of tasks on the board.
func (b Board) Len() int {
	n := 0
	for _, c := range b.Columns {
		n += len(c.Tasks)
	}
	return n
}

// Find returns the task with id.
func (b Board) Find(id int64) (domain.Task, bool) {
	for _, c := range b.Columns {
		for _, t := range c.Tasks {
			if t.ID == id {
				return t, true
			}
		}
	}
	return domain.Task{}, false
}

// flatten turns the service's column map into one list. Known columns are read
// in workflow order and any extra columns after them by name, so the result does
// not depend on map iteration order. Repeated ids keep their first occurrence.
func flatten(kanban map[string][]domain.Task) []domain.Task {
	keys := make([]string, 0, len(kanban))
	for k := range kanban {
		keys = append(keys, k)
	}
	rank := func(k string) int {
		for i, s := range domain.Statuses {
			if string(s) == k {
				return i
			}
		}
		return len(domain.Statuses)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := rank(keys[i]), rank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})

	seen := make(map[int64]struct{})
	var out []domain.Task
	for _, k := range keys {
		for _, t := range kanban[k] {
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
