package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"taskdeck/board"
	"taskdeck/comments"
	"taskdeck/domain"
	"taskdeck/notifications"
)

const dateLayout = "2006-01-02 15:04"

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Options.SeparateRows = false
	row := make(table.Row, len(header))
	for i, h := range header {
		row[i] = text.FgGreen.Sprint(h)
	}
	t.AppendHeader(row)
	return t
}

func priorityColored(p domain.Priority) string {
	switch p {
	case domain.PriorityUrgent:
		return color.New(color.FgHiRed, color.Bold).Sprint(p)
	case domain.PriorityHigh:
		return color.HiRedString(string(p))
	case domain.PriorityMedium:
		return color.HiYellowString(string(p))
	case domain.PriorityLow:
		return color.HiBlueString(string(p))
	}
	return string(p)
}

func statusColored(s domain.Status) string {
	switch s {
	case domain.StatusTodo:
		return text.FgHiRed.Sprint(s)
	case domain.StatusInProgress:
		return text.FgHiYellow.Sprint(s)
	case domain.StatusInReview:
		return text.FgHiMagenta.Sprint(s)
	case domain.StatusDone:
		return text.FgHiGreen.Sprint(s)
	}
	return string(s)
}

func formatTime(t *domain.LocalTime) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}

func labelNames(ls []domain.Label) string {
	names := make([]string, 0, len(ls))
	for _, l := range ls {
		names = append(names, l.Name)
	}
	return strings.Join(names, ", ")
}

func assigneeName(id *int64, names map[int64]string) string {
	if id == nil {
		return "-"
	}
	if n, ok := names[*id]; ok {
		return n
	}
	return "#" + strconv.FormatInt(*id, 10)
}

func renderBoard(w io.Writer, b board.Board, names map[int64]string) {
	for _, col := range b.Columns {
		fmt.Fprintf(w, "\n%s (%d)\n", statusColored(col.Status), len(col.Tasks))
		if len(col.Tasks) == 0 {
			continue
		}
		t := newTable(w, "ID", "Title", "Priority", "Due", "Assignee", "Labels")
		for _, task := range col.Tasks {
			t.AppendRow(table.Row{
				task.ID,
				task.Title,
				priorityColored(task.Priority),
				formatTime(task.DueDate),
				assigneeName(task.AssignedToID, names),
				labelNames(task.Labels),
			})
		}
		t.Render()
	}
}

func renderTasks(w io.Writer, tasks []domain.Task, names map[int64]string) {
	t := newTable(w, "ID", "Title", "Status", "Priority", "Due", "Assignee")
	for _, task := range tasks {
		t.AppendRow(table.Row{
			task.ID,
			task.Title,
			statusColored(task.Status),
			priorityColored(task.Priority),
			formatTime(task.DueDate),
			assigneeName(task.AssignedToID, names),
		})
	}
	t.Render()
}

func renderTask(w io.Writer, task domain.Task, names map[int64]string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{text.Bold.Sprint("ID"), task.ID},
		{text.Bold.Sprint("Title"), task.Title},
		{text.Bold.Sprint("Description"), task.Description},
		{text.Bold.Sprint("Status"), statusColored(task.Status)},
		{text.Bold.Sprint("Priority"), priorityColored(task.Priority)},
		{text.Bold.Sprint("Due"), formatTime(task.DueDate)},
		{text.Bold.Sprint("Assignee"), assigneeName(task.AssignedToID, names)},
		{text.Bold.Sprint("Labels"), labelNames(task.Labels)},
		{text.Bold.Sprint("Updated"), formatTime(task.UpdatedAt)},
	})
	t.Render()
}

func renderHistory(w io.Writer, entries []domain.HistoryEntry) {
	t := newTable(w, "When", "By", "Field", "From", "To")
	for _, h := range entries {
		by := h.ModifierName
		if by == "" {
			by = "#" + strconv.FormatInt(h.ModifiedByID, 10)
		}
		t.AppendRow(table.Row{formatTime(h.ModifiedAt), by, h.Field, h.OldValue, h.NewValue})
	}
	t.Render()
}

func renderLabels(w io.Writer, ls []domain.Label) {
	t := newTable(w, "ID", "Name", "Color")
	for _, l := range ls {
		t.AppendRow(table.Row{l.ID, l.Name, l.Color})
	}
	t.Render()
}

func renderUsers(w io.Writer, users []domain.User) {
	t := newTable(w, "ID", "Name", "Email", "Role")
	for _, u := range users {
		t.AppendRow(table.Row{u.ID, u.Name(), u.Email, u.Role})
	}
	t.Render()
}

func renderAnalytics(w io.Writer, a domain.Analytics) {
	frame := a.TimeFrame
	if frame == "" {
		frame = "all"
	}
	fmt.Fprintf(w, "Tasks: %d (%s)  completed: %d  overdue: %d  completion: %.1f%%\n",
		a.TotalTasks, frame, a.CompletedTasks, a.OverdueTasks, a.CompletionRate*100)

	t := newTable(w, "Status", "Count")
	for _, s := range domain.Statuses {
		t.AppendRow(table.Row{statusColored(s), a.TasksByStatus[string(s)]})
	}
	t.Render()

	t = newTable(w, "Priority", "Count")
	for _, p := range domain.Priorities {
		t.AppendRow(table.Row{priorityColored(p), a.TasksByPriority[string(p)]})
	}
	t.Render()

	if len(a.TasksByUser) > 0 {
		users := make([]string, 0, len(a.TasksByUser))
		for u := range a.TasksByUser {
			users = append(users, u)
		}
		sort.Strings(users)
		t = newTable(w, "User", "Count")
		for _, u := range users {
			t.AppendRow(table.Row{u, a.TasksByUser[u]})
		}
		t.Render()
	}
}

// renderThread prints the comment forest as an indented outline.
func renderThread(w io.Writer, lines []comments.Line) {
	if len(lines) == 0 {
		fmt.Fprintln(w, "No comments yet.")
		return
	}
	author := color.New(color.FgCyan, color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()
	for _, l := range lines {
		indent := strings.Repeat("  ", l.Depth)
		if l.Composer {
			fmt.Fprintf(w, "%s%s\n", indent, faint(fmt.Sprintf("> replying to #%d", l.ParentID)))
			continue
		}
		c := l.Comment
		name := c.CreatedByName
		if name == "" {
			name = "#" + strconv.FormatInt(c.CreatedByID, 10)
		}
		fmt.Fprintf(w, "%s[%d] %s %s\n", indent, c.ID, author(name), faint(formatTime(c.CreatedAt)))
		for _, line := range strings.Split(c.Content, "\n") {
			fmt.Fprintf(w, "%s    %s\n", indent, line)
		}
	}
}

func renderNotifications(w io.Writer, snap notifications.Snapshot) {
	fmt.Fprintf(w, "Unread: %s\n", color.New(color.Bold).Sprint(snap.Unread))
	t := newTable(w, "ID", "", "Message", "Task", "When")
	for _, n := range snap.Page.Items {
		mark, msg := "", n.Message
		if !n.Read {
			mark = color.HiYellowString("●")
			msg = text.Bold.Sprint(msg)
		}
		task := "-"
		if n.TaskID != nil {
			task = "#" + strconv.FormatInt(*n.TaskID, 10)
			if n.TaskTitle != "" {
				task += " " + n.TaskTitle
			}
		}
		t.AppendRow(table.Row{n.ID, mark, msg, task, formatTime(n.CreatedAt)})
	}
	t.Render()
	if snap.Page.TotalPages > 0 {
		fmt.Fprintf(w, "Page %d/%d", snap.Page.Index+1, snap.Page.TotalPages)
		if snap.Page.HasMore {
			fmt.Fprintf(w, " (more with --page %d)", snap.Page.Index+1)
		}
		fmt.Fprintln(w)
	}
}
