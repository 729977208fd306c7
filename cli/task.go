package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"taskdeck/board"
	"taskdeck/client"
	"taskdeck/domain"
	"taskdeck/labels"
	"taskdeck/session"
)

func newBoardCmd(a *app) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the kanban board visible to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, id, err := a.authed()
			if err != nil {
				return err
			}
			b, err := a.manager(c, id).LoadBoard(cmd.Context())
			if err != nil {
				return err
			}
			if status != "" {
				s, ok := domain.ParseStatus(status)
				if !ok {
					return &domain.ValidationError{Fields: []string{"status"}}
				}
				b = board.Board{Columns: []board.Column{{Status: s, Tasks: b.Column(s)}}}
			}
			renderBoard(a.out, b, a.userNames(cmd.Context(), c, id))
			return nil
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "Only show one column (todo, in-progress, review, done)")
	return cmd
}

func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Inspect and edit tasks",
	}
	cmd.AddCommand(
		newTaskShowCmd(a),
		newTaskCreateCmd(a),
		newTaskUpdateCmd(a),
		newTaskDeleteCmd(a),
		newTaskCompleteCmd(a),
		newTaskHistoryCmd(a),
		newTaskSearchCmd(a),
	)
	return cmd
}

// taskFlags are the editable fields shared by create and update.
type taskFlags struct {
	title       string
	description string
	due         string
	priority    string
	status      string
	assignee    int64
	unassign    bool
	labels      []string
	clearLabels bool
}

func (f *taskFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.title, "title", "t", "", "Title")
	fl.StringVarP(&f.description, "description", "d", "", "Description")
	fl.StringVar(&f.due, "due", "", "Due date (YYYY-MM-DD or YYYY-MM-DD HH:MM)")
	fl.StringVar(&f.priority, "priority", "", "LOW, MEDIUM, HIGH or URGENT")
	fl.StringVar(&f.status, "status", "", "todo, in-progress, review or done")
	fl.Int64Var(&f.assignee, "assignee", 0, "Assignee user id (ignored for contributors)")
	fl.BoolVar(&f.unassign, "unassign", false, "Remove the assignee")
	fl.StringSliceVarP(&f.labels, "label", "l", nil, "Label name or id, repeatable; replaces the label set")
	fl.BoolVar(&f.clearLabels, "clear-labels", false, "Remove every label")
}

// apply copies the flags the user set onto in. Invalid values are collected
// into one ValidationError.
func (f *taskFlags) apply(ctx context.Context, cmd *cobra.Command, cat *labels.Catalog, in *domain.TaskInput) error {
	changed := cmd.Flags().Changed
	var bad []string
	if changed("title") {
		in.Title = f.title
	}
	if changed("description") {
		in.Description = f.description
	}
	if changed("due") {
		due, err := domain.ParseLocalTime(f.due)
		if err != nil {
			bad = append(bad, "dueDate")
		} else {
			in.DueDate = &due
		}
	}
	if changed("priority") {
		p, ok := domain.ParsePriority(f.priority)
		if !ok {
			bad = append(bad, "priority")
		}
		in.Priority = p
	}
	if changed("status") {
		s, ok := domain.ParseStatus(f.status)
		if !ok {
			bad = append(bad, "status")
		}
		in.Status = s
	}
	switch {
	case f.unassign:
		in.AssignedToID = nil
	case changed("assignee"):
		in.AssignedToID = domain.ID(f.assignee)
	}
	if len(bad) > 0 {
		return &domain.ValidationError{Fields: bad}
	}

	switch {
	case f.clearLabels:
		in.LabelIDs = []int64{}
	case changed("label"):
		ids, err := cat.Resolve(ctx, f.labels)
		if err != nil {
			return err
		}
		in.LabelIDs = ids
	}
	return nil
}

func newTaskCreateCmd(a *app) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, id, err := a.authed()
			if err != nil {
				return err
			}
			cache, done, err := a.catalog(c)
			if err != nil {
				return err
			}
			defer done()

			var in domain.TaskInput
			if err := f.apply(cmd.Context(), cmd, labels.NewCatalog(cache), &in); err != nil {
				return err
			}
			mut, err := a.manager(c, id).CreateTask(cmd.Context(), in)
			return a.printMutation(cmd.Context(), c, id, "Created", mut, err)
		},
	}
	f.register(cmd)
	return cmd
}

func newTaskUpdateCmd(a *app) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, id, err := a.authed()
			if err != nil {
				return err
			}
			cache, done, err := a.catalog(c)
			if err != nil {
				return err
			}
			defer done()

			m := a.manager(c, id)
			task, err := m.Task(cmd.Context(), taskID)
			if err != nil {
				return err
			}
			in := domain.InputFrom(task)
			if err := f.apply(cmd.Context(), cmd, labels.NewCatalog(cache), &in); err != nil {
				return err
			}
			mut, err := m.UpdateTask(cmd.Context(), taskID, in)
			return a.printMutation(cmd.Context(), c, id, "Updated", mut, err)
		},
	}
	f.register(cmd)
	return cmd
}

func newTaskCompleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Move a task to the done column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, id, err := a.authed()
			if err != nil {
				return err
			}
			mut, err := a.manager(c, id).CompleteTask(cmd.Context(), taskID)
			return a.printMutation(cmd.Context(), c, id, "Completed", mut, err)
		},
	}
}

func newTaskDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task (administrators)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, id, err := a.authed()
			if err != nil {
				return err
			}
			if _, err := a.manager(c, id).DeleteTask(cmd.Context(), taskID); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted task %d\n", taskID)
			return nil
		},
	}
}

func newTaskShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, id, err := a.authed()
			if err != nil {
				return err
			}
			task, err := a.manager(c, id).Task(cmd.Context(), taskID)
			if err != nil {
				return err
			}
			renderTask(a.out, task, a.userNames(cmd.Context(), c, id))
			return nil
		},
	}
}

func newTaskHistoryCmd(a *app) *cobra.Command {
	var page, size int
	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Show the change log of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, id, err := a.authed()
			if err != nil {
				return err
			}
			m := a.manager(c, id)
			if _, err := m.Task(cmd.Context(), taskID); err != nil {
				return err
			}
			if size <= 0 {
				size = a.cfg.PageSize
			}
			hist, err := m.History(cmd.Context(), taskID, page, size)
			if err != nil {
				return err
			}
			if len(hist.Content) == 0 {
				fmt.Fprintln(a.out, "No changes recorded.")
				return nil
			}
			renderHistory(a.out, hist.Content)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "Page index")
	cmd.Flags().IntVar(&size, "size", 0, "Page size")
	return cmd
}

func newTaskSearchCmd(a *app) *cobra.Command {
	var (
		crit         client.SearchCriteria
		status, prio string
		labelRefs    []string
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search tasks visible to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var bad []string
			if status != "" {
				s, ok := domain.ParseStatus(status)
				if !ok {
					bad = append(bad, "status")
				}
				crit.Status = s
			}
			if prio != "" {
				p, ok := domain.ParsePriority(prio)
				if !ok {
					bad = append(bad, "priority")
				}
				crit.Priority = p
			}
			if len(bad) > 0 {
				return &domain.ValidationError{Fields: bad}
			}
			if crit.Size <= 0 {
				crit.Size = a.cfg.PageSize
			}

			c, id, err := a.authed()
			if err != nil {
				return err
			}
			if len(labelRefs) > 0 {
				cache, done, err := a.catalog(c)
				if err != nil {
					return err
				}
				defer done()
				if crit.LabelIDs, err = labels.NewCatalog(cache).Resolve(cmd.Context(), labelRefs); err != nil {
					return err
				}
			}

			page, err := a.manager(c, id).Search(cmd.Context(), crit)
			if err != nil {
				return err
			}
			if len(page.Content) == 0 {
				fmt.Fprintln(a.out, "No matching tasks.")
				return nil
			}
			renderTasks(a.out, page.Content, a.userNames(cmd.Context(), c, id))
			if crit.Page+1 < page.TotalPages {
				fmt.Fprintf(a.out, "Page %d/%d (more with --page %d)\n", crit.Page+1, page.TotalPages, crit.Page+1)
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&crit.Title, "title", "", "Title contains")
	fl.StringVar(&crit.Description, "description", "", "Description contains")
	fl.StringVar(&status, "status", "", "Status")
	fl.StringVar(&prio, "priority", "", "Priority")
	fl.StringSliceVarP(&labelRefs, "label", "l", nil, "Label name or id, repeatable")
	fl.IntVar(&crit.Page, "page", 0, "Page index")
	fl.IntVar(&crit.Size, "size", 0, "Page size")
	return cmd
}

// printMutation shows the saved task. A partial label failure still prints the
// task before the error is returned.
func (a *app) printMutation(ctx context.Context, c *client.Client, id session.Identity, verb string, mut board.Mutation, err error) error {
	var perr *labels.PartialError
	if err != nil && !errors.As(err, &perr) {
		return err
	}
	fmt.Fprintf(a.out, "%s task %d\n", verb, mut.Task.ID)
	renderTask(a.out, mut.Task, a.userNames(ctx, c, id))
	return err
}

// userNames maps user ids to display names. Only administrators may read the
// directory; everyone else gets their own entry.
func (a *app) userNames(ctx context.Context, c *client.Client, id session.Identity) map[int64]string {
	names := map[int64]string{id.UserID: id.Email}
	if !id.IsAdmin() {
		return names
	}
	cache, done, err := a.catalog(c)
	if err != nil {
		a.logger.WithError(err).Debug("cli.users.cache")
		return names
	}
	defer done()
	users, err := cache.FetchUsers(ctx)
	if err != nil {
		a.logger.WithError(err).Debug("cli.users.fetch")
		return names
	}
	for _, u := range users {
		names[u.ID] = u.Name()
	}
	return names
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &domain.ValidationError{Fields: []string{"id"}, Err: fmt.Errorf("invalid id %q", raw)}
	}
	return id, nil
}
