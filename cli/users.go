package cli

import (
	"bufio"
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"taskdeck/client"
	"taskdeck/domain"
	"taskdeck/session"
)

func newUsersCmd(a *app) *cobra.Command {
	var (
		q    client.UserQuery
		role string
	)
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Browse and manage accounts (administrators)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != "" {
				r, ok := domain.ParseRole(role)
				if !ok {
					return &domain.ValidationError{Fields: []string{"role"}}
				}
				q.Role = r
			}
			if q.Size <= 0 {
				q.Size = a.cfg.PageSize
			}
			c, _, err := a.adminClient()
			if err != nil {
				return err
			}
			page, err := c.Users(cmd.Context(), q)
			if err != nil {
				return err
			}
			renderUsers(a.out, page.Content)
			if q.Page+1 < page.TotalPages {
				fmt.Fprintf(a.out, "Page %d/%d (more with --page %d)\n", q.Page+1, page.TotalPages, q.Page+1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&q.Search, "search", "", "Name or email contains")
	cmd.Flags().StringVar(&role, "role", "", "ADMIN or EMPLOYEE")
	cmd.Flags().IntVar(&q.Page, "page", 0, "Page index")
	cmd.Flags().IntVar(&q.Size, "size", 0, "Page size")
	cmd.AddCommand(
		newUserCreateCmd(a),
		newUserUpdateCmd(a),
		newUserDeleteCmd(a),
		newUserRoleCmd(a),
	)
	return cmd
}

// userFlags are the account fields shared by signup, create and update.
type userFlags struct {
	first    string
	last     string
	email    string
	password string
}

func (f *userFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.first, "first", "", "First name")
	fl.StringVar(&f.last, "last", "", "Last name")
	fl.StringVarP(&f.email, "email", "e", "", "Email")
	fl.StringVarP(&f.password, "password", "p", "", "Password")
}

func (f *userFlags) apply(cmd *cobra.Command, form *domain.UserForm) {
	changed := cmd.Flags().Changed
	if changed("first") {
		form.FirstName = f.first
	}
	if changed("last") {
		form.LastName = f.last
	}
	if changed("email") {
		form.Email = f.email
	}
	if changed("password") {
		form.Password = f.password
	}
}

// newForm fills a new account form and prompts for a missing password.
func (f *userFlags) newForm(cmd *cobra.Command) (domain.UserForm, error) {
	var form domain.UserForm
	f.apply(cmd, &form)
	if form.Password == "" {
		form.Password = prompt(cmd, bufio.NewReader(cmd.InOrStdin()), "Password: ")
	}
	return form.Normalize(), form.Validate(true)
}

// adminClient is authed restricted to administrators.
func (a *app) adminClient() (*client.Client, session.Identity, error) {
	c, id, err := a.authed()
	if err != nil {
		return nil, session.Identity{}, err
	}
	if !id.IsAdmin() {
		return nil, session.Identity{}, &domain.AuthorizationError{Status: 403}
	}
	return c, id, nil
}

// evictUsers drops the cached user directory after an account change.
func (a *app) evictUsers(ctx context.Context, c *client.Client) {
	cache, done, err := a.catalog(c)
	if err != nil {
		a.logger.WithError(err).Debug("cli.cache.evict")
		return
	}
	defer done()
	cache.Evict(ctx)
}

func newUserCreateCmd(a *app) *cobra.Command {
	var f userFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a contributor account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := a.adminClient()
			if err != nil {
				return err
			}
			form, err := f.newForm(cmd)
			if err != nil {
				return err
			}
			u, err := c.CreateUser(cmd.Context(), form)
			if err != nil {
				return err
			}
			a.evictUsers(cmd.Context(), c)
			fmt.Fprintf(a.out, "Created user %d\n", u.ID)
			renderUsers(a.out, []domain.User{u})
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newUserUpdateCmd(a *app) *cobra.Command {
	var f userFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the names, email or password of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, _, err := a.adminClient()
			if err != nil {
				return err
			}
			current, err := c.User(cmd.Context(), userID)
			if err != nil {
				return err
			}
			form := domain.FormFrom(current)
			f.apply(cmd, &form)
			if err := form.Validate(false); err != nil {
				return err
			}
			u, err := c.UpdateUser(cmd.Context(), userID, form.Normalize())
			if err != nil {
				return err
			}
			a.evictUsers(cmd.Context(), c)
			fmt.Fprintf(a.out, "Updated user %d\n", u.ID)
			renderUsers(a.out, []domain.User{u})
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newUserDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, _, err := a.adminClient()
			if err != nil {
				return err
			}
			if err := c.DeleteUser(cmd.Context(), userID); err != nil {
				return err
			}
			a.evictUsers(cmd.Context(), c)
			fmt.Fprintf(a.out, "Deleted user %d\n", userID)
			return nil
		},
	}
}

func newUserRoleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "role <id> <ADMIN|EMPLOYEE>",
		Short: "Change the role of an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0])
			if err != nil {
				return err
			}
			role, ok := domain.ParseRole(args[1])
			if !ok {
				return &domain.ValidationError{Fields: []string{"role"}}
			}
			c, _, err := a.adminClient()
			if err != nil {
				return err
			}
			u, err := c.SetUserRole(cmd.Context(), userID, role)
			if err != nil {
				return err
			}
			a.evictUsers(cmd.Context(), c)
			fmt.Fprintf(a.out, "User %d is now %s\n", u.ID, u.Role)
			return nil
		},
	}
}
