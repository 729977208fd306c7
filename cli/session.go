package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"taskdeck/session"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("TASKDECK_PASSWORD")
			}
			in := bufio.NewReader(cmd.InOrStdin())
			if email == "" {
				email = prompt(cmd, in, "Email: ")
			}
			if password == "" {
				password = prompt(cmd, in, "Password: ")
			}

			verifier, err := session.NewVerifier(a.cfg.JWKSURL, a.cfg.JWTSecret)
			if err != nil {
				return fmt.Errorf("token verifier: %w", err)
			}
			defer verifier.Close()

			id, err := session.Login(cmd.Context(), a.client(), verifier, email, password)
			if err != nil {
				return err
			}
			if err := a.sessions.Save(id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s (%s)\n", id.Email, id.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (or TASKDECK_PASSWORD)")
	return cmd
}

func newSignupCmd(a *app) *cobra.Command {
	var f userFlags
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a contributor account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := f.newForm(cmd)
			if err != nil {
				return err
			}
			u, err := a.client().Signup(cmd.Context(), form)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Account created for %s (%s). Run `taskdeck login -e %s` to start.\n", u.Email, u.Role, u.Email)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func prompt(cmd *cobra.Command, in *bufio.Reader, label string) string {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sessions.Clear(); err != nil {
				return fmt.Errorf("clear session: %w", err)
			}
			fmt.Fprintln(a.out, "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.sessions.Load()
			if err != nil {
				return err
			}
			expires := "-"
			if !id.ExpiresAt.IsZero() {
				expires = id.ExpiresAt.Local().Format(dateLayout)
			}
			t := table.NewWriter()
			t.SetOutputMirror(a.out)
			t.SetStyle(table.StyleRounded)
			t.AppendRows([]table.Row{
				{"User", id.UserID},
				{"Email", id.Email},
				{"Role", id.Role},
				{"Expires", expires},
			})
			t.Render()
			return nil
		},
	}
}
