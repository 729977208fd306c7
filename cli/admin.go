package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"taskdeck/devserver"
	"taskdeck/domain"
	"taskdeck/labels"
)

func newLabelsCmd(a *app) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "List the label catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := a.authed()
			if err != nil {
				return err
			}
			cache, done, err := a.catalog(c)
			if err != nil {
				return err
			}
			defer done()

			cat := labels.NewCatalog(cache)
			if refresh {
				cat.Invalidate(cmd.Context())
			}
			ls, err := cat.List(cmd.Context())
			if err != nil {
				return err
			}
			renderLabels(a.out, ls)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the cached catalog")
	return cmd
}

func newAnalyticsCmd(a *app) *cobra.Command {
	var timeFrame string
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show task statistics (administrators)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch timeFrame {
			case "", "week", "month", "quarter":
			default:
				return &domain.ValidationError{Fields: []string{"timeFrame"}}
			}
			c, _, err := a.adminClient()
			if err != nil {
				return err
			}
			stats, err := c.Analytics(cmd.Context(), timeFrame)
			if err != nil {
				return err
			}
			renderAnalytics(a.out, stats)
			return nil
		},
	}
	cmd.Flags().StringVar(&timeFrame, "time-frame", "", "week, month or quarter (default all time)")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var (
		addr string
		seed bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the in-memory development service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := a.cfg.JWTSecret
			if secret == "" {
				secret = uuid.NewString()
				a.logger.Warn("devserver.secret.generated")
			}
			srv, err := devserver.New(devserver.Options{Secret: secret, Seed: seed, Logger: a.logger})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(a.out, "Serving on %s (API under /api)\n", addr)
			return srv.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().BoolVar(&seed, "seed", true, "Load demo accounts and tasks")
	return cmd
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "taskdeck", version)
		},
	}
}
