package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taskdeck/board"
	"taskdeck/client"
	"taskdeck/config"
	"taskdeck/domain"
	"taskdeck/labels"
	"taskdeck/session"
	"taskdeck/storage"
)

// app carries what every command needs. Commands are built per invocation so
// flag state never leaks between runs.
type app struct {
	cfg      config.Config
	logger   *log.Logger
	out      io.Writer
	sessions *session.Store
}

func newApp(cfg config.Config, logger *log.Logger) *app {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &app{
		cfg:      cfg,
		logger:   logger,
		out:      os.Stdout,
		sessions: session.NewStore(cfg.SessionFile),
	}
}

func (a *app) client() *client.Client {
	return client.New(a.cfg.APIURL, "", a.cfg.RequestTimeout, a.logger)
}

// authed returns a client carrying the stored bearer together with the
// identity it belongs to.
func (a *app) authed() (*client.Client, session.Identity, error) {
	id, err := a.sessions.Load()
	if err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			return nil, session.Identity{}, fmt.Errorf("%w: run `taskdeck login` first", err)
		}
		return nil, session.Identity{}, err
	}
	return a.client().WithBearer(id.Token), id, nil
}

func (a *app) manager(c *client.Client, id session.Identity) *board.Manager {
	return board.NewManager(c, labels.NewReconciler(c, a.cfg.ReconcileWorkers, a.logger), id, a.logger)
}

// catalog opens the cached label and user catalogs. Without a redis_url the
// cache is a pass-through to the service.
func (a *app) catalog(c *client.Client) (*storage.Cache, func(), error) {
	rdb, err := storage.Open(a.cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open redis: %w", err)
	}
	closeFn := func() {}
	if rdb != nil {
		closeFn = func() {
			if err := rdb.Close(); err != nil {
				a.logger.WithError(err).Debug("cli.redis.close")
			}
		}
	}
	return storage.NewCache(storage.Remote{API: c}, rdb, a.cfg.CacheTTL, a.cacheNamespace()).WithLogger(a.logger), closeFn, nil
}

func (a *app) cacheNamespace() string {
	host := a.cfg.APIURL
	if u, err := url.Parse(a.cfg.APIURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return "taskdeck:" + host + ":"
}

func newRootCmd(a *app, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "taskdeck",
		Short: "Role-aware task board client",
		Long: `taskdeck works against a task service: a kanban board filtered by role,
label editing, threaded comments and notifications.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.out = cmd.OutOrStdout()
		},
	}
	root.PersistentFlags().StringVar(&a.cfg.APIURL, "api", a.cfg.APIURL, "Task service base URL")

	root.AddCommand(
		newSignupCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newBoardCmd(a),
		newTaskCmd(a),
		newLabelsCmd(a),
		newCommentsCmd(a),
		newNotificationsCmd(a),
		newUsersCmd(a),
		newAnalyticsCmd(a),
		newServeCmd(a),
		newVersionCmd(version),
	)
	return root
}

// Execute loads the configuration and runs the command tree.
func Execute(version string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	root := newRootCmd(newApp(cfg, nil), version)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		return err
	}
	return nil
}

// describe turns service errors into the message a user should read.
func describe(err error) string {
	var (
		verr *domain.ValidationError
		aerr *domain.AuthorizationError
		nerr *domain.NotFoundError
		perr *labels.PartialError
	)
	switch {
	case errors.As(err, &perr):
		return "task saved, but some labels could not be applied: " + perr.Error()
	case errors.As(err, &verr):
		return err.Error()
	case errors.As(err, &aerr):
		if aerr.Message != "" {
			return aerr.Message
		}
		return domain.RightsMessage
	case errors.As(err, &nerr):
		return nerr.Error()
	}
	return err.Error()
}
