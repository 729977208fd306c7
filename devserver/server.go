// Package devserver is an in-memory implementation of the task service used
// for local development and tests.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"taskdeck/domain"
)

// Options configures a development server.
type Options struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
	Seed       bool
	Logger     *log.Logger
}

// Server bundles the echo instance with its state.
type Server struct {
	Echo  *echo.Echo
	Store *Store
	Auth  *Auth

	logger *log.Logger
}

// New builds a server. With Seed set the store is filled with demo accounts,
// labels and tasks.
func New(opts Options) (*Server, error) {
	if opts.Secret == "" {
		return nil, errors.New("devserver: secret is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	store := NewStore(opts.BcryptCost)
	if opts.Seed {
		if err := Seed(store); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	auth := NewAuth([]byte(opts.Secret), opts.TokenTTL)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = sonicSerializer{}
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Request-ID"},
	}))
	e.Use(requestLogger(logger))
	Register(e, store, auth, logger)

	return &Server{Echo: e, Store: store, Auth: auth, logger: logger}, nil
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.WithFields(log.Fields{"addr": addr}).Info("devserver.listening")
		errc <- s.Echo.Start(addr)
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Echo.Shutdown(shutdownCtx)
}

// Seed fills store with demo data. Passwords are the local part of each
// email followed by "123".
func Seed(store *Store) error {
	type seedUser struct {
		first, last, email, password string
		role                         domain.Role
	}
	users := []seedUser{
		{"Ada", "Admin", "admin@taskdeck.dev", "admin123", domain.RoleAdmin},
		{"Alice", "Martin", "alice@taskdeck.dev", "alice123", domain.RoleContributor},
		{"Bob", "Durand", "bob@taskdeck.dev", "bob123", domain.RoleContributor},
	}
	created := make([]domain.User, 0, len(users))
	for _, u := range users {
		nu, err := store.AddUser(u.first, u.last, u.email, u.password, u.role)
		if err != nil {
			return err
		}
		created = append(created, nu)
	}
	admin := Principal{UserID: created[0].ID, Email: created[0].Email, Role: domain.RoleAdmin}

	bug := store.AddLabel("Bug", "#e11d48")
	feature := store.AddLabel("Feature", "#2563eb")
	store.AddLabel("Frontend", "#16a34a")
	backend := store.AddLabel("Backend", "#9333ea")

	due := func(days int) *domain.LocalTime {
		return domain.NewLocalTime(time.Now().AddDate(0, 0, days).Truncate(time.Minute))
	}
	tasks := []struct {
		body   domain.TaskBody
		labels []int64
	}{
		{domain.TaskBody{Title: "Set up CI", Description: "Run tests on every push", Status: domain.StatusTodo, Priority: domain.PriorityHigh, DueDate: due(3), AssignedToID: domain.ID(created[1].ID)}, []int64{backend.ID}},
		{domain.TaskBody{Title: "Fix login redirect", Description: "Users land on a blank page", Status: domain.StatusInProgress, Priority: domain.PriorityUrgent, DueDate: due(1), AssignedToID: domain.ID(created[1].ID)}, []int64{bug.ID}},
		{domain.TaskBody{Title: "Kanban drag and drop", Description: "Move cards between columns", Status: domain.StatusInReview, Priority: domain.PriorityMedium, DueDate: due(7), AssignedToID: domain.ID(created[2].ID)}, []int64{feature.ID}},
		{domain.TaskBody{Title: "Write release notes", Description: "Summarise the sprint", Status: domain.StatusDone, Priority: domain.PriorityLow, DueDate: due(-2)}, nil},
	}
	for _, t := range tasks {
		task, err := store.CreateTask(admin, t.body)
		if err != nil {
			return err
		}
		for _, l := range t.labels {
			if err := store.AttachLabel(task.ID, l); err != nil {
				return err
			}
		}
	}
	return nil
}
