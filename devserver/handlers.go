package devserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskdeck/domain"
)

const principalKey = "taskdeck.principal"

type messageResponse struct {
	Message string `json:"message"`
}

// Register wires every route under /api on e.
func Register(e *echo.Echo, store *Store, auth *Auth, logger *log.Logger) {
	e.GET("/healthz", healthz())

	g := e.Group("/api")
	g.POST("/auth/login", login(store, auth, logger))
	g.POST("/auth/signup", signup(store, logger))

	secured := g.Group("", authenticate(auth))
	secured.GET("/tasks/kanban", getKanban(store))
	secured.GET("/tasks/search", searchTasks(store))
	secured.GET("/tasks/analytics", getAnalytics(store))
	secured.GET("/tasks/:id", getTask(store))
	secured.GET("/tasks/:id/history", getHistory(store))
	secured.POST("/tasks", createTask(store))
	secured.PUT("/tasks/:id", updateTask(store))
	secured.DELETE("/tasks/:id", deleteTask(store))

	secured.GET("/labels", getLabels(store))
	secured.GET("/labels/task/:taskId", getTaskLabels(store))
	secured.POST("/labels/task/:taskId/label/:labelId", attachLabel(store))
	secured.DELETE("/labels/task/:taskId/label/:labelId", detachLabel(store))

	secured.GET("/comments/task/:taskId", getComments(store))
	secured.POST("/comments", postComment(store))

	secured.GET("/notifications/user/:userId", getNotifications(store))
	secured.GET("/notifications/user/:userId/count-unread", getUnreadCount(store))
	secured.PUT("/notifications/:id/mark-read", markRead(store))

	admin := secured.Group("/admin", requireAdmin())
	admin.GET("/users", getUsers(store))
	admin.GET("/users/:id", getUser(store))
	admin.POST("/users", createUser(store, logger))
	admin.PUT("/users/:id", updateUser(store))
	admin.DELETE("/users/:id", deleteUser(store, logger))
	admin.PUT("/users/:id/role", setUserRole(store, logger))
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// authenticate rejects requests without a valid bearer token and stores the
// caller on the context.
func authenticate(auth *Auth) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerTokenFromHeader(c.Request().Header)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, messageResponse{Message: err.Error()})
			}
			p, err := auth.PrincipalFromBearer(token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, messageResponse{Message: err.Error()})
			}
			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// requireAdmin answers 403 to every caller without the administrator role.
func requireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !principal(c).IsAdmin() {
				return respondError(c, &domain.AuthorizationError{Status: http.StatusForbidden})
			}
			return next(c)
		}
	}
}

func principal(c echo.Context) Principal {
	p, _ := c.Get(principalKey).(Principal)
	return p
}

func login(store *Store, auth *Auth, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var creds domain.Credentials
		if err := c.Bind(&creds); err != nil {
			return err
		}
		u, err := store.Authenticate(creds.Email, creds.Password)
		if err != nil {
			logger.WithFields(log.Fields{"email": creds.Email}).Warn("devserver.login.rejected")
			return respondError(c, err)
		}
		token, _, err := auth.Issue(u)
		if err != nil {
			return respondError(c, err)
		}
		logger.WithFields(log.Fields{"user_id": u.ID, "role": u.Role}).Info("devserver.login")
		return c.JSON(http.StatusOK, domain.LoginResponse{JWT: token, UserID: u.ID, UserRole: string(u.Role)})
	}
}

func signup(store *Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var form domain.UserForm
		if err := c.Bind(&form); err != nil {
			return err
		}
		u, err := store.Signup(form)
		if err != nil {
			return respondError(c, err)
		}
		logger.WithFields(log.Fields{"user_id": u.ID}).Info("devserver.signup")
		return c.JSON(http.StatusCreated, u)
	}
}

func getKanban(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, store.Kanban())
	}
}

func getTask(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		t, err := store.Task(principal(c), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, t)
	}
}

func getHistory(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		page, size, err := pageParams(c)
		if err != nil {
			return err
		}
		entries, err := store.History(id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, paginate(entries, page, size))
	}
}

func searchTasks(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		page, size, err := pageParams(c)
		if err != nil {
			return err
		}
		q := SearchQuery{
			Title:       strings.TrimSpace(c.QueryParam("title")),
			Description: strings.TrimSpace(c.QueryParam("description")),
			Status:      domain.Status(c.QueryParam("status")),
			Priority:    domain.Priority(c.QueryParam("priority")),
		}
		for _, raw := range c.QueryParams()["labelIds"] {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid labelIds")
			}
			q.LabelIDs = append(q.LabelIDs, id)
		}
		return c.JSON(http.StatusOK, paginate(store.Search(q), page, size))
	}
}

func getAnalytics(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		a, err := store.Analytics(principal(c), c.QueryParam("timeFrame"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, a)
	}
}

func createTask(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body domain.TaskBody
		if err := c.Bind(&body); err != nil {
			return err
		}
		t, err := store.CreateTask(principal(c), body)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, t)
	}
}

func updateTask(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		var body domain.TaskBody
		if err := c.Bind(&body); err != nil {
			return err
		}
		t, err := store.UpdateTask(principal(c), id, body)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, t)
	}
}

func deleteTask(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		if err := store.DeleteTask(principal(c), id); err != nil {
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func getLabels(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		page, size, err := pageParams(c)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, paginate(store.Labels(), page, size))
	}
}

func getTaskLabels(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "taskId")
		if err != nil {
			return err
		}
		labels, err := store.TaskLabels(id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, labels)
	}
}

func attachLabel(store *Store) echo.HandlerFunc {
	return labelChange(store.AttachLabel)
}

func detachLabel(store *Store) echo.HandlerFunc {
	return labelChange(store.DetachLabel)
}

func labelChange(apply func(taskID, labelID int64) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		taskID, err := pathID(c, "taskId")
		if err != nil {
			return err
		}
		labelID, err := pathID(c, "labelId")
		if err != nil {
			return err
		}
		if err := apply(taskID, labelID); err != nil {
			return respondError(c, err)
		}
		return c.NoContent(http.StatusOK)
	}
}

func getComments(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "taskId")
		if err != nil {
			return err
		}
		page, size, err := pageParams(c)
		if err != nil {
			return err
		}
		comments, err := store.Comments(id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, paginate(comments, page, size))
	}
}

func postComment(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var nc domain.NewComment
		if err := c.Bind(&nc); err != nil {
			return err
		}
		created, err := store.PostComment(principal(c), nc)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, created)
	}
}

func getNotifications(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := pathID(c, "userId")
		if err != nil {
			return err
		}
		page, size, err := pageParams(c)
		if err != nil {
			return err
		}
		items, err := store.Notifications(principal(c), userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, paginate(items, page, size))
	}
}

func getUnreadCount(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := pathID(c, "userId")
		if err != nil {
			return err
		}
		n, err := store.UnreadCount(principal(c), userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, n)
	}
}

func markRead(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		n, err := store.MarkRead(principal(c), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, n)
	}
}

func getUsers(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		page, size, err := pageParams(c)
		if err != nil {
			return err
		}
		var role domain.Role
		if raw := c.QueryParam("role"); raw != "" {
			r, ok := domain.ParseRole(raw)
			if !ok {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid role")
			}
			role = r
		}
		return c.JSON(http.StatusOK, paginate(store.Users(c.QueryParam("search"), role), page, size))
	}
}

func getUser(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		u, err := store.User(id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, u)
	}
}

func createUser(store *Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var form domain.UserForm
		if err := c.Bind(&form); err != nil {
			return err
		}
		u, err := store.CreateUser(principal(c), form)
		if err != nil {
			return respondError(c, err)
		}
		logger.WithFields(log.Fields{"user_id": u.ID, "by": principal(c).UserID}).Info("devserver.user.created")
		return c.JSON(http.StatusCreated, u)
	}
}

func updateUser(store *Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		var form domain.UserForm
		if err := c.Bind(&form); err != nil {
			return err
		}
		u, err := store.UpdateUser(principal(c), id, form)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, u)
	}
}

func deleteUser(store *Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		if err := store.DeleteUser(principal(c), id); err != nil {
			return respondError(c, err)
		}
		logger.WithFields(log.Fields{"user_id": id, "by": principal(c).UserID}).Info("devserver.user.deleted")
		return c.NoContent(http.StatusNoContent)
	}
}

// setUserRole reads a bare JSON string such as "ADMIN" as the body.
func setUserRole(store *Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		var raw string
		if err := c.Echo().JSONSerializer.Deserialize(c, &raw); err != nil {
			return err
		}
		role, ok := domain.ParseRole(raw)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid role")
		}
		u, err := store.SetRole(principal(c), id, role)
		if err != nil {
			return respondError(c, err)
		}
		logger.WithFields(log.Fields{"user_id": id, "role": role}).Info("devserver.user.role")
		return c.JSON(http.StatusOK, u)
	}
}

// respondError maps store errors onto status codes with a {"message"} body.
func respondError(c echo.Context, err error) error {
	var (
		verr *domain.ValidationError
		aerr *domain.AuthorizationError
		nerr *domain.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, messageResponse{Message: verr.Error()})
	case errors.As(err, &aerr):
		status, msg := aerr.Status, aerr.Message
		if status == 0 {
			status = http.StatusForbidden
		}
		if msg == "" {
			msg = domain.RightsMessage
		}
		return c.JSON(status, messageResponse{Message: msg})
	case errors.As(err, &nerr):
		msg := nerr.Message
		if msg == "" {
			msg = nerr.Error()
		}
		return c.JSON(http.StatusNotFound, messageResponse{Message: msg})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, messageResponse{Message: err.Error()})
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func pageParams(c echo.Context) (page, size int, err error) {
	page, size = 0, 10
	if raw := strings.TrimSpace(c.QueryParam("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 0 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid page")
		}
	}
	if raw := strings.TrimSpace(c.QueryParam("size")); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid page size")
		}
	}
	return page, size, nil
}

func paginate[T any](items []T, page, size int) domain.Page[T] {
	total := len(items)
	start := min(page*size, total)
	end := min(start+size, total)
	content := make([]T, 0, end-start)
	content = append(content, items[start:end]...)
	return domain.Page[T]{
		Content:       content,
		TotalPages:    (total + size - 1) / size,
		TotalElements: int64(total),
		Number:        page,
		Size:          size,
	}
}

// requestLogger emits one structured entry per request.
func requestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			status := c.Response().Status
			entry := logger.WithFields(log.Fields{
				"method":     c.Request().Method,
				"route":      c.Path(),
				"status":     status,
				"total_ms":   float64(time.Since(start).Microseconds()) / 1000,
				"request_id": c.Request().Header.Get("X-Request-ID"),
			})
			switch {
			case status >= http.StatusInternalServerError:
				entry.Error("devserver.request")
			case status >= http.StatusBadRequest:
				entry.Info("devserver.request")
			default:
				entry.Debug("devserver.request")
			}
			return nil
		}
	}
}
