package domain

import (
	"strings"

	"github.com/bytedance/sonic"
)

// Comment belongs to a task and optionally replies to another comment of the
// same task.
type Comment struct {
	ID            int64      `json:"id"`
	TaskID        int64      `json:"taskId"`
	ParentID      *int64     `json:"parentId,omitempty"`
	Content       string     `json:"content"`
	CreatedByID   int64      `json:"createdById,omitempty"`
	CreatedByName string     `json:"createdByName,omitempty"`
	CreatedAt     *LocalTime `json:"createdAt,omitempty"`
}

// IsRoot reports whether the comment starts a thread.
func (c Comment) IsRoot() bool { return c.ParentID == nil }

// NewComment is the body of POST /comments.
type NewComment struct {
	Content  string `json:"content"`
	TaskID   int64  `json:"taskId"`
	ParentID *int64 `json:"parentId,omitempty"`
}

// Notification is addressed to a single user.
type Notification struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"userId"`
	Message   string     `json:"message"`
	TaskID    *int64     `json:"taskId,omitempty"`
	TaskTitle string     `json:"taskTitle,omitempty"`
	Read      bool       `json:"read"`
	CreatedAt *LocalTime `json:"createdAt,omitempty"`
}

type notificationWire struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"userId"`
	Message   string     `json:"message"`
	TaskID    *int64     `json:"taskId,omitempty"`
	TaskTitle string     `json:"taskTitle,omitempty"`
	Read      *bool      `json:"read,omitempty"`
	IsRead    *bool      `json:"isRead,omitempty"`
	CreatedAt *LocalTime `json:"createdAt,omitempty"`
}

// UnmarshalJSON accepts both "read" and "isRead" for the read flag.
func (n *Notification) UnmarshalJSON(data []byte) error {
	var w notificationWire
	if err := sonic.Unmarshal(data, &w); err != nil {
		return err
	}
	*n = Notification{
		ID:        w.ID,
		UserID:    w.UserID,
		Message:   w.Message,
		TaskID:    w.TaskID,
		TaskTitle: w.TaskTitle,
		CreatedAt: w.CreatedAt,
	}
	if w.Read != nil {
		n.Read = *w.Read
	}
	if w.IsRead != nil {
		n.Read = n.Read || *w.IsRead
	}
	return nil
}

// User is an account of the service.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
}

// Name is the display name of the user.
func (u User) Name() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return u.Email
	case u.LastName == "":
		return u.FirstName
	case u.FirstName == "":
		return u.LastName
	}
	return u.FirstName + " " + u.LastName
}

// UserForm is the body of POST /auth/signup, POST /admin/users and
// PUT /admin/users/{id}. An empty password on update keeps the current one.
type UserForm struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password,omitempty"`
}

// FormFrom copies the editable fields of u. The password is left blank.
func FormFrom(u User) UserForm {
	return UserForm{FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

// Normalize trims the names and lower-cases the email.
func (f UserForm) Normalize() UserForm {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	return f
}

// Validate reports missing fields. withPassword requires a password, as on
// signup and account creation.
func (f UserForm) Validate(withPassword bool) error {
	f = f.Normalize()
	var missing []string
	if f.FirstName == "" {
		missing = append(missing, "firstName")
	}
	if at := strings.Index(f.Email, "@"); at <= 0 || at == len(f.Email)-1 {
		missing = append(missing, "email")
	}
	if withPassword && strings.TrimSpace(f.Password) == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// Credentials is the body of POST /auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	JWT      string `json:"jwt"`
	UserID   int64  `json:"userId"`
	UserRole string `json:"userRole"`
}
