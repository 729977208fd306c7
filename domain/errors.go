package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSession is returned when an operation needs an identity and none is stored.
	ErrNoSession = errors.New("not logged in")
	// ErrEmptyComment rejects comments whose body is blank.
	ErrEmptyComment = errors.New("comment is empty")
	// ErrEmailTaken rejects an account whose email already belongs to another one.
	ErrEmailTaken = errors.New("email already taken")
	// ErrLastAdmin rejects demoting or deleting the only administrator.
	ErrLastAdmin = errors.New("cannot remove the last admin user")
)

// RightsMessage is shown when the service rejects an operation for lack of rights.
const RightsMessage = "Vous n'avez pas les droits nécessaires ou l'utilisateur assigné n'existe pas."

// ValidationError reports required fields that are missing or invalid. It is
// raised before any request is made.
type ValidationError struct {
	Fields []string
	Err    error
}

func (e *ValidationError) Error() string {
	switch {
	case len(e.Fields) == 0 && e.Err != nil:
		return "validation: " + e.Err.Error()
	case e.Err != nil:
		return "validation: " + strings.Join(e.Fields, ", ") + ": " + e.Err.Error()
	}
	return "validation: missing or invalid " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error { return e.Err }

// AuthorizationError reports a role or ownership rejection, either from the
// service (401/403) or from a local check.
type AuthorizationError struct {
	Status  int
	Message string
}

func (e *AuthorizationError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = RightsMessage
	}
	if e.Status == 0 {
		return "forbidden: " + msg
	}
	return fmt.Sprintf("forbidden (%d): %s", e.Status, msg)
}

// NotFoundError reports a resource that no longer exists.
type NotFoundError struct {
	Resource string
	ID       int64
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
	}
	if e.Message != "" {
		return "not found: " + e.Message
	}
	return e.Resource + " not found"
}

// NetworkError wraps a request that could not complete.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return "network: " + e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is any other non-2xx response.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

// IsAuthorization reports whether err is an AuthorizationError.
func IsAuthorization(err error) bool {
	var target *AuthorizationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
