package client

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"

	"taskdeck/domain"
)

const maxPlainMessage = 512

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// classify maps a non-2xx response onto the error taxonomy.
func classify(status int, body []byte) error {
	msg := messageFromBody(body)
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &domain.AuthorizationError{Status: status, Message: msg}
	case http.StatusNotFound:
		return &domain.NotFoundError{Message: msg}
	}
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", status)
	}
	return &domain.ServerError{Status: status, Message: msg}
}

// messageFromBody extracts the service message from a JSON error document or
// a short plain text body.
func messageFromBody(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	if trimmed[0] == '{' {
		var eb errorBody
		if err := sonic.Unmarshal(trimmed, &eb); err == nil {
			if m := strings.TrimSpace(eb.Message); m != "" {
				return m
			}
			return strings.TrimSpace(eb.Error)
		}
		return ""
	}
	if trimmed[0] == '<' || len(trimmed) > maxPlainMessage {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := sonic.Unmarshal(trimmed, &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	return string(trimmed)
}

// tagNotFound fills in the resource and id of a NotFoundError produced by classify.
func tagNotFound(err error, resource string, id int64) error {
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		nf.Resource = resource
		nf.ID = id
	}
	return err
}
