package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"taskdeck/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *test.Hook) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	return New(srv.URL+"/api", "token-abc", 5*time.Second, logger), hook
}

func TestGetJSONSendsHeaders(t *testing.T) {
	var gotAuth, gotReqID, gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get(headerRequestID)
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `{"id":3,"title":"Write docs","status":"EN COURS","priority":"HIGH","assignedToId":42}`)
	})

	task, err := c.Task(context.Background(), 3)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if gotAuth != "Bearer token-abc" {
		t.Fatalf("unexpected authorization header: %q", gotAuth)
	}
	if gotReqID == "" {
		t.Fatalf("expected request id header")
	}
	if gotPath != "/api/tasks/3" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if task.ID != 3 || task.Status != domain.StatusInProgress || !task.AssignedTo(42) {
		t.Fatalf("unexpected task: %#v", task)
	}
}

func TestPostJSONEncodesBody(t *testing.T) {
	var got domain.TaskBody
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		data, _ := io.ReadAll(r.Body)
		if err := sonic.Unmarshal(data, &got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":11,"title":"t"}`)
	})

	task, err := c.CreateTask(context.Background(), domain.TaskBody{Title: "t", Description: "d", Status: domain.StatusTodo, Priority: domain.PriorityLow})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID != 11 || got.Title != "t" || got.Priority != domain.PriorityLow {
		t.Fatalf("unexpected round trip: task=%#v body=%#v", task, got)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		check   func(error) bool
		message string
	}{
		{
			name:    "forbiddenPlain",
			status:  http.StatusForbidden,
			body:    domain.RightsMessage,
			check:   domain.IsAuthorization,
			message: domain.RightsMessage,
		},
		{
			name:    "forbiddenJSON",
			status:  http.StatusForbidden,
			body:    `{"status":403,"error":"Forbidden","message":"Vous ne pouvez commenter que vos propres tâches"}`,
			check:   domain.IsAuthorization,
			message: "Vous ne pouvez commenter que vos propres tâches",
		},
		{
			name:    "notFound",
			status:  http.StatusNotFound,
			body:    `{"message":"Tâche non trouvée"}`,
			check:   domain.IsNotFound,
			message: "task 9 not found",
		},
		{
			name:   "serverJSON",
			status: http.StatusBadRequest,
			body:   `{"message":"Titre requis"}`,
			check: func(err error) bool {
				var se *domain.ServerError
				return errors.As(err, &se) && se.Message == "Titre requis" && se.Status == http.StatusBadRequest
			},
			message: "Titre requis",
		},
		{
			name:   "serverFallback",
			status: http.StatusBadGateway,
			body:   "<html>bad gateway</html>",
			check: func(err error) bool {
				var se *domain.ServerError
				return errors.As(err, &se)
			},
			message: "request failed with status 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.Task(context.Background(), 9)
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error: %#v", err)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Fatalf("error %q does not contain %q", err.Error(), tt.message)
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(base, "", time.Second, nil)
	_, err := c.Kanban(context.Background())
	var ne *domain.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestUnreadCountDecodesBareInteger(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/notifications/user/42/count-unread" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, "3")
	})
	n, err := c.UnreadCount(context.Background(), 42)
	if err != nil || n != 3 {
		t.Fatalf("unexpected count: %d, %v", n, err)
	}
}

func TestSearchTasksQuery(t *testing.T) {
	var query string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"content":[],"totalPages":0}`)
	})
	_, err := c.SearchTasks(context.Background(), SearchCriteria{Title: "doc", Priority: domain.PriorityHigh, LabelIDs: []int64{1, 2}, Size: 20})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, want := range []string{"title=doc", "priority=HIGH", "labelIds=1", "labelIds=2", "size=20", "page=0"} {
		if !strings.Contains(query, want) {
			t.Fatalf("query %q missing %q", query, want)
		}
	}
}

func TestRequestProducesSpanAndLogEntry(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	c, hook := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"message":"boom"}`)
	})
	if err := c.DeleteTask(context.Background(), 5); err == nil {
		t.Fatalf("expected error")
	}

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatalf("expected log entry")
	}
	if entry.Message != requestEventName || entry.Level != log.ErrorLevel {
		t.Fatalf("unexpected entry: %s at %s", entry.Message, entry.Level)
	}
	if entry.Data["route"] != "/tasks/{id}" || entry.Data["status"] != http.StatusInternalServerError {
		t.Fatalf("unexpected fields: %#v", entry.Data)
	}
	if entry.Data["error_stage"] != "status" {
		t.Fatalf("unexpected error stage: %#v", entry.Data["error_stage"])
	}
	if id, ok := entry.Data["trace_id"].(string); !ok || id == "" {
		t.Fatalf("expected trace id, got %#v", entry.Data["trace_id"])
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != requestSpanName {
		t.Fatalf("unexpected span name: %s", span.Name)
	}
	if span.Status.Code != codes.Error {
		t.Fatalf("expected error status, got %v", span.Status.Code)
	}
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes {
		attrs[kv.Key] = kv.Value
	}
	if attrs["http.method"].AsString() != http.MethodDelete {
		t.Fatalf("unexpected method attribute: %v", attrs["http.method"])
	}
	if attrs["http.status_code"].AsInt64() != http.StatusInternalServerError {
		t.Fatalf("unexpected status attribute: %v", attrs["http.status_code"])
	}
}

func TestLevelForStatus(t *testing.T) {
	tests := []struct {
		status int
		err    error
		want   log.Level
	}{
		{status: http.StatusOK, want: log.DebugLevel},
		{status: http.StatusForbidden, err: errors.New("x"), want: log.WarnLevel},
		{status: http.StatusServiceUnavailable, err: errors.New("x"), want: log.ErrorLevel},
		{status: 0, err: errors.New("dial"), want: log.ErrorLevel},
	}
	for _, tt := range tests {
		if got := levelForStatus(tt.status, tt.err); got != tt.want {
			t.Fatalf("levelForStatus(%d, %v) = %s, want %s", tt.status, tt.err, got, tt.want)
		}
	}
}
