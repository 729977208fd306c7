package labels

import (
	"context"
	"fmt"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// API is the pair of single-label endpoints the reconciler drives.
type API interface {
	AttachLabel(ctx context.Context, taskID, labelID int64) error
	DetachLabel(ctx context.Context, taskID, labelID int64) error
}

// Diff returns the ids to attach (desired minus previous) and to detach
// (previous minus desired). Duplicates collapse; first-seen order is kept.
func Diff(previous, desired []int64) (toAttach, toDetach []int64) {
	prev := toSet(previous)
	want := toSet(desired)
	for _, id := range unique(desired) {
		if _, ok := prev[id]; !ok {
			toAttach = append(toAttach, id)
		}
	}
	for _, id := range unique(previous) {
		if _, ok := want[id]; !ok {
			toDetach = append(toDetach, id)
		}
	}
	return toAttach, toDetach
}

// Result describes what a reconciliation did. Id slices are sorted.
type Result struct {
	TaskID       int64
	Attached     []int64
	Detached     []int64
	FailedAttach []int64
	FailedDetach []int64
	Errors       map[int64]error
}

// Calls is the number of requests issued.
func (r Result) Calls() int {
	return len(r.Attached) + len(r.Detached) + len(r.FailedAttach) + len(r.FailedDetach)
}

// Failed reports whether any sub-operation failed.
func (r Result) Failed() bool {
	return len(r.FailedAttach)+len(r.FailedDetach) > 0
}

// Err returns a *PartialError when some sub-operation failed, nil otherwise.
func (r Result) Err() error {
	if !r.Failed() {
		return nil
	}
	return &PartialError{TaskID: r.TaskID, Attach: r.FailedAttach, Detach: r.FailedDetach, Errors: r.Errors}
}

// PartialError lists the label ids whose attach or detach failed. The others
// were applied and stay applied.
type PartialError struct {
	TaskID int64
	Attach []int64
	Detach []int64
	Errors map[int64]error
}

func (e *PartialError) Error() string {
	msg := fmt.Sprintf("labels of task %d:", e.TaskID)
	if len(e.Attach) > 0 {
		msg += fmt.Sprintf(" attach failed for %v", e.Attach)
	}
	if len(e.Detach) > 0 {
		if len(e.Attach) > 0 {
			msg += ";"
		}
		msg += fmt.Sprintf(" detach failed for %v", e.Detach)
	}
	return msg
}

// Unwrap exposes the underlying failures to errors.Is and errors.As.
func (e *PartialError) Unwrap() []error {
	ids := make([]int64, 0, len(e.Errors))
	for id := range e.Errors {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]error, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.Errors[id])
	}
	return out
}

// Reconciler moves a task's label set to a desired state with one request per
// changed label.
type Reconciler struct {
	api     API
	workers int
	logger  *log.Logger
}

// NewReconciler bounds concurrent requests by workers.
func NewReconciler(api API, workers int, logger *log.Logger) *Reconciler {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Reconciler{api: api, workers: workers, logger: logger}
}

// Reconcile attaches desired-previous and detaches previous-desired. Every call
// is independent: a failure neither cancels nor rolls back the others. It
// returns once all calls have completed. Equal sets issue no request.
func (r *Reconciler) Reconcile(ctx context.Context, taskID int64, previous, desired []int64) Result {
	res := Result{TaskID: taskID}
	toAttach, toDetach := Diff(previous, desired)
	if len(toAttach) == 0 && len(toDetach) == 0 {
		return res
	}

	var mu sync.Mutex
	record := func(attach bool, id int64, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil && attach:
			res.FailedAttach = append(res.FailedAttach, id)
		case err != nil:
			res.FailedDetach = append(res.FailedDetach, id)
		case attach:
			res.Attached = append(res.Attached, id)
		default:
			res.Detached = append(res.Detached, id)
		}
		if err != nil {
			if res.Errors == nil {
				res.Errors = make(map[int64]error)
			}
			res.Errors[id] = err
		}
	}

	// Plain group, not WithContext: one failure must not cancel the siblings.
	var g errgroup.Group
	g.SetLimit(r.workers)
	for _, id := range toAttach {
		g.Go(func() error {
			record(true, id, r.api.AttachLabel(ctx, taskID, id))
			return nil
		})
	}
	for _, id := range toDetach {
		g.Go(func() error {
			record(false, id, r.api.DetachLabel(ctx, taskID, id))
			return nil
		})
	}
	_ = g.Wait()

	slices.Sort(res.Attached)
	slices.Sort(res.Detached)
	slices.Sort(res.FailedAttach)
	slices.Sort(res.FailedDetach)

	fields := log.Fields{
		"task_id":  taskID,
		"attached": len(res.Attached),
		"detached": len(res.Detached),
	}
	if res.Failed() {
		fields["failed_attach"] = res.FailedAttach
		fields["failed_detach"] = res.FailedDetach
		r.logger.WithFields(fields).Warn("labels.reconcile.partial")
	} else {
		r.logger.WithFields(fields).Debug("labels.reconcile")
	}
	return res
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func unique(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
