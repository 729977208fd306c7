package labels

import (
	"context"
	"errors"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"taskdeck/domain"
)

type call struct {
	attach  bool
	taskID  int64
	labelID int64
}

type mockAPI struct {
	mu       sync.Mutex
	calls    []call
	fail     map[int64]error
	delay    time.Duration
	inflight atomic.Int32
	peak     atomic.Int32
}

func (m *mockAPI) do(attach bool, taskID, labelID int64) error {
	n := m.inflight.Add(1)
	defer m.inflight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	m.calls = append(m.calls, call{attach: attach, taskID: taskID, labelID: labelID})
	m.mu.Unlock()
	return m.fail[labelID]
}

func (m *mockAPI) AttachLabel(ctx context.Context, taskID, labelID int64) error {
	return m.do(true, taskID, labelID)
}

func (m *mockAPI) DetachLabel(ctx context.Context, taskID, labelID int64) error {
	return m.do(false, taskID, labelID)
}

func (m *mockAPI) split() (attached, detached []int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c.attach {
			attached = append(attached, c.labelID)
		} else {
			detached = append(detached, c.labelID)
		}
	}
	slices.Sort(attached)
	slices.Sort(detached)
	return attached, detached
}

const (
	labelA int64 = 1
	labelB int64 = 2
	labelC int64 = 3
)

func TestReconcileSwapsOnlyChangedLabels(t *testing.T) {
	api := &mockAPI{}
	r := NewReconciler(api, 4, nil)

	res := r.Reconcile(context.Background(), 10, []int64{labelA, labelB}, []int64{labelB, labelC})

	attached, detached := api.split()
	if !slices.Equal(attached, []int64{labelC}) || !slices.Equal(detached, []int64{labelA}) {
		t.Fatalf("unexpected calls: attach=%v detach=%v", attached, detached)
	}
	for _, c := range api.calls {
		if c.labelID == labelB {
			t.Fatalf("label B must not be touched")
		}
		if c.taskID != 10 {
			t.Fatalf("unexpected task id %d", c.taskID)
		}
	}
	if res.Failed() || res.Calls() != 2 || res.Err() != nil {
		t.Fatalf("unexpected result: %#v", res)
	}
}

func TestReconcileEqualSetsIssueNoCalls(t *testing.T) {
	api := &mockAPI{}
	r := NewReconciler(api, 4, nil)

	res := r.Reconcile(context.Background(), 10, []int64{labelA, labelB, labelB}, []int64{labelB, labelA})
	if len(api.calls) != 0 || res.Calls() != 0 {
		t.Fatalf("expected no calls, got %v", api.calls)
	}
}

func TestReconcileReportsPartialFailure(t *testing.T) {
	denied := &domain.AuthorizationError{Status: 403}
	api := &mockAPI{fail: map[int64]error{labelC: denied, 5: errors.New("boom")}}
	r := NewReconciler(api, 2, nil)

	res := r.Reconcile(context.Background(), 10, []int64{labelA, 5}, []int64{labelB, labelC})

	if len(api.calls) != 4 {
		t.Fatalf("every sub-operation must run, got %d calls", len(api.calls))
	}
	if !slices.Equal(res.Attached, []int64{labelB}) || !slices.Equal(res.Detached, []int64{labelA}) {
		t.Fatalf("unexpected successes: %#v", res)
	}
	if !slices.Equal(res.FailedAttach, []int64{labelC}) || !slices.Equal(res.FailedDetach, []int64{5}) {
		t.Fatalf("unexpected failures: %#v", res)
	}

	err := res.Err()
	var perr *PartialError
	if !errors.As(err, &perr) {
		t.Fatalf("expected partial error, got %v", err)
	}
	if perr.TaskID != 10 {
		t.Fatalf("unexpected task id: %d", perr.TaskID)
	}
	if !domain.IsAuthorization(err) {
		t.Fatalf("expected wrapped authorization error to be reachable")
	}
}

func TestReconcileRespectsWorkerLimit(t *testing.T) {
	api := &mockAPI{delay: 10 * time.Millisecond}
	r := NewReconciler(api, 2, nil)

	r.Reconcile(context.Background(), 1, nil, []int64{1, 2, 3, 4, 5, 6})

	if peak := api.peak.Load(); peak > 2 {
		t.Fatalf("expected at most 2 concurrent calls, got %d", peak)
	}
	if len(api.calls) != 6 {
		t.Fatalf("expected 6 calls, got %d", len(api.calls))
	}
}

func TestDiffMinimality(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		prev := randomIDs(rng)
		want := randomIDs(rng)

		toAttach, toDetach := Diff(prev, want)

		prevSet, wantSet := toSet(prev), toSet(want)
		expAttach, expDetach := 0, 0
		for id := range wantSet {
			if _, ok := prevSet[id]; !ok {
				expAttach++
			}
		}
		for id := range prevSet {
			if _, ok := wantSet[id]; !ok {
				expDetach++
			}
		}
		if len(toAttach) != expAttach || len(toDetach) != expDetach {
			t.Fatalf("prev=%v want=%v: attach=%v detach=%v", prev, want, toAttach, toDetach)
		}
		for _, id := range toAttach {
			if _, ok := prevSet[id]; ok {
				t.Fatalf("attach of already present id %d", id)
			}
		}
		for _, id := range toDetach {
			if _, ok := wantSet[id]; ok {
				t.Fatalf("detach of desired id %d", id)
			}
		}

		api := &mockAPI{}
		NewReconciler(api, 3, nil).Reconcile(context.Background(), 1, prev, want)
		if len(api.calls) != expAttach+expDetach {
			t.Fatalf("expected %d calls, got %d", expAttach+expDetach, len(api.calls))
		}
	}
}

func TestDiffKeepsFirstSeenOrder(t *testing.T) {
	toAttach, toDetach := Diff([]int64{9, 4, 9}, []int64{7, 3, 7, 4})
	if !slices.Equal(toAttach, []int64{7, 3}) || !slices.Equal(toDetach, []int64{9}) {
		t.Fatalf("unexpected diff: %v %v", toAttach, toDetach)
	}
}

func randomIDs(rng *rand.Rand) []int64 {
	n := rng.Intn(6)
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(rng.Intn(8) + 1)
	}
	return out
}
