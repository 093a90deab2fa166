package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TimurManjosov/abconsole/internal/model"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeAPI serves canned experiments. Calls for ids present in gates block
// until the gate is closed.
type fakeAPI struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	err   error
	calls atomic.Int32
}

func (f *fakeAPI) wait(ctx context.Context, id string) error {
	f.calls.Add(1)
	f.mu.Lock()
	gate := f.gates[id]
	err := f.err
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			// keep going so late results still reach the loader
		}
		<-gate
	}
	return err
}

func (f *fakeAPI) ListExperiments(ctx context.Context) ([]model.Experiment, error) {
	if err := f.wait(ctx, "list"); err != nil {
		return nil, err
	}
	return []model.Experiment{{ID: "e1", Name: "One"}, {ID: "e2", Name: "Two"}}, nil
}

func (f *fakeAPI) GetExperiment(ctx context.Context, id string) (*model.Experiment, error) {
	if err := f.wait(ctx, id); err != nil {
		return nil, err
	}
	return &model.Experiment{ID: id, Name: "Experiment " + id}, nil
}

func (f *fakeAPI) GetExperimentStats(ctx context.Context, id string) (*model.ExperimentStats, error) {
	if err := f.wait(ctx, id); err != nil {
		return nil, err
	}
	st := &model.ExperimentStats{
		ExperimentID: id,
		Variants:     []model.VariantStats{{VariantKey: "a", Views: 100, Clicks: 20, Conversions: 5}},
	}
	st.Normalize()
	return st, nil
}

func (f *fakeAPI) GetAssignment(ctx context.Context, experimentID, userID string) (*model.Assignment, error) {
	if err := f.wait(ctx, experimentID); err != nil {
		return nil, err
	}
	if userID == "new" {
		return nil, nil
	}
	return &model.Assignment{ExperimentID: experimentID, UserID: userID, VariantKey: "a"}, nil
}

func TestExperimentsLoader_InitialState(t *testing.T) {
	l := NewExperimentsLoader(&fakeAPI{})
	st := l.State()
	if !st.Loading {
		t.Error("Expected list loader to start loading")
	}
	if st.Err != "" || st.Data != nil {
		t.Errorf("Expected empty initial state, got %+v", st)
	}
}

func TestExperimentsLoader_FetchSuccess(t *testing.T) {
	l := NewExperimentsLoader(&fakeAPI{})
	st := l.Fetch(context.Background())
	if st.Loading {
		t.Error("Expected loading=false after fetch")
	}
	if len(st.Data) != 2 {
		t.Errorf("Expected 2 experiments, got %d", len(st.Data))
	}
}

func TestExperimentsLoader_FetchErrorThenRefetch(t *testing.T) {
	api := &fakeAPI{err: errors.New("API error (status 500): boom")}
	l := NewExperimentsLoader(api)

	st := l.Fetch(context.Background())
	if st.Loading {
		t.Error("Expected loading=false after failure")
	}
	if st.Err != "API error (status 500): boom" {
		t.Errorf("Expected error message kept, got %q", st.Err)
	}

	api.mu.Lock()
	api.err = nil
	api.mu.Unlock()

	st = l.Fetch(context.Background())
	if st.Err != "" {
		t.Errorf("Expected error cleared on refetch, got %q", st.Err)
	}
	if len(st.Data) != 2 {
		t.Errorf("Expected data after refetch, got %d", len(st.Data))
	}
}

func TestResource_FallbackMessage(t *testing.T) {
	r := NewResource[int]("test", "Failed to load", false, func(context.Context) (int, error) {
		return 0, errors.New("")
	})
	if st := r.Fetch(context.Background()); st.Err != "Failed to load" {
		t.Errorf("Expected fallback message, got %q", st.Err)
	}
}

func TestResource_LoadingTrueOnlyWhileInFlight(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{gates: map[string]chan struct{}{"list": gate}}
	l := NewExperimentsLoader(api)

	done := make(chan State[[]model.Experiment])
	go func() { done <- l.Fetch(context.Background()) }()

	waitFor(t, func() bool { return api.calls.Load() == 1 })
	if !l.State().Loading {
		t.Error("Expected loading=true while request is in flight")
	}

	close(gate)
	st := <-done
	if st.Loading || l.State().Loading {
		t.Error("Expected loading=false once the request completed")
	}
}

func TestResource_LoadingResetOnPanic(t *testing.T) {
	r := NewResource[int]("test", "Failed to load", false, func(context.Context) (int, error) {
		panic("boom")
	})

	func() {
		defer func() { _ = recover() }()
		r.Fetch(context.Background())
	}()

	st := r.State()
	if st.Loading {
		t.Error("Expected loading reset after panic")
	}
	if st.Err != "Failed to load" {
		t.Errorf("Expected fallback error after panic, got %q", st.Err)
	}
}

func TestKeyed_EmptyKeyNeverFetches(t *testing.T) {
	api := &fakeAPI{}
	detail := NewExperimentDetailLoader(api)
	metrics := NewExperimentMetricsLoader(api)

	detail.Fetch(context.Background())
	metrics.Fetch(context.Background())
	detail.SetKey(context.Background(), "")

	if n := api.calls.Load(); n != 0 {
		t.Errorf("Expected no requests with empty id, got %d", n)
	}
	if !detail.State().Loading {
		t.Error("Expected detail loader to remain in its initial loading state")
	}
	if metrics.State().Loading {
		t.Error("Expected metrics loader to start idle")
	}
}

func TestKeyed_RefetchesOnlyOnChange(t *testing.T) {
	api := &fakeAPI{}
	l := NewExperimentMetricsLoader(api)
	ctx := context.Background()

	l.SetKey(ctx, "e1")
	l.SetKey(ctx, "e1")
	if n := api.calls.Load(); n != 1 {
		t.Errorf("Expected 1 request for unchanged id, got %d", n)
	}

	st := l.SetKey(ctx, "e2")
	if n := api.calls.Load(); n != 2 {
		t.Errorf("Expected refetch on id change, got %d requests", n)
	}
	if st.Data == nil || st.Data.ExperimentID != "e2" {
		t.Errorf("Expected stats for e2, got %+v", st.Data)
	}
}

func TestMetricsLoader_ConversionRate(t *testing.T) {
	l := NewExperimentMetricsLoader(&fakeAPI{})
	st := l.SetKey(context.Background(), "e1")
	if st.Data.Variants[0].ConversionRate != 0.05 || st.Data.Totals.ConversionRate != 0.05 {
		t.Errorf("Expected 0.05 rates, got %+v", st.Data)
	}
}

func TestDetailLoader_LoadsExperimentAndStats(t *testing.T) {
	api := &fakeAPI{}
	l := NewExperimentDetailLoader(api)

	st := l.SetKey(context.Background(), "e1")
	if st.Err != "" {
		t.Fatalf("Unexpected error: %s", st.Err)
	}
	if st.Data.Experiment == nil || st.Data.Stats == nil {
		t.Fatalf("Expected experiment and stats, got %+v", st.Data)
	}
	if n := api.calls.Load(); n != 2 {
		t.Errorf("Expected 2 concurrent requests, got %d", n)
	}
}

func TestDetailLoader_ErrorKeepsPreviousData(t *testing.T) {
	api := &fakeAPI{}
	l := NewExperimentDetailLoader(api)
	ctx := context.Background()
	l.SetKey(ctx, "e1")

	api.mu.Lock()
	api.err = errors.New("request failed: connection refused")
	api.mu.Unlock()

	st := l.SetKey(ctx, "e2")
	if st.Err != "request failed: connection refused" {
		t.Errorf("Expected error message, got %q", st.Err)
	}
	if st.Data.Experiment == nil || st.Data.Experiment.ID != "e1" {
		t.Errorf("Expected previous data kept, got %+v", st.Data.Experiment)
	}
}

// A slow response for an old id must not overwrite the newer id's data.
func TestDetailLoader_StaleResponseDiscarded(t *testing.T) {
	slow := make(chan struct{})
	api := &fakeAPI{gates: map[string]chan struct{}{"e1": slow}}
	l := NewExperimentDetailLoader(api)
	ctx := context.Background()

	first := make(chan State[Detail])
	go func() { first <- l.SetKey(ctx, "e1") }()
	waitFor(t, func() bool { return api.calls.Load() == 2 })

	st := l.SetKey(ctx, "e2")
	if st.Loading || st.Data.Experiment == nil || st.Data.Experiment.ID != "e2" {
		t.Fatalf("Expected e2 committed, got %+v", st)
	}

	close(slow)
	<-first

	final := l.State()
	if final.Data.Experiment.ID != "e2" {
		t.Errorf("Stale e1 response overwrote state: got %s", final.Data.Experiment.ID)
	}
	if final.Loading {
		t.Error("Expected loading=false")
	}
}

// A fetch that read its key before a newer SetKey completed must not commit.
func TestKeyed_KeyChangedBeforeFetchStarts(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	ready := func(k string) bool {
		if k == "A" {
			close(entered)
			<-release
		}
		return k != ""
	}
	var loaded []string
	var mu sync.Mutex
	k := NewKeyed[string, string]("test", "Failed to load", false, ready,
		func(ctx context.Context, key string) (string, error) {
			mu.Lock()
			loaded = append(loaded, key)
			mu.Unlock()
			return key, nil
		})
	ctx := context.Background()

	first := make(chan State[string])
	go func() { first <- k.SetKey(ctx, "A") }()
	<-entered

	if st := k.SetKey(ctx, "B"); st.Data != "B" {
		t.Fatalf("Expected B committed, got %+v", st)
	}
	close(release)
	<-first

	st := k.State()
	if k.Key() != "B" || st.Data != "B" {
		t.Errorf("Expected key and data B, got key=%q data=%q", k.Key(), st.Data)
	}
	if st.Loading {
		t.Error("Expected loading=false")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(loaded) != 1 || loaded[0] != "B" {
		t.Errorf("Expected only B to be loaded, got %v", loaded)
	}
}

func TestAssignmentLoader(t *testing.T) {
	api := &fakeAPI{}
	l := NewAssignmentLoader(api)
	ctx := context.Background()

	l.SetKey(ctx, AssignmentKey{ExperimentID: "e1"})
	if api.calls.Load() != 0 {
		t.Error("Expected no request without user id")
	}

	st := l.SetKey(ctx, AssignmentKey{ExperimentID: "e1", UserID: "new"})
	if st.Err != "" || st.Data != nil {
		t.Errorf("Expected unassigned user to yield nil without error, got %+v", st)
	}

	st = l.SetKey(ctx, AssignmentKey{ExperimentID: "e1", UserID: "u1"})
	if st.Data == nil || st.Data.VariantKey != "a" {
		t.Errorf("Expected variant a, got %+v", st.Data)
	}
}

func TestSubscribe_ReceivesTransitions(t *testing.T) {
	l := NewExperimentMetricsLoader(&fakeAPI{})
	ch, unsub := l.Subscribe()
	defer unsub()

	l.SetKey(context.Background(), "e1")

	// the buffer holds only the latest state
	select {
	case st := <-ch:
		if st.Loading || st.Data == nil {
			t.Errorf("Expected the committed state, got %+v", st)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected a state notification")
	}

	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Error("Expected channel closed after unsubscribe")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
