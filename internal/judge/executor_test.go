package judge_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"gide/internal/judge"
	appErr "gide/pkg/errors"
)

type scriptedJudge struct {
	mu        sync.Mutex
	submitErr error
	results   []judge.Result
	fetches   int
	submitted chan struct{}
	unblock   chan struct{}
}

func (s *scriptedJudge) Submit(ctx context.Context, req judge.Request) (judge.Handle, error) {
	if s.submitted != nil {
		s.submitted <- struct{}{}
	}
	if s.unblock != nil {
		<-s.unblock
	}
	if s.submitErr != nil {
		return judge.Handle{}, s.submitErr
	}
	return judge.Handle{Token: "tok-" + req.Language}, nil
}

func (s *scriptedJudge) Fetch(ctx context.Context, handle judge.Handle) (judge.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	next := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	next.Token = handle.Token
	return next, nil
}

type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

func status(id int, desc string) judge.Result {
	return judge.Result{Status: judge.Status{ID: id, Description: desc}}
}

func TestExecutorPollsUntilTerminal(t *testing.T) {
	accepted := status(3, "Accepted")
	out := "42\n"
	accepted.Stdout = &out
	js := &scriptedJudge{results: []judge.Result{status(1, "In Queue"), status(2, "Processing"), accepted}}
	sleeper := &recordingSleeper{}
	exec := judge.NewExecutor(js, judge.ExecutorConfig{PollInterval: 250 * time.Millisecond}, judge.WithSleeper(sleeper.sleep))

	var states []judge.State
	result, err := exec.Execute(context.Background(), judge.Request{SourceCode: "x", Language: "cpp"}, func(tr judge.Transition) {
		states = append(states, tr.State)
		if tr.RunID == "" {
			t.Fatalf("transition without run id: %+v", tr)
		}
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Status.ID != 3 || *result.Stdout != "42\n" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if js.fetches != 3 {
		t.Fatalf("expected 3 fetches, got %d", js.fetches)
	}
	if len(sleeper.waits) != 3 {
		t.Fatalf("expected a wait before every fetch, got %v", sleeper.waits)
	}
	for _, w := range sleeper.waits {
		if w != 250*time.Millisecond {
			t.Fatalf("unexpected wait %v", w)
		}
	}
	want := []judge.State{judge.StateSubmitting, judge.StatePolling, judge.StatePolling, judge.StatePolling, judge.StateResolved}
	if len(states) != len(want) {
		t.Fatalf("unexpected transitions: %v", states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("transition %d: expected %s, got %s", i, want[i], states[i])
		}
	}
}

func TestExecutorMissingStatusIsTerminal(t *testing.T) {
	js := &scriptedJudge{results: []judge.Result{{}}}
	exec := judge.NewExecutor(js, judge.ExecutorConfig{}, judge.WithSleeper((&recordingSleeper{}).sleep))

	normalized, err := exec.Run(context.Background(), judge.Request{Language: "python"}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if js.fetches != 1 || normalized.Kind != judge.KindSuccess {
		t.Fatalf("unexpected outcome: fetches=%d kind=%s", js.fetches, normalized.Kind)
	}
}

func TestExecutorPollExhausted(t *testing.T) {
	js := &scriptedJudge{results: []judge.Result{status(2, "Processing")}}
	exec := judge.NewExecutor(js, judge.ExecutorConfig{MaxAttempts: 4}, judge.WithSleeper((&recordingSleeper{}).sleep))

	var last judge.Transition
	_, err := exec.Execute(context.Background(), judge.Request{Language: "java"}, func(tr judge.Transition) { last = tr })
	if !appErr.Is(err, appErr.ExecutionPollExhausted) {
		t.Fatalf("expected ExecutionPollExhausted, got %v", err)
	}
	if js.fetches != 4 {
		t.Fatalf("expected 4 fetches, got %d", js.fetches)
	}
	if last.State != judge.StateFailed || last.Err == nil {
		t.Fatalf("expected failed transition, got %+v", last)
	}
}

func TestExecutorCancellation(t *testing.T) {
	js := &scriptedJudge{results: []judge.Result{status(1, "In Queue")}}
	exec := judge.NewExecutor(js, judge.ExecutorConfig{}, judge.WithSleeper((&recordingSleeper{}).sleep))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := exec.Poll(ctx, judge.Handle{Token: "t"}, nil)
	if !appErr.Is(err, appErr.Canceled) {
		t.Fatalf("expected Canceled, got %v", err)
	}
	if js.fetches != 0 {
		t.Fatalf("expected no fetch after cancellation, got %d", js.fetches)
	}
}

func TestExecutorDeadline(t *testing.T) {
	js := &scriptedJudge{results: []judge.Result{status(1, "In Queue")}}
	exec := judge.NewExecutor(js, judge.ExecutorConfig{PollInterval: time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := exec.Poll(ctx, judge.Handle{Token: "t"}, nil)
	if !appErr.Is(err, appErr.Timeout) {
		t.Fatalf("expected Timeout, got %v", err)
	}
}

func TestExecutorSubmitFailure(t *testing.T) {
	js := &scriptedJudge{submitErr: appErr.UnsupportedLanguage("go")}
	exec := judge.NewExecutor(js, judge.ExecutorConfig{})

	var states []judge.State
	_, err := exec.Execute(context.Background(), judge.Request{Language: "go"}, func(tr judge.Transition) { states = append(states, tr.State) })
	if !appErr.Is(err, appErr.LanguageNotSupported) {
		t.Fatalf("expected LanguageNotSupported, got %v", err)
	}
	if len(states) != 2 || states[1] != judge.StateFailed {
		t.Fatalf("unexpected transitions: %v", states)
	}
}

func TestExecutorRejectsConcurrentRun(t *testing.T) {
	accepted := status(3, "Accepted")
	js := &scriptedJudge{
		results:   []judge.Result{accepted},
		submitted: make(chan struct{}, 2),
		unblock:   make(chan struct{}),
	}
	exec := judge.NewExecutor(js, judge.ExecutorConfig{}, judge.WithSleeper((&recordingSleeper{}).sleep))

	done := make(chan error, 1)
	go func() {
		_, err := exec.Execute(context.Background(), judge.Request{Language: "cpp"}, nil)
		done <- err
	}()
	<-js.submitted

	if _, err := exec.Execute(context.Background(), judge.Request{Language: "cpp"}, nil); !appErr.Is(err, appErr.RunInProgress) {
		t.Fatalf("expected RunInProgress, got %v", err)
	}

	close(js.unblock)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
}
