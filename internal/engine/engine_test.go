package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Amita-5/honeypot-scam-detector/internal/session"
	"github.com/Amita-5/honeypot-scam-detector/pkg/types"
)

type fakeFinalizer struct {
	mu      sync.Mutex
	reports []types.IntelligenceReport
}

func (f *fakeFinalizer) Finalize(r types.IntelligenceReport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, r)
}

func (f *fakeFinalizer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

func newTestStore(t *testing.T) session.Store {
	t.Helper()
	store, err := session.NewStore(session.StoreTypeMemory, session.WithTTL(time.Minute))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestHandleCountsEveryInboundMessage(t *testing.T) {
	store := newTestStore(t)
	e := New(store, nil, nil, nil, nil, Config{TurnThreshold: 100}, nil)

	for i := 1; i <= 5; i++ {
		if _, err := e.Handle(context.Background(), Inbound{SessionID: "s1", Text: fmt.Sprintf("msg %d", i)}); err != nil {
			t.Fatalf("handle %d: %v", i, err)
		}
		sess, err := store.Get(context.Background(), "s1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if sess.Turns != i {
			t.Fatalf("after %d messages turns = %d", i, sess.Turns)
		}
	}
}

func TestHandlePoliteReplyWhenNotDetected(t *testing.T) {
	store := newTestStore(t)
	e := New(store, nil, nil, nil, nil, Config{TurnThreshold: 100, PoliteReply: "polite"}, nil)

	res, err := e.Handle(context.Background(), Inbound{SessionID: "s1", Text: "share your otp please"})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if res.ScamDetected || res.Reply != "polite" {
		t.Fatalf("unexpected result: %+v", res)
	}

	// Extraction runs on every turn even while no scam is detected.
	sess, err := store.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(sess.RequestedData) != 1 || sess.RequestedData[0] != TagOTP {
		t.Fatalf("requested = %v", sess.RequestedData)
	}
}

func TestHandleDetectsOnceThenSustains(t *testing.T) {
	store := newTestStore(t)
	o := &fakeOracle{reply: `{"isScam": true, "reply": "Oh? Tell me more.", "scamType": "Phishing"}`}
	det := &Detector{Oracle: o, PoliteReply: "polite"}
	sel := NewSelector([]string{"turn one", "turn two", "turn three"})
	e := New(store, sel, det, &Refiner{}, nil, Config{TurnThreshold: 100}, nil)

	res, err := e.Handle(context.Background(), Inbound{SessionID: "s1", Text: "click this link"})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !res.ScamDetected || res.Reply != "Oh? Tell me more." {
		t.Fatalf("turn 1 result: %+v", res)
	}

	res, err = e.Handle(context.Background(), Inbound{SessionID: "s1", Text: "do it now"})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if res.Reply != "turn two" {
		t.Fatalf("turn 2 reply = %q, want baseline for post-increment turn", res.Reply)
	}

	// Detection ran exactly once.
	if o.calls != 1 {
		t.Fatalf("oracle called %d times for detection", o.calls)
	}

	sess, err := store.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.ScamType != "Phishing" {
		t.Fatalf("scam type = %q", sess.ScamType)
	}
}

func TestHandleFinalizesAtThreshold(t *testing.T) {
	store := newTestStore(t)
	fin := &fakeFinalizer{}
	o := &fakeOracle{reply: `{"isScam": true, "reply": "Who is this?", "scamType": "Banking"}`}
	e := New(store, nil, &Detector{Oracle: o}, &Refiner{}, fin, Config{TurnThreshold: 4}, nil)

	messages := []string{
		"your account is blocked",
		"share otp in 2 hours",
		"click the link to verify your bank account number",
		"you won a reward too",
	}
	var last Result
	for _, msg := range messages {
		res, err := e.Handle(context.Background(), Inbound{SessionID: "s1", Text: msg, Channel: "sms", Language: "en", Locale: "IN"})
		if err != nil {
			t.Fatalf("handle %q: %v", msg, err)
		}
		last = res
	}

	if !last.Finalized {
		t.Fatalf("expected final turn to finalize")
	}
	if fin.count() != 1 {
		t.Fatalf("finalizer called %d times", fin.count())
	}

	report := fin.reports[0]
	if report.TotalTurns != 4 {
		t.Fatalf("totalTurns = %d", report.TotalTurns)
	}
	if !report.ScamDetected || report.ScamType != "Banking" {
		t.Fatalf("report flags: %+v", report)
	}
	if report.Channel != "sms" || report.Language != "en" || report.Locale != "IN" {
		t.Fatalf("report metadata: %+v", report)
	}

	sess, err := store.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(report.ScamIndicators) != len(sess.ScamIndicators) || len(report.RequestedSensitiveData) != len(sess.RequestedData) {
		t.Fatalf("report lists diverge from session state: %+v vs %+v", report, sess)
	}
}

func TestHandleRejectsFinalizedSession(t *testing.T) {
	store := newTestStore(t)
	fin := &fakeFinalizer{}
	e := New(store, nil, nil, nil, fin, Config{TurnThreshold: 1}, nil)

	if _, err := e.Handle(context.Background(), Inbound{SessionID: "s1", Text: "hi"}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if _, err := e.Handle(context.Background(), Inbound{SessionID: "s1", Text: "hello again"}); err != ErrSessionClosed {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestEndIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	fin := &fakeFinalizer{}
	e := New(store, nil, nil, nil, fin, Config{TurnThreshold: 100}, nil)

	if _, err := e.Handle(context.Background(), Inbound{SessionID: "s1", Text: "hello"}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	fired, err := e.End(context.Background(), "s1")
	if err != nil || !fired {
		t.Fatalf("first end: fired=%v err=%v", fired, err)
	}
	fired, err = e.End(context.Background(), "s1")
	if err != nil || fired {
		t.Fatalf("second end must be a no-op: fired=%v err=%v", fired, err)
	}
	if fin.count() != 1 {
		t.Fatalf("finalizer called %d times", fin.count())
	}
}

// rerunStore mimics the Redis driver's optimistic-locking contract: the
// mutation closure runs once against a stale view that is then discarded, and
// again against the current state, which commits.
type rerunStore struct {
	session.Store
}

func (s *rerunStore) Mutate(ctx context.Context, id string, fn func(*session.Session) error) (*session.Session, error) {
	_ = fn(&session.Session{ID: id})
	return s.Store.Mutate(ctx, id, fn)
}

func TestEndSubmitsOnceWhenMutationReruns(t *testing.T) {
	store := &rerunStore{Store: newTestStore(t)}
	fin := &fakeFinalizer{}
	e := New(store, nil, nil, nil, fin, Config{TurnThreshold: 100}, nil)

	if _, err := e.Handle(context.Background(), Inbound{SessionID: "s1", Text: "hello"}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	fired, err := e.End(context.Background(), "s1")
	if err != nil || !fired {
		t.Fatalf("first end: fired=%v err=%v", fired, err)
	}
	if fin.count() != 1 {
		t.Fatalf("finalizer called %d times", fin.count())
	}
	// The committed run's report must win over the discarded run's.
	if fin.reports[0].TotalTurns != 1 {
		t.Fatalf("report from discarded run: %+v", fin.reports[0])
	}

	// The discarded run sees Finalized=false and would flip fired; the
	// committed run sees Finalized=true and must override it.
	fired, err = e.End(context.Background(), "s1")
	if err != nil || fired {
		t.Fatalf("second end must be a no-op: fired=%v err=%v", fired, err)
	}
	if fin.count() != 1 {
		t.Fatalf("duplicate submission: finalizer called %d times", fin.count())
	}
}

func TestEndUnknownSession(t *testing.T) {
	store := newTestStore(t)
	e := New(store, nil, nil, nil, nil, Config{}, nil)

	if _, err := e.End(context.Background(), "missing"); err != session.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentHandleNoLostUpdates(t *testing.T) {
	store := newTestStore(t)
	e := New(store, nil, nil, nil, nil, Config{TurnThreshold: 100}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := e.Handle(context.Background(), Inbound{SessionID: "s1", Text: fmt.Sprintf("msg %d", i)}); err != nil {
				t.Errorf("handle: %v", err)
			}
		}(i)
	}
	wg.Wait()

	sess, err := store.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.Turns < 2 {
		t.Fatalf("lost update: turns = %d", sess.Turns)
	}
}

func TestIndicatorsNeverShrink(t *testing.T) {
	store := newTestStore(t)
	e := New(store, nil, nil, nil, nil, Config{TurnThreshold: 100}, nil)

	messages := []string{"share your otp", "hello", "click this link", "nothing here"}
	prev := 0
	for _, msg := range messages {
		if _, err := e.Handle(context.Background(), Inbound{SessionID: "s1", Text: msg}); err != nil {
			t.Fatalf("handle: %v", err)
		}
		sess, err := store.Get(context.Background(), "s1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		total := len(sess.ScamIndicators) + len(sess.RequestedData)
		if total < prev {
			t.Fatalf("indicator sets shrank: %d -> %d", prev, total)
		}
		prev = total
	}
}
